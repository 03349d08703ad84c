package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/data/dberr"
	learningrepo "github.com/yungbote/trainingportal-backend/internal/data/repos/learning"
	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/completion"
	"github.com/yungbote/trainingportal-backend/internal/observability"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
	"github.com/yungbote/trainingportal-backend/internal/temporalx/certflow"
)

type completionStore struct {
	courses     learningrepo.CourseRepo
	progress    learningrepo.LessonProgressRepo
	assessments learningrepo.AssessmentRepo
	attempts    learningrepo.AttemptRepo
	enrollments learningrepo.EnrollmentRepo
}

// NewCompletionStore backs the completion orchestrator with the learning repos.
func NewCompletionStore(
	courses learningrepo.CourseRepo,
	progress learningrepo.LessonProgressRepo,
	assessments learningrepo.AssessmentRepo,
	attempts learningrepo.AttemptRepo,
	enrollments learningrepo.EnrollmentRepo,
) completion.Store {
	return &completionStore{courses: courses, progress: progress, assessments: assessments, attempts: attempts, enrollments: enrollments}
}

func (s *completionStore) LinkedAssessments(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.assessments.ListIDsByCourse(ctx, nil, courseID)
	return ids, dberr.Classify("list linked assessments", err)
}

func (s *completionStore) LatestFinishedAttempt(ctx context.Context, userID, assessmentID uuid.UUID) (*learning.AssessmentAttempt, error) {
	a, err := s.attempts.GetLatestFinished(ctx, nil, userID, assessmentID)
	return a, dberr.Classify("latest finished attempt", err)
}

func (s *completionStore) LessonCounts(ctx context.Context, userID, courseID uuid.UUID) (int, int, error) {
	course, err := s.courses.GetOutline(ctx, nil, courseID)
	if err != nil {
		return 0, 0, dberr.Classify("course outline", err)
	}
	if course == nil {
		return 0, 0, ErrCourseNotFound
	}
	total := 0
	for _, m := range course.Modules {
		total += len(m.Lessons)
	}
	rows, err := s.progress.ListForCourse(ctx, nil, userID, courseID)
	if err != nil {
		return 0, 0, dberr.Classify("list lesson progress", err)
	}
	completed := 0
	for _, r := range rows {
		if r.Completed {
			completed++
		}
	}
	return completed, total, nil
}

func (s *completionStore) GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*learning.Enrollment, error) {
	e, err := s.enrollments.Get(ctx, nil, userID, courseID)
	return e, dberr.Classify("get enrollment", err)
}

func (s *completionStore) SaveEnrollment(ctx context.Context, e *learning.Enrollment) error {
	return dberr.Classify("save enrollment", s.enrollments.SaveProgress(ctx, nil, e))
}

type completionListener struct {
	log     *logger.Logger
	notify  Notifier
	metrics *observability.Metrics
	trigger certflow.Trigger
}

// NewCompletionListener publishes enrollment changes and starts certificate issuance on completion.
func NewCompletionListener(baseLog *logger.Logger, notify Notifier, metrics *observability.Metrics, trigger certflow.Trigger) completion.Listener {
	return &completionListener{
		log:     baseLog.With("service", "CompletionListener"),
		notify:  notify,
		metrics: metrics,
		trigger: trigger,
	}
}

func (l *completionListener) EnrollmentChanged(ctx context.Context, e learning.Enrollment) {
	l.notify.EnrollmentChanged(ctx, e)
}

func (l *completionListener) EnrollmentCompleted(ctx context.Context, e learning.Enrollment) {
	l.metrics.IncEnrollmentCompleted()
	l.log.Info("Course completed", "user_id", e.UserID, "course_id", e.CourseID)
	if l.trigger == nil {
		return
	}
	if err := l.trigger.CourseCompleted(ctx, e.UserID, e.CourseID); err != nil {
		l.metrics.IncCertificate("trigger_failed")
		l.log.Error("certificate trigger failed", "user_id", e.UserID, "course_id", e.CourseID, "error", err)
	}
}

// orchestrate runs an orchestrator step and logs the error. Used from write-behind jobs.
func orchestrate(log *logger.Logger, step func() (*learning.Enrollment, error)) error {
	if _, err := step(); err != nil {
		log.Warn("completion step failed", "error", err)
		return fmt.Errorf("completion: %w", err)
	}
	return nil
}
