package completion

import (
	"context"
	"fmt"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/progress"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

// Store is the read/write surface the orchestrator needs.
type Store interface {
	LinkedAssessments(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
	LatestFinishedAttempt(ctx context.Context, userID, assessmentID uuid.UUID) (*learning.AssessmentAttempt, error)
	LessonCounts(ctx context.Context, userID, courseID uuid.UUID) (completed, total int, err error)
	GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*learning.Enrollment, error)
	SaveEnrollment(ctx context.Context, e *learning.Enrollment) error
}

// Listener hears about enrollment changes. Completed fires once per enrollment.
type Listener interface {
	EnrollmentChanged(ctx context.Context, e learning.Enrollment)
	EnrollmentCompleted(ctx context.Context, e learning.Enrollment)
}

// AssessmentOutcome is what a finished session reports.
type AssessmentOutcome struct {
	UserID       uuid.UUID
	AssessmentID uuid.UUID
	CourseID     *uuid.UUID
	AttemptID    uuid.UUID
	Passed       bool
}

type Orchestrator struct {
	store    Store
	listener Listener
	clk      clock.Clock
	log      *logger.Logger
}

func NewOrchestrator(baseLog *logger.Logger, store Store, listener Listener, clk clock.Clock) *Orchestrator {
	if clk == nil {
		clk = clock.New()
	}
	return &Orchestrator{
		store:    store,
		listener: listener,
		clk:      clk,
		log:      baseLog.With("component", "CompletionOrchestrator"),
	}
}

// allWatched requires every lesson, not a rounded percent of 100.
func allWatched(completed, total int) bool {
	return total > 0 && completed >= total
}

// OnProgressChanged recomputes the enrollment after a lesson completion.
func (o *Orchestrator) OnProgressChanged(ctx context.Context, userID, courseID uuid.UUID, completed, total int) (*learning.Enrollment, error) {
	pct := progress.Percent(completed, total)
	done := false
	if allWatched(completed, total) {
		ok, err := o.allLinkedPassed(ctx, userID, courseID, nil)
		if err != nil {
			return nil, err
		}
		done = ok
	}
	return o.apply(ctx, userID, courseID, pct, done)
}

// OnAssessmentFinished completes the course when this pass was the last requirement.
// A failed outcome changes nothing.
func (o *Orchestrator) OnAssessmentFinished(ctx context.Context, out AssessmentOutcome) (*learning.Enrollment, error) {
	if !out.Passed || out.CourseID == nil || *out.CourseID == uuid.Nil {
		return nil, nil
	}
	courseID := *out.CourseID
	completed, total, err := o.store.LessonCounts(ctx, out.UserID, courseID)
	if err != nil {
		return nil, fmt.Errorf("lesson counts: %w", err)
	}
	pct := progress.Percent(completed, total)
	if !allWatched(completed, total) {
		return nil, nil
	}
	ok, err := o.allLinkedPassed(ctx, out.UserID, courseID, &out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return o.apply(ctx, out.UserID, courseID, pct, true)
}

// allLinkedPassed checks the latest finished attempt of every linked assessment.
// just overrides the stored row for its assessment so a pass counts before its write lands.
func (o *Orchestrator) allLinkedPassed(ctx context.Context, userID, courseID uuid.UUID, just *AssessmentOutcome) (bool, error) {
	ids, err := o.store.LinkedAssessments(ctx, courseID)
	if err != nil {
		return false, fmt.Errorf("linked assessments: %w", err)
	}
	for _, id := range ids {
		if just != nil && just.AssessmentID == id {
			if !just.Passed {
				return false, nil
			}
			continue
		}
		latest, err := o.store.LatestFinishedAttempt(ctx, userID, id)
		if err != nil {
			return false, fmt.Errorf("latest attempt: %w", err)
		}
		if latest == nil || !latest.Passed {
			return false, nil
		}
	}
	return true, nil
}

func (o *Orchestrator) apply(ctx context.Context, userID, courseID uuid.UUID, pct int, done bool) (*learning.Enrollment, error) {
	e, err := o.store.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if e == nil {
		e = &learning.Enrollment{UserID: userID, CourseID: courseID}
	}
	if e.Status == learning.EnrollmentCompleted {
		// Completion is one-way.
		return e, nil
	}

	e.ProgressPercent = pct
	switch {
	case done:
		now := o.clk.Now()
		e.Status = learning.EnrollmentCompleted
		e.CompletionDate = &now
	case pct == 0:
		e.Status = learning.EnrollmentNotStarted
	default:
		e.Status = learning.EnrollmentInProgress
	}
	if err := o.store.SaveEnrollment(ctx, e); err != nil {
		return nil, fmt.Errorf("save enrollment: %w", err)
	}

	o.log.Debug("Enrollment updated", "user_id", userID, "course_id", courseID, "status", e.Status, "progress", pct)
	if o.listener != nil {
		o.listener.EnrollmentChanged(ctx, *e)
		if done {
			o.listener.EnrollmentCompleted(ctx, *e)
		}
	}
	return e, nil
}
