package services

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/trainingportal-backend/internal/data/dberr"
	learningrepo "github.com/yungbote/trainingportal-backend/internal/data/repos/learning"
	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/completion"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type EnrollmentView struct {
	Enrollment  *learning.Enrollment  `json:"enrollment"`
	Certificate *learning.Certificate `json:"certificate,omitempty"`
}

type EnrollmentService interface {
	// Enroll registers the employee on the course, deriving progress from any lesson rows
	// that already exist. Enrolling twice returns the existing enrollment.
	Enroll(ctx context.Context, userID, courseID uuid.UUID) (*EnrollmentView, error)
	Get(ctx context.Context, userID, courseID uuid.UUID) (*EnrollmentView, error)
}

type enrollmentService struct {
	log          *logger.Logger
	courses      learningrepo.CourseRepo
	enrollments  learningrepo.EnrollmentRepo
	certificates learningrepo.CertificateRepo
	store        completion.Store
	orchestrator *completion.Orchestrator
	writer       *Writer
}

func NewEnrollmentService(
	baseLog *logger.Logger,
	courses learningrepo.CourseRepo,
	enrollments learningrepo.EnrollmentRepo,
	certificates learningrepo.CertificateRepo,
	store completion.Store,
	orchestrator *completion.Orchestrator,
	writer *Writer,
) EnrollmentService {
	return &enrollmentService{
		log:          baseLog.With("service", "EnrollmentService"),
		courses:      courses,
		enrollments:  enrollments,
		certificates: certificates,
		store:        store,
		orchestrator: orchestrator,
		writer:       writer,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, userID, courseID uuid.UUID) (*EnrollmentView, error) {
	course, err := s.courses.GetOutline(ctx, nil, courseID)
	if err != nil {
		return nil, dberr.Classify("course outline", err)
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	s.writer.Submit(userID, WriteEnrollment, func(ctx context.Context) error {
		if _, err := s.enrollments.Create(ctx, nil, &learning.Enrollment{
			UserID:   userID,
			CourseID: courseID,
			Status:   learning.EnrollmentNotStarted,
		}); err != nil {
			return dberr.Classify("create enrollment", err)
		}
		completed, total, err := s.store.LessonCounts(ctx, userID, courseID)
		if err != nil {
			return err
		}
		return orchestrate(s.log, func() (*learning.Enrollment, error) {
			return s.orchestrator.OnProgressChanged(ctx, userID, courseID, completed, total)
		})
	})
	return s.Get(ctx, userID, courseID)
}

func (s *enrollmentService) Get(ctx context.Context, userID, courseID uuid.UUID) (*EnrollmentView, error) {
	if err := s.writer.Flush(ctx, userID); err != nil {
		return nil, err
	}
	var out EnrollmentView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.enrollments.Get(gctx, nil, userID, courseID)
		out.Enrollment = e
		return dberr.Classify("get enrollment", err)
	})
	g.Go(func() error {
		c, err := s.certificates.Get(gctx, nil, userID, courseID)
		out.Certificate = c
		return dberr.Classify("get certificate", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if out.Enrollment == nil {
		return nil, ErrNotEnrolled
	}
	return &out, nil
}
