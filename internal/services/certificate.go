package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/facebookgo/clock"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/data/dberr"
	learningrepo "github.com/yungbote/trainingportal-backend/internal/data/repos/learning"
	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/observability"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type CertificateService interface {
	// Issue records the certificate for a completed enrollment. It returns nil when the
	// enrollment is not completed. Repeat calls return the stored certificate.
	Issue(ctx context.Context, userID, courseID uuid.UUID) (*learning.Certificate, error)
	Get(ctx context.Context, userID, courseID uuid.UUID) (*learning.Certificate, error)
}

type certificateService struct {
	log          *logger.Logger
	enrollments  learningrepo.EnrollmentRepo
	certificates learningrepo.CertificateRepo
	metrics      *observability.Metrics
	clk          clock.Clock
}

func NewCertificateService(
	baseLog *logger.Logger,
	enrollments learningrepo.EnrollmentRepo,
	certificates learningrepo.CertificateRepo,
	metrics *observability.Metrics,
	clk clock.Clock,
) CertificateService {
	if clk == nil {
		clk = clock.New()
	}
	return &certificateService{
		log:          baseLog.With("service", "CertificateService"),
		enrollments:  enrollments,
		certificates: certificates,
		metrics:      metrics,
		clk:          clk,
	}
}

// CertificateNumber is deterministic per (user, course) so retries never mint a second number.
func CertificateNumber(userID, courseID uuid.UUID, year int) string {
	sum := xxhash.Sum64String(userID.String() + ":" + courseID.String())
	return fmt.Sprintf("TP-%d-%s", year, strings.ToUpper(fmt.Sprintf("%012x", sum)[:12]))
}

func (s *certificateService) Issue(ctx context.Context, userID, courseID uuid.UUID) (*learning.Certificate, error) {
	e, err := s.enrollments.Get(ctx, nil, userID, courseID)
	if err != nil {
		return nil, dberr.Classify("get enrollment", err)
	}
	if e == nil || e.Status != learning.EnrollmentCompleted {
		return nil, nil
	}
	now := s.clk.Now()
	year := now.Year()
	if e.CompletionDate != nil {
		year = e.CompletionDate.Year()
	}
	cert, err := s.certificates.Request(ctx, nil, &learning.Certificate{
		UserID:      userID,
		CourseID:    courseID,
		Number:      CertificateNumber(userID, courseID, year),
		Status:      learning.CertificateRequested,
		RequestedAt: now,
	})
	if err != nil {
		return nil, dberr.Classify("request certificate", err)
	}
	if cert == nil || cert.Status == learning.CertificateIssued {
		return cert, nil
	}
	if err := s.certificates.MarkIssued(ctx, nil, cert.ID, now); err != nil {
		return nil, dberr.Classify("mark certificate issued", err)
	}
	s.metrics.IncCertificate(string(learning.CertificateIssued))
	s.log.Info("Certificate issued", "certificate_id", cert.ID, "number", cert.Number)
	return s.Get(ctx, userID, courseID)
}

func (s *certificateService) Get(ctx context.Context, userID, courseID uuid.UUID) (*learning.Certificate, error) {
	c, err := s.certificates.Get(ctx, nil, userID, courseID)
	return c, dberr.Classify("get certificate", err)
}
