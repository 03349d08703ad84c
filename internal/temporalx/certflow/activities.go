package certflow

import (
	"context"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

// Issuer records the certificate for a completed enrollment. Repeat calls return the stored row.
type Issuer interface {
	Issue(ctx context.Context, userID, courseID uuid.UUID) (*learning.Certificate, error)
}

type Activities struct {
	Issuer Issuer
}

func (a *Activities) Issue(ctx context.Context, in Input) (Result, error) {
	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return Result{}, temporal.NewNonRetryableApplicationError("bad user_id", "invalid_input", err)
	}
	courseID, err := uuid.Parse(in.CourseID)
	if err != nil {
		return Result{}, temporal.NewNonRetryableApplicationError("bad course_id", "invalid_input", err)
	}
	cert, err := a.Issuer.Issue(ctx, userID, courseID)
	if err != nil {
		return Result{}, err
	}
	if cert == nil {
		return Result{}, temporal.NewNonRetryableApplicationError("enrollment not completed", "invalid_input", nil)
	}
	return Result{CertificateID: cert.ID.String(), Number: cert.Number, Status: string(cert.Status)}, nil
}
