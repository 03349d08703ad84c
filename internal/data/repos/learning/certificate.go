package learning

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type CertificateRepo interface {
	// Request inserts a requested certificate unless one already exists, returning the stored row.
	Request(ctx context.Context, tx *gorm.DB, c *learning.Certificate) (*learning.Certificate, error)
	Get(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*learning.Certificate, error)
	MarkIssued(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	return &certificateRepo{db: db, log: baseLog.With("repo", "CertificateRepo")}
}

func (r *certificateRepo) Request(ctx context.Context, tx *gorm.DB, c *learning.Certificate) (*learning.Certificate, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if c == nil || c.UserID == uuid.Nil || c.CourseID == uuid.Nil {
		return nil, nil
	}
	if c.Status == "" {
		c.Status = learning.CertificateRequested
	}
	if err := t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(c).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx, t, c.UserID, c.CourseID)
}

func (r *certificateRepo) Get(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*learning.Certificate, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var row learning.Certificate
	if err := t.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *certificateRepo) MarkIssued(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).
		Model(&learning.Certificate{}).
		Where("id = ? AND issued_at IS NULL", id).
		Updates(map[string]any{"status": learning.CertificateIssued, "issued_at": at, "updated_at": at}).Error
}
