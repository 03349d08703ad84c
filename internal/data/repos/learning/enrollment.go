package learning

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	// Create registers the enrollment if it does not exist yet and returns the stored row.
	Create(ctx context.Context, tx *gorm.DB, e *learning.Enrollment) (*learning.Enrollment, error)
	Get(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*learning.Enrollment, error)
	// SaveProgress writes progress and status. A completed enrollment is never downgraded.
	SaveProgress(ctx context.Context, tx *gorm.DB, e *learning.Enrollment) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) Create(ctx context.Context, tx *gorm.DB, e *learning.Enrollment) (*learning.Enrollment, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if e == nil || e.UserID == uuid.Nil || e.CourseID == uuid.Nil {
		return nil, nil
	}
	if e.Status == "" {
		e.Status = learning.EnrollmentNotStarted
	}
	if err := t.WithContext(ctx).
		Omit("Course").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(e).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx, t, e.UserID, e.CourseID)
}

func (r *enrollmentRepo) Get(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*learning.Enrollment, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var row learning.Enrollment
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

func (r *enrollmentRepo) SaveProgress(ctx context.Context, tx *gorm.DB, e *learning.Enrollment) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if e == nil || e.UserID == uuid.Nil || e.CourseID == uuid.Nil {
		return nil
	}
	updates := map[string]any{
		"progress_percent": e.ProgressPercent,
		"status":           e.Status,
		"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
	}
	if e.CompletionDate != nil {
		updates["completion_date"] = e.CompletionDate
	}
	res := t.WithContext(ctx).
		Model(&learning.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status <> ?", e.UserID, e.CourseID, learning.EnrollmentCompleted).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// Missing row (progress reported before registration) gets created; a completed row stays put.
	_, err := r.Create(ctx, t, e)
	return err
}
