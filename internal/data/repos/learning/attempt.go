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

type AttemptRepo interface {
	// Create inserts a started attempt. Replaying the same attempt is a no-op.
	Create(ctx context.Context, tx *gorm.DB, attempt *learning.AssessmentAttempt) error
	// Finalize writes the scoring fields once. Rows that already carry completed_at are left alone.
	Finalize(ctx context.Context, tx *gorm.DB, attempt *learning.AssessmentAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*learning.AssessmentAttempt, error)
	// GetLatest returns the most recently started attempt, finished or not.
	GetLatest(ctx context.Context, tx *gorm.DB, userID, assessmentID uuid.UUID) (*learning.AssessmentAttempt, error)
	// GetLatestFinished returns the most recently started attempt that has been scored.
	GetLatestFinished(ctx context.Context, tx *gorm.DB, userID, assessmentID uuid.UUID) (*learning.AssessmentAttempt, error)
	// MarkAbandoned stamps abandoned_at on in-flight attempts. Finished attempts are never touched.
	MarkAbandoned(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, at time.Time) (int64, error)
	// ListStaleInFlight lists in-flight attempts started before cutoff.
	ListStaleInFlight(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*learning.AssessmentAttempt, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return &attemptRepo{db: db, log: baseLog.With("repo", "AttemptRepo")}
}

func (r *attemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *learning.AssessmentAttempt) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if attempt == nil {
		return nil
	}
	return t.WithContext(ctx).
		Omit("Assessment").
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(attempt).Error
}

func (r *attemptRepo) Finalize(ctx context.Context, tx *gorm.DB, attempt *learning.AssessmentAttempt) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if attempt == nil || attempt.CompletedAt == nil {
		return nil
	}
	res := t.WithContext(ctx).
		Model(&learning.AssessmentAttempt{}).
		Where("id = ? AND completed_at IS NULL", attempt.ID).
		Updates(map[string]any{
			"completed_at":       attempt.CompletedAt,
			"answers":            attempt.Answers,
			"score_percent":      attempt.ScorePercent,
			"passed":             attempt.Passed,
			"time_spent_minutes": attempt.TimeSpentMinutes,
			"updated_at":         *attempt.CompletedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// Either already finalized or the start write never landed; insert only if absent.
	return t.WithContext(ctx).
		Omit("Assessment").
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(attempt).Error
}

func (r *attemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*learning.AssessmentAttempt, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row learning.AssessmentAttempt
	if err := t.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *attemptRepo) GetLatest(ctx context.Context, tx *gorm.DB, userID, assessmentID uuid.UUID) (*learning.AssessmentAttempt, error) {
	return r.latest(ctx, tx, userID, assessmentID, false)
}

func (r *attemptRepo) GetLatestFinished(ctx context.Context, tx *gorm.DB, userID, assessmentID uuid.UUID) (*learning.AssessmentAttempt, error) {
	return r.latest(ctx, tx, userID, assessmentID, true)
}

func (r *attemptRepo) latest(ctx context.Context, tx *gorm.DB, userID, assessmentID uuid.UUID, finishedOnly bool) (*learning.AssessmentAttempt, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || assessmentID == uuid.Nil {
		return nil, nil
	}
	q := t.WithContext(ctx).Where("user_id = ? AND assessment_id = ?", userID, assessmentID)
	if finishedOnly {
		q = q.Where("completed_at IS NOT NULL")
	}
	var row learning.AssessmentAttempt
	if err := q.Order("started_at DESC").Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *attemptRepo) MarkAbandoned(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, at time.Time) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := t.WithContext(ctx).
		Model(&learning.AssessmentAttempt{}).
		Where("id IN ? AND completed_at IS NULL AND abandoned_at IS NULL", ids).
		Updates(map[string]any{"abandoned_at": at, "updated_at": at})
	return res.RowsAffected, res.Error
}

func (r *attemptRepo) ListStaleInFlight(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*learning.AssessmentAttempt, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 200
	}
	var out []*learning.AssessmentAttempt
	if err := t.WithContext(ctx).
		Where("completed_at IS NULL AND abandoned_at IS NULL AND started_at < ?", cutoff).
		Order("started_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
