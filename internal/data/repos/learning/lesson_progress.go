package learning

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type LessonProgressRepo interface {
	ListForCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) ([]*learning.LessonProgress, error)
	Get(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*learning.LessonProgress, error)
	// Upsert writes the row keyed by (user_id, lesson_id). watched_seconds never decreases and
	// completion is never cleared, whatever order concurrent writes land in.
	Upsert(ctx context.Context, tx *gorm.DB, row *learning.LessonProgress) error
}

type lessonProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	return &lessonProgressRepo{db: db, log: baseLog.With("repo", "LessonProgressRepo")}
}

func (r *lessonProgressRepo) ListForCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) ([]*learning.LessonProgress, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*learning.LessonProgress
	if userID == uuid.Nil || courseID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonProgressRepo) Get(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*learning.LessonProgress, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || lessonID == uuid.Nil {
		return nil, nil
	}
	var row learning.LessonProgress
	if err := t.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *lessonProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, row *learning.LessonProgress) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.UserID == uuid.Nil || row.LessonID == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "watched_seconds"}, Value: gorm.Expr(
				"CASE WHEN excluded.watched_seconds > lesson_progress.watched_seconds THEN excluded.watched_seconds ELSE lesson_progress.watched_seconds END")},
			{Column: clause.Column{Name: "last_position"}, Value: gorm.Expr("excluded.last_position")},
			{Column: clause.Column{Name: "completed"}, Value: gorm.Expr(
				"CASE WHEN lesson_progress.completed THEN lesson_progress.completed ELSE excluded.completed END")},
			{Column: clause.Column{Name: "completed_at"}, Value: gorm.Expr("COALESCE(lesson_progress.completed_at, excluded.completed_at)")},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
		},
	}).Create(row).Error
}
