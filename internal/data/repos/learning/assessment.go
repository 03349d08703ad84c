package learning

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type AssessmentRepo interface {
	// GetWithQuestions loads an assessment with its questions in presentation order.
	GetWithQuestions(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) (*learning.Assessment, error)
	ListIDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error)
	Upsert(ctx context.Context, tx *gorm.DB, a *learning.Assessment) error
	UpsertQuestion(ctx context.Context, tx *gorm.DB, q *learning.AssessmentQuestion) error
}

type assessmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentRepo {
	return &assessmentRepo{db: db, log: baseLog.With("repo", "AssessmentRepo")}
}

func (r *assessmentRepo) GetWithQuestions(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) (*learning.Assessment, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if assessmentID == uuid.Nil {
		return nil, nil
	}
	var a learning.Assessment
	err := t.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", assessmentID).
		Limit(1).
		Find(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

func (r *assessmentRepo) ListIDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var ids []uuid.UUID
	if courseID == uuid.Nil {
		return ids, nil
	}
	if err := t.WithContext(ctx).
		Model(&learning.Assessment{}).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *assessmentRepo) Upsert(ctx context.Context, tx *gorm.DB, a *learning.Assessment) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if a == nil {
		return nil
	}
	return t.WithContext(ctx).
		Omit("Questions", "Course").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "course_id", "updated_at"}),
		}).
		Create(a).Error
}

func (r *assessmentRepo) UpsertQuestion(ctx context.Context, tx *gorm.DB, q *learning.AssessmentQuestion) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if q == nil {
		return nil
	}
	return t.WithContext(ctx).
		Omit("Assessment").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "prompt", "options", "correct_answer", "points", "updated_at"}),
		}).
		Create(q).Error
}
