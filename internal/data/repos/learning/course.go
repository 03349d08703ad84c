package learning

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type CourseRepo interface {
	// GetOutline loads a course with its modules and lessons ordered by index.
	GetOutline(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*learning.Course, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*learning.Course, error)
	GetLesson(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*learning.Lesson, error)
	UpsertCourse(ctx context.Context, tx *gorm.DB, course *learning.Course) error
	UpsertModule(ctx context.Context, tx *gorm.DB, module *learning.CourseModule) error
	UpsertLesson(ctx context.Context, tx *gorm.DB, lesson *learning.Lesson) error
	// SetLessonDuration records a duration reported by the player when the catalog had none.
	SetLessonDuration(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, seconds int) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) GetOutline(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*learning.Course, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if courseID == uuid.Nil {
		return nil, nil
	}
	var course learning.Course
	err := t.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order(`"index" ASC`) }).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order(`"index" ASC`) }).
		Where("id = ?", courseID).
		Limit(1).
		Find(&course).Error
	if err != nil {
		return nil, err
	}
	if course.ID == uuid.Nil {
		return nil, nil
	}
	return &course, nil
}

func (r *courseRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*learning.Course, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if slug == "" {
		return nil, nil
	}
	var course learning.Course
	if err := t.WithContext(ctx).Where("slug = ?", slug).Limit(1).Find(&course).Error; err != nil {
		return nil, err
	}
	if course.ID == uuid.Nil {
		return nil, nil
	}
	return &course, nil
}

func (r *courseRepo) GetLesson(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*learning.Lesson, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if lessonID == uuid.Nil {
		return nil, nil
	}
	var lesson learning.Lesson
	if err := t.WithContext(ctx).Where("id = ?", lessonID).Limit(1).Find(&lesson).Error; err != nil {
		return nil, err
	}
	if lesson.ID == uuid.Nil {
		return nil, nil
	}
	return &lesson, nil
}

func (r *courseRepo) UpsertCourse(ctx context.Context, tx *gorm.DB, course *learning.Course) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if course == nil {
		return nil
	}
	return t.WithContext(ctx).
		Omit("Modules").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"slug", "title", "description", "updated_at"}),
		}).
		Create(course).Error
}

func (r *courseRepo) UpsertModule(ctx context.Context, tx *gorm.DB, module *learning.CourseModule) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if module == nil {
		return nil
	}
	return t.WithContext(ctx).
		Omit("Lessons", "Course").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"index", "title", "updated_at"}),
		}).
		Create(module).Error
}

func (r *courseRepo) UpsertLesson(ctx context.Context, tx *gorm.DB, lesson *learning.Lesson) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if lesson == nil {
		return nil
	}
	return t.WithContext(ctx).
		Omit("Module").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"index", "title", "kind", "duration_seconds", "media_ref", "updated_at"}),
		}).
		Create(lesson).Error
}

func (r *courseRepo) SetLessonDuration(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, seconds int) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if lessonID == uuid.Nil || seconds <= 0 {
		return nil
	}
	return t.WithContext(ctx).
		Model(&learning.Lesson{}).
		Where("id = ? AND duration_seconds = 0", lessonID).
		Update("duration_seconds", seconds).Error
}
