package learning

import (
	"time"

	"github.com/google/uuid"
)

// LessonProgress is one employee's consumption record for one lesson.
type LessonProgress struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_user_lesson,priority:1;index:idx_lesson_progress_user_course,priority:1" json:"user_id"`
	LessonID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_user_lesson,priority:2" json:"lesson_id"`
	CourseID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_lesson_progress_user_course,priority:2" json:"course_id"`
	WatchedSeconds int        `gorm:"column:watched_seconds;not null;default:0" json:"watched_seconds"`
	LastPosition   int        `gorm:"column:last_position;not null;default:0" json:"last_position"`
	Completed      bool       `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }
