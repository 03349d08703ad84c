package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Slug        string          `gorm:"column:slug;uniqueIndex" json:"slug,omitempty"`
	Title       string          `gorm:"column:title;not null" json:"title"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	Modules     []*CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

type CourseModule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_course_module_index,priority:1" json:"course_id"`
	Course    *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	Index     int       `gorm:"column:index;not null;uniqueIndex:idx_course_module_index,priority:2" json:"index"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	Lessons   []*Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CourseModule) TableName() string { return "course_module" }

type LessonKind string

const (
	LessonKindVideo    LessonKind = "video"
	LessonKindDocument LessonKind = "document"
)

type Lesson struct {
	ID       uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID uuid.UUID     `gorm:"type:uuid;not null;index;uniqueIndex:idx_lesson_module_index,priority:1" json:"module_id"`
	Module   *CourseModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"-"`
	Index    int           `gorm:"column:index;not null;uniqueIndex:idx_lesson_module_index,priority:2" json:"index"`
	Title    string        `gorm:"column:title;not null" json:"title"`
	Kind     LessonKind    `gorm:"column:kind;not null;default:'video'" json:"kind"`
	// DurationSeconds is 0 while unknown; the player reports it on first load.
	DurationSeconds int       `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
	MediaRef        string    `gorm:"column:media_ref" json:"media_ref,omitempty"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }
