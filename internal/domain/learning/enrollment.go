package learning

import (
	"time"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	EnrollmentNotStarted EnrollmentStatus = "not_started"
	EnrollmentInProgress EnrollmentStatus = "in_progress"
	EnrollmentCompleted  EnrollmentStatus = "completed"
)

type Enrollment struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course,priority:1" json:"user_id"`
	CourseID        uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course,priority:2" json:"course_id"`
	Course          *Course          `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	ProgressPercent int              `gorm:"column:progress_percent;not null;default:0" json:"progress_percent"`
	Status          EnrollmentStatus `gorm:"column:status;not null;default:'not_started';index" json:"status"`
	CompletionDate  *time.Time       `gorm:"column:completion_date" json:"completion_date,omitempty"`
	CreatedAt       time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }
