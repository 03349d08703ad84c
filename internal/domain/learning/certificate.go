package learning

import (
	"time"

	"github.com/google/uuid"
)

type CertificateStatus string

const (
	CertificateRequested CertificateStatus = "requested"
	CertificateIssued    CertificateStatus = "issued"
)

// Certificate is the issuance record created when a course is completed.
// Rendering the document happens elsewhere.
type Certificate struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_user_course,priority:1" json:"user_id"`
	CourseID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_user_course,priority:2" json:"course_id"`
	Number      string            `gorm:"column:number;not null;uniqueIndex" json:"number"`
	Status      CertificateStatus `gorm:"column:status;not null" json:"status"`
	RequestedAt time.Time         `gorm:"column:requested_at;not null" json:"requested_at"`
	IssuedAt    *time.Time        `gorm:"column:issued_at" json:"issued_at,omitempty"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}

func (Certificate) TableName() string { return "certificate" }
