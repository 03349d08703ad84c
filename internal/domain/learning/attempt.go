package learning

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AssessmentAttempt records one run of an assessment. Scoring fields are written once,
// when CompletedAt is set, and never change afterwards.
type AssessmentAttempt struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AssessmentID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_attempt_user_assessment,priority:2" json:"assessment_id"`
	Assessment       *Assessment    `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssessmentID;references:ID" json:"-"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_attempt_user_assessment,priority:1" json:"user_id"`
	StartedAt        time.Time      `gorm:"column:started_at;not null;index:idx_attempt_user_assessment,priority:3" json:"started_at"`
	CompletedAt      *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	AbandonedAt      *time.Time     `gorm:"column:abandoned_at" json:"abandoned_at,omitempty"`
	Answers          datatypes.JSON `gorm:"column:answers;type:jsonb" json:"answers,omitempty"`
	ScorePercent     int            `gorm:"column:score_percent;not null;default:0" json:"score_percent"`
	Passed           bool           `gorm:"column:passed;not null;default:false" json:"passed"`
	TimeSpentMinutes int            `gorm:"column:time_spent_minutes;not null;default:0" json:"time_spent_minutes"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (AssessmentAttempt) TableName() string { return "assessment_attempt" }

// Finished reports whether the attempt has been scored.
func (a *AssessmentAttempt) Finished() bool { return a != nil && a.CompletedAt != nil }

// AnswerMap decodes Answers as question_id -> chosen identifier.
func (a *AssessmentAttempt) AnswerMap() map[string]string {
	out := map[string]string{}
	if a == nil || len(a.Answers) == 0 {
		return out
	}
	_ = json.Unmarshal(a.Answers, &out)
	return out
}

func EncodeAnswers(answers map[string]string) datatypes.JSON {
	if answers == nil {
		answers = map[string]string{}
	}
	b, _ := json.Marshal(answers)
	return datatypes.JSON(b)
}
