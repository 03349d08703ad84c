package learning

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultQuestionPoints applies when a question has no explicit weight.
const DefaultQuestionPoints = 10

type Assessment struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title string    `gorm:"column:title;not null" json:"title"`
	// CourseID links the assessment to the course whose completion it gates.
	CourseID  *uuid.UUID            `gorm:"type:uuid;index" json:"course_id,omitempty"`
	Course    *Course               `gorm:"constraint:OnDelete:SET NULL;foreignKey:CourseID;references:ID" json:"-"`
	Questions []*AssessmentQuestion `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
	CreatedAt time.Time             `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time             `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt        `gorm:"index" json:"deleted_at,omitempty"`
}

func (Assessment) TableName() string { return "assessment" }

type AssessmentQuestion struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	AssessmentID uuid.UUID   `gorm:"type:uuid;not null;index" json:"assessment_id"`
	Assessment   *Assessment `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssessmentID;references:ID" json:"-"`
	Position     int         `gorm:"column:position;not null" json:"position"`
	Prompt       string      `gorm:"column:prompt;type:text;not null" json:"prompt"`
	// Options holds []QuestionOption. Kept raw so malformed rows still load.
	Options datatypes.JSON `gorm:"column:options;type:jsonb" json:"options,omitempty"`
	// CorrectAnswer is the legacy free-form answer key.
	CorrectAnswer string    `gorm:"column:correct_answer" json:"-"`
	Points        *int      `gorm:"column:points" json:"points,omitempty"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (AssessmentQuestion) TableName() string { return "assessment_question" }

type QuestionOption struct {
	Letter    string `json:"letter"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// ParsedOptions decodes Options. A nil or empty column yields no options and no error.
func (q *AssessmentQuestion) ParsedOptions() ([]QuestionOption, error) {
	if q == nil || len(q.Options) == 0 || string(q.Options) == "null" {
		return nil, nil
	}
	var opts []QuestionOption
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// Weight returns the question's points, defaulting when unset.
func (q *AssessmentQuestion) Weight() int {
	if q == nil || q.Points == nil {
		return DefaultQuestionPoints
	}
	return *q.Points
}

// PublicOption is what a candidate sees; correctness is never sent to the client.
type PublicOption struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}
