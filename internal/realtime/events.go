package realtime

import (
	"github.com/google/uuid"
)

type SSEEvent string

const (
	SSEEventLessonProgressChanged      SSEEvent = "LessonProgressChanged"
	SSEEventAssessmentQuestionAdvanced SSEEvent = "AssessmentQuestionAdvanced"
	SSEEventAssessmentFinished         SSEEvent = "AssessmentFinished"
	SSEEventEnrollmentStatusChanged    SSEEvent = "EnrollmentStatusChanged"
	SSEEventPersistenceWarning         SSEEvent = "PersistenceWarning"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the channel every client of userID is subscribed to on connect.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// ToUser builds a message addressed to every connection of userID.
func ToUser(userID uuid.UUID, event SSEEvent, data any) SSEMessage {
	return SSEMessage{Channel: UserChannel(userID), Event: event, Data: data}
}
