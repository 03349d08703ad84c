package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/assessment"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/progress"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
	"github.com/yungbote/trainingportal-backend/internal/realtime"
)

// Notifier turns domain events into SSE messages on the employee's channel.
type Notifier interface {
	LessonProgressChanged(ctx context.Context, userID uuid.UUID, view progress.CourseView)
	QuestionAdvanced(ctx context.Context, userID uuid.UUID, view assessment.View, timedOut bool)
	AssessmentFinished(ctx context.Context, userID uuid.UUID, view assessment.View)
	EnrollmentChanged(ctx context.Context, e learning.Enrollment)
	PersistenceWarning(ctx context.Context, userID uuid.UUID, kind string)
}

type notifier struct {
	log     *logger.Logger
	emitter realtime.Emitter
}

func NewNotifier(baseLog *logger.Logger, emitter realtime.Emitter) Notifier {
	return &notifier{log: baseLog.With("service", "Notifier"), emitter: emitter}
}

func (n *notifier) emit(ctx context.Context, userID uuid.UUID, event realtime.SSEEvent, data any) {
	if n == nil || n.emitter == nil || userID == uuid.Nil {
		return
	}
	n.emitter.Emit(ctx, realtime.ToUser(userID, event, data))
}

func (n *notifier) LessonProgressChanged(ctx context.Context, userID uuid.UUID, view progress.CourseView) {
	n.emit(ctx, userID, realtime.SSEEventLessonProgressChanged, view)
}

func (n *notifier) QuestionAdvanced(ctx context.Context, userID uuid.UUID, view assessment.View, timedOut bool) {
	n.emit(ctx, userID, realtime.SSEEventAssessmentQuestionAdvanced, map[string]any{
		"attempt":   view,
		"timed_out": timedOut,
	})
}

func (n *notifier) AssessmentFinished(ctx context.Context, userID uuid.UUID, view assessment.View) {
	n.emit(ctx, userID, realtime.SSEEventAssessmentFinished, view)
}

func (n *notifier) EnrollmentChanged(ctx context.Context, e learning.Enrollment) {
	n.emit(ctx, e.UserID, realtime.SSEEventEnrollmentStatusChanged, e)
}

func (n *notifier) PersistenceWarning(ctx context.Context, userID uuid.UUID, kind string) {
	n.emit(ctx, userID, realtime.SSEEventPersistenceWarning, map[string]any{
		"kind":    kind,
		"message": "Your latest progress could not be saved. It will be retried when you continue.",
	})
}
