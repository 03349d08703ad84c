package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/data/dberr"
	"github.com/yungbote/trainingportal-backend/internal/jobs/worker"
	"github.com/yungbote/trainingportal-backend/internal/observability"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

// Job kinds on the write-behind queue.
const (
	WriteLessonProgress  = "lesson_progress"
	WriteLessonDuration  = "lesson_duration"
	WriteAttemptCreate   = "attempt_create"
	WriteAttemptFinalize = "attempt_finalize"
	WriteAttemptAbandon  = "attempt_abandon"
	WriteEnrollment      = "enrollment"
)

// Writer serializes every write for one employee through the same queue shard, so
// later reads for that employee can wait on Flush.
type Writer struct {
	log   *logger.Logger
	queue *worker.Queue
}

func NewWriter(baseLog *logger.Logger, queue *worker.Queue) *Writer {
	return &Writer{log: baseLog.With("service", "Writer"), queue: queue}
}

// WriteQueueConfig wires queue outcomes into metrics and the employee's SSE stream.
func WriteQueueConfig(base worker.Config, metrics *observability.Metrics, notify Notifier) worker.Config {
	base.Retryable = func(err error) bool {
		switch dberr.ClassOf(err) {
		case dberr.ClassConflict, dberr.ClassNotFound:
			return false
		}
		return true
	}
	base.OnSuccess = metrics.ObserveWrite
	base.OnFailure = func(f worker.Failure) {
		metrics.IncPersistenceFailure(f.Kind)
		if userID, err := uuid.Parse(f.Key); err == nil && notify != nil {
			notify.PersistenceWarning(context.Background(), userID, f.Kind)
		}
	}
	return base
}

func (w *Writer) Submit(userID uuid.UUID, kind string, run func(ctx context.Context) error) {
	err := w.queue.Enqueue(worker.Job{Kind: kind, Key: userID.String(), Run: run})
	if errors.Is(err, worker.ErrClosed) {
		w.log.Warn("write dropped; queue closed", "kind", kind, "user_id", userID)
	}
}

// Flush waits for every write already submitted for userID.
func (w *Writer) Flush(ctx context.Context, userID uuid.UUID) error {
	return w.queue.Barrier(ctx, userID.String())
}
