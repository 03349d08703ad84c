package bus

import (
	"context"
	"sync"

	"github.com/yungbote/trainingportal-backend/internal/realtime"
)

// Bus carries SSE messages between API replicas. Every replica forwards what it receives
// into its local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

type memoryBus struct {
	mu    sync.RWMutex
	onMsg []func(m realtime.SSEMessage)
}

// NewMemoryBus delivers messages synchronously inside the process. Used when REDIS_ADDR is unset.
func NewMemoryBus() Bus {
	return &memoryBus{}
}

func (b *memoryBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.onMsg {
		fn(msg)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return errOnMsgRequired
	}
	b.mu.Lock()
	b.onMsg = append(b.onMsg, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *memoryBus) Close() error { return nil }
