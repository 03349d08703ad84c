package realtime

import "context"

// Emitter hands a message to whatever transport the process was wired with.
type Emitter interface {
	Emit(ctx context.Context, msg SSEMessage)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, msg SSEMessage)

func (f EmitterFunc) Emit(ctx context.Context, msg SSEMessage) { f(ctx, msg) }
