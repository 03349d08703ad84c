package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/facebookgo/clock"

	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

// Job is one persistence write. Kind labels it in logs and metrics.
type Job struct {
	Kind string
	Key  string
	Run  func(ctx context.Context) error
}

// Failure describes a job that exhausted its retries.
type Failure struct {
	Kind     string
	Key      string
	Attempts int
	Err      error
}

type Config struct {
	Shards      int
	Buffer      int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	JobTimeout  time.Duration
	// Retryable decides whether an error is worth another attempt. Nil retries everything.
	Retryable func(error) bool
	OnFailure func(Failure)
	OnSuccess func(kind string, d time.Duration)
}

var ErrClosed = errors.New("write queue closed")

// Queue applies writes asynchronously. Jobs with the same key run one at a time in
// submission order; different keys spread across shards.
type Queue struct {
	log    *logger.Logger
	cfg    Config
	clk    clock.Clock
	shards []chan item

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type item struct {
	job     Job
	barrier chan struct{}
}

func NewQueue(baseLog *logger.Logger, clk clock.Clock, cfg Config) *Queue {
	if cfg.Shards < 1 {
		cfg.Shards = 4
	}
	if cfg.Buffer < 1 {
		cfg.Buffer = 256
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 15 * time.Second
	}
	if clk == nil {
		clk = clock.New()
	}
	q := &Queue{
		log:    baseLog.With("component", "WriteQueue"),
		cfg:    cfg,
		clk:    clk,
		shards: make([]chan item, cfg.Shards),
	}
	for i := range q.shards {
		q.shards[i] = make(chan item, cfg.Buffer)
	}
	return q
}

// Start launches one loop per shard. Loops drain their shard and exit after Close.
func (q *Queue) Start(ctx context.Context) {
	q.log.Info("Starting write queue", "shards", len(q.shards), "max_attempts", q.cfg.MaxAttempts)
	for i := range q.shards {
		q.wg.Add(1)
		go q.runLoop(ctx, i)
	}
}

func (q *Queue) shardFor(key string) chan item {
	return q.shards[xxhash.Sum64String(key)%uint64(len(q.shards))]
}

// Enqueue hands a job to its shard. It blocks only while the shard buffer is full.
func (q *Queue) Enqueue(job Job) error {
	if job.Run == nil {
		return nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	q.shardFor(job.Key) <- item{job: job}
	return nil
}

// Barrier waits until every job enqueued for key before the call has run.
func (q *Queue) Barrier(ctx context.Context, key string) error {
	done := make(chan struct{})
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return nil
	}
	select {
	case q.shardFor(key) <- item{barrier: done}:
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}
	q.mu.RUnlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake and waits for queued jobs to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, ch := range q.shards {
		close(ch)
	}
	q.mu.Unlock()
	q.wg.Wait()
	q.log.Info("Write queue drained")
}

func (q *Queue) runLoop(ctx context.Context, shard int) {
	defer q.wg.Done()
	for it := range q.shards[shard] {
		if it.barrier != nil {
			close(it.barrier)
			continue
		}
		q.process(ctx, shard, it.job)
	}
}

func (q *Queue) process(ctx context.Context, shard int, job Job) {
	start := q.clk.Now()
	var err error
	attempts := 0
	for attempts < q.cfg.MaxAttempts {
		attempts++
		err = q.runOnce(ctx, job)
		if err == nil {
			if q.cfg.OnSuccess != nil {
				q.cfg.OnSuccess(job.Kind, q.clk.Now().Sub(start))
			}
			return
		}
		if q.cfg.Retryable != nil && !q.cfg.Retryable(err) {
			break
		}
		if attempts < q.cfg.MaxAttempts {
			q.log.Debug("Write failed; retrying", "kind", job.Kind, "shard", shard, "attempt", attempts, "error", err)
			q.clk.Sleep(q.backoff(attempts))
		}
	}
	q.log.Warn("persistence failure", "kind", job.Kind, "key", job.Key, "attempts", attempts, "error", err)
	if q.cfg.OnFailure != nil {
		q.cfg.OnFailure(Failure{Kind: job.Kind, Key: job.Key, Attempts: attempts, Err: err})
	}
}

func (q *Queue) runOnce(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("Write job panic", "kind", job.Kind, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.cfg.JobTimeout)
	defer cancel()
	return job.Run(jobCtx)
}

func (q *Queue) backoff(attempt int) time.Duration {
	d := q.cfg.BaseBackoff << (attempt - 1)
	if d <= 0 || d > q.cfg.MaxBackoff {
		return q.cfg.MaxBackoff
	}
	return d
}
