package assessment

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// TickSource drives a question countdown. Start begins delivering ticks to onTick
// and returns a stop function; ticks may still arrive briefly after stop returns.
type TickSource interface {
	Start(onTick func()) (stop func())
}

// ClockTicks delivers one tick per Interval from a clock.Clock ticker.
type ClockTicks struct {
	Clock    clock.Clock
	Interval time.Duration
}

func (c ClockTicks) Start(onTick func()) func() {
	clk := c.Clock
	if clk == nil {
		clk = clock.New()
	}
	interval := c.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := clk.Ticker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				onTick()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// ManualTicks hands tick delivery to the caller. Fire calls the active callback, if any.
type ManualTicks struct {
	mu      sync.Mutex
	onTick  func()
	starts  int
	stopped int
}

func (m *ManualTicks) Start(onTick func()) func() {
	m.mu.Lock()
	m.onTick = onTick
	m.starts++
	m.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.onTick = nil
			m.stopped++
			m.mu.Unlock()
		})
	}
}

// Fire delivers n ticks and reports how many found an active countdown.
func (m *ManualTicks) Fire(n int) int {
	delivered := 0
	for i := 0; i < n; i++ {
		m.mu.Lock()
		fn := m.onTick
		m.mu.Unlock()
		if fn == nil {
			break
		}
		fn()
		delivered++
	}
	return delivered
}

// Active reports the number of started countdowns that have not been stopped.
func (m *ManualTicks) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts - m.stopped
}
