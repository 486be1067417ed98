package schedule

import (
	"math/rand"
	"sync"
	"time"
)

// Ticker is a recurring tick source
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker for an interval
type TickerFactory func(interval time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

// NewRealTicker wraps time.Ticker
func NewRealTicker(interval time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(interval)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// ManualTicker fires only when told to
type ManualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

// NewManualTicker creates a ticker driven by Fire
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// Factory returns a TickerFactory that re-arms and hands out this ticker
func (m *ManualTicker) Factory() TickerFactory {
	return func(time.Duration) Ticker {
		m.mu.Lock()
		m.stopped = false
		m.mu.Unlock()
		return m
	}
}

// C returns the tick channel
func (m *ManualTicker) C() <-chan time.Time { return m.ch }

// Stop marks the ticker stopped; later Fire calls are dropped
func (m *ManualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Stopped reports whether Stop was called
func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Fire delivers one tick, blocking until the receiver takes it. It returns
// false if the ticker was stopped or nobody received within a second.
func (m *ManualTicker) Fire(at time.Time) bool {
	if m.Stopped() {
		return false
	}
	select {
	case m.ch <- at:
		return true
	case <-time.After(time.Second):
		return false
	}
}

// RNG yields uniform draws in [0, 1)
type RNG interface {
	Float64() float64
}

type lockedRNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededRNG returns a reproducible RNG. A zero seed uses the clock.
func NewSeededRNG(seed int64) RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRNG{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRNG) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
