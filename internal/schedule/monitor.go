package schedule

import (
	"context"
	"log"
	"sync"
	"time"

	"property-tour-router/internal/models"
)

// Defaults for the cancellation monitor
const (
	DefaultInterval                = 30 * time.Second
	DefaultCancellationProbability = 0.20
)

// Target is the itinerary a monitor watches
type Target interface {
	// PendingAppointments returns the appointments that can still be cancelled
	PendingAppointments() []models.Appointment
	// ApplyCancellations cancels the whole batch, removes the stops and
	// replans once. It returns how many stops remain.
	ApplyCancellations(ctx context.Context, events []models.CancellationEvent) (int, error)
}

// TickResult reports one monitoring round
type TickResult struct {
	Events    []models.CancellationEvent
	Remaining int
	Stopped   bool
	Err       error
}

// Draw rolls once per appointment and returns an event for every draw
// below the appointment's cancellation probability
func Draw(rng RNG, appointments []models.Appointment, now time.Time) []models.CancellationEvent {
	var events []models.CancellationEvent
	for _, a := range appointments {
		if a.Cancelled() {
			continue
		}
		draw := rng.Float64()
		if draw < a.CancellationProbability {
			events = append(events, models.CancellationEvent{
				StopID:      a.StopID,
				StopName:    a.StopName,
				Draw:        draw,
				Probability: a.CancellationProbability,
				At:          now,
			})
		}
	}
	return events
}

// MonitorConfig configures a Monitor. Zero fields take defaults.
type MonitorConfig struct {
	Interval  time.Duration
	NewTicker TickerFactory
	RNG       RNG
	Now       func() time.Time
	// OnTick, when set, observes every completed round
	OnTick func(TickResult)
}

// Monitor runs cancellation rounds on a fixed interval. Rounds never
// overlap: the loop handles one tick at a time and Tick holds a lock for
// the whole collect, apply and replan sequence.
type Monitor struct {
	target    Target
	interval  time.Duration
	newTicker TickerFactory
	rng       RNG
	now       func() time.Time
	onTick    func(TickResult)

	tickMu sync.Mutex

	stateMu sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewMonitor creates a stopped monitor for target
func NewMonitor(target Target, cfg MonitorConfig) *Monitor {
	m := &Monitor{
		target:    target,
		interval:  cfg.Interval,
		newTicker: cfg.NewTicker,
		rng:       cfg.RNG,
		now:       cfg.Now,
		onTick:    cfg.OnTick,
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.newTicker == nil {
		m.newTicker = NewRealTicker
	}
	if m.rng == nil {
		m.rng = NewSeededRNG(0)
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Start launches the tick loop. It is a no-op when already running.
func (m *Monitor) Start(ctx context.Context) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.running {
		return
	}

	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	ticker := m.newTicker(m.interval)
	go m.loop(ctx, ticker, m.stop, m.done)
	log.Printf("[MONITOR] Monitoring started: interval=%s", m.interval)
}

// Stop halts the loop and waits for an in-flight round to finish.
// It must not be called from inside Target methods.
func (m *Monitor) Stop() {
	done := m.halt()
	if done != nil {
		<-done
	}
}

// Running reports whether the tick loop is active
func (m *Monitor) Running() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.running
}

// halt closes the stop channel once and returns the loop's done channel
func (m *Monitor) halt() chan struct{} {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if !m.running {
		return nil
	}
	m.running = false
	close(m.stop)
	return m.done
}

func (m *Monitor) loop(ctx context.Context, ticker Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.halt()
			log.Printf("[MONITOR] Monitoring stopped: reason=context")
			return
		case <-stop:
			log.Printf("[MONITOR] Monitoring stopped")
			return
		case <-ticker.C():
			m.Tick(ctx)
		}
	}
}

// Tick runs one round: draw for every pending appointment, apply the whole
// batch of cancellations at once, then stop when no stops remain.
func (m *Monitor) Tick(ctx context.Context) TickResult {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	pending := m.target.PendingAppointments()
	result := TickResult{
		Events:    Draw(m.rng, pending, m.now()),
		Remaining: len(pending),
	}

	if len(result.Events) > 0 {
		for _, e := range result.Events {
			log.Printf("[MONITOR] Appointment cancelled: stop=%s name=%q draw=%.4f probability=%.2f",
				e.StopID, e.StopName, e.Draw, e.Probability)
		}
		remaining, err := m.target.ApplyCancellations(ctx, result.Events)
		result.Remaining = remaining
		if err != nil {
			result.Err = err
			log.Printf("[ERROR] Replanning after cancellations failed: %v", err)
		}
	}

	if result.Remaining == 0 {
		m.halt()
		result.Stopped = true
		log.Printf("[MONITOR] No stops remain, monitoring stopped")
	}
	log.Printf("[MONITOR] Tick complete: pending=%d cancelled=%d remaining=%d",
		len(pending), len(result.Events), result.Remaining)

	if m.onTick != nil {
		m.onTick(result)
	}
	return result
}
