package tour

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"property-tour-router/internal/models"
	"property-tour-router/internal/routing"
	"property-tour-router/internal/schedule"
)

// Session is one user's tour: start point, ordered stops, appointments and
// the last generated itinerary. All methods are safe for concurrent use;
// the cancellation monitor and user calls share one lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	engine  *Engine
	monitor *schedule.Monitor
	rng     routing.RNG

	mu            sync.Mutex
	start         *models.Coordinates
	stops         []models.Stop
	book          *schedule.Book
	itinerary     *models.Itinerary
	strategy      string
	cancellations []models.CancellationEvent
	monitoring    bool
}

func newSession(id string, e *Engine) *Session {
	seed := e.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Session{
		ID:        id,
		CreatedAt: e.opts.Now(),
		engine:    e,
		rng:       rand.New(rand.NewSource(seed)),
		book:      schedule.NewBook(),
		strategy:  e.opts.Strategy,
	}
	s.monitor = schedule.NewMonitor(s, schedule.MonitorConfig{
		Interval:  e.opts.MonitorInterval,
		NewTicker: e.opts.NewTicker,
		RNG:       schedule.NewSeededRNG(seed + 1),
		Now:       e.opts.Now,
	})
	return s
}

// SetStart sets the tour's starting coordinates
func (s *Session) SetStart(c models.Coordinates) error {
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: lat=%f lng=%f", ErrInvalidCoordinates, c.Lat, c.Lng)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = &c
	log.Printf("[SESSION] Start point set: id=%s lat=%.5f lng=%.5f", s.ID, c.Lat, c.Lng)
	return nil
}

// Start returns the starting coordinates, if set
func (s *Session) Start() (models.Coordinates, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.start == nil {
		return models.Coordinates{}, false
	}
	return *s.start, true
}

// AddStop appends a stop. While monitoring is on the stop also gets an appointment.
func (s *Session) AddStop(stop models.Stop) error {
	if stop.ID == "" {
		return fmt.Errorf("%w: empty id", ErrUnknownStop)
	}
	if stop.Lat < -90 || stop.Lat > 90 || stop.Lng < -180 || stop.Lng > 180 {
		return fmt.Errorf("%w: stop %s", ErrInvalidCoordinates, stop.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(stop.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateStop, stop.ID)
	}
	s.stops = append(s.stops, stop)
	if s.monitoring {
		s.book.Schedule(stop, s.engine.opts.Now(), s.engine.CancellationProbability())
	}
	log.Printf("[SESSION] Stop added: id=%s stop=%s stops=%d", s.ID, stop.ID, len(s.stops))
	return nil
}

// RemoveStop drops a stop and its appointment
func (s *Session) RemoveStop(stopID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(stopID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStop, stopID)
	}
	s.stops = append(s.stops[:i], s.stops[i+1:]...)
	s.book.Remove(stopID)
	log.Printf("[SESSION] Stop removed: id=%s stop=%s stops=%d", s.ID, stopID, len(s.stops))
	return nil
}

// Stops returns a copy of the stops in visiting order
func (s *Session) Stops() []models.Stop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Stop(nil), s.stops...)
}

// Itinerary returns the last generated itinerary, or nil
func (s *Session) Itinerary() *models.Itinerary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itinerary
}

// Cancellations returns every cancellation surfaced so far, oldest first
func (s *Session) Cancellations() []models.CancellationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CancellationEvent(nil), s.cancellations...)
}

// Appointments returns every appointment, cancelled ones included
func (s *Session) Appointments() []models.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.List()
}

// Monitoring reports whether the cancellation monitor is running
func (s *Session) Monitoring() bool {
	return s.monitor.Running()
}

// Optimize reorders the stops to shorten the tour and returns the new order
func (s *Session) Optimize(ctx context.Context, strategy string) ([]models.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.optimizeLocked(ctx, strategy); err != nil {
		return nil, err
	}
	s.ensureMonitoringLocked(ctx)
	return append([]models.Stop(nil), s.stops...), nil
}

// GenerateRoute plans legs over the current stop order
func (s *Session) GenerateRoute(ctx context.Context) (*models.Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.generateLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.ensureMonitoringLocked(ctx)
	s.scheduleArrivalsLocked(it)
	return it, nil
}

// Tick runs one cancellation round immediately
func (s *Session) Tick(ctx context.Context) schedule.TickResult {
	return s.monitor.Tick(ctx)
}

// Close stops the monitor. It must not be called while holding the session lock.
func (s *Session) Close() {
	s.monitor.Stop()
}

// PendingAppointments implements schedule.Target
func (s *Session) PendingAppointments() []models.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Pending()
}

// ApplyCancellations implements schedule.Target. The whole batch is
// applied before a single replan over the remaining stops.
func (s *Session) ApplyCancellations(ctx context.Context, events []models.CancellationEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if err := s.book.Cancel(e.StopID); err != nil {
			log.Printf("[WARN] Cancellation for unknown appointment: id=%s stop=%s err=%v", s.ID, e.StopID, err)
			continue
		}
		if i := s.indexOf(e.StopID); i >= 0 {
			s.stops = append(s.stops[:i], s.stops[i+1:]...)
		}
		e.SessionID = s.ID
		s.cancellations = append(s.cancellations, e)
		if h := s.engine.opts.History; h != nil {
			if err := h.RecordCancellation(ctx, e); err != nil {
				log.Printf("[ERROR] Failed to record cancellation: id=%s stop=%s err=%v", s.ID, e.StopID, err)
			}
		}
	}

	if len(s.stops) == 0 {
		s.itinerary = s.emptyItineraryLocked()
		log.Printf("[SESSION] Replanned with no stops remaining: id=%s", s.ID)
		return 0, nil
	}

	if err := s.optimizeLocked(ctx, s.strategy); err != nil {
		log.Printf("[WARN] Re-optimization failed, keeping current order: id=%s err=%v", s.ID, err)
	}
	it, err := s.generateLocked(ctx)
	if err != nil {
		return len(s.stops), err
	}
	s.scheduleArrivalsLocked(it)
	log.Printf("[SESSION] Replanned after cancellations: id=%s cancelled=%d remaining=%d", s.ID, len(events), len(s.stops))
	return len(s.stops), nil
}

func (s *Session) optimizeLocked(ctx context.Context, strategy string) error {
	if s.start == nil {
		return ErrNoStartPoint
	}
	if len(s.stops) == 0 {
		return ErrNoStops
	}

	opt, err := s.engine.optimizer(strategy, s.rng)
	if err != nil {
		return err
	}

	nodes := make([]int64, 0, len(s.stops)+1)
	startNode, _, err := s.engine.snap(*s.start, "")
	if err != nil {
		return err
	}
	nodes = append(nodes, startNode)
	for _, stop := range s.stops {
		node, _, err := s.engine.snap(stop.GetCoords(), stop.ID)
		if err != nil {
			return err
		}
		nodes = append(nodes, node)
	}

	matrix, err := s.engine.calc.Matrix(ctx, nodes)
	if err != nil {
		return fmt.Errorf("building distance matrix: %w", err)
	}
	order, err := opt.Order(ctx, matrix)
	if err != nil {
		return fmt.Errorf("optimizing visit order: %w", err)
	}

	reordered := make([]models.Stop, 0, len(s.stops))
	for _, idx := range order {
		if idx == 0 {
			continue
		}
		reordered = append(reordered, s.stops[idx-1])
	}
	s.stops = reordered
	s.strategy = opt.Name()
	log.Printf("[SESSION] Stops optimized: id=%s strategy=%s stops=%d length=%.0f",
		s.ID, opt.Name(), len(s.stops), routing.TourLength(matrix, order))
	return nil
}

func (s *Session) generateLocked(ctx context.Context) (*models.Itinerary, error) {
	if s.start == nil {
		return nil, ErrNoStartPoint
	}
	if len(s.stops) == 0 {
		return nil, ErrNoStops
	}

	stops := append([]models.Stop(nil), s.stops...)
	plan, err := s.engine.planner.Plan(ctx, *s.start, stops)
	if err != nil {
		return nil, err
	}

	it := &models.Itinerary{
		Start:                *s.start,
		Stops:                stops,
		Legs:                 plan.Legs,
		Arrivals:             plan.Arrivals,
		TotalDistanceMeters:  plan.TotalDistanceMeters,
		TotalDurationMinutes: plan.TotalDurationMinutes,
		Strategy:             s.strategy,
		Warnings:             s.warningsLocked(stops),
		GeneratedAt:          s.engine.opts.Now(),
	}
	s.itinerary = it

	if h := s.engine.opts.History; h != nil {
		if err := h.SaveItinerary(ctx, s.ID, it); err != nil {
			log.Printf("[ERROR] Failed to save itinerary: id=%s err=%v", s.ID, err)
		}
	}
	return it, nil
}

func (s *Session) warningsLocked(stops []models.Stop) []string {
	warnings := []string{}
	if s.engine.graph.NodeCount() == 0 {
		return append(warnings, "street network unavailable, walking legs only")
	}
	for _, stop := range stops {
		if _, dist, err := s.engine.graph.NearestNode(stop.GetCoords()); err == nil && dist > SnapWarningMeters {
			warnings = append(warnings, fmt.Sprintf("stop %s is %.0f m from the street network", stop.ID, dist))
		}
	}
	return warnings
}

func (s *Session) emptyItineraryLocked() *models.Itinerary {
	it := &models.Itinerary{
		Stops:       []models.Stop{},
		Legs:        []models.RouteLeg{},
		Arrivals:    []models.StopArrival{},
		Strategy:    s.strategy,
		Warnings:    []string{},
		GeneratedAt: s.engine.opts.Now(),
	}
	if s.start != nil {
		it.Start = *s.start
	}
	return it
}

// ensureMonitoringLocked books appointments for every stop and starts the
// monitor on the first optimize or route request
func (s *Session) ensureMonitoringLocked(ctx context.Context) {
	if s.engine.opts.DisableMonitoring {
		return
	}
	if !s.monitoring {
		s.monitoring = true
		now := s.engine.opts.Now()
		for _, stop := range s.stops {
			s.book.Schedule(stop, now, s.engine.CancellationProbability())
		}
	}
	s.book.ActivateAll()
	if !s.monitor.Running() && len(s.stops) > 0 {
		s.monitor.Start(context.WithoutCancel(ctx))
	}
}

// scheduleArrivalsLocked moves appointment times to the planned arrivals
func (s *Session) scheduleArrivalsLocked(it *models.Itinerary) {
	base := it.GeneratedAt
	for _, arrival := range it.Arrivals {
		if a, ok := s.book.Get(arrival.Stop.ID); ok && !a.Cancelled() {
			a.ScheduledAt = base.Add(time.Duration(arrival.ArrivalMinutes * float64(time.Minute)))
		}
	}
}

func (s *Session) indexOf(stopID string) int {
	for i, stop := range s.stops {
		if stop.ID == stopID {
			return i
		}
	}
	return -1
}
