package tour

import (
	"context"
	"log"
	"math"
	"time"

	"property-tour-router/internal/distance"
	"property-tour-router/internal/graph"
	"property-tour-router/internal/models"
	"property-tour-router/internal/routing"
	"property-tour-router/internal/schedule"
	"property-tour-router/internal/transit"
)

// SnapWarningMeters is the snap distance above which an itinerary carries a warning
const SnapWarningMeters = 500.0

// History receives generated itineraries and cancellation events
type History interface {
	SaveItinerary(ctx context.Context, sessionID string, it *models.Itinerary) error
	RecordCancellation(ctx context.Context, event models.CancellationEvent) error
}

// Options configures an Engine. Zero fields take defaults.
type Options struct {
	Strategy string
	ACO      routing.ACOParams
	// CancellationProbability is the per-tick chance an appointment is
	// cancelled. Nil takes the default; zero means appointments never cancel.
	CancellationProbability *float64
	MonitorInterval         time.Duration
	DisableMonitoring       bool
	// Seed makes optimizer and cancellation draws reproducible; zero uses the clock
	Seed      int64
	NewTicker schedule.TickerFactory
	Now       func() time.Time
	History   History
}

// Engine holds the read-only street network and planner shared by sessions
type Engine struct {
	graph   *graph.Graph
	calc    distance.Calculator
	planner *transit.Planner
	opts    Options
}

// NewEngine wires a graph, a path calculator and a leg planner together
func NewEngine(g *graph.Graph, calc distance.Calculator, planner *transit.Planner, opts Options) *Engine {
	if opts.Strategy == "" {
		opts.Strategy = routing.StrategyTwoOpt
	}
	p := schedule.DefaultCancellationProbability
	if opts.CancellationProbability != nil {
		p = math.Max(0, math.Min(1, *opts.CancellationProbability))
	}
	opts.CancellationProbability = &p
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = schedule.DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log.Printf("[ENGINE] Engine ready: nodes=%d edges=%d strategy=%s monitoring=%t",
		g.NodeCount(), g.EdgeCount(), opts.Strategy, !opts.DisableMonitoring)
	return &Engine{graph: g, calc: calc, planner: planner, opts: opts}
}

// Graph returns the shared street network
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Options returns the effective engine options
func (e *Engine) Options() Options {
	return e.opts
}

// CancellationProbability returns the effective per-tick cancellation chance
func (e *Engine) CancellationProbability() float64 {
	return *e.opts.CancellationProbability
}

// Probability returns a pointer to p for Options.CancellationProbability
func Probability(p float64) *float64 {
	return &p
}

// NewSession creates a session with its own stops, appointments and monitor
func (e *Engine) NewSession(id string) *Session {
	return newSession(id, e)
}

func (e *Engine) optimizer(strategy string, rng routing.RNG) (routing.Optimizer, error) {
	if strategy == "" {
		strategy = e.opts.Strategy
	}
	return routing.ByName(strategy, e.opts.ACO, rng)
}

// snap places c on the graph. An empty graph cannot route.
func (e *Engine) snap(c models.Coordinates, stopID string) (int64, float64, error) {
	node, dist, err := e.graph.NearestNode(c)
	if err != nil {
		return 0, 0, &ErrCannotRoute{Reason: "no street network node near point", StopID: stopID, Err: err}
	}
	return node, dist, nil
}
