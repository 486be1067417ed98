package server

import (
	"errors"
	"fmt"
	"log"
	"os"

	"property-tour-router/internal/config"
	"property-tour-router/internal/distance"
	"property-tour-router/internal/graph"
	"property-tour-router/internal/listings"
	"property-tour-router/internal/risk"
	"property-tour-router/internal/sqlite"
	"property-tour-router/internal/tour"
	"property-tour-router/internal/transit"
)

// Environment is everything loaded from the data directory plus the
// engine built over it
type Environment struct {
	Config    *config.Config
	Graph     *graph.Graph
	Incidents []risk.Incident
	Dataset   *listings.Dataset
	Engine    *tour.Engine
	Sessions  *tour.SessionStore
	Store     *sqlite.Store // nil when history is disabled
}

// Bootstrap loads the street network, risk data and catalogs named by cfg.
// With withHistory the SQLite store is opened and receives itineraries and
// cancellations.
func Bootstrap(cfg *config.Config, withHistory bool) (*Environment, error) {
	env := &Environment{Config: cfg}

	log.Printf("[BOOT] Loading street network: dir=%s", cfg.Data.Dir)
	g, err := loadGraph(cfg)
	if err != nil {
		return nil, err
	}
	env.Graph = g

	log.Printf("[BOOT] Loading incidents...")
	incidents, err := risk.LoadIncidents(cfg.DataPath(cfg.Data.IncidentsFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load incidents: %w", err)
	}
	env.Incidents = incidents

	rm, err := graph.LoadRiskMap(cfg.DataPath(cfg.Data.EdgeRiskFile), cfg.DataPath(cfg.Data.NodeRiskFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load risk map: %w", err)
	}
	if len(rm.Edges) == 0 && len(rm.Nodes) == 0 && len(incidents) > 0 {
		log.Printf("[BOOT] No precomputed risk, propagating incidents: incidents=%d", len(incidents))
		rm = risk.Propagate(g, incidents, cfg.Risk)
	}
	g.SetRisk(rm)
	g.SetCostModel(cfg.Routing.Cost)
	g.BuildIndex()

	log.Printf("[BOOT] Loading listings and points of interest...")
	dataset, err := listings.LoadDataset(cfg.Data.Dir, listings.DatasetOptions{
		UFRate: cfg.Data.UFRate,
		Comuna: cfg.Data.Comuna,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	env.Dataset = dataset

	opts := tour.Options{
		Strategy:                cfg.Routing.Strategy,
		ACO:                     cfg.Routing.ACO,
		CancellationProbability: tour.Probability(cfg.Monitor.CancellationProbability),
		MonitorInterval:         cfg.Monitor.Interval,
		DisableMonitoring:       cfg.Monitor.Disabled,
		Seed:                    cfg.Monitor.Seed,
	}

	if withHistory {
		dbPath, err := cfg.ResolveDatabasePath()
		if err != nil {
			return nil, err
		}
		store, err := sqlite.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		env.Store = store
		opts.History = store
	}

	calc := distance.NewGraphCalculator(g, cfg.Routing.CacheTTL)
	planner := transit.NewPlanner(g, calc, cfg.Transit, dataset.POIs)
	env.Engine = tour.NewEngine(g, calc, planner, opts)
	env.Sessions = tour.NewSessionStore(env.Engine)

	return env, nil
}

// Close stops every session monitor and closes the history store
func (e *Environment) Close() error {
	if e.Sessions != nil {
		e.Sessions.Close()
	}
	if e.Store != nil {
		return e.Store.Close()
	}
	return nil
}

func loadGraph(cfg *config.Config) (*graph.Graph, error) {
	nodesPath := cfg.DataPath(cfg.Data.NodesFile)
	edgesPath := cfg.DataPath(cfg.Data.EdgesFile)

	g, err := graph.LoadGeoJSON(nodesPath, edgesPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] Street network files missing, routing will walk only: nodes=%s edges=%s", nodesPath, edgesPath)
		return graph.NewGraph(), nil
	}
	if errors.Is(err, graph.ErrEmptyGraph) {
		log.Printf("[WARN] Street network has no nodes, routing will walk only: nodes=%s", nodesPath)
		return graph.NewGraph(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load street network: %w", err)
	}
	return g, nil
}
