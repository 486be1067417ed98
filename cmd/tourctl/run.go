package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"property-tour-router/internal/config"
	"property-tour-router/internal/graph"
	"property-tour-router/internal/models"
	"property-tour-router/internal/risk"
	"property-tour-router/internal/server"
	"property-tour-router/internal/tour"
)

func loadConfig(flags *globalFlags) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		var err error
		path, err = config.GetConfigFilePath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if flags.dataDir != "" {
		cfg.Data.Dir = flags.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseLatLng(s string) (models.Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return models.Coordinates{}, fmt.Errorf("expected lat,lng, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	return models.Coordinates{Lat: lat, Lng: lng}, nil
}

// buildSession loads the environment without monitoring and seeds a
// session with the requested start and stops
func buildSession(flags *globalFlags, tf tourFlags) (*server.Environment, *tour.Session, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	cfg.Monitor.Disabled = true
	if tf.strategy != "" {
		cfg.Routing.Strategy = tf.strategy
	}

	start, err := parseLatLng(tf.start)
	if err != nil {
		return nil, nil, err
	}

	env, err := server.Bootstrap(cfg, false)
	if err != nil {
		return nil, nil, err
	}

	session := env.Sessions.Create()
	if err := session.SetStart(start); err != nil {
		env.Close()
		return nil, nil, err
	}
	for _, id := range tf.stops {
		p, ok := env.Dataset.Property(id)
		if !ok {
			env.Close()
			return nil, nil, fmt.Errorf("unknown property %s", id)
		}
		if err := session.AddStop(models.StopFromProperty(&p)); err != nil {
			env.Close()
			return nil, nil, err
		}
	}
	return env, session, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runRoute(ctx context.Context, out io.Writer, flags *globalFlags, tf tourFlags, optimize bool) error {
	env, session, err := buildSession(flags, tf)
	if err != nil {
		return err
	}
	defer env.Close()

	if optimize {
		if _, err := session.Optimize(ctx, tf.strategy); err != nil {
			return err
		}
	}
	it, err := session.GenerateRoute(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, it)
}

func runOptimize(ctx context.Context, out io.Writer, flags *globalFlags, tf tourFlags) error {
	env, session, err := buildSession(flags, tf)
	if err != nil {
		return err
	}
	defer env.Close()

	stops, err := session.Optimize(ctx, tf.strategy)
	if err != nil {
		return err
	}
	for i, s := range stops {
		fmt.Fprintf(out, "%d\t%s\t%s\n", i+1, s.ID, s.Name)
	}
	return nil
}

func runSimulate(ctx context.Context, out io.Writer, flags *globalFlags, seed int64, save bool, output string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	cfg.Monitor.Disabled = true

	env, err := server.Bootstrap(cfg, save)
	if err != nil {
		return err
	}
	defer env.Close()

	result := risk.Simulate(env.Graph.Risk(), env.Incidents, seed)
	if save {
		rec, err := env.Store.Simulations().Save(ctx, result)
		if err != nil {
			return err
		}
		log.Printf("[RISK] Simulation stored: id=%d seed=%d", rec.ID, result.Seed)
	}

	if output == "" {
		return writeJSON(out, result)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	if err := writeJSON(f, result); err != nil {
		return err
	}
	fmt.Fprintf(out, "seed=%d edges=%d nodes=%d incidents=%d written to %s\n",
		result.Seed, result.Statistics.EdgesActivated, result.Statistics.NodesActivated,
		result.Statistics.IncidentsActivated, output)
	return nil
}

type edgeProbability struct {
	U           int64   `json:"u"`
	V           int64   `json:"v"`
	Probability float64 `json:"probability"`
}

type nodeProbability struct {
	ID          int64   `json:"id"`
	Probability float64 `json:"probability"`
}

func runPropagate(out io.Writer, flags *globalFlags, outDir string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = cfg.Data.Dir
	}

	g, err := graph.LoadGeoJSON(cfg.DataPath(cfg.Data.NodesFile), cfg.DataPath(cfg.Data.EdgesFile))
	if err != nil {
		return err
	}
	incidents, err := risk.LoadIncidents(cfg.DataPath(cfg.Data.IncidentsFile))
	if err != nil {
		return err
	}

	rm := risk.Propagate(g, incidents, cfg.Risk)

	edges := make([]edgeProbability, 0, len(rm.Edges))
	for k, p := range rm.Edges {
		edges = append(edges, edgeProbability{U: k.A, V: k.B, Probability: p})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].U != edges[j].U {
			return edges[i].U < edges[j].U
		}
		return edges[i].V < edges[j].V
	})

	nodes := make([]nodeProbability, 0, len(rm.Nodes))
	for id, p := range rm.Nodes {
		nodes = append(nodes, nodeProbability{ID: id, Probability: p})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	edgePath := filepath.Join(outDir, filepath.Base(cfg.Data.EdgeRiskFile))
	nodePath := filepath.Join(outDir, filepath.Base(cfg.Data.NodeRiskFile))
	if err := writeFile(edgePath, edges); err != nil {
		return err
	}
	if err := writeFile(nodePath, nodes); err != nil {
		return err
	}

	fmt.Fprintf(out, "incidents=%d edges=%d nodes=%d\n%s\n%s\n", len(incidents), len(edges), len(nodes), edgePath, nodePath)
	return nil
}

func writeFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return writeJSON(f, v)
}

func runServe(flags *globalFlags, addr string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	env, err := server.Bootstrap(cfg, true)
	if err != nil {
		return err
	}

	srv := server.New(env)
	if _, err := srv.Start(); err != nil {
		env.Close()
		return err
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	log.Printf("Received signal %v, starting graceful shutdown", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
