package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"property-tour-router/internal/graph"
	"property-tour-router/internal/risk"
	"property-tour-router/internal/routing"
	"property-tour-router/internal/transit"
)

const (
	AppDirName       = ".property-tour-router"
	SQLiteDBFileName = "tours.db"
	ConfigFileName   = "config.yaml"
)

// Config is the full application configuration
type Config struct {
	Server   ServerConfig           `yaml:"server"`
	Data     DataConfig             `yaml:"data"`
	Database DatabaseConfig         `yaml:"database"`
	Routing  RoutingConfig          `yaml:"routing"`
	Transit  transit.Params         `yaml:"transit"`
	Risk     risk.PropagationParams `yaml:"risk"`
	Monitor  MonitorConfig          `yaml:"monitor"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DataConfig locates the street network, risk maps and catalogs
type DataConfig struct {
	Dir           string  `yaml:"dir"`
	NodesFile     string  `yaml:"nodes_file"`
	EdgesFile     string  `yaml:"edges_file"`
	EdgeRiskFile  string  `yaml:"edge_risk_file"`
	NodeRiskFile  string  `yaml:"node_risk_file"`
	IncidentsFile string  `yaml:"incidents_file"`
	Comuna        string  `yaml:"comuna"`
	UFRate        float64 `yaml:"uf_rate"`
}

// DatabaseConfig holds the SQLite history location
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RoutingConfig holds the cost model and optimizer settings
type RoutingConfig struct {
	Strategy string            `yaml:"strategy"`
	Cost     graph.CostModel   `yaml:"cost"`
	ACO      routing.ACOParams `yaml:"aco"`
	CacheTTL time.Duration     `yaml:"cache_ttl"`
}

// MonitorConfig holds the cancellation simulation settings
type MonitorConfig struct {
	Disabled                bool          `yaml:"disabled"`
	Interval                time.Duration `yaml:"interval"`
	CancellationProbability float64       `yaml:"cancellation_probability"`
	Seed                    int64         `yaml:"seed"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"*"},
		},
		Data: DataConfig{
			Dir:           "web/data",
			NodesFile:     "nodes.geojson",
			EdgesFile:     "edges.geojson",
			EdgeRiskFile:  "edge_probabilities.json",
			NodeRiskFile:  "node_probabilities.json",
			IncidentsFile: "live_incidents.geojson",
		},
		Routing: RoutingConfig{
			Strategy: routing.StrategyTwoOpt,
			Cost:     graph.DefaultCostModel(),
			ACO:      routing.DefaultACOParams(),
		},
		Transit: transit.DefaultParams(),
		Risk:    risk.DefaultPropagationParams(),
		Monitor: MonitorConfig{
			Interval:                30 * time.Second,
			CancellationProbability: 0.20,
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[CONFIG] No config file, using defaults: path=%s", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	log.Printf("[CONFIG] Loaded config: path=%s", path)
	return cfg, nil
}

// Save writes cfg as YAML with an atomic rename
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from TOUR_* environment variables
func (c *Config) ApplyEnv() error {
	c.Server.Addr = getEnv("TOUR_ADDR", c.Server.Addr)
	c.Data.Dir = getEnv("TOUR_DATA_DIR", c.Data.Dir)
	c.Data.Comuna = getEnv("TOUR_COMUNA", c.Data.Comuna)
	c.Database.Path = getEnv("TOUR_DB_PATH", c.Database.Path)
	c.Routing.Strategy = getEnv("TOUR_STRATEGY", c.Routing.Strategy)

	if v := os.Getenv("TOUR_CANCELLATION_PROBABILITY"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TOUR_CANCELLATION_PROBABILITY: %w", err)
		}
		c.Monitor.CancellationProbability = p
	}
	if v := os.Getenv("TOUR_MONITOR_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOUR_MONITOR_INTERVAL: %w", err)
		}
		c.Monitor.Interval = d
	}
	if v := os.Getenv("TOUR_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TOUR_SEED: %w", err)
		}
		c.Monitor.Seed = seed
	}
	return nil
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if p := c.Monitor.CancellationProbability; p < 0 || p > 1 {
		return fmt.Errorf("monitor.cancellation_probability must be within [0, 1], got %v", p)
	}
	if c.Monitor.Interval < 0 {
		return fmt.Errorf("monitor.interval must not be negative, got %s", c.Monitor.Interval)
	}
	if c.Routing.Cost.EdgeFactor < 0 || c.Routing.Cost.NodePenalty < 0 {
		return errors.New("routing.cost factors must not be negative")
	}
	if _, err := routing.ByName(c.Routing.Strategy, c.Routing.ACO, nil); err != nil {
		return err
	}
	return nil
}

// DataPath resolves name inside the data directory. Absolute names are kept.
func (c *Config) DataPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// ResolveDatabasePath fills in the default database location when unset
func (c *Config) ResolveDatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	path, err := GetDefaultDBPath()
	if err != nil {
		return "", err
	}
	c.Database.Path = path
	return path, nil
}

// GetAppDir returns ~/.property-tour-router, creating it if needed
func GetAppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, AppDirName)
	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}
	return appDir, nil
}

// GetDefaultDBPath returns ~/.property-tour-router/tours.db
func GetDefaultDBPath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, SQLiteDBFileName), nil
}

// GetConfigFilePath returns TOUR_CONFIG or ~/.property-tour-router/config.yaml
func GetConfigFilePath() (string, error) {
	if path := os.Getenv("TOUR_CONFIG"); path != "" {
		return path, nil
	}
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, ConfigFileName), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
