package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"property-tour-router/internal/database"
	"property-tour-router/internal/models"

	_ "modernc.org/sqlite"
)

const schemaVersion = 2

// Store is a SQLite-based tour history implementing database.HistoryStore
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex

	itineraryRepo    database.ItineraryRepository
	cancellationRepo database.CancellationRepository
	simulationRepo   database.SimulationRepository
}

// New creates a new SQLite store at the specified path
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	log.Printf("[DB] Opening SQLite database: path=%s", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	store.itineraryRepo = &itineraryRepository{store: store}
	store.cancellationRepo = &cancellationRepository{store: store}
	store.simulationRepo = &simulationRepository{store: store}

	return store, nil
}

// GetDBPath returns the current database file path
func (s *Store) GetDBPath() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist, create everything
		return s.createSchema()
	}

	if version < schemaVersion {
		if err := s.runMigrations(version); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	INSERT INTO schema_version (version) VALUES (2);

	-- One row per generated itinerary, full payload as JSON
	CREATE TABLE IF NOT EXISTS itineraries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		strategy TEXT NOT NULL DEFAULT '',
		stop_count INTEGER NOT NULL DEFAULT 0,
		total_distance_meters REAL NOT NULL DEFAULT 0,
		total_duration_minutes REAL NOT NULL DEFAULT 0,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS cancellations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		stop_id TEXT NOT NULL,
		stop_name TEXT NOT NULL,
		draw REAL NOT NULL,
		probability REAL NOT NULL,
		cancelled_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS simulations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed INTEGER NOT NULL,
		edges_activated INTEGER NOT NULL DEFAULT 0,
		nodes_activated INTEGER NOT NULL DEFAULT 0,
		incidents_activated INTEGER NOT NULL DEFAULT 0,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_itineraries_session ON itineraries(session_id, id DESC);
	CREATE INDEX IF NOT EXISTS idx_cancellations_session ON cancellations(session_id, id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Printf("[DB] SQLite schema initialized: version=%d", schemaVersion)
	return nil
}

func (s *Store) runMigrations(fromVersion int) error {
	if fromVersion < 2 {
		migration := `
		CREATE TABLE IF NOT EXISTS simulations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			seed INTEGER NOT NULL,
			edges_activated INTEGER NOT NULL DEFAULT 0,
			nodes_activated INTEGER NOT NULL DEFAULT 0,
			incidents_activated INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("failed to migrate to version 2: %w", err)
		}
		log.Printf("[DB] Migrated schema: from=%d to=2", fromVersion)
	}

	_, err := s.db.Exec("UPDATE schema_version SET version = ?", schemaVersion)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		// Checkpoint WAL before closing
		s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// HealthCheck verifies the database connection
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Repository accessors
func (s *Store) Itineraries() database.ItineraryRepository      { return s.itineraryRepo }
func (s *Store) Cancellations() database.CancellationRepository { return s.cancellationRepo }
func (s *Store) Simulations() database.SimulationRepository     { return s.simulationRepo }

// SaveItinerary records a generated itinerary for a session
func (s *Store) SaveItinerary(ctx context.Context, sessionID string, it *models.Itinerary) error {
	_, err := s.itineraryRepo.Save(ctx, sessionID, it)
	return err
}

// RecordCancellation appends a cancellation to the log
func (s *Store) RecordCancellation(ctx context.Context, event models.CancellationEvent) error {
	return s.cancellationRepo.Record(ctx, event)
}
