package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"property-tour-router/internal/database"
	"property-tour-router/internal/models"
	"property-tour-router/internal/risk"
)

type itineraryRepository struct {
	store *Store
}

func (r *itineraryRepository) Save(ctx context.Context, sessionID string, it *models.Itinerary) (*database.ItineraryRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	payload, err := json.Marshal(it)
	if err != nil {
		return nil, fmt.Errorf("failed to encode itinerary: %w", err)
	}

	rec := &database.ItineraryRecord{
		SessionID:            sessionID,
		Strategy:             it.Strategy,
		StopCount:            len(it.Stops),
		TotalDistanceMeters:  it.TotalDistanceMeters,
		TotalDurationMinutes: it.TotalDurationMinutes,
		Itinerary:            it,
		CreatedAt:            time.Now().UTC(),
	}

	query := `INSERT INTO itineraries
	          (session_id, strategy, stop_count, total_distance_meters, total_duration_minutes, payload, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.store.db.ExecContext(ctx, query,
		rec.SessionID, rec.Strategy, rec.StopCount,
		rec.TotalDistanceMeters, rec.TotalDurationMinutes, string(payload), rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save itinerary: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get itinerary id: %w", err)
	}
	rec.ID = id

	return rec, nil
}

func (r *itineraryRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]database.ItineraryRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}

	query := `SELECT id, session_id, strategy, stop_count, total_distance_meters, total_duration_minutes, payload, created_at
	          FROM itineraries
	          WHERE session_id = ?
	          ORDER BY id DESC
	          LIMIT ?`

	rows, err := r.store.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query itineraries: %w", err)
	}
	defer rows.Close()

	records := []database.ItineraryRecord{}
	for rows.Next() {
		rec, err := scanItinerary(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating itineraries: %w", err)
	}

	return records, nil
}

func (r *itineraryRepository) Latest(ctx context.Context, sessionID string) (*database.ItineraryRecord, error) {
	records, err := r.ListBySession(ctx, sessionID, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, database.ErrNotFound
	}
	return &records[0], nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItinerary(row rowScanner) (*database.ItineraryRecord, error) {
	var rec database.ItineraryRecord
	var payload string
	if err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.Strategy, &rec.StopCount,
		&rec.TotalDistanceMeters, &rec.TotalDurationMinutes, &payload, &rec.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan itinerary: %w", err)
	}

	rec.Itinerary = &models.Itinerary{}
	if err := json.Unmarshal([]byte(payload), rec.Itinerary); err != nil {
		return nil, fmt.Errorf("failed to decode itinerary %d: %w", rec.ID, err)
	}
	return &rec, nil
}

type cancellationRepository struct {
	store *Store
}

func (r *cancellationRepository) Record(ctx context.Context, event models.CancellationEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	query := `INSERT INTO cancellations (session_id, stop_id, stop_name, draw, probability, cancelled_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.store.db.ExecContext(ctx, query,
		event.SessionID, event.StopID, event.StopName, event.Draw, event.Probability, event.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record cancellation: %w", err)
	}
	return nil
}

func (r *cancellationRepository) ListBySession(ctx context.Context, sessionID string) ([]models.CancellationEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT session_id, stop_id, stop_name, draw, probability, cancelled_at
	          FROM cancellations
	          WHERE session_id = ?
	          ORDER BY id`

	rows, err := r.store.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cancellations: %w", err)
	}
	defer rows.Close()

	events := []models.CancellationEvent{}
	for rows.Next() {
		var e models.CancellationEvent
		if err := rows.Scan(&e.SessionID, &e.StopID, &e.StopName, &e.Draw, &e.Probability, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan cancellation: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cancellations: %w", err)
	}

	return events, nil
}

type simulationRepository struct {
	store *Store
}

func (r *simulationRepository) Save(ctx context.Context, result *risk.SimulationResult) (*database.SimulationRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode simulation: %w", err)
	}

	rec := &database.SimulationRecord{
		Seed:      result.Seed,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO simulations
	          (seed, edges_activated, nodes_activated, incidents_activated, payload, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	res, err := r.store.db.ExecContext(ctx, query,
		result.Seed, result.Statistics.EdgesActivated, result.Statistics.NodesActivated,
		result.Statistics.IncidentsActivated, string(payload), rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save simulation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get simulation id: %w", err)
	}
	rec.ID = id

	return rec, nil
}

func (r *simulationRepository) GetByID(ctx context.Context, id int64) (*database.SimulationRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT id, seed, payload, created_at FROM simulations WHERE id = ?`
	rec, err := scanSimulation(r.store.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	return rec, err
}

func (r *simulationRepository) List(ctx context.Context, limit int) ([]database.SimulationRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}

	query := `SELECT id, seed, payload, created_at FROM simulations ORDER BY id DESC LIMIT ?`
	rows, err := r.store.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query simulations: %w", err)
	}
	defer rows.Close()

	records := []database.SimulationRecord{}
	for rows.Next() {
		rec, err := scanSimulation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating simulations: %w", err)
	}

	return records, nil
}

func scanSimulation(row rowScanner) (*database.SimulationRecord, error) {
	var rec database.SimulationRecord
	var payload string
	if err := row.Scan(&rec.ID, &rec.Seed, &payload, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan simulation: %w", err)
	}

	rec.Result = &risk.SimulationResult{}
	if err := json.Unmarshal([]byte(payload), rec.Result); err != nil {
		return nil, fmt.Errorf("failed to decode simulation %d: %w", rec.ID, err)
	}
	return &rec, nil
}
