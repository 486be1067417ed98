package database

import (
	"context"
	"time"

	"property-tour-router/internal/models"
	"property-tour-router/internal/risk"
)

// HistoryStore is the interface for tour history persistence
type HistoryStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	Itineraries() ItineraryRepository
	Cancellations() CancellationRepository
	Simulations() SimulationRepository
}

// ItineraryRecord is a stored route generation
type ItineraryRecord struct {
	ID                   int64             `json:"id"`
	SessionID            string            `json:"session_id"`
	Strategy             string            `json:"strategy"`
	StopCount            int               `json:"stop_count"`
	TotalDistanceMeters  float64           `json:"total_distance_meters"`
	TotalDurationMinutes float64           `json:"total_duration_minutes"`
	Itinerary            *models.Itinerary `json:"itinerary"`
	CreatedAt            time.Time         `json:"created_at"`
}

// SimulationRecord is a stored threat simulation
type SimulationRecord struct {
	ID        int64                  `json:"id"`
	Seed      int64                  `json:"seed"`
	Result    *risk.SimulationResult `json:"result"`
	CreatedAt time.Time              `json:"created_at"`
}

// ItineraryRepository handles itinerary history
type ItineraryRepository interface {
	Save(ctx context.Context, sessionID string, it *models.Itinerary) (*ItineraryRecord, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]ItineraryRecord, error)
	Latest(ctx context.Context, sessionID string) (*ItineraryRecord, error)
}

// CancellationRepository handles the cancellation log
type CancellationRepository interface {
	Record(ctx context.Context, event models.CancellationEvent) error
	ListBySession(ctx context.Context, sessionID string) ([]models.CancellationEvent, error)
}

// SimulationRepository handles threat simulation snapshots
type SimulationRepository interface {
	Save(ctx context.Context, result *risk.SimulationResult) (*SimulationRecord, error)
	GetByID(ctx context.Context, id int64) (*SimulationRecord, error)
	List(ctx context.Context, limit int) ([]SimulationRecord, error)
}
