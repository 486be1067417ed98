package tour

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStartPoint is returned when routing is requested before a start is set
	ErrNoStartPoint = errors.New("define a start point first")
	// ErrNoStops is returned when routing is requested with an empty itinerary
	ErrNoStops = errors.New("select at least one property first")
	// ErrUnknownStop is returned for stop ids not in the itinerary
	ErrUnknownStop = errors.New("stop is not in the itinerary")
	// ErrDuplicateStop is returned when a stop is added twice
	ErrDuplicateStop = errors.New("stop is already in the itinerary")
	// ErrInvalidCoordinates is returned for latitudes or longitudes out of range
	ErrInvalidCoordinates = errors.New("coordinates out of range")
)

// ErrCannotRoute is returned when a point cannot be placed on the street
// network. StopID is empty when the start point failed.
type ErrCannotRoute struct {
	Reason string
	StopID string
	Err    error
}

func (e *ErrCannotRoute) Error() string {
	if e.StopID != "" {
		return fmt.Sprintf("cannot route: %s (stop %s)", e.Reason, e.StopID)
	}
	return fmt.Sprintf("cannot route: %s", e.Reason)
}

func (e *ErrCannotRoute) Unwrap() error {
	return e.Err
}
