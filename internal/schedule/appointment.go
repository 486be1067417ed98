package schedule

import (
	"errors"
	"fmt"
	"time"

	"property-tour-router/internal/models"
)

var (
	// ErrInvalidTransition is returned when an appointment cannot move to the requested state
	ErrInvalidTransition = errors.New("invalid appointment transition")
	// ErrNoAppointment is returned for stops without an appointment
	ErrNoAppointment = errors.New("no appointment for stop")
)

// Activate moves a scheduled appointment to active. Active appointments are
// left as they are.
func Activate(a *models.Appointment) error {
	switch a.Status {
	case models.AppointmentScheduled:
		a.Status = models.AppointmentActive
		return nil
	case models.AppointmentActive:
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, models.AppointmentActive)
	}
}

// Cancel moves a scheduled or active appointment to the terminal cancelled state
func Cancel(a *models.Appointment) error {
	if a.Status == models.AppointmentCancelled {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, models.AppointmentCancelled)
	}
	a.Status = models.AppointmentCancelled
	return nil
}

// Book holds one appointment per stop in scheduling order. Cancelled
// appointments stay in the book as the record of the cancellation.
// A Book is not safe for concurrent use; its owner serializes access.
type Book struct {
	appointments map[string]*models.Appointment
	order        []string
}

// NewBook creates an empty appointment book
func NewBook() *Book {
	return &Book{appointments: make(map[string]*models.Appointment)}
}

// Schedule books a viewing for stop. A stop that already holds a live
// appointment keeps it; a cancelled one is replaced.
func (b *Book) Schedule(stop models.Stop, at time.Time, probability float64) *models.Appointment {
	if existing, ok := b.appointments[stop.ID]; ok {
		if !existing.Cancelled() {
			return existing
		}
		b.removeFromOrder(stop.ID)
	}

	a := &models.Appointment{
		StopID:                  stop.ID,
		StopName:                stop.Name,
		ScheduledAt:             at,
		Status:                  models.AppointmentScheduled,
		CancellationProbability: probability,
	}
	b.appointments[stop.ID] = a
	b.order = append(b.order, stop.ID)
	return a
}

// Get returns the appointment for a stop
func (b *Book) Get(stopID string) (*models.Appointment, bool) {
	a, ok := b.appointments[stopID]
	return a, ok
}

// Remove drops the appointment of a stop taken off the itinerary by the user
func (b *Book) Remove(stopID string) bool {
	if _, ok := b.appointments[stopID]; !ok {
		return false
	}
	delete(b.appointments, stopID)
	b.removeFromOrder(stopID)
	return true
}

// Cancel applies the cancelled transition to a stop's appointment
func (b *Book) Cancel(stopID string) error {
	a, ok := b.appointments[stopID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoAppointment, stopID)
	}
	return Cancel(a)
}

// ActivateAll moves every scheduled appointment to active and returns how many moved
func (b *Book) ActivateAll() int {
	moved := 0
	for _, id := range b.order {
		a := b.appointments[id]
		if a.Status == models.AppointmentScheduled {
			a.Status = models.AppointmentActive
			moved++
		}
	}
	return moved
}

// List returns copies of every appointment in scheduling order
func (b *Book) List() []models.Appointment {
	out := make([]models.Appointment, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.appointments[id])
	}
	return out
}

// Pending returns copies of the appointments that are not cancelled
func (b *Book) Pending() []models.Appointment {
	out := make([]models.Appointment, 0, len(b.order))
	for _, id := range b.order {
		if a := b.appointments[id]; !a.Cancelled() {
			out = append(out, *a)
		}
	}
	return out
}

// Len returns the number of appointments, cancelled ones included
func (b *Book) Len() int {
	return len(b.order)
}

func (b *Book) removeFromOrder(stopID string) {
	for i, id := range b.order {
		if id == stopID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			return
		}
	}
}
