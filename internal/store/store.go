// Package store defines the event store the booking core runs against: an
// opaque external calendar-like service holding two collections of events.
// The core never owns persisted state; this interface is the only thing it
// assumes about the backing technology.
package store

import (
	"context"
	"time"
)

// Collection is a logical event bucket. Reservations and closures live in
// separate collections so listings never need keyword filtering.
type Collection string

const (
	Reservations Collection = "reservations"
	Closures     Collection = "closures"
)

// Event is the store's record shape. All-day events carry midnight-to-midnight
// Start/End in the business timezone with AllDay set.
type Event struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
	// ColorID is the store's display category; reservation status and the
	// closure marker are mirrored into it for the calendar UI.
	ColorID string
}

// EventStore is the system of record for reservations and closures.
// Implementations must return models.ErrStoreUnavailable-wrapped errors on
// transport failures and models.ErrNotFound for missing ids; they must never
// turn an ambiguous failure into an empty list.
type EventStore interface {
	// ListEvents returns events in [from, to) ordered by start time.
	ListEvents(ctx context.Context, col Collection, from, to time.Time) ([]Event, error)
	// CreateEvent persists the event and returns it with the assigned id.
	CreateEvent(ctx context.Context, col Collection, ev Event) (Event, error)
	// GetEvent fetches one event by id.
	GetEvent(ctx context.Context, col Collection, id string) (Event, error)
	// UpdateEvent replaces the stored event with the given id.
	UpdateEvent(ctx context.Context, col Collection, ev Event) (Event, error)
	// DeleteEvent removes one event by id.
	DeleteEvent(ctx context.Context, col Collection, id string) error
}
