// Package booking holds the write path for reservations. Every check the
// read path performs is re-done here at write time, because the calendar can
// change between rendering a grid and the customer pressing "book".
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"amaze/internal/availability"
	"amaze/internal/metrics"
	"amaze/internal/models"
	"amaze/internal/schedule"
	"amaze/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier is told about new reservations. Delivery is best effort.
type Notifier interface {
	NotifyReservation(ctx context.Context, res *models.Reservation)
}

// Request is a booking attempt from a customer.
type Request struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Note  string `json:"note,omitempty"`
}

// Writer creates and administers reservations.
type Writer struct {
	calendar *schedule.Weekly
	closures availability.ClosureSource
	engine   *availability.Engine
	store    store.EventStore
	capacity int
	notifier Notifier
	log      *zerolog.Logger
	now      func() time.Time
}

// NewWriter builds a writer sharing the engine's occupancy derivation.
func NewWriter(calendar *schedule.Weekly, closures availability.ClosureSource, engine *availability.Engine, st store.EventStore, capacity int, logger *zerolog.Logger) *Writer {
	if capacity <= 0 {
		capacity = models.Capacity
	}
	return &Writer{
		calendar: calendar,
		closures: closures,
		engine:   engine,
		store:    st,
		capacity: capacity,
		log:      logger,
		now:      func() time.Time { return time.Now().In(models.Taipei) },
	}
}

// UseNotifier attaches an optional notifier for new reservations.
func (w *Writer) UseNotifier(n Notifier) { w.notifier = n }

// Reserve validates a booking request against the calendar, the closures and
// current occupancy, then writes it. Unlike the read path it fails closed: if
// the closure registry cannot be consulted the booking is refused rather than
// accepted blind.
func (w *Writer) Reserve(ctx context.Context, req Request) (*models.Reservation, error) {
	res, err := w.validate(req)
	if err != nil {
		metrics.IncReservationRejected("validation")
		return nil, err
	}

	date, _ := models.ParseDate(res.Date)

	if w.calendar.IsClosed(date) {
		metrics.IncReservationRejected("closure")
		return nil, fmt.Errorf("%s is a weekly day off: %w", res.Date, models.ErrClosureConflict)
	}

	closure, err := w.closures.ClosureForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("closure check for %s: %w", res.Date, err)
	}
	if closure != nil && closure.Blocks(res.Time) {
		metrics.IncReservationRejected("closure")
		return nil, fmt.Errorf("%s %s is closed (%s): %w", res.Date, res.Time, closure.Label, models.ErrClosureConflict)
	}

	// Check-then-act against a store with no transactions: two concurrent
	// bookings can both pass this gate. Known limitation, bounded by the
	// per-slot capacity.
	occupancy, err := w.engine.OccupancyForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if occupancy[res.Time] >= w.capacity {
		metrics.IncReservationRejected("slot_full")
		return nil, fmt.Errorf("slot %s %s: %w", res.Date, res.Time, models.ErrSlotFull)
	}

	ev, err := store.ReservationEvent(res, w.calendar.SlotDuration())
	if err != nil {
		return nil, fmt.Errorf("reservation event: %w", errors.Join(models.ErrValidation, err))
	}
	created, err := w.store.CreateEvent(ctx, store.Reservations, ev)
	if err != nil {
		metrics.IncStoreError("create_reservation")
		return nil, fmt.Errorf("create reservation: %w", errors.Join(models.ErrWriteFailed, err))
	}
	res.EventID = created.ID

	metrics.IncReservationCreated()
	w.engine.InvalidateDate(ctx, res.Date)
	w.log.Info().
		Str("booking_id", res.ID).
		Str("date", res.Date).
		Str("time", res.Time).
		Str("phone", models.MaskPhone(res.Phone)).
		Msg("reservation created")

	if w.notifier != nil {
		w.notifier.NotifyReservation(ctx, res)
	}
	return res, nil
}

func (w *Writer) validate(req Request) (*models.Reservation, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", models.ErrValidation)
	}
	if phone == "" {
		return nil, fmt.Errorf("phone is required: %w", models.ErrValidation)
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if !models.ValidTimeOfDay(req.Time) {
		return nil, fmt.Errorf("time %q must be HH:MM: %w", req.Time, models.ErrValidation)
	}
	if !w.calendar.IsClosed(date) && !w.calendar.HasSlot(date, req.Time) {
		return nil, fmt.Errorf("time %s is not a bookable slot on %s: %w", req.Time, req.Date, models.ErrValidation)
	}

	today := w.now()
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, models.Taipei)
	if date.Before(midnight) {
		return nil, fmt.Errorf("date %s is in the past: %w", req.Date, models.ErrValidation)
	}

	return &models.Reservation{
		ID:        uuid.NewString(),
		Name:      name,
		Phone:     phone,
		Date:      req.Date,
		Time:      req.Time,
		Note:      strings.TrimSpace(req.Note),
		Status:    models.StatusUnconfirmed,
		CreatedAt: w.now(),
	}, nil
}

// ListReservations returns decoded reservations for a date, including
// cancelled ones. Events that carry no reservation payload are skipped; the
// occupancy path still counts them.
func (w *Writer) ListReservations(ctx context.Context, date time.Time) ([]*models.Reservation, error) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, models.Taipei)
	events, err := w.store.ListEvents(ctx, store.Reservations, from, from.AddDate(0, 0, 1))
	if err != nil {
		metrics.IncStoreError("list_reservations")
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	out := make([]*models.Reservation, 0, len(events))
	for _, ev := range events {
		res, err := store.DecodeReservation(ev)
		if err != nil {
			w.log.Debug().Str("event_id", ev.ID).Msg("skipping event without reservation payload")
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// GetReservation fetches a single reservation by its backing event id.
func (w *Writer) GetReservation(ctx context.Context, eventID string) (*models.Reservation, error) {
	event, err := w.store.GetEvent(ctx, store.Reservations, eventID)
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", eventID, err)
	}
	res, err := store.DecodeReservation(event)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", eventID, errors.Join(models.ErrNotFound, err))
	}
	return res, nil
}

// UpdateStatus moves a reservation between states. A cancelled reservation
// keeps its event with the cancelled colour marker and stops counting toward
// slot occupancy.
func (w *Writer) UpdateStatus(ctx context.Context, eventID string, status models.Status) (*models.Reservation, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("status %q: %w", status, models.ErrValidation)
	}
	res, err := w.GetReservation(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if res.Status == status {
		return res, nil
	}
	res.Status = status
	res.EventID = eventID

	updated, err := store.ReservationEvent(res, w.calendar.SlotDuration())
	if err != nil {
		return nil, fmt.Errorf("reservation event: %w", errors.Join(models.ErrValidation, err))
	}
	if _, err := w.store.UpdateEvent(ctx, store.Reservations, updated); err != nil {
		metrics.IncStoreError("update_reservation")
		return nil, fmt.Errorf("update reservation %s: %w", eventID, errors.Join(models.ErrWriteFailed, err))
	}

	w.engine.InvalidateDate(ctx, res.Date)
	w.log.Info().
		Str("booking_id", res.ID).
		Str("status", string(status)).
		Msg("reservation status updated")
	return res, nil
}

// DeleteReservation removes the backing event entirely. Cancellation should
// normally go through UpdateStatus; deletion is for cleaning up mistakes.
func (w *Writer) DeleteReservation(ctx context.Context, eventID string) error {
	res, err := w.GetReservation(ctx, eventID)
	if err != nil {
		return err
	}
	if err := w.store.DeleteEvent(ctx, store.Reservations, eventID); err != nil {
		metrics.IncStoreError("delete_reservation")
		return fmt.Errorf("delete reservation %s: %w", eventID, errors.Join(models.ErrWriteFailed, err))
	}
	w.engine.InvalidateDate(ctx, res.Date)
	w.log.Info().Str("booking_id", res.ID).Msg("reservation deleted")
	return nil
}
