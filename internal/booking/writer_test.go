package booking

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"amaze/internal/availability"
	"amaze/internal/closures"
	"amaze/internal/models"
	"amaze/internal/schedule"
	"amaze/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var testLogger = zerolog.New(os.Stderr).Level(zerolog.Disabled)

// The fake clock sits on 2026-01-02 so monday 2026-01-05 is in the future.
var testNow = time.Date(2026, 1, 2, 9, 0, 0, 0, models.Taipei)

func newWriter(st store.EventStore) *Writer {
	cal := schedule.Default()
	reg := closures.NewRegistry(st)
	engine := availability.NewEngine(cal, reg, st, 2, &testLogger)
	w := NewWriter(cal, reg, engine, st, 2, &testLogger)
	w.now = func() time.Time { return testNow }
	return w
}

func validRequest() Request {
	return Request{
		Name:  "Amy Chen",
		Phone: "0912345678",
		Date:  "2026-01-05", // Monday
		Time:  "14:00",
		Note:  "first visit",
	}
}

func TestReserveRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	w := newWriter(mem)

	res, err := w.Reserve(ctx, validRequest())
	assert.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.NotEmpty(t, res.EventID)
	assert.Equal(t, models.StatusUnconfirmed, res.Status)

	list, err := w.ListReservations(ctx, time.Date(2026, 1, 5, 0, 0, 0, 0, models.Taipei))
	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)
	assert.Equal(t, "Amy Chen", list[0].Name)
	assert.Equal(t, "14:00", list[0].Time)
	assert.Equal(t, "first visit", list[0].Note)
}

func TestReserveValidation(t *testing.T) {
	w := newWriter(store.NewMemory())

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing name", func(r *Request) { r.Name = " " }},
		{"missing phone", func(r *Request) { r.Phone = "" }},
		{"bad date", func(r *Request) { r.Date = "05-01-2026" }},
		{"bad time", func(r *Request) { r.Time = "2pm" }},
		{"off-grid time", func(r *Request) { r.Time = "14:15" }},
		{"excluded lunch slot", func(r *Request) { r.Time = "13:00" }},
		{"past date", func(r *Request) { r.Date = "2025-12-29" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := w.Reserve(context.Background(), req)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestReserveCapacity(t *testing.T) {
	ctx := context.Background()
	w := newWriter(store.NewMemory())

	first := validRequest()
	_, err := w.Reserve(ctx, first)
	assert.NoError(t, err)

	second := validRequest()
	second.Name = "Ben Liu"
	second.Phone = "0987654321"
	_, err = w.Reserve(ctx, second)
	assert.NoError(t, err)

	third := validRequest()
	third.Name = "Cindy Wang"
	third.Phone = "0955555555"
	_, err = w.Reserve(ctx, third)
	assert.ErrorIs(t, err, models.ErrSlotFull)

	// A different slot on the same day still works.
	third.Time = "15:00"
	_, err = w.Reserve(ctx, third)
	assert.NoError(t, err)
}

func TestReserveOnWeeklyDayOff(t *testing.T) {
	w := newWriter(store.NewMemory())

	req := validRequest()
	req.Date = "2026-01-11" // Sunday
	req.Time = "12:00"
	_, err := w.Reserve(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrClosureConflict)
}

func TestReserveOnClosedDate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mgr := closures.NewManager(mem, time.Hour, &testLogger)
	_, err := mgr.CreateClosure(ctx, "2026-01-05", "", "renovation", nil)
	assert.NoError(t, err)

	_, err = newWriter(mem).Reserve(ctx, validRequest())
	assert.ErrorIs(t, err, models.ErrClosureConflict)
}

func TestReserveOnRestrictedSlot(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mgr := closures.NewManager(mem, time.Hour, &testLogger)
	_, err := mgr.CreateClosure(ctx, "2026-01-05", "", "staff meeting", []string{"14:00"})
	assert.NoError(t, err)

	w := newWriter(mem)
	_, err = w.Reserve(ctx, validRequest())
	assert.ErrorIs(t, err, models.ErrClosureConflict)

	req := validRequest()
	req.Time = "15:00"
	_, err = w.Reserve(ctx, req)
	assert.NoError(t, err)
}

type failingStore struct {
	store.EventStore
}

func (failingStore) ListEvents(ctx context.Context, col store.Collection, from, to time.Time) ([]store.Event, error) {
	return nil, fmt.Errorf("calendar: %w", models.ErrStoreUnavailable)
}

func TestReserveFailsClosedOnStoreError(t *testing.T) {
	w := newWriter(failingStore{})
	_, err := w.Reserve(context.Background(), validRequest())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestCancelKeepsEventAndFreesSlot(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	w := newWriter(mem)

	res, err := w.Reserve(ctx, validRequest())
	assert.NoError(t, err)

	cancelled, err := w.UpdateStatus(ctx, res.EventID, models.StatusCancelled)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// The event survives with the cancelled colour marker.
	ev, err := mem.GetEvent(ctx, store.Reservations, res.EventID)
	assert.NoError(t, err)
	assert.Equal(t, store.ColorCancelled, ev.ColorID)

	// And the slot is bookable again up to capacity.
	for _, name := range []string{"Ben Liu", "Cindy Wang"} {
		req := validRequest()
		req.Name = name
		_, err = w.Reserve(ctx, req)
		assert.NoError(t, err)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	ctx := context.Background()
	w := newWriter(store.NewMemory())

	res, err := w.Reserve(ctx, validRequest())
	assert.NoError(t, err)

	_, err = w.UpdateStatus(ctx, res.EventID, models.Status("bogus"))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = w.UpdateStatus(ctx, "no-such-event", models.StatusConfirmed)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConfirmReservation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	w := newWriter(mem)

	res, err := w.Reserve(ctx, validRequest())
	assert.NoError(t, err)

	confirmed, err := w.UpdateStatus(ctx, res.EventID, models.StatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	ev, err := mem.GetEvent(ctx, store.Reservations, res.EventID)
	assert.NoError(t, err)
	assert.Equal(t, store.ColorConfirmed, ev.ColorID)

	// Confirmed still occupies the slot.
	list, err := w.ListReservations(ctx, time.Date(2026, 1, 5, 0, 0, 0, 0, models.Taipei))
	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, list[0].Active())
}

func TestDeleteReservation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	w := newWriter(mem)

	res, err := w.Reserve(ctx, validRequest())
	assert.NoError(t, err)

	assert.NoError(t, w.DeleteReservation(ctx, res.EventID))
	assert.ErrorIs(t, w.DeleteReservation(ctx, res.EventID), models.ErrNotFound)

	list, err := w.ListReservations(ctx, time.Date(2026, 1, 5, 0, 0, 0, 0, models.Taipei))
	assert.NoError(t, err)
	assert.Empty(t, list)
}
