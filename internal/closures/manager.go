package closures

import (
	"context"
	"fmt"
	"sort"
	"time"

	"amaze/internal/metrics"
	"amaze/internal/models"
	"amaze/internal/store"

	"github.com/rs/zerolog"
)

// MaxRangeDays caps how far a single closure request may fan out.
const MaxRangeDays = 90

// Manager creates and deletes closure entries on behalf of the admin surface.
type Manager struct {
	store        store.EventStore
	slotDuration time.Duration
	invalidate   func(ctx context.Context, dateStr string)
	log          *zerolog.Logger
}

// NewManager builds a closure manager. slotDuration sizes the timed events
// created for per-slot closures so they mirror real bookings on the calendar.
func NewManager(st store.EventStore, slotDuration time.Duration, logger *zerolog.Logger) *Manager {
	if slotDuration <= 0 {
		slotDuration = time.Hour
	}
	return &Manager{store: st, slotDuration: slotDuration, log: logger}
}

// UseCacheInvalidator registers a hook invoked once per date whose closure
// state changed, so cached availability for that date can be dropped.
func (m *Manager) UseCacheInvalidator(fn func(ctx context.Context, dateStr string)) {
	m.invalidate = fn
}

func (m *Manager) invalidateDate(ctx context.Context, dateStr string) {
	if m.invalidate != nil {
		m.invalidate(ctx, dateStr)
	}
}

// CreateClosure expands the inclusive [startDate, endDate] range into one
// event per date (full-day, when restrictedSlots is empty) or one event per
// date per restricted slot. Expansion is not transactional: on a mid-range
// store failure the entries already created are returned along with the
// error, and the admin sees exactly which units exist.
func (m *Manager) CreateClosure(ctx context.Context, startDate, endDate, label string, restrictedSlots []string) ([]models.ClosureEntry, error) {
	start, err := models.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("startDate: %w", err)
	}
	end := start
	if endDate != "" {
		if end, err = models.ParseDate(endDate); err != nil {
			return nil, fmt.Errorf("endDate: %w", err)
		}
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: endDate before startDate", models.ErrValidation)
	}
	if end.Sub(start) > MaxRangeDays*24*time.Hour {
		return nil, fmt.Errorf("%w: range exceeds %d days", models.ErrValidation, MaxRangeDays)
	}
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", models.ErrValidation)
	}
	slots := append([]string(nil), restrictedSlots...)
	for _, s := range slots {
		if !models.ValidTimeOfDay(s) {
			return nil, fmt.Errorf("%w: restricted slot %q must be HH:MM", models.ErrValidation, s)
		}
	}
	sort.Strings(slots)

	var created []models.ClosureEntry
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		entries, err := m.createForDay(ctx, day, label, slots)
		created = append(created, entries...)
		if len(entries) > 0 {
			m.invalidateDate(ctx, day.Format(models.DateFormat))
		}
		if err != nil {
			return created, err
		}
	}

	m.log.Info().
		Str("start", start.Format(models.DateFormat)).
		Str("end", end.Format(models.DateFormat)).
		Int("events", len(created)).
		Msg("closure created")
	metrics.AddClosureEvents(len(created))
	return created, nil
}

func (m *Manager) createForDay(ctx context.Context, day time.Time, label string, slots []string) ([]models.ClosureEntry, error) {
	dateStr := day.Format(models.DateFormat)

	if len(slots) == 0 {
		ev, err := m.store.CreateEvent(ctx, store.Closures, store.Event{
			Title:       label,
			Description: store.EncodeClosure(""),
			Start:       day,
			End:         day.AddDate(0, 0, 1),
			AllDay:      true,
			ColorID:     store.ColorClosure,
		})
		if err != nil {
			return nil, fmt.Errorf("closure for %s: %w", dateStr, err)
		}
		return []models.ClosureEntry{{EventID: ev.ID, Date: dateStr, Label: label, FullDay: true}}, nil
	}

	var created []models.ClosureEntry
	for _, slot := range slots {
		start, err := time.ParseInLocation(models.DateFormat+" "+models.TimeFormat, dateStr+" "+slot, models.Taipei)
		if err != nil {
			return created, fmt.Errorf("%w: slot %q", models.ErrValidation, slot)
		}
		ev, err := m.store.CreateEvent(ctx, store.Closures, store.Event{
			Title:       label,
			Description: store.EncodeClosure(slot),
			Start:       start,
			End:         start.Add(m.slotDuration),
			ColorID:     store.ColorClosure,
		})
		if err != nil {
			return created, fmt.Errorf("closure for %s %s: %w", dateStr, slot, err)
		}
		created = append(created, models.ClosureEntry{EventID: ev.ID, Date: dateStr, Label: label, Slot: slot})
	}
	return created, nil
}

// DeleteClosure removes exactly one expanded closure unit. Deleting a logical
// range closure means deleting each of its expanded events; there is no
// cascading delete.
func (m *Manager) DeleteClosure(ctx context.Context, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("%w: event id is required", models.ErrValidation)
	}
	ev, err := m.store.GetEvent(ctx, store.Closures, eventID)
	if err != nil {
		return fmt.Errorf("delete closure %s: %w", eventID, err)
	}
	if err := m.store.DeleteEvent(ctx, store.Closures, eventID); err != nil {
		return fmt.Errorf("delete closure %s: %w", eventID, err)
	}
	m.invalidateDate(ctx, ev.Start.In(models.Taipei).Format(models.DateFormat))
	m.log.Info().Str("event_id", eventID).Msg("closure deleted")
	return nil
}

// ListClosures returns the merged per-date closure view for the inclusive
// date range, ordered by date.
func (m *Manager) ListClosures(ctx context.Context, startDate, endDate string) ([]models.DayClosure, error) {
	start, err := models.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	end, err := models.ParseDate(endDate)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: to before from", models.ErrValidation)
	}

	events, err := m.store.ListEvents(ctx, store.Closures, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}

	byDate := make(map[string][]store.Event)
	for _, ev := range events {
		key := ev.Start.In(models.Taipei).Format(models.DateFormat)
		byDate[key] = append(byDate[key], ev)
	}

	var out []models.DayClosure
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dateStr := day.Format(models.DateFormat)
		if evs, ok := byDate[dateStr]; ok {
			out = append(out, *mergeDay(day, evs))
		}
	}
	return out, nil
}
