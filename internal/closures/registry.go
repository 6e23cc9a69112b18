// Package closures resolves and manages holiday/closure entries. A logical
// closure (possibly spanning several days and restricted to specific slots)
// is stored denormalized: one event per date when fully closed, one event per
// date per slot otherwise. That trades write amplification for trivial
// per-date lookups here.
package closures

import (
	"context"
	"fmt"
	"sort"
	"time"

	"amaze/internal/models"
	"amaze/internal/store"
)

// Registry answers "is this date closed, and which slots are blocked?".
type Registry struct {
	store store.EventStore
}

// NewRegistry builds a registry over the closures collection.
func NewRegistry(st store.EventStore) *Registry {
	return &Registry{store: st}
}

// ClosureForDate merges every closure event covering the date into one
// logical view. A full-day event dominates; otherwise the restricted slots
// of all partial events are unioned. Returns nil when the date is open.
// Store failures propagate; the caller decides how to degrade.
func (r *Registry) ClosureForDate(ctx context.Context, date time.Time) (*models.DayClosure, error) {
	from := midnight(date)
	events, err := r.store.ListEvents(ctx, store.Closures, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("closure lookup: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return mergeDay(from, events), nil
}

func mergeDay(date time.Time, events []store.Event) *models.DayClosure {
	merged := &models.DayClosure{Date: date.Format(models.DateFormat)}
	slots := make(map[string]bool)

	for _, ev := range events {
		merged.EventIDs = append(merged.EventIDs, ev.ID)
		slot := store.DecodeClosureSlot(ev)
		if ev.AllDay || slot == "" {
			// Full-day closure always dominates partial ones.
			merged.FullDay = true
			merged.Label = ev.Title
			continue
		}
		slots[slot] = true
		if merged.Label == "" {
			merged.Label = ev.Title
		}
	}

	if merged.FullDay {
		merged.RestrictedSlots = nil
		return merged
	}
	for slot := range slots {
		merged.RestrictedSlots = append(merged.RestrictedSlots, slot)
	}
	sort.Strings(merged.RestrictedSlots)
	return merged
}

func midnight(t time.Time) time.Time {
	t = t.In(models.Taipei)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, models.Taipei)
}
