// Package availability combines the business calendar, the closure registry
// and the reservation events for a date into per-slot status. It is the
// single derivation used by both the read path (rendering the grid) and the
// write path (conflict checks), so the two can never drift.
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"amaze/internal/models"
	"amaze/internal/schedule"
	"amaze/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SlotStatus is the occupancy state of one slot.
type SlotStatus string

const (
	StatusFree    SlotStatus = "free"
	StatusPartial SlotStatus = "partial"
	StatusFull    SlotStatus = "full"
)

// Slot is one annotated entry of the day grid.
type Slot struct {
	Time      string     `json:"time"`
	Status    SlotStatus `json:"status"`
	Occupancy int        `json:"occupancy"`
	Bookable  bool       `json:"bookable"`
}

// Day is the availability result for one date.
type Day struct {
	Date    string             `json:"date"`
	Slots   []Slot             `json:"slots"`
	Closure *models.DayClosure `json:"closure,omitempty"`
	// Degraded is set when the closure registry could not be consulted and
	// the grid was computed as if no closures existed. It is surfaced to the
	// caller instead of being hidden.
	Degraded bool `json:"degraded,omitempty"`
}

// Bookable returns the subset of slots a customer may currently book.
func (d *Day) Bookable() []Slot {
	out := make([]Slot, 0, len(d.Slots))
	for _, s := range d.Slots {
		if s.Bookable {
			out = append(out, s)
		}
	}
	return out
}

// ClosureSource answers the merged closure view for a date.
type ClosureSource interface {
	ClosureForDate(ctx context.Context, date time.Time) (*models.DayClosure, error)
}

// Engine derives availability. Read-only; it never writes to the store.
type Engine struct {
	calendar *schedule.Weekly
	closures ClosureSource
	store    store.EventStore
	capacity int
	log      *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewEngine builds an engine over the given collaborators.
func NewEngine(calendar *schedule.Weekly, closures ClosureSource, st store.EventStore, capacity int, logger *zerolog.Logger) *Engine {
	if capacity <= 0 {
		capacity = models.Capacity
	}
	return &Engine{
		calendar: calendar,
		closures: closures,
		store:    st,
		capacity: capacity,
		log:      logger,
	}
}

// UseRedisCache enables caching of computed days. Entries are invalidated by
// the write paths via InvalidateDate.
func (e *Engine) UseRedisCache(client *redis.Client, ttl time.Duration) {
	e.redis = client
	e.cacheTTL = ttl
}

// ForDate computes the full annotated grid for a date.
//
// A weekly day off yields an empty grid with a synthetic closure marker. A
// registry failure degrades to "no known closures" with Degraded set. A
// reservation listing failure is returned as an error: an unreadable store
// must never be reported as a fully available day.
func (e *Engine) ForDate(ctx context.Context, date time.Time) (*Day, error) {
	dateStr := date.In(models.Taipei).Format(models.DateFormat)

	if e.calendar.IsClosed(date) {
		return &Day{
			Date:  dateStr,
			Slots: []Slot{},
			Closure: &models.DayClosure{
				Date:         dateStr,
				Label:        "weekly day off",
				FullDay:      true,
				WeeklyDayOff: true,
			},
		}, nil
	}

	if day, ok := e.readCache(ctx, dateStr); ok {
		return day, nil
	}

	day := &Day{Date: dateStr, Slots: []Slot{}}

	closure, err := e.closures.ClosureForDate(ctx, date)
	if err != nil {
		e.log.Warn().Err(err).Str("date", dateStr).Msg("closure registry unavailable, computing without closures")
		day.Degraded = true
	} else {
		day.Closure = closure
	}

	if day.Closure != nil && day.Closure.FullDay {
		return day, nil
	}

	occupancy, err := e.OccupancyForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	for _, slot := range e.calendar.SlotsForDate(date) {
		count := occupancy[slot]
		status := StatusFree
		switch {
		case count >= e.capacity:
			status = StatusFull
		case count > 0:
			status = StatusPartial
		}
		day.Slots = append(day.Slots, Slot{
			Time:      slot,
			Status:    status,
			Occupancy: count,
			Bookable:  status != StatusFull && !day.Closure.Blocks(slot),
		})
	}

	if !day.Degraded {
		e.writeCache(ctx, dateStr, day)
	}
	return day, nil
}

// OccupancyForDate counts active reservations per slot start. The write path
// uses the same count, so capacity checks match what customers were shown.
// Events without a decodable payload still occupy their start slot: the
// calendar is the source of truth and staff add entries to it by hand.
func (e *Engine) OccupancyForDate(ctx context.Context, date time.Time) (map[string]int, error) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, models.Taipei)
	events, err := e.store.ListEvents(ctx, store.Reservations, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("occupancy for %s: %w", from.Format(models.DateFormat), err)
	}

	occupancy := make(map[string]int, len(events))
	for _, ev := range events {
		if ev.AllDay {
			continue
		}
		res, err := store.DecodeReservation(ev)
		if err != nil {
			e.log.Debug().Str("event_id", ev.ID).Msg("counting opaque calendar event as booked slot")
			occupancy[ev.Start.In(models.Taipei).Format(models.TimeFormat)]++
			continue
		}
		if res.Active() {
			occupancy[res.Time]++
		}
	}
	return occupancy, nil
}

// InvalidateDate drops the cached grid for a date after a write.
func (e *Engine) InvalidateDate(ctx context.Context, dateStr string) {
	if e.redis == nil {
		return
	}
	if err := e.redis.Del(ctx, cacheKey(dateStr)).Err(); err != nil {
		e.log.Warn().Err(err).Str("date", dateStr).Msg("availability cache invalidation failed")
	}
}

func (e *Engine) readCache(ctx context.Context, dateStr string) (*Day, bool) {
	if e.redis == nil || e.cacheTTL <= 0 {
		return nil, false
	}
	val, err := e.redis.Get(ctx, cacheKey(dateStr)).Result()
	if err != nil {
		return nil, false
	}
	var day Day
	if err := json.Unmarshal([]byte(val), &day); err != nil {
		return nil, false
	}
	return &day, true
}

func (e *Engine) writeCache(ctx context.Context, dateStr string, day *Day) {
	if e.redis == nil || e.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(day)
	if err != nil {
		return
	}
	_ = e.redis.Set(ctx, cacheKey(dateStr), data, e.cacheTTL).Err()
}

func cacheKey(dateStr string) string {
	return "availability:" + dateStr
}
