// Package schedule holds the business-hours calendar: per-weekday operating
// windows and the canonical grid of bookable slot start times. It is the only
// package that branches on day-of-week; everything else treats the grid as
// opaque. The configuration is immutable after construction and safe for
// concurrent readers.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a clock time within a day, in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses a 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay(hour*60 + minute), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Add returns the time shifted by the given number of minutes.
func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

// OnDate places the clock time on the given calendar date.
func (t TimeOfDay) OnDate(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, date.Location())
}

// RangeSpec is an inclusive range of excluded slot starts, as "HH:MM" strings.
// From == To excludes a single start.
type RangeSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DaySpec describes one weekday's operating rules. Exclude drops slot starts
// falling inside any range; Include restores individual starts afterwards,
// so a single slot can be carved back out of a break.
type DaySpec struct {
	Closed  bool        `yaml:"closed"`
	Open    string      `yaml:"open"`
	Close   string      `yaml:"close"`
	Exclude []RangeSpec `yaml:"exclude"`
	Include []string    `yaml:"include"`
}

type excludeRange struct {
	from, to TimeOfDay
}

type dayRules struct {
	closed      bool
	open, close TimeOfDay
	exclude     []excludeRange
	include     map[TimeOfDay]bool
}

// Weekly is the immutable weekly business calendar.
type Weekly struct {
	days     [7]dayRules
	step     int // minutes between slot starts
	duration int // minutes each slot occupies
}

const (
	defaultStepMinutes     = 30
	defaultDurationMinutes = 60
)

// New builds a Weekly calendar from per-weekday specs. Weekdays missing from
// the map are closed. Step is the slot start granularity and duration the
// implicit length of every booking; both default when zero.
func New(specs map[time.Weekday]DaySpec, stepMinutes, durationMinutes int) (*Weekly, error) {
	if stepMinutes <= 0 {
		stepMinutes = defaultStepMinutes
	}
	if durationMinutes <= 0 {
		durationMinutes = defaultDurationMinutes
	}

	w := &Weekly{step: stepMinutes, duration: durationMinutes}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		spec, ok := specs[wd]
		if !ok || spec.Closed {
			w.days[wd] = dayRules{closed: true}
			continue
		}

		open, err := ParseTimeOfDay(spec.Open)
		if err != nil {
			return nil, fmt.Errorf("%s open: %w", wd, err)
		}
		cl, err := ParseTimeOfDay(spec.Close)
		if err != nil {
			return nil, fmt.Errorf("%s close: %w", wd, err)
		}
		if cl <= open {
			return nil, fmt.Errorf("%s: close %s not after open %s", wd, spec.Close, spec.Open)
		}

		rules := dayRules{open: open, close: cl, include: make(map[TimeOfDay]bool)}
		for _, r := range spec.Exclude {
			from, err := ParseTimeOfDay(r.From)
			if err != nil {
				return nil, fmt.Errorf("%s exclude: %w", wd, err)
			}
			to, err := ParseTimeOfDay(r.To)
			if err != nil {
				return nil, fmt.Errorf("%s exclude: %w", wd, err)
			}
			if to < from {
				return nil, fmt.Errorf("%s exclude: %s before %s", wd, r.To, r.From)
			}
			rules.exclude = append(rules.exclude, excludeRange{from: from, to: to})
		}
		for _, s := range spec.Include {
			t, err := ParseTimeOfDay(s)
			if err != nil {
				return nil, fmt.Errorf("%s include: %w", wd, err)
			}
			rules.include[t] = true
		}
		w.days[wd] = rules
	}
	return w, nil
}

// Default returns the canonical rule set:
//   - 30-minute start grid, every slot occupying one hour;
//   - Mon-Fri 10:00-20:30, lunch starts 12:30-13:30 dropped with 14:00
//     restored, 20:00 dropped as a one-slot carve-out;
//   - Saturday 12:00-18:00 with the 17:30-18:30 closing buffer dropped;
//   - Sunday closed.
func Default() *Weekly {
	weekday := DaySpec{
		Open:  "10:00",
		Close: "20:30",
		Exclude: []RangeSpec{
			{From: "12:30", To: "14:00"}, // lunch
			{From: "20:00", To: "20:00"},
		},
		Include: []string{"14:00", "19:30"},
	}
	saturday := DaySpec{
		Open:    "12:00",
		Close:   "18:00",
		Exclude: []RangeSpec{{From: "17:30", To: "18:30"}}, // closing buffer
	}

	specs := map[time.Weekday]DaySpec{
		time.Monday:    weekday,
		time.Tuesday:   weekday,
		time.Wednesday: weekday,
		time.Thursday:  weekday,
		time.Friday:    weekday,
		time.Saturday:  saturday,
		time.Sunday:    {Closed: true},
	}

	w, err := New(specs, defaultStepMinutes, defaultDurationMinutes)
	if err != nil {
		panic("schedule: default rule set invalid: " + err.Error())
	}
	return w
}

// IsClosed reports whether the business never opens on the date's weekday.
func (w *Weekly) IsClosed(date time.Time) bool {
	return w.days[date.Weekday()].closed
}

// SlotDuration is how long each booking occupies, independent of the start
// grid; consecutive slots overlap in duration but never in start time.
func (w *Weekly) SlotDuration() time.Duration {
	return time.Duration(w.duration) * time.Minute
}

// SlotsForDate generates the ordered canonical slot starts ("HH:MM") for a
// date. Pure function of the date's weekday and the fixed config; every
// returned start lies within [open, close) and outside the exclusion rules.
func (w *Weekly) SlotsForDate(date time.Time) []string {
	rules := w.days[date.Weekday()]
	if rules.closed {
		return nil
	}

	var slots []string
	for t := rules.open; t < rules.close; t = t.Add(w.step) {
		if rules.excluded(t) {
			continue
		}
		slots = append(slots, t.String())
	}
	return slots
}

// HasSlot reports whether the "HH:MM" start is on the date's canonical grid.
func (w *Weekly) HasSlot(date time.Time, start string) bool {
	for _, s := range w.SlotsForDate(date) {
		if s == start {
			return true
		}
	}
	return false
}

func (r dayRules) excluded(t TimeOfDay) bool {
	if r.include[t] {
		return false
	}
	for _, ex := range r.exclude {
		if t >= ex.from && t <= ex.to {
			return true
		}
	}
	return false
}
