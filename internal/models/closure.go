package models

// ClosureEntry is one expanded closure unit as persisted in the event store:
// a single date, either fully closed or blocking exactly one slot. A logical
// multi-day or multi-slot closure fans out into several entries.
type ClosureEntry struct {
	EventID string `json:"eventId"`
	Date    string `json:"date"` // YYYY-MM-DD
	Label   string `json:"label"`
	FullDay bool   `json:"fullDay"`
	Slot    string `json:"slot,omitempty"` // HH:MM, set when FullDay is false
}

// DayClosure is the merged closure view for one date: every stored entry
// covering the date folded into a single answer. A full-day entry dominates;
// otherwise restricted slots are the union over all partial entries.
type DayClosure struct {
	Date            string   `json:"date"`
	Label           string   `json:"label"`
	FullDay         bool     `json:"fullDay"`
	RestrictedSlots []string `json:"restrictedSlots,omitempty"` // sorted HH:MM
	EventIDs        []string `json:"eventIds,omitempty"`
	// WeeklyDayOff marks the synthetic closure for weekdays the business
	// never opens, as opposed to an admin-configured entry.
	WeeklyDayOff bool `json:"weeklyDayOff,omitempty"`
}

// Blocks reports whether the given slot start is blocked by this closure.
func (c *DayClosure) Blocks(slot string) bool {
	if c == nil {
		return false
	}
	if c.FullDay {
		return true
	}
	for _, s := range c.RestrictedSlots {
		if s == slot {
			return true
		}
	}
	return false
}
