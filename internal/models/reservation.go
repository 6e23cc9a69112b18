package models

import (
	"fmt"
	"regexp"
	"time"
)

// Status of a reservation. The event store has no structured status field,
// so the value is carried in the encoded event payload and mirrored into the
// event colour for the calendar UI.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
)

// ValidStatus reports whether s is one of the known reservation statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusUnconfirmed, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Capacity is the maximum number of non-cancelled reservations per slot.
const Capacity = 2

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

// Taipei is the fixed business timezone. All dates and timestamps are
// constructed and compared in this offset, never in the client's zone.
var Taipei = time.FixedZone("Asia/Taipei", 8*60*60)

var timeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ParseDate parses a YYYY-MM-DD string into midnight Taipei time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateFormat, s, Taipei)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return d, nil
}

// ValidTimeOfDay reports whether s is a 24-hour HH:MM string.
func ValidTimeOfDay(s string) bool {
	return timeRe.MatchString(s)
}

// Reservation is a customer booking for one slot on one date.
type Reservation struct {
	ID        string    `json:"id"`                 // generator-assigned, survives the payload round trip
	EventID   string    `json:"eventId,omitempty"`  // assigned by the event store on create
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Date      string    `json:"date"`               // YYYY-MM-DD
	Time      string    `json:"time"`               // HH:MM slot start
	Note      string    `json:"note,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Active reports whether the reservation counts toward slot occupancy.
func (r *Reservation) Active() bool {
	return r.Status != StatusCancelled
}

// StartsAt returns the reservation start as a Taipei timestamp.
func (r *Reservation) StartsAt() (time.Time, error) {
	return time.ParseInLocation(DateFormat+" "+TimeFormat, r.Date+" "+r.Time, Taipei)
}

var maskRe = regexp.MustCompile(`(\d{3})\d{4}(\d{3})`)

// MaskPhone hides the middle digits of a phone number for admin listings.
func MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}
	return maskRe.ReplaceAllString(phone, "$1****$2")
}
