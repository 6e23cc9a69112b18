package store

import (
	"fmt"
	"strings"
	"time"

	"amaze/internal/models"
)

// Payload codec: the event store has no structured fields for customer data,
// so reservations are packed into the event description as a versioned,
// label-prefixed line format and unpacked by the admin listing path. The
// round trip must be exact for values without embedded newlines; Encode
// flattens newlines in the note so the format stays line-oriented.
//
//	v1
//	Booking-ID: 6c6f...
//	Name: Amy
//	Phone: 0912000000
//	Status: unconfirmed
//	Created-At: 2025-06-01T10:00:00+08:00
//	Note: bring the dog
//
// Unknown keys are ignored on decode so the format can grow.

const payloadVersion = "v1"

const (
	keyBookingID = "Booking-ID"
	keyName      = "Name"
	keyPhone     = "Phone"
	keyStatus    = "Status"
	keyCreated   = "Created-At"
	keyNote      = "Note"
	keySlots     = "Slots"
)

// Event colour categories, matching the original calendar convention:
// blue for fresh reservations, red for closures.
const (
	ColorUnconfirmed = "1" // blue
	ColorConfirmed   = "2" // green
	ColorCancelled   = "8" // graphite
	ColorClosure     = "4" // red
)

// StatusColor maps a reservation status to its event colour.
func StatusColor(s models.Status) string {
	switch s {
	case models.StatusConfirmed:
		return ColorConfirmed
	case models.StatusCancelled:
		return ColorCancelled
	default:
		return ColorUnconfirmed
	}
}

// EncodeReservation packs the reservation into an event description.
func EncodeReservation(r *models.Reservation) string {
	var b strings.Builder
	b.WriteString(payloadVersion)
	b.WriteByte('\n')
	writeLine(&b, keyBookingID, r.ID)
	writeLine(&b, keyName, flatten(r.Name))
	writeLine(&b, keyPhone, flatten(r.Phone))
	writeLine(&b, keyStatus, string(r.Status))
	writeLine(&b, keyCreated, r.CreatedAt.Format(time.RFC3339))
	if r.Note != "" {
		writeLine(&b, keyNote, flatten(r.Note))
	}
	return b.String()
}

// ReservationEvent builds the backing event for a reservation. The title is
// what staff see when they open the calendar directly.
func ReservationEvent(r *models.Reservation, slotDuration time.Duration) (Event, error) {
	start, err := r.StartsAt()
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          r.EventID,
		Title:       fmt.Sprintf("%s %s", r.Name, r.Phone),
		Description: EncodeReservation(r),
		Start:       start,
		End:         start.Add(slotDuration),
		ColorID:     StatusColor(r.Status),
	}, nil
}

// DecodeReservation reconstructs a reservation from an event. Date and time
// come from the event start; everything else from the payload.
func DecodeReservation(ev Event) (*models.Reservation, error) {
	fields, err := parsePayload(ev.Description)
	if err != nil {
		return nil, err
	}

	r := &models.Reservation{
		EventID: ev.ID,
		ID:      fields[keyBookingID],
		Name:    fields[keyName],
		Phone:   fields[keyPhone],
		Note:    fields[keyNote],
		Date:    ev.Start.In(models.Taipei).Format(models.DateFormat),
		Time:    ev.Start.In(models.Taipei).Format(models.TimeFormat),
		Status:  models.Status(fields[keyStatus]),
	}
	if r.Name == "" || r.Phone == "" {
		return nil, fmt.Errorf("payload missing name or phone")
	}
	if !models.ValidStatus(r.Status) {
		r.Status = models.StatusUnconfirmed
	}
	if raw, ok := fields[keyCreated]; ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			r.CreatedAt = ts.In(models.Taipei)
		}
	}
	return r, nil
}

// EncodeClosure packs a closure entry's restricted slot (empty for full-day)
// into an event description.
func EncodeClosure(slot string) string {
	var b strings.Builder
	b.WriteString(payloadVersion)
	b.WriteByte('\n')
	if slot != "" {
		writeLine(&b, keySlots, slot)
	}
	return b.String()
}

// DecodeClosureSlot extracts the restricted slot from a closure event
// payload; empty means the whole day is closed. Falls back to the event
// start time for timed events written before the codec existed.
func DecodeClosureSlot(ev Event) string {
	fields, err := parsePayload(ev.Description)
	if err == nil {
		if slot, ok := fields[keySlots]; ok {
			return slot
		}
	}
	if ev.AllDay {
		return ""
	}
	return ev.Start.In(models.Taipei).Format(models.TimeFormat)
}

func writeLine(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

func parsePayload(desc string) (map[string]string, error) {
	lines := strings.Split(strings.TrimRight(desc, "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != payloadVersion {
		return nil, fmt.Errorf("unknown payload version")
	}

	fields := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		fields[key] = value
	}
	return fields, nil
}
