package models

import "errors"

// Error taxonomy shared by the booking core. The API layer is the only place
// these map to HTTP statuses; core packages wrap them with context and
// callers test with errors.Is.
var (
	// ErrValidation marks malformed input. Never retried.
	ErrValidation = errors.New("invalid input")

	// ErrClosureConflict marks a date or slot blocked by a closure or the
	// weekly day off. Never retried.
	ErrClosureConflict = errors.New("date or slot is closed")

	// ErrSlotFull marks a slot that already holds Capacity active reservations.
	ErrSlotFull = errors.New("slot is fully booked")

	// ErrStoreUnavailable marks an event store failure or timeout. Safe for
	// the caller to retry with backoff. Ambiguous store responses surface as
	// this error and are never interpreted as "available".
	ErrStoreUnavailable = errors.New("event store unavailable")

	// ErrWriteFailed marks a create that failed after validation passed. The
	// write outcome is unknown, so it must not be blindly retried.
	ErrWriteFailed = errors.New("reservation write failed")

	// ErrNotFound marks a missing event id.
	ErrNotFound = errors.New("not found")
)
