package shared

import "errors"

var (
	// ErrDuplicatePlayer is returned when a join arrives for a badge that
	// already has an active player. Joins are rejected rather than silently
	// replacing the existing player's state and subscriptions.
	ErrDuplicatePlayer = errors.New("player already joined")

	// ErrUnknownPlayer is returned when an operation references a badge with
	// no active player. Event handlers log and drop these; events can race
	// with removal, so they never abort processing.
	ErrUnknownPlayer = errors.New("unknown player")

	// ErrRegistrationRejected is returned when the bus refuses the game
	// registration call. The session stays unregistered until the bus asks
	// for re-registration.
	ErrRegistrationRejected = errors.New("game registration rejected")
)
