package terminal

import "errors"

var (
	// ErrSessionNotFound is returned for IDs that were never spawned, were
	// killed, or whose shell has exited.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyID is returned when spawning without a session ID.
	ErrEmptyID = errors.New("session id cannot be empty")

	// ErrInvalidSize is returned when a resize asks for zero rows or columns.
	ErrInvalidSize = errors.New("rows and cols must be greater than zero")
)
