package media

import "errors"

// Sentinel errors for the media package.
var (
	// ErrNotFound is returned when an item does not exist.
	ErrNotFound = errors.New("media item not found")

	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("media item already exists")

	// ErrInvalidTransition is returned when a status change is not allowed
	// by the lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)
