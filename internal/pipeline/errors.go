// Package pipeline orchestrates trailer acquisition: resolve a candidate,
// fetch, transcode, verify, and place, under a bounded retry loop with
// candidate exclusion.
package pipeline

import "errors"

var (
	// ErrSessionActive indicates an acquisition for this media item is
	// already in flight. At most one session per item may run.
	ErrSessionActive = errors.New("acquisition already in progress")

	// ErrAttemptsExhausted indicates every allowed attempt failed.
	// A normal termination path, not a system fault.
	ErrAttemptsExhausted = errors.New("acquisition attempts exhausted")
)
