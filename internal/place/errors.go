// Package place computes the final library location of a verified trailer
// and moves it there atomically.
package place

import "errors"

var (
	// ErrFolderNotFound indicates the media folder vanished. Non-retryable
	// for the session; another candidate will not bring the folder back.
	ErrFolderNotFound = errors.New("media folder not found")

	// ErrMoveFailed indicates the artifact could not be moved into place.
	ErrMoveFailed = errors.New("failed to move artifact")
)
