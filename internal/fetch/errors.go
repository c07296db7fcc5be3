// Package fetch downloads a trailer candidate into scratch space.
package fetch

import "errors"

var (
	// ErrDownloadFailed indicates the download tool exited non-zero or
	// produced no output file. Retryable with a different candidate.
	ErrDownloadFailed = errors.New("trailer download failed")

	// ErrRestricted indicates the source is age- or region-locked, private,
	// or removed. Fatal for the candidate; a retry with the same identifier
	// can never succeed.
	ErrRestricted = errors.New("trailer source restricted")

	// ErrTooManyRequests indicates the remote platform is rate limiting us.
	// Fatal for the session; backing off is the only cure.
	ErrTooManyRequests = errors.New("too many requests")
)
