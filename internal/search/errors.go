// Package search resolves the trailer candidate for a media item, either by
// reusing a stored identifier or by running a ranked yt-dlp search.
package search

import "errors"

var (
	// ErrNoCandidate indicates every ranked result was rejected or the
	// search yielded nothing. Informational for the session, not a fault.
	ErrNoCandidate = errors.New("no trailer candidate found")

	// ErrSearchFailed indicates the search tool itself failed.
	ErrSearchFailed = errors.New("trailer search failed")
)
