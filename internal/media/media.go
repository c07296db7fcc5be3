// Package media provides the media registry: the items trailgo watches and
// the lifecycle of their trailers.
package media

import (
	"time"
)

// Type distinguishes movies from series.
type Type string

const (
	TypeMovie  Type = "movie"
	TypeSeries Type = "series"
)

// Status tracks the trailer lifecycle of one media item.
type Status string

const (
	StatusMissing     Status = "missing"
	StatusMonitored   Status = "monitored"
	StatusDownloading Status = "downloading"
	StatusDownloaded  Status = "downloaded"
)

// validTransitions defines allowed state transitions.
// Key is the "from" status, value is list of valid "to" statuses.
var validTransitions = map[Status][]Status{
	StatusMissing:     {StatusMonitored, StatusDownloading},
	StatusMonitored:   {StatusMissing, StatusDownloading},
	StatusDownloading: {StatusDownloaded, StatusMissing},
	StatusDownloaded:  {StatusMissing, StatusDownloading}, // re-acquire on upgrade or loss
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	valid, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, v := range valid {
		if v == target {
			return true
		}
	}
	return false
}

// Item is one watched media item. The acquisition pipeline receives an
// immutable snapshot and writes back only through Store.SetStatus.
type Item struct {
	ID            int64
	Type          Type
	Title         string
	Year          int
	FolderPath    string // absolute path to the media folder
	YouTubeID     string // previously known trailer source, empty if none
	Profile       string // download profile name, empty for the default
	Status        Status
	TrailerExists bool
	DownloadedAt  *time.Time
	AddedAt       time.Time
	UpdatedAt     time.Time
}

// Filter specifies criteria for listing items.
type Filter struct {
	Type   *Type
	Status *Status
	Title  *string
	Year   *int
	Limit  int
}
