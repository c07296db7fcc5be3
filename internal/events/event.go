// Package events provides the in-process event bus for acquisition
// lifecycle notifications.
package events

import "time"

// Event types published by the acquisition pipeline.
const (
	EventAcquisitionStarted = "acquisition.started"
	EventCandidateRejected  = "acquisition.candidate_rejected"
	EventTrailerDownloaded  = "acquisition.trailer_downloaded"
	EventAcquisitionFailed  = "acquisition.failed"
)

// EntityMedia is the entity type for media registry items.
const EntityMedia = "media"

// Event is the base interface all events implement.
type Event interface {
	EventType() string
	EntityType() string
	EntityID() int64
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type      string    `json:"type"`
	Entity    string    `json:"entity_type"`
	ID        int64     `json:"entity_id"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EntityType() string    { return e.Entity }
func (e BaseEvent) EntityID() int64       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a BaseEvent with the current timestamp.
func NewBaseEvent(eventType string, mediaID int64) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Entity:    EntityMedia,
		ID:        mediaID,
		Timestamp: time.Now(),
	}
}

// AcquisitionStarted marks the beginning of an acquisition session.
type AcquisitionStarted struct {
	BaseEvent
	Title   string `json:"title"`
	Profile string `json:"profile"`
}

// CandidateRejected records one failed candidate within a session.
type CandidateRejected struct {
	BaseEvent
	CandidateID string `json:"candidate_id"`
	Reason      string `json:"reason"`
	Attempt     int    `json:"attempt"`
}

// TrailerDownloaded marks a successful acquisition.
type TrailerDownloaded struct {
	BaseEvent
	CandidateID string `json:"candidate_id"`
	FinalPath   string `json:"final_path"`
	Attempts    int    `json:"attempts"`
}

// AcquisitionFailed marks a session that exhausted its attempts or hit a
// non-retryable error.
type AcquisitionFailed struct {
	BaseEvent
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
}
