package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType discriminates the kinds of events that can trigger rules.
type EventType string

const (
	EventFileCreated  EventType = "file_created"
	EventFileModified EventType = "file_modified"
	EventFileDeleted  EventType = "file_deleted"
	EventFileRenamed  EventType = "file_renamed"
	EventManual       EventType = "manual"
	EventScheduled    EventType = "scheduled"
)

// EventKind is the tagged payload of an event. Path is set for the file_*
// kinds (the destination path for file_renamed, with From carrying the old
// name). Schedule carries the cron expression for scheduled events.
type EventKind struct {
	Type     EventType `json:"type"`
	Path     string    `json:"path,omitempty"`
	From     string    `json:"from,omitempty"`
	Schedule string    `json:"schedule,omitempty"`
}

// Event is a single occurrence handed to the workflow runner.
type Event struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      EventKind       `json:"kind"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current time.
func NewEvent(kind EventKind, source string) Event {
	return Event{
		ID:        "evt_" + uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Source:    source,
	}
}

// FileCreated builds a file_created event for path.
func FileCreated(path, source string) Event {
	return NewEvent(EventKind{Type: EventFileCreated, Path: path}, source)
}

// FileModified builds a file_modified event for path.
func FileModified(path, source string) Event {
	return NewEvent(EventKind{Type: EventFileModified, Path: path}, source)
}

// FileDeleted builds a file_deleted event for path.
func FileDeleted(path, source string) Event {
	return NewEvent(EventKind{Type: EventFileDeleted, Path: path}, source)
}

// FileRenamed builds a file_renamed event. to is the new path.
func FileRenamed(from, to, source string) Event {
	return NewEvent(EventKind{Type: EventFileRenamed, Path: to, From: from}, source)
}

// SubjectPath returns the path an event is about, or "" for kinds
// without one (manual, scheduled).
func (e Event) SubjectPath() string {
	return e.Kind.Path
}
