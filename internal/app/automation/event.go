package automation

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents an automation event type.
type EventType int

const (
	EventPhaseChanged EventType = iota // Phase changed
	EventTrackAdvanced                 // Decks swapped, index advanced
	EventPaused                        // Paused by request or override
	EventResumed                       // Resumed
	EventCompleted                     // Last track reached
	EventStopped                       // Stopped by request
	EventFaulted                       // Loop failed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventPhaseChanged:
		return "phase_changed"
	case EventTrackAdvanced:
		return "track_advanced"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventCompleted:
		return "completed"
	case EventStopped:
		return "stopped"
	case EventFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Event represents an automation event.
type Event struct {
	Type       EventType
	RunID      uuid.UUID
	Phase      Phase
	TrackIndex int
	Message    string
	Time       time.Time
}
