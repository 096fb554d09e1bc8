// Package mixer provides the dual-deck player and constant-power mixer.
package mixer

// State represents the deck playback state.
type State int

const (
	StateEmpty   State = iota // No buffer loaded
	StateStopped              // Loaded, not playing
	StatePlaying              // Playing
	StatePaused               // Paused mid-track
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// DeckID names a deck slot.
type DeckID string

const (
	DeckA DeckID = "A"
	DeckB DeckID = "B"
)
