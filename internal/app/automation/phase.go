// Package automation drives unattended multi-track sets across the mixer.
package automation

// Phase represents the automation lifecycle phase.
type Phase int

const (
	PhaseIdle               Phase = iota // No run yet
	PhaseLoadingFirstTrack               // Loading track 0 onto deck A
	PhaseStartingFirstTrack              // Starting deck A
	PhaseMonitoring                      // Waiting for the load lead
	PhaseLoadingNextTrack                // Loading the incoming track onto deck B
	PhaseReady                           // Incoming track cued
	PhaseStartingNextTrack               // Starting deck B silently
	PhaseTransitionReady                 // Waiting for the transition start
	PhaseTransitioning                   // Executing the timeline
	PhaseSwappingDecks                   // Promoting deck B
	PhaseCompleted                       // Last track is playing
	PhaseStopped                         // Stopped by request or fault
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingFirstTrack:
		return "loading_first_track"
	case PhaseStartingFirstTrack:
		return "starting_first_track"
	case PhaseMonitoring:
		return "monitoring"
	case PhaseLoadingNextTrack:
		return "loading_next_track"
	case PhaseReady:
		return "ready"
	case PhaseStartingNextTrack:
		return "starting_next_track"
	case PhaseTransitionReady:
		return "transition_ready"
	case PhaseTransitioning:
		return "transitioning"
	case PhaseSwappingDecks:
		return "swapping_decks"
	case PhaseCompleted:
		return "completed"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Active reports whether the phase belongs to a running set.
func (p Phase) Active() bool {
	return p != PhaseIdle && p != PhaseCompleted && p != PhaseStopped
}
