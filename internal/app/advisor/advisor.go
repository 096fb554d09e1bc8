// Package advisor narrates the transition schedule for a human operator.
// It reads mixer status and a plan and never mutates either.
package advisor

import (
	"fmt"
	"sync"

	"github.com/osa030/autodeck/internal/app/effects"
	"github.com/osa030/autodeck/internal/app/mixer"
	"github.com/osa030/autodeck/internal/app/queue"
	"github.com/osa030/autodeck/internal/app/transition"
	"github.com/osa030/autodeck/internal/domain/track"
)

// Urgency of a suggestion.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
)

// String returns the string representation of the urgency.
func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyMedium:
		return "medium"
	case UrgencyHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Action tags used outside the transition timeline.
const (
	ActionIdle      = "idle"
	ActionPlaying   = "playing"
	ActionPrepare   = "prepare"
	ActionLoadNext  = "load_next"
	ActionLoadDeckB = "load_deck_b"
	ActionCueDeckB  = "cue_deck_b"
	ActionStartB    = "start_deck_b"
	ActionReady     = "ready"
)

// Thresholds define the phase boundaries, in seconds before the transition
// start (or before the end of the track without a plan).
type Thresholds struct {
	Warning float64 // Load the incoming track
	Ready   float64 // Start the incoming track
	Prepare float64 // Pick a next track (no plan)
	EQCut   float64 // Gain suggested for a cut band
}

// DefaultThresholds match the automation engine leads.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 60, Ready: 30, Prepare: 90, EQCut: 0.2}
}

// EQHint is a suggested band gain.
type EQHint struct {
	Band effects.Band
	Gain float64
}

// Controls are the control values a suggestion recommends. Nil fields are
// not part of the suggestion.
type Controls struct {
	Deck       mixer.DeckID
	Track      string // Track ID to load
	Play       bool
	Volume     *float64
	CuePoint   *float64
	Crossfader *float64
	EQ         *EQHint
	FadeOut    bool
}

// Suggestion is what the operator should do now.
type Suggestion struct {
	Message  string
	Action   string
	Urgency  Urgency
	Controls Controls
	Timing   string
	Progress float64 // 0..1 within a transition
}

// Suggest is a pure function of mixer status, the current plan and the
// next queued track. plan and next may be nil.
func Suggest(st mixer.Status, plan *transition.Plan, next *track.Metadata, th Thresholds) Suggestion {
	a, b := st.DeckA, st.DeckB

	switch {
	case !a.Playing && !b.Playing:
		return Suggestion{Message: "Load a track and press play to start", Action: ActionIdle}
	case !a.Playing:
		return Suggestion{
			Message: fmt.Sprintf("Deck B playing - %.0fs remaining", b.TimeRemaining),
			Action:  ActionPlaying,
		}
	case plan == nil:
		return suggestWithoutPlan(a, next, th)
	}

	until := plan.TransitionStart - a.Position
	switch {
	case until > th.Warning:
		return Suggestion{
			Message: fmt.Sprintf("Cruising - transition in %ds", int(until)),
			Action:  ActionPlaying,
			Timing:  fmt.Sprintf("%ds", int(until)),
		}
	case until > th.Ready:
		if !b.Loaded {
			return Suggestion{
				Message:  fmt.Sprintf("Load deck B now - %ds until transition", int(until)),
				Action:   ActionLoadDeckB,
				Urgency:  UrgencyHigh,
				Controls: Controls{Deck: mixer.DeckB, Track: plan.TrackB},
				Timing:   "now",
			}
		}
		return Suggestion{
			Message:  fmt.Sprintf("Get ready - cue deck B to %.1fs", plan.CuePoint),
			Action:   ActionCueDeckB,
			Urgency:  UrgencyMedium,
			Controls: Controls{Deck: mixer.DeckB, CuePoint: ptr(plan.CuePoint)},
			Timing:   fmt.Sprintf("%ds", int(until)),
		}
	case until > 0:
		bars := int(until / plan.BarLength)
		if !b.Playing {
			return Suggestion{
				Message:  fmt.Sprintf("%d bars - start deck B (silent)", bars),
				Action:   ActionStartB,
				Urgency:  UrgencyHigh,
				Controls: Controls{Deck: mixer.DeckB, Play: true, Volume: ptr(0)},
				Timing:   fmt.Sprintf("%d bars", bars),
			}
		}
		return Suggestion{
			Message: fmt.Sprintf("Deck B playing - %d bars until mix", bars),
			Action:  ActionReady,
			Urgency: UrgencyMedium,
			Timing:  fmt.Sprintf("%d bars", bars),
		}
	}

	return suggestInTransition(plan, a.Position-plan.TransitionStart, th.EQCut)
}

func suggestWithoutPlan(a mixer.DeckStatus, next *track.Metadata, th Thresholds) Suggestion {
	remaining := a.TimeRemaining
	switch {
	case remaining < th.Warning:
		s := Suggestion{
			Message: fmt.Sprintf("Track ending in %.0fs - load next track", remaining),
			Action:  ActionLoadNext,
			Urgency: UrgencyHigh,
			Timing:  "now",
		}
		if next != nil {
			s.Controls = Controls{Deck: mixer.DeckB, Track: next.ID}
		}
		return s
	case remaining < th.Prepare:
		return Suggestion{
			Message: fmt.Sprintf("%.0fs left - choose next track", remaining),
			Action:  ActionPrepare,
			Urgency: UrgencyMedium,
			Timing:  "soon",
		}
	default:
		return Suggestion{
			Message: fmt.Sprintf("Playing smoothly - %.0fs remaining", remaining),
			Action:  ActionPlaying,
		}
	}
}

// suggestInTransition follows the timeline: the most recently passed event
// is the instruction, the next one gives the timing.
func suggestInTransition(plan *transition.Plan, elapsed, cut float64) Suggestion {
	if len(plan.Timeline) == 0 {
		return Suggestion{Message: "Mixing", Action: ActionPlaying, Urgency: UrgencyHigh}
	}
	last, next := plan.Locate(elapsed)
	if last < 0 {
		last, next = 0, 1
	}
	ev := plan.Timeline[last]
	msg, controls := narrate(ev, cut)

	s := Suggestion{
		Message:  msg,
		Action:   string(ev.Action),
		Urgency:  UrgencyHigh,
		Controls: controls,
	}
	if next < len(plan.Timeline) {
		bars := int((plan.Timeline[next].Time - elapsed) / plan.BarLength)
		s.Timing = fmt.Sprintf("Next: %d bars", bars)
	}
	if plan.Duration > 0 {
		s.Progress = min(max(elapsed/plan.Duration, 0), 1)
	}
	return s
}

func narrate(ev transition.Event, cut float64) (string, Controls) {
	switch ev.Action {
	case transition.ActionStartIncoming:
		return "START DECK B", Controls{Deck: mixer.DeckB, Play: true}
	case transition.ActionLowCutOutgoing:
		return "CUT BASS deck A", Controls{Deck: mixer.DeckA, EQ: &EQHint{Band: effects.BandBass, Gain: cut}}
	case transition.ActionLowIntroduce:
		return "BRING BASS deck B", Controls{Deck: mixer.DeckB, EQ: &EQHint{Band: effects.BandBass, Gain: 1}}
	case transition.ActionMidIntroduce:
		return "MIDS IN deck B", Controls{Deck: mixer.DeckB, EQ: &EQHint{Band: effects.BandMid, Gain: 1}}
	case transition.ActionHighIntroduce:
		return "HIGHS IN deck B", Controls{Deck: mixer.DeckB, EQ: &EQHint{Band: effects.BandHigh, Gain: 1}}
	case transition.ActionCrossfaderHalf:
		return "CROSSFADER CENTER", Controls{Crossfader: ptr(0)}
	case transition.ActionFadeOutOutgoing:
		return "FADE OUT deck A", Controls{Deck: mixer.DeckA, FadeOut: true}
	case transition.ActionIncomingOnly:
		return "DECK B ONLY - transition complete", Controls{}
	default:
		return ev.Description, Controls{}
	}
}

// EnergyAdvice describes how to handle the energy change to the next track.
func EnergyAdvice(current, next float64) string {
	switch diff := next - current; {
	case diff > 0.2:
		return "Energy up - use a quick transition and boost highs"
	case diff < -0.2:
		return "Energy down - long blend, add reverb"
	default:
		return "Similar energy - standard mix"
	}
}

// LoopHint is a suggested loop region.
type LoopHint struct {
	Message string
	Start   float64 // Seconds
	Bars    int
}

// SuggestLoop offers an intro loop during the first 30% of a track.
func SuggestLoop(position, duration float64) (LoopHint, bool) {
	if duration <= 0 || position >= duration*0.3 {
		return LoopHint{}, false
	}
	return LoopHint{Message: "Good loop point - try an 8-bar loop", Start: 16, Bars: 8}, true
}

// StatusSource provides mixer snapshots.
type StatusSource interface {
	Status() mixer.Status
}

// NextSource ranks queued tracks.
type NextSource interface {
	GetNext(count int) []queue.Candidate
}

// Advisor holds the plan the operator is following.
type Advisor struct {
	mu      sync.RWMutex
	mixer   StatusSource
	queue   NextSource
	planner *transition.Planner
	plan    *transition.Plan
	th      Thresholds
}

// New creates an advisor without a plan.
func New(m StatusSource, q NextSource, p *transition.Planner, th Thresholds) *Advisor {
	return &Advisor{mixer: m, queue: q, planner: p, th: th}
}

// SetPlan replaces the followed plan. nil clears it.
func (a *Advisor) SetPlan(p *transition.Plan) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.plan = p
}

// PlanFor plans the transition between two tracks and follows it.
func (a *Advisor) PlanFor(from, to track.Metadata, typ transition.Type) (*transition.Plan, error) {
	p, err := a.planner.Plan(from, to, typ)
	if err != nil {
		return nil, err
	}
	a.SetPlan(p)
	return p, nil
}

// Plan returns the followed plan.
func (a *Advisor) Plan() *transition.Plan {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.plan
}

// GetSuggestion returns the suggestion for the current mixer state.
func (a *Advisor) GetSuggestion() Suggestion {
	a.mu.RLock()
	plan, th := a.plan, a.th
	a.mu.RUnlock()

	var next *track.Metadata
	if a.queue != nil {
		if c := a.queue.GetNext(1); len(c) > 0 {
			next = &c[0].Track
		}
	}
	return Suggest(a.mixer.Status(), plan, next, th)
}

// Summary returns a one-line description of the decks.
func (a *Advisor) Summary() string {
	st := a.mixer.Status()
	if st.DeckA.Playing {
		return fmt.Sprintf("Deck A: %.0fs left", st.DeckA.TimeRemaining)
	}
	return "Ready to play"
}

func ptr(v float64) *float64 {
	return &v
}
