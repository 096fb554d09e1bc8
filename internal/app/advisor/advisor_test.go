package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autodeck/internal/app/effects"
	"github.com/osa030/autodeck/internal/app/mixer"
	"github.com/osa030/autodeck/internal/app/queue"
	"github.com/osa030/autodeck/internal/app/transition"
	"github.com/osa030/autodeck/internal/domain/track"
)

var (
	trackA = track.Metadata{ID: "a", Title: "Opener", Duration: 240, BPM: 128}
	trackB = track.Metadata{ID: "b", Title: "Follow", Duration: 260, BPM: 128}
)

func standardPlan(t *testing.T) *transition.Plan {
	t.Helper()
	p, err := transition.NewPlanner(transition.TypeStandard).Plan(trackA, trackB, "")
	require.NoError(t, err)
	require.Equal(t, 210.0, p.TransitionStart)
	return p
}

func deckStatus(playing bool, position, duration float64) mixer.DeckStatus {
	return mixer.DeckStatus{
		Loaded:        duration > 0,
		Playing:       playing,
		Position:      position,
		Duration:      duration,
		TimeRemaining: duration - position,
	}
}

func TestSuggest_WithoutPlan(t *testing.T) {
	next := trackB
	tests := []struct {
		name    string
		status  mixer.Status
		action  string
		urgency Urgency
		track   string
	}{
		{name: "nothing playing", status: mixer.Status{}, action: ActionIdle, urgency: UrgencyLow},
		{
			name:    "only deck b",
			status:  mixer.Status{DeckB: deckStatus(true, 10, 100)},
			action:  ActionPlaying,
			urgency: UrgencyLow,
		},
		{
			name:    "ending soon",
			status:  mixer.Status{DeckA: deckStatus(true, 195, 240)},
			action:  ActionLoadNext,
			urgency: UrgencyHigh,
			track:   "b",
		},
		{
			name:    "prepare",
			status:  mixer.Status{DeckA: deckStatus(true, 160, 240)},
			action:  ActionPrepare,
			urgency: UrgencyMedium,
		},
		{
			name:    "plenty left",
			status:  mixer.Status{DeckA: deckStatus(true, 20, 240)},
			action:  ActionPlaying,
			urgency: UrgencyLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Suggest(tt.status, nil, &next, DefaultThresholds())
			assert.Equal(t, tt.action, s.Action)
			assert.Equal(t, tt.urgency, s.Urgency)
			assert.Equal(t, tt.track, s.Controls.Track)
		})
	}
}

func TestSuggest_BeforeTransition(t *testing.T) {
	plan := standardPlan(t)

	tests := []struct {
		name     string
		position float64
		deckB    mixer.DeckStatus
		action   string
		urgency  Urgency
		message  string
		timing   string
	}{
		{
			name:     "cruising",
			position: 100,
			action:   ActionPlaying,
			urgency:  UrgencyLow,
			message:  "Cruising - transition in 110s",
			timing:   "110s",
		},
		{
			name:     "deck b not loaded",
			position: 170,
			action:   ActionLoadDeckB,
			urgency:  UrgencyHigh,
			message:  "Load deck B now - 40s until transition",
			timing:   "now",
		},
		{
			name:     "deck b loaded",
			position: 170,
			deckB:    deckStatus(false, 7.5, 260),
			action:   ActionCueDeckB,
			urgency:  UrgencyMedium,
			message:  "Get ready - cue deck B to 7.5s",
			timing:   "40s",
		},
		{
			name:     "start deck b",
			position: 200,
			deckB:    deckStatus(false, 7.5, 260),
			action:   ActionStartB,
			urgency:  UrgencyHigh,
			message:  "5 bars - start deck B (silent)",
			timing:   "5 bars",
		},
		{
			name:     "deck b running",
			position: 200,
			deckB:    deckStatus(true, 9, 260),
			action:   ActionReady,
			urgency:  UrgencyMedium,
			message:  "Deck B playing - 5 bars until mix",
			timing:   "5 bars",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mixer.Status{DeckA: deckStatus(true, tt.position, 240), DeckB: tt.deckB}
			s := Suggest(st, plan, nil, DefaultThresholds())
			assert.Equal(t, tt.action, s.Action)
			assert.Equal(t, tt.urgency, s.Urgency)
			assert.Equal(t, tt.message, s.Message)
			assert.Equal(t, tt.timing, s.Timing)
		})
	}
}

func TestSuggest_CueControls(t *testing.T) {
	plan := standardPlan(t)
	st := mixer.Status{DeckA: deckStatus(true, 170, 240), DeckB: deckStatus(false, 0, 260)}

	s := Suggest(st, plan, nil, DefaultThresholds())
	require.NotNil(t, s.Controls.CuePoint)
	assert.Equal(t, mixer.DeckB, s.Controls.Deck)
	assert.Equal(t, 7.5, *s.Controls.CuePoint)
}

func TestSuggest_DuringTransition(t *testing.T) {
	plan := standardPlan(t)

	tests := []struct {
		name     string
		elapsed  float64
		action   transition.Action
		timing   string
		progress float64
	}{
		{name: "start", elapsed: 0.5, action: transition.ActionStartIncoming, timing: "Next: 1 bars", progress: 0.5 / 30},
		{name: "low cut", elapsed: 4, action: transition.ActionLowCutOutgoing, timing: "Next: 0 bars", progress: 4.0 / 30},
		{name: "center", elapsed: 16, action: transition.ActionCrossfaderHalf, timing: "Next: 3 bars", progress: 16.0 / 30},
		{name: "fade", elapsed: 23, action: transition.ActionFadeOutOutgoing, timing: "Next: 3 bars", progress: 23.0 / 30},
		{name: "done", elapsed: 31, action: transition.ActionIncomingOnly, timing: "", progress: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mixer.Status{
				DeckA: deckStatus(true, plan.TransitionStart+tt.elapsed, 240),
				DeckB: deckStatus(true, 10, 260),
			}
			s := Suggest(st, plan, nil, DefaultThresholds())
			assert.Equal(t, string(tt.action), s.Action)
			assert.Equal(t, UrgencyHigh, s.Urgency)
			assert.Equal(t, tt.timing, s.Timing)
			assert.InDelta(t, tt.progress, s.Progress, 1e-9)
		})
	}
}

func TestSuggest_TimelineControls(t *testing.T) {
	plan := standardPlan(t)
	st := mixer.Status{
		DeckA: deckStatus(true, plan.TransitionStart+4, 240),
		DeckB: deckStatus(true, 10, 260),
	}

	s := Suggest(st, plan, nil, DefaultThresholds())
	require.NotNil(t, s.Controls.EQ)
	assert.Equal(t, mixer.DeckA, s.Controls.Deck)
	assert.Equal(t, effects.BandBass, s.Controls.EQ.Band)
	assert.Equal(t, 0.2, s.Controls.EQ.Gain)

	st.DeckA.Position = plan.TransitionStart + 16
	s = Suggest(st, plan, nil, DefaultThresholds())
	require.NotNil(t, s.Controls.Crossfader)
	assert.Equal(t, 0.0, *s.Controls.Crossfader)
}

func TestSuggest_CutGainFollowsThresholds(t *testing.T) {
	plan := standardPlan(t)
	st := mixer.Status{
		DeckA: deckStatus(true, plan.TransitionStart+4, 240),
		DeckB: deckStatus(true, 10, 260),
	}

	for _, cut := range []float64{0, 0.35} {
		th := DefaultThresholds()
		th.EQCut = cut
		s := Suggest(st, plan, nil, th)
		require.NotNil(t, s.Controls.EQ)
		assert.Equal(t, cut, s.Controls.EQ.Gain)
	}
}

func TestEnergyAdvice(t *testing.T) {
	assert.Contains(t, EnergyAdvice(0.4, 0.7), "Energy up")
	assert.Contains(t, EnergyAdvice(0.8, 0.5), "Energy down")
	assert.Contains(t, EnergyAdvice(0.5, 0.6), "Similar energy")
}

func TestSuggestLoop(t *testing.T) {
	hint, ok := SuggestLoop(30, 240)
	require.True(t, ok)
	assert.Equal(t, 16.0, hint.Start)
	assert.Equal(t, 8, hint.Bars)

	_, ok = SuggestLoop(100, 240)
	assert.False(t, ok)
	_, ok = SuggestLoop(0, 0)
	assert.False(t, ok)
}

type fixedStatus struct {
	st mixer.Status
}

func (f *fixedStatus) Status() mixer.Status { return f.st }

func TestAdvisor_GetSuggestion(t *testing.T) {
	src := &fixedStatus{st: mixer.Status{DeckA: deckStatus(true, 195, 240)}}
	q := queue.NewManager()
	q.Add(trackB)

	a := New(src, q, transition.NewPlanner(transition.TypeStandard), DefaultThresholds())
	s := a.GetSuggestion()
	assert.Equal(t, ActionLoadNext, s.Action)
	assert.Equal(t, "b", s.Controls.Track)
	assert.Equal(t, "Deck A: 45s left", a.Summary())

	p, err := a.PlanFor(trackA, trackB, transition.TypeQuick)
	require.NoError(t, err)
	assert.Same(t, p, a.Plan())
	assert.Equal(t, 8, p.Bars)

	// a quick plan starts at 225s, 35s out
	src.st = mixer.Status{DeckA: deckStatus(true, 190, 240)}
	s = a.GetSuggestion()
	assert.Equal(t, ActionLoadDeckB, s.Action)
	assert.Equal(t, "b", s.Controls.Track)

	a.SetPlan(nil)
	src.st = mixer.Status{}
	assert.Equal(t, ActionIdle, a.GetSuggestion().Action)
	assert.Equal(t, "Ready to play", a.Summary())
}
