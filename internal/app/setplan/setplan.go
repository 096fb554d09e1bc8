// Package setplan builds a read-only roadmap of what automation would do
// with a track sequence.
package setplan

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/autodeck/internal/app/compat"
	"github.com/osa030/autodeck/internal/app/mixer"
	"github.com/osa030/autodeck/internal/app/transition"
	"github.com/osa030/autodeck/internal/domain/track"
)

// ErrNotEnoughTracks is returned for sequences shorter than two tracks.
var ErrNotEnoughTracks = errors.New("need at least 2 tracks for a set")

// Roadmap actions that are not timeline actions.
const (
	ActionStartSet  = "start_set"
	ActionLoadNext  = "load_next"
	ActionStartNext = "start_next"
)

// EnergyFlow describes the energy change across a transition.
type EnergyFlow string

const (
	EnergyUp     EnergyFlow = "up"
	EnergyDown   EnergyFlow = "down"
	EnergySteady EnergyFlow = "steady"
)

// FlowOf classifies the energy change with a 0.2 dead band.
func FlowOf(from, to float64) EnergyFlow {
	switch diff := to - from; {
	case diff > 0.2:
		return EnergyUp
	case diff < -0.2:
		return EnergyDown
	default:
		return EnergySteady
	}
}

// Event is one roadmap entry at absolute set time.
type Event struct {
	Time        float64 // Seconds from set start
	TimeStr     string  // MM:SS
	Action      string
	Description string
	TrackIndex  int
	Deck        mixer.DeckID
	Beat        int // Timeline beat, template events only
}

// TransitionSummary describes one planned transition.
type TransitionSummary struct {
	From          string
	To            string
	Duration      float64
	Bars          int
	Speed         transition.Speed
	EQStrategy    transition.EQStrategy
	Compatibility float64
	Rating        compat.Rating
	BPMDiff       float64
	EnergyFlow    EnergyFlow
}

// TrackEntry is one row of the track list.
type TrackEntry struct {
	Index    int
	Name     string
	Duration float64
	BPM      float64
	Key      string
	Camelot  string
	Energy   float64
}

// VisualPlan is the roadmap of a set.
type VisualPlan struct {
	Tracks           int
	TotalDuration    float64 // Seconds, overlap removed
	TotalDurationStr string  // "Xm Ys"
	Timeline         []Event
	Transitions      []TransitionSummary
	TrackList        []TrackEntry
}

// Planner builds visual plans with the same leads the automation engine
// uses.
type Planner struct {
	planner   *transition.Planner
	typ       transition.Type
	loadLead  float64
	startLead float64
}

// NewPlanner creates a set planner.
func NewPlanner(p *transition.Planner, typ transition.Type, loadLead, startLead time.Duration) *Planner {
	return &Planner{
		planner:   p,
		typ:       typ,
		loadLead:  loadLead.Seconds(),
		startLead: startLead.Seconds(),
	}
}

// BuildVisualPlan plans every consecutive pair and lays the result out on
// the set clock.
func (p *Planner) BuildVisualPlan(tracks []track.Metadata) (*VisualPlan, error) {
	if len(tracks) < 2 {
		return nil, errors.Wrapf(ErrNotEnoughTracks, "got %d", len(tracks))
	}

	vp := &VisualPlan{Tracks: len(tracks)}
	vp.Timeline = append(vp.Timeline, Event{
		TimeStr:     FormatClock(0),
		Action:      ActionStartSet,
		Description: "Start playing: " + tracks[0].Name(),
		Deck:        mixer.DeckA,
	})

	var base float64
	for i := 0; i < len(tracks)-1; i++ {
		from, to := tracks[i], tracks[i+1]
		plan, err := p.planner.Plan(from, to, p.typ)
		if err != nil {
			return nil, errors.Wrapf(err, "plan transition %d", i)
		}

		vp.Timeline = append(vp.Timeline, p.transitionEvents(plan, base, i+1, to)...)
		vp.Transitions = append(vp.Transitions, TransitionSummary{
			From:          from.Name(),
			To:            to.Name(),
			Duration:      plan.Duration,
			Bars:          plan.Bars,
			Speed:         plan.Strategy.Speed,
			EQStrategy:    plan.Strategy.EQStrategy,
			Compatibility: plan.Compatibility,
			Rating:        compat.RatingFor(plan.Compatibility),
			BPMDiff:       math.Abs(from.BPM - to.BPM),
			EnergyFlow:    FlowOf(from.EnergyLevel(), to.EnergyLevel()),
		})

		base += from.Duration - plan.Duration
	}
	vp.TotalDuration = base + tracks[len(tracks)-1].Duration
	vp.TotalDurationStr = FormatDuration(vp.TotalDuration)

	for i, t := range tracks {
		vp.TrackList = append(vp.TrackList, TrackEntry{
			Index:    i,
			Name:     t.Name(),
			Duration: t.Duration,
			BPM:      t.BPM,
			Key:      t.KeyLabel(),
			Camelot:  t.Camelot,
			Energy:   t.EnergyLevel(),
		})
	}
	return vp, nil
}

// transitionEvents returns the load, start and timeline events of one
// transition. base is the set time at which the outgoing track started.
func (p *Planner) transitionEvents(plan *transition.Plan, base float64, next int, to track.Metadata) []Event {
	start := base + plan.TransitionStart
	load := math.Max(base, start-p.loadLead)
	cue := math.Max(base, start-p.startLead)

	events := []Event{
		{
			Time:        load,
			TimeStr:     FormatClock(load),
			Action:      ActionLoadNext,
			Description: fmt.Sprintf("Load to deck B: %s (cue %.1fs)", to.Name(), plan.CuePoint),
			TrackIndex:  next,
			Deck:        mixer.DeckB,
		},
		{
			Time:        cue,
			TimeStr:     FormatClock(cue),
			Action:      ActionStartNext,
			Description: "Start deck B (silent on crossfader)",
			TrackIndex:  next,
			Deck:        mixer.DeckB,
		},
	}
	for _, ev := range plan.Timeline {
		at := start + ev.Time
		events = append(events, Event{
			Time:        at,
			TimeStr:     FormatClock(at),
			Action:      string(ev.Action),
			Description: ev.Description,
			TrackIndex:  next,
			Beat:        ev.Beat,
		})
	}
	return events
}

// Suggestions returns hints for the events following position (seconds of
// set time).
func Suggestions(vp *VisualPlan, position float64) []string {
	var upcoming []Event
	for _, ev := range vp.Timeline {
		if ev.Time > position {
			upcoming = append(upcoming, ev)
			if len(upcoming) == 3 {
				break
			}
		}
	}
	if len(upcoming) == 0 {
		return []string{"Set ending soon!"}
	}

	var out []string
	next := upcoming[0]
	if next.Time-position < 10 {
		out = append(out, "Coming up: "+next.Description)
	}
	if strings.Contains(next.Action, "eq") {
		out = append(out, "Tip: you can adjust EQ manually for creative flair")
	}
	if strings.Contains(next.Action, "crossfader") {
		out = append(out, "Try moving the crossfader yourself for more control")
	}
	if len(upcoming) > 1 {
		out = append(out, "Next: "+upcoming[1].Description)
	}
	return out
}

// FormatClock formats seconds as MM:SS.
func FormatClock(seconds float64) string {
	s := int(math.Max(0, seconds))
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// FormatDuration formats seconds as "Xm Ys".
func FormatDuration(seconds float64) string {
	s := int(math.Max(0, seconds))
	return fmt.Sprintf("%dm %ds", s/60, s%60)
}
