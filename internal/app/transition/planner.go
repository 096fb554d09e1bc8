// Package transition turns a pair of analyzed tracks into a timed
// automation schedule.
package transition

import (
	"math"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/autodeck/internal/app/compat"
	"github.com/osa030/autodeck/internal/domain/track"
)

// BeatsPerBar assumes 4/4 time.
const BeatsPerBar = 4

// Errors
var (
	ErrInsufficientData = errors.New("insufficient track data for transition")
	ErrUnknownType      = errors.New("unknown transition type")
	ErrInvalidBars      = errors.New("transition bars must be positive")
)

// Type is a named transition length.
type Type string

const (
	TypeQuick    Type = "quick"    // 8 bars
	TypeStandard Type = "standard" // 16 bars
	TypeLong     Type = "long"     // 32 bars
)

// Bars returns the bar count of the type.
func (t Type) Bars() int {
	switch t {
	case TypeQuick:
		return 8
	case TypeLong:
		return 32
	default:
		return 16
	}
}

// ParseType parses a transition type name. The empty string is standard.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeQuick:
		return TypeQuick, nil
	case TypeStandard, "":
		return TypeStandard, nil
	case TypeLong:
		return TypeLong, nil
	default:
		return "", errors.Wrapf(ErrUnknownType, "type %q", s)
	}
}

// customType labels plans built from an explicit bar count.
func customType(bars int) Type {
	for _, t := range []Type{TypeQuick, TypeStandard, TypeLong} {
		if t.Bars() == bars {
			return t
		}
	}
	return "custom"
}

// Event is one scheduled action within a transition.
type Event struct {
	Beat        int     // Beat offset from transition start
	Time        float64 // Seconds from transition start
	Action      Action
	Description string
}

// Speed classifies how fast a pair should be mixed.
type Speed string

const (
	SpeedSmooth   Speed = "smooth"
	SpeedModerate Speed = "moderate"
	SpeedQuick    Speed = "quick"
)

// EQStrategy describes how the bands should be swapped.
type EQStrategy string

const (
	EQGradualIncrease EQStrategy = "gradual_energy_increase"
	EQEnergyDecrease  EQStrategy = "energy_decrease"
	EQBalanced        EQStrategy = "balanced"
)

// Confidence of a strategy.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Strategy is the mixing recommendation for a track pair.
type Strategy struct {
	Speed              Speed
	RecommendedBars    int
	BPMDiff            float64 // Rounded to 0.1
	EnergyDiff         float64 // Rounded to 0.01
	EQStrategy         EQStrategy
	EQNotes            string
	RecommendedEffects []string
	Confidence         Confidence
}

// Plan is an immutable transition schedule between two tracks.
type Plan struct {
	TrackA             string  // Outgoing track ID
	TrackB             string  // Incoming track ID
	BPMA               float64
	BPMB               float64
	TransitionStart    float64 // Seconds into track A
	TransitionStartBar int
	CuePoint           float64 // Seconds into track B
	CuePointBar        int
	Duration           float64 // Seconds
	Bars               int
	BarLength          float64 // Seconds, from track A tempo
	Type               Type
	Timeline           []Event
	Strategy           Strategy
	Compatibility      float64
}

// End returns the position in track A at which the transition ends.
func (p *Plan) End() float64 {
	return p.TransitionStart + p.Duration
}

// Locate returns the index of the last event at or before elapsed seconds
// (-1 when none has passed) and the index of the next event (len(Timeline)
// when all have passed).
func (p *Plan) Locate(elapsed float64) (last, next int) {
	last = -1
	for i, e := range p.Timeline {
		if e.Time <= elapsed {
			last = i
			continue
		}
		break
	}
	return last, last + 1
}

// BarLength returns the length of one bar in seconds.
func BarLength(bpm float64) float64 {
	return 60.0 / bpm * BeatsPerBar
}

// Planner builds transition plans.
type Planner struct {
	defaultType Type
}

// NewPlanner creates a planner. An empty default type means standard.
func NewPlanner(defaultType Type) *Planner {
	if defaultType == "" {
		defaultType = TypeStandard
	}
	return &Planner{defaultType: defaultType}
}

// DefaultType returns the type used when none is requested.
func (p *Planner) DefaultType() Type {
	return p.defaultType
}

// Plan builds the plan for a named transition type. An empty type uses the
// planner default; any other name must be a known type.
func (p *Planner) Plan(a, b track.Metadata, typ Type) (*Plan, error) {
	if typ == "" {
		typ = p.defaultType
	}
	typ, err := ParseType(string(typ))
	if err != nil {
		return nil, err
	}
	plan, err := p.PlanBars(a, b, typ.Bars())
	if err != nil {
		return nil, err
	}
	plan.Type = typ
	return plan, nil
}

// PlanBars builds the plan for an explicit bar count.
func (p *Planner) PlanBars(a, b track.Metadata, bars int) (*Plan, error) {
	if bars <= 0 {
		return nil, errors.Wrapf(ErrInvalidBars, "bars=%d", bars)
	}
	if !a.HasTiming() {
		return nil, errors.Wrapf(ErrInsufficientData, "track %q: bpm=%.2f duration=%.2f", a.ID, a.BPM, a.Duration)
	}
	if !b.HasTiming() {
		return nil, errors.Wrapf(ErrInsufficientData, "track %q: bpm=%.2f duration=%.2f", b.ID, b.BPM, b.Duration)
	}

	barLength := BarLength(a.BPM)
	duration := float64(bars) * barLength
	start := math.Max(0, a.Duration-duration)
	cue := CuePoint(b)

	return &Plan{
		TrackA:             a.ID,
		TrackB:             b.ID,
		BPMA:               a.BPM,
		BPMB:               b.BPM,
		TransitionStart:    start,
		TransitionStartBar: int(start / barLength),
		CuePoint:           cue,
		CuePointBar:        int(cue / BarLength(b.BPM)),
		Duration:           duration,
		Bars:               bars,
		BarLength:          barLength,
		Type:               customType(bars),
		Timeline:           timeline(bars, barLength),
		Strategy:           MixStrategy(a, b),
		Compatibility:      compat.Score(a, b),
	}, nil
}

// CuePoint returns where the incoming track should start: the 17th beat,
// else the 9th, else 0. Without beats it is 16 beats at the track tempo.
func CuePoint(t track.Metadata) float64 {
	switch n := len(t.Beats); {
	case n > 16:
		return t.Beats[16]
	case n > 8:
		return t.Beats[8]
	case n > 0:
		return 0
	}
	bpm := t.BPM
	if bpm <= 0 {
		bpm = 120
	}
	return 16 * 60.0 / bpm
}

// MixStrategy derives the mixing recommendation for a pair.
func MixStrategy(a, b track.Metadata) Strategy {
	bpmDiff := math.Abs(a.BPM - b.BPM)
	ea, eb := a.EnergyLevel(), b.EnergyLevel()
	energyDiff := math.Abs(ea - eb)

	s := Strategy{
		BPMDiff:            math.Round(bpmDiff*10) / 10,
		EnergyDiff:         math.Round(energyDiff*100) / 100,
		RecommendedEffects: []string{},
	}

	switch {
	case bpmDiff <= 3:
		s.Speed, s.RecommendedBars = SpeedSmooth, 16
	case bpmDiff <= 6:
		s.Speed, s.RecommendedBars = SpeedModerate, 12
	default:
		s.Speed, s.RecommendedBars = SpeedQuick, 8
	}

	switch {
	case eb > ea:
		s.EQStrategy = EQGradualIncrease
		s.EQNotes = "Gradually introduce high-end first, then mids, then bass"
	case eb < ea:
		s.EQStrategy = EQEnergyDecrease
		s.EQNotes = "Quick bass swap, fade highs slowly"
	default:
		s.EQStrategy = EQBalanced
		s.EQNotes = "Standard EQ swap (lows first, then highs)"
	}

	if bpmDiff > 3 {
		s.RecommendedEffects = append(s.RecommendedEffects, "tempo_sync")
	}
	if energyDiff > 0.2 {
		s.RecommendedEffects = append(s.RecommendedEffects, "reverb_wash")
	}

	switch {
	case bpmDiff <= 3 && energyDiff <= 0.15:
		s.Confidence = ConfidenceHigh
	case bpmDiff <= 6 && energyDiff <= 0.3:
		s.Confidence = ConfidenceMedium
	default:
		s.Confidence = ConfidenceLow
	}
	return s
}
