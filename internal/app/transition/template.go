package transition

import "math"

// Action is a timeline action tag.
type Action string

const (
	ActionStartIncoming   Action = "start_deck_b"
	ActionLowCutOutgoing  Action = "eq_low_cut_deck_a_start"
	ActionLowIntroduce    Action = "eq_low_introduce_deck_b"
	ActionMidIntroduce    Action = "eq_mid_introduce_deck_b"
	ActionHighIntroduce   Action = "eq_high_introduce_deck_b"
	ActionCrossfaderHalf  Action = "crossfader_50_50"
	ActionFadeOutOutgoing Action = "fade_out_deck_a"
	ActionIncomingOnly    Action = "deck_b_only"
)

var actionDescriptions = map[Action]string{
	ActionStartIncoming:   "Start playing track B (silent)",
	ActionLowCutOutgoing:  "Start cutting lows on track A",
	ActionLowIntroduce:    "Introduce lows on track B",
	ActionMidIntroduce:    "Introduce mids on track B",
	ActionHighIntroduce:   "Introduce highs on track B",
	ActionCrossfaderHalf:  "Crossfader at 50/50",
	ActionFadeOutOutgoing: "Fade out track A",
	ActionIncomingOnly:    "Track B only playing",
}

// Description returns the human readable text of an action.
func (a Action) Description() string {
	if d, ok := actionDescriptions[a]; ok {
		return d
	}
	return string(a)
}

type step struct {
	beat   int
	action Action
}

// templates are the fixed schedules keyed by bar count.
var templates = map[int][]step{
	8: {
		{0, ActionStartIncoming},
		{4, ActionLowCutOutgoing},
		{8, ActionLowIntroduce},
		{16, ActionCrossfaderHalf},
		{24, ActionFadeOutOutgoing},
		{32, ActionIncomingOnly},
	},
	16: {
		{0, ActionStartIncoming},
		{8, ActionLowCutOutgoing},
		{12, ActionLowIntroduce},
		{32, ActionCrossfaderHalf},
		{48, ActionFadeOutOutgoing},
		{64, ActionIncomingOnly},
	},
	32: {
		{0, ActionStartIncoming},
		{16, ActionHighIntroduce},
		{32, ActionMidIntroduce},
		{48, ActionLowCutOutgoing},
		{64, ActionLowIntroduce},
		{80, ActionCrossfaderHalf},
		{96, ActionFadeOutOutgoing},
		{128, ActionIncomingOnly},
	},
}

// templateBars lists template sizes in ascending order.
var templateBars = []int{8, 16, 32}

// nearestTemplate returns the template size closest to bars. Ties go to
// the shorter template.
func nearestTemplate(bars int) int {
	best := templateBars[0]
	for _, tb := range templateBars[1:] {
		if abs(tb-bars) < abs(best-bars) {
			best = tb
		}
	}
	return best
}

// timeline builds the events for a transition of the given length. Bar
// counts without their own template reuse the nearest template's beat
// proportions.
func timeline(bars int, barLength float64) []Event {
	tb := nearestTemplate(bars)
	steps := templates[tb]
	total := bars * BeatsPerBar
	beatLength := barLength / BeatsPerBar

	events := make([]Event, len(steps))
	for i, s := range steps {
		beat := s.beat
		if tb != bars {
			beat = int(math.Round(float64(s.beat) * float64(bars) / float64(tb)))
		}
		if i == len(steps)-1 {
			beat = total
		}
		events[i] = Event{
			Beat:        beat,
			Time:        float64(beat) * beatLength,
			Action:      s.action,
			Description: s.action.Description(),
		}
	}
	return events
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
