package effects

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Settings is a snapshot of every stage's parameters and enable flag.
type Settings struct {
	EQ     EQSettings
	Filter FilterSettings
	Reverb ReverbSettings
	Echo   EchoSettings
}

// DefaultSettings returns neutral settings with only the EQ enabled.
func DefaultSettings() Settings {
	return Settings{
		EQ:     EQSettings{Enabled: true, Bass: 1, Mid: 1, High: 1},
		Filter: FilterSettings{Mode: ModeLowpass, Cutoff: MaxCutoff},
		Reverb: ReverbSettings{Decay: 0.5, RoomSize: 0.5},
		Echo:   EchoSettings{DelayTime: 0.5, Feedback: 0.3},
	}
}

// Chain runs the enabled stages in fixed order: EQ, filter, reverb, echo.
// The mutex guards both parameters and stage memory and is held only for
// the duration of a single call.
type Chain struct {
	mu sync.Mutex

	eq     *EQ
	filter *Filter
	reverb *Reverb
	echo   *Echo

	enabled map[string]bool
}

// NewChain creates a chain with default settings.
func NewChain(sampleRate float64) *Chain {
	c := &Chain{
		eq:      NewEQ(sampleRate),
		filter:  NewFilter(sampleRate),
		reverb:  NewReverb(sampleRate),
		echo:    NewEcho(sampleRate),
		enabled: make(map[string]bool, len(Order)),
	}
	c.applyLocked(DefaultSettings())
	return c
}

// Process applies the enabled stages to buf in place.
func (c *Chain) Process(buf [][2]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(buf) == 0 {
		return
	}
	if c.enabled[StageEQ] {
		c.eq.Process(buf)
	}
	if c.enabled[StageFilter] {
		c.filter.Process(buf)
	}
	if c.enabled[StageReverb] {
		c.reverb.Process(buf)
	}
	if c.enabled[StageEcho] {
		c.echo.Process(buf)
	}
}

// Configure validates settings for a named stage, applies them and sets
// its enable flag.
func (c *Chain) Configure(name string, enabled bool, settings map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.stageLocked(name)
	if st == nil {
		return errors.Wrapf(ErrUnknownStage, "stage %q", name)
	}
	if err := st.ValidateConfig(settings); err != nil {
		return err
	}
	c.enabled[name] = enabled
	return nil
}

// Stages returns the stages in processing order.
func (c *Chain) Stages() []Stage {
	return []Stage{c.eq, c.filter, c.reverb, c.echo}
}

func (c *Chain) stageLocked(name string) Stage {
	switch name {
	case StageEQ:
		return c.eq
	case StageFilter:
		return c.filter
	case StageReverb:
		return c.reverb
	case StageEcho:
		return c.echo
	default:
		return nil
	}
}

// SetEnabled turns a stage on or off.
func (c *Chain) SetEnabled(name string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stageLocked(name) == nil {
		return errors.Wrapf(ErrUnknownStage, "stage %q", name)
	}
	c.enabled[name] = enabled
	return nil
}

// Enabled reports whether a stage is on.
func (c *Chain) Enabled(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled[name]
}

// SetEQ sets one band gain, clamped to [0,2].
func (c *Chain) SetEQ(b Band, gain float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eq.SetGain(b, gain)
}

// EQGain returns one band gain.
func (c *Chain) EQGain(b Band) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eq.Gain(b)
}

// SetFilter sets mode and cutoff. Filter memory is reset on change.
func (c *Chain) SetFilter(mode Mode, cutoff float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.Apply(FilterSettings{Mode: mode, Cutoff: cutoff})
}

// SetReverb sets the reverb parameters.
func (c *Chain) SetReverb(wet, decay, roomSize float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reverb.Apply(ReverbSettings{Wet: wet, Decay: decay, RoomSize: roomSize})
}

// SetEcho sets the echo parameters.
func (c *Chain) SetEcho(delayTime, feedback, wet float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.echo.Apply(EchoSettings{DelayTime: delayTime, Feedback: feedback, Wet: wet})
}

// Settings returns a snapshot of all parameters.
func (c *Chain) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Settings{
		EQ:     c.eq.Settings(),
		Filter: c.filter.Settings(),
		Reverb: c.reverb.Settings(),
		Echo:   c.echo.Settings(),
	}
	s.EQ.Enabled = c.enabled[StageEQ]
	s.Filter.Enabled = c.enabled[StageFilter]
	s.Reverb.Enabled = c.enabled[StageReverb]
	s.Echo.Enabled = c.enabled[StageEcho]
	return s
}

// Apply replaces all parameters and enable flags.
func (c *Chain) Apply(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(s)
}

func (c *Chain) applyLocked(s Settings) {
	c.eq.Apply(s.EQ)
	c.filter.Apply(s.Filter)
	c.reverb.Apply(s.Reverb)
	c.echo.Apply(s.Echo)
	c.enabled[StageEQ] = s.EQ.Enabled
	c.enabled[StageFilter] = s.Filter.Enabled
	c.enabled[StageReverb] = s.Reverb.Enabled
	c.enabled[StageEcho] = s.Echo.Enabled
}

// CopyFrom takes over the parameters of another chain. Stage memory is
// cleared. The two chains are never locked at the same time.
func (c *Chain) CopyFrom(o *Chain) {
	s := o.Settings()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(s)
	c.resetStateLocked()
}

// Reset restores default settings and clears all stage memory.
func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(DefaultSettings())
	c.resetStateLocked()
}

func (c *Chain) resetStateLocked() {
	c.eq.Reset()
	c.filter.Reset()
	c.reverb.Reset()
	c.echo.Reset()
}
