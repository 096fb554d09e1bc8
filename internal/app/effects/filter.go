package effects

import (
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Cutoff limits in Hz.
const (
	MinCutoff = 20.0
	MaxCutoff = 20000.0
)

// ErrUnknownMode is returned for an unknown filter mode.
var ErrUnknownMode = errors.New("unknown filter mode")

// Mode is the filter response.
type Mode string

const (
	ModeLowpass  Mode = "lowpass"
	ModeHighpass Mode = "highpass"
)

// ParseMode parses a filter mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLowpass:
		return ModeLowpass, nil
	case ModeHighpass:
		return ModeHighpass, nil
	default:
		return "", errors.Wrapf(ErrUnknownMode, "mode %q", s)
	}
}

// FilterSettings configures the sweepable filter.
type FilterSettings struct {
	Enabled bool    `mapstructure:"-"`
	Mode    Mode    `yaml:"mode" mapstructure:"mode" default:"lowpass" validate:"oneof=lowpass highpass"`
	Cutoff  float64 `yaml:"cutoff" mapstructure:"cutoff" default:"20000" validate:"gte=20,lte=20000"`
}

// Filter is a sweepable 4th-order lowpass/highpass filter. A cutoff at or
// above Nyquist passes the signal through.
type Filter struct {
	sampleRate float64
	mode       Mode
	cutoff     float64
	bypass     bool // cutoff at or above Nyquist
	f          butter4
}

// NewFilter creates a fully open lowpass filter.
func NewFilter(sampleRate float64) *Filter {
	f := &Filter{sampleRate: sampleRate, mode: ModeLowpass, cutoff: MaxCutoff}
	f.rebuild()
	return f
}

func (f *Filter) Name() string {
	return StageFilter
}

func (f *Filter) Description() string {
	return "Sweepable 4th-order lowpass/highpass filter"
}

func (f *Filter) SettingsKeys() []string {
	return []string{"mode", "cutoff"}
}

func (f *Filter) ValidateConfig(settings map[string]any) error {
	var s FilterSettings
	if err := decodeSettings(settings, &s); err != nil {
		return errors.Wrap(err, "filter")
	}
	f.Apply(s)
	zlog.Debug().Msgf("filter config: %+v", s)
	return nil
}

// SetCutoff sets the cutoff, clamped to [20, 20000] Hz, and resets state.
func (f *Filter) SetCutoff(hz float64) {
	f.cutoff = clamp(hz, MinCutoff, MaxCutoff)
	f.rebuild()
}

// SetMode sets the response and resets state. Unknown modes are ignored.
func (f *Filter) SetMode(m Mode) {
	if m != ModeLowpass && m != ModeHighpass {
		return
	}
	f.mode = m
	f.rebuild()
}

// Settings returns mode and cutoff.
func (f *Filter) Settings() FilterSettings {
	return FilterSettings{Mode: f.mode, Cutoff: f.cutoff}
}

// Apply sets mode and cutoff. State is reset only when either changes.
func (f *Filter) Apply(s FilterSettings) {
	mode := s.Mode
	if mode != ModeLowpass && mode != ModeHighpass {
		mode = f.mode
	}
	cutoff := clamp(s.Cutoff, MinCutoff, MaxCutoff)
	if mode == f.mode && cutoff == f.cutoff {
		return
	}
	f.mode, f.cutoff = mode, cutoff
	f.rebuild()
}

func (f *Filter) rebuild() {
	f.bypass = f.cutoff >= f.sampleRate/2
	kind := kindLowpass
	if f.mode == ModeHighpass {
		kind = kindHighpass
	}
	f.f = newButter4(kind, f.sampleRate, f.cutoff)
}

func (f *Filter) Process(buf [][2]float64) {
	if f.bypass {
		return
	}
	for i := range buf {
		buf[i][0] = f.f.process(0, buf[i][0])
		buf[i][1] = f.f.process(1, buf[i][1])
	}
}

func (f *Filter) Reset() {
	f.f.reset()
}

func init() {
	Register(StageFilter, func(sampleRate float64) Stage {
		return NewFilter(sampleRate)
	})
}
