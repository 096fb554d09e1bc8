package effects

import (
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Band crossover frequencies in Hz.
const (
	LowCrossover  = 250.0
	HighCrossover = 4000.0
)

// Gain limits. 1 is neutral, 0 is a kill.
const (
	MinGain = 0.0
	MaxGain = 2.0
)

// ErrUnknownBand is returned for an unknown EQ band name.
var ErrUnknownBand = errors.New("unknown eq band")

// Band is an EQ band.
type Band int

const (
	BandBass Band = iota // < 250 Hz
	BandMid              // 250 Hz - 4 kHz
	BandHigh             // > 4 kHz
)

// Bands lists all bands.
var Bands = []Band{BandBass, BandMid, BandHigh}

// String returns the string representation of the band.
func (b Band) String() string {
	switch b {
	case BandBass:
		return "bass"
	case BandMid:
		return "mid"
	case BandHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseBand parses a band name. "low" is accepted for bass.
func ParseBand(s string) (Band, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bass", "low":
		return BandBass, nil
	case "mid":
		return BandMid, nil
	case "high":
		return BandHigh, nil
	default:
		return 0, errors.Wrapf(ErrUnknownBand, "band %q", s)
	}
}

// EQSettings holds the three band gains.
type EQSettings struct {
	Enabled bool    `mapstructure:"-" default:"true"`
	Bass    float64 `yaml:"bass" mapstructure:"bass" default:"1" validate:"gte=0,lte=2"`
	Mid     float64 `yaml:"mid" mapstructure:"mid" default:"1" validate:"gte=0,lte=2"`
	High    float64 `yaml:"high" mapstructure:"high" default:"1" validate:"gte=0,lte=2"`
}

// Gain returns the gain of a band.
func (s EQSettings) Gain(b Band) float64 {
	switch b {
	case BandBass:
		return s.Bass
	case BandMid:
		return s.Mid
	default:
		return s.High
	}
}

// EQ is a three-band equalizer. The input is split by parallel 4th-order
// Butterworth filters and the bands are summed after gain.
type EQ struct {
	gains [3]float64
	low   butter4
	midHP butter4
	midLP butter4
	high  butter4
}

// NewEQ creates a neutral EQ.
func NewEQ(sampleRate float64) *EQ {
	return &EQ{
		gains: [3]float64{1, 1, 1},
		low:   newButter4(kindLowpass, sampleRate, LowCrossover),
		midHP: newButter4(kindHighpass, sampleRate, LowCrossover),
		midLP: newButter4(kindLowpass, sampleRate, HighCrossover),
		high:  newButter4(kindHighpass, sampleRate, HighCrossover),
	}
}

func (e *EQ) Name() string {
	return StageEQ
}

func (e *EQ) Description() string {
	return "Three-band EQ (bass < 250 Hz, mid 250 Hz - 4 kHz, high > 4 kHz)"
}

func (e *EQ) SettingsKeys() []string {
	return []string{"bass", "mid", "high"}
}

func (e *EQ) ValidateConfig(settings map[string]any) error {
	var s EQSettings
	if err := decodeSettings(settings, &s); err != nil {
		return errors.Wrap(err, "eq")
	}
	e.Apply(s)
	zlog.Debug().Msgf("eq config: %+v", s)
	return nil
}

// SetGain sets one band gain, clamped to [0,2].
func (e *EQ) SetGain(b Band, gain float64) {
	if b < BandBass || b > BandHigh {
		return
	}
	e.gains[b] = clamp(gain, MinGain, MaxGain)
}

// Gain returns one band gain.
func (e *EQ) Gain(b Band) float64 {
	if b < BandBass || b > BandHigh {
		return 0
	}
	return e.gains[b]
}

// Settings returns the current gains. Enabled is owned by the chain.
func (e *EQ) Settings() EQSettings {
	return EQSettings{Bass: e.gains[BandBass], Mid: e.gains[BandMid], High: e.gains[BandHigh]}
}

// Apply sets all gains. Filter memory is kept.
func (e *EQ) Apply(s EQSettings) {
	e.SetGain(BandBass, s.Bass)
	e.SetGain(BandMid, s.Mid)
	e.SetGain(BandHigh, s.High)
}

func (e *EQ) Process(buf [][2]float64) {
	gb, gm, gh := e.gains[BandBass], e.gains[BandMid], e.gains[BandHigh]
	for i := range buf {
		for ch := 0; ch < 2; ch++ {
			x := buf[i][ch]
			lo := e.low.process(ch, x)
			mid := e.midLP.process(ch, e.midHP.process(ch, x))
			hi := e.high.process(ch, x)
			buf[i][ch] = lo*gb + mid*gm + hi*gh
		}
	}
}

func (e *EQ) Reset() {
	e.low.reset()
	e.midHP.reset()
	e.midLP.reset()
	e.high.reset()
}

func init() {
	Register(StageEQ, func(sampleRate float64) Stage {
		return NewEQ(sampleRate)
	})
}
