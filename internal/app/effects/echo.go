package effects

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// MaxEchoDelay is the delay line length in seconds.
const MaxEchoDelay = 2.0

// EchoSettings configures the feedback delay.
type EchoSettings struct {
	Enabled   bool    `mapstructure:"-"`
	DelayTime float64 `yaml:"delay_time" mapstructure:"delay_time" default:"0.5" validate:"gt=0,lte=2"`
	Feedback  float64 `yaml:"feedback" mapstructure:"feedback" default:"0.3" validate:"gte=0,lt=1"`
	Wet       float64 `yaml:"wet" mapstructure:"wet" default:"0" validate:"gte=0,lte=1"`
}

// Echo is a mono feedback delay line added to both channels. A wet level
// of zero bypasses it.
type Echo struct {
	sampleRate float64
	delayTime  float64
	feedback   float64
	wet        float64
	delay      int
	buf        []float64
	pos        int
}

// NewEcho creates a dry echo.
func NewEcho(sampleRate float64) *Echo {
	n := int(MaxEchoDelay * sampleRate)
	if n < 1 {
		n = 1
	}
	e := &Echo{
		sampleRate: sampleRate,
		feedback:   0.3,
		buf:        make([]float64, n),
	}
	e.setDelay(0.5)
	return e
}

func (e *Echo) Name() string {
	return StageEcho
}

func (e *Echo) Description() string {
	return "Mono feedback echo (up to 2 s)"
}

func (e *Echo) SettingsKeys() []string {
	return []string{"delay_time", "feedback", "wet"}
}

func (e *Echo) ValidateConfig(settings map[string]any) error {
	var s EchoSettings
	if err := decodeSettings(settings, &s); err != nil {
		return errors.Wrap(err, "echo")
	}
	e.Apply(s)
	zlog.Debug().Msgf("echo config: %+v", s)
	return nil
}

// Settings returns the current parameters.
func (e *Echo) Settings() EchoSettings {
	return EchoSettings{DelayTime: e.delayTime, Feedback: e.feedback, Wet: e.wet}
}

// Apply sets the parameters. Values are clamped to their ranges.
func (e *Echo) Apply(s EchoSettings) {
	e.setDelay(s.DelayTime)
	e.feedback = clamp(s.Feedback, 0, 0.99)
	e.wet = clamp(s.Wet, 0, 1)
}

func (e *Echo) setDelay(seconds float64) {
	e.delayTime = clamp(seconds, 0, MaxEchoDelay)
	d := int(e.delayTime * e.sampleRate)
	if d < 1 {
		d = 1
	}
	if d > len(e.buf) {
		d = len(e.buf)
	}
	e.delay = d
}

func (e *Echo) Process(buf [][2]float64) {
	if e.wet == 0 {
		return
	}
	n := len(e.buf)
	for i := range buf {
		mono := (buf[i][0] + buf[i][1]) / 2
		delayed := e.buf[(e.pos-e.delay+n)%n]
		e.buf[e.pos] = mono + delayed*e.feedback
		e.pos = (e.pos + 1) % n

		buf[i][0] += delayed * e.wet
		buf[i][1] += delayed * e.wet
	}
}

func (e *Echo) Reset() {
	for i := range e.buf {
		e.buf[i] = 0
	}
	e.pos = 0
}

func init() {
	Register(StageEcho, func(sampleRate float64) Stage {
		return NewEcho(sampleRate)
	})
}
