package effects

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// reverbTapsMs are the prime-length tap delays before room scaling.
var reverbTapsMs = [4]float64{23, 41, 59, 79}

// reverbBufferSeconds bounds the longest tap.
const reverbBufferSeconds = 0.1

// ReverbSettings configures the multi-tap reverb.
type ReverbSettings struct {
	Enabled  bool    `mapstructure:"-"`
	Wet      float64 `yaml:"wet" mapstructure:"wet" default:"0" validate:"gte=0,lte=1"`
	Decay    float64 `yaml:"decay" mapstructure:"decay" default:"0.5" validate:"gte=0,lte=1"`
	RoomSize float64 `yaml:"room_size" mapstructure:"room_size" default:"0.5" validate:"gt=0,lte=1"`
}

// Reverb is a fixed multi-tap delay mixed wet/dry. A wet level of zero
// bypasses it.
type Reverb struct {
	sampleRate float64
	wet        float64
	decay      float64
	roomSize   float64
	taps       [4]int
	buf        [][2]float64
	pos        int
}

// NewReverb creates a dry reverb.
func NewReverb(sampleRate float64) *Reverb {
	n := int(reverbBufferSeconds * sampleRate)
	if n < 1 {
		n = 1
	}
	r := &Reverb{
		sampleRate: sampleRate,
		decay:      0.5,
		roomSize:   0.5,
		buf:        make([][2]float64, n),
	}
	r.updateTaps()
	return r
}

func (r *Reverb) Name() string {
	return StageReverb
}

func (r *Reverb) Description() string {
	return "Multi-tap delay reverb (23/41/59/79 ms scaled by room size)"
}

func (r *Reverb) SettingsKeys() []string {
	return []string{"wet", "decay", "room_size"}
}

func (r *Reverb) ValidateConfig(settings map[string]any) error {
	var s ReverbSettings
	if err := decodeSettings(settings, &s); err != nil {
		return errors.Wrap(err, "reverb")
	}
	r.Apply(s)
	zlog.Debug().Msgf("reverb config: %+v", s)
	return nil
}

// Settings returns the current parameters.
func (r *Reverb) Settings() ReverbSettings {
	return ReverbSettings{Wet: r.wet, Decay: r.decay, RoomSize: r.roomSize}
}

// Apply sets the parameters. Values are clamped to their ranges.
func (r *Reverb) Apply(s ReverbSettings) {
	r.wet = clamp(s.Wet, 0, 1)
	r.decay = clamp(s.Decay, 0, 1)
	room := clamp(s.RoomSize, 0, 1)
	if room != r.roomSize {
		r.roomSize = room
		r.updateTaps()
	}
}

func (r *Reverb) updateTaps() {
	for i, ms := range reverbTapsMs {
		d := int(ms * r.sampleRate / 1000 * r.roomSize)
		if d < 1 {
			d = 1
		}
		if d > len(r.buf) {
			d = len(r.buf)
		}
		r.taps[i] = d
	}
}

func (r *Reverb) Process(buf [][2]float64) {
	if r.wet == 0 {
		return
	}
	n := len(r.buf)
	gain := r.decay / float64(len(r.taps))
	for i := range buf {
		x := buf[i]
		var tail [2]float64
		for _, d := range r.taps {
			tap := r.buf[(r.pos-d+n)%n]
			tail[0] += tap[0]
			tail[1] += tap[1]
		}
		r.buf[r.pos] = x
		r.pos = (r.pos + 1) % n

		for ch := 0; ch < 2; ch++ {
			wet := x[ch] + tail[ch]*gain
			buf[i][ch] = x[ch]*(1-r.wet) + wet*r.wet
		}
	}
}

func (r *Reverb) Reset() {
	for i := range r.buf {
		r.buf[i] = [2]float64{}
	}
	r.pos = 0
}

func init() {
	Register(StageReverb, func(sampleRate float64) Stage {
		return NewReverb(sampleRate)
	})
}
