package mixer

import (
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrLoad        = errors.New("failed to load audio")
	ErrNotLoaded   = errors.New("no track loaded")
	ErrInvalidLoop = errors.New("invalid loop region")
)

// Source is decoded stereo PCM at the mixer sample rate.
type Source struct {
	Name   string
	Frames [][2]float64
}

// Deck owns one decoded buffer and its play position. The mutex guards
// buffer, position, playing flag and loop region; it is held only while a
// single operation or frame extraction runs.
type Deck struct {
	mu sync.Mutex

	id         DeckID
	sampleRate int

	buf       [][2]float64
	trackName string
	pos       int
	playing   bool
	paused    bool
	volume    float64
	cue       int

	loopEnabled bool
	loopStart   int
	loopEnd     int
}

// NewDeck creates an empty deck.
func NewDeck(id DeckID, sampleRate int) *Deck {
	return &Deck{id: id, sampleRate: sampleRate, volume: 1.0}
}

// ID returns the deck slot.
func (d *Deck) ID() DeckID {
	return d.id
}

// Load replaces the buffer. Position and cue are reset and the loop is
// cleared. An empty source fails with ErrLoad and leaves the deck as is.
func (d *Deck) Load(src Source) error {
	if len(src.Frames) == 0 {
		return errors.Wrapf(ErrLoad, "deck %s: empty source %q", d.id, src.Name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.buf = src.Frames
	d.trackName = src.Name
	d.pos = 0
	d.cue = 0
	d.playing = false
	d.paused = false
	d.loopEnabled = false
	d.loopStart, d.loopEnd = 0, 0
	zlog.Info().Msgf("deck %s: loaded: name=%s, frames=%d", d.id, src.Name, len(src.Frames))
	return nil
}

// Unload clears the deck.
func (d *Deck) Unload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
}

func (d *Deck) clearLocked() {
	d.buf = nil
	d.trackName = ""
	d.pos = 0
	d.cue = 0
	d.playing = false
	d.paused = false
	d.loopEnabled = false
	d.loopStart, d.loopEnd = 0, 0
}

// Play starts or resumes playback.
func (d *Deck) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.buf == nil {
		return errors.Wrapf(ErrNotLoaded, "deck %s", d.id)
	}
	if d.pos >= len(d.buf) && !d.loopEnabled {
		d.pos = 0
	}
	d.playing = true
	d.paused = false
	return nil
}

// Pause pauses playback and keeps the position.
func (d *Deck) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.playing {
		d.playing = false
		d.paused = true
	}
}

// Stop stops playback and returns to the start.
func (d *Deck) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.playing = false
	d.paused = false
	d.pos = 0
}

// Cue moves the position to seconds, clamped to the buffer.
func (d *Deck) Cue(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.buf == nil {
		return errors.Wrapf(ErrNotLoaded, "deck %s", d.id)
	}
	d.pos = d.clampLocked(seconds)
	return nil
}

// SetCuePoint stores a cue point without moving the position.
func (d *Deck) SetCuePoint(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.buf == nil {
		return errors.Wrapf(ErrNotLoaded, "deck %s", d.id)
	}
	d.cue = d.clampLocked(seconds)
	return nil
}

// ReturnToCue moves the position to the stored cue point.
func (d *Deck) ReturnToCue() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = d.cue
}

// clampLocked converts seconds to a frame index in [0, len-1].
func (d *Deck) clampLocked(seconds float64) int {
	idx := int(seconds * float64(d.sampleRate))
	if idx < 0 {
		idx = 0
	}
	if idx > len(d.buf)-1 {
		idx = len(d.buf) - 1
	}
	return idx
}

// SetLoop enables a loop between start and end seconds.
func (d *Deck) SetLoop(start, end float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.buf == nil {
		return errors.Wrapf(ErrNotLoaded, "deck %s", d.id)
	}
	s := int(start * float64(d.sampleRate))
	e := int(end * float64(d.sampleRate))
	if s < 0 || e > len(d.buf) || e <= s {
		return errors.Wrapf(ErrInvalidLoop, "deck %s: start=%.3f end=%.3f", d.id, start, end)
	}
	d.loopStart, d.loopEnd = s, e
	d.loopEnabled = true
	return nil
}

// ClearLoop disables the loop.
func (d *Deck) ClearLoop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loopEnabled = false
}

// SetVolume sets the deck volume, clamped to [0,1].
func (d *Deck) SetVolume(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	d.volume = v
}

// ReadFrame fills dst with the next frames. It always writes exactly
// len(dst) frames: silence when not playing, empty or exhausted. An
// enabled loop splices back to its start, and a playhead already past the
// loop end jumps to the loop start; reaching the end of the buffer outside
// a loop stops playback.
func (d *Deck) ReadFrame(dst [][2]float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	filled := 0
	for filled < len(dst) && d.playing && d.buf != nil {
		if d.loopEnabled && d.pos >= d.loopEnd {
			d.pos = d.loopStart
		}
		limit := len(d.buf)
		looping := d.loopEnabled
		if looping {
			limit = d.loopEnd
		}
		n := copy(dst[filled:], d.buf[d.pos:limit])
		filled += n
		d.pos += n
		if d.pos >= limit {
			if looping {
				d.pos = d.loopStart
				continue
			}
			d.playing = false
			d.paused = false
		}
	}

	vol := d.volume
	for i := 0; i < filled; i++ {
		dst[i][0] *= vol
		dst[i][1] *= vol
	}
	for i := filled; i < len(dst); i++ {
		dst[i] = [2]float64{}
	}
}

// GetFrame returns the next n frames in a new buffer.
func (d *Deck) GetFrame(n int) [][2]float64 {
	if n < 0 {
		n = 0
	}
	out := make([][2]float64, n)
	d.ReadFrame(out)
	return out
}

// Stream implements beep.Streamer. The deck never drains.
func (d *Deck) Stream(samples [][2]float64) (int, bool) {
	d.ReadFrame(samples)
	return len(samples), true
}

// Err implements beep.Streamer.
func (d *Deck) Err() error {
	return nil
}

// takeFrom moves the content, position, playing state, volume and loop of
// o into d and clears o. Locks d then o.
func (d *Deck) takeFrom(o *Deck) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o.mu.Lock()
	defer o.mu.Unlock()

	d.buf = o.buf
	d.trackName = o.trackName
	d.pos = o.pos
	d.playing = o.playing
	d.paused = o.paused
	d.volume = o.volume
	d.cue = o.cue
	d.loopEnabled = o.loopEnabled
	d.loopStart, d.loopEnd = o.loopStart, o.loopEnd

	o.clearLocked()
	o.volume = 1.0
}

// DeckStatus is a snapshot of one deck.
type DeckStatus struct {
	Deck          DeckID
	Loaded        bool
	TrackName     string
	State         State
	Playing       bool
	Position      float64 // Seconds
	Duration      float64 // Seconds
	Progress      float64 // 0..1
	TimeRemaining float64 // Seconds
	Volume        float64
	CuePoint      float64 // Seconds
	LoopEnabled   bool
	LoopStart     float64 // Seconds
	LoopEnd       float64 // Seconds
	Peak          float64 // Filled by the mixer
	Level         float64 // Crossfader gain, filled by the mixer
}

// Status returns a snapshot of the deck.
func (d *Deck) Status() DeckStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	sr := float64(d.sampleRate)
	s := DeckStatus{
		Deck:        d.id,
		Loaded:      d.buf != nil,
		TrackName:   d.trackName,
		State:       d.stateLocked(),
		Playing:     d.playing,
		Volume:      d.volume,
		LoopEnabled: d.loopEnabled,
	}
	if d.buf != nil {
		s.Position = float64(d.pos) / sr
		s.Duration = float64(len(d.buf)) / sr
		s.Progress = float64(d.pos) / float64(len(d.buf))
		s.TimeRemaining = s.Duration - s.Position
		s.CuePoint = float64(d.cue) / sr
		s.LoopStart = float64(d.loopStart) / sr
		s.LoopEnd = float64(d.loopEnd) / sr
	}
	return s
}

func (d *Deck) stateLocked() State {
	switch {
	case d.buf == nil:
		return StateEmpty
	case d.playing:
		return StatePlaying
	case d.paused:
		return StatePaused
	default:
		return StateStopped
	}
}

// State returns the playback state.
func (d *Deck) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stateLocked()
}

// Loaded reports whether a buffer is loaded.
func (d *Deck) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf != nil
}

// Playing reports whether the deck is playing.
func (d *Deck) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// Position returns the play position in seconds.
func (d *Deck) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(d.pos) / float64(d.sampleRate)
}

// Duration returns the buffer length in seconds.
func (d *Deck) Duration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(len(d.buf)) / float64(d.sampleRate)
}

// Progress returns the position as a fraction of the buffer.
func (d *Deck) Progress() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.buf) == 0 {
		return 0
	}
	return float64(d.pos) / float64(len(d.buf))
}

// TimeRemaining returns the seconds left in the buffer.
func (d *Deck) TimeRemaining() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(len(d.buf)-d.pos) / float64(d.sampleRate)
}

// TrackName returns the loaded track name.
func (d *Deck) TrackName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trackName
}

// Volume returns the deck volume.
func (d *Deck) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}
