package mixer

import (
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodeck/internal/app/effects"
)

// ErrUnknownDeck is returned for a deck name other than A or B.
var ErrUnknownDeck = errors.New("unknown deck")

// DefaultMasterVolume is the master volume of a new mixer.
const DefaultMasterVolume = 0.8

// faultLogInterval rate-limits render fault logging.
const faultLogInterval = time.Second

// Config holds mixer configuration.
type Config struct {
	SampleRate   int     // Frames per second
	BlockSize    int     // Frames per render tick
	MasterVolume float64 // 0..1
}

// Mixer owns two decks, one effects chain per deck, the crossfader and
// the master volume. Crossfader, master volume and peaks are stored as
// atomic float bits so the render tick never waits on them.
type Mixer struct {
	cfg Config

	decks  map[DeckID]*Deck
	chains map[DeckID]*effects.Chain

	crossfader atomic.Uint64
	master     atomic.Uint64
	peakA      atomic.Uint64
	peakB      atomic.Uint64
	peakMaster atomic.Uint64

	// renderMu serialises render ticks with deck swaps and guards the
	// scratch buffers.
	renderMu sync.Mutex
	scratchA [][2]float64
	scratchB [][2]float64

	faults       atomic.Uint64
	lastFaultLog atomic.Int64
}

// New creates a mixer with empty decks and the crossfader on deck A.
func New(cfg Config) *Mixer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 1024
	}
	if cfg.MasterVolume <= 0 {
		cfg.MasterVolume = DefaultMasterVolume
	}
	m := &Mixer{
		cfg: cfg,
		decks: map[DeckID]*Deck{
			DeckA: NewDeck(DeckA, cfg.SampleRate),
			DeckB: NewDeck(DeckB, cfg.SampleRate),
		},
		chains: map[DeckID]*effects.Chain{
			DeckA: effects.NewChain(float64(cfg.SampleRate)),
			DeckB: effects.NewChain(float64(cfg.SampleRate)),
		},
		scratchA: make([][2]float64, cfg.BlockSize),
		scratchB: make([][2]float64, cfg.BlockSize),
	}
	m.storeFloat(&m.crossfader, -1)
	m.SetMasterVolume(cfg.MasterVolume)
	return m
}

// SampleRate returns the frames per second.
func (m *Mixer) SampleRate() int {
	return m.cfg.SampleRate
}

// BlockSize returns the frames per render tick.
func (m *Mixer) BlockSize() int {
	return m.cfg.BlockSize
}

// ParseDeckID parses "a"/"b" case-insensitively.
func ParseDeckID(s string) (DeckID, error) {
	switch DeckID(strings.ToUpper(strings.TrimSpace(s))) {
	case DeckA:
		return DeckA, nil
	case DeckB:
		return DeckB, nil
	default:
		return "", errors.Wrapf(ErrUnknownDeck, "deck %q", s)
	}
}

// Deck returns a deck by slot.
func (m *Mixer) Deck(id DeckID) (*Deck, error) {
	d, ok := m.decks[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDeck, "deck %q", id)
	}
	return d, nil
}

// A returns deck A.
func (m *Mixer) A() *Deck { return m.decks[DeckA] }

// B returns deck B.
func (m *Mixer) B() *Deck { return m.decks[DeckB] }

// Effects returns the effects chain of a deck.
func (m *Mixer) Effects(id DeckID) (*effects.Chain, error) {
	c, ok := m.chains[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDeck, "deck %q", id)
	}
	return c, nil
}

// SetCrossfader sets the crossfader, clamped to [-1,1].
func (m *Mixer) SetCrossfader(v float64) {
	m.storeFloat(&m.crossfader, clampUnit(v, -1))
}

// Crossfader returns the crossfader position.
func (m *Mixer) Crossfader() float64 {
	return m.loadFloat(&m.crossfader)
}

// SetMasterVolume sets the master volume, clamped to [0,1].
func (m *Mixer) SetMasterVolume(v float64) {
	m.storeFloat(&m.master, clampUnit(v, 0))
}

// MasterVolume returns the master volume.
func (m *Mixer) MasterVolume() float64 {
	return m.loadFloat(&m.master)
}

// Levels returns the constant-power gains of deck A and B.
func (m *Mixer) Levels() (a, b float64) {
	return CrossfadeLevels(m.Crossfader())
}

// CrossfadeLevels maps a crossfader position to constant-power gains.
func CrossfadeLevels(cf float64) (a, b float64) {
	p := (clampUnit(cf, -1) + 1) / 2
	return math.Cos(p * math.Pi / 2), math.Sin(p * math.Pi / 2)
}

// Render mixes the next len(out) frames into out. A fault inside the tick
// yields silence and is logged at most once per second.
func (m *Mixer) Render(out [][2]float64) {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			for i := range out {
				out[i] = [2]float64{}
			}
			m.recordFault(r)
		}
	}()

	m.renderLocked(out)
}

func (m *Mixer) renderLocked(out [][2]float64) {
	n := len(out)
	if n > len(m.scratchA) {
		m.scratchA = make([][2]float64, n)
		m.scratchB = make([][2]float64, n)
	}
	a, b := m.scratchA[:n], m.scratchB[:n]

	m.decks[DeckA].ReadFrame(a)
	m.decks[DeckB].ReadFrame(b)
	m.chains[DeckA].Process(a)
	m.chains[DeckB].Process(b)

	aLevel, bLevel := m.Levels()
	master := m.MasterVolume()

	var peakA, peakB, peakM float64
	for i := 0; i < n; i++ {
		for ch := 0; ch < 2; ch++ {
			av, bv := a[i][ch], b[i][ch]
			peakA = math.Max(peakA, math.Abs(av))
			peakB = math.Max(peakB, math.Abs(bv))
			v := (av*aLevel + bv*bLevel) * master
			peakM = math.Max(peakM, math.Abs(v))
			out[i][ch] = math.Tanh(v)
		}
	}
	m.storeFloat(&m.peakA, peakA)
	m.storeFloat(&m.peakB, peakB)
	m.storeFloat(&m.peakMaster, peakM)
}

func (m *Mixer) recordFault(r any) {
	count := m.faults.Add(1)
	now := time.Now().UnixNano()
	last := m.lastFaultLog.Load()
	if now-last < int64(faultLogInterval) {
		return
	}
	if m.lastFaultLog.CompareAndSwap(last, now) {
		zlog.Error().Msgf("mixer: render fault, output silenced: faults=%d, error=%v", count, r)
	}
}

// Faults returns the number of render ticks that faulted.
func (m *Mixer) Faults() uint64 {
	return m.faults.Load()
}

// Stream implements beep.Streamer. The mixer never drains.
func (m *Mixer) Stream(samples [][2]float64) (int, bool) {
	m.Render(samples)
	return len(samples), true
}

// Err implements beep.Streamer.
func (m *Mixer) Err() error {
	return nil
}

// SwapDecks promotes deck B into deck A. B's content, position, playing
// state, volume and loop move to A, B's chain settings are copied to A,
// B is cleared and the crossfader returns to deck A only.
func (m *Mixer) SwapDecks() {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()

	m.decks[DeckA].takeFrom(m.decks[DeckB])
	m.chains[DeckA].CopyFrom(m.chains[DeckB])
	m.chains[DeckB].Reset()
	m.SetCrossfader(-1)
	zlog.Info().Msgf("mixer: decks swapped: track=%s", m.decks[DeckA].TrackName())
}

// Status is a snapshot of the mixer.
type Status struct {
	DeckA        DeckStatus
	DeckB        DeckStatus
	Crossfader   float64
	MasterVolume float64
	MasterPeak   float64
	Faults       uint64
}

// Status returns a snapshot of both decks and the mixer controls.
func (m *Mixer) Status() Status {
	aLevel, bLevel := m.Levels()

	a := m.decks[DeckA].Status()
	a.Peak = m.loadFloat(&m.peakA)
	a.Level = aLevel

	b := m.decks[DeckB].Status()
	b.Peak = m.loadFloat(&m.peakB)
	b.Level = bLevel

	return Status{
		DeckA:        a,
		DeckB:        b,
		Crossfader:   m.Crossfader(),
		MasterVolume: m.MasterVolume(),
		MasterPeak:   m.loadFloat(&m.peakMaster),
		Faults:       m.Faults(),
	}
}

func (m *Mixer) storeFloat(v *atomic.Uint64, f float64) {
	v.Store(math.Float64bits(f))
}

func (m *Mixer) loadFloat(v *atomic.Uint64) float64 {
	return math.Float64frombits(v.Load())
}

// clampUnit clamps v to [lo, 1].
func clampUnit(v, lo float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > 1 {
		return 1
	}
	return v
}

var (
	_ beep.Streamer = (*Mixer)(nil)
	_ beep.Streamer = (*Deck)(nil)
)
