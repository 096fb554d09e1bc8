// Package output drives the mixer: a sound card, a silent real time pump
// or an offline WAV recorder.
package output

import (
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

// Output kinds accepted by Open.
const (
	KindSpeaker = "speaker"
	KindNone    = "none"
)

// ErrUnknownKind is returned by Open for an unsupported output kind.
var ErrUnknownKind = errors.New("unknown output kind")

// Open starts pulling frames from s in real time.
func Open(kind string, sampleRate, blockSize int, s beep.Streamer) (io.Closer, error) {
	switch kind {
	case KindSpeaker:
		return OpenSpeaker(sampleRate, blockSize, s)
	case KindNone:
		return OpenNull(sampleRate, blockSize, s), nil
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "kind %q", kind)
	}
}

// Speaker plays a streamer on the default sound card.
type Speaker struct {
	mu   sync.Mutex
	open bool
}

// OpenSpeaker initialises the sound card and starts playing s.
func OpenSpeaker(sampleRate, blockSize int, s beep.Streamer) (*Speaker, error) {
	if err := speaker.Init(beep.SampleRate(sampleRate), blockSize); err != nil {
		return nil, errors.Wrap(err, "failed to initialise speaker")
	}
	speaker.Play(s)
	zlog.Info().Msgf("output: speaker opened: rate=%d, buffer=%d", sampleRate, blockSize)
	return &Speaker{open: true}, nil
}

// Close stops playback and releases the sound card.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	s.open = false
	speaker.Clear()
	speaker.Close()
	zlog.Info().Msg("output: speaker closed")
	return nil
}

// Null pulls frames at the real time rate and discards them, so deck
// positions advance without a sound card.
type Null struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// OpenNull starts the pump.
func OpenNull(sampleRate, blockSize int, s beep.Streamer) *Null {
	n := &Null{stop: make(chan struct{}), done: make(chan struct{})}
	interval := time.Duration(float64(time.Second) * float64(blockSize) / float64(sampleRate))
	go n.pump(s, blockSize, interval)
	zlog.Info().Msgf("output: null output opened: rate=%d, block=%d", sampleRate, blockSize)
	return n
}

func (n *Null) pump(s beep.Streamer, blockSize int, interval time.Duration) {
	defer close(n.done)
	buf := make([][2]float64, blockSize)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			s.Stream(buf)
		}
	}
}

// Close stops the pump and waits for it to exit.
func (n *Null) Close() error {
	n.once.Do(func() { close(n.stop) })
	<-n.done
	return nil
}
