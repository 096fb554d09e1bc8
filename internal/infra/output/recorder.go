package output

import (
	"context"
	"math"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"
)

// ErrRecorderClosed is returned by Sleep after Close.
var ErrRecorderClosed = errors.New("recorder closed")

const recorderQueue = 16

// Recorder is a virtual clock that renders the source into a 16-bit
// stereo WAV file for every interval slept. A set recorded this way
// runs as fast as the machine can render it.
type Recorder struct {
	mu       sync.Mutex
	src      beep.Streamer
	rate     int
	block    int
	start    time.Time
	now      time.Time
	rendered int
	closed   bool

	blocks  chan [][2]float64
	encoded chan error
}

// NewRecorder creates the file and starts the encoder.
func NewRecorder(path string, src beep.Streamer, sampleRate, blockSize int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", path)
	}
	now := time.Now()
	r := &Recorder{
		src:     src,
		rate:    sampleRate,
		block:   max(blockSize, 1),
		start:   now,
		now:     now,
		blocks:  make(chan [][2]float64, recorderQueue),
		encoded: make(chan error, 1),
	}
	format := beep.Format{SampleRate: beep.SampleRate(sampleRate), NumChannels: 2, Precision: 2}
	go func() {
		err := wav.Encode(f, &blockStreamer{blocks: r.blocks}, format)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		r.encoded <- err
	}()
	zlog.Info().Msgf("output: recording: path=%s, rate=%d", path, sampleRate)
	return r, nil
}

// Now returns the virtual time.
func (r *Recorder) Now() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

// Elapsed returns the virtual time recorded so far.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now.Sub(r.start)
}

// Sleep advances the virtual time by d and renders the frames it covers.
func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	r.now = r.now.Add(d)
	target := int(math.Round(r.now.Sub(r.start).Seconds() * float64(r.rate)))
	for r.rendered < target {
		n := min(target-r.rendered, r.block)
		buf := make([][2]float64, n)
		r.src.Stream(buf)
		select {
		case r.blocks <- buf:
		case <-ctx.Done():
			return ctx.Err()
		}
		r.rendered += n
	}
	return nil
}

// Frames returns the number of frames rendered.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rendered
}

// Close finishes the file. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.blocks)
	frames := r.rendered
	r.mu.Unlock()

	err := <-r.encoded
	if err != nil {
		return errors.Wrap(err, "failed to encode recording")
	}
	zlog.Info().Msgf("output: recording finished: frames=%d", frames)
	return nil
}

// blockStreamer feeds queued render blocks to the WAV encoder and ends
// when the queue is closed.
type blockStreamer struct {
	blocks  <-chan [][2]float64
	pending [][2]float64
}

func (s *blockStreamer) Stream(samples [][2]float64) (int, bool) {
	n := 0
	for n < len(samples) {
		if len(s.pending) == 0 {
			b, ok := <-s.blocks
			if !ok {
				return n, n > 0
			}
			s.pending = b
		}
		c := copy(samples[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, true
}

func (s *blockStreamer) Err() error {
	return nil
}
