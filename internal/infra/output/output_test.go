package output

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autodeck/internal/app/mixer"
)

func toneMixer(t *testing.T, rate int, seconds float64) *mixer.Mixer {
	t.Helper()
	m := mixer.New(mixer.Config{SampleRate: rate, BlockSize: 64, MasterVolume: 1})
	frames := make([][2]float64, int(seconds*float64(rate)))
	for i := range frames {
		frames[i] = [2]float64{0.5, 0.5}
	}
	require.NoError(t, m.A().Load(mixer.Source{Name: "tone", Frames: frames}))
	require.NoError(t, m.A().Play())
	return m
}

func TestRecorder_WritesSleptFrames(t *testing.T) {
	m := toneMixer(t, 8000, 2)
	path := filepath.Join(t.TempDir(), "set.wav")

	r, err := NewRecorder(path, m, 8000, 64)
	require.NoError(t, err)

	start := r.Now()
	require.NoError(t, r.Sleep(context.Background(), 500*time.Millisecond))
	require.NoError(t, r.Sleep(context.Background(), 250*time.Millisecond))
	assert.Equal(t, 750*time.Millisecond, r.Now().Sub(start))
	assert.Equal(t, 750*time.Millisecond, r.Elapsed())
	assert.Equal(t, 6000, r.Frames())
	assert.InDelta(t, 0.75, m.A().Position(), 1e-9)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Sleep(context.Background(), time.Second), ErrRecorderClosed)

	f, err := os.Open(path)
	require.NoError(t, err)
	s, format, err := wav.Decode(f)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, beep.SampleRate(8000), format.SampleRate)
	assert.Equal(t, 6000, s.Len())

	buf := make([][2]float64, 6000)
	n, _ := s.Stream(buf)
	require.Equal(t, 6000, n)
	assert.InDelta(t, math.Tanh(0.5), buf[5999][0], 0.02)
}

func TestRecorder_CancelledContext(t *testing.T) {
	m := toneMixer(t, 8000, 1)
	r, err := NewRecorder(filepath.Join(t.TempDir(), "set.wav"), m, 8000, 64)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Sleep(ctx, time.Second), context.Canceled)
	assert.Equal(t, 0, r.Frames())
}

func TestRecorder_BadPath(t *testing.T) {
	_, err := NewRecorder(filepath.Join(t.TempDir(), "missing", "set.wav"), beep.Silence(-1), 8000, 64)
	assert.Error(t, err)
}

type countingStreamer struct {
	frames atomic.Int64
}

func (c *countingStreamer) Stream(samples [][2]float64) (int, bool) {
	c.frames.Add(int64(len(samples)))
	return len(samples), true
}

func (c *countingStreamer) Err() error { return nil }

func TestNull_PullsFrames(t *testing.T) {
	s := &countingStreamer{}
	n := OpenNull(1000, 10, s)

	assert.Eventually(t, func() bool { return s.frames.Load() >= 50 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, n.Close())
	require.NoError(t, n.Close())

	after := s.frames.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, s.frames.Load())
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open("cassette", 44100, 1024, beep.Silence(-1))
	assert.ErrorIs(t, err, ErrUnknownKind)

	c, err := Open(KindNone, 1000, 10, beep.Silence(-1))
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
