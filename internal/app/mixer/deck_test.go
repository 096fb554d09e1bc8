package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ramp returns n frames whose value is the frame index.
func ramp(n int) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		out[i] = [2]float64{float64(i), -float64(i)}
	}
	return out
}

func loadedDeck(t *testing.T, sampleRate, frames int) *Deck {
	t.Helper()
	d := NewDeck(DeckA, sampleRate)
	require.NoError(t, d.Load(Source{Name: "ramp", Frames: ramp(frames)}))
	return d
}

func TestDeck_LoadErrors(t *testing.T) {
	d := loadedDeck(t, 100, 10)
	err := d.Load(Source{Name: "empty"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
	assert.Equal(t, "ramp", d.TrackName())
	assert.True(t, d.Loaded())
}

func TestDeck_States(t *testing.T) {
	d := NewDeck(DeckA, 100)
	assert.Equal(t, StateEmpty, d.State())
	assert.ErrorIs(t, d.Play(), ErrNotLoaded)
	assert.ErrorIs(t, d.Cue(1), ErrNotLoaded)

	require.NoError(t, d.Load(Source{Name: "x", Frames: ramp(100)}))
	assert.Equal(t, StateStopped, d.State())

	require.NoError(t, d.Play())
	assert.Equal(t, StatePlaying, d.State())
	d.GetFrame(10)

	d.Pause()
	assert.Equal(t, StatePaused, d.State())
	assert.InDelta(t, 0.1, d.Position(), 1e-9)

	require.NoError(t, d.Play())
	d.Stop()
	assert.Equal(t, StateStopped, d.State())
	assert.Equal(t, 0.0, d.Position())

	d.Unload()
	assert.Equal(t, StateEmpty, d.State())
	assert.Equal(t, "empty", StateEmpty.String())
}

func TestDeck_GetFrameLength(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *Deck
	}{
		{name: "empty", setup: func(t *testing.T) *Deck { return NewDeck(DeckA, 100) }},
		{name: "stopped", setup: func(t *testing.T) *Deck { return loadedDeck(t, 100, 50) }},
		{
			name: "playing",
			setup: func(t *testing.T) *Deck {
				d := loadedDeck(t, 100, 50)
				require.NoError(t, d.Play())
				return d
			},
		},
		{
			name: "at end of buffer",
			setup: func(t *testing.T) *Deck {
				d := loadedDeck(t, 100, 50)
				require.NoError(t, d.Cue(0.45))
				require.NoError(t, d.Play())
				return d
			},
		},
		{
			name: "mid loop",
			setup: func(t *testing.T) *Deck {
				d := loadedDeck(t, 100, 50)
				require.NoError(t, d.SetLoop(0.1, 0.2))
				require.NoError(t, d.Cue(0.15))
				require.NoError(t, d.Play())
				return d
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.setup(t)
			for _, n := range []int{0, 1, 7, 64, 200} {
				assert.Len(t, d.GetFrame(n), n)
			}
		})
	}
}

func TestDeck_SilenceWhenNotPlaying(t *testing.T) {
	d := loadedDeck(t, 100, 50)
	dst := [][2]float64{{9, 9}, {9, 9}}
	d.ReadFrame(dst)
	assert.Equal(t, [][2]float64{{0, 0}, {0, 0}}, dst)
}

func TestDeck_EndOfBufferStops(t *testing.T) {
	d := loadedDeck(t, 100, 50)
	require.NoError(t, d.Cue(0.45))
	require.NoError(t, d.Play())

	out := d.GetFrame(10)
	assert.Equal(t, 45.0, out[0][0])
	assert.Equal(t, 49.0, out[4][0])
	assert.Equal(t, [2]float64{}, out[5])
	assert.False(t, d.Playing())
	assert.InDelta(t, 0.5, d.Position(), 1e-9)
	assert.Equal(t, 0.0, d.TimeRemaining())
}

func TestDeck_LoopWraparound(t *testing.T) {
	const sr = 44100
	d := loadedDeck(t, sr, 13*sr)
	require.NoError(t, d.SetLoop(10, 12))
	loopStart, loopEnd := 10*sr, 12*sr

	require.NoError(t, d.Cue(12-0.01))
	require.NoError(t, d.Play())

	const n = 1024
	startPos := int(d.Position()*sr + 0.5)
	out := d.GetFrame(n)
	require.Len(t, out, n)

	tail := loopEnd - startPos
	for i := 0; i < tail; i++ {
		require.Equal(t, float64(startPos+i), out[i][0])
	}
	for i := tail; i < n; i++ {
		require.Equal(t, float64(loopStart+i-tail), out[i][0])
	}
	assert.True(t, d.Playing())
	assert.InDelta(t, float64(loopStart+n-tail)/sr, d.Position(), 1e-9)

	d.ClearLoop()
	d.GetFrame(10)
	assert.True(t, d.Playing())
}

func TestDeck_LoopBehindPlayhead(t *testing.T) {
	const sr = 100
	tests := []struct {
		name string
		cue  float64
	}{
		{name: "mid buffer", cue: 15},
		{name: "end of buffer", cue: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := loadedDeck(t, sr, 20*sr)
			require.NoError(t, d.Cue(tt.cue))
			require.NoError(t, d.SetLoop(10, 12))
			require.NoError(t, d.Play())

			out := d.GetFrame(10)
			for i := range out {
				require.Equal(t, float64(10*sr+i), out[i][0])
			}
			assert.True(t, d.Playing())
			assert.InDelta(t, 10.1, d.Position(), 1e-9)
		})
	}
}

func TestDeck_LoopValidation(t *testing.T) {
	d := loadedDeck(t, 100, 50)
	assert.ErrorIs(t, d.SetLoop(0.3, 0.2), ErrInvalidLoop)
	assert.ErrorIs(t, d.SetLoop(0.3, 0.3), ErrInvalidLoop)
	assert.ErrorIs(t, d.SetLoop(0.1, 0.9), ErrInvalidLoop)
	assert.ErrorIs(t, d.SetLoop(-0.1, 0.2), ErrInvalidLoop)
	require.NoError(t, d.SetLoop(0, 0.5))
}

func TestDeck_CueClampAndCuePoint(t *testing.T) {
	d := loadedDeck(t, 100, 50)
	require.NoError(t, d.Cue(-3))
	assert.Equal(t, 0.0, d.Position())
	require.NoError(t, d.Cue(30))
	assert.InDelta(t, 0.49, d.Position(), 1e-9)

	require.NoError(t, d.SetCuePoint(0.2))
	require.NoError(t, d.Cue(0.4))
	d.ReturnToCue()
	assert.InDelta(t, 0.2, d.Position(), 1e-9)
	assert.InDelta(t, 0.2, d.Status().CuePoint, 1e-9)
}

func TestDeck_Volume(t *testing.T) {
	d := loadedDeck(t, 100, 50)
	d.SetVolume(0.5)
	require.NoError(t, d.Cue(0.1))
	require.NoError(t, d.Play())
	out := d.GetFrame(2)
	assert.Equal(t, 5.0, out[0][0])
	assert.Equal(t, -5.5, out[1][1])

	d.SetVolume(4)
	assert.Equal(t, 1.0, d.Volume())
	d.SetVolume(-1)
	assert.Equal(t, 0.0, d.Volume())
}

func TestDeck_Status(t *testing.T) {
	d := loadedDeck(t, 100, 200)
	require.NoError(t, d.Cue(0.5))
	s := d.Status()
	assert.True(t, s.Loaded)
	assert.Equal(t, "ramp", s.TrackName)
	assert.InDelta(t, 0.5, s.Position, 1e-9)
	assert.InDelta(t, 2.0, s.Duration, 1e-9)
	assert.InDelta(t, 0.25, s.Progress, 1e-9)
	assert.InDelta(t, 1.5, s.TimeRemaining, 1e-9)
	assert.Equal(t, StateStopped, s.State)
}

func TestDeck_Stream(t *testing.T) {
	d := loadedDeck(t, 100, 10)
	buf := make([][2]float64, 32)
	n, ok := d.Stream(buf)
	assert.Equal(t, 32, n)
	assert.True(t, ok)
	assert.NoError(t, d.Err())
}
