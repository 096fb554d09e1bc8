package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autodeck/internal/domain/track"
)

const sampleLibrary = `
tracks:
  - id: opener
    file_path: audio/opener.wav
    title: Opener
    duration: 241.5
    bpm: 124
    key: A
    scale: minor
    energy: 0.6
  - file_path: /music/peak.wav
    duration: 300
    bpm: 128
    camelot: 9a
  - id: closer
    file_path: closer.wav
    duration: 200
    bpm: 120
`

func TestParse(t *testing.T) {
	lib, err := Parse([]byte(sampleLibrary), "/sets")
	require.NoError(t, err)
	require.Equal(t, 3, lib.Len())

	tracks := lib.Tracks()
	assert.Equal(t, "opener", tracks[0].ID)
	assert.Equal(t, filepath.Join("/sets", "audio/opener.wav"), tracks[0].Path)
	assert.Equal(t, "8A", tracks[0].Camelot)
	assert.Equal(t, 0.6, tracks[0].EnergyLevel())

	assert.Equal(t, "/music/peak.wav", tracks[1].ID)
	assert.Equal(t, "/music/peak.wav", tracks[1].Path)
	assert.Equal(t, "9A", tracks[1].Camelot)
	assert.Equal(t, track.DefaultEnergy, tracks[1].EnergyLevel())

	assert.Equal(t, "", tracks[2].Camelot)

	got, ok := lib.Get("closer")
	require.True(t, ok)
	assert.Equal(t, 120.0, got.BPM)
	_, ok = lib.Get("missing")
	assert.False(t, ok)
}

func TestParse_JSON(t *testing.T) {
	data := `{"tracks": [{"id": "a", "file_path": "a.wav", "duration": 10, "bpm": 120, "beats": [0.5, 1.0]}]}`
	lib, err := Parse([]byte(data), "")
	require.NoError(t, err)
	tracks := lib.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, "a.wav", tracks[0].Path)
	assert.Equal(t, []float64{0.5, 1.0}, tracks[0].Beats)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "no identity", data: "tracks:\n  - title: x\n", wantErr: ErrInvalidTrack},
		{name: "duplicate", data: "tracks:\n  - id: a\n  - id: a\n", wantErr: ErrDuplicateID},
		{name: "negative bpm", data: "tracks:\n  - id: a\n    bpm: -1\n", wantErr: ErrInvalidTrack},
		{name: "energy range", data: "tracks:\n  - id: a\n    energy: 1.5\n", wantErr: ErrInvalidTrack},
		{name: "bad camelot", data: "tracks:\n  - id: a\n    camelot: 14A\n", wantErr: track.ErrInvalidCamelot},
		{name: "bad yaml", data: "tracks: [", wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLibrary_Select(t *testing.T) {
	lib, err := Parse([]byte(sampleLibrary), "")
	require.NoError(t, err)

	all, err := lib.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	picked, err := lib.Select([]string{"closer", "opener"})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "closer", picked[0].ID)
	assert.Equal(t, "opener", picked[1].ID)

	_, err = lib.Select([]string{"opener", "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleLibrary), 0o644))

	lib, err := Load(path)
	require.NoError(t, err)
	got, ok := lib.Get("closer")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "closer.wav"), got.Path)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
