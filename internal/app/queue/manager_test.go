package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autodeck/internal/app/compat"
	"github.com/osa030/autodeck/internal/domain/track"
)

func mkTrack(id string, bpm float64, camelot string, energy float64) track.Metadata {
	return track.Metadata{ID: id, Title: id, BPM: bpm, Camelot: camelot, Energy: track.Energy(energy), Duration: 200}
}

func TestManager_AddRemove(t *testing.T) {
	m := NewManager()
	m.Add(mkTrack("a", 128, "8A", 0.5))
	m.Add(mkTrack("b", 128, "8A", 0.5))
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.Remove("a"))
	assert.Equal(t, 1, m.Len())

	err := m.Remove("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, m.Len())
}

func TestManager_SetCurrent(t *testing.T) {
	m := NewManager()
	m.Add(mkTrack("a", 128, "8A", 0.5))
	m.Add(mkTrack("b", 128, "8A", 0.5))

	err := m.SetCurrent("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := m.Current()
	assert.False(t, ok)

	require.NoError(t, m.SetCurrent("a"))
	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.SetCurrent("b"))
	assert.Equal(t, 0, m.Len())
	played := m.Played()
	require.Len(t, played, 1)
	assert.Equal(t, "a", played[0].ID)

	m.SetCurrentTrack(mkTrack("c", 120, "", 0.5))
	cur, _ = m.Current()
	assert.Equal(t, "c", cur.ID)
	assert.Len(t, m.Played(), 2)
}

func TestManager_GetNext(t *testing.T) {
	t.Run("no current keeps queue order", func(t *testing.T) {
		m := NewManager()
		m.Add(mkTrack("x", 100, "1A", 0.1))
		m.Add(mkTrack("y", 150, "5B", 0.9))
		m.Add(mkTrack("z", 128, "8A", 0.5))

		got := m.GetNext(2)
		require.Len(t, got, 2)
		assert.Equal(t, "x", got[0].Track.ID)
		assert.Equal(t, "y", got[1].Track.ID)
		assert.Equal(t, 1.0, got[0].Score)
		assert.Equal(t, 1.0, got[1].Score)
	})

	t.Run("stable tie break", func(t *testing.T) {
		m := NewManager()
		cur := mkTrack("cur", 128, "8A", 0.5)
		m.Add(cur)
		require.NoError(t, m.SetCurrent("cur"))

		low := mkTrack("low", 160, "3B", 1.0)
		first := mkTrack("first", 128, "8A", 0.5)
		second := mkTrack("second", 128, "8A", 0.5)
		m.Add(low)
		m.Add(first)
		m.Add(second)
		require.Greater(t, compat.Score(cur, first), compat.Score(cur, low))

		got := m.GetNext(2)
		require.Len(t, got, 2)
		assert.Equal(t, "first", got[0].Track.ID)
		assert.Equal(t, "second", got[1].Track.ID)
		assert.Equal(t, got[0].Score, got[1].Score)
	})

	t.Run("count larger than queue", func(t *testing.T) {
		m := NewManager()
		m.Add(mkTrack("a", 128, "8A", 0.5))
		assert.Len(t, m.GetNext(10), 1)
		assert.Empty(t, m.GetNext(0))
	})
}

func TestManager_CompatibilityMatrix(t *testing.T) {
	m := NewManager()
	m.Add(mkTrack("a", 128, "8A", 0.5))
	m.Add(mkTrack("b", 170, "3B", 0.9))
	m.Add(mkTrack("c", 128, "8B", 0.5))

	pairs := m.CompatibilityMatrix()
	require.Len(t, pairs, 3)
	assert.Equal(t, "a", pairs[0].TrackA)
	assert.Equal(t, "c", pairs[0].TrackB)
	assert.Equal(t, compat.RatingPerfect, pairs[0].Rating)
	for i := 1; i < len(pairs); i++ {
		assert.GreaterOrEqual(t, pairs[i-1].Score, pairs[i].Score)
	}
	assert.Equal(t, 42.0, pairs[1].BPMDiff)
}

func TestManager_InfoAndClear(t *testing.T) {
	m := NewManager()
	m.Add(mkTrack("a", 128, "8A", 0.5))
	m.Add(mkTrack("b", 126, "9A", 0.6))
	require.NoError(t, m.SetCurrent("a"))

	info := m.Info()
	assert.Equal(t, "a", info.CurrentID)
	assert.Equal(t, 1, info.Length)
	require.Len(t, info.Entries, 1)
	assert.Equal(t, "b", info.Entries[0].ID)
	assert.Equal(t, 0, info.PlayedCount)

	removed := m.Clear()
	assert.Len(t, removed, 1)
	assert.Equal(t, 0, m.Len())
	_, ok := m.Current()
	assert.True(t, ok)
}
