// Package queue manages the candidate track queue and orders it by
// compatibility with the current track.
package queue

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodeck/internal/app/compat"
	"github.com/osa030/autodeck/internal/domain/track"
)

// ErrNotFound is returned when a track is not in the queue.
var ErrNotFound = errors.New("track not found in queue")

// Candidate is a queued track with its score against the current track.
type Candidate struct {
	Track track.Metadata
	Score float64
}

// Pair is one entry of the compatibility matrix.
type Pair struct {
	TrackA   string // Track A ID
	TrackB   string
	NameA    string
	NameB    string
	BPMDiff  float64
	KeyA     string
	KeyB     string
	CamelotA string
	CamelotB string
	Score    float64
	Rating   compat.Rating
}

// Info is a point-in-time snapshot of the queue.
type Info struct {
	CurrentID   string // Empty when no current track
	CurrentName string
	Length      int
	Entries     []Entry
	PlayedCount int
}

// Entry is a queued track in Info.
type Entry struct {
	Position int
	ID       string
	Name     string
	BPM      float64
	Camelot  string
	Energy   float64
	Duration float64
}

// Manager holds the queue, the current track and the played history.
type Manager struct {
	mu sync.RWMutex

	queue   []track.Metadata // Tracks waiting, insertion order is the tie-break
	played  []track.Metadata // Previously current tracks
	current *track.Metadata
}

// NewManager creates an empty queue manager.
func NewManager() *Manager {
	return &Manager{
		queue:  make([]track.Metadata, 0),
		played: make([]track.Metadata, 0),
	}
}

// Add appends a track to the end of the queue.
func (m *Manager) Add(t track.Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = append(m.queue, t)
	zlog.Debug().Msgf("queue: track added: id=%s, length=%d", t.ID, len(m.queue))
}

// Remove removes the first queued track with the given ID.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return errors.Wrapf(ErrNotFound, "remove %q", id)
	}
	m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
	zlog.Debug().Msgf("queue: track removed: id=%s, length=%d", id, len(m.queue))
	return nil
}

// SetCurrent moves a queued track to current. The previous current track
// goes to the played history.
func (m *Manager) SetCurrent(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return errors.Wrapf(ErrNotFound, "set current %q", id)
	}
	t := m.queue[idx]
	m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
	m.setCurrentLocked(t)
	return nil
}

// SetCurrentTrack sets the current track directly, whether or not it is
// queued. A queued copy with the same ID is removed.
func (m *Manager) SetCurrentTrack(t track.Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx := m.indexLocked(t.ID); idx >= 0 {
		m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
	}
	m.setCurrentLocked(t)
}

func (m *Manager) setCurrentLocked(t track.Metadata) {
	if m.current != nil {
		m.played = append(m.played, *m.current)
	}
	m.current = &t
	zlog.Info().Msgf("queue: current track: id=%s, name=%s", t.ID, t.Name())
}

// Current returns the current track.
func (m *Manager) Current() (track.Metadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return track.Metadata{}, false
	}
	return *m.current, true
}

// GetNext returns up to count queued tracks ordered by score against the
// current track. Without a current track the queue order is kept and every
// candidate scores 1.0.
func (m *Manager) GetNext(count int) []Candidate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if count <= 0 {
		return []Candidate{}
	}

	candidates := make([]Candidate, len(m.queue))
	for i, t := range m.queue {
		score := 1.0
		if m.current != nil {
			score = compat.Score(*m.current, t)
		}
		candidates[i] = Candidate{Track: t, Score: score}
	}

	if m.current != nil {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
	}

	if count < len(candidates) {
		candidates = candidates[:count]
	}
	return candidates
}

// CompatibilityMatrix scores every unordered pair of queued tracks, best
// first.
func (m *Manager) CompatibilityMatrix() []Pair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Matrix(m.queue)
}

// Matrix scores every unordered pair of tracks, best first. Pairs with
// equal scores keep their enumeration order.
func Matrix(tracks []track.Metadata) []Pair {
	pairs := make([]Pair, 0, len(tracks)*(len(tracks)-1)/2)
	for i := 0; i < len(tracks); i++ {
		for j := i + 1; j < len(tracks); j++ {
			a, b := tracks[i], tracks[j]
			score := compat.Score(a, b)
			diff := a.BPM - b.BPM
			if diff < 0 {
				diff = -diff
			}
			pairs = append(pairs, Pair{
				TrackA:   a.ID,
				TrackB:   b.ID,
				NameA:    a.Name(),
				NameB:    b.Name(),
				BPMDiff:  diff,
				KeyA:     a.KeyLabel(),
				KeyB:     b.KeyLabel(),
				CamelotA: a.Camelot,
				CamelotB: b.Camelot,
				Score:    score,
				Rating:   compat.RatingFor(score),
			})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Score > pairs[j].Score
	})
	return pairs
}

// Info returns a snapshot of the queue.
func (m *Manager) Info() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info := Info{
		Length:      len(m.queue),
		Entries:     make([]Entry, len(m.queue)),
		PlayedCount: len(m.played),
	}
	if m.current != nil {
		info.CurrentID = m.current.ID
		info.CurrentName = m.current.Name()
	}
	for i, t := range m.queue {
		info.Entries[i] = Entry{
			Position: i,
			ID:       t.ID,
			Name:     t.Name(),
			BPM:      t.BPM,
			Camelot:  t.Camelot,
			Energy:   t.EnergyLevel(),
			Duration: t.Duration,
		}
	}
	return info
}

// Queued returns a copy of the queued tracks.
func (m *Manager) Queued() []track.Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]track.Metadata, len(m.queue))
	copy(result, m.queue)
	return result
}

// Played returns a copy of the played history, oldest first.
func (m *Manager) Played() []track.Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]track.Metadata, len(m.played))
	copy(result, m.played)
	return result
}

// Len returns the number of queued tracks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queue)
}

// Clear removes all queued tracks and returns them. Current and history
// are kept.
func (m *Manager) Clear() []track.Metadata {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.queue
	m.queue = make([]track.Metadata, 0)
	return removed
}

// indexLocked must be called with mu held.
func (m *Manager) indexLocked(id string) int {
	for i := range m.queue {
		if m.queue[i].ID == id {
			return i
		}
	}
	return -1
}
