// Package playlist provides the Playlist domain entity.
package playlist

import "github.com/osa030/autodeck/internal/domain/track"

// Playlist is an ordered snapshot of tracks taken when a set is planned.
// It is not modified for the duration of an automation run.
type Playlist struct {
	ID     string           // Set plan ID
	Tracks []track.Metadata // Tracks in play order
}

// New copies tracks into a new Playlist.
func New(id string, tracks []track.Metadata) *Playlist {
	cp := make([]track.Metadata, len(tracks))
	copy(cp, tracks)
	return &Playlist{ID: id, Tracks: cp}
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Tracks)
}

// At returns the track at index i.
func (p *Playlist) At(i int) (track.Metadata, bool) {
	if p == nil || i < 0 || i >= len(p.Tracks) {
		return track.Metadata{}, false
	}
	return p.Tracks[i], true
}

// Names returns the display names of all tracks.
func (p *Playlist) Names() []string {
	names := make([]string, len(p.Tracks))
	for i := range p.Tracks {
		names[i] = p.Tracks[i].Name()
	}
	return names
}

// TotalDuration returns the summed duration of all tracks in seconds,
// without any transition overlap removed.
func (p *Playlist) TotalDuration() float64 {
	var total float64
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}
