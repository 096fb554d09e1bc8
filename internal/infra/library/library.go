// Package library loads analyzer result files.
//
// A library file is YAML (or JSON, which YAML accepts) with a top-level
// tracks list:
//
//	tracks:
//	  - id: opener
//	    file_path: audio/opener.wav
//	    title: Opener
//	    duration: 241.5
//	    bpm: 124
//	    key: A
//	    scale: minor
//	    energy: 0.6
package library

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/osa030/autodeck/internal/domain/track"
)

// Errors
var (
	ErrInvalidTrack = errors.New("invalid track entry")
	ErrDuplicateID  = errors.New("duplicate track id")
	ErrNotFound     = errors.New("track not found in library")
)

type file struct {
	Tracks []track.Metadata `yaml:"tracks"`
}

// Library is an ordered, read-only set of analyzed tracks.
type Library struct {
	tracks []track.Metadata
	byID   map[string]int
}

// Load reads a library file. Relative audio paths are resolved against the
// file's directory.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read library file")
	}
	lib, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "library %s", path)
	}
	zlog.Info().Msgf("library: loaded: path=%s, tracks=%d", path, lib.Len())
	return lib, nil
}

// Parse decodes library data. baseDir is used to resolve relative paths.
func Parse(data []byte, baseDir string) (*Library, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse library")
	}

	lib := &Library{
		tracks: make([]track.Metadata, 0, len(f.Tracks)),
		byID:   make(map[string]int, len(f.Tracks)),
	}
	for i, t := range f.Tracks {
		t, err := normalize(t, baseDir)
		if err != nil {
			return nil, errors.Wrapf(err, "track #%d", i+1)
		}
		if _, ok := lib.byID[t.ID]; ok {
			return nil, errors.Wrapf(ErrDuplicateID, "id %q", t.ID)
		}
		lib.byID[t.ID] = len(lib.tracks)
		lib.tracks = append(lib.tracks, t)
	}
	return lib, nil
}

func normalize(t track.Metadata, baseDir string) (track.Metadata, error) {
	t.ID = strings.TrimSpace(t.ID)
	t.Path = strings.TrimSpace(t.Path)
	if t.ID == "" {
		t.ID = t.Path
	}
	if t.ID == "" {
		return t, errors.Wrap(ErrInvalidTrack, "id or file_path is required")
	}
	if t.Path != "" && !filepath.IsAbs(t.Path) && baseDir != "" {
		t.Path = filepath.Join(baseDir, t.Path)
	}
	if t.Duration < 0 || t.BPM < 0 {
		return t, errors.Wrapf(ErrInvalidTrack, "id %q: negative duration or bpm", t.ID)
	}
	if t.Energy != nil && (*t.Energy < 0 || *t.Energy > 1) {
		return t, errors.Wrapf(ErrInvalidTrack, "id %q: energy %.2f out of range", t.ID, *t.Energy)
	}

	switch {
	case t.Camelot != "":
		c, err := track.ParseCamelot(t.Camelot)
		if err != nil {
			return t, errors.Wrapf(err, "id %q", t.ID)
		}
		t.Camelot = c.String()
	case t.Key != "":
		if c, ok := track.CamelotFromKey(t.Key, t.Scale); ok {
			t.Camelot = c.String()
		}
	}
	return t, nil
}

// Len returns the number of tracks.
func (l *Library) Len() int {
	return len(l.tracks)
}

// Tracks returns a copy of all tracks in file order.
func (l *Library) Tracks() []track.Metadata {
	out := make([]track.Metadata, len(l.tracks))
	copy(out, l.tracks)
	return out
}

// Get returns a track by id.
func (l *Library) Get(id string) (track.Metadata, bool) {
	i, ok := l.byID[id]
	if !ok {
		return track.Metadata{}, false
	}
	return l.tracks[i], true
}

// Select returns the tracks with the given ids in the given order. No ids
// selects the whole library.
func (l *Library) Select(ids []string) ([]track.Metadata, error) {
	if len(ids) == 0 {
		return l.Tracks(), nil
	}
	out := make([]track.Metadata, 0, len(ids))
	for _, id := range ids {
		t, ok := l.Get(id)
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "id %q", id)
		}
		out = append(out, t)
	}
	return out, nil
}
