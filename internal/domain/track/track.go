// Package track provides the analyzed track metadata entity.
package track

import (
	"path/filepath"
	"strings"
)

// DefaultEnergy is used when the analyzer did not report an energy value.
const DefaultEnergy = 0.5

// Metadata represents a track as produced by the external analyzer.
// Values are treated as immutable once loaded.
type Metadata struct {
	ID       string    `yaml:"id" json:"id"`             // Library identity (file path when not set)
	Path     string    `yaml:"file_path" json:"file_path"` // Audio file path
	Title    string    `yaml:"title" json:"title"`       // Display title
	Duration float64   `yaml:"duration" json:"duration"` // Seconds
	BPM      float64   `yaml:"bpm" json:"bpm"`           // Beats per minute
	Key      string    `yaml:"key" json:"key"`           // e.g. "A"
	Scale    string    `yaml:"scale" json:"scale"`       // "major" or "minor"
	Camelot  string    `yaml:"camelot" json:"camelot"`   // e.g. "8A"
	Energy   *float64  `yaml:"energy" json:"energy"`     // 0..1, nil when not analyzed
	Beats    []float64 `yaml:"beats" json:"beats"`       // Beat timestamps in seconds
	Loudness float64   `yaml:"loudness" json:"loudness"` // Integrated loudness
}

// EnergyLevel returns the energy value, falling back to DefaultEnergy.
func (m *Metadata) EnergyLevel() float64 {
	if m.Energy == nil {
		return DefaultEnergy
	}
	return *m.Energy
}

// Name returns a display name for the track.
func (m *Metadata) Name() string {
	if m.Title != "" {
		return m.Title
	}
	if m.Path != "" {
		return filepath.Base(m.Path)
	}
	if m.ID != "" {
		return m.ID
	}
	return "Unknown Track"
}

// KeyLabel returns "key scale" with "?" for unknown parts.
func (m *Metadata) KeyLabel() string {
	key, scale := m.Key, m.Scale
	if key == "" {
		key = "?"
	}
	if scale == "" {
		scale = "?"
	}
	return strings.TrimSpace(key + " " + scale)
}

// HasTiming reports whether the track carries the tempo and duration a
// transition plan needs.
func (m *Metadata) HasTiming() bool {
	return m.BPM > 0 && m.Duration > 0
}

// Energy returns a pointer suitable for Metadata.Energy.
func Energy(v float64) *float64 {
	return &v
}
