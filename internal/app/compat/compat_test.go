package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/autodeck/internal/domain/track"
)

func TestKeyScore(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"8A", "8A", 1.0},
		{"8A", "8B", 1.0},
		{"1A", "1B", 1.0},
		{"1A", "2A", 0.8},
		{"1A", "12A", 0.8},
		{"12B", "1B", 0.8},
		{"1A", "2B", 0.5},
		{"1A", "6A", 0.5},
		{"", "6A", 0.5},
		{"6A", "", 0.5},
		{"zz", "6A", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, KeyScore(tt.a, tt.b), 1e-9)
		})
	}
}

func TestBPMScore(t *testing.T) {
	assert.Equal(t, 1.0, BPMScore(128, 128))
	assert.Equal(t, 1.0, BPMScore(128, 134))
	assert.InDelta(t, 0.5, BPMScore(120, 136), 1e-9)
	assert.Equal(t, 0.0, BPMScore(100, 140))
}

func TestScore(t *testing.T) {
	a := track.Metadata{ID: "a", BPM: 128, Camelot: "8A", Energy: track.Energy(0.7)}

	t.Run("identical tracks score one", func(t *testing.T) {
		assert.InDelta(t, 1.0, Score(a, a), 1e-9)
	})

	t.Run("tracks without optional fields", func(t *testing.T) {
		x := track.Metadata{ID: "x", BPM: 120}
		assert.InDelta(t, 0.85, Score(x, x), 1e-9)
	})

	t.Run("weighted terms", func(t *testing.T) {
		b := track.Metadata{ID: "b", BPM: 140, Camelot: "9A", Energy: track.Energy(0.9)}
		want := 0.4*(1-6.0/20) + 0.3*0.8 + 0.3*0.8
		assert.InDelta(t, want, Score(a, b), 1e-9)
	})
}

func TestRatingFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Rating
	}{
		{1.0, RatingPerfect},
		{0.85, RatingPerfect},
		{0.84, RatingGood},
		{0.70, RatingGood},
		{0.69, RatingOK},
		{0.50, RatingOK},
		{0.49, RatingDifficult},
		{0, RatingDifficult},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, RatingFor(tt.score))
		})
	}
}
