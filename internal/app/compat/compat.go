// Package compat scores how well two tracks mix into each other.
package compat

import (
	"math"

	"github.com/osa030/autodeck/internal/domain/track"
)

// Weights of the score terms.
const (
	BPMWeight    = 0.4
	KeyWeight    = 0.3
	EnergyWeight = 0.3
)

// BPMTolerance is the tempo difference that still scores a full match.
const BPMTolerance = 6.0

// Rating is a four-tier label for a compatibility score.
type Rating string

const (
	RatingPerfect   Rating = "perfect"
	RatingGood      Rating = "good"
	RatingOK        Rating = "ok"
	RatingDifficult Rating = "difficult"
)

// RatingFor returns the rating of a score.
func RatingFor(score float64) Rating {
	switch {
	case score >= 0.85:
		return RatingPerfect
	case score >= 0.70:
		return RatingGood
	case score >= 0.50:
		return RatingOK
	default:
		return RatingDifficult
	}
}

// Score returns a compatibility score in [0,1] between a and b.
func Score(a, b track.Metadata) float64 {
	return BPMWeight*BPMScore(a.BPM, b.BPM) +
		KeyWeight*KeyScore(a.Camelot, b.Camelot) +
		EnergyWeight*EnergyScore(a.EnergyLevel(), b.EnergyLevel())
}

// BPMScore scores a tempo pair.
func BPMScore(a, b float64) float64 {
	diff := math.Abs(a - b)
	if diff <= BPMTolerance {
		return 1.0
	}
	return math.Max(0, 1-(diff-BPMTolerance)/20)
}

// KeyScore scores two camelot codes. Missing or unparseable codes score 0.5.
func KeyScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0.5
	}
	ca, err := track.ParseCamelot(a)
	if err != nil {
		return 0.5
	}
	cb, err := track.ParseCamelot(b)
	if err != nil {
		return 0.5
	}
	if ca.Number == cb.Number {
		// identical or relative major/minor
		return 1.0
	}
	if ca.Mode == cb.Mode && ca.Distance(cb) == 1 {
		return 0.8
	}
	return 0.5
}

// EnergyScore scores two energy levels.
func EnergyScore(a, b float64) float64 {
	return math.Max(0, 1-math.Abs(a-b))
}
