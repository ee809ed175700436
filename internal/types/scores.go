package types

import (
	"github.com/momentumhq/momentum-backend/internal/bandit"
)

// DimensionScores carries one 0..100 score per competency axis.
type DimensionScores struct {
	Productivity float64 `json:"productivity"`
	Quality      float64 `json:"quality"`
	Teamwork     float64 `json:"teamwork"`
}

// For returns the score for a single dimension.
func (s DimensionScores) For(d bandit.Dimension) float64 {
	switch d {
	case bandit.DimensionProductivity:
		return s.Productivity
	case bandit.DimensionQuality:
		return s.Quality
	case bandit.DimensionTeamwork:
		return s.Teamwork
	}
	return 0
}

// Weakest returns the lowest-scoring dimension, used when a season has
// to be created without a generated narrative.
func (s DimensionScores) Weakest() bandit.Dimension {
	weakest := bandit.DimensionProductivity
	low := s.Productivity
	if s.Quality < low {
		weakest, low = bandit.DimensionQuality, s.Quality
	}
	if s.Teamwork < low {
		weakest = bandit.DimensionTeamwork
	}
	return weakest
}
