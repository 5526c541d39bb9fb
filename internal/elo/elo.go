// Package elo implements the pairwise rating model used to rank articles.
package elo

import (
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultRating is the rating every article starts with.
	DefaultRating = 1500.0
	// DefaultKFactor bounds how far a single comparison can move a rating.
	DefaultKFactor = 32.0
	// ComparisonsForConfidence is the number of comparisons after which a
	// rating is considered settled.
	ComparisonsForConfidence = 7
)

// Outcome is the result of a single pairwise comparison.
type Outcome string

const (
	AWins Outcome = "a_wins"
	BWins Outcome = "b_wins"
	Tie   Outcome = "tie"
)

// ParseOutcome maps a judge's answer to an Outcome. Case and surrounding
// whitespace are ignored.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(strings.ToLower(strings.TrimSpace(s))); o {
	case AWins, BWins, Tie:
		return o, nil
	}
	return Tie, fmt.Errorf("unknown outcome %q", s)
}

// Scores returns the actual scores credited to side A and side B.
func (o Outcome) Scores() (float64, float64) {
	switch o {
	case AWins:
		return 1, 0
	case BWins:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}

// Swap returns the outcome seen from the other side of the pair.
func (o Outcome) Swap() Outcome {
	switch o {
	case AWins:
		return BWins
	case BWins:
		return AWins
	default:
		return Tie
	}
}

// ExpectedScore is the probability that a player rated a beats one rated b.
func ExpectedScore(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// Update returns the new ratings of both sides after a comparison.
func Update(a, b float64, outcome Outcome, k float64) (float64, float64) {
	expectedA := ExpectedScore(a, b)
	expectedB := ExpectedScore(b, a)
	actualA, actualB := outcome.Scores()
	return a + k*(actualA-expectedA), b + k*(actualB-expectedB)
}

// IsConfident reports whether enough comparisons back a rating.
func IsConfident(comparisons int) bool {
	return comparisons >= ComparisonsForConfidence
}
