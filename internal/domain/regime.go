package domain

import "fmt"

// Regime is a closed set of latent market states inferred from price/volume
// features. The set is exhaustive: switch statements over Regime must handle
// all three values.
type Regime int

// Regime constants.
const (
	RegimeCalm Regime = iota
	RegimeBalanced
	RegimeStress
)

// AllRegimes lists every regime in canonical order.
var AllRegimes = []Regime{RegimeCalm, RegimeBalanced, RegimeStress}

// String returns the regime label.
func (r Regime) String() string {
	switch r {
	case RegimeCalm:
		return "calm"
	case RegimeBalanced:
		return "balanced"
	case RegimeStress:
		return "stress"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

// ProbabilityTolerance is the allowed deviation of a snapshot's probability
// sum from 1.
const ProbabilityTolerance = 1e-6

// RegimeSnapshot maps each regime to its probability at a point in time.
// Probabilities are non-negative and sum to 1 within ProbabilityTolerance.
type RegimeSnapshot struct {
	TimestampMs int64   // observation timestamp (ms)
	Calm        float64 // probability of calm regime
	Balanced    float64 // probability of balanced regime
	Stress      float64 // probability of stress regime
}

// Prob returns the probability of the given regime.
func (s RegimeSnapshot) Prob(r Regime) float64 {
	switch r {
	case RegimeCalm:
		return s.Calm
	case RegimeBalanced:
		return s.Balanced
	case RegimeStress:
		return s.Stress
	default:
		return 0
	}
}

// Dominant returns the most probable regime and its probability.
// Ties resolve in canonical order (calm, balanced, stress).
func (s RegimeSnapshot) Dominant() (Regime, float64) {
	best, bestP := RegimeCalm, s.Calm
	if s.Balanced > bestP {
		best, bestP = RegimeBalanced, s.Balanced
	}
	if s.Stress > bestP {
		best, bestP = RegimeStress, s.Stress
	}
	return best, bestP
}

// Validate checks non-negativity and that probabilities sum to 1 within
// ProbabilityTolerance.
func (s RegimeSnapshot) Validate() error {
	sum := 0.0
	for _, r := range AllRegimes {
		p := s.Prob(r)
		if p < 0 {
			return fmt.Errorf("%w: %s probability %.9f is negative", ErrInvalidSnapshot, r, p)
		}
		sum += p
	}
	if diff := sum - 1; diff > ProbabilityTolerance || diff < -ProbabilityTolerance {
		return fmt.Errorf("%w: probabilities sum to %.9f", ErrInvalidSnapshot, sum)
	}
	return nil
}

// UniformSnapshot returns the maximum-entropy snapshot used before any
// observations are available.
func UniformSnapshot(timestampMs int64) RegimeSnapshot {
	third := 1.0 / 3.0
	return RegimeSnapshot{TimestampMs: timestampMs, Calm: third, Balanced: third, Stress: third}
}
