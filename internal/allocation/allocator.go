// Package allocation converts regime probabilities into a position-size
// multiplier. Allocation is a pure function of its input so replays are
// deterministic.
package allocation

import "campaign-lab/internal/domain"

// Config sets the allocator's per-regime multipliers and clamp band.
type Config struct {
	CalmMultiplier     float64 // sizing under calm, default 1.0
	BalancedMultiplier float64 // sizing under balanced, default 0.75
	StressMultiplier   float64 // sizing under stress, default 0.25
	StressThreshold    float64 // stress probability gating the multiplier, default 0.5
	MinPositionPct     float64 // clamp floor, default 0.05
	MaxPositionPct     float64 // clamp ceiling, default 1.0
}

// DefaultConfig returns the standard allocator settings.
func DefaultConfig() Config {
	return Config{
		CalmMultiplier:     1.0,
		BalancedMultiplier: 0.75,
		StressMultiplier:   0.25,
		StressThreshold:    0.5,
		MinPositionPct:     0.05,
		MaxPositionPct:     1.0,
	}
}

// Allocator computes position sizing from a regime snapshot. It holds
// configuration only, never state.
type Allocator struct {
	cfg Config
}

// New creates an Allocator, falling back to defaults for zero fields.
func New(cfg Config) *Allocator {
	def := DefaultConfig()
	if cfg.CalmMultiplier == 0 {
		cfg.CalmMultiplier = def.CalmMultiplier
	}
	if cfg.BalancedMultiplier == 0 {
		cfg.BalancedMultiplier = def.BalancedMultiplier
	}
	if cfg.StressMultiplier == 0 {
		cfg.StressMultiplier = def.StressMultiplier
	}
	if cfg.StressThreshold == 0 {
		cfg.StressThreshold = def.StressThreshold
	}
	if cfg.MinPositionPct == 0 {
		cfg.MinPositionPct = def.MinPositionPct
	}
	if cfg.MaxPositionPct == 0 {
		cfg.MaxPositionPct = def.MaxPositionPct
	}
	return &Allocator{cfg: cfg}
}

// Allocate returns the fraction of capital to commit for the given regime
// snapshot. When stress probability exceeds the threshold, sizing is the
// stress multiplier alone; otherwise it is the probability-weighted blend
// of per-regime multipliers. The result is clamped to [min, max].
func (a *Allocator) Allocate(snap domain.RegimeSnapshot) float64 {
	var pct float64
	if snap.Stress > a.cfg.StressThreshold {
		pct = a.cfg.StressMultiplier
	} else {
		pct = snap.Calm*a.cfg.CalmMultiplier +
			snap.Balanced*a.cfg.BalancedMultiplier +
			snap.Stress*a.cfg.StressMultiplier
	}

	if pct < a.cfg.MinPositionPct {
		return a.cfg.MinPositionPct
	}
	if pct > a.cfg.MaxPositionPct {
		return a.cfg.MaxPositionPct
	}
	return pct
}
