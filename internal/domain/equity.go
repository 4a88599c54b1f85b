package domain

// EquityEpsilon guards divergence computation against division by
// near-zero theoretical equity.
const EquityEpsilon = 1e-9

// EquityPoint records parallel theoretical and realistic equity at a bar.
// Sequence invariant: timestamps are monotonically non-decreasing and the
// realistic curve reflects cumulative frictions applied in trade order.
type EquityPoint struct {
	TimestampMs   int64   // bar timestamp (ms)
	Theoretical   float64 // frictionless equity
	Realistic     float64 // cost-adjusted equity
	DivergencePct float64 // (realistic - theoretical) / theoretical * 100
}

// Divergence computes the divergence percentage between realistic and
// theoretical equity, guarding theoretical >= EquityEpsilon.
func Divergence(theoretical, realistic float64) float64 {
	if theoretical < EquityEpsilon {
		return 0
	}
	return (realistic - theoretical) / theoretical * 100
}
