// Package verification checks that stored run artifacts are reproducible:
// replaying a run with the same bars, parameters, and seed must regenerate
// the stored trade ledger and equity curve byte-for-byte within tolerance.
package verification

import (
	"math"

	"campaign-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// TradeVerification is the comparison outcome for a single trade.
type TradeVerification struct {
	TradeID     string            // verified trade ID
	Match       bool              // true if all fields match
	Divergences []FieldDivergence // list of divergent fields
}

// RunVerification is the outcome of verifying one run end to end.
type RunVerification struct {
	RunID string

	// Checksums computed over stored vs replayed artifacts.
	StoredLedgerChecksum   string
	ReplayedLedgerChecksum string
	StoredEquityChecksum   string
	ReplayedEquityChecksum string

	TotalTrades     int
	MatchedTrades   int
	DivergentTrades int
	Trades          []TradeVerification

	// Match is true when every trade matches and both checksums agree.
	Match bool
}

// CompareTrades compares a stored trade against its replayed counterpart
// and returns divergences. Uses FloatTolerance for float64 comparisons.
func CompareTrades(stored, replayed *domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence

	diverge := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	if stored.TradeID != replayed.TradeID {
		diverge("TradeID", stored.TradeID, replayed.TradeID)
	}
	if stored.RunID != replayed.RunID {
		diverge("RunID", stored.RunID, replayed.RunID)
	}
	if stored.Direction != replayed.Direction {
		diverge("Direction", stored.Direction, replayed.Direction)
	}
	if stored.ExitReason != replayed.ExitReason {
		diverge("ExitReason", stored.ExitReason, replayed.ExitReason)
	}

	if stored.EntryTimestampMs != replayed.EntryTimestampMs {
		diverge("EntryTimestampMs", stored.EntryTimestampMs, replayed.EntryTimestampMs)
	}
	if !floatEquals(stored.EntryTheoretical, replayed.EntryTheoretical) {
		diverge("EntryTheoretical", stored.EntryTheoretical, replayed.EntryTheoretical)
	}
	if !floatEquals(stored.EntryRealistic, replayed.EntryRealistic) {
		diverge("EntryRealistic", stored.EntryRealistic, replayed.EntryRealistic)
	}
	if !floatEquals(stored.PositionPct, replayed.PositionPct) {
		diverge("PositionPct", stored.PositionPct, replayed.PositionPct)
	}

	if stored.ExitTimestampMs != replayed.ExitTimestampMs {
		diverge("ExitTimestampMs", stored.ExitTimestampMs, replayed.ExitTimestampMs)
	}
	if !floatEquals(stored.ExitTheoretical, replayed.ExitTheoretical) {
		diverge("ExitTheoretical", stored.ExitTheoretical, replayed.ExitTheoretical)
	}
	if !floatEquals(stored.ExitRealistic, replayed.ExitRealistic) {
		diverge("ExitRealistic", stored.ExitRealistic, replayed.ExitRealistic)
	}

	if !floatEquals(stored.PnLTheoreticalPct, replayed.PnLTheoreticalPct) {
		diverge("PnLTheoreticalPct", stored.PnLTheoreticalPct, replayed.PnLTheoreticalPct)
	}
	if !floatEquals(stored.PnLRealisticPct, replayed.PnLRealisticPct) {
		diverge("PnLRealisticPct", stored.PnLRealisticPct, replayed.PnLRealisticPct)
	}
	if stored.HoldBars != replayed.HoldBars {
		diverge("HoldBars", stored.HoldBars, replayed.HoldBars)
	}
	if stored.HoldDurationMs != replayed.HoldDurationMs {
		diverge("HoldDurationMs", stored.HoldDurationMs, replayed.HoldDurationMs)
	}

	if !floatEquals(stored.EntryRegime.Calm, replayed.EntryRegime.Calm) ||
		!floatEquals(stored.EntryRegime.Balanced, replayed.EntryRegime.Balanced) ||
		!floatEquals(stored.EntryRegime.Stress, replayed.EntryRegime.Stress) {
		diverge("EntryRegime", stored.EntryRegime, replayed.EntryRegime)
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
