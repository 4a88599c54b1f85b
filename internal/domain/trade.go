package domain

// Direction is the side of a position.
type Direction string

// Direction constants.
const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Exit reason codes.
const (
	ExitReasonStopLoss   = "STOP_LOSS"
	ExitReasonTakeProfit = "TAKE_PROFIT"
	ExitReasonMaxHold    = "MAX_HOLD"
	ExitReasonSignal     = "SIGNAL"
	ExitReasonEndOfData  = "END_OF_DATA"
)

// Trade represents one closed position produced by a backtest run.
// Corresponds to the trade_records table. Trades are write-once and owned
// exclusively by the run that produced them.
type Trade struct {
	TradeID string // deterministic hash, see idhash.TradeID
	RunID   string // owning run identifier
	Asset   string // asset symbol
	Venue   string // venue identifier

	// Entry
	EntryTimestampMs int64     // entry bar timestamp (ms)
	EntryTheoretical float64   // frictionless entry price
	EntryRealistic   float64   // cost-model-adjusted entry price
	Direction        Direction // long | short
	PositionPct      float64   // fraction of capital committed at entry

	// Exit
	ExitTimestampMs int64   // exit bar timestamp (ms)
	ExitTheoretical float64 // frictionless exit price
	ExitRealistic   float64 // cost-model-adjusted exit price
	ExitReason      string  // reason code

	// Outcome
	PnLTheoreticalPct float64 // realized PnL percentage, frictionless
	PnLRealisticPct   float64 // realized PnL percentage, after costs
	HoldBars          int     // holding duration in bars
	HoldDurationMs    int64   // holding duration in milliseconds

	// Context
	EntryRegime RegimeSnapshot // regime probabilities at entry decision
}

// Won reports whether the realistic outcome was positive.
func (t Trade) Won() bool {
	return t.PnLRealisticPct > 0
}
