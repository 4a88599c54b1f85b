package domain

// Recalibration trigger reasons.
const (
	TriggerSharpeDrift     = "sharpe_drift"
	TriggerVolatilityDrift = "volatility_drift"
)

// RecalibrationEvent is emitted when the performance monitor detects that
// live rolling metrics drifted beyond the trigger fraction from the active
// champion's baseline. Immutable; consumed exactly once by a
// RecalibrationJob.
type RecalibrationEvent struct {
	EventID string // deterministic hash, see idhash.EventID
	Asset   string // asset symbol
	Venue   string // venue identifier
	Reason  string // sharpe_drift | volatility_drift

	Baseline MetricsSnapshot // champion baseline at promotion
	Current  MetricsSnapshot // rolling metrics at trigger time
	Regime   RegimeSnapshot  // regime context at trigger time

	TriggeredAtMs int64 // trigger timestamp (ms)
	Consumed      bool  // set once a job has taken the event
	ConsumedAtMs  int64 // zero until consumed
}

// DriftFraction returns |current-baseline|/|baseline| for the metric that
// fired, given its baseline and current values.
func DriftFraction(baseline, current float64) float64 {
	if baseline == 0 {
		if current == 0 {
			return 0
		}
		return 1
	}
	d := (current - baseline) / baseline
	if d < 0 {
		d = -d
	}
	return d
}
