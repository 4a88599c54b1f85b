package domain

// Champion is the active strategy parameter set governing live signal
// generation for one (asset, venue). Exactly one champion is active per
// (asset, venue) at any time; activation happens through an atomic swap
// that deactivates the incumbent and inserts the successor in a single
// transaction. Champions are superseded, never deleted.
type Champion struct {
	ChampionID    string // deterministic hash
	Asset         string // asset symbol
	Venue         string // venue identifier
	Params        StrategyParams
	ParamsVersion string // fingerprint of Params

	// Provenance
	ResultID     string         // promoting campaign result
	TrainedOn    RegimeSnapshot // regime probabilities the campaign trained under
	Significance SignificanceResult
	Baseline     MetricsSnapshot // baseline metrics recorded at promotion

	// Lifecycle
	Active         bool  // exactly one active per (asset, venue)
	ActivatedAtMs  int64 // activation timestamp (ms)
	SupersededAtMs int64 // zero while active
}

// MetricsSnapshot is the compact rolling-metric view used for drift
// comparison between a champion's baseline and live performance.
type MetricsSnapshot struct {
	TimestampMs   int64   // snapshot timestamp (ms)
	Sharpe        float64 // rolling annualized Sharpe
	VolatilityPct float64 // rolling annualized volatility
	WindowDays    int     // trailing window length
	TradeCount    int     // trades inside the window
}
