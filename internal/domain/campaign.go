package domain

// PerformanceMetrics is the shared metric vocabulary produced by the
// backtest engine and consumed by guardrails, monitoring, and reporting.
// Percentages are expressed as percent values (25.0 = 25%).
type PerformanceMetrics struct {
	// Returns
	TotalReturnPct float64 // total realistic return
	CAGRRealistic  float64 // compound annual growth rate, realistic curve
	CAGRTheoretic  float64 // compound annual growth rate, theoretical curve

	// Risk
	MaxDrawdownPct         float64 // worst peak-to-trough, realistic curve
	MaxDrawdownTheoretic   float64 // worst peak-to-trough, theoretical curve
	MaxDrawdownDurationDay int     // longest drawdown spell in days
	VolatilityPct          float64 // annualized stddev of per-bar returns

	// Risk-adjusted
	Sharpe  float64 // annualized Sharpe ratio
	Sortino float64 // annualized Sortino ratio
	Calmar  float64 // CAGR / max drawdown

	// Tail risk
	VaR95  float64 // 95% historical value at risk (pct)
	VaR99  float64 // 99% historical value at risk (pct)
	CVaR95 float64 // 95% expected shortfall (pct)
	CVaR99 float64 // 99% expected shortfall (pct)

	// Trades
	TradeCount           int     // closed trades
	WinRate              float64 // winning trades / total (0..1)
	ProfitFactor         float64 // gross profit / gross loss
	MaxConsecutiveWins   int     // longest win streak
	MaxConsecutiveLosses int     // longest loss streak

	// Coverage
	Bars        int     // bars replayed
	SkippedBars int     // invalid bars skipped
	SpanDays    float64 // calendar span covered
}

// GuardrailCheck records one numeric guardrail outcome with the exact
// threshold and observed value for operator-facing diagnostics.
type GuardrailCheck struct {
	Name      string // guardrail name
	Threshold string // human-readable threshold
	Actual    string // formatted observed value
	Pass      bool   // true when the guardrail holds
}

// SignificanceResult records the champion-promotion statistical test.
// Persisted alongside the champion for auditability.
type SignificanceResult struct {
	PValue        float64 // two-sample test p-value
	Alpha         float64 // significance level used
	IsSignificant bool    // p-value < alpha
	Statistic     float64 // test statistic
	Reason        string  // human-readable verdict
}

// BootstrapBounds holds a bootstrap confidence interval for a metric.
type BootstrapBounds struct {
	Metric string  // metric name
	P05    float64 // 5th percentile
	P50    float64 // median
	P95    float64 // 95th percentile
}

// CampaignResult is the outcome for one parameter variant in a campaign run.
// Produced, evaluated against guardrails, and either discarded or promoted
// into a Champion. Append-only.
type CampaignResult struct {
	ResultID      string // deterministic hash
	CampaignID    string // owning campaign run
	Asset         string // asset symbol
	Venue         string // venue identifier
	ParamsVersion string // fingerprint of the variant's parameters
	Params        StrategyParams
	Seed          int64 // RNG seed driving this variant

	// Stage metrics, strictly time-ordered stages
	Train       PerformanceMetrics
	Validation  PerformanceMetrics
	WalkForward PerformanceMetrics
	OutOfSample PerformanceMetrics

	// Risk simulation
	RiskOfRuin     float64 // Monte Carlo ruin probability (0..1)
	RuinIndeterm   bool    // true when the ledger was too small to estimate
	BootstrapCalmr BootstrapBounds

	// Verdicts
	State        CampaignState
	Guardrails   []GuardrailCheck
	Significance SignificanceResult
	Valid        bool   // false when any stage returned insufficient data
	Unstable     bool   // theoretical/realistic divergence exceeded tolerance
	RejectReason string // empty unless State == REJECTED

	// Reproducibility
	DatasetChecksum string // content hash of the input bar series
	LedgerChecksum  string // content hash of the out-of-sample trade ledger
	CreatedAtMs     int64  // record creation timestamp (ms)
}
