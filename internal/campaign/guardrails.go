package campaign

import (
	"fmt"

	"campaign-lab/internal/domain"
)

// GuardrailConfig holds the numeric thresholds a candidate must clear to
// leave PENDING. All comparisons are inclusive: a value exactly at its
// threshold passes.
type GuardrailConfig struct {
	MinWindowDays      float64 // default 730
	MinMonthlyCoverage float64 // default 0.90
	MaxGapDays         float64 // default 1
	MinOOSCalmar       float64 // default 1.5
	MaxDrawdownPct     float64 // default 25
	MaxRiskOfRuin      float64 // default 0.05
	MinOOSDays         float64 // default 120
	MaxCAGRDivergence  float64 // default 5 percentage points
	MinBootstrapCalmar float64 // default 1.0, 5th percentile
	MinTradeCount      int     // default 50, out-of-sample
	MinDurationMonths  float64 // default 24
}

// DefaultGuardrailConfig returns the production thresholds.
func DefaultGuardrailConfig() GuardrailConfig {
	return GuardrailConfig{
		MinWindowDays:      730,
		MinMonthlyCoverage: 0.90,
		MaxGapDays:         1,
		MinOOSCalmar:       1.5,
		MaxDrawdownPct:     25,
		MaxRiskOfRuin:      0.05,
		MinOOSDays:         120,
		MaxCAGRDivergence:  5,
		MinBootstrapCalmar: 1.0,
		MinTradeCount:      50,
		MinDurationMonths:  24,
	}
}

const daysPerMonth = 30.44

// EvaluateGuardrails runs every check and returns the full detail list
// plus the overall verdict. A candidate must pass all of them; the first
// failing check supplies the reject reason.
func EvaluateGuardrails(r *domain.CampaignResult, cov CoverageStats, cfg GuardrailConfig) ([]domain.GuardrailCheck, bool, string) {
	// The drawdown ceiling applies to the worst realistic drawdown seen
	// in any stage, so a variant cannot hide a blowup in training.
	worstDD := r.Train.MaxDrawdownPct
	for _, dd := range []float64{r.Validation.MaxDrawdownPct, r.WalkForward.MaxDrawdownPct, r.OutOfSample.MaxDrawdownPct} {
		if dd > worstDD {
			worstDD = dd
		}
	}

	cagrDiv := (r.OutOfSample.CAGRTheoretic - r.OutOfSample.CAGRRealistic) * 100
	if cagrDiv < 0 {
		cagrDiv = -cagrDiv
	}

	ruin := r.RiskOfRuin
	if r.RuinIndeterm {
		// Indeterminate reads as certain ruin so the check cannot pass.
		ruin = 1
	}

	checks := []domain.GuardrailCheck{
		atLeast("min_window_days", cov.SpanDays, cfg.MinWindowDays),
		atLeast("monthly_bar_coverage", cov.MonthlyCoverage, cfg.MinMonthlyCoverage),
		atMost("max_gap_days", cov.MaxGapDays, cfg.MaxGapDays),
		atLeast("oos_calmar", r.OutOfSample.Calmar, cfg.MinOOSCalmar),
		atMost("realistic_max_drawdown_pct", worstDD, cfg.MaxDrawdownPct),
		atMost("risk_of_ruin", ruin, cfg.MaxRiskOfRuin),
		atLeast("oos_length_days", r.OutOfSample.SpanDays, cfg.MinOOSDays),
		atMost("cagr_divergence_pct", cagrDiv, cfg.MaxCAGRDivergence),
		atLeast("bootstrap_calmar_p05", r.BootstrapCalmr.P05, cfg.MinBootstrapCalmar),
		atLeast("oos_trade_count", float64(r.OutOfSample.TradeCount), float64(cfg.MinTradeCount)),
		atLeast("total_duration_months", cov.SpanDays/daysPerMonth, cfg.MinDurationMonths),
	}

	for _, c := range checks {
		if !c.Pass {
			reason := fmt.Sprintf("guardrail %s: want %s, got %s", c.Name, c.Threshold, c.Actual)
			return checks, false, reason
		}
	}
	return checks, true, ""
}

func atLeast(name string, actual, threshold float64) domain.GuardrailCheck {
	return domain.GuardrailCheck{
		Name:      name,
		Threshold: fmt.Sprintf(">= %.4g", threshold),
		Actual:    fmt.Sprintf("%.4f", actual),
		Pass:      actual >= threshold,
	}
}

func atMost(name string, actual, threshold float64) domain.GuardrailCheck {
	return domain.GuardrailCheck{
		Name:      name,
		Threshold: fmt.Sprintf("<= %.4g", threshold),
		Actual:    fmt.Sprintf("%.4f", actual),
		Pass:      actual <= threshold,
	}
}
