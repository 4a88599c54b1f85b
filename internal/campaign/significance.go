package campaign

import (
	"fmt"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/stats"
)

// DefaultAlpha is the promotion significance level.
const DefaultAlpha = 0.05

// Significance compares a candidate's out-of-sample per-period return
// series against the incumbent baseline's using a Welch two-sample test.
// The verdict is persisted alongside the champion for auditability.
//
// A nil baseline means no champion has ever been promoted for the pair;
// the candidate then passes on guardrails alone, with the reason string
// recording that no comparison was possible.
func Significance(candidate, baseline []float64, alpha float64) domain.SignificanceResult {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}

	if len(baseline) == 0 {
		return domain.SignificanceResult{
			Alpha:         alpha,
			IsSignificant: true,
			Reason:        "no incumbent baseline; promotion gated by guardrails only",
		}
	}

	t := stats.WelchTTest(candidate, baseline)
	if !t.Valid {
		return domain.SignificanceResult{
			Alpha:  alpha,
			Reason: fmt.Sprintf("test inconclusive: candidate n=%d, baseline n=%d", len(candidate), len(baseline)),
		}
	}

	res := domain.SignificanceResult{
		PValue:        t.PValue,
		Alpha:         alpha,
		Statistic:     t.Statistic,
		IsSignificant: t.PValue < alpha && stats.Mean(candidate) > stats.Mean(baseline),
	}
	if res.IsSignificant {
		res.Reason = fmt.Sprintf("candidate outperforms baseline: p=%.4f < alpha=%.2f", t.PValue, alpha)
	} else if t.PValue >= alpha {
		res.Reason = fmt.Sprintf("not significant: p=%.4f >= alpha=%.2f", t.PValue, alpha)
	} else {
		res.Reason = fmt.Sprintf("significant but underperforming: p=%.4f, candidate mean below baseline", t.PValue)
	}
	return res
}
