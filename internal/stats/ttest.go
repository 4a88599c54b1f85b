package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TTestResult holds a two-sample Welch's t-test outcome.
type TTestResult struct {
	Statistic float64 // t statistic
	DF        float64 // Welch-Satterthwaite degrees of freedom
	PValue    float64 // two-sided p-value
	Valid     bool    // false when either sample is too small or degenerate
}

// WelchTTest compares the means of two independent samples without
// assuming equal variances. Used to compare candidate and baseline
// per-period return series in the promotion gate.
func WelchTTest(a, b []float64) TTestResult {
	na, nb := float64(len(a)), float64(len(b))
	if na < 2 || nb < 2 {
		return TTestResult{Valid: false, PValue: 1}
	}

	ma, mb := Mean(a), Mean(b)
	va, vb := Variance(a), Variance(b)

	sea := va / na
	seb := vb / nb
	se := sea + seb
	if se == 0 {
		// Identical degenerate samples carry no evidence either way.
		return TTestResult{Valid: false, PValue: 1}
	}

	t := (ma - mb) / math.Sqrt(se)

	// Welch-Satterthwaite approximation.
	df := se * se / (sea*sea/(na-1) + seb*seb/(nb-1))
	if df < 1 {
		df = 1
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.CDF(-math.Abs(t))

	return TTestResult{Statistic: t, DF: df, PValue: p, Valid: true}
}
