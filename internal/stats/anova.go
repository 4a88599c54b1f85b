package stats

import "gonum.org/v1/gonum/stat/distuv"

// AnovaResult holds a one-way ANOVA outcome.
type AnovaResult struct {
	FStatistic float64 // between-group / within-group variance ratio
	PValue     float64 // right-tail p-value under the F distribution
	DFBetween  int     // k - 1
	DFWithin   int     // n - k
	Valid      bool    // false when fewer than 2 groups or no residual df
}

// OneWayANOVA tests whether the group means of the target metric differ
// across the candidate values of one parameter. groups maps each
// parameter value to the metric observations recorded under it.
func OneWayANOVA(groups [][]float64) AnovaResult {
	k := len(groups)
	if k < 2 {
		return AnovaResult{Valid: false, PValue: 1}
	}

	n := 0
	grand := 0.0
	for _, g := range groups {
		for _, x := range g {
			grand += x
			n++
		}
	}
	if n <= k {
		return AnovaResult{Valid: false, PValue: 1}
	}
	grand /= float64(n)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		gm := Mean(g)
		d := gm - grand
		ssBetween += float64(len(g)) * d * d
		for _, x := range g {
			r := x - gm
			ssWithin += r * r
		}
	}

	dfBetween := k - 1
	dfWithin := n - k
	if ssWithin == 0 {
		// Perfect separation: the parameter fully determines the metric.
		return AnovaResult{FStatistic: 0, PValue: 0, DFBetween: dfBetween, DFWithin: dfWithin, Valid: true}
	}

	f := (ssBetween / float64(dfBetween)) / (ssWithin / float64(dfWithin))

	dist := distuv.F{D1: float64(dfBetween), D2: float64(dfWithin)}
	p := 1 - dist.CDF(f)

	return AnovaResult{FStatistic: f, PValue: p, DFBetween: dfBetween, DFWithin: dfWithin, Valid: true}
}
