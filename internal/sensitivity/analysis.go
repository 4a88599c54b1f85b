package sensitivity

import (
	"sort"

	"campaign-lab/internal/stats"
)

// ValueEffect is the marginal effect of fixing one parameter value,
// with a bootstrap confidence interval over the combinations sharing it.
type ValueEffect struct {
	Value      float64
	MeanMetric float64
	CILow      float64
	CIHigh     float64
	Rows       int
}

// ParamEffect summarizes one parameter's influence on the target metric.
type ParamEffect struct {
	Name        string
	FStatistic  float64
	PValue      float64
	Valid       bool // false when too few usable rows per value
	Correlation float64
	Effects     []ValueEffect
}

// SafeZone is the value range of one parameter over the combinations
// that satisfy the score floor and drawdown ceiling simultaneously.
type SafeZone struct {
	Name         string
	Low          float64
	High         float64
	Combinations int
}

const bootstrapTrials = 2_000

// Dominance ranks grid parameters by influence on the target metric:
// one-way ANOVA across the groups formed by each candidate value, linear
// correlation of value against metric, and a bootstrap interval for each
// value's mean. Errored rows are excluded. Results are sorted by
// descending F-statistic.
func (t *Table) Dominance(grid Grid, seed int64) []ParamEffect {
	out := make([]ParamEffect, 0, len(grid))
	for _, name := range grid.Names() {
		out = append(out, t.paramEffect(name, grid[name], seed))
		seed++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FStatistic > out[j].FStatistic })
	return out
}

func (t *Table) paramEffect(name string, values []float64, seed int64) ParamEffect {
	effect := ParamEffect{Name: name}

	groups := make([][]float64, 0, len(values))
	var xs, ys []float64
	for _, v := range values {
		var group []float64
		for _, row := range t.Rows {
			if row.Err != nil {
				continue
			}
			if row.Params.Num(name, v) != v {
				continue
			}
			metric := metricValue(row.Metrics, t.Target)
			group = append(group, metric)
			xs = append(xs, v)
			ys = append(ys, metric)
		}
		groups = append(groups, group)

		ve := ValueEffect{Value: v, Rows: len(group), MeanMetric: stats.Mean(group)}
		if len(group) >= 2 {
			ve.CILow, _, ve.CIHigh = stats.BootstrapCI(group, bootstrapTrials, seed, 5, 95, stats.Mean)
		} else {
			ve.CILow, ve.CIHigh = ve.MeanMetric, ve.MeanMetric
		}
		effect.Effects = append(effect.Effects, ve)
	}

	anova := stats.OneWayANOVA(groups)
	effect.FStatistic = anova.FStatistic
	effect.PValue = anova.PValue
	effect.Valid = anova.Valid
	effect.Correlation = stats.PearsonCorrelation(xs, ys)
	return effect
}

// SafeZones reports, per parameter, the value range spanned by the
// combinations whose target metric meets minScore and whose realistic
// max drawdown stays within drawdownCeilingPct. A parameter absent from
// every qualifying combination yields no zone.
func (t *Table) SafeZones(grid Grid, minScore, drawdownCeilingPct float64) []SafeZone {
	qualifying := make([]Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		if row.Err != nil || row.Unstable {
			continue
		}
		if metricValue(row.Metrics, t.Target) >= minScore && row.Metrics.MaxDrawdownPct <= drawdownCeilingPct {
			qualifying = append(qualifying, row)
		}
	}
	if len(qualifying) == 0 {
		return nil
	}

	zones := make([]SafeZone, 0, len(grid))
	for _, name := range grid.Names() {
		zone := SafeZone{Name: name}
		first := true
		for _, row := range qualifying {
			v := row.Params.Num(name, 0)
			if first {
				zone.Low, zone.High = v, v
				first = false
				continue
			}
			if v < zone.Low {
				zone.Low = v
			}
			if v > zone.High {
				zone.High = v
			}
		}
		zone.Combinations = len(qualifying)
		zones = append(zones, zone)
	}
	return zones
}
