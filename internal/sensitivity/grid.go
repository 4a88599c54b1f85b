// Package sensitivity sweeps a parameter grid through the backtest
// engine and analyzes which parameters dominate the target metric.
package sensitivity

import (
	"sort"

	"campaign-lab/internal/domain"
)

// Grid maps a dotted numeric parameter name to its candidate values.
type Grid map[string][]float64

// Size returns the number of combinations the grid expands to.
func (g Grid) Size() int {
	n := 1
	for _, values := range g {
		if len(values) == 0 {
			return 0
		}
		n *= len(values)
	}
	return n
}

// Names returns the grid's parameter names in sorted order. Expansion
// iterates names in this order, so combination indexing is stable
// across runs.
func (g Grid) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expand produces every combination merged over the base parameters.
// Combination order is deterministic: the last sorted name varies
// fastest.
func (g Grid) Expand(base domain.StrategyParams) []domain.StrategyParams {
	names := g.Names()
	if len(names) == 0 {
		return []domain.StrategyParams{base.Clone()}
	}

	out := make([]domain.StrategyParams, 0, g.Size())
	indices := make([]int, len(names))
	for {
		variant := base.Clone()
		for i, name := range names {
			variant.Numeric[name] = g[name][indices[i]]
		}
		variant.Version = variant.Fingerprint()
		out = append(out, variant)

		// Odometer increment over the index vector.
		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(g[names[pos]]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			return out
		}
	}
}
