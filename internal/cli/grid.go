package cli

import (
	"fmt"
	"strconv"
	"strings"

	"campaign-lab/internal/sensitivity"
)

// ParseGrid parses a sweep spec of the form
// "breakout.lookback=20,30,40;risk.max_hold_bars=6,8" into a grid.
func ParseGrid(spec string) (sensitivity.Grid, error) {
	grid := sensitivity.Grid{}
	if strings.TrimSpace(spec) == "" {
		return grid, nil
	}

	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, list, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("grid entry %q: expected name=v1,v2,...", part)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("grid entry %q: empty parameter name", part)
		}

		var values []float64
		for _, raw := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("grid entry %q: %w", part, err)
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("grid entry %q: no values", part)
		}
		grid[name] = values
	}
	return grid, nil
}
