package strategy

import "campaign-lab/internal/domain"

// BreakoutSignal buys when the current close clears the highest high of
// the trailing lookback and sells when it breaks the lowest low.
// Parameters:
//
//	breakout.lookback      trailing bars scanned for the channel (default 40)
//	breakout.buffer_pct    breakout margin beyond the channel edge (default 0)
func BreakoutSignal(window []domain.PriceBar, params domain.StrategyParams) Signal {
	lookback := int(params.Num("breakout.lookback", 40))
	buffer := params.Num("breakout.buffer_pct", 0) / 100

	if lookback < 2 || len(window) < lookback+1 {
		return Hold
	}

	current := window[len(window)-1]
	if !current.Valid() {
		return Hold
	}

	// Channel over the lookback bars preceding the current bar.
	highest, lowest := 0.0, 0.0
	first := true
	for _, b := range window[len(window)-1-lookback : len(window)-1] {
		if !b.Valid() {
			continue
		}
		if first {
			highest, lowest = b.High, b.Low
			first = false
			continue
		}
		if b.High > highest {
			highest = b.High
		}
		if b.Low < lowest {
			lowest = b.Low
		}
	}
	if first {
		return Hold
	}

	upper := highest * (1 + buffer)
	lower := lowest * (1 - buffer)

	switch {
	case current.Close > upper:
		conf := clampConfidence((current.Close - upper) / upper * 50)
		return Signal{Action: ActionBuy, Confidence: conf, Reason: "breakout above channel high"}
	case current.Close < lower:
		conf := clampConfidence((lower - current.Close) / lower * 50)
		return Signal{Action: ActionSell, Confidence: conf, Reason: "breakdown below channel low"}
	default:
		return Hold
	}
}

// clampConfidence keeps confidence in (0, 1], with a floor so a bare
// breakout still carries weight.
func clampConfidence(c float64) float64 {
	if c < 0.1 {
		return 0.1
	}
	if c > 1 {
		return 1
	}
	return c
}
