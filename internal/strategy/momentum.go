package strategy

import "campaign-lab/internal/domain"

// MomentumSignal trades simple-moving-average crossovers: buy when the
// fast average crosses above the slow one on the current bar, sell on the
// opposite cross. Parameters:
//
//	momentum.fast   fast SMA length (default 12)
//	momentum.slow   slow SMA length (default 48)
func MomentumSignal(window []domain.PriceBar, params domain.StrategyParams) Signal {
	fast := int(params.Num("momentum.fast", 12))
	slow := int(params.Num("momentum.slow", 48))

	if fast < 1 || slow <= fast || len(window) < slow+1 {
		return Hold
	}

	fastNow := sma(window, len(window)-1, fast)
	slowNow := sma(window, len(window)-1, slow)
	fastPrev := sma(window, len(window)-2, fast)
	slowPrev := sma(window, len(window)-2, slow)
	if fastNow == 0 || slowNow == 0 || fastPrev == 0 || slowPrev == 0 {
		return Hold
	}

	crossedUp := fastPrev <= slowPrev && fastNow > slowNow
	crossedDown := fastPrev >= slowPrev && fastNow < slowNow

	switch {
	case crossedUp:
		conf := clampConfidence((fastNow - slowNow) / slowNow * 100)
		return Signal{Action: ActionBuy, Confidence: conf, Reason: "fast SMA crossed above slow"}
	case crossedDown:
		conf := clampConfidence((slowNow - fastNow) / slowNow * 100)
		return Signal{Action: ActionSell, Confidence: conf, Reason: "fast SMA crossed below slow"}
	default:
		return Hold
	}
}

// sma averages the closes of the n valid bars ending at index end.
// Returns 0 when the window cannot supply n valid bars.
func sma(bars []domain.PriceBar, end, n int) float64 {
	if end+1 < n || end >= len(bars) {
		return 0
	}
	sum := 0.0
	count := 0
	for i := end - n + 1; i <= end; i++ {
		if !bars[i].Valid() {
			continue
		}
		sum += bars[i].Close
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
