package engine

import (
	"math"
	"sort"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/stats"
)

// barsPerYear assumes daily bars for annualization. Metric consumers
// compare like against like, so the constant cancels in relative
// comparisons even on other intervals.
const barsPerYear = 365.0

// ComputeMetrics derives the full metric vocabulary from an equity curve
// and trade ledger. Empty inputs produce zeroed metrics, never panics.
func ComputeMetrics(equity []domain.EquityPoint, trades []domain.Trade, initialCapital float64) domain.PerformanceMetrics {
	m := domain.PerformanceMetrics{
		TradeCount: len(trades),
		Bars:       len(equity),
	}
	if len(equity) == 0 || initialCapital <= 0 {
		return m
	}

	realistic := make([]float64, len(equity))
	theoretic := make([]float64, len(equity))
	for i, p := range equity {
		realistic[i] = p.Realistic
		theoretic[i] = p.Theoretical
	}

	spanMs := equity[len(equity)-1].TimestampMs - equity[0].TimestampMs
	m.SpanDays = float64(spanMs) / (1000 * 86_400)

	final := realistic[len(realistic)-1]
	m.TotalReturnPct = (final - initialCapital) / initialCapital * 100
	m.CAGRRealistic = cagr(initialCapital, final, m.SpanDays)
	m.CAGRTheoretic = cagr(initialCapital, theoretic[len(theoretic)-1], m.SpanDays)

	m.MaxDrawdownPct, m.MaxDrawdownDurationDay = maxDrawdown(equity, realisticCurve)
	m.MaxDrawdownTheoretic, _ = maxDrawdown(equity, theoreticCurve)

	returns := perBarReturns(realistic)
	m.VolatilityPct = stats.StdDev(returns) * math.Sqrt(barsPerYear) * 100
	m.Sharpe = sharpe(returns)
	m.Sortino = sortino(returns)

	if m.MaxDrawdownPct > 0 {
		m.Calmar = m.CAGRRealistic * 100 / m.MaxDrawdownPct
	}

	m.VaR95 = historicalVaR(returns, 0.95) * 100
	m.VaR99 = historicalVaR(returns, 0.99) * 100
	m.CVaR95 = expectedShortfall(returns, 0.95) * 100
	m.CVaR99 = expectedShortfall(returns, 0.99) * 100

	fillTradeStats(&m, trades)
	return m
}

// PerBarReturns exposes the realistic per-bar return series used by the
// significance test.
func PerBarReturns(equity []domain.EquityPoint) []float64 {
	realistic := make([]float64, len(equity))
	for i, p := range equity {
		realistic[i] = p.Realistic
	}
	return perBarReturns(realistic)
}

func perBarReturns(curve []float64) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] > 0 {
			out = append(out, (curve[i]-curve[i-1])/curve[i-1])
		}
	}
	return out
}

func cagr(initial, final, spanDays float64) float64 {
	if initial <= 0 || final <= 0 || spanDays <= 0 {
		return 0
	}
	return math.Pow(final/initial, 365/spanDays) - 1
}

type curveSelector int

const (
	realisticCurve curveSelector = iota
	theoreticCurve
)

// maxDrawdown returns the worst peak-to-trough percentage and the longest
// drawdown spell in days for the selected curve.
func maxDrawdown(equity []domain.EquityPoint, sel curveSelector) (float64, int) {
	if len(equity) == 0 {
		return 0, 0
	}

	value := func(p domain.EquityPoint) float64 {
		if sel == theoreticCurve {
			return p.Theoretical
		}
		return p.Realistic
	}

	maxDD := 0.0
	peak := value(equity[0])
	peakTs := equity[0].TimestampMs
	longestMs := int64(0)

	for _, p := range equity {
		v := value(p)
		if v > peak {
			peak = v
			peakTs = p.TimestampMs
			continue
		}
		if peak > 0 {
			dd := (peak - v) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
		if spell := p.TimestampMs - peakTs; spell > longestMs {
			longestMs = spell
		}
	}
	return maxDD, int(longestMs / (1000 * 86_400))
}

func sharpe(returns []float64) float64 {
	sd := stats.StdDev(returns)
	if sd == 0 {
		return 0
	}
	return stats.Mean(returns) / sd * math.Sqrt(barsPerYear)
}

func sortino(returns []float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	sd := stats.StdDev(downside)
	if sd == 0 {
		return 0
	}
	return stats.Mean(returns) / sd * math.Sqrt(barsPerYear)
}

// historicalVaR is the loss at the given confidence under historical
// simulation, reported as a positive fraction.
func historicalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return math.Abs(sorted[idx])
}

// expectedShortfall is the mean loss beyond the VaR threshold.
func expectedShortfall(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	sum, count := 0.0, 0
	for i := 0; i <= idx; i++ {
		sum += sorted[i]
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Abs(sum / float64(count))
}

func fillTradeStats(m *domain.PerformanceMetrics, trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}

	wins := 0
	grossProfit, grossLoss := 0.0, 0.0
	winStreak, lossStreak := 0, 0
	for _, t := range trades {
		if t.Won() {
			wins++
			grossProfit += t.PnLRealisticPct
			winStreak++
			lossStreak = 0
		} else {
			grossLoss += math.Abs(t.PnLRealisticPct)
			lossStreak++
			winStreak = 0
		}
		if winStreak > m.MaxConsecutiveWins {
			m.MaxConsecutiveWins = winStreak
		}
		if lossStreak > m.MaxConsecutiveLosses {
			m.MaxConsecutiveLosses = lossStreak
		}
	}

	m.WinRate = float64(wins) / float64(len(trades))
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		m.ProfitFactor = math.Inf(1)
	}
}
