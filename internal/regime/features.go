// Package regime infers latent market state (calm/balanced/stress) from
// price/volume features and detects persistent regime transitions.
package regime

import (
	"math"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/stats"
)

// FeatureVector holds the per-bar features driving regime inference.
type FeatureVector struct {
	TimestampMs int64   // bar timestamp (ms)
	Volatility  float64 // trailing realized volatility of log returns
	Skew        float64 // trailing return skew
	VolumeRatio float64 // volume normalized by its own trailing mean
}

// ExtractFeatures computes one FeatureVector per bar from index lookback
// onward. Bars before the lookback have no features. Invalid bars
// contribute a zero return rather than NaN so a single bad bar cannot
// poison the trailing window.
func ExtractFeatures(bars []domain.PriceBar, lookback int) []FeatureVector {
	if lookback < 2 || len(bars) <= lookback {
		return nil
	}

	logReturns := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		if bars[i].Valid() && bars[i-1].Valid() {
			logReturns[i] = math.Log(bars[i].Close / bars[i-1].Close)
		}
	}

	out := make([]FeatureVector, 0, len(bars)-lookback)
	for i := lookback; i < len(bars); i++ {
		window := logReturns[i-lookback+1 : i+1]

		volSum := 0.0
		for j := i - lookback + 1; j <= i; j++ {
			volSum += bars[j].Volume
		}
		volMean := volSum / float64(lookback)

		ratio := 1.0
		if volMean > 0 {
			ratio = bars[i].Volume / volMean
		}

		out = append(out, FeatureVector{
			TimestampMs: bars[i].TimestampMs,
			Volatility:  stats.StdDev(window),
			Skew:        stats.Skewness(window),
			VolumeRatio: ratio,
		})
	}
	return out
}

// standardize maps features onto zero-mean unit-variance coordinates so
// no single feature dominates distance computations.
func standardize(features []FeatureVector) [][3]float64 {
	n := len(features)
	cols := [3][]float64{
		make([]float64, n),
		make([]float64, n),
		make([]float64, n),
	}
	for i, f := range features {
		cols[0][i] = f.Volatility
		cols[1][i] = f.Skew
		cols[2][i] = f.VolumeRatio
	}

	var means, sds [3]float64
	for c := 0; c < 3; c++ {
		means[c] = stats.Mean(cols[c])
		sds[c] = stats.StdDev(cols[c])
		if sds[c] == 0 {
			sds[c] = 1
		}
	}

	out := make([][3]float64, n)
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			out[i][c] = (cols[c][i] - means[c]) / sds[c]
		}
	}
	return out
}
