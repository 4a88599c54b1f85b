package stats

import "math/rand"

// Bootstrap draws resamples-with-replacement from xs, applies statistic to
// each resample, and returns the resulting distribution. The RNG is
// seeded by the caller so results are reproducible. Returns nil for an
// empty input.
func Bootstrap(xs []float64, trials int, seed int64, statistic func([]float64) float64) []float64 {
	if len(xs) == 0 || trials <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, trials)
	sample := make([]float64, len(xs))

	for t := 0; t < trials; t++ {
		for i := range sample {
			sample[i] = xs[rng.Intn(len(xs))]
		}
		out[t] = statistic(sample)
	}
	return out
}

// BootstrapCI returns the (lo, median, hi) percentiles of the bootstrap
// distribution of statistic, where lo and hi are percentile values in
// 0..100 (e.g. 5 and 95).
func BootstrapCI(xs []float64, trials int, seed int64, lo, hi float64, statistic func([]float64) float64) (float64, float64, float64) {
	dist := Bootstrap(xs, trials, seed, statistic)
	if len(dist) == 0 {
		return 0, 0, 0
	}
	return Percentile(dist, lo), Median(dist), Percentile(dist, hi)
}
