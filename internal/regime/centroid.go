package regime

import (
	"math"
	"sort"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/stats"
)

// CentroidClassifier is the clustering-based regime model: k-means with
// one centroid per regime over standardized features, distance to
// centroid converted to a normalized probability. It carries no temporal
// memory, trading regime-persistence awareness for speed.
type CentroidClassifier struct {
	Lookback   int     // feature lookback, DefaultFeatureLookback when zero
	Iterations int     // k-means refinement passes, default 25
	Softness   float64 // softmax temperature for distance-to-probability, default 2.0
}

// NewCentroidClassifier returns a classifier with default settings.
func NewCentroidClassifier() *CentroidClassifier {
	return &CentroidClassifier{}
}

// Name implements Classifier.
func (c *CentroidClassifier) Name() string { return "centroid" }

// FitPredict implements Classifier.
func (c *CentroidClassifier) FitPredict(bars []domain.PriceBar) ([]domain.RegimeSnapshot, error) {
	lookback := c.Lookback
	if lookback == 0 {
		lookback = DefaultFeatureLookback
	}
	if err := checkWindow(bars, lookback); err != nil {
		return nil, err
	}

	features := ExtractFeatures(bars, lookback)
	points := standardize(features)
	centroids := c.fit(points)

	softness := c.Softness
	if softness == 0 {
		softness = 2.0
	}

	out := make([]domain.RegimeSnapshot, len(points))
	for i, p := range points {
		out[i] = snapshotFromDistances(features[i].TimestampMs, p, centroids, softness)
	}
	return out, nil
}

// fit runs k-means with deterministic quantile initialization: centroids
// seed at the 10th/50th/90th volatility percentiles so repeated fits on
// the same window always converge identically. The returned centroids are
// ordered calm, balanced, stress by ascending volatility coordinate.
func (c *CentroidClassifier) fit(points [][3]float64) [3][3]float64 {
	iters := c.Iterations
	if iters == 0 {
		iters = 25
	}

	byVol := make([]int, len(points))
	for i := range byVol {
		byVol[i] = i
	}
	sort.Slice(byVol, func(a, b int) bool { return points[byVol[a]][0] < points[byVol[b]][0] })

	pick := func(q float64) [3]float64 {
		idx := int(q * float64(len(byVol)-1))
		return points[byVol[idx]]
	}
	centroids := [3][3]float64{pick(0.10), pick(0.50), pick(0.90)}

	assign := make([]int, len(points))
	for it := 0; it < iters; it++ {
		changed := false
		for i, p := range points {
			best, bestD := 0, math.MaxFloat64
			for k := 0; k < 3; k++ {
				if d := sqDist(p, centroids[k]); d < bestD {
					best, bestD = k, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}

		var sums [3][3]float64
		var counts [3]int
		for i, p := range points {
			k := assign[i]
			counts[k]++
			for c := 0; c < 3; c++ {
				sums[k][c] += p[c]
			}
		}
		for k := 0; k < 3; k++ {
			if counts[k] == 0 {
				continue // empty cluster keeps its previous centroid
			}
			for c := 0; c < 3; c++ {
				centroids[k][c] = sums[k][c] / float64(counts[k])
			}
		}

		if !changed {
			break
		}
	}

	// Relabel by volatility coordinate: lowest is calm, highest is stress.
	order := []int{0, 1, 2}
	sort.Slice(order, func(a, b int) bool { return centroids[order[a]][0] < centroids[order[b]][0] })
	return [3][3]float64{centroids[order[0]], centroids[order[1]], centroids[order[2]]}
}

// snapshotFromDistances converts centroid distances into a normalized
// probability via a softmax over negative distances.
func snapshotFromDistances(timestampMs int64, p [3]float64, centroids [3][3]float64, softness float64) domain.RegimeSnapshot {
	var weights [3]float64
	sum := 0.0
	for k := 0; k < 3; k++ {
		weights[k] = math.Exp(-softness * math.Sqrt(sqDist(p, centroids[k])))
		sum += weights[k]
	}
	if sum == 0 {
		return domain.UniformSnapshot(timestampMs)
	}
	return domain.RegimeSnapshot{
		TimestampMs: timestampMs,
		Calm:        weights[0] / sum,
		Balanced:    weights[1] / sum,
		Stress:      weights[2] / sum,
	}
}

func sqDist(a, b [3]float64) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

var _ Classifier = (*CentroidClassifier)(nil)

// volQuantileThresholds derives calm/stress volatility cut points used by
// the sequential model's emission fit.
func volQuantileThresholds(features []FeatureVector) (float64, float64) {
	vols := make([]float64, len(features))
	for i, f := range features {
		vols[i] = f.Volatility
	}
	return stats.Percentile(vols, 33), stats.Percentile(vols, 67)
}
