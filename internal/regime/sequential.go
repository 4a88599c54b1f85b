package regime

import (
	"math"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/stats"
)

// SequentialClassifier is the probabilistic regime model. It fits Gaussian
// emission distributions per regime (bucketed by volatility terciles),
// then runs a forward filter with a sticky transition matrix so the
// inferred state carries temporal persistence. Emissions are refitted
// every RefitEvery observations as the filter scans the window.
type SequentialClassifier struct {
	Lookback    int     // feature lookback, DefaultFeatureLookback when zero
	RefitEvery  int     // observations between emission refits, default 50
	Persistence float64 // self-transition probability, default 0.90
}

// NewSequentialClassifier returns a classifier with default settings.
func NewSequentialClassifier() *SequentialClassifier {
	return &SequentialClassifier{}
}

// Name implements Classifier.
func (s *SequentialClassifier) Name() string { return "sequential" }

// emission holds per-regime Gaussian parameters for one feature.
type emission struct {
	mean [3]float64 // per regime
	sd   [3]float64 // per regime
}

// FitPredict implements Classifier.
func (s *SequentialClassifier) FitPredict(bars []domain.PriceBar) ([]domain.RegimeSnapshot, error) {
	lookback := s.Lookback
	if lookback == 0 {
		lookback = DefaultFeatureLookback
	}
	if err := checkWindow(bars, lookback); err != nil {
		return nil, err
	}

	refitEvery := s.RefitEvery
	if refitEvery == 0 {
		refitEvery = 50
	}
	persistence := s.Persistence
	if persistence == 0 {
		persistence = 0.90
	}
	switchP := (1 - persistence) / 2

	features := ExtractFeatures(bars, lookback)

	// Forward filter with periodic emission refits.
	belief := [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	var em emission
	out := make([]domain.RegimeSnapshot, len(features))

	for i, f := range features {
		if i%refitEvery == 0 {
			em = fitEmissions(features[:i+1], features)
		}

		// Predict step: sticky transition matrix.
		var pred [3]float64
		for to := 0; to < 3; to++ {
			for from := 0; from < 3; from++ {
				p := switchP
				if from == to {
					p = persistence
				}
				pred[to] += belief[from] * p
			}
		}

		// Update step: volatility likelihood per regime.
		sum := 0.0
		for k := 0; k < 3; k++ {
			belief[k] = pred[k] * gaussianPDF(f.Volatility, em.mean[k], em.sd[k])
			sum += belief[k]
		}
		if sum <= 0 {
			belief = [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
		} else {
			for k := 0; k < 3; k++ {
				belief[k] /= sum
			}
		}

		out[i] = domain.RegimeSnapshot{
			TimestampMs: f.TimestampMs,
			Calm:        belief[0],
			Balanced:    belief[1],
			Stress:      belief[2],
		}
	}
	return out, nil
}

// fitEmissions estimates per-regime volatility Gaussians. Observations are
// bucketed by the tercile thresholds of the full window so early refits on
// short prefixes stay stable; the prefix is used once it is large enough.
func fitEmissions(prefix, full []FeatureVector) emission {
	source := full
	if len(prefix) >= minObservations*3 {
		source = prefix
	}

	lo, hi := volQuantileThresholds(source)
	var buckets [3][]float64
	for _, f := range source {
		switch {
		case f.Volatility <= lo:
			buckets[0] = append(buckets[0], f.Volatility)
		case f.Volatility >= hi:
			buckets[2] = append(buckets[2], f.Volatility)
		default:
			buckets[1] = append(buckets[1], f.Volatility)
		}
	}

	var em emission
	for k := 0; k < 3; k++ {
		em.mean[k] = stats.Mean(buckets[k])
		em.sd[k] = stats.StdDev(buckets[k])
		if em.sd[k] <= 0 {
			// Degenerate bucket: widen to a fraction of the overall spread.
			all := make([]float64, 0, len(source))
			for _, f := range source {
				all = append(all, f.Volatility)
			}
			em.sd[k] = math.Max(stats.StdDev(all)*0.25, 1e-9)
		}
	}
	return em
}

func gaussianPDF(x, mean, sd float64) float64 {
	if sd <= 0 {
		return 0
	}
	z := (x - mean) / sd
	return math.Exp(-0.5*z*z) / (sd * math.Sqrt(2*math.Pi))
}

var _ Classifier = (*SequentialClassifier)(nil)
