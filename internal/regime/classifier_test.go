package regime

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-lab/internal/domain"
)

// syntheticBars builds a series with a calm first half (low volatility)
// and a stressed second half (high volatility, elevated volume).
func syntheticBars(n int, seed int64) []domain.PriceBar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]domain.PriceBar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		vol := 0.003
		volume := 1000.0
		if i >= n/2 {
			vol = 0.04
			volume = 4000.0
		}
		ret := rng.NormFloat64() * vol
		price *= math.Exp(ret)
		bars[i] = domain.PriceBar{
			TimestampMs: int64(i+1) * 60_000,
			Open:        price * 0.999,
			High:        price * 1.002,
			Low:         price * 0.998,
			Close:       price,
			Volume:      volume * (0.8 + 0.4*rng.Float64()),
		}
	}
	return bars
}

func TestClassifiers_SnapshotsAreValidDistributions(t *testing.T) {
	bars := syntheticBars(400, 11)

	for _, clf := range []Classifier{NewCentroidClassifier(), NewSequentialClassifier()} {
		t.Run(clf.Name(), func(t *testing.T) {
			snaps, err := clf.FitPredict(bars)
			require.NoError(t, err)
			require.NotEmpty(t, snaps)

			for i, s := range snaps {
				require.NoErrorf(t, s.Validate(), "snapshot %d", i)
			}
		})
	}
}

func TestClassifiers_DetectStressPhase(t *testing.T) {
	bars := syntheticBars(400, 23)

	for _, clf := range []Classifier{NewCentroidClassifier(), NewSequentialClassifier()} {
		t.Run(clf.Name(), func(t *testing.T) {
			snaps, err := clf.FitPredict(bars)
			require.NoError(t, err)

			// Average stress probability over the last quarter should
			// clearly exceed that of the first quarter.
			q := len(snaps) / 4
			var early, late float64
			for i := 0; i < q; i++ {
				early += snaps[i].Stress
			}
			for i := len(snaps) - q; i < len(snaps); i++ {
				late += snaps[i].Stress
			}
			assert.Greater(t, late/float64(q), early/float64(q)+0.2,
				"stress probability should rise in the high-volatility phase")
		})
	}
}

func TestClassifiers_InsufficientData(t *testing.T) {
	bars := syntheticBars(10, 5)

	for _, clf := range []Classifier{NewCentroidClassifier(), NewSequentialClassifier()} {
		_, err := clf.FitPredict(bars)
		require.ErrorIs(t, err, domain.ErrInsufficientData, clf.Name())
	}
}

func TestCentroidClassifier_Deterministic(t *testing.T) {
	bars := syntheticBars(300, 7)
	clf := NewCentroidClassifier()

	a, err := clf.FitPredict(bars)
	require.NoError(t, err)
	b, err := clf.FitPredict(bars)
	require.NoError(t, err)

	require.Equal(t, a, b, "repeated fits on the same window must be identical")
}

func TestExtractFeatures_SkipsInvalidBars(t *testing.T) {
	bars := syntheticBars(100, 3)
	bars[50].Close = math.NaN()

	features := ExtractFeatures(bars, DefaultFeatureLookback)
	require.NotEmpty(t, features)
	for i, f := range features {
		assert.Falsef(t, math.IsNaN(f.Volatility), "feature %d volatility is NaN", i)
		assert.Falsef(t, math.IsNaN(f.Skew), "feature %d skew is NaN", i)
	}
}
