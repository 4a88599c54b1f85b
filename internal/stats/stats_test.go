package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptive(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(xs), 1e-12)
	assert.InDelta(t, 4.571428571, Variance(xs), 1e-6)
	assert.InDelta(t, 5.0, Median(xs), 1e-12)
	assert.InDelta(t, 2.0, Percentile(xs, 0), 1e-12)
	assert.InDelta(t, 9.0, Percentile(xs, 100), 1e-12)
}

func TestPearsonCorrelation(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}
	assert.InDelta(t, 1.0, PearsonCorrelation(xs, ys), 1e-12)

	neg := []float64{10, 8, 6, 4, 2}
	assert.InDelta(t, -1.0, PearsonCorrelation(xs, neg), 1e-12)

	assert.Equal(t, 0.0, PearsonCorrelation(xs, []float64{1, 1, 1, 1, 1}))
}

func TestBootstrap_Deterministic(t *testing.T) {
	xs := []float64{-1, 2, 3, -0.5, 1.2, 0.8}

	a := Bootstrap(xs, 500, 42, Mean)
	b := Bootstrap(xs, 500, 42, Mean)
	require.Equal(t, a, b, "same seed must reproduce the bootstrap distribution")

	c := Bootstrap(xs, 500, 43, Mean)
	assert.NotEqual(t, a, c, "different seed should perturb the distribution")
}

func TestBootstrapCI_CoversPointEstimate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	xs := make([]float64, 200)
	for i := range xs {
		xs[i] = rng.NormFloat64() + 1.0
	}

	lo, med, hi := BootstrapCI(xs, 2000, 99, 5, 95, Mean)
	require.Less(t, lo, hi)
	assert.Greater(t, med, lo)
	assert.Less(t, med, hi)
	assert.InDelta(t, Mean(xs), med, 0.1)
}

func TestWelchTTest_SeparatedSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := make([]float64, 100)
	b := make([]float64, 100)
	for i := range a {
		a[i] = rng.NormFloat64() + 1.0
		b[i] = rng.NormFloat64()
	}

	res := WelchTTest(a, b)
	require.True(t, res.Valid)
	assert.Less(t, res.PValue, 0.01, "unit mean separation over 100 samples should be significant")
	assert.Greater(t, res.Statistic, 0.0)
}

func TestWelchTTest_IdenticalSamples(t *testing.T) {
	xs := []float64{0.1, 0.2, -0.1, 0.05, 0.15, -0.02}

	res := WelchTTest(xs, xs)
	require.True(t, res.Valid)
	assert.InDelta(t, 0.0, res.Statistic, 1e-12)
	assert.Greater(t, res.PValue, 0.95)
}

func TestWelchTTest_TooSmall(t *testing.T) {
	res := WelchTTest([]float64{1}, []float64{1, 2, 3})
	assert.False(t, res.Valid)
	assert.Equal(t, 1.0, res.PValue)
}

func TestOneWayANOVA(t *testing.T) {
	// Clearly separated group means.
	separated := [][]float64{
		{1.0, 1.1, 0.9, 1.05},
		{5.0, 5.1, 4.9, 5.05},
		{9.0, 9.2, 8.8, 9.1},
	}
	res := OneWayANOVA(separated)
	require.True(t, res.Valid)
	assert.Less(t, res.PValue, 0.001)
	assert.Equal(t, 2, res.DFBetween)
	assert.Equal(t, 9, res.DFWithin)

	// Same distribution in every group: no effect.
	same := [][]float64{
		{1.0, 2.0, 3.0, 2.5},
		{2.0, 1.5, 2.8, 2.2},
		{1.8, 2.4, 2.1, 2.6},
	}
	res = OneWayANOVA(same)
	require.True(t, res.Valid)
	assert.Greater(t, res.PValue, 0.05)
}

func TestOneWayANOVA_Invalid(t *testing.T) {
	res := OneWayANOVA([][]float64{{1, 2, 3}})
	assert.False(t, res.Valid)
}
