package regime

import (
	"campaign-lab/internal/domain"
)

// DefaultFeatureLookback is the trailing window for feature extraction.
const DefaultFeatureLookback = 20

// Classifier infers per-bar regime probabilities from a price window.
// Implementations are stateless across calls: each FitPredict fits on the
// given window only, so concurrent backtest runs can hold private
// instances without shared state.
type Classifier interface {
	// FitPredict returns one RegimeSnapshot per bar from the feature
	// lookback onward. Returns domain.ErrInsufficientData when the window
	// cannot support the lookback.
	FitPredict(bars []domain.PriceBar) ([]domain.RegimeSnapshot, error)

	// Name returns the classifier identifier.
	Name() string
}

// minObservations is the fewest feature vectors a fit can work with.
const minObservations = 6

// checkWindow validates the bar window for either classifier.
func checkWindow(bars []domain.PriceBar, lookback int) error {
	need := lookback + minObservations
	if len(bars) < need {
		return domain.InsufficientDataError("regime fit", len(bars), need)
	}
	return nil
}
