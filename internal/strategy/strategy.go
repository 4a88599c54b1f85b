// Package strategy defines the signal-generation functions backtests
// replay. A strategy sees only the window of bars up to and including the
// current bar and the parameter set passed to it explicitly; there is no
// ambient parameter state.
package strategy

import (
	"errors"

	"campaign-lab/internal/domain"
)

// Action is the decision a strategy emits for the current bar.
type Action string

// Action constants.
const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal is a strategy decision with confidence in [0,1].
type Signal struct {
	Action     Action
	Confidence float64
	Reason     string
}

// Hold is the neutral signal.
var Hold = Signal{Action: ActionHold}

// SignalFunc maps a historical window (oldest first, last element is the
// current bar) and a parameter set to a signal. Implementations must not
// look beyond the window and must not retain state between calls.
type SignalFunc func(window []domain.PriceBar, params domain.StrategyParams) Signal

// Strategy kind constants, selected by the "strategy.kind" categorical
// parameter.
const (
	KindBreakout = "breakout"
	KindMomentum = "momentum"
)

// Factory errors.
var (
	ErrUnknownStrategyKind = errors.New("unknown strategy kind")
)

// FromParams builds the SignalFunc selected by params["strategy.kind"].
// Numeric parameters are read with defaults so a sparse parameter set is
// always runnable.
func FromParams(params domain.StrategyParams) (SignalFunc, error) {
	switch kind := params.Cat("strategy.kind", KindBreakout); kind {
	case KindBreakout:
		return BreakoutSignal, nil
	case KindMomentum:
		return MomentumSignal, nil
	default:
		return nil, ErrUnknownStrategyKind
	}
}
