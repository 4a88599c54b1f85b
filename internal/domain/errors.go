package domain

import (
	"errors"
	"fmt"
)

// Core error taxonomy. Each class has a distinct recovery path:
// insufficient data skips the unit and logs, guardrail violations reject the
// candidate with the exact failing criterion, inconclusive statistics block
// promotion without being fatal, and persistence failures retry with the
// prior champion staying active.
var (
	// ErrInsufficientData indicates not enough history/coverage to run a
	// stage. The caller skips the asset/interval; synthetic data is never
	// substituted.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidSnapshot indicates a regime snapshot violating probability
	// invariants.
	ErrInvalidSnapshot = errors.New("invalid regime snapshot")

	// ErrInvalidTransition indicates a promotion state transition outside
	// the state machine.
	ErrInvalidTransition = errors.New("invalid promotion state transition")

	// ErrPersistenceFailed indicates the atomic champion swap could not
	// complete. The swap is retried; on repeated failure the prior champion
	// remains active.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrEventConsumed indicates a recalibration event was already consumed.
	// Re-applying the same event is a no-op, never a second promotion.
	ErrEventConsumed = errors.New("recalibration event already consumed")
)

// GuardrailViolation reports a specific numeric threshold failure. It is
// surfaced as a REJECTED campaign result, never as a process failure.
type GuardrailViolation struct {
	Metric    string  // failing metric name
	Threshold string  // human-readable threshold, e.g. ">= 1.5"
	Actual    float64 // observed value
}

// Error implements the error interface.
func (v *GuardrailViolation) Error() string {
	return fmt.Sprintf("guardrail violation: %s %s, got %.4f", v.Metric, v.Threshold, v.Actual)
}

// InsufficientDataError wraps ErrInsufficientData with stage detail so
// operators can distinguish "data is insufficient" from "strategy is bad".
func InsufficientDataError(stage string, have, need int) error {
	return fmt.Errorf("%w: %s has %d bars, need %d", ErrInsufficientData, stage, have, need)
}
