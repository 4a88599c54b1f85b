package regime

import (
	"campaign-lab/internal/domain"
)

// TransitionConfig sets the transition detector's confirmation rules.
type TransitionConfig struct {
	Alpha            float64 // EMA smoothing factor, default 0.3
	ConfirmThreshold float64 // EMA probability required to confirm, default 0.6
	MinObservations  int     // observations before any confirmation, default 3
}

// DefaultTransitionConfig returns the standard detector settings.
func DefaultTransitionConfig() TransitionConfig {
	return TransitionConfig{Alpha: 0.3, ConfirmThreshold: 0.6, MinObservations: 3}
}

// Transition describes one confirmed regime change.
type Transition struct {
	From        domain.Regime // previously confirmed regime
	To          domain.Regime // newly confirmed regime
	TimestampMs int64         // bar timestamp of confirmation
	EMAProb     float64       // smoothed probability at confirmation
}

// TransitionManager smooths regime probabilities with an EMA and confirms
// a transition only when the new dominant regime's EMA exceeds the
// threshold, differs from the confirmed regime, and a minimum number of
// observations have accumulated. This keeps single-bar noise from
// flapping the active parameter set.
//
// On a confirmed transition the manager merges the new regime's playbook
// (if any) over the base parameters; the merged set governs decisions from
// the confirming bar until the next confirmed transition.
type TransitionManager struct {
	cfg       TransitionConfig
	playbooks map[domain.Regime]domain.StrategyParams

	ema       [3]float64
	confirmed domain.Regime
	seen      int
	primed    bool
}

// NewTransitionManager creates a manager starting in the balanced regime.
func NewTransitionManager(cfg TransitionConfig, playbooks map[domain.Regime]domain.StrategyParams) *TransitionManager {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = 0.3
	}
	if cfg.ConfirmThreshold <= 0 {
		cfg.ConfirmThreshold = 0.6
	}
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = 3
	}
	return &TransitionManager{
		cfg:       cfg,
		playbooks: playbooks,
		confirmed: domain.RegimeBalanced,
	}
}

// Confirmed returns the currently confirmed regime.
func (m *TransitionManager) Confirmed() domain.Regime { return m.confirmed }

// Observations returns how many snapshots the manager has seen.
func (m *TransitionManager) Observations() int { return m.seen }

// Observe folds one snapshot into the EMA and returns a non-nil Transition
// when a regime change is confirmed on this observation.
func (m *TransitionManager) Observe(snap domain.RegimeSnapshot) *Transition {
	probs := [3]float64{snap.Calm, snap.Balanced, snap.Stress}
	if !m.primed {
		m.ema = probs
		m.primed = true
	} else {
		for k := 0; k < 3; k++ {
			m.ema[k] = m.cfg.Alpha*probs[k] + (1-m.cfg.Alpha)*m.ema[k]
		}
	}
	m.seen++

	dominant, emaP := domain.RegimeCalm, m.ema[0]
	if m.ema[1] > emaP {
		dominant, emaP = domain.RegimeBalanced, m.ema[1]
	}
	if m.ema[2] > emaP {
		dominant, emaP = domain.RegimeStress, m.ema[2]
	}

	if m.seen < m.cfg.MinObservations {
		return nil
	}
	if dominant == m.confirmed || emaP < m.cfg.ConfirmThreshold {
		return nil
	}

	tr := &Transition{
		From:        m.confirmed,
		To:          dominant,
		TimestampMs: snap.TimestampMs,
		EMAProb:     emaP,
	}
	m.confirmed = dominant
	return tr
}

// ActiveParams returns the parameter set governing decisions under the
// currently confirmed regime: the regime's playbook merged over base, or
// base unchanged when no playbook is defined.
func (m *TransitionManager) ActiveParams(base domain.StrategyParams) domain.StrategyParams {
	pb, ok := m.playbooks[m.confirmed]
	if !ok {
		return base
	}
	return base.Merge(pb)
}
