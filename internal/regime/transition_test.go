package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-lab/internal/domain"
)

func stressSnap(ts int64, p float64) domain.RegimeSnapshot {
	rest := (1 - p) / 2
	return domain.RegimeSnapshot{TimestampMs: ts, Calm: rest, Balanced: rest, Stress: p}
}

func calmSnap(ts int64, p float64) domain.RegimeSnapshot {
	rest := (1 - p) / 2
	return domain.RegimeSnapshot{TimestampMs: ts, Calm: p, Balanced: rest, Stress: rest}
}

func TestTransitionManager_ConfirmsStressAndReverts(t *testing.T) {
	stressPlaybook := domain.NewStrategyParams()
	stressPlaybook.Numeric["risk.stop_loss_pct"] = 2

	base := domain.NewStrategyParams()
	base.Numeric["risk.stop_loss_pct"] = 5
	base.Numeric["breakout.lookback"] = 40

	mgr := NewTransitionManager(
		TransitionConfig{Alpha: 1.0, ConfirmThreshold: 0.6, MinObservations: 3},
		map[domain.Regime]domain.StrategyParams{domain.RegimeStress: stressPlaybook},
	)

	// Two strong stress observations: below the minimum observation count,
	// no transition may fire yet.
	require.Nil(t, mgr.Observe(stressSnap(1, 0.65)))
	require.Nil(t, mgr.Observe(stressSnap(2, 0.65)))
	assert.Equal(t, domain.RegimeBalanced, mgr.Confirmed())

	// Third observation with EMA 0.65 over threshold 0.6: confirmed.
	tr := mgr.Observe(stressSnap(3, 0.65))
	require.NotNil(t, tr)
	assert.Equal(t, domain.RegimeBalanced, tr.From)
	assert.Equal(t, domain.RegimeStress, tr.To)
	assert.InDelta(t, 0.65, tr.EMAProb, 1e-9)

	// Active params now reflect the stress playbook.
	active := mgr.ActiveParams(base)
	assert.Equal(t, 2.0, active.Num("risk.stop_loss_pct", 0))
	assert.Equal(t, 40.0, active.Num("breakout.lookback", 0))

	// A single calm bar must not revert: EMA still favors stress.
	mgr2 := NewTransitionManager(
		TransitionConfig{Alpha: 0.3, ConfirmThreshold: 0.6, MinObservations: 3},
		map[domain.Regime]domain.StrategyParams{domain.RegimeStress: stressPlaybook},
	)
	for i := int64(1); i <= 5; i++ {
		mgr2.Observe(stressSnap(i, 0.9))
	}
	require.Equal(t, domain.RegimeStress, mgr2.Confirmed())
	require.Nil(t, mgr2.Observe(calmSnap(6, 0.9)), "one calm bar must not flip the EMA")
	assert.Equal(t, domain.RegimeStress, mgr2.Confirmed())

	// A sustained calm run produces the symmetric confirmed transition.
	var reverted *Transition
	for i := int64(7); i < 30 && reverted == nil; i++ {
		reverted = mgr2.Observe(calmSnap(i, 0.9))
	}
	require.NotNil(t, reverted)
	assert.Equal(t, domain.RegimeStress, reverted.From)
	assert.Equal(t, domain.RegimeCalm, reverted.To)

	// Back on base params (no calm playbook registered).
	active = mgr2.ActiveParams(base)
	assert.Equal(t, 5.0, active.Num("risk.stop_loss_pct", 0))
}

func TestTransitionManager_ThresholdBoundary(t *testing.T) {
	mgr := NewTransitionManager(
		TransitionConfig{Alpha: 1.0, ConfirmThreshold: 0.6, MinObservations: 1},
		nil,
	)

	// EMA below threshold: dominant but unconfirmed.
	require.Nil(t, mgr.Observe(stressSnap(1, 0.59)))
	assert.Equal(t, domain.RegimeBalanced, mgr.Confirmed())

	// At threshold: confirmed (inclusive bound).
	tr := mgr.Observe(stressSnap(2, 0.60))
	require.NotNil(t, tr)
	assert.Equal(t, domain.RegimeStress, tr.To)
}
