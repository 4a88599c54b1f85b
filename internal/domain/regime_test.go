package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegimeSnapshot_Validate(t *testing.T) {
	cases := []struct {
		name    string
		snap    RegimeSnapshot
		wantErr bool
	}{
		{"exact sum", RegimeSnapshot{Calm: 0.2, Balanced: 0.3, Stress: 0.5}, false},
		{"within tolerance", RegimeSnapshot{Calm: 0.2, Balanced: 0.3, Stress: 0.5 + 5e-7}, false},
		{"sum too high", RegimeSnapshot{Calm: 0.5, Balanced: 0.5, Stress: 0.1}, true},
		{"negative probability", RegimeSnapshot{Calm: -0.1, Balanced: 0.6, Stress: 0.5}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.snap.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidSnapshot)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRegimeSnapshot_Dominant(t *testing.T) {
	s := RegimeSnapshot{Calm: 0.1, Balanced: 0.25, Stress: 0.65}
	r, p := s.Dominant()
	assert.Equal(t, RegimeStress, r)
	assert.InDelta(t, 0.65, p, 1e-12)
}

func TestUniformSnapshot_IsValid(t *testing.T) {
	require.NoError(t, UniformSnapshot(0).Validate())
}

func TestCampaignState_Transitions(t *testing.T) {
	// Legal path: PENDING -> CANDIDATE -> PROMOTED
	s := StatePending
	s, err := s.Transition(StateCandidate)
	require.NoError(t, err)
	s, err = s.Transition(StatePromoted)
	require.NoError(t, err)
	assert.True(t, s.Terminal())

	// Terminal states admit nothing.
	_, err = StatePromoted.Transition(StateCandidate)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = StateRejected.Transition(StatePending)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// PENDING cannot jump straight to PROMOTED.
	_, err = StatePending.Transition(StatePromoted)
	require.ErrorIs(t, err, ErrInvalidTransition)
}
