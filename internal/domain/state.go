package domain

import "fmt"

// CampaignState is the promotion state of a campaign result.
// PENDING -> (guardrail check) -> REJECTED | CANDIDATE
// CANDIDATE -> (significance test) -> REJECTED | PROMOTED
// REJECTED and PROMOTED are terminal; no state is revisited.
type CampaignState string

// CampaignState constants.
const (
	StatePending   CampaignState = "PENDING"
	StateCandidate CampaignState = "CANDIDATE"
	StateRejected  CampaignState = "REJECTED"
	StatePromoted  CampaignState = "PROMOTED"
)

// Terminal reports whether the state admits no further transitions.
func (s CampaignState) Terminal() bool {
	return s == StateRejected || s == StatePromoted
}

// allowedTransitions enumerates the full transition relation.
var allowedTransitions = map[CampaignState][]CampaignState{
	StatePending:   {StateCandidate, StateRejected},
	StateCandidate: {StatePromoted, StateRejected},
	StateRejected:  {},
	StatePromoted:  {},
}

// Transition validates and returns the next state. Any move outside the
// state machine is ErrInvalidTransition.
func (s CampaignState) Transition(next CampaignState) (CampaignState, error) {
	for _, a := range allowedTransitions[s] {
		if a == next {
			return next, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
}
