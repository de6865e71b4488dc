package workflow

import (
	"context"
	"fmt"
)

// lifecycle is the claim state graph. Approved and Rejected have no outgoing
// transitions.
func lifecycle() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StateDraft).
		Permit(TriggerSubmit, StateSubmitted)
	b.Configure(StateSubmitted).
		Permit(TriggerRoute, StatePending).
		Permit(TriggerAutoApprove, StateApproved)
	b.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected).
		Ignore(TriggerAwait)
	return b
}

// NewClaimMachine returns a claim lifecycle machine positioned at state.
func NewClaimMachine(state State) (StateMachine, error) {
	return lifecycle().Build(state)
}

// Advance fires triggers in order from state and returns every transition
// taken. The first illegal trigger aborts with no partial result.
func Advance(ctx context.Context, state State, triggers ...Trigger) ([]Transition, error) {
	m, err := NewClaimMachine(state)
	if err != nil {
		return nil, err
	}
	transitions := make([]Transition, 0, len(triggers))
	for _, trigger := range triggers {
		t, err := m.Fire(ctx, trigger)
		if err != nil {
			return nil, fmt.Errorf("advance claim from %s: %w", state, err)
		}
		transitions = append(transitions, t)
	}
	return transitions, nil
}

// Final returns the state reached after transitions, or from when none fired.
func Final(from State, transitions []Transition) State {
	if len(transitions) == 0 {
		return from
	}
	return transitions[len(transitions)-1].To
}
