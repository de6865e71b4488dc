package workflow

import "context"

// Transition records one fired trigger. From equals To for ignored triggers.
type Transition struct {
	From    State
	To      State
	Trigger Trigger
}

// Changed reports whether the transition moved the machine to another state
func (t Transition) Changed() bool {
	return t.From != t.To
}

// StateMachine represents a state machine that tracks current state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state and
	// at least one of its guards passes
	CanFire(ctx context.Context, trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) (Transition, error)

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []Trigger
}
