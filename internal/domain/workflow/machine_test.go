package workflow

import (
	"context"
	"errors"
	"testing"
)

type ctxKey string

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateDraft, false},
		{StateSubmitted, false},
		{StatePending, false},
		{StateApproved, true},
		{StateRejected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"valid state", StateDraft, true},
		{"valid state", StateRejected, true},
		{"wrong case", State("pending"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StateDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}
	if config2 := builder.Configure(StateDraft); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	NewBuilder().Configure(State("INVALID"))
}

func TestBuilder_BuildRejectsInvalidInitialState(t *testing.T) {
	_, err := NewBuilder().Build(State("INVALID"))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Build() error = %v, want %v", err, ErrInvalidState)
	}
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		PermitIf(TriggerSubmit, StateSubmitted, func(ctx context.Context) bool { return false })

	machine, err := builder.Build(StateDraft)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if machine.CanFire(context.Background(), TriggerSubmit) {
		t.Error("CanFire() should be false when every guard fails")
	}
	if _, err := machine.Fire(context.Background(), TriggerSubmit); !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != StateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateDraft, machine.State())
	}
}

func TestStateConfiguration_PermitIf_MultipleTransitions(t *testing.T) {
	builder := NewBuilder()
	isAdmin := func(ctx context.Context) bool { return ctx.Value(ctxKey("admin")) == true }
	builder.Configure(StateSubmitted).
		PermitIf(TriggerRoute, StateApproved, isAdmin).
		PermitIf(TriggerRoute, StatePending, func(ctx context.Context) bool { return !isAdmin(ctx) })

	tests := []struct {
		admin    bool
		expected State
	}{
		{true, StateApproved},
		{false, StatePending},
	}

	for _, tt := range tests {
		machine, err := builder.Build(StateSubmitted)
		if err != nil {
			t.Fatalf("Build() failed: %v", err)
		}
		ctx := context.WithValue(context.Background(), ctxKey("admin"), tt.admin)
		tr, err := machine.Fire(ctx, TriggerRoute)
		if err != nil {
			t.Fatalf("Fire() failed: %v", err)
		}
		if tr.To != tt.expected || machine.State() != tt.expected {
			t.Errorf("admin=%v: state = %v, want %v", tt.admin, machine.State(), tt.expected)
		}
	}
}

func TestStateConfiguration_Ignore(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).Ignore(TriggerAwait)

	machine, err := builder.Build(StatePending)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	tr, err := machine.Fire(context.Background(), TriggerAwait)
	if err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if tr.Changed() {
		t.Errorf("ignored trigger changed state: %+v", tr)
	}
	if machine.State() != StatePending {
		t.Errorf("State = %v, want %v", machine.State(), StatePending)
	}
}

func TestStateMachine_Fire_NoConfiguration(t *testing.T) {
	machine, err := NewBuilder().Build(StateDraft)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if _, err := machine.Fire(context.Background(), TriggerSubmit); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if triggers := machine.PermittedTriggers(); len(triggers) != 0 {
		t.Errorf("PermittedTriggers() returned %d triggers, want 0", len(triggers))
	}
}

func TestStateMachine_Immutability(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).Permit(TriggerSubmit, StateSubmitted)

	machine1, _ := builder.Build(StateDraft)
	machine2, _ := builder.Build(StateDraft)

	// reconfiguring after Build must not leak into built machines
	builder.Configure(StateDraft).Permit(TriggerAutoApprove, StateApproved)

	if _, err := machine1.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine2.State() != StateDraft {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), StateDraft)
	}
	if machine2.CanFire(context.Background(), TriggerAutoApprove) {
		t.Error("machine2 picked up a transition configured after Build()")
	}
}

func TestClaimLifecycle_PermittedTriggers(t *testing.T) {
	tests := []struct {
		state    State
		expected []Trigger
	}{
		{StateDraft, []Trigger{TriggerSubmit}},
		{StateSubmitted, []Trigger{TriggerAutoApprove, TriggerRoute}},
		{StatePending, []Trigger{TriggerApprove, TriggerAwait, TriggerReject}},
		{StateApproved, []Trigger{}},
		{StateRejected, []Trigger{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			machine, err := NewClaimMachine(tt.state)
			if err != nil {
				t.Fatalf("NewClaimMachine() failed: %v", err)
			}
			got := machine.PermittedTriggers()
			if len(got) != len(tt.expected) {
				t.Fatalf("PermittedTriggers() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("PermittedTriggers() = %v, want %v", got, tt.expected)
				}
			}
		})
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name     string
		from     State
		triggers []Trigger
		expected State
		changes  int
		wantErr  error
	}{
		{"admin submission", StateDraft, []Trigger{TriggerSubmit, TriggerAutoApprove}, StateApproved, 2, nil},
		{"routed submission", StateDraft, []Trigger{TriggerSubmit, TriggerRoute}, StatePending, 2, nil},
		{"routed and already satisfied", StateDraft, []Trigger{TriggerSubmit, TriggerRoute, TriggerApprove}, StateApproved, 3, nil},
		{"unrouted submission", StateDraft, []Trigger{TriggerSubmit}, StateSubmitted, 1, nil},
		{"approval not yet satisfied", StatePending, []Trigger{TriggerAwait}, StatePending, 0, nil},
		{"rejection", StatePending, []Trigger{TriggerReject}, StateRejected, 1, nil},
		{"rejected is terminal", StateRejected, []Trigger{TriggerApprove}, "", 0, ErrInvalidTransition},
		{"approved is terminal", StateApproved, []Trigger{TriggerReject}, "", 0, ErrInvalidTransition},
		{"submitted cannot be decided", StateSubmitted, []Trigger{TriggerApprove}, "", 0, ErrInvalidTransition},
		{"unknown state", State("Archived"), []Trigger{TriggerSubmit}, "", 0, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transitions, err := Advance(context.Background(), tt.from, tt.triggers...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Advance() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Advance() failed: %v", err)
			}
			if got := Final(tt.from, transitions); got != tt.expected {
				t.Errorf("Final() = %v, want %v", got, tt.expected)
			}
			changes := 0
			for _, tr := range transitions {
				if tr.Changed() {
					changes++
				}
			}
			if changes != tt.changes {
				t.Errorf("state changes = %d, want %d", changes, tt.changes)
			}
		})
	}
}
