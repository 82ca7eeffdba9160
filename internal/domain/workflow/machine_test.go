package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateSubmitted, false},
		{StateAnalyzing, false},
		{StateTriaged, false},
		{StatePendingApproval, false},
		{StateApproved, false},
		{StateEscalated, false},
		{StateRejected, true},
		{StateResolved, true},
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
		{"submitted", StateSubmitted, true},
		{"resolved", StateResolved, true},
		{"reserved analyzing", StateAnalyzing, true},
		{"upper case", State("SUBMITTED"), false},
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

func TestAllStates_AreValid(t *testing.T) {
	states := AllStates()
	if len(states) != len(validStates) {
		t.Fatalf("AllStates() returned %d states, want %d", len(states), len(validStates))
	}
	for _, s := range states {
		if !s.IsValid() {
			t.Errorf("AllStates() contains invalid state %q", s)
		}
	}
}

func TestBuilder_PanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on an undeclared state")
		}
	}()

	NewBuilder().Configure(State("closed"))
}

func TestStateConfiguration_PermitPanicsOnInvalidTarget(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on an undeclared target state")
		}
	}()

	NewBuilder().Configure(StateSubmitted).Permit(TriggerCompleteAnalysis, State("done"))
}

func TestStateMachine_CanFire(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateSubmitted).
		Permit(TriggerCompleteAnalysis, StateTriaged)

	machine := builder.Build(StateSubmitted)

	tests := []struct {
		trigger  Trigger
		expected bool
	}{
		{TriggerCompleteAnalysis, true},
		{TriggerApprove, false},
		{TriggerExecuteResolution, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.trigger), func(t *testing.T) {
			if got := machine.CanFire(tt.trigger); got != tt.expected {
				t.Errorf("CanFire() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateSubmitted).
		Permit(TriggerCompleteAnalysis, StateTriaged)

	machine := builder.Build(StateSubmitted)

	err := machine.Fire(context.Background(), TriggerExecuteResolution)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}

	if machine.State() != StateSubmitted {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateSubmitted, machine.State())
	}
}

func TestStateMachine_Fire_TerminalState(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateApproved).
		Permit(TriggerExecuteResolution, StateResolved)

	machine := builder.Build(StateResolved)

	err := machine.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestStateMachine_Fire_Guard(t *testing.T) {
	allow := false
	builder := NewBuilder()
	builder.Configure(StateTriaged).
		PermitIf(TriggerAutoApprove, StateApproved, func(ctx context.Context) bool { return allow })

	machine := builder.Build(StateTriaged)

	err := machine.Fire(context.Background(), TriggerAutoApprove)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}

	allow = true
	if err := machine.Fire(context.Background(), TriggerAutoApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.State() != StateApproved {
		t.Errorf("State = %v, want %v", machine.State(), StateApproved)
	}
}

func TestStateMachine_PermittedTriggers_Sorted(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateTriaged).
		Permit(TriggerRequestReview, StatePendingApproval).
		Permit(TriggerAutoApprove, StateApproved).
		Permit(TriggerEscalate, StateEscalated)

	machine := builder.Build(StateTriaged)

	got := machine.PermittedTriggers()
	want := []Trigger{TriggerAutoApprove, TriggerEscalate, TriggerRequestReview}
	if len(got) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStateMachine_PermittedTriggers_NoConfiguration(t *testing.T) {
	machine := NewBuilder().Build(StateSubmitted)

	if triggers := machine.PermittedTriggers(); len(triggers) != 0 {
		t.Errorf("PermittedTriggers() returned %d triggers, want 0", len(triggers))
	}
}

func TestStateMachine_TriggerFor(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePendingApproval).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected).
		PermitIf(TriggerEscalate, StateEscalated, func(ctx context.Context) bool { return true })

	machine := builder.Build(StatePendingApproval)

	trigger, ok := machine.TriggerFor(StateRejected)
	if !ok || trigger != TriggerReject {
		t.Errorf("TriggerFor(rejected) = %v, %v, want %v, true", trigger, ok, TriggerReject)
	}

	if _, ok := machine.TriggerFor(StateResolved); ok {
		t.Error("TriggerFor(resolved) should not find a trigger")
	}

	if _, ok := machine.TriggerFor(StateEscalated); ok {
		t.Error("TriggerFor() should skip guarded transitions")
	}
}

func TestStateMachine_Independence(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateSubmitted).
		Permit(TriggerCompleteAnalysis, StateTriaged)

	machine1 := builder.Build(StateSubmitted)
	machine2 := builder.Build(StateSubmitted)

	if err := machine1.Fire(context.Background(), TriggerCompleteAnalysis); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}

	if machine2.State() != StateSubmitted {
		t.Errorf("machine2 state = %v, want %v", machine2.State(), StateSubmitted)
	}

	// configuring after Build must not affect built machines
	builder.Configure(StateTriaged).Permit(TriggerAutoApprove, StateApproved)
	if machine1.CanFire(TriggerAutoApprove) {
		t.Error("machine1 should not see transitions configured after Build()")
	}
}

func TestStateMachine_ResolutionPath(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateSubmitted).
		Permit(TriggerCompleteAnalysis, StateTriaged)
	builder.Configure(StateTriaged).
		Permit(TriggerRequestReview, StatePendingApproval)
	builder.Configure(StatePendingApproval).
		Permit(TriggerApprove, StateApproved)
	builder.Configure(StateApproved).
		Permit(TriggerExecuteResolution, StateResolved)

	machine := builder.Build(StateSubmitted)

	steps := []struct {
		trigger       Trigger
		expectedState State
	}{
		{TriggerCompleteAnalysis, StateTriaged},
		{TriggerRequestReview, StatePendingApproval},
		{TriggerApprove, StateApproved},
		{TriggerExecuteResolution, StateResolved},
	}

	for i, step := range steps {
		if err := machine.Fire(context.Background(), step.trigger); err != nil {
			t.Fatalf("Step %d: Fire(%v) failed: %v", i, step.trigger, err)
		}
		if machine.State() != step.expectedState {
			t.Errorf("Step %d: State after Fire(%v) = %v, want %v", i, step.trigger, machine.State(), step.expectedState)
		}
	}

	if !machine.State().IsTerminal() {
		t.Error("resolved should be terminal")
	}
	if len(machine.PermittedTriggers()) != 0 {
		t.Error("terminal state should have no permitted triggers")
	}
}
