package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not in the table
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not a declared claim state
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every guard for a trigger rejects the transition
	ErrGuardFailed = errors.New("guard condition failed")
)
