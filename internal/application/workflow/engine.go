package workflow

import (
	"context"

	"github.com/garyjia/ai-claims/internal/domain/entity"
	domainwf "github.com/garyjia/ai-claims/internal/domain/workflow"
)

// Engine is the only writer of claim records.
// Every write for one claim id runs under that id's lock as a
// read-modify-write against the repository.
type Engine interface {
	// Create stores a new claim and records the submission
	Create(ctx context.Context, claim *entity.Claim) error

	// Transition fires req.Trigger and appends exactly one audit entry.
	// Outside strict mode APPROVE also succeeds from any non-terminal state.
	Transition(ctx context.Context, claimID string, req TransitionRequest) (*entity.Claim, error)

	// Update changes a claim without a status change.
	// An audit entry is appended only when req.Action is set.
	Update(ctx context.Context, claimID string, req UpdateRequest) (*entity.Claim, error)

	// SetStatus is the operator override. In strict mode target must be
	// reachable from the current state through the transition table.
	SetStatus(ctx context.Context, claimID string, target domainwf.State, actor string) (*entity.Claim, error)

	// CurrentState returns the stored status of a claim
	CurrentState(ctx context.Context, claimID string) (domainwf.State, error)
}

// TransitionRequest describes one status transition
type TransitionRequest struct {
	Trigger domainwf.Trigger
	Action  string
	Actor   string
	Details map[string]interface{}

	// Mutate runs after the state change and before the record is saved.
	// An error aborts the transition and nothing is written.
	Mutate func(claim *entity.Claim) error
}

// UpdateRequest describes a write that leaves the status alone
type UpdateRequest struct {
	Action  string
	Actor   string
	Details map[string]interface{}
	Mutate  func(claim *entity.Claim) error
}
