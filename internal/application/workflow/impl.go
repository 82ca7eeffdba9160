package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/ai-claims/internal/application/dispatcher"
	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
	"github.com/garyjia/ai-claims/internal/domain/event"
	domainwf "github.com/garyjia/ai-claims/internal/domain/workflow"
)

type engineImpl struct {
	claimRepo  port.ClaimRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher

	locks  *keyedMutex
	strict bool
	now    func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithStrictTransitions makes SetStatus and Approve follow the transition table
func WithStrictTransitions(strict bool) EngineOption {
	return func(e *engineImpl) {
		e.strict = strict
	}
}

// WithClock overrides time.Now for audit timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine. Transitions are permissive by default.
func NewEngine(claimRepo port.ClaimRepository, txManager port.TransactionManager, opts ...EngineOption) Engine {
	e := &engineImpl{
		claimRepo: claimRepo,
		txManager: txManager,
		locks:     newKeyedMutex(),
		strict:    false,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) Create(ctx context.Context, claim *entity.Claim) error {
	if claim == nil || claim.ID == "" {
		return fmt.Errorf("claim must have an id")
	}
	if !domainwf.State(claim.Status).IsValid() {
		return fmt.Errorf("%w: %s", domainwf.ErrInvalidState, claim.Status)
	}

	unlock := e.locks.Lock(claim.ID)
	defer unlock()

	if err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return e.claimRepo.Create(txCtx, claim)
	}); err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}

	e.emit(ctx, event.NewEvent(event.TypeClaimSubmitted, claim.ID, map[string]interface{}{
		"category":        string(claim.Category),
		"priority":        string(claim.Priority),
		"estimated_value": claim.EstimatedValue,
	}))

	return nil
}

func (e *engineImpl) Transition(ctx context.Context, claimID string, req TransitionRequest) (*entity.Claim, error) {
	var previous, next domainwf.State

	updated, err := e.modify(ctx, claimID, func(claim *entity.Claim, at time.Time) error {
		previous = domainwf.State(claim.Status)
		if !previous.IsValid() {
			return fmt.Errorf("%w: stored status %q", domainwf.ErrInvalidState, claim.Status)
		}

		machine := BuildClaimStateMachine(previous)
		if err := machine.Fire(ctx, req.Trigger); err != nil {
			target, ok := e.operatorTarget(previous, req.Trigger)
			if !ok || !errors.Is(err, domainwf.ErrInvalidTransition) {
				return err
			}
			next = target
		} else {
			next = machine.State()
		}
		claim.Status = entity.ClaimStatus(next)

		if req.Mutate != nil {
			if err := req.Mutate(claim); err != nil {
				return err
			}
		}

		claim.AppendAudit(req.Action, req.Actor, withStatus(req.Details, previous, next), at)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emitStatusChanged(ctx, claimID, previous, next, req.Trigger.String(), req.Actor)
	return updated, nil
}

func (e *engineImpl) Update(ctx context.Context, claimID string, req UpdateRequest) (*entity.Claim, error) {
	return e.modify(ctx, claimID, func(claim *entity.Claim, at time.Time) error {
		if req.Mutate != nil {
			if err := req.Mutate(claim); err != nil {
				return err
			}
		}
		if req.Action != "" {
			claim.AppendAudit(req.Action, req.Actor, req.Details, at)
		} else {
			claim.UpdatedAt = at
		}
		return nil
	})
}

func (e *engineImpl) SetStatus(ctx context.Context, claimID string, target domainwf.State, actor string) (*entity.Claim, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrInvalidState, target)
	}

	var previous domainwf.State
	var trigger domainwf.Trigger

	updated, err := e.modify(ctx, claimID, func(claim *entity.Claim, at time.Time) error {
		previous = domainwf.State(claim.Status)

		if e.strict {
			t, ok := BuildClaimStateMachine(previous).TriggerFor(target)
			if !ok {
				return fmt.Errorf("%w: %s is not reachable from %s", domainwf.ErrInvalidTransition, target, previous)
			}
			trigger = t
		}

		claim.Status = entity.ClaimStatus(target)
		details := withStatus(nil, previous, target)
		if trigger != "" {
			details["trigger"] = trigger.String()
		}
		claim.AppendAudit(entity.ActionStatusUpdated, actor, details, at)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emitStatusChanged(ctx, claimID, previous, target, trigger.String(), actor)
	return updated, nil
}

// operatorTarget returns the table-free target for an operator trigger
func (e *engineImpl) operatorTarget(from domainwf.State, trigger domainwf.Trigger) (domainwf.State, bool) {
	if e.strict || from.IsTerminal() {
		return "", false
	}
	target, ok := operatorTargets[trigger]
	return target, ok
}

func (e *engineImpl) CurrentState(ctx context.Context, claimID string) (domainwf.State, error) {
	claim, err := e.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return "", err
	}
	return domainwf.State(claim.Status), nil
}

// modify is the single read-modify-write path for existing claims
func (e *engineImpl) modify(ctx context.Context, claimID string, fn func(claim *entity.Claim, at time.Time) error) (*entity.Claim, error) {
	unlock := e.locks.Lock(claimID)
	defer unlock()

	var updated *entity.Claim
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		claim, err := e.claimRepo.GetByID(txCtx, claimID)
		if err != nil {
			return err
		}

		if err := fn(claim, e.now()); err != nil {
			return err
		}

		if err := e.claimRepo.Update(txCtx, claim); err != nil {
			return fmt.Errorf("failed to save claim: %w", err)
		}
		updated = claim
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (e *engineImpl) emitStatusChanged(ctx context.Context, claimID string, from, to domainwf.State, trigger, actor string) {
	e.emit(ctx, event.NewEvent(event.TypeStatusChanged, claimID, map[string]interface{}{
		event.KeyFromStatus: from.String(),
		event.KeyToStatus:   to.String(),
		event.KeyTrigger:    trigger,
		event.KeyActor:      actor,
	}))
}

func (e *engineImpl) emit(ctx context.Context, evt *event.Event) {
	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, evt)
	}
}

func withStatus(details map[string]interface{}, from, to domainwf.State) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+2)
	for k, v := range details {
		out[k] = v
	}
	out["from_status"] = from.String()
	out["to_status"] = to.String()
	return out
}
