package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/ai-claims/internal/ai"
	"github.com/garyjia/ai-claims/internal/application/dispatcher"
	"github.com/garyjia/ai-claims/internal/application/pipeline"
	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/application/workflow"
	"github.com/garyjia/ai-claims/internal/domain/entity"
	"github.com/garyjia/ai-claims/internal/domain/event"
	domainwf "github.com/garyjia/ai-claims/internal/domain/workflow"
)

var (
	// ErrClaimNotFound is returned when no claim has the requested id
	ErrClaimNotFound = port.ErrClaimNotFound

	// ErrInvalidClaim is returned when a submission carries an unknown category
	ErrInvalidClaim = errors.New("invalid claim")

	// ErrInvalidResolution is returned when an approval names no executable resolution
	ErrInvalidResolution = errors.New("invalid resolution")

	// ErrResolutionFailed means the handler failed and the claim awaits manual intervention
	ErrResolutionFailed = errors.New("resolution execution failed")

	// ErrServiceClosed is returned by Submit after Shutdown
	ErrServiceClosed = errors.New("claim service is shut down")

	errNoResolution = errors.New("claim has no resolution")
)

const submissionMethodAPI = "api"

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// PipelineRunner runs the stage analyzers for one claim
type PipelineRunner interface {
	Run(ctx context.Context, claim *entity.Claim) (*entity.PipelineResult, error)
}

// SubmitRequest is the intake payload
type SubmitRequest struct {
	CustomerID     string
	OrderNumber    string
	ProductID      string
	Description    string
	Category       entity.Category
	Images         []string
	Attachments    []string
	EstimatedValue float64
	Tags           []string

	// Source is recorded as the submission method; defaults to "api"
	Source string
}

// ResolutionInput is what a reviewer approves
type ResolutionInput struct {
	Type        entity.ResolutionType
	Amount      *float64
	Description string
}

// ClaimService drives claims from intake to a terminal status
type ClaimService interface {
	// Submit stores the claim and starts its pipeline run in the background
	Submit(ctx context.Context, req SubmitRequest) (*entity.Claim, *Task, error)

	Get(ctx context.Context, id string) (*entity.Claim, error)
	List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error)

	// UpdateStatus is the operator override
	UpdateStatus(ctx context.Context, id string, status entity.ClaimStatus, actor string) (*entity.Claim, error)

	// Approve attaches the resolution and executes it
	Approve(ctx context.Context, id, actor string, input ResolutionInput) (*entity.Claim, error)

	Reject(ctx context.Context, id, actor, reason string) (*entity.Claim, error)
	Assign(ctx context.Context, id, assignee, actor string) (*entity.Claim, error)

	// ExecuteResolution runs the approved resolution. It is a no-op for claims without one.
	ExecuteResolution(ctx context.Context, id string) (*entity.Claim, error)

	Statistics(ctx context.Context) (*Statistics, error)

	// Shutdown rejects new submissions and waits for running pipelines
	Shutdown(ctx context.Context) error
}

type claimServiceImpl struct {
	engine     workflow.Engine
	claimRepo  port.ClaimRepository
	pipeline   PipelineRunner
	routing    *ai.RoutingPolicy
	executor   port.ResolutionHandler
	notifier   port.Notifier
	dispatcher dispatcher.Dispatcher
	logger     Logger

	tasks         *taskTracker
	maxConcurrent int
	timeout       time.Duration
	now           func() time.Time
	newID         func() string
}

// Option configures the claim service
type Option func(*claimServiceImpl)

// WithDispatcher sets the dispatcher for routing and resolution events
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(s *claimServiceImpl) {
		s.dispatcher = d
	}
}

// WithMaxConcurrent bounds the number of concurrent pipeline runs. Zero is unbounded.
func WithMaxConcurrent(n int) Option {
	return func(s *claimServiceImpl) {
		s.maxConcurrent = n
	}
}

// WithPipelineTimeout bounds each pipeline run. Zero disables the timeout.
func WithPipelineTimeout(d time.Duration) Option {
	return func(s *claimServiceImpl) {
		s.timeout = d
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *claimServiceImpl) {
		s.now = now
	}
}

// WithIDGenerator overrides claim id generation
func WithIDGenerator(newID func() string) Option {
	return func(s *claimServiceImpl) {
		s.newID = newID
	}
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	engine workflow.Engine,
	claimRepo port.ClaimRepository,
	runner PipelineRunner,
	routing *ai.RoutingPolicy,
	executor port.ResolutionHandler,
	notifier port.Notifier,
	logger Logger,
	opts ...Option,
) ClaimService {
	s := &claimServiceImpl{
		engine:    engine,
		claimRepo: claimRepo,
		pipeline:  runner,
		routing:   routing,
		executor:  executor,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		newID:     newClaimID,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = nopLogger{}
	}
	if s.routing == nil {
		s.routing = ai.NewRoutingPolicy(ai.DefaultRoutingThresholds())
	}
	s.tasks = newTaskTracker(s.maxConcurrent)

	return s
}

func newClaimID() string {
	return "CLM-" + uuid.New().String()
}

// Submit validates the category, stores the claim and starts the pipeline
func (s *claimServiceImpl) Submit(ctx context.Context, req SubmitRequest) (*entity.Claim, *Task, error) {
	if !req.Category.IsValid() {
		return nil, nil, fmt.Errorf("%w: unknown category %q", ErrInvalidClaim, req.Category)
	}

	source := req.Source
	if source == "" {
		source = submissionMethodAPI
	}

	now := s.now()
	claim := &entity.Claim{
		ID:             s.newID(),
		CustomerID:     req.CustomerID,
		OrderNumber:    req.OrderNumber,
		ProductID:      req.ProductID,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       PriorityFor(req.EstimatedValue),
		Status:         entity.StatusSubmitted,
		SubmissionDate: now,
		Images:         nonNil(req.Images),
		Attachments:    nonNil(req.Attachments),
		EstimatedValue: req.EstimatedValue,
		SLADeadline:    SLADeadline(now, req.Category, req.EstimatedValue),
		Tags:           nonNil(req.Tags),
		CreatedAt:      now,
	}
	claim.AppendAudit(entity.ActionClaimSubmitted, entity.ActorSystem, map[string]interface{}{
		"submission_method": source,
	}, now)

	// reserve before storing so a concurrent Shutdown waits for this run
	task, err := s.tasks.reserve(claim.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.engine.Create(ctx, claim); err != nil {
		s.tasks.release(task)
		s.logger.Error("Failed to create claim", "error", err, "customer_id", req.CustomerID)
		return nil, nil, err
	}

	s.logger.Info("Claim submitted",
		"claim_id", claim.ID,
		"category", claim.Category,
		"priority", claim.Priority,
		"estimated_value", claim.EstimatedValue,
	)

	claimID := claim.ID
	s.tasks.run(task, func(ctx context.Context) (*entity.Claim, ai.Route, error) {
		return s.process(ctx, claimID)
	})

	return claim.Clone(), task, nil
}

// process runs the pipeline for one claim and applies the routing decision
func (s *claimServiceImpl) process(ctx context.Context, claimID string) (*entity.Claim, ai.Route, error) {
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	claim, err := s.claimRepo.GetByID(runCtx, claimID)
	if err != nil {
		s.logger.Error("Failed to load claim for processing", "error", err, "claim_id", claimID)
		return nil, "", err
	}

	result, err := s.pipeline.Run(runCtx, claim)

	// writes below must land even if the run deadline has passed
	writeCtx := context.WithoutCancel(ctx)
	if err != nil {
		return s.failProcessing(writeCtx, claimID, err)
	}
	return s.route(writeCtx, claimID, result)
}

func (s *claimServiceImpl) failProcessing(ctx context.Context, claimID string, cause error) (*entity.Claim, ai.Route, error) {
	details := map[string]interface{}{"error": cause.Error()}
	var stageErr *pipeline.StageError
	if errors.As(cause, &stageErr) {
		details["stage"] = string(stageErr.Stage)
	}

	s.logger.Error("Claim processing failed", "error", cause, "claim_id", claimID)

	claim, err := s.engine.Transition(ctx, claimID, workflow.TransitionRequest{
		Trigger: domainwf.TriggerFailProcessing,
		Action:  entity.ActionProcessingError,
		Actor:   entity.ActorSystem,
		Details: details,
	})
	if errors.Is(err, domainwf.ErrInvalidTransition) {
		// an operator already decided the claim; keep its status
		claim, err = s.engine.Update(ctx, claimID, workflow.UpdateRequest{
			Action:  entity.ActionProcessingError,
			Actor:   entity.ActorSystem,
			Details: details,
		})
	}
	if err != nil {
		s.logger.Error("Failed to record processing error", "error", err, "claim_id", claimID)
		return nil, "", fmt.Errorf("record processing error: %w", err)
	}

	s.emit(ctx, event.NewEvent(event.TypeProcessingComplete, claimID, map[string]interface{}{
		"success":      false,
		event.KeyError: cause.Error(),
	}))

	return claim, "", cause
}

func (s *claimServiceImpl) route(ctx context.Context, claimID string, result *entity.PipelineResult) (*entity.Claim, ai.Route, error) {
	claim, err := s.engine.Transition(ctx, claimID, workflow.TransitionRequest{
		Trigger: domainwf.TriggerCompleteAnalysis,
		Action:  entity.ActionAIProcessingCompleted,
		Actor:   entity.ActorAISystem,
		Details: map[string]interface{}{
			"processing_time_ms": result.ProcessingTime.Milliseconds(),
			"confidence":         result.Analysis.AIConfidence,
		},
		Mutate: func(c *entity.Claim) error {
			c.RootCause = result.RootCause
			c.LastAnalysis = result.Analysis
			c.LastRecommendation = result.Recommendation
			return nil
		},
	})
	if errors.Is(err, domainwf.ErrInvalidTransition) {
		return s.recordLateAnalysis(ctx, claimID, result)
	}
	if err != nil {
		s.logger.Error("Failed to record analysis", "error", err, "claim_id", claimID)
		return nil, "", fmt.Errorf("complete analysis: %w", err)
	}

	decision := s.routing.Decide(claim, result)
	s.logger.Info("Claim routed",
		"claim_id", claimID,
		"route", decision.Route,
		"rationale", decision.Rationale,
	)

	switch decision.Route {
	case ai.RouteEscalate:
		claim, err = s.escalate(ctx, claimID, result.Escalation)
	case ai.RouteAutoApprove:
		claim, err = s.autoApprove(ctx, claimID, result.Recommendation)
	default:
		claim, err = s.requestReview(ctx, claimID, result.Recommendation, decision)
	}

	s.emit(ctx, event.NewEvent(event.TypeProcessingComplete, claimID, map[string]interface{}{
		"success":            err == nil,
		"route":              string(decision.Route),
		"processing_time_ms": result.ProcessingTime.Milliseconds(),
	}))

	return claim, decision.Route, err
}

// recordLateAnalysis attaches the pipeline output to a claim an operator
// already moved out of submitted. No routing is applied.
func (s *claimServiceImpl) recordLateAnalysis(ctx context.Context, claimID string, result *entity.PipelineResult) (*entity.Claim, ai.Route, error) {
	claim, err := s.engine.Update(ctx, claimID, workflow.UpdateRequest{
		Action: entity.ActionAIProcessingCompleted,
		Actor:  entity.ActorAISystem,
		Details: map[string]interface{}{
			"processing_time_ms": result.ProcessingTime.Milliseconds(),
			"confidence":         result.Analysis.AIConfidence,
			"routing":            "skipped",
		},
		Mutate: func(c *entity.Claim) error {
			if c.RootCause == nil {
				c.RootCause = result.RootCause
			}
			c.LastAnalysis = result.Analysis
			c.LastRecommendation = result.Recommendation
			return nil
		},
	})
	if err != nil {
		s.logger.Error("Failed to record analysis", "error", err, "claim_id", claimID)
		return nil, "", fmt.Errorf("complete analysis: %w", err)
	}

	s.logger.Info("Claim decided before analysis completed", "claim_id", claimID, "status", claim.Status)
	s.emit(ctx, event.NewEvent(event.TypeProcessingComplete, claimID, map[string]interface{}{
		"success":            true,
		"route":              "skipped",
		"processing_time_ms": result.ProcessingTime.Milliseconds(),
	}))

	return claim, "", nil
}

func (s *claimServiceImpl) escalate(ctx context.Context, claimID string, decision *entity.EscalationDecision) (*entity.Claim, error) {
	claim, err := s.engine.Transition(ctx, claimID, workflow.TransitionRequest{
		Trigger: domainwf.TriggerEscalate,
		Action:  entity.ActionClaimEscalated,
		Actor:   entity.ActorAISystem,
		Details: map[string]interface{}{
			"should_escalate": decision.ShouldEscalate,
			"target":          string(decision.Target),
			"urgency":         string(decision.Urgency),
			"reasoning":       decision.Reasoning,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("escalate: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyEscalation(ctx, claim, decision); err != nil {
			s.logger.Error("Failed to send escalation notification", "error", err, "claim_id", claimID)
		}
	}

	s.emit(ctx, event.NewEvent(event.TypeClaimEscalated, claimID, map[string]interface{}{
		"target":        string(decision.Target),
		"urgency":       string(decision.Urgency),
		event.KeyReason: decision.Reasoning,
	}))

	return claim, nil
}

func (s *claimServiceImpl) autoApprove(ctx context.Context, claimID string, rec *entity.ResolutionRecommendation) (*entity.Claim, error) {
	resolutionType, _ := rec.Action.ResolutionType()
	amount := rec.EstimatedCost
	resolution := &entity.Resolution{
		Type:        resolutionType,
		Amount:      &amount,
		Description: "Auto-approved: " + rec.Reasoning,
		ApprovedBy:  entity.ActorAISystem,
	}

	if _, err := s.engine.Transition(ctx, claimID, workflow.TransitionRequest{
		Trigger: domainwf.TriggerAutoApprove,
		Action:  entity.ActionAutoApproved,
		Actor:   entity.ActorAISystem,
		Details: map[string]interface{}{
			"confidence":      rec.Confidence,
			"resolution_type": string(resolutionType),
		},
		Mutate: func(c *entity.Claim) error {
			c.Resolution = resolution
			return nil
		},
	}); err != nil {
		return nil, fmt.Errorf("auto-approve: %w", err)
	}

	return s.ExecuteResolution(ctx, claimID)
}

func (s *claimServiceImpl) requestReview(ctx context.Context, claimID string, rec *entity.ResolutionRecommendation, decision ai.RoutingDecision) (*entity.Claim, error) {
	details := map[string]interface{}{
		"rationale": decision.Rationale,
	}
	if rec != nil {
		details["recommended_action"] = string(rec.Action)
		details["confidence"] = rec.Confidence
	}

	claim, err := s.engine.Transition(ctx, claimID, workflow.TransitionRequest{
		Trigger: domainwf.TriggerRequestReview,
		Action:  entity.ActionReviewRequested,
		Actor:   entity.ActorAISystem,
		Details: details,
	})
	if err != nil {
		return nil, fmt.Errorf("request review: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyReviewer(ctx, claim, rec); err != nil {
			s.logger.Error("Failed to send reviewer notification", "error", err, "claim_id", claimID)
		}
	}

	s.emit(ctx, event.NewEvent(event.TypeReviewRequested, claimID, map[string]interface{}{
		event.KeyReason: decision.Rationale,
	}))

	return claim, nil
}

func (s *claimServiceImpl) Get(ctx context.Context, id string) (*entity.Claim, error) {
	return s.claimRepo.GetByID(ctx, id)
}

func (s *claimServiceImpl) List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error) {
	return s.claimRepo.List(ctx, filter)
}

func (s *claimServiceImpl) UpdateStatus(ctx context.Context, id string, status entity.ClaimStatus, actor string) (*entity.Claim, error) {
	target := domainwf.State(status)
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrInvalidState, status)
	}

	claim, err := s.engine.SetStatus(ctx, id, target, actor)
	if err != nil {
		s.logger.Error("Failed to update status", "error", err, "claim_id", id, "status", status)
		return nil, err
	}

	s.logger.Info("Claim status updated", "claim_id", id, "status", status, "actor", actor)
	return claim, nil
}

func (s *claimServiceImpl) Approve(ctx context.Context, id, actor string, input ResolutionInput) (*entity.Claim, error) {
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidResolution, input.Type)
	}

	resolution := &entity.Resolution{
		Type:        input.Type,
		Description: input.Description,
		ApprovedBy:  actor,
	}
	details := map[string]interface{}{
		"resolution_type": string(input.Type),
		"description":     input.Description,
	}
	if input.Amount != nil {
		amount := *input.Amount
		resolution.Amount = &amount
		details["amount"] = amount
	}

	if _, err := s.engine.Transition(ctx, id, workflow.TransitionRequest{
		Trigger: domainwf.TriggerApprove,
		Action:  entity.ActionClaimApproved,
		Actor:   actor,
		Details: details,
		Mutate: func(c *entity.Claim) error {
			c.Resolution = resolution
			return nil
		},
	}); err != nil {
		s.logger.Error("Failed to approve claim", "error", err, "claim_id", id)
		return nil, err
	}

	s.logger.Info("Claim approved", "claim_id", id, "approved_by", actor, "resolution_type", input.Type)
	return s.ExecuteResolution(ctx, id)
}

func (s *claimServiceImpl) Reject(ctx context.Context, id, actor, reason string) (*entity.Claim, error) {
	claim, err := s.engine.Transition(ctx, id, workflow.TransitionRequest{
		Trigger: domainwf.TriggerReject,
		Action:  entity.ActionClaimRejected,
		Actor:   actor,
		Details: map[string]interface{}{event.KeyReason: reason},
	})
	if err != nil {
		s.logger.Error("Failed to reject claim", "error", err, "claim_id", id)
		return nil, err
	}

	s.logger.Info("Claim rejected", "claim_id", id, "actor", actor)
	return claim, nil
}

func (s *claimServiceImpl) Assign(ctx context.Context, id, assignee, actor string) (*entity.Claim, error) {
	if assignee == "" {
		return nil, fmt.Errorf("%w: assignee is required", ErrInvalidClaim)
	}

	return s.engine.Update(ctx, id, workflow.UpdateRequest{
		Action:  entity.ActionClaimAssigned,
		Actor:   actor,
		Details: map[string]interface{}{"assigned_to": assignee},
		Mutate: func(c *entity.Claim) error {
			c.AssignedTo = assignee
			return nil
		},
	})
}

// ExecuteResolution dispatches the claim's resolution to its handler.
// The handler runs under the claim's write lock so one execution reaches it at most once.
// On handler failure the claim stays approved with a resolution_failed entry.
func (s *claimServiceImpl) ExecuteResolution(ctx context.Context, id string) (*entity.Claim, error) {
	current, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Resolution == nil {
		return current, nil
	}

	details := map[string]interface{}{}
	var handlerErr error

	claim, err := s.engine.Transition(ctx, id, workflow.TransitionRequest{
		Trigger: domainwf.TriggerExecuteResolution,
		Action:  entity.ActionResolutionExecuted,
		Actor:   entity.ActorSystem,
		Details: details,
		Mutate: func(c *entity.Claim) error {
			if c.Resolution == nil {
				return errNoResolution
			}
			details["resolution_type"] = string(c.Resolution.Type)

			snapshot := c.Clone()
			if err := s.executor.Execute(ctx, snapshot, snapshot.Resolution); err != nil {
				handlerErr = err
				return err
			}

			executedAt := s.now()
			c.Resolution.ExecutedAt = &executedAt
			return nil
		},
	})
	switch {
	case handlerErr != nil:
		return s.recordResolutionFailure(ctx, id, current.Resolution.Type, handlerErr)
	case errors.Is(err, errNoResolution):
		return s.claimRepo.GetByID(ctx, id)
	case err != nil:
		s.logger.Error("Failed to execute resolution", "error", err, "claim_id", id)
		return nil, err
	}

	s.logger.Info("Resolution executed", "claim_id", id, "resolution_type", claim.Resolution.Type)
	s.emit(ctx, event.NewEvent(event.TypeClaimResolved, id, map[string]interface{}{
		"resolution_type":  string(claim.Resolution.Type),
		"financial_impact": claim.FinancialImpact(),
	}))

	return s.notifyCustomer(ctx, claim), nil
}

func (s *claimServiceImpl) recordResolutionFailure(ctx context.Context, id string, resolutionType entity.ResolutionType, cause error) (*entity.Claim, error) {
	s.logger.Error("Resolution handler failed", "error", cause, "claim_id", id, "resolution_type", resolutionType)

	claim, err := s.engine.Update(ctx, id, workflow.UpdateRequest{
		Action: entity.ActionResolutionFailed,
		Actor:  entity.ActorSystem,
		Details: map[string]interface{}{
			"resolution_type": string(resolutionType),
			"error":           cause.Error(),
		},
	})
	if err != nil {
		s.logger.Error("Failed to record resolution failure", "error", err, "claim_id", id)
		return nil, fmt.Errorf("%w: %s", ErrResolutionFailed, cause)
	}

	s.emit(ctx, event.NewEvent(event.TypeResolutionFailed, id, map[string]interface{}{
		"resolution_type": string(resolutionType),
		event.KeyError:    cause.Error(),
	}))

	return claim, fmt.Errorf("%w: %s", ErrResolutionFailed, cause)
}

// notifyCustomer leaves CustomerNotified false when delivery fails
func (s *claimServiceImpl) notifyCustomer(ctx context.Context, claim *entity.Claim) *entity.Claim {
	if s.notifier == nil {
		return claim
	}

	if err := s.notifier.NotifyCustomer(ctx, claim); err != nil {
		s.logger.Error("Failed to notify customer", "error", err, "claim_id", claim.ID)
		return claim
	}

	notified, err := s.engine.Update(ctx, claim.ID, workflow.UpdateRequest{
		Mutate: func(c *entity.Claim) error {
			if c.Resolution != nil {
				c.Resolution.CustomerNotified = true
			}
			return nil
		},
	})
	if err != nil {
		s.logger.Error("Failed to mark customer notified", "error", err, "claim_id", claim.ID)
		return claim
	}
	return notified
}

func (s *claimServiceImpl) Statistics(ctx context.Context) (*Statistics, error) {
	claims, err := s.claimRepo.List(ctx, port.ClaimFilter{})
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return ComputeStatistics(claims), nil
}

func (s *claimServiceImpl) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down claim service")
	return s.tasks.shutdown(ctx)
}

func (s *claimServiceImpl) emit(ctx context.Context, evt *event.Event) {
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, evt)
	}
}

func nonNil(values []string) []string {
	return append(make([]string, 0, len(values)), values...)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
