package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

var errNoResult = errors.New("analyzer returned no result")

// Logger is the logging surface the orchestrator needs
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// StageObserver receives the duration and outcome of every stage run
type StageObserver interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
}

// Orchestrator runs the four analyzers for one claim.
// Triage and root cause run concurrently; resolution and escalation start
// once both have finished.
type Orchestrator struct {
	triage     port.TriageAnalyzer
	rootCause  port.RootCauseAnalyzer
	resolution port.ResolutionAnalyzer
	escalation port.EscalationAnalyzer

	reference port.ReferenceDataProvider
	observer  StageObserver
	logger    Logger
	now       func() time.Time
}

// Option configures the orchestrator
type Option func(*Orchestrator)

// WithReferenceData sets the ERP lookup used by the root cause stage
func WithReferenceData(provider port.ReferenceDataProvider) Option {
	return func(o *Orchestrator) {
		o.reference = provider
	}
}

// WithObserver sets a stage observer
func WithObserver(observer StageObserver) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// WithLogger sets a logger
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates an orchestrator over the four stage analyzers
func NewOrchestrator(
	triage port.TriageAnalyzer,
	rootCause port.RootCauseAnalyzer,
	resolution port.ResolutionAnalyzer,
	escalation port.EscalationAnalyzer,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		triage:     triage,
		rootCause:  rootCause,
		resolution: resolution,
		escalation: escalation,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes claim and returns the combined result.
// On failure the error is a *StageError and no partial result is returned.
func (o *Orchestrator) Run(ctx context.Context, claim *entity.Claim) (*entity.PipelineResult, error) {
	start := o.now()
	input := claim.Clone()

	var (
		analysis       *entity.TriageAnalysis
		rootCause      *entity.RootCause
		recommendation *entity.ResolutionRecommendation
		escalation     *entity.EscalationDecision
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.runStage(gctx, StageTriage, func(ctx context.Context) (err error) {
			analysis, err = o.triage.Analyze(ctx, input)
			if err == nil && analysis == nil {
				err = errNoResult
			}
			return err
		})
	})
	g.Go(func() error {
		ref := o.lookupReference(gctx, input)
		return o.runStage(gctx, StageRootCause, func(ctx context.Context) (err error) {
			rootCause, err = o.rootCause.Analyze(ctx, input, ref)
			if err == nil && rootCause == nil {
				err = errNoResult
			}
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.runStage(gctx, StageResolution, func(ctx context.Context) (err error) {
			recommendation, err = o.resolution.Analyze(ctx, input, analysis)
			if err == nil && recommendation == nil {
				err = errNoResult
			}
			return err
		})
	})
	g.Go(func() error {
		return o.runStage(gctx, StageEscalation, func(ctx context.Context) (err error) {
			escalation, err = o.escalation.Analyze(ctx, input, rootCause)
			if err == nil && escalation == nil {
				err = errNoResult
			}
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	finished := o.now()
	return &entity.PipelineResult{
		ClaimID:        claim.ID,
		Analysis:       analysis,
		RootCause:      rootCause,
		Recommendation: recommendation,
		Escalation:     escalation,
		ProcessedAt:    finished,
		ProcessingTime: finished.Sub(start),
	}, nil
}

// runStage converts errors, nil results and panics into a *StageError
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, fn func(ctx context.Context) error) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &StageError{Stage: stage, Err: ctxErr}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
		if o.observer != nil {
			o.observer.ObserveStage(string(stage), time.Since(start), err)
		}
	}()

	if err := fn(ctx); err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			return err
		}
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

// lookupReference treats ERP data as optional: a failed lookup is logged and
// the root cause stage reasons from the claim alone.
func (o *Orchestrator) lookupReference(ctx context.Context, claim *entity.Claim) *port.ReferenceData {
	if o.reference == nil {
		return nil
	}
	ref, err := o.reference.Lookup(ctx, claim)
	if err != nil {
		if o.logger != nil {
			o.logger.Error("Reference data lookup failed", "claim_id", claim.ID, "error", err)
		}
		return nil
	}
	return ref
}
