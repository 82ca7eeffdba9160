package ai

import (
	"fmt"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// Route is the outcome of the routing policy
type Route string

const (
	RouteEscalate    Route = "escalate"
	RouteAutoApprove Route = "auto_approve"
	RouteReview      Route = "review"
)

// RoutingThresholds are the auto-approval boundaries. Both comparisons are strict.
type RoutingThresholds struct {
	AutoApproveConfidence float64 // recommendation confidence must exceed this
	AutoApproveMaxValue   float64 // estimated value must be below this
}

// DefaultRoutingThresholds returns confidence 0.9 and value 1000
func DefaultRoutingThresholds() RoutingThresholds {
	return RoutingThresholds{
		AutoApproveConfidence: 0.9,
		AutoApproveMaxValue:   1000,
	}
}

// Validate checks the confidence boundary is a probability and the value cap is positive
func (t RoutingThresholds) Validate() error {
	if t.AutoApproveConfidence < 0.0 || t.AutoApproveConfidence > 1.0 {
		return fmt.Errorf("auto-approve confidence must be between 0.0 and 1.0, got %.2f", t.AutoApproveConfidence)
	}
	if t.AutoApproveMaxValue <= 0 {
		return fmt.Errorf("auto-approve max value must be positive, got %.2f", t.AutoApproveMaxValue)
	}
	return nil
}

// RoutingDecision records which branch the policy took and why
type RoutingDecision struct {
	Route     Route
	Rationale string
}

// RoutingPolicy decides escalate vs auto-approve vs review for a pipeline result
type RoutingPolicy struct {
	thresholds RoutingThresholds
}

// NewRoutingPolicy creates a policy over the given thresholds
func NewRoutingPolicy(thresholds RoutingThresholds) *RoutingPolicy {
	return &RoutingPolicy{thresholds: thresholds}
}

// Thresholds returns the configured thresholds
func (p *RoutingPolicy) Thresholds() RoutingThresholds {
	return p.thresholds
}

// Decide applies the rules in order: escalation, then auto-approval, then review.
// An investigate recommendation is never auto-approved since it cannot be executed.
func (p *RoutingPolicy) Decide(claim *entity.Claim, result *entity.PipelineResult) RoutingDecision {
	if result.Escalation != nil && result.Escalation.ShouldEscalate {
		return RoutingDecision{
			Route:     RouteEscalate,
			Rationale: fmt.Sprintf("Escalated to %s: %s", result.Escalation.Target, result.Escalation.Reasoning),
		}
	}

	rec := result.Recommendation
	if rec != nil &&
		rec.Confidence > p.thresholds.AutoApproveConfidence &&
		claim.EstimatedValue < p.thresholds.AutoApproveMaxValue {
		if _, executable := rec.Action.ResolutionType(); executable {
			return RoutingDecision{
				Route: RouteAutoApprove,
				Rationale: fmt.Sprintf("Auto-approved: confidence %.2f > %.2f and value %.2f < %.2f",
					rec.Confidence, p.thresholds.AutoApproveConfidence,
					claim.EstimatedValue, p.thresholds.AutoApproveMaxValue),
			}
		}
	}

	confidence := 0.0
	if rec != nil {
		confidence = rec.Confidence
	}
	return RoutingDecision{
		Route: RouteReview,
		Rationale: fmt.Sprintf("Manual review required: confidence %.2f, value %.2f",
			confidence, claim.EstimatedValue),
	}
}
