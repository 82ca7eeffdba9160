package ai

import (
	"context"
	"errors"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

const managementValueThreshold = 50000.0

// EscalationAnalyzer applies an ordered rule list; the first match wins
type EscalationAnalyzer struct{}

// NewEscalationAnalyzer creates a rule-based escalation analyzer
func NewEscalationAnalyzer() *EscalationAnalyzer {
	return &EscalationAnalyzer{}
}

// Analyze decides whether and where to escalate
func (a *EscalationAnalyzer) Analyze(ctx context.Context, claim *entity.Claim, rootCause *entity.RootCause) (*entity.EscalationDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rootCause == nil {
		return nil, errors.New("root cause is required")
	}

	switch {
	case rootCause.SystemicIssue:
		return &entity.EscalationDecision{
			ShouldEscalate: true,
			Target:         entity.EscalationOperations,
			Urgency:        entity.UrgencyHigh,
			Reasoning:      "Systemic issue detected that may affect multiple orders",
		}, nil

	case claim.EstimatedValue > managementValueThreshold:
		return &entity.EscalationDecision{
			ShouldEscalate: true,
			Target:         entity.EscalationManagement,
			Urgency:        entity.UrgencyMedium,
			Reasoning:      "High value claim requires management approval",
		}, nil

	case claim.Priority == entity.PriorityCritical:
		return &entity.EscalationDecision{
			ShouldEscalate: true,
			Target:         entity.EscalationCustomerSuccess,
			Urgency:        entity.UrgencyHigh,
			Reasoning:      "Critical priority claim requires immediate attention",
		}, nil

	default:
		return &entity.EscalationDecision{
			ShouldEscalate: false,
			Target:         entity.EscalationNone,
			Urgency:        entity.UrgencyLow,
			Reasoning:      "No escalation required",
		}, nil
	}
}
