package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// LogNotifier implements port.Notifier by writing structured log lines.
// It is used when no chat integration is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notifier")}
}

// NotifyCustomer logs the executed resolution
func (n *LogNotifier) NotifyCustomer(ctx context.Context, claim *entity.Claim) error {
	if claim.Resolution == nil {
		return fmt.Errorf("claim %s has no resolution", claim.ID)
	}

	fields := []zap.Field{
		zap.String("claim_id", claim.ID),
		zap.String("customer_id", claim.CustomerID),
		zap.String("resolution_type", string(claim.Resolution.Type)),
	}
	if claim.Resolution.Amount != nil {
		fields = append(fields, zap.Float64("amount", *claim.Resolution.Amount))
	}
	n.logger.Info("Customer notified of resolution", fields...)
	return nil
}

// NotifyReviewer logs a review request
func (n *LogNotifier) NotifyReviewer(ctx context.Context, claim *entity.Claim, recommendation *entity.ResolutionRecommendation) error {
	fields := []zap.Field{
		zap.String("claim_id", claim.ID),
		zap.String("priority", string(claim.Priority)),
		zap.Float64("estimated_value", claim.EstimatedValue),
		zap.Time("sla_deadline", claim.SLADeadline),
	}
	if recommendation != nil {
		fields = append(fields,
			zap.String("recommended_action", string(recommendation.Action)),
			zap.Float64("confidence", recommendation.Confidence),
		)
	}
	n.logger.Info("Claim awaiting review", fields...)
	return nil
}

// NotifyEscalation logs an escalation at warn level
func (n *LogNotifier) NotifyEscalation(ctx context.Context, claim *entity.Claim, decision *entity.EscalationDecision) error {
	fields := []zap.Field{
		zap.String("claim_id", claim.ID),
		zap.String("priority", string(claim.Priority)),
	}
	if decision != nil {
		fields = append(fields,
			zap.String("target", string(decision.Target)),
			zap.String("urgency", string(decision.Urgency)),
			zap.String("reasoning", decision.Reasoning),
		)
	}
	n.logger.Warn("Claim escalated", fields...)
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)
