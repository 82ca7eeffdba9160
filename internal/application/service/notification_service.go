package service

import (
	"context"
	"fmt"

	"github.com/garyjia/ai-claims/internal/application/dispatcher"
	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
	"github.com/garyjia/ai-claims/internal/domain/event"
)

// NotificationService alerts operations about claims that need a human
// outside the normal routing: SLA breaches and failed resolution executions
type NotificationService struct {
	claimRepo port.ClaimRepository
	notifier  port.Notifier
	logger    Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(claimRepo port.ClaimRepository, notifier port.Notifier, logger Logger) *NotificationService {
	if logger == nil {
		logger = nopLogger{}
	}
	return &NotificationService{
		claimRepo: claimRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// Register subscribes the service to the events it alerts on
func (s *NotificationService) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeSLABreached, "notification.sla_breached", s.HandleSLABreached)
	d.SubscribeNamed(event.TypeResolutionFailed, "notification.resolution_failed", s.HandleResolutionFailed)
}

// HandleSLABreached alerts operations that a claim passed its SLA deadline
func (s *NotificationService) HandleSLABreached(ctx context.Context, evt *event.Event) error {
	urgency := entity.UrgencyMedium
	if p := entity.Priority(evt.GetPayloadString("priority")); p == entity.PriorityCritical || p == entity.PriorityHigh {
		urgency = entity.UrgencyHigh
	}

	return s.alert(ctx, evt.ClaimID, &entity.EscalationDecision{
		ShouldEscalate: true,
		Target:         entity.EscalationOperations,
		Urgency:        urgency,
		Reasoning:      fmt.Sprintf("SLA deadline %s passed", evt.GetPayloadString("sla_deadline")),
	})
}

// HandleResolutionFailed alerts operations that an approved claim is waiting for a manual retry
func (s *NotificationService) HandleResolutionFailed(ctx context.Context, evt *event.Event) error {
	return s.alert(ctx, evt.ClaimID, &entity.EscalationDecision{
		ShouldEscalate: true,
		Target:         entity.EscalationOperations,
		Urgency:        entity.UrgencyHigh,
		Reasoning: fmt.Sprintf("%s resolution failed: %s",
			evt.GetPayloadString("resolution_type"), evt.GetPayloadString(event.KeyError)),
	})
}

func (s *NotificationService) alert(ctx context.Context, claimID string, decision *entity.EscalationDecision) error {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		s.logger.Error("Failed to load claim for alert", "error", err, "claim_id", claimID)
		return fmt.Errorf("get claim: %w", err)
	}

	if err := s.notifier.NotifyEscalation(ctx, claim, decision); err != nil {
		s.logger.Error("Failed to send alert", "error", err, "claim_id", claimID)
		return fmt.Errorf("send alert: %w", err)
	}

	s.logger.Info("Operations alert sent",
		"claim_id", claimID,
		"urgency", string(decision.Urgency),
	)
	return nil
}
