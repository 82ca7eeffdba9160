package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// NotifierConfig maps notifications to Lark group chats
type NotifierConfig struct {
	ReviewerChatID string
	// CustomerChatID receives resolution notices; empty skips them
	CustomerChatID string
	// EscalationChatIDs is keyed by escalation target; a missing target
	// falls back to the reviewer chat
	EscalationChatIDs map[string]string
}

// Notifier implements port.Notifier with interactive Lark cards
type Notifier struct {
	sender MessageSender
	cfg    NotifierConfig
	logger *zap.Logger
}

// NewNotifier creates a Lark notifier
func NewNotifier(sender MessageSender, cfg NotifierConfig, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		sender: sender,
		cfg:    cfg,
		logger: logger,
	}
}

// NotifyCustomer posts the executed resolution to the customer chat
func (n *Notifier) NotifyCustomer(ctx context.Context, claim *entity.Claim) error {
	if n.cfg.CustomerChatID == "" {
		n.logger.Info("Customer chat not configured, skipping notification",
			zap.String("claim_id", claim.ID))
		return nil
	}
	if claim.Resolution == nil {
		return fmt.Errorf("claim %s has no resolution", claim.ID)
	}

	res := claim.Resolution
	fields := []cardField{
		{"Claim", claim.ID},
		{"Customer", claim.CustomerID},
		{"Resolution", string(res.Type)},
	}
	if res.Amount != nil {
		fields = append(fields, cardField{"Amount", fmt.Sprintf("%.2f", *res.Amount)})
	}

	card := buildCard("green", "Claim resolved", fields, res.Description, claim.OrderNumber)
	return n.send(ctx, n.cfg.CustomerChatID, claim.ID, card)
}

// NotifyReviewer asks the reviewer chat to decide a pending claim
func (n *Notifier) NotifyReviewer(ctx context.Context, claim *entity.Claim, recommendation *entity.ResolutionRecommendation) error {
	fields := []cardField{
		{"Claim", claim.ID},
		{"Priority", string(claim.Priority)},
		{"Category", string(claim.Category)},
		{"Estimated value", fmt.Sprintf("%.2f", claim.EstimatedValue)},
		{"SLA deadline", claim.SLADeadline.Format("2006-01-02 15:04")},
	}

	body := claim.Description
	if recommendation != nil {
		fields = append(fields,
			cardField{"Recommended", string(recommendation.Action)},
			cardField{"Confidence", fmt.Sprintf("%d%%", int(recommendation.Confidence*100))},
			cardField{"Estimated cost", fmt.Sprintf("%.2f", recommendation.EstimatedCost)},
		)
		if recommendation.Reasoning != "" {
			body = recommendation.Reasoning
		}
	}

	card := buildCard("orange", "Claim needs review", fields, body, claim.OrderNumber)
	return n.send(ctx, n.cfg.ReviewerChatID, claim.ID, card)
}

// NotifyEscalation alerts the chat of the escalation target
func (n *Notifier) NotifyEscalation(ctx context.Context, claim *entity.Claim, decision *entity.EscalationDecision) error {
	chatID := n.cfg.ReviewerChatID
	target, urgency, reasoning := "unknown", "high", ""
	if decision != nil {
		target = string(decision.Target)
		urgency = string(decision.Urgency)
		reasoning = decision.Reasoning
		if id, ok := n.cfg.EscalationChatIDs[target]; ok && id != "" {
			chatID = id
		}
	}

	fields := []cardField{
		{"Claim", claim.ID},
		{"Target", target},
		{"Urgency", urgency},
		{"Priority", string(claim.Priority)},
		{"Estimated value", fmt.Sprintf("%.2f", claim.EstimatedValue)},
	}

	card := buildCard("red", "Claim escalated", fields, reasoning, claim.OrderNumber)
	return n.send(ctx, chatID, claim.ID, card)
}

func (n *Notifier) send(ctx context.Context, chatID, claimID string, card map[string]interface{}) error {
	if chatID == "" {
		return fmt.Errorf("no chat configured for claim %s", claimID)
	}

	content, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal card content: %w", err)
	}

	if _, err := n.sender.SendMessage(ctx, ReceiveIDTypeChatID, chatID, "interactive", string(content)); err != nil {
		return fmt.Errorf("failed to send card message: %w", err)
	}
	return nil
}

type cardField struct {
	label string
	value string
}

// buildCard builds a Lark interactive card with short fields, an optional
// body and an order note
func buildCard(template, title string, fields []cardField, body, orderNumber string) map[string]interface{} {
	short := make([]map[string]interface{}, 0, len(fields))
	for _, f := range fields {
		short = append(short, map[string]interface{}{
			"is_short": true,
			"text": map[string]interface{}{
				"tag":     "lark_md",
				"content": fmt.Sprintf("**%s**\n%s", f.label, f.value),
			},
		})
	}

	elements := []interface{}{
		map[string]interface{}{
			"tag":    "div",
			"fields": short,
		},
		map[string]interface{}{
			"tag": "hr",
		},
	}

	if body = strings.TrimSpace(body); body != "" {
		elements = append(elements, map[string]interface{}{
			"tag": "div",
			"text": map[string]interface{}{
				"tag":     "lark_md",
				"content": body,
			},
		})
	}

	elements = append(elements, map[string]interface{}{
		"tag": "note",
		"elements": []map[string]interface{}{
			{
				"tag":     "plain_text",
				"content": fmt.Sprintf("Order: %s", orderNumber),
			},
		},
	})

	return map[string]interface{}{
		"config": map[string]interface{}{
			"wide_screen_mode": true,
		},
		"header": map[string]interface{}{
			"template": template,
			"title": map[string]interface{}{
				"tag":     "plain_text",
				"content": title,
			},
		},
		"elements": elements,
	}
}

var _ port.Notifier = (*Notifier)(nil)
