package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

type sentMessage struct {
	receiveIDType string
	receiveID     string
	msgType       string
	content       string
}

type mockSender struct {
	sent []sentMessage
	err  error
}

func (m *mockSender) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMessage{receiveIDType, receiveID, msgType, content})
	return "om_1", nil
}

func testClaim() *entity.Claim {
	return &entity.Claim{
		ID:             "CLM-1",
		CustomerID:     "ACME-AUTO-001",
		OrderNumber:    "ORD-PISTON-789",
		Category:       entity.CategoryDefective,
		Priority:       entity.PriorityCritical,
		EstimatedValue: 75000,
		SLADeadline:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Description:    "Piston rings cracked",
	}
}

func decodeCard(t *testing.T, content string) map[string]interface{} {
	t.Helper()
	var card map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(content), &card))
	return card
}

func cardTitle(card map[string]interface{}) string {
	header := card["header"].(map[string]interface{})
	return header["title"].(map[string]interface{})["content"].(string)
}

func TestNotifier_NotifyEscalation_RoutesByTarget(t *testing.T) {
	tests := []struct {
		name     string
		decision *entity.EscalationDecision
		wantChat string
	}{
		{"configured target", &entity.EscalationDecision{ShouldEscalate: true, Target: entity.EscalationManagement, Urgency: entity.UrgencyHigh}, "oc_management"},
		{"unconfigured target", &entity.EscalationDecision{ShouldEscalate: true, Target: entity.EscalationOperations, Urgency: entity.UrgencyMedium}, "oc_reviewers"},
		{"no decision", nil, "oc_reviewers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{}
			notifier := NewNotifier(sender, NotifierConfig{
				ReviewerChatID:    "oc_reviewers",
				EscalationChatIDs: map[string]string{"management": "oc_management"},
			}, nil)

			require.NoError(t, notifier.NotifyEscalation(context.Background(), testClaim(), tt.decision))
			require.Len(t, sender.sent, 1)
			msg := sender.sent[0]
			assert.Equal(t, ReceiveIDTypeChatID, msg.receiveIDType)
			assert.Equal(t, tt.wantChat, msg.receiveID)
			assert.Equal(t, "interactive", msg.msgType)

			card := decodeCard(t, msg.content)
			assert.Equal(t, "Claim escalated", cardTitle(card))
			assert.Contains(t, msg.content, "CLM-1")
		})
	}
}

func TestNotifier_NotifyReviewer(t *testing.T) {
	sender := &mockSender{}
	notifier := NewNotifier(sender, NotifierConfig{ReviewerChatID: "oc_reviewers"}, nil)

	err := notifier.NotifyReviewer(context.Background(), testClaim(), &entity.ResolutionRecommendation{
		Action:        entity.ActionRemake,
		Confidence:    0.85,
		Reasoning:     "Dimensional error within remake tolerance",
		EstimatedCost: 135,
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "oc_reviewers", sender.sent[0].receiveID)
	content := sender.sent[0].content
	assert.Equal(t, "Claim needs review", cardTitle(decodeCard(t, content)))
	assert.Contains(t, content, "remake")
	assert.Contains(t, content, "85%")
	assert.Contains(t, content, "Dimensional error within remake tolerance")
}

func TestNotifier_NotifyCustomer(t *testing.T) {
	amount := 1500.0
	claim := testClaim()
	claim.Resolution = &entity.Resolution{Type: entity.ResolutionRefund, Amount: &amount, Description: "Full refund"}

	t.Run("skipped without chat", func(t *testing.T) {
		sender := &mockSender{}
		notifier := NewNotifier(sender, NotifierConfig{ReviewerChatID: "oc_reviewers"}, nil)

		require.NoError(t, notifier.NotifyCustomer(context.Background(), claim))
		assert.Empty(t, sender.sent)
	})

	t.Run("sent to customer chat", func(t *testing.T) {
		sender := &mockSender{}
		notifier := NewNotifier(sender, NotifierConfig{CustomerChatID: "oc_customers"}, nil)

		require.NoError(t, notifier.NotifyCustomer(context.Background(), claim))
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "oc_customers", sender.sent[0].receiveID)
		assert.Contains(t, sender.sent[0].content, "1500.00")
	})

	t.Run("requires a resolution", func(t *testing.T) {
		notifier := NewNotifier(&mockSender{}, NotifierConfig{CustomerChatID: "oc_customers"}, nil)
		assert.Error(t, notifier.NotifyCustomer(context.Background(), testClaim()))
	})
}

func TestNotifier_Errors(t *testing.T) {
	noChat := NewNotifier(&mockSender{}, NotifierConfig{}, nil)
	assert.Error(t, noChat.NotifyReviewer(context.Background(), testClaim(), nil))

	failing := NewNotifier(&mockSender{err: errors.New("code=99991663")}, NotifierConfig{ReviewerChatID: "oc_reviewers"}, nil)
	err := failing.NotifyReviewer(context.Background(), testClaim(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=99991663")
}
