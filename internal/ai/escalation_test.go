package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

func TestEscalationAnalyzer_RulePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		systemic   bool
		value      float64
		priority   entity.Priority
		wantTarget entity.EscalationTarget
		wantUrg    entity.Urgency
	}{
		{"systemic beats value and priority", true, 75000, entity.PriorityCritical, entity.EscalationOperations, entity.UrgencyHigh},
		{"systemic on low value", true, 10, entity.PriorityLow, entity.EscalationOperations, entity.UrgencyHigh},
		{"high value goes to management", false, 75000, entity.PriorityCritical, entity.EscalationManagement, entity.UrgencyMedium},
		{"50000 is not high value", false, 50000, entity.PriorityCritical, entity.EscalationCustomerSuccess, entity.UrgencyHigh},
		{"critical priority", false, 20000, entity.PriorityCritical, entity.EscalationCustomerSuccess, entity.UrgencyHigh},
		{"nothing triggers", false, 20000, entity.PriorityHigh, entity.EscalationNone, entity.UrgencyLow},
	}

	a := NewEscalationAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := newClaim(tt.value, entity.CategoryDefective)
			claim.Priority = tt.priority

			decision, err := a.Analyze(context.Background(), claim, &entity.RootCause{SystemicIssue: tt.systemic})
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, decision.Target)
			assert.Equal(t, tt.wantUrg, decision.Urgency)
			assert.Equal(t, tt.wantTarget != entity.EscalationNone, decision.ShouldEscalate)
		})
	}
}

func TestEscalationAnalyzer_RequiresRootCause(t *testing.T) {
	_, err := NewEscalationAnalyzer().Analyze(context.Background(), newClaim(10, entity.CategoryOther), nil)
	assert.Error(t, err)
}
