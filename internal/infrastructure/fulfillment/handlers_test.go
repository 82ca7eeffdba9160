package fulfillment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

func TestJournal_Handlers(t *testing.T) {
	amount := 250.0
	estimate := 1500.0

	tests := []struct {
		name       string
		resolution entity.Resolution
		wantSystem string
		wantAmount float64
	}{
		{"refund with amount", entity.Resolution{Type: entity.ResolutionRefund, Amount: &amount}, "payments", 250},
		{"refund defaults to impact", entity.Resolution{Type: entity.ResolutionRefund}, "payments", estimate},
		{"remake", entity.Resolution{Type: entity.ResolutionRemake}, "production", 0},
		{"replacement", entity.Resolution{Type: entity.ResolutionReplacement}, "inventory", 0},
		{"partial credit", entity.Resolution{Type: entity.ResolutionPartialCredit, Amount: &amount}, "accounting", 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journal := NewJournal(nil)
			claim := &entity.Claim{ID: "CLM-1", CustomerID: "ACME-AUTO-001", EstimatedValue: estimate}
			res := tt.resolution

			handler := journal.Handlers()[res.Type]
			require.NotNil(t, handler)
			require.NoError(t, handler.Execute(context.Background(), claim, &res))

			records := journal.Records()
			require.Len(t, records, 1)
			assert.Equal(t, "CLM-1", records[0].ClaimID)
			assert.Equal(t, res.Type, records[0].Type)
			assert.Equal(t, tt.wantSystem, records[0].System)
			assert.Equal(t, tt.wantAmount, records[0].Amount)
			assert.Contains(t, records[0].Reference, tt.wantSystem+"-")
		})
	}
}

func TestJournal_PartialCreditRequiresAmount(t *testing.T) {
	journal := NewJournal(nil)
	handler := journal.Handlers()[entity.ResolutionPartialCredit]

	err := handler.Execute(context.Background(), &entity.Claim{ID: "CLM-1"}, &entity.Resolution{Type: entity.ResolutionPartialCredit})

	assert.ErrorIs(t, err, ErrAmountRequired)
	assert.Empty(t, journal.Records())
}

func TestJournal_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	journal := NewJournal(nil)
	err := journal.Handlers()[entity.ResolutionRemake].Execute(ctx, &entity.Claim{ID: "CLM-1"}, &entity.Resolution{Type: entity.ResolutionRemake})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, journal.Records())
}

func TestJournal_CoversEveryResolutionType(t *testing.T) {
	handlers := NewJournal(nil).Handlers()
	for _, rt := range []entity.ResolutionType{
		entity.ResolutionRefund,
		entity.ResolutionRemake,
		entity.ResolutionReplacement,
		entity.ResolutionPartialCredit,
	} {
		assert.Contains(t, handlers, rt)
	}
}
