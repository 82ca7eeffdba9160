package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

func triageWith(fraud float64, imageConfidence float64) *entity.TriageAnalysis {
	t := &entity.TriageAnalysis{RiskAssessment: entity.RiskAssessment{FraudRisk: fraud}}
	if imageConfidence > 0 {
		t.ImageAnalysis = &entity.ImageAnalysis{Confidence: imageConfidence}
	}
	return t
}

func TestResolutionAnalyzer_RulePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		category   entity.Category
		value      float64
		fraud      float64
		imageConf  float64
		wantAction entity.RecommendedAction
		wantCost   float64
	}{
		{"fraud beats everything", entity.CategoryMissingParts, 50, 0.71, 0.95, entity.ActionInvestigate, 0},
		{"fraud at threshold does not investigate", entity.CategoryMissingParts, 450, 0.7, 0, entity.ActionRemake, 135},
		{"missing parts beats image evidence", entity.CategoryMissingParts, 450, 0.1, 0.95, entity.ActionRemake, 135},
		{"image evidence beats low value", entity.CategoryDefective, 50, 0.1, 0.92, entity.ActionReplacement, 40},
		{"image at threshold is not evidence", entity.CategoryDefective, 2000, 0.1, 0.9, entity.ActionRefund, 2000},
		{"low value partial credit", entity.CategoryWrongSize, 80, 0.1, 0, entity.ActionPartialCredit, 40},
		{"value 100 is not low", entity.CategoryWrongSize, 100, 0.1, 0, entity.ActionRefund, 100},
		{"default refund", entity.CategoryDamagedShipping, 2800, 0.1, 0, entity.ActionRefund, 2800},
		{"negative value clamps cost", entity.CategoryOther, -20, 0.1, 0, entity.ActionPartialCredit, 0},
	}

	a := NewResolutionAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := newClaim(tt.value, tt.category)
			rec, err := a.Analyze(context.Background(), claim, triageWith(tt.fraud, tt.imageConf))
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, rec.Action)
			assert.InDelta(t, tt.wantCost, rec.EstimatedCost, 1e-9)
			assert.GreaterOrEqual(t, rec.EstimatedCost, 0.0)
			assert.NotEmpty(t, rec.Reasoning)
		})
	}
}

func TestResolutionAnalyzer_ScenarioB(t *testing.T) {
	claim := newClaim(450, entity.CategoryMissingParts)
	triage, err := NewTriageAnalyzer(nil, nil).Analyze(context.Background(), claim)
	require.NoError(t, err)
	require.LessOrEqual(t, triage.RiskAssessment.FraudRisk, 0.7)

	rec, err := NewResolutionAnalyzer().Analyze(context.Background(), claim, triage)
	require.NoError(t, err)
	assert.Equal(t, entity.ActionRemake, rec.Action)
	assert.InDelta(t, 135.0, rec.EstimatedCost, 1e-9)
}

func TestResolutionAnalyzer_RequiresTriage(t *testing.T) {
	_, err := NewResolutionAnalyzer().Analyze(context.Background(), newClaim(10, entity.CategoryOther), nil)
	assert.Error(t, err)
}
