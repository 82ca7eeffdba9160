package ai

import (
	"context"
	"errors"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

const (
	fraudInvestigateThreshold = 0.7
	imageEvidenceThreshold    = 0.9
	lowValueThreshold         = 100.0
)

// ResolutionAnalyzer applies an ordered rule list; the first match wins.
//
//  1. fraud risk > 0.7          -> investigate, cost 0
//  2. category missing_parts    -> remake, 30% of value
//  3. image confidence > 0.9    -> replacement, 80% of value
//  4. value < 100               -> partial_credit, 50% of value
//  5. otherwise                 -> refund, full value
type ResolutionAnalyzer struct{}

// NewResolutionAnalyzer creates a rule-based resolution analyzer
func NewResolutionAnalyzer() *ResolutionAnalyzer {
	return &ResolutionAnalyzer{}
}

// Analyze recommends a resolution from the claim and its triage result
func (a *ResolutionAnalyzer) Analyze(ctx context.Context, claim *entity.Claim, triage *entity.TriageAnalysis) (*entity.ResolutionRecommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if triage == nil {
		return nil, errors.New("triage analysis is required")
	}

	value := claim.EstimatedValue

	switch {
	case triage.RiskAssessment.FraudRisk > fraudInvestigateThreshold:
		return &entity.ResolutionRecommendation{
			Action:        entity.ActionInvestigate,
			Confidence:    0.9,
			Reasoning:     "High fraud risk detected, requires manual investigation",
			EstimatedCost: 0,
		}, nil

	case claim.Category == entity.CategoryMissingParts:
		return &entity.ResolutionRecommendation{
			Action:        entity.ActionRemake,
			Confidence:    0.85,
			Reasoning:     "Missing parts can be easily replaced, more cost-effective than refund",
			EstimatedCost: nonNegative(value * 0.3),
		}, nil

	case triage.ImageAnalysis != nil && triage.ImageAnalysis.Confidence > imageEvidenceThreshold:
		return &entity.ResolutionRecommendation{
			Action:        entity.ActionReplacement,
			Confidence:    0.8,
			Reasoning:     "Clear visual evidence of defect, replacement warranted",
			EstimatedCost: nonNegative(value * 0.8),
		}, nil

	case value < lowValueThreshold:
		return &entity.ResolutionRecommendation{
			Action:        entity.ActionPartialCredit,
			Confidence:    0.75,
			Reasoning:     "Low value claim, partial credit maintains customer satisfaction",
			EstimatedCost: nonNegative(value * 0.5),
		}, nil

	default:
		return &entity.ResolutionRecommendation{
			Action:        entity.ActionRefund,
			Confidence:    0.7,
			Reasoning:     "Standard refund recommended",
			EstimatedCost: nonNegative(value),
		}, nil
	}
}

// nonNegative clamps cost; negative estimated values are accepted on intake
func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
