package port

import (
	"context"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// Stage analyzers must not mutate the claim they are given.

// TriageAnalyzer produces duplicate, image, text and risk analysis
type TriageAnalyzer interface {
	Analyze(ctx context.Context, claim *entity.Claim) (*entity.TriageAnalysis, error)
}

// RootCauseAnalyzer infers the originating process. ref may be nil.
type RootCauseAnalyzer interface {
	Analyze(ctx context.Context, claim *entity.Claim, ref *ReferenceData) (*entity.RootCause, error)
}

// ResolutionAnalyzer recommends a remedy from the triage result
type ResolutionAnalyzer interface {
	Analyze(ctx context.Context, claim *entity.Claim, triage *entity.TriageAnalysis) (*entity.ResolutionRecommendation, error)
}

// EscalationAnalyzer decides whether the claim leaves the normal flow
type EscalationAnalyzer interface {
	Analyze(ctx context.Context, claim *entity.Claim, rootCause *entity.RootCause) (*entity.EscalationDecision, error)
}
