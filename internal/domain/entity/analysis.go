package entity

import "time"

// TriageAnalysis is the output of the triage stage
type TriageAnalysis struct {
	ClaimID        string         `json:"claim_id"`
	AIConfidence   float64        `json:"ai_confidence"`
	DuplicateCheck DuplicateCheck `json:"duplicate_check"`
	ImageAnalysis  *ImageAnalysis `json:"image_analysis,omitempty"`
	TextAnalysis   TextAnalysis   `json:"text_analysis"`
	RiskAssessment RiskAssessment `json:"risk_assessment"`
}

// DuplicateCheck reports whether similar claims already exist
type DuplicateCheck struct {
	IsDuplicate   bool     `json:"is_duplicate"`
	SimilarClaims []string `json:"similar_claims"`
	Confidence    float64  `json:"confidence"`
}

// ImageAnalysis is only produced when a claim carries images
type ImageAnalysis struct {
	DefectsDetected []string          `json:"defects_detected"`
	Confidence      float64           `json:"confidence"`
	Annotations     []ImageAnnotation `json:"annotations"`
}

// ImageAnnotation marks a detected region on one image
type ImageAnnotation struct {
	Image      string  `json:"image"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// TextAnalysis summarizes the claim description
type TextAnalysis struct {
	Sentiment    float64  `json:"sentiment"`
	Keywords     []string `json:"keywords"`
	UrgencyScore float64  `json:"urgency_score"`
}

// RiskAssessment holds fraud, financial and reputation risk
type RiskAssessment struct {
	FraudRisk       float64 `json:"fraud_risk"`
	FinancialImpact float64 `json:"financial_impact"`
	ReputationRisk  float64 `json:"reputation_risk"`
}

// RootCause is the inferred originating process for a defect
type RootCause struct {
	Source        RootCauseSource        `json:"source"`
	Details       string                 `json:"details"`
	Confidence    float64                `json:"confidence"`
	RelatedData   map[string]interface{} `json:"related_data"`
	SystemicIssue bool                   `json:"systemic_issue"`
}

// ResolutionRecommendation is the resolution stage output
type ResolutionRecommendation struct {
	Action        RecommendedAction `json:"action"`
	Confidence    float64           `json:"confidence"`
	Reasoning     string            `json:"reasoning"`
	EstimatedCost float64           `json:"estimated_cost"`
}

// EscalationDecision is the escalation stage output
type EscalationDecision struct {
	ShouldEscalate bool             `json:"should_escalate"`
	Target         EscalationTarget `json:"target"`
	Urgency        Urgency          `json:"urgency"`
	Reasoning      string           `json:"reasoning"`
}

// PipelineResult combines all four stage outputs for one claim
type PipelineResult struct {
	ClaimID        string                    `json:"claim_id"`
	Analysis       *TriageAnalysis           `json:"analysis"`
	RootCause      *RootCause                `json:"root_cause"`
	Recommendation *ResolutionRecommendation `json:"recommendation"`
	Escalation     *EscalationDecision       `json:"escalation"`
	ProcessedAt    time.Time                 `json:"processed_at"`
	ProcessingTime time.Duration             `json:"processing_time"`
}

// Clone returns a deep copy of the analysis
func (a *TriageAnalysis) Clone() *TriageAnalysis {
	if a == nil {
		return nil
	}
	out := *a
	out.DuplicateCheck.SimilarClaims = copyStrings(a.DuplicateCheck.SimilarClaims)
	out.TextAnalysis.Keywords = copyStrings(a.TextAnalysis.Keywords)
	if a.ImageAnalysis != nil {
		img := *a.ImageAnalysis
		img.DefectsDetected = copyStrings(a.ImageAnalysis.DefectsDetected)
		if a.ImageAnalysis.Annotations != nil {
			img.Annotations = append(make([]ImageAnnotation, 0, len(a.ImageAnalysis.Annotations)), a.ImageAnalysis.Annotations...)
		}
		out.ImageAnalysis = &img
	}
	return &out
}
