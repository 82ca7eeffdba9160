package entity

// Category classifies what went wrong with the order
type Category string

const (
	CategoryMissingParts    Category = "missing_parts"
	CategoryWrongSize       Category = "wrong_size"
	CategoryDefective       Category = "defective"
	CategoryDamagedShipping Category = "damaged_shipping"
	CategoryQualityIssue    Category = "quality_issue"
	CategoryOther           Category = "other"
)

// IsValid returns true if the category is one of the defined constants
func (c Category) IsValid() bool {
	switch c {
	case CategoryMissingParts,
		CategoryWrongSize,
		CategoryDefective,
		CategoryDamagedShipping,
		CategoryQualityIssue,
		CategoryOther:
		return true
	default:
		return false
	}
}

// Priority is derived from the estimated value at submission
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ClaimStatus mirrors workflow.State values for persistence and JSON
type ClaimStatus string

const (
	StatusSubmitted       ClaimStatus = "submitted"
	StatusTriaged         ClaimStatus = "triaged"
	StatusAnalyzing       ClaimStatus = "analyzing"
	StatusPendingApproval ClaimStatus = "pending_approval"
	StatusApproved        ClaimStatus = "approved"
	StatusRejected        ClaimStatus = "rejected"
	StatusResolved        ClaimStatus = "resolved"
	StatusEscalated       ClaimStatus = "escalated"
)

// ResolutionType is an executable resolution
type ResolutionType string

const (
	ResolutionRefund        ResolutionType = "refund"
	ResolutionRemake        ResolutionType = "remake"
	ResolutionReplacement   ResolutionType = "replacement"
	ResolutionPartialCredit ResolutionType = "partial_credit"
)

// IsValid returns true if the resolution type can be executed
func (t ResolutionType) IsValid() bool {
	switch t {
	case ResolutionRefund, ResolutionRemake, ResolutionReplacement, ResolutionPartialCredit:
		return true
	default:
		return false
	}
}

// RecommendedAction is what the resolution stage suggests.
// Every ResolutionType is also a RecommendedAction; investigate is not executable.
type RecommendedAction string

const (
	ActionRefund        RecommendedAction = "refund"
	ActionRemake        RecommendedAction = "remake"
	ActionReplacement   RecommendedAction = "replacement"
	ActionPartialCredit RecommendedAction = "partial_credit"
	ActionInvestigate   RecommendedAction = "investigate"
)

// ResolutionType converts the action to an executable type.
// ok is false for investigate.
func (a RecommendedAction) ResolutionType() (ResolutionType, bool) {
	t := ResolutionType(a)
	return t, t.IsValid()
}

// RootCauseSource names the originating system
type RootCauseSource string

const (
	SourceProduction     RootCauseSource = "production"
	SourceInventory      RootCauseSource = "inventory"
	SourceLogistics      RootCauseSource = "logistics"
	SourceQualityControl RootCauseSource = "quality_control"
)

// IsValid returns true if the source is one of the four categories
func (s RootCauseSource) IsValid() bool {
	switch s {
	case SourceProduction, SourceInventory, SourceLogistics, SourceQualityControl:
		return true
	default:
		return false
	}
}

// EscalationTarget is the team that receives an escalated claim
type EscalationTarget string

const (
	EscalationNone            EscalationTarget = "none"
	EscalationOperations      EscalationTarget = "operations"
	EscalationManagement      EscalationTarget = "management"
	EscalationCustomerSuccess EscalationTarget = "customer_success"
)

// Urgency of an escalation
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Audit actors
const (
	ActorSystem   = "system"
	ActorAISystem = "ai_system"
)

// Audit actions
const (
	ActionClaimSubmitted        = "claim_submitted"
	ActionStatusUpdated         = "status_updated"
	ActionAIProcessingCompleted = "ai_processing_completed"
	ActionClaimEscalated        = "claim_escalated"
	ActionAutoApproved          = "auto_approved"
	ActionReviewRequested       = "review_requested"
	ActionClaimApproved         = "claim_approved"
	ActionClaimRejected         = "claim_rejected"
	ActionClaimAssigned         = "claim_assigned"
	ActionResolutionExecuted    = "resolution_executed"
	ActionResolutionFailed      = "resolution_failed"
	ActionProcessingError       = "processing_error"
)
