package event

// Type identifies a claim lifecycle event
type Type string

const (
	TypeClaimSubmitted     Type = "claim.submitted"
	TypeStatusChanged      Type = "claim.status_changed"
	TypeClaimEscalated     Type = "claim.escalated"
	TypeReviewRequested    Type = "claim.review_requested"
	TypeClaimResolved      Type = "claim.resolved"
	TypeResolutionFailed   Type = "claim.resolution_failed"
	TypeSLABreached        Type = "claim.sla_breached"
	TypeProcessingComplete Type = "claim.processing_completed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeClaimSubmitted,
		TypeStatusChanged,
		TypeClaimEscalated,
		TypeReviewRequested,
		TypeClaimResolved,
		TypeResolutionFailed,
		TypeSLABreached,
		TypeProcessingComplete:
		return true
	default:
		return false
	}
}
