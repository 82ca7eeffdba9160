package entity

import "time"

// Claim represents a customer-filed product claim tracked through resolution
type Claim struct {
	ID             string      `json:"id"`
	CustomerID     string      `json:"customer_id"`
	OrderNumber    string      `json:"order_number"`
	ProductID      string      `json:"product_id"`
	Description    string      `json:"description"`
	Category       Category    `json:"category"`
	Priority       Priority    `json:"priority"`
	Status         ClaimStatus `json:"status"`
	SubmissionDate time.Time   `json:"submission_date"`
	Images         []string    `json:"images"`
	Attachments    []string    `json:"attachments"`
	EstimatedValue float64     `json:"estimated_value"`
	ActualValue    *float64    `json:"actual_value,omitempty"`
	RootCause      *RootCause  `json:"root_cause,omitempty"`
	Resolution     *Resolution `json:"resolution,omitempty"`
	SLADeadline    time.Time   `json:"sla_deadline"`
	AssignedTo     string      `json:"assigned_to,omitempty"`
	Tags           []string    `json:"tags"`

	// Last pipeline outputs, kept for observability
	LastAnalysis       *TriageAnalysis           `json:"last_analysis,omitempty"`
	LastRecommendation *ResolutionRecommendation `json:"last_recommendation,omitempty"`

	AuditTrail []AuditEntry `json:"audit_trail"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// AuditEntry is one immutable record in a claim's audit trail
type AuditEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Action    string                 `json:"action"`
	UserID    string                 `json:"user_id"`
	Details   map[string]interface{} `json:"details"`
}

// Resolution is the approved remedy attached to a claim
type Resolution struct {
	Type             ResolutionType `json:"type"`
	Amount           *float64       `json:"amount,omitempty"`
	Description      string         `json:"description"`
	ApprovedBy       string         `json:"approved_by"`
	ExecutedAt       *time.Time     `json:"executed_at,omitempty"`
	CustomerNotified bool           `json:"customer_notified"`
}

// FinancialImpact returns the actual value when known, otherwise the estimate
func (c *Claim) FinancialImpact() float64 {
	if c.ActualValue != nil {
		return *c.ActualValue
	}
	return c.EstimatedValue
}

// AppendAudit appends an entry to the audit trail and bumps UpdatedAt
func (c *Claim) AppendAudit(action, userID string, details map[string]interface{}, at time.Time) {
	if details == nil {
		details = map[string]interface{}{}
	}
	c.AuditTrail = append(c.AuditTrail, AuditEntry{
		Timestamp: at,
		Action:    action,
		UserID:    userID,
		Details:   details,
	})
	c.UpdatedAt = at
}

// Clone returns a deep copy of the claim.
// Stores hand out clones so that callers never share mutable state.
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}

	out := *c
	out.Images = copyStrings(c.Images)
	out.Attachments = copyStrings(c.Attachments)
	out.Tags = copyStrings(c.Tags)

	if c.ActualValue != nil {
		v := *c.ActualValue
		out.ActualValue = &v
	}
	if c.RootCause != nil {
		rc := *c.RootCause
		rc.RelatedData = copyMap(c.RootCause.RelatedData)
		out.RootCause = &rc
	}
	if c.Resolution != nil {
		res := *c.Resolution
		if c.Resolution.Amount != nil {
			amount := *c.Resolution.Amount
			res.Amount = &amount
		}
		if c.Resolution.ExecutedAt != nil {
			executedAt := *c.Resolution.ExecutedAt
			res.ExecutedAt = &executedAt
		}
		out.Resolution = &res
	}
	if c.LastAnalysis != nil {
		out.LastAnalysis = c.LastAnalysis.Clone()
	}
	if c.LastRecommendation != nil {
		rec := *c.LastRecommendation
		out.LastRecommendation = &rec
	}

	if c.AuditTrail != nil {
		out.AuditTrail = make([]AuditEntry, len(c.AuditTrail))
		for i, entry := range c.AuditTrail {
			entry.Details = copyMap(entry.Details)
			out.AuditTrail[i] = entry
		}
	}

	return &out
}

func copyStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append(make([]string, 0, len(values)), values...)
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
