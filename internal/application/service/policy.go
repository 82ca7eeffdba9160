package service

import (
	"time"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// Value boundaries for priority and SLA. Comparisons are strict.
const (
	criticalValueThreshold = 50000.0
	highValueThreshold     = 10000.0
	mediumValueThreshold   = 1000.0
)

// SLA windows in hours
const (
	slaCriticalHours     = 24
	slaHighHours         = 48
	slaDefaultHours      = 72
	slaMissingPartsHours = 48
)

// PriorityFor maps an estimated value to a priority
func PriorityFor(estimatedValue float64) entity.Priority {
	switch {
	case estimatedValue > criticalValueThreshold:
		return entity.PriorityCritical
	case estimatedValue > highValueThreshold:
		return entity.PriorityHigh
	case estimatedValue > mediumValueThreshold:
		return entity.PriorityMedium
	default:
		return entity.PriorityLow
	}
}

// SLAHours returns the response window for a claim.
// missing_parts claims never get more than 48 hours.
func SLAHours(category entity.Category, estimatedValue float64) int {
	hours := slaDefaultHours
	switch {
	case estimatedValue > criticalValueThreshold:
		hours = slaCriticalHours
	case estimatedValue > highValueThreshold:
		hours = slaHighHours
	}

	if category == entity.CategoryMissingParts && hours > slaMissingPartsHours {
		hours = slaMissingPartsHours
	}
	return hours
}

// SLADeadline returns submittedAt plus the SLA window
func SLADeadline(submittedAt time.Time, category entity.Category, estimatedValue float64) time.Time {
	return submittedAt.Add(time.Duration(SLAHours(category, estimatedValue)) * time.Hour)
}
