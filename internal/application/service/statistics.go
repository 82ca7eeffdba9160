package service

import (
	"time"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// Statistics summarizes the stored claims
type Statistics struct {
	Total                 int                        `json:"total"`
	ByStatus              map[entity.ClaimStatus]int `json:"by_status"`
	ByCategory            map[entity.Category]int    `json:"by_category"`
	TotalFinancialImpact  float64                    `json:"total_financial_impact"`
	ResolvedCount         int                        `json:"resolved_count"`
	AverageResolutionTime time.Duration              `json:"-"`
	AverageResolutionMs   int64                      `json:"average_resolution_time_ms"`
}

// ComputeStatistics aggregates claims.
// Average resolution time covers resolved claims with an execution timestamp
// and is zero when there are none.
func ComputeStatistics(claims []*entity.Claim) *Statistics {
	stats := &Statistics{
		ByStatus:   make(map[entity.ClaimStatus]int),
		ByCategory: make(map[entity.Category]int),
	}

	var total time.Duration
	for _, claim := range claims {
		stats.Total++
		stats.ByStatus[claim.Status]++
		stats.ByCategory[claim.Category]++
		stats.TotalFinancialImpact += claim.FinancialImpact()

		if claim.Status == entity.StatusResolved && claim.Resolution != nil && claim.Resolution.ExecutedAt != nil {
			total += claim.Resolution.ExecutedAt.Sub(claim.SubmissionDate)
			stats.ResolvedCount++
		}
	}

	if stats.ResolvedCount > 0 {
		stats.AverageResolutionTime = total / time.Duration(stats.ResolvedCount)
		stats.AverageResolutionMs = stats.AverageResolutionTime.Milliseconds()
	}

	return stats
}
