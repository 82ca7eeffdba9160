// Package demo drives the claim service through the reference scenarios
// and prints what happened to each claim.
package demo

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/application/service"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

const approver = "manager-001"

// Scenarios returns the three reference claims: a high-value defect,
// a missing-parts order and a wrong-size precision part
func Scenarios() []service.SubmitRequest {
	return []service.SubmitRequest{
		{
			CustomerID:     "AEROSPACE-001",
			OrderNumber:    "ORD-AIRCRAFT-5000",
			ProductID:      "WING-BOLT-M12-TITANIUM",
			Description:    "Critical defect found in titanium wing bolts. 0.5mm variance in thread pitch detected during pre-flight inspection.",
			Category:       entity.CategoryDefective,
			EstimatedValue: 75000,
			Images:         []string{"defect-image-1.jpg", "measurement-report.jpg"},
			Source:         "demo",
		},
		{
			CustomerID:     "AUTOMOTIVE-002",
			OrderNumber:    "ORD-ENGINE-BLOCK-789",
			ProductID:      "GASKET-SET-V8-PREMIUM",
			Description:    "Missing 4 head gaskets from engine rebuild kit. Customer unable to complete engine assembly.",
			Category:       entity.CategoryMissingParts,
			EstimatedValue: 450,
			Attachments:    []string{"packing-list.pdf", "order-confirmation.pdf"},
			Source:         "demo",
		},
		{
			CustomerID:     "PRECISION-003",
			OrderNumber:    "ORD-BEARING-ASSEMBLY-456",
			ProductID:      "BEARING-RACE-INNER-25MM",
			Description:    "Received 24mm inner bearing races instead of specified 25mm. Tolerance critical for high-speed applications.",
			Category:       entity.CategoryWrongSize,
			EstimatedValue: 2800,
			Images:         []string{"measurement-caliper.jpg"},
			Source:         "demo",
		},
	}
}

// Report is what one demo run produced
type Report struct {
	Processed  []*entity.Claim
	Statistics *service.Statistics
	// Approved is nil when no claim was waiting for review
	Approved *entity.Claim
}

// Runner submits the scenarios and walks one claim through manual approval
type Runner struct {
	claims      service.ClaimService
	out         io.Writer
	taskTimeout time.Duration
}

// NewRunner creates a Runner writing its narrative to out
func NewRunner(claims service.ClaimService, out io.Writer, taskTimeout time.Duration) *Runner {
	if out == nil {
		out = io.Discard
	}
	if taskTimeout <= 0 {
		taskTimeout = 30 * time.Second
	}
	return &Runner{
		claims:      claims,
		out:         out,
		taskTimeout: taskTimeout,
	}
}

// Run submits every scenario, waits for its pipeline, prints statistics and
// approves the first claim pending review with a refund of its estimated value
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	for i, req := range Scenarios() {
		claim, task, err := r.claims.Submit(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("submit scenario %d: %w", i+1, err)
		}
		r.printf("Scenario %d: claim %s submitted (%s, priority %s, SLA %s)\n",
			i+1, claim.ID, claim.Category, claim.Priority, claim.SLADeadline.UTC().Format(time.RFC3339))

		waitCtx, cancel := context.WithTimeout(ctx, r.taskTimeout)
		processed, err := task.Wait(waitCtx)
		cancel()
		if processed == nil {
			return nil, fmt.Errorf("await scenario %d: %w", i+1, err)
		}
		if err != nil {
			r.printf("  processing failed: %v\n", err)
		}
		r.printf("  route %q, status %s\n", task.Route(), processed.Status)
		if rec := processed.LastRecommendation; rec != nil {
			r.printf("  recommendation %s at %.0f%% confidence, estimated cost %.2f\n",
				rec.Action, rec.Confidence*100, rec.EstimatedCost)
		}
		report.Processed = append(report.Processed, processed)
	}

	stats, err := r.claims.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	report.Statistics = stats
	r.printStatistics(stats)

	approved, err := r.approveFirstPending(ctx)
	if err != nil {
		return nil, err
	}
	report.Approved = approved

	return report, nil
}

func (r *Runner) approveFirstPending(ctx context.Context) (*entity.Claim, error) {
	pending, err := r.claims.List(ctx, port.ClaimFilter{Status: entity.StatusPendingApproval})
	if err != nil {
		return nil, fmt.Errorf("list pending claims: %w", err)
	}
	if len(pending) == 0 {
		r.printf("\nNo claim is waiting for review\n")
		return nil, nil
	}

	claim := pending[0]
	r.printf("\nReviewing claim %s for %s\n", claim.ID, claim.CustomerID)

	amount := claim.EstimatedValue
	approved, err := r.claims.Approve(ctx, claim.ID, approver, service.ResolutionInput{
		Type:        entity.ResolutionRefund,
		Amount:      &amount,
		Description: "Approved based on AI recommendation and manual review",
	})
	if err != nil {
		return approved, fmt.Errorf("approve %s: %w", claim.ID, err)
	}

	r.printf("  approved by %s, status %s, customer notified %t\n",
		approver, approved.Status, approved.Resolution.CustomerNotified)
	return approved, nil
}

func (r *Runner) printStatistics(stats *service.Statistics) {
	r.printf("\nTotal claims: %d\n", stats.Total)
	r.printf("Resolved: %d  Pending: %d  Escalated: %d\n",
		stats.ByStatus[entity.StatusResolved],
		stats.ByStatus[entity.StatusPendingApproval],
		stats.ByStatus[entity.StatusEscalated])
	r.printf("Total financial impact: %.2f\n", stats.TotalFinancialImpact)
	r.printf("Average resolution time: %s\n", stats.AverageResolutionTime.Round(time.Minute))

	categories := make([]string, 0, len(stats.ByCategory))
	for category := range stats.ByCategory {
		categories = append(categories, string(category))
	}
	sort.Strings(categories)
	for _, category := range categories {
		r.printf("  %s: %d\n", category, stats.ByCategory[entity.Category(category)])
	}
}

func (r *Runner) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}
