package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// ErrAmountRequired is returned when a partial credit has no amount
var ErrAmountRequired = errors.New("partial credit requires an amount")

// Record is one fulfillment order handed to a downstream system
type Record struct {
	Reference  string                `json:"reference"`
	ClaimID    string                `json:"claim_id"`
	CustomerID string                `json:"customer_id"`
	Type       entity.ResolutionType `json:"type"`
	System     string                `json:"system"`
	Amount     float64               `json:"amount,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// Journal keeps the fulfillment orders issued by the handlers
type Journal struct {
	mu      sync.Mutex
	records []Record
	logger  *zap.Logger
	now     func() time.Time
}

// NewJournal creates an empty journal
func NewJournal(logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{logger: logger, now: time.Now}
}

// Records returns a copy of every issued order, oldest first
func (j *Journal) Records() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Record(nil), j.records...)
}

func (j *Journal) issue(ctx context.Context, system string, claim *entity.Claim, res *entity.Resolution, amount float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := Record{
		Reference:  fmt.Sprintf("%s-%s", system, uuid.New().String()[:8]),
		ClaimID:    claim.ID,
		CustomerID: claim.CustomerID,
		Type:       res.Type,
		System:     system,
		Amount:     amount,
		CreatedAt:  j.now(),
	}

	j.mu.Lock()
	j.records = append(j.records, record)
	j.mu.Unlock()

	j.logger.Info("Fulfillment order issued",
		zap.String("reference", record.Reference),
		zap.String("claim_id", claim.ID),
		zap.String("type", string(res.Type)),
		zap.String("system", system),
		zap.Float64("amount", amount))
	return nil
}

// Handlers returns one handler per resolution type, all writing to j.
// Refunds without an explicit amount pay out the claim's financial impact.
func (j *Journal) Handlers() map[entity.ResolutionType]port.ResolutionHandler {
	return map[entity.ResolutionType]port.ResolutionHandler{
		entity.ResolutionRefund: port.ResolutionHandlerFunc(func(ctx context.Context, claim *entity.Claim, res *entity.Resolution) error {
			amount := claim.FinancialImpact()
			if res.Amount != nil {
				amount = *res.Amount
			}
			return j.issue(ctx, "payments", claim, res, amount)
		}),
		entity.ResolutionRemake: port.ResolutionHandlerFunc(func(ctx context.Context, claim *entity.Claim, res *entity.Resolution) error {
			return j.issue(ctx, "production", claim, res, 0)
		}),
		entity.ResolutionReplacement: port.ResolutionHandlerFunc(func(ctx context.Context, claim *entity.Claim, res *entity.Resolution) error {
			return j.issue(ctx, "inventory", claim, res, 0)
		}),
		entity.ResolutionPartialCredit: port.ResolutionHandlerFunc(func(ctx context.Context, claim *entity.Claim, res *entity.Resolution) error {
			if res.Amount == nil || *res.Amount <= 0 {
				return ErrAmountRequired
			}
			return j.issue(ctx, "accounting", claim, res, *res.Amount)
		}),
	}
}
