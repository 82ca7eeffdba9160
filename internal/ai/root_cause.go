package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

const rootCauseConfidence = 0.78

var sourceByCategory = map[entity.Category]entity.RootCauseSource{
	entity.CategoryMissingParts:    entity.SourceInventory,
	entity.CategoryWrongSize:       entity.SourceInventory,
	entity.CategoryDamagedShipping: entity.SourceLogistics,
	entity.CategoryDefective:       entity.SourceProduction,
	entity.CategoryQualityIssue:    entity.SourceQualityControl,
	entity.CategoryOther:           entity.SourceQualityControl,
}

// RootCauseAnalyzer maps a claim to its likely originating process.
// A failed quality check in the reference data always points at production
// and marks the issue systemic, since the whole batch is suspect.
type RootCauseAnalyzer struct {
	logger *zap.Logger
}

// NewRootCauseAnalyzer creates a rule-based root cause analyzer
func NewRootCauseAnalyzer(logger *zap.Logger) *RootCauseAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RootCauseAnalyzer{logger: logger}
}

// Analyze infers the root cause; ref may be nil
func (a *RootCauseAnalyzer) Analyze(ctx context.Context, claim *entity.Claim, ref *port.ReferenceData) (*entity.RootCause, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, ok := sourceByCategory[claim.Category]
	if !ok {
		source = entity.SourceQualityControl
	}

	systemic := false
	if ref != nil && ref.Production.QualityCheckFailed() {
		source = entity.SourceProduction
		systemic = true
	}

	rc := &entity.RootCause{
		Source:        source,
		Details:       RootCauseDetails(source, claim, ref),
		Confidence:    rootCauseConfidence,
		RelatedData:   ref.AsMap(),
		SystemicIssue: systemic,
	}

	a.logger.Info("Root cause inferred",
		zap.String("claim_id", claim.ID),
		zap.String("source", string(rc.Source)),
		zap.Bool("systemic", rc.SystemicIssue))

	return rc, nil
}

// RootCauseDetails renders the explanation template for source
func RootCauseDetails(source entity.RootCauseSource, claim *entity.Claim, ref *port.ReferenceData) string {
	switch source {
	case entity.SourceProduction:
		batch, date := "unknown", claim.SubmissionDate
		if ref != nil && ref.Production != nil {
			if ref.Production.BatchID != "" {
				batch = ref.Production.BatchID
			}
			if !ref.Production.ProductionDate.IsZero() {
				date = ref.Production.ProductionDate
			}
		}
		return fmt.Sprintf("Production batch %s had quality control issues during manufacturing on %s",
			batch, date.Format("2006-01-02"))

	case entity.SourceInventory:
		location := "unknown"
		if ref != nil && ref.Inventory != nil && ref.Inventory.WarehouseLocation != "" {
			location = ref.Inventory.WarehouseLocation
		}
		return fmt.Sprintf("Inventory discrepancy detected in warehouse location %s. Wrong part picked during fulfillment.", location)

	case entity.SourceLogistics:
		carrier := "unknown"
		if ref != nil && ref.Logistics != nil && ref.Logistics.Carrier != "" {
			carrier = ref.Logistics.Carrier
		}
		return fmt.Sprintf("Shipping damage occurred during transit with carrier %s. Package handling issue identified.", carrier)

	default:
		return fmt.Sprintf("QC checkpoint failed to detect defect in final inspection of %s. Critical measurement variance was missed.", claim.ProductID)
	}
}
