package port

import (
	"context"
	"time"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// ProductionRecord is the manufacturing side of the reference data
type ProductionRecord struct {
	BatchID        string    `json:"batch_id"`
	ProductionDate time.Time `json:"production_date"`
	QualityChecks  []string  `json:"quality_checks"`
}

// QualityCheckFailed reports whether any recorded check failed
func (p *ProductionRecord) QualityCheckFailed() bool {
	if p == nil {
		return false
	}
	for _, check := range p.QualityChecks {
		if check == "failed" {
			return true
		}
	}
	return false
}

// InventoryRecord is the warehouse side of the reference data
type InventoryRecord struct {
	WarehouseLocation string    `json:"warehouse_location"`
	StockLevel        int       `json:"stock_level"`
	LastMovement      time.Time `json:"last_movement"`
}

// LogisticsRecord is the shipping side of the reference data
type LogisticsRecord struct {
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	DeliveryDate   time.Time `json:"delivery_date"`
}

// ReferenceData is ERP data correlated with one claim. Any section may be nil.
type ReferenceData struct {
	Production *ProductionRecord `json:"production,omitempty"`
	Inventory  *InventoryRecord  `json:"inventory,omitempty"`
	Logistics  *LogisticsRecord  `json:"logistics,omitempty"`
}

// AsMap flattens the reference data for RootCause.RelatedData
func (r *ReferenceData) AsMap() map[string]interface{} {
	out := map[string]interface{}{}
	if r == nil {
		return out
	}
	if r.Production != nil {
		out["production"] = map[string]interface{}{
			"batch_id":        r.Production.BatchID,
			"production_date": r.Production.ProductionDate,
			"quality_checks":  append([]string(nil), r.Production.QualityChecks...),
		}
	}
	if r.Inventory != nil {
		out["inventory"] = map[string]interface{}{
			"warehouse_location": r.Inventory.WarehouseLocation,
			"stock_level":        r.Inventory.StockLevel,
			"last_movement":      r.Inventory.LastMovement,
		}
	}
	if r.Logistics != nil {
		out["logistics"] = map[string]interface{}{
			"carrier":         r.Logistics.Carrier,
			"tracking_number": r.Logistics.TrackingNumber,
			"delivery_date":   r.Logistics.DeliveryDate,
		}
	}
	return out
}

// ReferenceDataProvider fetches ERP data for a claim.
// Returning (nil, nil) means no data is available.
type ReferenceDataProvider interface {
	Lookup(ctx context.Context, claim *entity.Claim) (*ReferenceData, error)
}

// Notifier delivers claim notifications
type Notifier interface {
	// NotifyCustomer tells the customer their resolution was executed
	NotifyCustomer(ctx context.Context, claim *entity.Claim) error
	// NotifyReviewer asks a human to review a pending claim
	NotifyReviewer(ctx context.Context, claim *entity.Claim, recommendation *entity.ResolutionRecommendation) error
	// NotifyEscalation alerts the escalation target team
	NotifyEscalation(ctx context.Context, claim *entity.Claim, decision *entity.EscalationDecision) error
}

// ResolutionHandler performs the external side effect for one resolution type
type ResolutionHandler interface {
	Execute(ctx context.Context, claim *entity.Claim, resolution *entity.Resolution) error
}

// ResolutionHandlerFunc adapts a function to ResolutionHandler
type ResolutionHandlerFunc func(ctx context.Context, claim *entity.Claim, resolution *entity.Resolution) error

// Execute calls f
func (f ResolutionHandlerFunc) Execute(ctx context.Context, claim *entity.Claim, resolution *entity.Resolution) error {
	return f(ctx, claim, resolution)
}
