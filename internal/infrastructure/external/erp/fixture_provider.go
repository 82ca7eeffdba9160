package erp

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// fixtureFile is the YAML layout of an ERP export, keyed by order number
type fixtureFile struct {
	Orders map[string]fixtureOrder `yaml:"orders"`
}

type fixtureOrder struct {
	Production *struct {
		BatchID        string    `yaml:"batch_id"`
		ProductionDate time.Time `yaml:"production_date"`
		QualityChecks  []string  `yaml:"quality_checks"`
	} `yaml:"production"`
	Inventory *struct {
		WarehouseLocation string    `yaml:"warehouse_location"`
		StockLevel        int       `yaml:"stock_level"`
		LastMovement      time.Time `yaml:"last_movement"`
	} `yaml:"inventory"`
	Logistics *struct {
		Carrier        string    `yaml:"carrier"`
		TrackingNumber string    `yaml:"tracking_number"`
		DeliveryDate   time.Time `yaml:"delivery_date"`
	} `yaml:"logistics"`
}

// FixtureProvider serves reference data from a static ERP export.
// Orders missing from the export have no reference data.
type FixtureProvider struct {
	orders map[string]*port.ReferenceData
	logger *zap.Logger
}

// LoadFixtureProvider reads an ERP export from path
func LoadFixtureProvider(path string, logger *zap.Logger) (*FixtureProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference data: %w", err)
	}
	return ParseFixtures(data, logger)
}

// ParseFixtures builds a provider from YAML content
func ParseFixtures(data []byte, logger *zap.Logger) (*FixtureProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse reference data: %w", err)
	}

	orders := make(map[string]*port.ReferenceData, len(file.Orders))
	for orderNumber, order := range file.Orders {
		ref := &port.ReferenceData{}
		if p := order.Production; p != nil {
			ref.Production = &port.ProductionRecord{
				BatchID:        p.BatchID,
				ProductionDate: p.ProductionDate,
				QualityChecks:  p.QualityChecks,
			}
		}
		if inv := order.Inventory; inv != nil {
			ref.Inventory = &port.InventoryRecord{
				WarehouseLocation: inv.WarehouseLocation,
				StockLevel:        inv.StockLevel,
				LastMovement:      inv.LastMovement,
			}
		}
		if l := order.Logistics; l != nil {
			ref.Logistics = &port.LogisticsRecord{
				Carrier:        l.Carrier,
				TrackingNumber: l.TrackingNumber,
				DeliveryDate:   l.DeliveryDate,
			}
		}
		orders[orderNumber] = ref
	}

	logger.Info("Reference data loaded", zap.Int("orders", len(orders)))
	return &FixtureProvider{orders: orders, logger: logger}, nil
}

// Lookup returns a copy of the reference data for the claim's order
func (p *FixtureProvider) Lookup(ctx context.Context, claim *entity.Claim) (*port.ReferenceData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneReference(p.orders[claim.OrderNumber]), nil
}

func cloneReference(ref *port.ReferenceData) *port.ReferenceData {
	if ref == nil {
		return nil
	}
	out := &port.ReferenceData{}
	if ref.Production != nil {
		production := *ref.Production
		production.QualityChecks = append([]string(nil), ref.Production.QualityChecks...)
		out.Production = &production
	}
	if ref.Inventory != nil {
		inventory := *ref.Inventory
		out.Inventory = &inventory
	}
	if ref.Logistics != nil {
		logistics := *ref.Logistics
		out.Logistics = &logistics
	}
	return out
}

var _ port.ReferenceDataProvider = (*FixtureProvider)(nil)
