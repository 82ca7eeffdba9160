package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/service"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// Sheet names of the exported workbook
const (
	ClaimsSheet     = "Claims"
	StatisticsSheet = "Statistics"
)

// ContentType is the MIME type of the exported workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04"

var claimHeaders = []interface{}{
	"Claim ID", "Customer", "Order", "Product", "Category", "Priority", "Status",
	"Submitted", "SLA Deadline", "Estimated Value", "Actual Value", "Root Cause",
	"Systemic", "Resolution", "Amount", "Executed At", "Assigned To", "Audit Entries",
}

// WorkbookWriter renders claims and their statistics as an XLSX workbook
type WorkbookWriter struct {
	logger *zap.Logger
}

// NewWorkbookWriter creates a new WorkbookWriter
func NewWorkbookWriter(logger *zap.Logger) *WorkbookWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkbookWriter{logger: logger}
}

// Write renders the claims sheet and the statistics sheet to w
func (ww *WorkbookWriter) Write(w io.Writer, claims []*entity.Claim, stats *service.Statistics) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", ClaimsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := file.NewSheet(StatisticsSheet); err != nil {
		return fmt.Errorf("failed to create statistics sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := ww.fillClaims(file, claims, headerStyle); err != nil {
		return fmt.Errorf("failed to fill claims: %w", err)
	}
	if err := ww.fillStatistics(file, stats, headerStyle); err != nil {
		return fmt.Errorf("failed to fill statistics: %w", err)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	ww.logger.Info("Claims workbook exported", zap.Int("claim_count", len(claims)))
	return nil
}

func (ww *WorkbookWriter) fillClaims(file *excelize.File, claims []*entity.Claim, headerStyle int) error {
	if err := file.SetSheetRow(ClaimsSheet, "A1", &claimHeaders); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(claimHeaders))
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(ClaimsSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := file.SetColWidth(ClaimsSheet, "A", lastCol, 18); err != nil {
		return err
	}

	for i, claim := range claims {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := claimRow(claim)
		if err := file.SetSheetRow(ClaimsSheet, cell, &row); err != nil {
			return fmt.Errorf("row for %s: %w", claim.ID, err)
		}
	}
	return nil
}

func claimRow(c *entity.Claim) []interface{} {
	var actual, rootCause, systemic, resolution, amount, executedAt interface{} = "", "", "", "", "", ""
	if c.ActualValue != nil {
		actual = *c.ActualValue
	}
	if c.RootCause != nil {
		rootCause = string(c.RootCause.Source)
		systemic = c.RootCause.SystemicIssue
	}
	if r := c.Resolution; r != nil {
		resolution = string(r.Type)
		if r.Amount != nil {
			amount = *r.Amount
		}
		if r.ExecutedAt != nil {
			executedAt = r.ExecutedAt.Format(timeLayout)
		}
	}

	return []interface{}{
		c.ID, c.CustomerID, c.OrderNumber, c.ProductID,
		string(c.Category), string(c.Priority), string(c.Status),
		c.SubmissionDate.Format(timeLayout), c.SLADeadline.Format(timeLayout),
		c.EstimatedValue, actual, rootCause, systemic,
		resolution, amount, executedAt, c.AssignedTo, len(c.AuditTrail),
	}
}

func (ww *WorkbookWriter) fillStatistics(file *excelize.File, stats *service.Statistics, headerStyle int) error {
	if stats == nil {
		stats = service.ComputeStatistics(nil)
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Total claims", stats.Total},
		{"Resolved claims", stats.ResolvedCount},
		{"Total financial impact", stats.TotalFinancialImpact},
		{"Average resolution (hours)", stats.AverageResolutionTime.Round(time.Minute).Hours()},
		{},
		{"Status", "Claims"},
	}
	for _, status := range sortedKeys(stats.ByStatus) {
		rows = append(rows, []interface{}{status, stats.ByStatus[entity.ClaimStatus(status)]})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Category", "Claims"})
	for _, category := range sortedKeys(stats.ByCategory) {
		rows = append(rows, []interface{}{category, stats.ByCategory[entity.Category(category)]})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(StatisticsSheet, cell, &row); err != nil {
			return err
		}
		if row[0] == "Metric" || row[0] == "Status" || row[0] == "Category" {
			end, _ := excelize.CoordinatesToCellName(2, i+1)
			if err := file.SetCellStyle(StatisticsSheet, cell, end, headerStyle); err != nil {
				return err
			}
		}
	}
	return file.SetColWidth(StatisticsSheet, "A", "A", 28)
}

func sortedKeys[K ~string, V interface{}](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
