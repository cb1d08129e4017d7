package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/util"
	"github.com/xuri/excelize/v2"
)

// WaterfallEntry rolls one budget down to the allocation lines that reference it
type WaterfallEntry struct {
	BudgetID       uuid.UUID               `json:"budgetId"`
	BudgetName     string                  `json:"budgetName"`
	FiscalYear     *int32                  `json:"fiscalYear,omitempty"`
	TotalBudget    decimal.Decimal         `json:"totalBudget"`
	BudgetUtilized decimal.Decimal         `json:"budgetUtilized"`
	TotalSpend     decimal.Decimal         `json:"totalSpend"`
	TotalAllocated decimal.Decimal         `json:"totalAllocated"`
	Allocations    []*domain.WaterfallLine `json:"allocations"`
}

// WaterfallFilters narrows the waterfall to one fiscal year and/or one budget
type WaterfallFilters struct {
	FiscalYear *int32
	BudgetRef  *uuid.UUID
}

// WaterfallExport is a rendered waterfall workbook. URL is set when the workbook was
// uploaded to report storage, otherwise Content holds the file.
type WaterfallExport struct {
	FileName  string     `json:"fileName"`
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Content   []byte     `json:"-"`
}

// WaterfallService builds the budget → allocation → line rollup. It never writes.
type WaterfallService struct {
	allocationRepo domain.BudgetAllocationRepository
	budgetReader   domain.BudgetReader
	spendLedger    domain.SpendLedger
	reportStore    domain.ReportStore
	presignExpiry  time.Duration
	now            func() time.Time
}

// NewWaterfallService creates a new WaterfallService
func NewWaterfallService(allocationRepo domain.BudgetAllocationRepository, budgetReader domain.BudgetReader, spendLedger domain.SpendLedger) *WaterfallService {
	return &WaterfallService{
		allocationRepo: allocationRepo,
		budgetReader:   budgetReader,
		spendLedger:    spendLedger,
		presignExpiry:  15 * time.Minute,
		now:            time.Now,
	}
}

// SetReportStore enables uploading exports; links expire after expiry
func (s *WaterfallService) SetReportStore(store domain.ReportStore, expiry time.Duration) {
	s.reportStore = store
	if expiry > 0 {
		s.presignExpiry = expiry
	}
}

// GetWaterfall returns one entry per matching budget, lines ordered by allocated amount
func (s *WaterfallService) GetWaterfall(ctx context.Context, tenantID int32, filters WaterfallFilters) ([]*WaterfallEntry, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}

	budgets, err := s.budgetReader.ListBudgets(ctx, tenantID, &domain.BudgetFilters{
		FiscalYear: filters.FiscalYear,
		BudgetID:   filters.BudgetRef,
	})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if filters.BudgetRef != nil && len(budgets) == 0 {
		return nil, domain.ErrBudgetNotFound
	}

	entries := make([]*WaterfallEntry, 0, len(budgets))
	for _, b := range budgets {
		lines, err := s.allocationRepo.GetLinesByBudget(ctx, tenantID, b.ID)
		if err != nil {
			return nil, err
		}
		spend, err := s.spendLedger.SumBudgetSpend(ctx, tenantID, b.ID)
		if err != nil {
			return nil, fmt.Errorf("sum spend for budget %s: %w", b.ID, err)
		}

		allocated := decimal.Zero
		for _, l := range lines {
			allocated = allocated.Add(l.AllocatedAmount)
		}

		entries = append(entries, &WaterfallEntry{
			BudgetID:       b.ID,
			BudgetName:     b.Name,
			FiscalYear:     b.FiscalYear,
			TotalBudget:    b.TotalAmount,
			BudgetUtilized: b.UtilizedAmount,
			TotalSpend:     util.Round2(spend),
			TotalAllocated: util.Round2(allocated),
			Allocations:    lines,
		})
	}
	return entries, nil
}

var waterfallHeaders = []interface{}{
	"Budget", "Fiscal Year", "Total Budget", "Budget Utilized", "Total Spend",
	"Allocation", "Dimension", "Entity ID", "Entity", "Allocated", "Utilized", "Remaining", "Utilization %",
}

const (
	waterfallSheet  = "Waterfall"
	waterfallReport = "waterfall"
)

// ExportWaterfall renders the waterfall as an .xlsx workbook. With report storage
// configured the workbook is uploaded and a presigned link returned.
func (s *WaterfallService) ExportWaterfall(ctx context.Context, tenantID int32, filters WaterfallFilters) (*WaterfallExport, error) {
	entries, err := s.GetWaterfall(ctx, tenantID, filters)
	if err != nil {
		return nil, err
	}

	content, err := RenderWaterfallWorkbook(entries)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	export := &WaterfallExport{
		FileName: domain.ReportFileName(waterfallReport, now),
		Content:  content,
	}
	if s.reportStore == nil {
		return export, nil
	}

	objectPath := domain.ReportObjectPath(tenantID, waterfallReport, now)
	key, err := s.reportStore.Upload(ctx, objectPath, bytes.NewReader(content), xlsxContentType, int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("upload waterfall export: %w", err)
	}
	url, err := s.reportStore.GeneratePresignedURL(ctx, key, s.presignExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign waterfall export: %w", err)
	}

	log.Info().
		Int32("tenant_id", tenantID).
		Str("object", key).
		Int("budgets", len(entries)).
		Msg("Waterfall export uploaded")

	expiresAt := now.Add(s.presignExpiry)
	export.URL = url
	export.ExpiresAt = &expiresAt
	export.Content = nil
	return export, nil
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RenderWaterfallWorkbook writes one row per allocation line, or one row per budget
// without lines, under a header row
func RenderWaterfallWorkbook(entries []*WaterfallEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", waterfallSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(waterfallSheet, "A1", &waterfallHeaders); err != nil {
		return nil, err
	}

	row := 2
	for _, e := range entries {
		fiscalYear := ""
		if e.FiscalYear != nil {
			fiscalYear = fmt.Sprint(*e.FiscalYear)
		}
		budgetCells := []interface{}{
			e.BudgetName, fiscalYear,
			e.TotalBudget.InexactFloat64(), e.BudgetUtilized.InexactFloat64(), e.TotalSpend.InexactFloat64(),
		}

		if len(e.Allocations) == 0 {
			if err := setRow(f, row, budgetCells); err != nil {
				return nil, err
			}
			row++
			continue
		}

		for _, l := range e.Allocations {
			cells := append(append([]interface{}{}, budgetCells...),
				l.AllocationName,
				string(l.DimensionType),
				l.DimensionID,
				l.DimensionName,
				l.AllocatedAmount.InexactFloat64(),
				l.UtilizedAmount.InexactFloat64(),
				l.RemainingAmount.InexactFloat64(),
				l.UtilizationPct.InexactFloat64(),
			)
			if err := setRow(f, row, cells); err != nil {
				return nil, err
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(waterfallSheet, cell, &cells)
}
