package handler

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/service"
)

const dateLayout = "2006-01-02"

// AllocationResponse represents an allocation in API responses
type AllocationResponse struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	Description      *string                  `json:"description,omitempty"`
	Notes            *string                  `json:"notes,omitempty"`
	Status           string                   `json:"status"`
	AllocationMethod string                   `json:"allocationMethod"`
	Dimension        string                   `json:"dimension"`
	BudgetRef        *string                  `json:"budgetRef,omitempty"`
	SourceAmount     string                   `json:"sourceAmount"`
	AllocatedAmount  string                   `json:"allocatedAmount"`
	RemainingAmount  string                   `json:"remainingAmount"`
	UtilizedAmount   string                   `json:"utilizedAmount"`
	UtilizationPct   string                   `json:"utilizationPct"`
	FiscalYear       *int32                   `json:"fiscalYear,omitempty"`
	PeriodType       string                   `json:"periodType"`
	StartDate        *string                  `json:"startDate,omitempty"`
	EndDate          *string                  `json:"endDate,omitempty"`
	Currency         string                   `json:"currency"`
	Locked           bool                     `json:"locked"`
	LockedBy         *string                  `json:"lockedBy,omitempty"`
	LockedAt         *string                  `json:"lockedAt,omitempty"`
	Attributes       json.RawMessage          `json:"attributes,omitempty" swaggertype:"object"`
	Version          int32                    `json:"version"`
	CreatedAt        string                   `json:"createdAt"`
	UpdatedAt        string                   `json:"updatedAt"`
	Lines            []AllocationLineResponse `json:"lines,omitempty"`
}

// AllocationLineResponse represents one allocation line in API responses
type AllocationLineResponse struct {
	ID                 string  `json:"id"`
	AllocationID       string  `json:"allocationId"`
	LineNumber         int32   `json:"lineNumber"`
	DimensionType      string  `json:"dimensionType"`
	DimensionID        string  `json:"dimensionId"`
	DimensionName      string  `json:"dimensionName"`
	SourceAmount       string  `json:"sourceAmount"`
	AllocatedAmount    string  `json:"allocatedAmount"`
	AllocatedPct       string  `json:"allocatedPct"`
	UtilizedAmount     string  `json:"utilizedAmount"`
	CommittedAmount    string  `json:"committedAmount"`
	RemainingAmount    string  `json:"remainingAmount"`
	UtilizationPct     string  `json:"utilizationPct"`
	VarianceAmount     string  `json:"varianceAmount"`
	VariancePct        string  `json:"variancePct"`
	PriorYearAmount    *string `json:"priorYearAmount,omitempty"`
	PriorYearGrowthPct *string `json:"priorYearGrowthPct,omitempty"`
	UtilizationTracked bool    `json:"utilizationTracked"`
	Status             string  `json:"status"`
	Notes              *string `json:"notes,omitempty"`
	UpdatedAt          string  `json:"updatedAt"`
}

// PaginatedAllocationsResponse is the list response
type PaginatedAllocationsResponse struct {
	Data       []AllocationResponse `json:"data"`
	Page       int32                `json:"page"`
	PageSize   int32                `json:"pageSize"`
	TotalItems int64                `json:"totalItems"`
	TotalPages int32                `json:"totalPages"`
}

// DistributionSummaryResponse describes the outcome of a distribute call
type DistributionSummaryResponse struct {
	Method          string `json:"method"`
	EffectiveMethod string `json:"effectiveMethod"`
	Dimension       string `json:"dimension"`
	SourceAmount    string `json:"sourceAmount"`
	TotalAllocated  string `json:"totalAllocated"`
	Remaining       string `json:"remaining"`
	EntityCount     int    `json:"entityCount"`
}

// DistributionResponse is returned by POST /allocations/:id/distribute
type DistributionResponse struct {
	Allocation   AllocationResponse          `json:"allocation"`
	Distribution DistributionSummaryResponse `json:"distribution"`
}

// LineUpdateResponse is returned by PUT /allocations/:id/lines/:lineId
type LineUpdateResponse struct {
	Line       AllocationLineResponse `json:"line"`
	Allocation AllocationResponse     `json:"allocation"`
}

// RefreshResponse is returned by POST /allocations/:id/refresh-utilization
type RefreshResponse struct {
	Allocation     AllocationResponse       `json:"allocation"`
	Lines          []AllocationLineResponse `json:"lines"`
	TrackedLines   int                      `json:"trackedLines"`
	UntrackedLines int                      `json:"untrackedLines"`
}

// SummaryResponse holds tenant-wide allocation counters
type SummaryResponse struct {
	TotalAllocations int64            `json:"totalAllocations"`
	LockedCount      int64            `json:"lockedCount"`
	ByStatus         map[string]int64 `json:"byStatus"`
	TotalSource      string           `json:"totalSource"`
	TotalAllocated   string           `json:"totalAllocated"`
	TotalUtilized    string           `json:"totalUtilized"`
	TotalRemaining   string           `json:"totalRemaining"`
	UtilizationPct   string           `json:"utilizationPct"`
}

// WaterfallLineResponse is one allocation line within a waterfall entry
type WaterfallLineResponse struct {
	AllocationID    string `json:"allocationId"`
	AllocationName  string `json:"allocationName"`
	LineID          string `json:"lineId"`
	DimensionType   string `json:"dimensionType"`
	DimensionID     string `json:"dimensionId"`
	DimensionName   string `json:"dimensionName"`
	AllocatedAmount string `json:"allocatedAmount"`
	UtilizedAmount  string `json:"utilizedAmount"`
	RemainingAmount string `json:"remainingAmount"`
	UtilizationPct  string `json:"utilizationPct"`
}

// WaterfallEntryResponse is one budget with its allocation lines
type WaterfallEntryResponse struct {
	BudgetID       string                  `json:"budgetId"`
	BudgetName     string                  `json:"budgetName"`
	FiscalYear     *int32                  `json:"fiscalYear,omitempty"`
	TotalBudget    string                  `json:"totalBudget"`
	BudgetUtilized string                  `json:"budgetUtilized"`
	TotalSpend     string                  `json:"totalSpend"`
	TotalAllocated string                  `json:"totalAllocated"`
	Allocations    []WaterfallLineResponse `json:"allocations"`
}

// WaterfallExportResponse links to an uploaded waterfall workbook
type WaterfallExportResponse struct {
	FileName  string `json:"fileName"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func moneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func timestampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toAllocationResponse(a *domain.BudgetAllocation) AllocationResponse {
	resp := AllocationResponse{
		ID:               a.ID.String(),
		Name:             a.Name,
		Description:      a.Description,
		Notes:            a.Notes,
		Status:           string(a.Status),
		AllocationMethod: string(a.AllocationMethod),
		Dimension:        string(a.Dimension),
		SourceAmount:     money(a.SourceAmount),
		AllocatedAmount:  money(a.AllocatedAmount),
		RemainingAmount:  money(a.RemainingAmount),
		UtilizedAmount:   money(a.UtilizedAmount),
		UtilizationPct:   money(a.UtilizationPct),
		FiscalYear:       a.FiscalYear,
		PeriodType:       string(a.PeriodType),
		StartDate:        datePtr(a.StartDate),
		EndDate:          datePtr(a.EndDate),
		Currency:         a.Currency,
		Locked:           a.Locked,
		LockedBy:         a.LockedBy,
		LockedAt:         timestampPtr(a.LockedAt),
		Attributes:       a.Attributes,
		Version:          a.Version,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        a.UpdatedAt.Format(time.RFC3339),
	}
	if a.BudgetRef != nil {
		ref := a.BudgetRef.String()
		resp.BudgetRef = &ref
	}
	if len(a.Lines) > 0 {
		resp.Lines = toLineResponses(a.Lines)
	}
	return resp
}

func toLineResponse(l *domain.BudgetAllocationLine) AllocationLineResponse {
	return AllocationLineResponse{
		ID:                 l.ID.String(),
		AllocationID:       l.AllocationID.String(),
		LineNumber:         l.LineNumber,
		DimensionType:      string(l.DimensionType),
		DimensionID:        l.DimensionID,
		DimensionName:      l.DimensionName,
		SourceAmount:       money(l.SourceAmount),
		AllocatedAmount:    money(l.AllocatedAmount),
		AllocatedPct:       money(l.AllocatedPct),
		UtilizedAmount:     money(l.UtilizedAmount),
		CommittedAmount:    money(l.CommittedAmount),
		RemainingAmount:    money(l.RemainingAmount),
		UtilizationPct:     money(l.UtilizationPct),
		VarianceAmount:     money(l.VarianceAmount),
		VariancePct:        money(l.VariancePct),
		PriorYearAmount:    moneyPtr(l.PriorYearAmount),
		PriorYearGrowthPct: moneyPtr(l.PriorYearGrowthPct),
		UtilizationTracked: l.UtilizationTracked,
		Status:             string(l.Status),
		Notes:              l.Notes,
		UpdatedAt:          l.UpdatedAt.Format(time.RFC3339),
	}
}

func toLineResponses(lines []*domain.BudgetAllocationLine) []AllocationLineResponse {
	out := make([]AllocationLineResponse, len(lines))
	for i, l := range lines {
		out[i] = toLineResponse(l)
	}
	return out
}

func toDistributionResponse(r *service.DistributionResult) DistributionResponse {
	d := r.Distribution
	return DistributionResponse{
		Allocation: toAllocationResponse(r.Allocation),
		Distribution: DistributionSummaryResponse{
			Method:          string(d.Method),
			EffectiveMethod: string(d.EffectiveMethod),
			Dimension:       string(d.Dimension),
			SourceAmount:    money(d.SourceAmount),
			TotalAllocated:  money(d.TotalAllocated),
			Remaining:       money(d.Remaining),
			EntityCount:     d.EntityCount,
		},
	}
}

func toSummaryResponse(s *domain.AllocationSummary) SummaryResponse {
	byStatus := make(map[string]int64, len(domain.AllocationStatuses))
	for _, status := range domain.AllocationStatuses {
		byStatus[string(status)] = s.ByStatus[status]
	}
	return SummaryResponse{
		TotalAllocations: s.TotalAllocations,
		LockedCount:      s.LockedCount,
		ByStatus:         byStatus,
		TotalSource:      money(s.TotalSource),
		TotalAllocated:   money(s.TotalAllocated),
		TotalUtilized:    money(s.TotalUtilized),
		TotalRemaining:   money(s.TotalRemaining),
		UtilizationPct:   money(s.UtilizationPct),
	}
}

func toWaterfallResponse(entries []*service.WaterfallEntry) []WaterfallEntryResponse {
	out := make([]WaterfallEntryResponse, 0, len(entries))
	for _, e := range entries {
		lines := make([]WaterfallLineResponse, 0, len(e.Allocations))
		for _, l := range e.Allocations {
			lines = append(lines, WaterfallLineResponse{
				AllocationID:    l.AllocationID.String(),
				AllocationName:  l.AllocationName,
				LineID:          l.LineID.String(),
				DimensionType:   string(l.DimensionType),
				DimensionID:     l.DimensionID,
				DimensionName:   l.DimensionName,
				AllocatedAmount: money(l.AllocatedAmount),
				UtilizedAmount:  money(l.UtilizedAmount),
				RemainingAmount: money(l.RemainingAmount),
				UtilizationPct:  money(l.UtilizationPct),
			})
		}
		out = append(out, WaterfallEntryResponse{
			BudgetID:       e.BudgetID.String(),
			BudgetName:     e.BudgetName,
			FiscalYear:     e.FiscalYear,
			TotalBudget:    money(e.TotalBudget),
			BudgetUtilized: money(e.BudgetUtilized),
			TotalSpend:     money(e.TotalSpend),
			TotalAllocated: money(e.TotalAllocated),
			Allocations:    lines,
		})
	}
	return out
}
