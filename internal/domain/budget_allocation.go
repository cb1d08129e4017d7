package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AllocationStatus string

const (
	AllocationStatusDraft           AllocationStatus = "draft"
	AllocationStatusPendingApproval AllocationStatus = "pending_approval"
	AllocationStatusApproved        AllocationStatus = "approved"
	AllocationStatusActive          AllocationStatus = "active"
	AllocationStatusLocked          AllocationStatus = "locked"
	AllocationStatusArchived        AllocationStatus = "archived"
)

// AllocationStatuses lists every status in display order
var AllocationStatuses = []AllocationStatus{
	AllocationStatusDraft,
	AllocationStatusPendingApproval,
	AllocationStatusApproved,
	AllocationStatusActive,
	AllocationStatusLocked,
	AllocationStatusArchived,
}

func (s AllocationStatus) IsValid() bool {
	for _, v := range AllocationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type AllocationMethod string

const (
	AllocationMethodTopDown      AllocationMethod = "top_down"
	AllocationMethodBottomUp     AllocationMethod = "bottom_up"
	AllocationMethodHybrid       AllocationMethod = "hybrid"
	AllocationMethodEqualSplit   AllocationMethod = "equal_split"
	AllocationMethodProportional AllocationMethod = "proportional"
	AllocationMethodWeighted     AllocationMethod = "weighted"
)

var AllocationMethods = []AllocationMethod{
	AllocationMethodTopDown,
	AllocationMethodBottomUp,
	AllocationMethodHybrid,
	AllocationMethodEqualSplit,
	AllocationMethodProportional,
	AllocationMethodWeighted,
}

func (m AllocationMethod) IsValid() bool {
	for _, v := range AllocationMethods {
		if m == v {
			return true
		}
	}
	return false
}

// IsImplemented reports whether the distribution strategy has a real algorithm for m
func (m AllocationMethod) IsImplemented() bool {
	return m == AllocationMethodEqualSplit || m == AllocationMethodProportional
}

type Dimension string

const (
	DimensionCustomer Dimension = "customer"
	DimensionChannel  Dimension = "channel"
	DimensionProduct  Dimension = "product"
	DimensionCategory Dimension = "category"
	DimensionRegion   Dimension = "region"
	DimensionBrand    Dimension = "brand"
)

var Dimensions = []Dimension{
	DimensionCustomer,
	DimensionChannel,
	DimensionProduct,
	DimensionCategory,
	DimensionRegion,
	DimensionBrand,
}

func (d Dimension) IsValid() bool {
	for _, v := range Dimensions {
		if d == v {
			return true
		}
	}
	return false
}

type PeriodType string

const (
	PeriodTypeAnnual    PeriodType = "annual"
	PeriodTypeQuarterly PeriodType = "quarterly"
	PeriodTypeMonthly   PeriodType = "monthly"
)

var PeriodTypes = []PeriodType{PeriodTypeAnnual, PeriodTypeQuarterly, PeriodTypeMonthly}

func (p PeriodType) IsValid() bool {
	for _, v := range PeriodTypes {
		if p == v {
			return true
		}
	}
	return false
}

// LineStatus mirrors the lock state of the parent allocation
type LineStatus string

const (
	LineStatusDraft  LineStatus = "draft"
	LineStatusActive LineStatus = "active"
	LineStatusLocked LineStatus = "locked"
)

const (
	DefaultCurrency = "USD"
	MaxNameLength   = 255
)

// BudgetAllocation is the aggregate root distributing one source amount across a dimension.
// Version is bumped on every persisted write and used for optimistic concurrency.
type BudgetAllocation struct {
	ID               uuid.UUID        `json:"id"`
	TenantID         int32            `json:"tenantId"`
	Name             string           `json:"name"`
	Description      *string          `json:"description,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	Status           AllocationStatus `json:"status"`
	AllocationMethod AllocationMethod `json:"allocationMethod"`
	Dimension        Dimension        `json:"dimension"`
	BudgetRef        *uuid.UUID       `json:"budgetRef,omitempty"`
	SourceAmount     decimal.Decimal  `json:"sourceAmount"`
	AllocatedAmount  decimal.Decimal  `json:"allocatedAmount"`
	RemainingAmount  decimal.Decimal  `json:"remainingAmount"`
	UtilizedAmount   decimal.Decimal  `json:"utilizedAmount"`
	UtilizationPct   decimal.Decimal  `json:"utilizationPct"`
	FiscalYear       *int32           `json:"fiscalYear,omitempty"`
	PeriodType       PeriodType       `json:"periodType"`
	StartDate        *time.Time       `json:"startDate,omitempty"`
	EndDate          *time.Time       `json:"endDate,omitempty"`
	Currency         string           `json:"currency"`
	Locked           bool             `json:"locked"`
	LockedBy         *string          `json:"lockedBy,omitempty"`
	LockedAt         *time.Time       `json:"lockedAt,omitempty"`
	Attributes       json.RawMessage  `json:"attributes,omitempty"`
	Version          int32            `json:"version"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`

	Lines []*BudgetAllocationLine `json:"lines,omitempty"`
}

// BudgetAllocationLine is one dimension entity's share within an allocation
type BudgetAllocationLine struct {
	ID                 uuid.UUID        `json:"id"`
	TenantID           int32            `json:"tenantId"`
	AllocationID       uuid.UUID        `json:"allocationId"`
	LineNumber         int32            `json:"lineNumber"`
	DimensionType      Dimension        `json:"dimensionType"`
	DimensionID        string           `json:"dimensionId"`
	DimensionName      string           `json:"dimensionName"`
	SourceAmount       decimal.Decimal  `json:"sourceAmount"`
	AllocatedAmount    decimal.Decimal  `json:"allocatedAmount"`
	AllocatedPct       decimal.Decimal  `json:"allocatedPct"`
	UtilizedAmount     decimal.Decimal  `json:"utilizedAmount"`
	CommittedAmount    decimal.Decimal  `json:"committedAmount"`
	RemainingAmount    decimal.Decimal  `json:"remainingAmount"`
	UtilizationPct     decimal.Decimal  `json:"utilizationPct"`
	VarianceAmount     decimal.Decimal  `json:"varianceAmount"`
	VariancePct        decimal.Decimal  `json:"variancePct"`
	PriorYearAmount    *decimal.Decimal `json:"priorYearAmount,omitempty"`
	PriorYearGrowthPct *decimal.Decimal `json:"priorYearGrowthPct,omitempty"`
	UtilizationTracked bool             `json:"utilizationTracked"`
	Status             LineStatus       `json:"status"`
	Notes              *string          `json:"notes,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// AllocationFilters narrows List results; nil fields are ignored
type AllocationFilters struct {
	Status     *AllocationStatus
	BudgetRef  *uuid.UUID
	FiscalYear *int32
	Dimension  *Dimension
	Page       int32
	PageSize   int32
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginatedAllocations struct {
	Data       []*BudgetAllocation `json:"data"`
	Page       int32               `json:"page"`
	PageSize   int32               `json:"pageSize"`
	TotalItems int64               `json:"totalItems"`
	TotalPages int32               `json:"totalPages"`
}

// AllocationSummary holds tenant-wide counters
type AllocationSummary struct {
	TotalAllocations int64                      `json:"totalAllocations"`
	LockedCount      int64                      `json:"lockedCount"`
	ByStatus         map[AllocationStatus]int64 `json:"byStatus"`
	TotalSource      decimal.Decimal            `json:"totalSource"`
	TotalAllocated   decimal.Decimal            `json:"totalAllocated"`
	TotalUtilized    decimal.Decimal            `json:"totalUtilized"`
	TotalRemaining   decimal.Decimal            `json:"totalRemaining"`
	UtilizationPct   decimal.Decimal            `json:"utilizationPct"`
}

// WaterfallLine is an allocation line joined with its parent allocation, for budget rollups
type WaterfallLine struct {
	AllocationID    uuid.UUID       `json:"allocationId"`
	AllocationName  string          `json:"allocationName"`
	LineID          uuid.UUID       `json:"lineId"`
	DimensionType   Dimension       `json:"dimensionType"`
	DimensionID     string          `json:"dimensionId"`
	DimensionName   string          `json:"dimensionName"`
	AllocatedAmount decimal.Decimal `json:"allocatedAmount"`
	UtilizedAmount  decimal.Decimal `json:"utilizedAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	UtilizationPct  decimal.Decimal `json:"utilizationPct"`
}

// BudgetAllocationRepository persists the allocation aggregate.
// Every method that takes an allocation writes it only if its Version still matches
// the stored row, returning ErrConflict otherwise, and runs all of its statements in
// one transaction. The returned aggregate carries the new Version.
type BudgetAllocationRepository interface {
	Create(ctx context.Context, allocation *BudgetAllocation) (*BudgetAllocation, error)
	GetByID(ctx context.Context, tenantID int32, id uuid.UUID) (*BudgetAllocation, error)
	List(ctx context.Context, tenantID int32, filters *AllocationFilters) (*PaginatedAllocations, error)
	Update(ctx context.Context, allocation *BudgetAllocation) (*BudgetAllocation, error)
	Delete(ctx context.Context, allocation *BudgetAllocation) error

	GetLines(ctx context.Context, tenantID int32, allocationID uuid.UUID) ([]*BudgetAllocationLine, error)
	// ReplaceLines deletes every existing line, inserts lines and writes the parent totals
	ReplaceLines(ctx context.Context, allocation *BudgetAllocation, lines []*BudgetAllocationLine) (*BudgetAllocation, error)
	// UpdateLine writes one line and the re-summed parent totals
	UpdateLine(ctx context.Context, allocation *BudgetAllocation, line *BudgetAllocationLine) (*BudgetAllocation, error)
	// SetLockState writes the parent lock fields and cascades lineStatus to every line
	SetLockState(ctx context.Context, allocation *BudgetAllocation, lineStatus LineStatus) (*BudgetAllocation, error)
	// SaveUtilization writes the utilization fields of every line and the parent
	SaveUtilization(ctx context.Context, allocation *BudgetAllocation, lines []*BudgetAllocationLine) (*BudgetAllocation, error)

	Summary(ctx context.Context, tenantID int32) (*AllocationSummary, error)
	GetLinesByBudget(ctx context.Context, tenantID int32, budgetID uuid.UUID) ([]*WaterfallLine, error)

	// ListRefs spans every tenant; only background jobs call it
	ListRefs(ctx context.Context, statuses []AllocationStatus) ([]AllocationRef, error)
}

// AllocationRef identifies an allocation together with its tenant
type AllocationRef struct {
	TenantID int32
	ID       uuid.UUID
}
