package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reference data is owned by other parts of the product. The engine only reads it.

type EntityStatus string

const (
	EntityStatusActive   EntityStatus = "active"
	EntityStatusInactive EntityStatus = "inactive"
)

// ReferenceEntity is a business entity a budget can be distributed across
type ReferenceEntity struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Status EntityStatus `json:"status"`
}

type Budget struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       int32           `json:"tenantId"`
	Name           string          `json:"name"`
	FiscalYear     *int32          `json:"fiscalYear,omitempty"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	UtilizedAmount decimal.Decimal `json:"utilizedAmount"`
}

type BudgetFilters struct {
	FiscalYear *int32
	BudgetID   *uuid.UUID
}

// SpendFilter selects ledger rows attributed to one dimension entity,
// optionally scoped to a single budget
type SpendFilter struct {
	Dimension Dimension
	EntityID  string
	BudgetID  *uuid.UUID
}

// SpendAttributionColumn maps a dimension to the spend ledger column that attributes
// spend to it. Dimensions missing from the map have no attribution.
var SpendAttributionColumn = map[Dimension]string{
	DimensionCustomer: "customer_id",
	DimensionProduct:  "product_id",
}

// HasSpendAttribution reports whether spend can be attributed to entities of d
func (d Dimension) HasSpendAttribution() bool {
	_, ok := SpendAttributionColumn[d]
	return ok
}

type ReferenceDirectory interface {
	ListEntities(ctx context.Context, tenantID int32, dimension Dimension) ([]*ReferenceEntity, error)
}

type BudgetReader interface {
	GetBudget(ctx context.Context, tenantID int32, id uuid.UUID) (*Budget, error)
	ListBudgets(ctx context.Context, tenantID int32, filters *BudgetFilters) ([]*Budget, error)
}

type SpendLedger interface {
	// SumSpend returns ErrAttributionUnsupported when filter.Dimension has no attribution
	SumSpend(ctx context.Context, tenantID int32, filter SpendFilter) (decimal.Decimal, error)
	SumBudgetSpend(ctx context.Context, tenantID int32, budgetID uuid.UUID) (decimal.Decimal, error)
}

// MutationGuard serializes mutating calls per allocation. Acquire never waits:
// if the key is already held it returns ErrConflict.
type MutationGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
