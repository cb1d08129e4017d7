package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tpm-platform/allocation-engine/internal/domain"
)

// entityQueries lists the entities of each dimension. Customers and products are direct;
// the remaining dimensions are the distinct attribute values of active rows.
var entityQueries = map[domain.Dimension]string{
	domain.DimensionCustomer: `SELECT id, name, status FROM customers WHERE tenant_id = $1`,
	domain.DimensionProduct:  `SELECT id, name, status FROM products WHERE tenant_id = $1`,
	domain.DimensionChannel:  distinctAttribute("customers", "channel"),
	domain.DimensionRegion:   distinctAttribute("customers", "region"),
	domain.DimensionCategory: distinctAttribute("products", "category"),
	domain.DimensionBrand:    distinctAttribute("products", "brand"),
}

func distinctAttribute(table, column string) string {
	return fmt.Sprintf(`
		SELECT DISTINCT %[2]s, %[2]s, 'active'::text FROM %[1]s
		WHERE tenant_id = $1 AND status = 'active' AND %[2]s IS NOT NULL AND %[2]s <> ''`, table, column)
}

// ReferenceRepository reads customers, products, budgets and tenant membership.
// It implements domain.ReferenceDirectory and domain.BudgetReader.
type ReferenceRepository struct {
	pool *pgxpool.Pool
}

// NewReferenceRepository creates a new ReferenceRepository
func NewReferenceRepository(pool *pgxpool.Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

// ListEntities returns every entity of a dimension, active or not
func (r *ReferenceRepository) ListEntities(ctx context.Context, tenantID int32, dimension domain.Dimension) ([]*domain.ReferenceEntity, error) {
	query, ok := entityQueries[dimension]
	if !ok {
		return nil, domain.ErrInvalidDimension
	}

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.ReferenceEntity, error) {
		var e domain.ReferenceEntity
		if err := row.Scan(&e.ID, &e.Name, &e.Status); err != nil {
			return nil, err
		}
		return &e, nil
	})
}

// GetBudget retrieves a budget by tenant and id
func (r *ReferenceRepository) GetBudget(ctx context.Context, tenantID int32, id uuid.UUID) (*domain.Budget, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, fiscal_year, total_amount, utilized_amount
		FROM budgets WHERE tenant_id = $1 AND id = $2`, tenantID, id)

	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return budget, nil
}

// ListBudgets returns budgets ordered by name
func (r *ReferenceRepository) ListBudgets(ctx context.Context, tenantID int32, filters *domain.BudgetFilters) ([]*domain.Budget, error) {
	if filters == nil {
		filters = &domain.BudgetFilters{}
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, name, fiscal_year, total_amount, utilized_amount
		FROM budgets
		WHERE tenant_id = $1
			AND ($2::int IS NULL OR fiscal_year = $2)
			AND ($3::uuid IS NULL OR id = $3)
		ORDER BY name, id`, tenantID, filters.FiscalYear, filters.BudgetID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Budget, error) {
		return scanBudget(row)
	})
}

// GetTenantByAuth0ID resolves the tenant a signed-in user belongs to
func (r *ReferenceRepository) GetTenantByAuth0ID(ctx context.Context, auth0ID string) (int32, error) {
	var tenantID int32
	err := r.pool.QueryRow(ctx, `SELECT tenant_id FROM tenant_members WHERE auth0_id = $1`, auth0ID).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrTenantRequired
		}
		return 0, err
	}
	return tenantID, nil
}

func scanBudget(row pgx.Row) (*domain.Budget, error) {
	var b domain.Budget
	var total, utilized pgtype.Numeric
	if err := row.Scan(&b.ID, &b.TenantID, &b.Name, &b.FiscalYear, &total, &utilized); err != nil {
		return nil, err
	}
	b.TotalAmount = pgNumericToDecimal(total)
	b.UtilizedAmount = pgNumericToDecimal(utilized)
	return &b, nil
}

// SpendLedgerRepository sums spend from the ledger table. It implements domain.SpendLedger.
type SpendLedgerRepository struct {
	pool *pgxpool.Pool
}

// NewSpendLedgerRepository creates a new SpendLedgerRepository
func NewSpendLedgerRepository(pool *pgxpool.Pool) *SpendLedgerRepository {
	return &SpendLedgerRepository{pool: pool}
}

// SumSpend sums the spend attributed to one entity through its dimension's ledger column
func (r *SpendLedgerRepository) SumSpend(ctx context.Context, tenantID int32, filter domain.SpendFilter) (decimal.Decimal, error) {
	column, ok := domain.SpendAttributionColumn[filter.Dimension]
	if !ok {
		return decimal.Zero, domain.ErrAttributionUnsupported
	}

	// column comes from a fixed whitelist
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(amount), 0) FROM spend_ledger
		WHERE tenant_id = $1 AND %s = $2 AND ($3::uuid IS NULL OR budget_id = $3)`, column)
	return r.sum(ctx, query, tenantID, filter.EntityID, filter.BudgetID)
}

// SumBudgetSpend sums every ledger row charged to budgetID
func (r *SpendLedgerRepository) SumBudgetSpend(ctx context.Context, tenantID int32, budgetID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM spend_ledger WHERE tenant_id = $1 AND budget_id = $2`, tenantID, budgetID)
}

func (r *SpendLedgerRepository) sum(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	var total pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(total), nil
}
