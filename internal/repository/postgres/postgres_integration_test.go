//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tpm-platform/allocation-engine/internal/domain"
)

const tenant int32 = 7

func setupDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("allocations"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(dsn))
	// A second run is a no-op
	require.NoError(t, RunMigrations(dsn))

	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedReference(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	budgetID := uuid.New()

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO tenant_members (auth0_id, tenant_id) VALUES ('auth0|ana', $1)`, []any{tenant}},
		{`INSERT INTO customers (tenant_id, id, name, status, channel, region) VALUES
			($1, 'c1', 'Acme Foods', 'active', 'grocery', 'north'),
			($1, 'c2', 'Beta Mart', 'active', 'grocery', 'south'),
			($1, 'c3', 'Corner Grocers', 'inactive', 'convenience', 'south')`, []any{tenant}},
		{`INSERT INTO customers (tenant_id, id, name) VALUES ($1, 'c1', 'Other tenant')`, []any{tenant + 1}},
		{`INSERT INTO budgets (id, tenant_id, name, fiscal_year, total_amount) VALUES ($1, $2, 'FY26 Trade', 2026, 9000)`, []any{budgetID, tenant}},
		{`INSERT INTO spend_ledger (tenant_id, customer_id, budget_id, amount) VALUES
			($1, 'c1', $2, 1200.50),
			($1, 'c1', NULL, 300),
			($1, 'c2', $2, 80)`, []any{tenant, budgetID}},
	}
	for _, s := range stmts {
		_, err := pool.Exec(ctx, s.sql, s.args...)
		require.NoError(t, err)
	}
	return budgetID
}

func TestIntegration_ReferenceRepository(t *testing.T) {
	pool := setupDatabase(t)
	budgetID := seedReference(t, pool)
	ctx := context.Background()
	refs := NewReferenceRepository(pool)
	ledger := NewSpendLedgerRepository(pool)

	customers, err := refs.ListEntities(ctx, tenant, domain.DimensionCustomer)
	require.NoError(t, err)
	assert.Len(t, customers, 3)

	channels, err := refs.ListEntities(ctx, tenant, domain.DimensionChannel)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "grocery", channels[0].ID)
	assert.Equal(t, domain.EntityStatusActive, channels[0].Status)

	budget, err := refs.GetBudget(ctx, tenant, budgetID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(9000).Equal(budget.TotalAmount))

	_, err = refs.GetBudget(ctx, tenant+1, budgetID)
	assert.ErrorIs(t, err, domain.ErrBudgetNotFound)

	fy := int32(2025)
	budgets, err := refs.ListBudgets(ctx, tenant, &domain.BudgetFilters{FiscalYear: &fy})
	require.NoError(t, err)
	assert.Empty(t, budgets)
	budgets, err = refs.ListBudgets(ctx, tenant, nil)
	require.NoError(t, err)
	assert.Len(t, budgets, 1)

	spend, err := ledger.SumSpend(ctx, tenant, domain.SpendFilter{Dimension: domain.DimensionCustomer, EntityID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "1500.50", spend.StringFixed(2))

	spend, err = ledger.SumSpend(ctx, tenant, domain.SpendFilter{Dimension: domain.DimensionCustomer, EntityID: "c1", BudgetID: &budgetID})
	require.NoError(t, err)
	assert.Equal(t, "1200.50", spend.StringFixed(2))

	_, err = ledger.SumSpend(ctx, tenant, domain.SpendFilter{Dimension: domain.DimensionRegion, EntityID: "north"})
	assert.ErrorIs(t, err, domain.ErrAttributionUnsupported)

	total, err := ledger.SumBudgetSpend(ctx, tenant, budgetID)
	require.NoError(t, err)
	assert.Equal(t, "1280.50", total.StringFixed(2))

	tenantID, err := refs.GetTenantByAuth0ID(ctx, "auth0|ana")
	require.NoError(t, err)
	assert.Equal(t, tenant, tenantID)
	_, err = refs.GetTenantByAuth0ID(ctx, "auth0|nobody")
	assert.Error(t, err)
}

func TestIntegration_BudgetAllocationRepository(t *testing.T) {
	pool := setupDatabase(t)
	budgetID := seedReference(t, pool)
	ctx := context.Background()
	repo := NewBudgetAllocationRepository(pool)

	source := decimal.NewFromInt(9000)
	created, err := repo.Create(ctx, &domain.BudgetAllocation{
		ID:               uuid.New(),
		TenantID:         tenant,
		Name:             "Q1 Trade Spend",
		Status:           domain.AllocationStatusDraft,
		AllocationMethod: domain.AllocationMethodEqualSplit,
		Dimension:        domain.DimensionCustomer,
		BudgetRef:        &budgetID,
		SourceAmount:     source,
		RemainingAmount:  source,
		PeriodType:       domain.PeriodTypeAnnual,
		Currency:         "USD",
		Attributes:       []byte(`{"channel":"grocery"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), created.Version)
	assert.JSONEq(t, `{"channel":"grocery"}`, string(created.Attributes))

	lines := make([]*domain.BudgetAllocationLine, 0, 3)
	for i, id := range []string{"c1", "c2", "c3"} {
		lines = append(lines, &domain.BudgetAllocationLine{
			ID:                 uuid.New(),
			TenantID:           tenant,
			AllocationID:       created.ID,
			LineNumber:         int32(i + 1),
			DimensionType:      domain.DimensionCustomer,
			DimensionID:        id,
			DimensionName:      id,
			SourceAmount:       source,
			AllocatedAmount:    decimal.NewFromInt(3000),
			AllocatedPct:       decimal.RequireFromString("33.33"),
			RemainingAmount:    decimal.NewFromInt(3000),
			UtilizationTracked: true,
			Status:             domain.LineStatusDraft,
			CreatedAt:          time.Now().UTC(),
			UpdatedAt:          time.Now().UTC(),
		})
	}
	created.AllocatedAmount = decimal.NewFromInt(9000)
	created.RemainingAmount = decimal.Zero
	distributed, err := repo.ReplaceLines(ctx, created, lines)
	require.NoError(t, err)
	assert.Equal(t, int32(2), distributed.Version)

	stored, err := repo.GetLines(ctx, tenant, created.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "c1", stored[0].DimensionID)
	assert.Nil(t, stored[0].PriorYearAmount)

	// Writing with the stale version 1 conflicts and leaves lines untouched
	_, err = repo.ReplaceLines(ctx, created, lines[:1])
	assert.ErrorIs(t, err, domain.ErrConflict)
	stored, err = repo.GetLines(ctx, tenant, created.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	target := stored[0]
	target.AllocatedAmount = decimal.NewFromInt(4000)
	target.RemainingAmount = decimal.NewFromInt(4000)
	distributed.AllocatedAmount = decimal.NewFromInt(10000)
	distributed.RemainingAmount = decimal.NewFromInt(-1000)
	updated, err := repo.UpdateLine(ctx, distributed, target)
	require.NoError(t, err)
	assert.Equal(t, "-1000.00", updated.RemainingAmount.StringFixed(2))

	waterfall, err := repo.GetLinesByBudget(ctx, tenant, budgetID)
	require.NoError(t, err)
	require.Len(t, waterfall, 3)
	assert.Equal(t, "4000.00", waterfall[0].AllocatedAmount.StringFixed(2))
	assert.Equal(t, "Q1 Trade Spend", waterfall[0].AllocationName)

	now := time.Now().UTC().Truncate(time.Second)
	actor := "ana@tpm.app"
	updated.Locked = true
	updated.LockedAt = &now
	updated.LockedBy = &actor
	updated.Status = domain.AllocationStatusLocked
	locked, err := repo.SetLockState(ctx, updated, domain.LineStatusLocked)
	require.NoError(t, err)
	assert.True(t, locked.Locked)
	require.NotNil(t, locked.LockedAt)
	assert.True(t, now.Equal(*locked.LockedAt))
	stored, err = repo.GetLines(ctx, tenant, created.ID)
	require.NoError(t, err)
	for _, l := range stored {
		assert.Equal(t, domain.LineStatusLocked, l.Status)
	}

	stored[0].UtilizedAmount = decimal.RequireFromString("1200.50")
	stored[0].UtilizationPct = decimal.RequireFromString("30.01")
	stored[0].RemainingAmount = decimal.RequireFromString("2799.50")
	locked.UtilizedAmount = decimal.RequireFromString("1200.50")
	refreshed, err := repo.SaveUtilization(ctx, locked, stored)
	require.NoError(t, err)
	assert.Equal(t, "1200.50", refreshed.UtilizedAmount.StringFixed(2))

	summary, err := repo.Summary(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalAllocations)
	assert.Equal(t, int64(1), summary.LockedCount)
	assert.Equal(t, int64(1), summary.ByStatus[domain.AllocationStatusLocked])
	assert.Equal(t, "10000.00", summary.TotalAllocated.StringFixed(2))

	status := domain.AllocationStatusLocked
	page, err := repo.List(ctx, tenant, &domain.AllocationFilters{Status: &status, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalItems)
	page, err = repo.List(ctx, tenant+1, &domain.AllocationFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	refs, err := repo.ListRefs(ctx, []domain.AllocationStatus{domain.AllocationStatusActive, domain.AllocationStatusLocked})
	require.NoError(t, err)
	assert.Equal(t, []domain.AllocationRef{{TenantID: tenant, ID: created.ID}}, refs)
	refs, err = repo.ListRefs(ctx, []domain.AllocationStatus{domain.AllocationStatusDraft})
	require.NoError(t, err)
	assert.Empty(t, refs)

	assert.ErrorIs(t, repo.Delete(ctx, created), domain.ErrConflict)
	require.NoError(t, repo.Delete(ctx, refreshed))
	_, err = repo.GetByID(ctx, tenant, created.ID)
	assert.ErrorIs(t, err, domain.ErrAllocationNotFound)
	stored, err = repo.GetLines(ctx, tenant, created.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.ErrorIs(t, repo.Delete(ctx, refreshed), domain.ErrAllocationNotFound)
}

func TestIntegration_PercentagesFarBeyondSource(t *testing.T) {
	pool := setupDatabase(t)
	ctx := context.Background()
	repo := NewBudgetAllocationRepository(pool)

	source := decimal.NewFromInt(30)
	created, err := repo.Create(ctx, &domain.BudgetAllocation{
		ID:               uuid.New(),
		TenantID:         tenant,
		Name:             "Launch Promo",
		Status:           domain.AllocationStatusActive,
		AllocationMethod: domain.AllocationMethodEqualSplit,
		Dimension:        domain.DimensionCustomer,
		SourceAmount:     source,
		RemainingAmount:  source,
		PeriodType:       domain.PeriodTypeAnnual,
		Currency:         "USD",
	})
	require.NoError(t, err)

	overridden := &domain.BudgetAllocationLine{
		ID:                 uuid.New(),
		TenantID:           tenant,
		AllocationID:       created.ID,
		LineNumber:         1,
		DimensionType:      domain.DimensionCustomer,
		DimensionID:        "c1",
		DimensionName:      "Acme Foods",
		SourceAmount:       source,
		AllocatedAmount:    decimal.NewFromInt(50000),
		AllocatedPct:       decimal.RequireFromString("166666.67"),
		RemainingAmount:    decimal.NewFromInt(50000),
		UtilizationTracked: true,
		Status:             domain.LineStatusActive,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	small := &domain.BudgetAllocationLine{
		ID:                 uuid.New(),
		TenantID:           tenant,
		AllocationID:       created.ID,
		LineNumber:         2,
		DimensionType:      domain.DimensionCustomer,
		DimensionID:        "c2",
		DimensionName:      "Beta Mart",
		SourceAmount:       source,
		AllocatedAmount:    decimal.NewFromInt(10),
		AllocatedPct:       decimal.RequireFromString("33.33"),
		RemainingAmount:    decimal.NewFromInt(10),
		UtilizationTracked: true,
		Status:             domain.LineStatusActive,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	created.AllocatedAmount = decimal.NewFromInt(50010)
	created.RemainingAmount = decimal.NewFromInt(-49980)
	distributed, err := repo.ReplaceLines(ctx, created, []*domain.BudgetAllocationLine{overridden, small})
	require.NoError(t, err)

	small.UtilizedAmount = decimal.NewFromInt(150000)
	small.RemainingAmount = decimal.Zero
	small.UtilizationPct = decimal.NewFromInt(1500000)
	small.VarianceAmount = decimal.NewFromInt(149990)
	small.VariancePct = decimal.NewFromInt(1499900)
	distributed.UtilizedAmount = decimal.NewFromInt(150000)
	distributed.UtilizationPct = decimal.NewFromInt(500000)
	refreshed, err := repo.SaveUtilization(ctx, distributed, []*domain.BudgetAllocationLine{overridden, small})
	require.NoError(t, err)
	assert.Equal(t, "500000.00", refreshed.UtilizationPct.StringFixed(2))

	stored, err := repo.GetLines(ctx, tenant, created.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "166666.67", stored[0].AllocatedPct.StringFixed(2))
	assert.Equal(t, "1500000.00", stored[1].UtilizationPct.StringFixed(2))
	assert.Equal(t, "1499900.00", stored[1].VariancePct.StringFixed(2))
}
