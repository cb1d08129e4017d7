package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/testutil"
)

func newUtilizationService(f *allocationFixture) *UtilizationService {
	svc := NewUtilizationService(f.repo, f.ledger, f.guard)
	svc.SetEventPublisher(f.events)
	return svc
}

func linesByEntity(lines []*domain.BudgetAllocationLine) map[string]*domain.BudgetAllocationLine {
	out := make(map[string]*domain.BudgetAllocationLine, len(lines))
	for _, l := range lines {
		out[l.DimensionID] = l
	}
	return out
}

func TestRefresh_ComputesUtilizationAndVariance(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "900", domain.AllocationMethodEqualSplit)
	f.distribute(t, allocation.ID, nil)

	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "c1", Amount: dec("450")})
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "c2", Amount: dec("100.004")})
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "c2", Amount: dec("50")})
	f.ledger.AddSpend(testutil.SpendRow{TenantID: 2, CustomerID: "c3", Amount: dec("300")})

	result, err := newUtilizationService(f).Refresh(context.Background(), testTenant, allocation.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TrackedLines)
	assert.Zero(t, result.UntrackedLines)

	lines := linesByEntity(f.repo.StoredLines(allocation.ID))

	over := lines["c1"]
	assertAmount(t, "450", over.UtilizedAmount)
	assertAmount(t, "0", over.RemainingAmount)
	assertAmount(t, "150", over.UtilizationPct)
	assertAmount(t, "150", over.VarianceAmount)
	assertAmount(t, "50", over.VariancePct)

	under := lines["c2"]
	assertAmount(t, "150", under.UtilizedAmount)
	assertAmount(t, "150", under.RemainingAmount)
	assertAmount(t, "50", under.UtilizationPct)
	assertAmount(t, "-150", under.VarianceAmount)
	assertAmount(t, "-50", under.VariancePct)

	idle := lines["c3"]
	assertAmount(t, "0", idle.UtilizedAmount)
	assertAmount(t, "300", idle.RemainingAmount)
	assertAmount(t, "-100", idle.VariancePct)

	assertAmount(t, "600", result.Allocation.UtilizedAmount)
	assertAmount(t, "66.67", result.Allocation.UtilizationPct)
	assert.Equal(t, "allocation.refreshed", f.events.Types()[len(f.events.Events)-1])
}

func TestRefresh_ParentRemainingIsNotFloored(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "900", domain.AllocationMethodEqualSplit)
	f.distribute(t, allocation.ID, map[string]decimal.Decimal{"c1": dec("600")})
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "c1", Amount: dec("1000")})

	result, err := newUtilizationService(f).Refresh(context.Background(), testTenant, allocation.ID)
	require.NoError(t, err)

	assertAmount(t, "-300", result.Allocation.RemainingAmount)
	for _, l := range f.repo.StoredLines(allocation.ID) {
		assert.False(t, l.RemainingAmount.IsNegative(), "line %s remaining %s", l.DimensionID, l.RemainingAmount)
	}
}

func TestRefresh_UnattributedDimensionIsFlagged(t *testing.T) {
	f := newAllocationFixture()
	f.directory.AddEntities(testTenant, domain.DimensionChannel,
		testutil.ActiveEntity("grocery", "Grocery"),
		testutil.ActiveEntity("online", "Online"),
	)
	amount := dec("500")
	allocation, err := f.svc.CreateAllocation(context.Background(), testTenant, CreateAllocationInput{
		Name:         "Channel split",
		Dimension:    domain.DimensionChannel,
		SourceAmount: &amount,
	})
	require.NoError(t, err)
	distributed := f.distribute(t, allocation.ID, nil)
	for _, l := range distributed.Allocation.Lines {
		assert.False(t, l.UtilizationTracked)
	}

	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "grocery", Amount: dec("100")})

	result, err := newUtilizationService(f).Refresh(context.Background(), testTenant, allocation.ID)
	require.NoError(t, err)
	assert.Zero(t, result.TrackedLines)
	assert.Equal(t, 2, result.UntrackedLines)
	for _, l := range f.repo.StoredLines(allocation.ID) {
		assert.False(t, l.UtilizationTracked)
		assert.True(t, l.UtilizedAmount.IsZero())
	}
	assert.True(t, result.Allocation.UtilizedAmount.IsZero())
}

func TestRefresh_ScopedToBudget(t *testing.T) {
	f := newAllocationFixture()
	budget := &domain.Budget{ID: uuid.New(), TenantID: testTenant, Name: "FY26", TotalAmount: dec("900")}
	f.budgets.AddBudget(budget)
	allocation, err := f.svc.CreateAllocation(context.Background(), testTenant, CreateAllocationInput{Name: "Scoped", BudgetRef: &budget.ID})
	require.NoError(t, err)
	f.distribute(t, allocation.ID, nil)

	other := uuid.New()
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "c1", BudgetID: &budget.ID, Amount: dec("120")})
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "c1", BudgetID: &other, Amount: dec("500")})
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "c1", Amount: dec("70")})

	result, err := newUtilizationService(f).Refresh(context.Background(), testTenant, allocation.ID)
	require.NoError(t, err)
	assertAmount(t, "120", linesByEntity(result.Lines)["c1"].UtilizedAmount)
}

func TestRefresh_AllowedWhileLocked(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	allocation := f.create(t, "900", domain.AllocationMethodEqualSplit)
	f.distribute(t, allocation.ID, nil)
	_, err := f.svc.Lock(ctx, testTenant, allocation.ID, "ana@tpm.app")
	require.NoError(t, err)
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "c2", Amount: dec("30")})

	result, err := newUtilizationService(f).Refresh(ctx, testTenant, allocation.ID)
	require.NoError(t, err)
	assert.True(t, result.Allocation.Locked)
	assertAmount(t, "30", result.Allocation.UtilizedAmount)
	for _, l := range f.repo.StoredLines(allocation.ID) {
		assert.Equal(t, domain.LineStatusLocked, l.Status)
	}
}

func TestRefresh_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing tenant", func(t *testing.T) {
		f := newAllocationFixture()
		_, err := newUtilizationService(f).Refresh(ctx, 0, uuid.New())
		assert.ErrorIs(t, err, domain.ErrTenantRequired)
	})

	t.Run("unknown allocation", func(t *testing.T) {
		f := newAllocationFixture()
		_, err := newUtilizationService(f).Refresh(ctx, testTenant, uuid.New())
		assert.ErrorIs(t, err, domain.ErrAllocationNotFound)
	})

	t.Run("guard held", func(t *testing.T) {
		f := newAllocationFixture()
		allocation := f.create(t, "900", domain.AllocationMethodEqualSplit)
		f.guard.Held[MutationKey(testTenant, allocation.ID)] = true
		_, err := newUtilizationService(f).Refresh(ctx, testTenant, allocation.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Zero(t, f.repo.Calls["SaveUtilization"])
	})

	t.Run("ledger failure", func(t *testing.T) {
		f := newAllocationFixture()
		allocation := f.create(t, "900", domain.AllocationMethodEqualSplit)
		f.distribute(t, allocation.ID, nil)
		f.ledger.Err = errors.New("connection reset")

		_, err := newUtilizationService(f).Refresh(ctx, testTenant, allocation.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
		assert.Zero(t, f.repo.Calls["SaveUtilization"])
	})
}

func TestApplyUtilization_ZeroAllocated(t *testing.T) {
	line := &domain.BudgetAllocationLine{AllocatedAmount: decimal.Zero}
	ApplyUtilization(line, dec("25"))

	assertAmount(t, "25", line.UtilizedAmount)
	assertAmount(t, "0", line.RemainingAmount)
	assertAmount(t, "0", line.UtilizationPct)
	assertAmount(t, "25", line.VarianceAmount)
	assert.True(t, line.UtilizationTracked)
}
