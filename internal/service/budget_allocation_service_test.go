package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/testutil"
)

const testTenant int32 = 1

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type allocationFixture struct {
	repo      *testutil.MockAllocationRepository
	directory *testutil.MockReferenceDirectory
	budgets   *testutil.MockBudgetReader
	ledger    *testutil.MockSpendLedger
	guard     *testutil.MockMutationGuard
	events    *testutil.RecordingPublisher
	svc       *BudgetAllocationService
}

func newAllocationFixture() *allocationFixture {
	f := &allocationFixture{
		repo:      testutil.NewMockAllocationRepository(),
		directory: testutil.NewMockReferenceDirectory(),
		budgets:   testutil.NewMockBudgetReader(),
		ledger:    testutil.NewMockSpendLedger(),
		guard:     testutil.NewMockMutationGuard(),
		events:    &testutil.RecordingPublisher{},
	}
	f.directory.AddEntities(testTenant, domain.DimensionCustomer,
		testutil.ActiveEntity("c3", "Corner Grocers"),
		testutil.ActiveEntity("c1", "Acme Foods"),
		testutil.ActiveEntity("c2", "Beta Mart"),
	)

	f.svc = NewBudgetAllocationService(f.repo, f.budgets, f.ledger, NewEntityResolver(f.directory), f.guard)
	f.svc.SetEventPublisher(f.events)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *allocationFixture) create(t *testing.T, source string, method domain.AllocationMethod) *domain.BudgetAllocation {
	t.Helper()
	amount := dec(source)
	allocation, err := f.svc.CreateAllocation(context.Background(), testTenant, CreateAllocationInput{
		Name:             "Q1 Trade Spend",
		AllocationMethod: method,
		Dimension:        domain.DimensionCustomer,
		SourceAmount:     &amount,
	})
	require.NoError(t, err)
	return allocation
}

func (f *allocationFixture) distribute(t *testing.T, id uuid.UUID, overrides map[string]decimal.Decimal) *DistributionResult {
	t.Helper()
	result, err := f.svc.Distribute(context.Background(), testTenant, id, overrides)
	require.NoError(t, err)
	return result
}

func lineAmounts(lines []*domain.BudgetAllocationLine) map[string]string {
	out := make(map[string]string, len(lines))
	for _, l := range lines {
		out[l.DimensionID] = l.AllocatedAmount.StringFixed(2)
	}
	return out
}

func assertSumInvariant(t *testing.T, allocation *domain.BudgetAllocation, lines []*domain.BudgetAllocationLine) {
	t.Helper()
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.AllocatedAmount)
	}
	assertAmount(t, total.Round(2).String(), allocation.AllocatedAmount, "allocated must equal the sum of lines")
	assertAmount(t, allocation.SourceAmount.Sub(allocation.AllocatedAmount).String(), allocation.RemainingAmount, "remaining must equal source minus allocated")
}

func TestCreateAllocation_Defaults(t *testing.T) {
	f := newAllocationFixture()

	allocation, err := f.svc.CreateAllocation(context.Background(), testTenant, CreateAllocationInput{
		Name:     "  Q1 Trade Spend  ",
		Currency: "eur",
	})
	require.NoError(t, err)

	assert.Equal(t, "Q1 Trade Spend", allocation.Name)
	assert.Equal(t, domain.AllocationStatusDraft, allocation.Status)
	assert.Equal(t, domain.AllocationMethodEqualSplit, allocation.AllocationMethod)
	assert.Equal(t, domain.DimensionCustomer, allocation.Dimension)
	assert.Equal(t, domain.PeriodTypeAnnual, allocation.PeriodType)
	assert.Equal(t, "EUR", allocation.Currency)
	assert.Equal(t, testTenant, allocation.TenantID)
	assert.Equal(t, int32(1), allocation.Version)
	assert.True(t, allocation.SourceAmount.IsZero())
	assert.False(t, allocation.Locked)
	assert.Nil(t, allocation.StartDate)

	assert.Equal(t, []string{"allocation.created"}, f.events.Types())
	assert.Equal(t, []int32{testTenant}, f.events.Tenant)
}

func TestCreateAllocation_SeedsFromBudget(t *testing.T) {
	f := newAllocationFixture()
	fiscalYear := int32(2026)
	budget := &domain.Budget{
		ID:          uuid.New(),
		TenantID:    testTenant,
		Name:        "FY26 Trade",
		FiscalYear:  &fiscalYear,
		TotalAmount: dec("50000.005"),
	}
	f.budgets.AddBudget(budget)

	allocation, err := f.svc.CreateAllocation(context.Background(), testTenant, CreateAllocationInput{
		Name:      "From budget",
		BudgetRef: &budget.ID,
	})
	require.NoError(t, err)

	assertAmount(t, "50000.01", allocation.SourceAmount)
	assertAmount(t, "50000.01", allocation.RemainingAmount)
	require.NotNil(t, allocation.FiscalYear)
	assert.Equal(t, int32(2026), *allocation.FiscalYear)
	require.NotNil(t, allocation.StartDate)
	require.NotNil(t, allocation.EndDate)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *allocation.StartDate)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), *allocation.EndDate)

	// An explicit source amount wins over the budget total
	explicit := dec("1200")
	allocation, err = f.svc.CreateAllocation(context.Background(), testTenant, CreateAllocationInput{
		Name:         "Explicit",
		BudgetRef:    &budget.ID,
		SourceAmount: &explicit,
	})
	require.NoError(t, err)
	assertAmount(t, "1200", allocation.SourceAmount)
}

func TestCreateAllocation_Validation(t *testing.T) {
	negative := dec("-1")
	unknownBudget := uuid.New()
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		tenant  int32
		input   CreateAllocationInput
		wantErr error
	}{
		{"missing tenant", 0, CreateAllocationInput{Name: "x"}, domain.ErrTenantRequired},
		{"blank name", testTenant, CreateAllocationInput{Name: "   "}, domain.ErrNameRequired},
		{"long name", testTenant, CreateAllocationInput{Name: strings.Repeat("n", domain.MaxNameLength+1)}, domain.ErrNameTooLong},
		{"unknown method", testTenant, CreateAllocationInput{Name: "x", AllocationMethod: "round_robin"}, domain.ErrInvalidMethod},
		{"unknown dimension", testTenant, CreateAllocationInput{Name: "x", Dimension: "store"}, domain.ErrInvalidDimension},
		{"unknown period", testTenant, CreateAllocationInput{Name: "x", PeriodType: "weekly"}, domain.ErrInvalidPeriodType},
		{"negative source", testTenant, CreateAllocationInput{Name: "x", SourceAmount: &negative}, domain.ErrInvalidAmount},
		{"bad currency", testTenant, CreateAllocationInput{Name: "x", Currency: "US1"}, domain.ErrInvalidCurrency},
		{"inverted dates", testTenant, CreateAllocationInput{Name: "x", StartDate: &start, EndDate: &end}, domain.ErrInvalidDateRange},
		{"array attributes", testTenant, CreateAllocationInput{Name: "x", Attributes: json.RawMessage(`[1,2]`)}, domain.ErrInvalidInput},
		{"unknown budget", testTenant, CreateAllocationInput{Name: "x", BudgetRef: &unknownBudget}, domain.ErrBudgetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAllocationFixture()
			_, err := f.svc.CreateAllocation(context.Background(), tt.tenant, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.repo.Calls["Create"])
			assert.Empty(t, f.events.Events)
		})
	}
}

func TestDistribute_EqualSplitAcrossCustomers(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)

	result := f.distribute(t, allocation.ID, nil)

	require.Len(t, result.Allocation.Lines, 3)
	for i, line := range result.Allocation.Lines {
		assertAmount(t, "3000", line.AllocatedAmount, "line %d", i)
		assertAmount(t, "3000", line.RemainingAmount, "line %d remaining", i)
		assert.Equal(t, int32(i+1), line.LineNumber)
		assert.Equal(t, domain.LineStatusDraft, line.Status)
		assert.True(t, line.UtilizationTracked)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{
		result.Allocation.Lines[0].DimensionID,
		result.Allocation.Lines[1].DimensionID,
		result.Allocation.Lines[2].DimensionID,
	})
	assertAmount(t, "9000", result.Allocation.AllocatedAmount)
	assertAmount(t, "0", result.Allocation.RemainingAmount)
	assert.Equal(t, 3, result.Distribution.EntityCount)
	assert.Equal(t, domain.AllocationMethodEqualSplit, result.Distribution.EffectiveMethod)

	stored, err := f.svc.GetAllocation(context.Background(), testTenant, allocation.ID)
	require.NoError(t, err)
	assertSumInvariant(t, stored, stored.Lines)
	assert.Equal(t, []string{"allocation.created", "allocation.distributed"}, f.events.Types())
}

func TestServiceDistribute_OverrideIsNotRenormalized(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)

	result := f.distribute(t, allocation.ID, map[string]decimal.Decimal{"c2": dec("5000")})

	assert.Equal(t, map[string]string{"c1": "3000.00", "c2": "5000.00", "c3": "3000.00"}, lineAmounts(result.Allocation.Lines))
	assertAmount(t, "11000", result.Allocation.AllocatedAmount)
	assertAmount(t, "-2000", result.Allocation.RemainingAmount)
	assertSumInvariant(t, result.Allocation, result.Allocation.Lines)
}

func TestDistribute_ProportionalUsesPriorSpend(t *testing.T) {
	f := newAllocationFixture()
	f.directory.Entities[testTenant][domain.DimensionCustomer] = []*domain.ReferenceEntity{
		testutil.ActiveEntity("a", "Alpha"),
		testutil.ActiveEntity("b", "Bravo"),
	}
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "a", Amount: dec("800")})
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "b", Amount: dec("200")})
	f.ledger.AddSpend(testutil.SpendRow{TenantID: 2, CustomerID: "b", Amount: dec("99999")})

	allocation := f.create(t, "1000", domain.AllocationMethodProportional)
	result := f.distribute(t, allocation.ID, nil)

	assert.Equal(t, map[string]string{"a": "800.00", "b": "200.00"}, lineAmounts(result.Allocation.Lines))
	require.NotNil(t, result.Allocation.Lines[0].PriorYearAmount)
	assertAmount(t, "800", *result.Allocation.Lines[0].PriorYearAmount)
	assertAmount(t, "1000", result.Allocation.AllocatedAmount)
}

func TestServiceDistribute_ProportionalWithoutHistoryMatchesEqualSplit(t *testing.T) {
	proportional := newAllocationFixture()
	equal := newAllocationFixture()

	p := proportional.distribute(t, proportional.create(t, "1000", domain.AllocationMethodProportional).ID, nil)
	e := equal.distribute(t, equal.create(t, "1000", domain.AllocationMethodEqualSplit).ID, nil)

	assert.Equal(t, lineAmounts(e.Allocation.Lines), lineAmounts(p.Allocation.Lines))
}

func TestDistribute_TwiceYieldsSameResult(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "1000", domain.AllocationMethodEqualSplit)

	first := f.distribute(t, allocation.ID, nil)
	second := f.distribute(t, allocation.ID, nil)

	assert.Equal(t, lineAmounts(first.Allocation.Lines), lineAmounts(second.Allocation.Lines))
	assert.Len(t, f.repo.StoredLines(allocation.ID), 3)
	assert.True(t, first.Allocation.AllocatedAmount.Equal(second.Allocation.AllocatedAmount))
	assert.True(t, first.Allocation.RemainingAmount.Equal(second.Allocation.RemainingAmount))
	assert.Equal(t, first.Allocation.Version+1, second.Allocation.Version)
}

func TestDistribute_ResetsUtilization(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "900", domain.AllocationMethodEqualSplit)
	f.distribute(t, allocation.ID, nil)

	stored, err := f.repo.GetByID(context.Background(), testTenant, allocation.ID)
	require.NoError(t, err)
	stored.UtilizedAmount = dec("120")
	stored.UtilizationPct = dec("13.33")
	_, err = f.repo.SaveUtilization(context.Background(), stored, nil)
	require.NoError(t, err)

	result := f.distribute(t, allocation.ID, nil)
	assert.True(t, result.Allocation.UtilizedAmount.IsZero())
	assert.True(t, result.Allocation.UtilizationPct.IsZero())
}

func TestDistribute_MethodNotImplemented(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodTopDown)

	_, err := f.svc.Distribute(context.Background(), testTenant, allocation.ID, nil)
	assert.ErrorIs(t, err, domain.ErrMethodNotImplemented)
	assert.Empty(t, f.repo.StoredLines(allocation.ID))

	f.svc.SetLegacyMethodFallback(true)
	result := f.distribute(t, allocation.ID, nil)
	assert.Equal(t, domain.AllocationMethodTopDown, result.Distribution.Method)
	assert.Equal(t, domain.AllocationMethodEqualSplit, result.Distribution.EffectiveMethod)
	assertAmount(t, "9000", result.Allocation.AllocatedAmount)
}

func TestDistribute_NoEntitiesKeepsPriorLines(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)
	f.distribute(t, allocation.ID, nil)

	dimension := domain.DimensionBrand
	_, err := f.svc.UpdateAllocation(context.Background(), testTenant, allocation.ID, UpdateAllocationInput{Dimension: &dimension})
	require.NoError(t, err)

	_, err = f.svc.Distribute(context.Background(), testTenant, allocation.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNoEntitiesFound)
	assert.Len(t, f.repo.StoredLines(allocation.ID), 3)
}

func TestDistribute_ConcurrentMutationRejected(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)
	f.guard.Held[MutationKey(testTenant, allocation.ID)] = true

	_, err := f.svc.Distribute(context.Background(), testTenant, allocation.ID, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Zero(t, f.repo.Calls["ReplaceLines"])
	assert.Equal(t, []string{"allocation.created"}, f.events.Types())
}

func TestDistribute_StaleVersionConflicts(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)

	// Another writer commits between load and replace
	f.repo.ReplaceLinesFn = func(a *domain.BudgetAllocation, lines []*domain.BudgetAllocationLine) (*domain.BudgetAllocation, error) {
		f.repo.ReplaceLinesFn = nil
		current, err := f.repo.GetByID(context.Background(), a.TenantID, a.ID)
		require.NoError(t, err)
		current.Name = "Renamed elsewhere"
		_, err = f.repo.Update(context.Background(), current)
		require.NoError(t, err)
		return f.repo.ReplaceLines(context.Background(), a, lines)
	}

	_, err := f.svc.Distribute(context.Background(), testTenant, allocation.ID, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, f.repo.StoredLines(allocation.ID))

	stored, err := f.repo.GetByID(context.Background(), testTenant, allocation.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed elsewhere", stored.Name)
	assert.True(t, stored.AllocatedAmount.IsZero())
}

func TestUpdateLine_ResumsParent(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)
	result := f.distribute(t, allocation.ID, nil)
	target := result.Allocation.Lines[0]

	notes := "Key account uplift"
	line, parent, err := f.svc.UpdateLine(context.Background(), testTenant, allocation.ID, target.ID, dec("4000"), &notes)
	require.NoError(t, err)

	assertAmount(t, "4000", line.AllocatedAmount)
	assertAmount(t, "4000", line.RemainingAmount)
	assertAmount(t, "44.44", line.AllocatedPct)
	require.NotNil(t, line.Notes)
	assert.Equal(t, notes, *line.Notes)
	assertAmount(t, "10000", parent.AllocatedAmount)
	assertAmount(t, "-1000", parent.RemainingAmount)

	stored, err := f.svc.GetAllocation(context.Background(), testTenant, allocation.ID)
	require.NoError(t, err)
	assertSumInvariant(t, stored, stored.Lines)
	assert.Equal(t, "allocation_line.updated", f.events.Types()[len(f.events.Events)-1])
}

func TestUpdateLine_Errors(t *testing.T) {
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)
	result := f.distribute(t, allocation.ID, nil)

	_, _, err := f.svc.UpdateLine(context.Background(), testTenant, allocation.ID, result.Allocation.Lines[0].ID, dec("-5"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, _, err = f.svc.UpdateLine(context.Background(), testTenant, allocation.ID, uuid.New(), dec("5"), nil)
	assert.ErrorIs(t, err, domain.ErrAllocationLineNotFound)

	_, _, err = f.svc.UpdateLine(context.Background(), 2, allocation.ID, result.Allocation.Lines[0].ID, dec("5"), nil)
	assert.ErrorIs(t, err, domain.ErrAllocationNotFound)
}

func TestLockedAllocationRejectsMutations(t *testing.T) {
	ctx := context.Background()
	name := "Renamed"

	tests := []struct {
		name string
		call func(f *allocationFixture, a *domain.BudgetAllocation, lineID uuid.UUID) error
	}{
		{"update", func(f *allocationFixture, a *domain.BudgetAllocation, _ uuid.UUID) error {
			_, err := f.svc.UpdateAllocation(ctx, testTenant, a.ID, UpdateAllocationInput{Name: &name})
			return err
		}},
		{"distribute", func(f *allocationFixture, a *domain.BudgetAllocation, _ uuid.UUID) error {
			_, err := f.svc.Distribute(ctx, testTenant, a.ID, map[string]decimal.Decimal{"c1": dec("1")})
			return err
		}},
		{"update line", func(f *allocationFixture, a *domain.BudgetAllocation, lineID uuid.UUID) error {
			_, _, err := f.svc.UpdateLine(ctx, testTenant, a.ID, lineID, dec("1"), nil)
			return err
		}},
		{"delete", func(f *allocationFixture, a *domain.BudgetAllocation, _ uuid.UUID) error {
			return f.svc.DeleteAllocation(ctx, testTenant, a.ID)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAllocationFixture()
			allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)
			result := f.distribute(t, allocation.ID, nil)
			_, err := f.svc.Lock(ctx, testTenant, allocation.ID, "ana@tpm.app")
			require.NoError(t, err)

			before, err := f.svc.GetAllocation(ctx, testTenant, allocation.ID)
			require.NoError(t, err)
			eventCount := len(f.events.Events)

			err = tt.call(f, allocation, result.Allocation.Lines[0].ID)
			assert.ErrorIs(t, err, domain.ErrAllocationLocked)

			after, err := f.svc.GetAllocation(ctx, testTenant, allocation.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			assert.Len(t, f.events.Events, eventCount)
		})
	}
}

func TestLockUnlock_Cascade(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)
	f.distribute(t, allocation.ID, nil)

	locked, err := f.svc.Lock(ctx, testTenant, allocation.ID, " ana@tpm.app ")
	require.NoError(t, err)
	assert.True(t, locked.Locked)
	assert.Equal(t, domain.AllocationStatusLocked, locked.Status)
	require.NotNil(t, locked.LockedBy)
	assert.Equal(t, "ana@tpm.app", *locked.LockedBy)
	require.NotNil(t, locked.LockedAt)
	assert.Equal(t, fixedNow, *locked.LockedAt)
	for _, l := range f.repo.StoredLines(allocation.ID) {
		assert.Equal(t, domain.LineStatusLocked, l.Status)
	}

	// Locking again changes nothing
	again, err := f.svc.Lock(ctx, testTenant, allocation.ID, "bo@tpm.app")
	require.NoError(t, err)
	assert.Equal(t, "ana@tpm.app", *again.LockedBy)
	assert.Equal(t, 1, f.repo.Calls["SetLockState"])

	unlocked, err := f.svc.Unlock(ctx, testTenant, allocation.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.Locked)
	assert.Nil(t, unlocked.LockedBy)
	assert.Nil(t, unlocked.LockedAt)
	assert.Equal(t, domain.AllocationStatusActive, unlocked.Status)
	for _, l := range f.repo.StoredLines(allocation.ID) {
		assert.Equal(t, domain.LineStatusActive, l.Status)
	}

	_, err = f.svc.Unlock(ctx, testTenant, allocation.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.Calls["SetLockState"])

	assert.Equal(t, []string{
		"allocation.created",
		"allocation.distributed",
		"allocation.locked",
		"allocation.unlocked",
	}, f.events.Types())

	// Edits are allowed again once unlocked
	_, err = f.svc.Distribute(ctx, testTenant, allocation.ID, nil)
	require.NoError(t, err)
	for _, l := range f.repo.StoredLines(allocation.ID) {
		assert.Equal(t, domain.LineStatusActive, l.Status)
	}
}

func TestUpdateAllocation(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)
	f.distribute(t, allocation.ID, nil)

	name := "Q1 Trade Spend (rev)"
	source := dec("10000")
	status := domain.AllocationStatusApproved
	updated, err := f.svc.UpdateAllocation(ctx, testTenant, allocation.ID, UpdateAllocationInput{
		Name:         &name,
		SourceAmount: &source,
		Status:       &status,
	})
	require.NoError(t, err)

	assert.Equal(t, name, updated.Name)
	assert.Equal(t, domain.AllocationStatusApproved, updated.Status)
	assertAmount(t, "10000", updated.SourceAmount)
	assertAmount(t, "9000", updated.AllocatedAmount)
	assertAmount(t, "1000", updated.RemainingAmount)
	assert.Len(t, f.repo.StoredLines(allocation.ID), 3)
}

func TestUpdateAllocation_Rejections(t *testing.T) {
	ctx := context.Background()
	locked := domain.AllocationStatusLocked
	bogus := domain.AllocationStatus("frozen")
	unknownBudget := uuid.New()
	negative := dec("-10")

	tests := []struct {
		name    string
		input   UpdateAllocationInput
		wantErr error
	}{
		{"locked status", UpdateAllocationInput{Status: &locked}, domain.ErrInvalidStatus},
		{"unknown status", UpdateAllocationInput{Status: &bogus}, domain.ErrInvalidStatus},
		{"unknown budget", UpdateAllocationInput{BudgetRef: &unknownBudget}, domain.ErrBudgetNotFound},
		{"negative source", UpdateAllocationInput{SourceAmount: &negative}, domain.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAllocationFixture()
			allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)

			_, err := f.svc.UpdateAllocation(ctx, testTenant, allocation.ID, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.repo.Calls["Update"])
		})
	}
}

func TestDeleteAllocation(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)
	f.distribute(t, allocation.ID, nil)

	require.NoError(t, f.svc.DeleteAllocation(ctx, testTenant, allocation.ID))

	_, err := f.svc.GetAllocation(ctx, testTenant, allocation.ID)
	assert.ErrorIs(t, err, domain.ErrAllocationNotFound)
	assert.Empty(t, f.repo.StoredLines(allocation.ID))
	assert.Equal(t, "allocation.deleted", f.events.Types()[len(f.events.Events)-1])

	assert.ErrorIs(t, f.svc.DeleteAllocation(ctx, testTenant, allocation.ID), domain.ErrAllocationNotFound)
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	allocation := f.create(t, "9000", domain.AllocationMethodEqualSplit)

	_, err := f.svc.GetAllocation(ctx, 2, allocation.ID)
	assert.ErrorIs(t, err, domain.ErrAllocationNotFound)

	_, err = f.svc.Distribute(ctx, 2, allocation.ID, nil)
	assert.ErrorIs(t, err, domain.ErrAllocationNotFound)

	page, err := f.svc.ListAllocations(ctx, 2, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	_, err = f.svc.GetAllocation(ctx, 0, allocation.ID)
	assert.ErrorIs(t, err, domain.ErrTenantRequired)
}

func TestListAllocations_PagingAndFilters(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	for i := 0; i < 3; i++ {
		f.create(t, "100", domain.AllocationMethodEqualSplit)
	}

	filters := &domain.AllocationFilters{PageSize: 1000}
	page, err := f.svc.ListAllocations(ctx, testTenant, filters)
	require.NoError(t, err)
	assert.Equal(t, int32(1), page.Page)
	assert.Equal(t, int32(domain.MaxPageSize), page.PageSize)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Len(t, page.Data, 3)

	page, err = f.svc.ListAllocations(ctx, testTenant, &domain.AllocationFilters{PageSize: 2, Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int32(2), page.TotalPages)

	bogus := domain.AllocationStatus("frozen")
	_, err = f.svc.ListAllocations(ctx, testTenant, &domain.AllocationFilters{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	dimension := domain.Dimension("store")
	_, err = f.svc.ListAllocations(ctx, testTenant, &domain.AllocationFilters{Dimension: &dimension})
	assert.ErrorIs(t, err, domain.ErrInvalidDimension)
}

func TestGetSummary(t *testing.T) {
	f := newAllocationFixture()
	f.repo.SummaryFn = func(tenantID int32) (*domain.AllocationSummary, error) {
		return &domain.AllocationSummary{
			TotalAllocations: 2,
			TotalSource:      dec("3000"),
			TotalUtilized:    dec("1000"),
		}, nil
	}

	summary, err := f.svc.GetSummary(context.Background(), testTenant)
	require.NoError(t, err)
	assertAmount(t, "33.33", summary.UtilizationPct)
}

func TestOptions(t *testing.T) {
	f := newAllocationFixture()

	opts := f.svc.Options()
	require.Len(t, opts.Methods, len(domain.AllocationMethods))
	implemented := map[domain.AllocationMethod]bool{}
	for _, m := range opts.Methods {
		implemented[m.Value] = m.Implemented
	}
	assert.True(t, implemented[domain.AllocationMethodEqualSplit])
	assert.True(t, implemented[domain.AllocationMethodProportional])
	assert.False(t, implemented[domain.AllocationMethodWeighted])
	assert.Equal(t, domain.PeriodTypes, opts.PeriodTypes)
	assert.Equal(t, domain.AllocationStatuses, opts.Statuses)
	assert.Equal(t, DimensionOption{Value: domain.DimensionCustomer, SpendAttribution: true}, opts.Dimensions[0])
	assert.Equal(t, DimensionOption{Value: domain.DimensionChannel, SpendAttribution: false}, opts.Dimensions[1])

	f.svc.SetLegacyMethodFallback(true)
	for _, m := range f.svc.Options().Methods {
		assert.True(t, m.Implemented, string(m.Value))
	}
}
