package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/testutil"
)

// seedSweepable creates one locked, one active and one draft allocation
func seedSweepable(t *testing.T, f *allocationFixture) (locked, active, draft *domain.BudgetAllocation) {
	t.Helper()
	ctx := context.Background()

	locked = f.create(t, "900", domain.AllocationMethodEqualSplit)
	f.distribute(t, locked.ID, nil)
	_, err := f.svc.Lock(ctx, testTenant, locked.ID, "ana@tpm.app")
	require.NoError(t, err)

	active = f.create(t, "600", domain.AllocationMethodEqualSplit)
	f.distribute(t, active.ID, nil)
	_, err = f.svc.Lock(ctx, testTenant, active.ID, "ana@tpm.app")
	require.NoError(t, err)
	_, err = f.svc.Unlock(ctx, testTenant, active.ID)
	require.NoError(t, err)

	draft = f.create(t, "300", domain.AllocationMethodEqualSplit)
	f.distribute(t, draft.ID, nil)
	return locked, active, draft
}

func newTestWorker(f *allocationFixture) *UtilizationWorker {
	return NewUtilizationWorker(newUtilizationService(f), f.repo, zerolog.Nop(), 50*time.Millisecond)
}

func TestUtilizationWorker_DefaultInterval(t *testing.T) {
	f := newAllocationFixture()
	worker := NewUtilizationWorker(newUtilizationService(f), f.repo, zerolog.Nop(), 0)

	assert.Equal(t, 15*time.Minute, worker.interval)
	assert.False(t, worker.IsRunning())
}

func TestUtilizationWorker_SweepRefreshesActiveAndLocked(t *testing.T) {
	f := newAllocationFixture()
	locked, active, draft := seedSweepable(t, f)
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "c1", Amount: dec("120")})

	result := newTestWorker(f).Sweep(context.Background())
	assert.Equal(t, SweepResult{Refreshed: 2}, result)

	ctx := context.Background()
	for _, id := range []*domain.BudgetAllocation{locked, active} {
		stored, err := f.repo.GetByID(ctx, testTenant, id.ID)
		require.NoError(t, err)
		assertAmount(t, "120", stored.UtilizedAmount)
	}

	stored, err := f.repo.GetByID(ctx, testTenant, draft.ID)
	require.NoError(t, err)
	assertAmount(t, "0", stored.UtilizedAmount)
}

func TestUtilizationWorker_SweepSkipsGuardedAllocation(t *testing.T) {
	f := newAllocationFixture()
	_, active, _ := seedSweepable(t, f)
	f.guard.Held[MutationKey(testTenant, active.ID)] = true

	result := newTestWorker(f).Sweep(context.Background())
	assert.Equal(t, SweepResult{Refreshed: 1, Skipped: 1}, result)
}

func TestUtilizationWorker_SweepCountsLedgerErrors(t *testing.T) {
	f := newAllocationFixture()
	seedSweepable(t, f)
	f.ledger.Err = errors.New("ledger offline")

	result := newTestWorker(f).Sweep(context.Background())
	assert.Equal(t, SweepResult{Errors: 2}, result)
}

func TestUtilizationWorker_StartStop(t *testing.T) {
	f := newAllocationFixture()
	locked, _, _ := seedSweepable(t, f)
	f.ledger.AddSpend(testutil.SpendRow{TenantID: testTenant, CustomerID: "c2", Amount: dec("75")})

	worker := newTestWorker(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	worker.Start(ctx) // second start is a no-op
	assert.True(t, worker.IsRunning())

	assert.Eventually(t, func() bool {
		stored, err := f.repo.GetByID(context.Background(), testTenant, locked.ID)
		return err == nil && stored.UtilizedAmount.Equal(dec("75"))
	}, time.Second, 10*time.Millisecond)

	worker.Stop()
	assert.False(t, worker.IsRunning())

	// Stopping twice is safe
	worker.Stop()
}

func TestUtilizationWorker_StopsOnContextCancel(t *testing.T) {
	f := newAllocationFixture()
	worker := newTestWorker(f)

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool { return !worker.IsRunning() }, time.Second, 10*time.Millisecond)
}
