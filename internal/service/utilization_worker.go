package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tpm-platform/allocation-engine/internal/domain"
)

// refreshableStatuses are the statuses whose lines accumulate spend
var refreshableStatuses = []domain.AllocationStatus{
	domain.AllocationStatusActive,
	domain.AllocationStatusLocked,
}

// UtilizationWorker periodically refreshes utilization of every active or locked
// allocation across tenants
type UtilizationWorker struct {
	utilizationService *UtilizationService
	allocationRepo     domain.BudgetAllocationRepository
	logger             zerolog.Logger
	interval           time.Duration
	stopCh             chan struct{}
	doneCh             chan struct{}
	mu                 sync.Mutex
	running            bool
}

// SweepResult summarizes one pass over all tenants
type SweepResult struct {
	Refreshed int
	Skipped   int // guard held by an in-flight mutation
	Errors    int
}

// NewUtilizationWorker creates a new utilization worker
func NewUtilizationWorker(
	utilizationService *UtilizationService,
	allocationRepo domain.BudgetAllocationRepository,
	logger zerolog.Logger,
	interval time.Duration,
) *UtilizationWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &UtilizationWorker{
		utilizationService: utilizationService,
		allocationRepo:     allocationRepo,
		logger:             logger.With().Str("component", "utilization_worker").Logger(),
		interval:           interval,
		stopCh:             make(chan struct{}),
		doneCh:             make(chan struct{}),
	}
}

// Start begins the background refresh loop
func (w *UtilizationWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().Dur("interval", w.interval).Msg("Starting utilization worker")

	go w.run(ctx)
}

// Stop waits for the current sweep to finish
func (w *UtilizationWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping utilization worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Utilization worker stopped")
}

// IsRunning returns whether the worker is currently running
func (w *UtilizationWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *UtilizationWorker) run(ctx context.Context) {
	defer close(w.doneCh)
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.Sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep refreshes every refreshable allocation once. An allocation whose mutation
// guard is held is skipped until the next sweep.
func (w *UtilizationWorker) Sweep(ctx context.Context) SweepResult {
	var result SweepResult
	startTime := time.Now()

	refs, err := w.allocationRepo.ListRefs(ctx, refreshableStatuses)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to list allocations for utilization sweep")
		result.Errors++
		return result
	}

	for _, ref := range refs {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Context cancelled, stopping sweep")
			return result
		case <-w.stopCh:
			w.logger.Info().Msg("Stop signal received, stopping sweep")
			return result
		default:
		}

		_, err := w.utilizationService.Refresh(ctx, ref.TenantID, ref.ID)
		switch {
		case err == nil:
			result.Refreshed++
		case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAllocationNotFound):
			result.Skipped++
		default:
			result.Errors++
			w.logger.Error().
				Err(err).
				Int32("tenant_id", ref.TenantID).
				Str("allocation_id", ref.ID.String()).
				Msg("Failed to refresh allocation utilization")
		}
	}

	w.logger.Info().
		Int("allocations", len(refs)).
		Int("refreshed", result.Refreshed).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Dur("elapsed", time.Since(startTime)).
		Msg("Completed utilization sweep")

	return result
}
