package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/util"
	"github.com/tpm-platform/allocation-engine/internal/websocket"
)

// UtilizationService recomputes utilization of allocation lines from the spend ledger
type UtilizationService struct {
	allocationRepo domain.BudgetAllocationRepository
	spendLedger    domain.SpendLedger
	guard          domain.MutationGuard
	eventPublisher websocket.EventPublisher
}

// NewUtilizationService creates a new UtilizationService
func NewUtilizationService(allocationRepo domain.BudgetAllocationRepository, spendLedger domain.SpendLedger, guard domain.MutationGuard) *UtilizationService {
	return &UtilizationService{
		allocationRepo: allocationRepo,
		spendLedger:    spendLedger,
		guard:          guard,
		eventPublisher: websocket.NoOpPublisher{},
	}
}

// SetEventPublisher sets the WebSocket event publisher
func (s *UtilizationService) SetEventPublisher(publisher websocket.EventPublisher) {
	if publisher == nil {
		publisher = websocket.NoOpPublisher{}
	}
	s.eventPublisher = publisher
}

// RefreshResult reports a utilization refresh
type RefreshResult struct {
	Allocation     *domain.BudgetAllocation       `json:"allocation"`
	Lines          []*domain.BudgetAllocationLine `json:"lines"`
	TrackedLines   int                            `json:"trackedLines"`
	UntrackedLines int                            `json:"untrackedLines"` // no spend attribution
}

// Refresh recomputes utilized, remaining, utilization and variance for every line and
// the parent totals. It only reads spend and is allowed on locked allocations.
func (s *UtilizationService) Refresh(ctx context.Context, tenantID int32, allocationID uuid.UUID) (*RefreshResult, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}

	release, err := s.guard.Acquire(ctx, MutationKey(tenantID, allocationID))
	if err != nil {
		return nil, err
	}
	defer release()

	allocation, err := s.allocationRepo.GetByID(ctx, tenantID, allocationID)
	if err != nil {
		return nil, err
	}
	lines, err := s.allocationRepo.GetLines(ctx, tenantID, allocationID)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{Lines: lines}
	totalUtilized := decimal.Zero

	for _, line := range lines {
		tracked, err := s.refreshLine(ctx, tenantID, allocation.BudgetRef, line)
		if err != nil {
			return nil, err
		}
		if tracked {
			result.TrackedLines++
		} else {
			result.UntrackedLines++
		}
		totalUtilized = totalUtilized.Add(line.UtilizedAmount)
	}

	allocation.UtilizedAmount = util.Round2(totalUtilized)
	allocation.UtilizationPct = util.Percent(allocation.UtilizedAmount, allocation.SourceAmount)

	saved, err := s.allocationRepo.SaveUtilization(ctx, allocation, lines)
	if err != nil {
		return nil, err
	}
	result.Allocation = saved

	event := log.Info().
		Int32("tenant_id", tenantID).
		Str("allocation_id", allocationID.String()).
		Str("utilized", saved.UtilizedAmount.StringFixed(2)).
		Int("tracked_lines", result.TrackedLines)
	if result.UntrackedLines > 0 {
		event = event.Int("untracked_lines", result.UntrackedLines)
	}
	event.Msg("Allocation utilization refreshed")

	s.eventPublisher.Publish(tenantID, websocket.AllocationUtilizationRefreshed(allocationID, saved))
	return result, nil
}

// refreshLine updates line in place and reports whether its spend could be attributed
func (s *UtilizationService) refreshLine(ctx context.Context, tenantID int32, budgetRef *uuid.UUID, line *domain.BudgetAllocationLine) (bool, error) {
	if !line.DimensionType.HasSpendAttribution() {
		line.UtilizationTracked = false
		return false, nil
	}

	spend, err := s.spendLedger.SumSpend(ctx, tenantID, domain.SpendFilter{
		Dimension: line.DimensionType,
		EntityID:  line.DimensionID,
		BudgetID:  budgetRef,
	})
	if errors.Is(err, domain.ErrAttributionUnsupported) {
		line.UtilizationTracked = false
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sum spend for line %d: %w", line.LineNumber, err)
	}

	ApplyUtilization(line, spend)
	return true, nil
}

// ApplyUtilization sets the utilization triad and variance of line from its attributed spend
func ApplyUtilization(line *domain.BudgetAllocationLine, spend decimal.Decimal) {
	utilized := util.Round2(spend)

	line.UtilizationTracked = true
	line.UtilizedAmount = utilized
	line.RemainingAmount = util.FloorZero(line.AllocatedAmount.Sub(utilized))
	line.UtilizationPct = util.Percent(utilized, line.AllocatedAmount)
	line.VarianceAmount = utilized.Sub(line.AllocatedAmount)
	line.VariancePct = line.UtilizationPct.Sub(decimal.NewFromInt(100))
}
