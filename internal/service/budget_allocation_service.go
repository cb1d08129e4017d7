package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/util"
	"github.com/tpm-platform/allocation-engine/internal/websocket"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// BudgetAllocationService owns the allocation aggregate: creation, edits, distribution,
// line edits, locking and deletion. Every mutation is tenant scoped and refused while
// the allocation is locked (lock and unlock excepted).
type BudgetAllocationService struct {
	allocationRepo domain.BudgetAllocationRepository
	budgetReader   domain.BudgetReader
	spendLedger    domain.SpendLedger
	resolver       *EntityResolver
	guard          domain.MutationGuard
	eventPublisher websocket.EventPublisher
	legacyFallback bool
	now            func() time.Time
}

// NewBudgetAllocationService creates a new BudgetAllocationService
func NewBudgetAllocationService(
	allocationRepo domain.BudgetAllocationRepository,
	budgetReader domain.BudgetReader,
	spendLedger domain.SpendLedger,
	resolver *EntityResolver,
	guard domain.MutationGuard,
) *BudgetAllocationService {
	return &BudgetAllocationService{
		allocationRepo: allocationRepo,
		budgetReader:   budgetReader,
		spendLedger:    spendLedger,
		resolver:       resolver,
		guard:          guard,
		eventPublisher: websocket.NoOpPublisher{},
		now:            time.Now,
	}
}

// SetEventPublisher sets the WebSocket event publisher; nil disables publishing
func (s *BudgetAllocationService) SetEventPublisher(publisher websocket.EventPublisher) {
	if publisher == nil {
		publisher = websocket.NoOpPublisher{}
	}
	s.eventPublisher = publisher
}

// SetLegacyMethodFallback makes unimplemented methods distribute as equal_split
func (s *BudgetAllocationService) SetLegacyMethodFallback(enabled bool) {
	s.legacyFallback = enabled
}

func (s *BudgetAllocationService) publish(tenantID int32, event websocket.Event) {
	s.eventPublisher.Publish(tenantID, event)
}

// CreateAllocationInput holds the caller-supplied fields of a new allocation
type CreateAllocationInput struct {
	Name             string
	Description      *string
	Notes            *string
	AllocationMethod domain.AllocationMethod
	Dimension        domain.Dimension
	BudgetRef        *uuid.UUID
	SourceAmount     *decimal.Decimal
	FiscalYear       *int32
	PeriodType       domain.PeriodType
	StartDate        *time.Time
	EndDate          *time.Time
	Currency         string
	Attributes       json.RawMessage
}

// UpdateAllocationInput is a partial update; nil fields are left unchanged
type UpdateAllocationInput struct {
	Name             *string
	Description      *string
	Notes            *string
	Status           *domain.AllocationStatus
	AllocationMethod *domain.AllocationMethod
	Dimension        *domain.Dimension
	BudgetRef        *uuid.UUID
	SourceAmount     *decimal.Decimal
	FiscalYear       *int32
	PeriodType       *domain.PeriodType
	StartDate        *time.Time
	EndDate          *time.Time
	Currency         *string
	Attributes       json.RawMessage
}

// DistributionSummary describes the outcome of a distribute call
type DistributionSummary struct {
	Method          domain.AllocationMethod `json:"method"`
	EffectiveMethod domain.AllocationMethod `json:"effectiveMethod"`
	Dimension       domain.Dimension        `json:"dimension"`
	SourceAmount    decimal.Decimal         `json:"sourceAmount"`
	TotalAllocated  decimal.Decimal         `json:"totalAllocated"`
	Remaining       decimal.Decimal         `json:"remaining"`
	EntityCount     int                     `json:"entityCount"`
}

// DistributionResult is the distributed aggregate plus its summary
type DistributionResult struct {
	Allocation   *domain.BudgetAllocation `json:"allocation"`
	Distribution DistributionSummary      `json:"distribution"`
}

// CreateAllocation validates input and stores a new empty draft allocation
func (s *BudgetAllocationService) CreateAllocation(ctx context.Context, tenantID int32, input CreateAllocationInput) (*domain.BudgetAllocation, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}

	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}

	method := input.AllocationMethod
	if method == "" {
		method = domain.AllocationMethodEqualSplit
	}
	if !method.IsValid() {
		return nil, domain.ErrInvalidMethod
	}

	dimension := input.Dimension
	if dimension == "" {
		dimension = domain.DimensionCustomer
	}
	if !dimension.IsValid() {
		return nil, domain.ErrInvalidDimension
	}

	periodType := input.PeriodType
	if periodType == "" {
		periodType = domain.PeriodTypeAnnual
	}
	if !periodType.IsValid() {
		return nil, domain.ErrInvalidPeriodType
	}

	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	if err := validateAttributes(input.Attributes); err != nil {
		return nil, err
	}

	sourceAmount := decimal.Zero
	if input.SourceAmount != nil {
		sourceAmount = util.Round2(*input.SourceAmount)
	}
	fiscalYear := input.FiscalYear

	if input.BudgetRef != nil {
		budget, err := s.budgetReader.GetBudget(ctx, tenantID, *input.BudgetRef)
		if err != nil {
			return nil, err
		}
		if input.SourceAmount == nil {
			sourceAmount = util.Round2(budget.TotalAmount)
		}
		if fiscalYear == nil {
			fiscalYear = budget.FiscalYear
		}
	}
	if sourceAmount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	startDate, endDate := input.StartDate, input.EndDate
	if startDate == nil && endDate == nil && fiscalYear != nil && periodType == domain.PeriodTypeAnnual {
		start, end := util.FiscalYearBounds(int(*fiscalYear))
		startDate, endDate = &start, &end
	}
	if err := validateDateRange(startDate, endDate); err != nil {
		return nil, err
	}

	allocation := &domain.BudgetAllocation{
		ID:               uuid.New(),
		TenantID:         tenantID,
		Name:             name,
		Description:      input.Description,
		Notes:            input.Notes,
		Status:           domain.AllocationStatusDraft,
		AllocationMethod: method,
		Dimension:        dimension,
		BudgetRef:        input.BudgetRef,
		SourceAmount:     sourceAmount,
		AllocatedAmount:  decimal.Zero,
		RemainingAmount:  sourceAmount,
		UtilizedAmount:   decimal.Zero,
		UtilizationPct:   decimal.Zero,
		FiscalYear:       fiscalYear,
		PeriodType:       periodType,
		StartDate:        startDate,
		EndDate:          endDate,
		Currency:         currency,
		Attributes:       input.Attributes,
	}

	created, err := s.allocationRepo.Create(ctx, allocation)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("tenant_id", tenantID).
		Str("allocation_id", created.ID.String()).
		Str("method", string(created.AllocationMethod)).
		Str("dimension", string(created.Dimension)).
		Msg("Allocation created")

	s.publish(tenantID, websocket.AllocationCreated(created.ID, created))
	return created, nil
}

// GetAllocation returns an allocation with its lines
func (s *BudgetAllocationService) GetAllocation(ctx context.Context, tenantID int32, id uuid.UUID) (*domain.BudgetAllocation, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}

	allocation, err := s.allocationRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	lines, err := s.allocationRepo.GetLines(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	allocation.Lines = lines
	return allocation, nil
}

// ListAllocations returns a page of allocations matching filters
func (s *BudgetAllocationService) ListAllocations(ctx context.Context, tenantID int32, filters *domain.AllocationFilters) (*domain.PaginatedAllocations, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}
	if filters == nil {
		filters = &domain.AllocationFilters{}
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = domain.DefaultPageSize
	}
	if filters.PageSize > domain.MaxPageSize {
		filters.PageSize = domain.MaxPageSize
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	if filters.Dimension != nil && !filters.Dimension.IsValid() {
		return nil, domain.ErrInvalidDimension
	}

	return s.allocationRepo.List(ctx, tenantID, filters)
}

// GetLines returns the lines of an allocation ordered by line number
func (s *BudgetAllocationService) GetLines(ctx context.Context, tenantID int32, id uuid.UUID) ([]*domain.BudgetAllocationLine, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}
	if _, err := s.allocationRepo.GetByID(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return s.allocationRepo.GetLines(ctx, tenantID, id)
}

// UpdateAllocation merges scalar fields into an unlocked allocation.
// Lines and allocatedAmount are never touched.
func (s *BudgetAllocationService) UpdateAllocation(ctx context.Context, tenantID int32, id uuid.UUID, input UpdateAllocationInput) (*domain.BudgetAllocation, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}

	var updated *domain.BudgetAllocation
	err := s.mutate(ctx, tenantID, id, func(allocation *domain.BudgetAllocation) error {
		if err := applyUpdate(allocation, input); err != nil {
			return err
		}
		if input.BudgetRef != nil {
			if _, err := s.budgetReader.GetBudget(ctx, tenantID, *input.BudgetRef); err != nil {
				return err
			}
		}

		result, err := s.allocationRepo.Update(ctx, allocation)
		if err != nil {
			return err
		}
		updated = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int32("tenant_id", tenantID).Str("allocation_id", id.String()).Msg("Allocation updated")
	s.publish(tenantID, websocket.AllocationUpdated(id, updated))
	return updated, nil
}

// Distribute regenerates every line of an unlocked allocation from its current method,
// dimension and source amount. Existing lines are replaced, never merged.
func (s *BudgetAllocationService) Distribute(ctx context.Context, tenantID int32, id uuid.UUID, overrides map[string]decimal.Decimal) (*DistributionResult, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}

	var result *DistributionResult
	err := s.mutate(ctx, tenantID, id, func(allocation *domain.BudgetAllocation) error {
		effective, err := EffectiveMethod(allocation.AllocationMethod, s.legacyFallback)
		if err != nil {
			return err
		}

		entities, err := s.resolver.Resolve(ctx, tenantID, allocation.Dimension)
		if err != nil {
			return err
		}

		var priorSpend map[string]decimal.Decimal
		if effective == domain.AllocationMethodProportional {
			priorSpend, err = s.loadPriorSpend(ctx, tenantID, allocation.Dimension, entities)
			if err != nil {
				return err
			}
		}

		shares, err := Distribute(DistributionInput{
			SourceAmount:   allocation.SourceAmount,
			Entities:       entities,
			Method:         effective,
			Overrides:      overrides,
			PriorSpend:     priorSpend,
			LegacyFallback: s.legacyFallback,
		})
		if err != nil {
			return err
		}

		lines := s.buildLines(allocation, shares)
		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.AllocatedAmount)
		}
		allocation.AllocatedAmount = util.Round2(total)
		allocation.RemainingAmount = allocation.SourceAmount.Sub(allocation.AllocatedAmount)
		allocation.UtilizedAmount = decimal.Zero
		allocation.UtilizationPct = decimal.Zero

		saved, err := s.allocationRepo.ReplaceLines(ctx, allocation, lines)
		if err != nil {
			return err
		}
		saved.Lines = lines

		result = &DistributionResult{
			Allocation: saved,
			Distribution: DistributionSummary{
				Method:          allocation.AllocationMethod,
				EffectiveMethod: effective,
				Dimension:       allocation.Dimension,
				SourceAmount:    saved.SourceAmount,
				TotalAllocated:  saved.AllocatedAmount,
				Remaining:       saved.RemainingAmount,
				EntityCount:     len(lines),
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("tenant_id", tenantID).
		Str("allocation_id", id.String()).
		Str("method", string(result.Distribution.EffectiveMethod)).
		Int("entity_count", result.Distribution.EntityCount).
		Str("total_allocated", result.Distribution.TotalAllocated.StringFixed(2)).
		Msg("Allocation distributed")

	s.publish(tenantID, websocket.AllocationDistributed(id, result))
	return result, nil
}

// UpdateLine sets the allocated amount of one line and re-sums the parent
func (s *BudgetAllocationService) UpdateLine(ctx context.Context, tenantID int32, allocationID, lineID uuid.UUID, amount decimal.Decimal, notes *string) (*domain.BudgetAllocationLine, *domain.BudgetAllocation, error) {
	if tenantID == 0 {
		return nil, nil, domain.ErrTenantRequired
	}
	if amount.IsNegative() {
		return nil, nil, domain.ErrInvalidAmount
	}

	var (
		updatedLine       *domain.BudgetAllocationLine
		updatedAllocation *domain.BudgetAllocation
	)
	err := s.mutate(ctx, tenantID, allocationID, func(allocation *domain.BudgetAllocation) error {
		lines, err := s.allocationRepo.GetLines(ctx, tenantID, allocationID)
		if err != nil {
			return err
		}

		var target *domain.BudgetAllocationLine
		total := decimal.Zero
		for _, line := range lines {
			if line.ID == lineID {
				target = line
				line.AllocatedAmount = util.Round2(amount)
			}
			total = total.Add(line.AllocatedAmount)
		}
		if target == nil {
			return domain.ErrAllocationLineNotFound
		}

		target.AllocatedPct = util.Percent(target.AllocatedAmount, target.SourceAmount)
		target.RemainingAmount = util.FloorZero(target.AllocatedAmount.Sub(target.UtilizedAmount))
		if notes != nil {
			target.Notes = notes
		}

		allocation.AllocatedAmount = util.Round2(total)
		allocation.RemainingAmount = allocation.SourceAmount.Sub(allocation.AllocatedAmount)

		saved, err := s.allocationRepo.UpdateLine(ctx, allocation, target)
		if err != nil {
			return err
		}
		updatedLine = target
		updatedAllocation = saved
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Int32("tenant_id", tenantID).
		Str("allocation_id", allocationID.String()).
		Str("line_id", lineID.String()).
		Str("amount", updatedLine.AllocatedAmount.StringFixed(2)).
		Msg("Allocation line updated")

	s.publish(tenantID, websocket.AllocationLineUpdated(allocationID, updatedLine))
	return updatedLine, updatedAllocation, nil
}

// Lock freezes an allocation and cascades the locked status to its lines.
// Locking an already locked allocation returns it unchanged.
func (s *BudgetAllocationService) Lock(ctx context.Context, tenantID int32, id uuid.UUID, actor string) (*domain.BudgetAllocation, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}

	var locked *domain.BudgetAllocation
	changed := false
	err := s.withGuard(ctx, tenantID, id, func() error {
		allocation, err := s.allocationRepo.GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if allocation.Locked {
			locked = allocation
			return nil
		}

		now := s.now().UTC()
		allocation.Locked = true
		allocation.LockedAt = &now
		if actor = strings.TrimSpace(actor); actor != "" {
			allocation.LockedBy = &actor
		}
		allocation.Status = domain.AllocationStatusLocked

		locked, err = s.allocationRepo.SetLockState(ctx, allocation, domain.LineStatusLocked)
		changed = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		log.Info().Int32("tenant_id", tenantID).Str("allocation_id", id.String()).Str("locked_by", actor).Msg("Allocation locked")
		s.publish(tenantID, websocket.AllocationLocked(id, locked))
	}
	return locked, nil
}

// Unlock reopens a locked allocation for edits and marks it and its lines active.
// Unlocking an allocation that is not locked returns it unchanged.
func (s *BudgetAllocationService) Unlock(ctx context.Context, tenantID int32, id uuid.UUID) (*domain.BudgetAllocation, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}

	var unlocked *domain.BudgetAllocation
	changed := false
	err := s.withGuard(ctx, tenantID, id, func() error {
		allocation, err := s.allocationRepo.GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !allocation.Locked {
			unlocked = allocation
			return nil
		}

		allocation.Locked = false
		allocation.LockedAt = nil
		allocation.LockedBy = nil
		allocation.Status = domain.AllocationStatusActive

		unlocked, err = s.allocationRepo.SetLockState(ctx, allocation, domain.LineStatusActive)
		changed = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		log.Info().Int32("tenant_id", tenantID).Str("allocation_id", id.String()).Msg("Allocation unlocked")
		s.publish(tenantID, websocket.AllocationUnlocked(id, unlocked))
	}
	return unlocked, nil
}

// DeleteAllocation removes an unlocked allocation together with its lines
func (s *BudgetAllocationService) DeleteAllocation(ctx context.Context, tenantID int32, id uuid.UUID) error {
	if tenantID == 0 {
		return domain.ErrTenantRequired
	}

	err := s.mutate(ctx, tenantID, id, func(allocation *domain.BudgetAllocation) error {
		return s.allocationRepo.Delete(ctx, allocation)
	})
	if err != nil {
		return err
	}

	log.Info().Int32("tenant_id", tenantID).Str("allocation_id", id.String()).Msg("Allocation deleted")
	s.publish(tenantID, websocket.AllocationDeleted(id, map[string]string{"id": id.String()}))
	return nil
}

// GetSummary returns tenant-wide allocation counters
func (s *BudgetAllocationService) GetSummary(ctx context.Context, tenantID int32) (*domain.AllocationSummary, error) {
	if tenantID == 0 {
		return nil, domain.ErrTenantRequired
	}

	summary, err := s.allocationRepo.Summary(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	summary.UtilizationPct = util.Percent(summary.TotalUtilized, summary.TotalSource)
	return summary, nil
}

// mutate loads the allocation under the mutation guard, refuses locked allocations and
// hands the loaded aggregate to fn
func (s *BudgetAllocationService) mutate(ctx context.Context, tenantID int32, id uuid.UUID, fn func(*domain.BudgetAllocation) error) error {
	return s.withGuard(ctx, tenantID, id, func() error {
		allocation, err := s.allocationRepo.GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := ensureUnlocked(allocation); err != nil {
			return err
		}
		return fn(allocation)
	})
}

func (s *BudgetAllocationService) withGuard(ctx context.Context, tenantID int32, id uuid.UUID, fn func() error) error {
	release, err := s.guard.Acquire(ctx, MutationKey(tenantID, id))
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// MutationKey names the guard key for one allocation
func MutationKey(tenantID int32, id uuid.UUID) string {
	return fmt.Sprintf("allocation:%d:%s", tenantID, id)
}

func ensureUnlocked(allocation *domain.BudgetAllocation) error {
	if allocation.Locked {
		return domain.ErrAllocationLocked
	}
	return nil
}

func (s *BudgetAllocationService) loadPriorSpend(ctx context.Context, tenantID int32, dimension domain.Dimension, entities []ResolvedEntity) (map[string]decimal.Decimal, error) {
	prior := make(map[string]decimal.Decimal, len(entities))
	if !dimension.HasSpendAttribution() {
		return prior, nil
	}

	for _, e := range entities {
		amount, err := s.spendLedger.SumSpend(ctx, tenantID, domain.SpendFilter{Dimension: dimension, EntityID: e.ID})
		if err != nil {
			if errors.Is(err, domain.ErrAttributionUnsupported) {
				return map[string]decimal.Decimal{}, nil
			}
			return nil, fmt.Errorf("sum prior spend for %s %s: %w", dimension, e.ID, err)
		}
		prior[e.ID] = amount
	}
	return prior, nil
}

func (s *BudgetAllocationService) buildLines(allocation *domain.BudgetAllocation, shares []DistributedShare) []*domain.BudgetAllocationLine {
	status := domain.LineStatusDraft
	if allocation.Status == domain.AllocationStatusActive {
		status = domain.LineStatusActive
	}
	tracked := allocation.Dimension.HasSpendAttribution()
	now := s.now().UTC()

	lines := make([]*domain.BudgetAllocationLine, len(shares))
	for i, share := range shares {
		lines[i] = &domain.BudgetAllocationLine{
			ID:                 uuid.New(),
			TenantID:           allocation.TenantID,
			AllocationID:       allocation.ID,
			LineNumber:         int32(i + 1),
			DimensionType:      allocation.Dimension,
			DimensionID:        share.EntityID,
			DimensionName:      share.EntityName,
			SourceAmount:       allocation.SourceAmount,
			AllocatedAmount:    share.Amount,
			AllocatedPct:       share.Pct,
			UtilizedAmount:     decimal.Zero,
			CommittedAmount:    decimal.Zero,
			RemainingAmount:    share.Amount,
			UtilizationPct:     decimal.Zero,
			VarianceAmount:     decimal.Zero,
			VariancePct:        decimal.Zero,
			PriorYearAmount:    share.PriorYearAmount,
			PriorYearGrowthPct: share.PriorYearGrowthPct,
			UtilizationTracked: tracked,
			Status:             status,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
	}
	return lines
}

func applyUpdate(allocation *domain.BudgetAllocation, input UpdateAllocationInput) error {
	if input.Name != nil {
		name, err := validateName(*input.Name)
		if err != nil {
			return err
		}
		allocation.Name = name
	}
	if input.Description != nil {
		allocation.Description = input.Description
	}
	if input.Notes != nil {
		allocation.Notes = input.Notes
	}
	if input.Status != nil {
		// The locked status is reachable only through Lock
		if !input.Status.IsValid() || *input.Status == domain.AllocationStatusLocked {
			return domain.ErrInvalidStatus
		}
		allocation.Status = *input.Status
	}
	if input.AllocationMethod != nil {
		if !input.AllocationMethod.IsValid() {
			return domain.ErrInvalidMethod
		}
		allocation.AllocationMethod = *input.AllocationMethod
	}
	if input.Dimension != nil {
		if !input.Dimension.IsValid() {
			return domain.ErrInvalidDimension
		}
		allocation.Dimension = *input.Dimension
	}
	if input.BudgetRef != nil {
		allocation.BudgetRef = input.BudgetRef
	}
	if input.SourceAmount != nil {
		if input.SourceAmount.IsNegative() {
			return domain.ErrInvalidAmount
		}
		allocation.SourceAmount = util.Round2(*input.SourceAmount)
		allocation.RemainingAmount = allocation.SourceAmount.Sub(allocation.AllocatedAmount)
	}
	if input.FiscalYear != nil {
		allocation.FiscalYear = input.FiscalYear
	}
	if input.PeriodType != nil {
		if !input.PeriodType.IsValid() {
			return domain.ErrInvalidPeriodType
		}
		allocation.PeriodType = *input.PeriodType
	}
	if input.StartDate != nil {
		allocation.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		allocation.EndDate = input.EndDate
	}
	if err := validateDateRange(allocation.StartDate, allocation.EndDate); err != nil {
		return err
	}
	if input.Currency != nil {
		currency, err := normalizeCurrency(*input.Currency)
		if err != nil {
			return err
		}
		allocation.Currency = currency
	}
	if input.Attributes != nil {
		if err := validateAttributes(input.Attributes); err != nil {
			return err
		}
		allocation.Attributes = input.Attributes
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrNameRequired
	}
	if len(name) > domain.MaxNameLength {
		return "", domain.ErrNameTooLong
	}
	return name, nil
}

func normalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return domain.DefaultCurrency, nil
	}
	if !currencyPattern.MatchString(currency) {
		return "", domain.ErrInvalidCurrency
	}
	return currency, nil
}

func validateDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return domain.ErrInvalidDateRange
	}
	return nil
}

func validateAttributes(attributes json.RawMessage) error {
	if len(attributes) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(attributes, &obj); err != nil {
		return fmt.Errorf("%w: attributes must be a JSON object", domain.ErrInvalidInput)
	}
	return nil
}
