package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/websocket"
)

// MockAllocationRepository is an in-memory domain.BudgetAllocationRepository.
// It stores copies and enforces the same version check as the Postgres repository,
// so callers never see their own unsaved mutations leak into storage.
type MockAllocationRepository struct {
	mu          sync.Mutex
	Allocations map[uuid.UUID]*domain.BudgetAllocation
	Lines       map[uuid.UUID][]*domain.BudgetAllocationLine

	// Calls counts writes by method name
	Calls map[string]int

	CreateFn       func(a *domain.BudgetAllocation) (*domain.BudgetAllocation, error)
	ReplaceLinesFn func(a *domain.BudgetAllocation, lines []*domain.BudgetAllocationLine) (*domain.BudgetAllocation, error)
	SummaryFn      func(tenantID int32) (*domain.AllocationSummary, error)
}

// NewMockAllocationRepository creates a new MockAllocationRepository
func NewMockAllocationRepository() *MockAllocationRepository {
	return &MockAllocationRepository{
		Allocations: make(map[uuid.UUID]*domain.BudgetAllocation),
		Lines:       make(map[uuid.UUID][]*domain.BudgetAllocationLine),
		Calls:       make(map[string]int),
	}
}

// AddAllocation seeds an allocation (helper for tests)
func (m *MockAllocationRepository) AddAllocation(a *domain.BudgetAllocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Version == 0 {
		a.Version = 1
	}
	m.Allocations[a.ID] = copyAllocation(a)
}

// AddLines seeds lines for an allocation (helper for tests)
func (m *MockAllocationRepository) AddLines(allocationID uuid.UUID, lines ...*domain.BudgetAllocationLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range lines {
		m.Lines[allocationID] = append(m.Lines[allocationID], copyLine(l))
	}
}

// Create stores a new allocation at version 1
func (m *MockAllocationRepository) Create(ctx context.Context, a *domain.BudgetAllocation) (*domain.BudgetAllocation, error) {
	if m.CreateFn != nil {
		return m.CreateFn(a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Create"]++

	now := time.Now().UTC()
	stored := copyAllocation(a)
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.Allocations[stored.ID] = stored
	return copyAllocation(stored), nil
}

// GetByID retrieves an allocation scoped to its tenant
func (m *MockAllocationRepository) GetByID(ctx context.Context, tenantID int32, id uuid.UUID) (*domain.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Allocations[id]
	if !ok || a.TenantID != tenantID {
		return nil, domain.ErrAllocationNotFound
	}
	return copyAllocation(a), nil
}

// List filters and paginates in memory, newest first
func (m *MockAllocationRepository) List(ctx context.Context, tenantID int32, filters *domain.AllocationFilters) (*domain.PaginatedAllocations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*domain.BudgetAllocation, 0)
	for _, a := range m.Allocations {
		if a.TenantID != tenantID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		if filters.Dimension != nil && a.Dimension != *filters.Dimension {
			continue
		}
		if filters.BudgetRef != nil && (a.BudgetRef == nil || *a.BudgetRef != *filters.BudgetRef) {
			continue
		}
		if filters.FiscalYear != nil && (a.FiscalYear == nil || *a.FiscalYear != *filters.FiscalYear) {
			continue
		}
		matched = append(matched, copyAllocation(a))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := int((filters.Page - 1) * filters.PageSize)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(filters.PageSize)
	if end > len(matched) {
		end = len(matched)
	}

	totalPages := int32(0)
	if filters.PageSize > 0 {
		totalPages = int32((total + int64(filters.PageSize) - 1) / int64(filters.PageSize))
	}

	return &domain.PaginatedAllocations{
		Data:       matched[start:end],
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// Update writes the parent row
func (m *MockAllocationRepository) Update(ctx context.Context, a *domain.BudgetAllocation) (*domain.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Update"]++
	return m.writeParent(a)
}

// Delete removes an allocation and its lines
func (m *MockAllocationRepository) Delete(ctx context.Context, a *domain.BudgetAllocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Delete"]++
	if _, err := m.checkVersion(a); err != nil {
		return err
	}
	delete(m.Allocations, a.ID)
	delete(m.Lines, a.ID)
	return nil
}

// GetLines returns lines ordered by line number
func (m *MockAllocationRepository) GetLines(ctx context.Context, tenantID int32, allocationID uuid.UUID) ([]*domain.BudgetAllocationLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := make([]*domain.BudgetAllocationLine, 0, len(m.Lines[allocationID]))
	for _, l := range m.Lines[allocationID] {
		if l.TenantID == tenantID {
			lines = append(lines, copyLine(l))
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNumber < lines[j].LineNumber })
	return lines, nil
}

// ReplaceLines swaps every line and writes the parent
func (m *MockAllocationRepository) ReplaceLines(ctx context.Context, a *domain.BudgetAllocation, lines []*domain.BudgetAllocationLine) (*domain.BudgetAllocation, error) {
	if m.ReplaceLinesFn != nil {
		return m.ReplaceLinesFn(a, lines)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["ReplaceLines"]++

	saved, err := m.writeParent(a)
	if err != nil {
		return nil, err
	}
	stored := make([]*domain.BudgetAllocationLine, len(lines))
	for i, l := range lines {
		stored[i] = copyLine(l)
	}
	m.Lines[a.ID] = stored
	return saved, nil
}

// UpdateLine writes one line and the parent
func (m *MockAllocationRepository) UpdateLine(ctx context.Context, a *domain.BudgetAllocation, line *domain.BudgetAllocationLine) (*domain.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["UpdateLine"]++

	idx := -1
	for i, l := range m.Lines[a.ID] {
		if l.ID == line.ID {
			idx = i
		}
	}
	if idx < 0 {
		return nil, domain.ErrAllocationLineNotFound
	}

	saved, err := m.writeParent(a)
	if err != nil {
		return nil, err
	}
	m.Lines[a.ID][idx] = copyLine(line)
	return saved, nil
}

// SetLockState writes the parent and cascades lineStatus
func (m *MockAllocationRepository) SetLockState(ctx context.Context, a *domain.BudgetAllocation, lineStatus domain.LineStatus) (*domain.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["SetLockState"]++

	saved, err := m.writeParent(a)
	if err != nil {
		return nil, err
	}
	for _, l := range m.Lines[a.ID] {
		l.Status = lineStatus
	}
	return saved, nil
}

// SaveUtilization writes utilization fields of the given lines and the parent
func (m *MockAllocationRepository) SaveUtilization(ctx context.Context, a *domain.BudgetAllocation, lines []*domain.BudgetAllocationLine) (*domain.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["SaveUtilization"]++

	saved, err := m.writeParent(a)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.BudgetAllocationLine, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}
	for i, stored := range m.Lines[a.ID] {
		if updated, ok := byID[stored.ID]; ok {
			m.Lines[a.ID][i] = copyLine(updated)
		}
	}
	return saved, nil
}

// Summary aggregates the stored allocations of a tenant
func (m *MockAllocationRepository) Summary(ctx context.Context, tenantID int32) (*domain.AllocationSummary, error) {
	if m.SummaryFn != nil {
		return m.SummaryFn(tenantID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &domain.AllocationSummary{ByStatus: make(map[domain.AllocationStatus]int64)}
	for _, a := range m.Allocations {
		if a.TenantID != tenantID {
			continue
		}
		s.TotalAllocations++
		s.ByStatus[a.Status]++
		if a.Locked {
			s.LockedCount++
		}
		s.TotalSource = s.TotalSource.Add(a.SourceAmount)
		s.TotalAllocated = s.TotalAllocated.Add(a.AllocatedAmount)
		s.TotalUtilized = s.TotalUtilized.Add(a.UtilizedAmount)
		s.TotalRemaining = s.TotalRemaining.Add(a.RemainingAmount)
	}
	return s, nil
}

// ListRefs returns stored allocations in one of statuses, ordered by tenant then creation
func (m *MockAllocationRepository) ListRefs(ctx context.Context, statuses []domain.AllocationStatus) ([]domain.AllocationRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[domain.AllocationStatus]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}

	matched := make([]*domain.BudgetAllocation, 0)
	for _, a := range m.Allocations {
		if wanted[a.Status] {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].TenantID != matched[j].TenantID {
			return matched[i].TenantID < matched[j].TenantID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	refs := make([]domain.AllocationRef, len(matched))
	for i, a := range matched {
		refs[i] = domain.AllocationRef{TenantID: a.TenantID, ID: a.ID}
	}
	return refs, nil
}

// GetLinesByBudget joins lines to allocations referencing budgetID, largest allocation first
func (m *MockAllocationRepository) GetLinesByBudget(ctx context.Context, tenantID int32, budgetID uuid.UUID) ([]*domain.WaterfallLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.WaterfallLine, 0)
	for _, a := range m.Allocations {
		if a.TenantID != tenantID || a.BudgetRef == nil || *a.BudgetRef != budgetID {
			continue
		}
		for _, l := range m.Lines[a.ID] {
			out = append(out, &domain.WaterfallLine{
				AllocationID:    a.ID,
				AllocationName:  a.Name,
				LineID:          l.ID,
				DimensionType:   l.DimensionType,
				DimensionID:     l.DimensionID,
				DimensionName:   l.DimensionName,
				AllocatedAmount: l.AllocatedAmount,
				UtilizedAmount:  l.UtilizedAmount,
				RemainingAmount: l.RemainingAmount,
				UtilizationPct:  l.UtilizationPct,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AllocatedAmount.GreaterThan(out[j].AllocatedAmount)
	})
	return out, nil
}

func (m *MockAllocationRepository) checkVersion(a *domain.BudgetAllocation) (*domain.BudgetAllocation, error) {
	stored, ok := m.Allocations[a.ID]
	if !ok || stored.TenantID != a.TenantID {
		return nil, domain.ErrAllocationNotFound
	}
	if stored.Version != a.Version {
		return nil, domain.ErrConflict
	}
	return stored, nil
}

func (m *MockAllocationRepository) writeParent(a *domain.BudgetAllocation) (*domain.BudgetAllocation, error) {
	stored, err := m.checkVersion(a)
	if err != nil {
		return nil, err
	}
	next := copyAllocation(a)
	next.Version = stored.Version + 1
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	m.Allocations[a.ID] = next
	return copyAllocation(next), nil
}

// StoredLines returns a snapshot of an allocation's stored lines (helper for tests)
func (m *MockAllocationRepository) StoredLines(allocationID uuid.UUID) []*domain.BudgetAllocationLine {
	lines, _ := m.GetLines(context.Background(), m.tenantOf(allocationID), allocationID)
	return lines
}

func (m *MockAllocationRepository) tenantOf(allocationID uuid.UUID) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Allocations[allocationID]; ok {
		return a.TenantID
	}
	for _, l := range m.Lines[allocationID] {
		return l.TenantID
	}
	return 0
}

func copyAllocation(a *domain.BudgetAllocation) *domain.BudgetAllocation {
	c := *a
	c.Lines = nil
	return &c
}

func copyLine(l *domain.BudgetAllocationLine) *domain.BudgetAllocationLine {
	c := *l
	return &c
}

// MockReferenceDirectory is a mock implementation of domain.ReferenceDirectory
type MockReferenceDirectory struct {
	Entities map[int32]map[domain.Dimension][]*domain.ReferenceEntity
	Err      error
}

// NewMockReferenceDirectory creates a new MockReferenceDirectory
func NewMockReferenceDirectory() *MockReferenceDirectory {
	return &MockReferenceDirectory{
		Entities: make(map[int32]map[domain.Dimension][]*domain.ReferenceEntity),
	}
}

// AddEntities adds entities to a tenant dimension (helper for tests)
func (m *MockReferenceDirectory) AddEntities(tenantID int32, dimension domain.Dimension, entities ...*domain.ReferenceEntity) {
	if m.Entities[tenantID] == nil {
		m.Entities[tenantID] = make(map[domain.Dimension][]*domain.ReferenceEntity)
	}
	m.Entities[tenantID][dimension] = append(m.Entities[tenantID][dimension], entities...)
}

// ListEntities returns the entities of a dimension
func (m *MockReferenceDirectory) ListEntities(ctx context.Context, tenantID int32, dimension domain.Dimension) ([]*domain.ReferenceEntity, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Entities[tenantID][dimension], nil
}

// ActiveEntity builds an active reference entity
func ActiveEntity(id, name string) *domain.ReferenceEntity {
	return &domain.ReferenceEntity{ID: id, Name: name, Status: domain.EntityStatusActive}
}

// MockBudgetReader is a mock implementation of domain.BudgetReader
type MockBudgetReader struct {
	Budgets map[uuid.UUID]*domain.Budget
}

// NewMockBudgetReader creates a new MockBudgetReader
func NewMockBudgetReader() *MockBudgetReader {
	return &MockBudgetReader{Budgets: make(map[uuid.UUID]*domain.Budget)}
}

// AddBudget adds a budget (helper for tests)
func (m *MockBudgetReader) AddBudget(b *domain.Budget) {
	m.Budgets[b.ID] = b
}

// GetBudget retrieves a budget scoped to its tenant
func (m *MockBudgetReader) GetBudget(ctx context.Context, tenantID int32, id uuid.UUID) (*domain.Budget, error) {
	b, ok := m.Budgets[id]
	if !ok || b.TenantID != tenantID {
		return nil, domain.ErrBudgetNotFound
	}
	return b, nil
}

// ListBudgets returns budgets ordered by name
func (m *MockBudgetReader) ListBudgets(ctx context.Context, tenantID int32, filters *domain.BudgetFilters) ([]*domain.Budget, error) {
	out := make([]*domain.Budget, 0)
	for _, b := range m.Budgets {
		if b.TenantID != tenantID {
			continue
		}
		if filters != nil && filters.BudgetID != nil && b.ID != *filters.BudgetID {
			continue
		}
		if filters != nil && filters.FiscalYear != nil && (b.FiscalYear == nil || *b.FiscalYear != *filters.FiscalYear) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SpendRow is one ledger row held by MockSpendLedger
type SpendRow struct {
	TenantID   int32
	CustomerID string
	ProductID  string
	BudgetID   *uuid.UUID
	Amount     decimal.Decimal
}

// MockSpendLedger is a mock implementation of domain.SpendLedger
type MockSpendLedger struct {
	Rows []SpendRow
	Err  error
}

// NewMockSpendLedger creates a new MockSpendLedger
func NewMockSpendLedger() *MockSpendLedger {
	return &MockSpendLedger{}
}

// AddSpend appends a ledger row (helper for tests)
func (m *MockSpendLedger) AddSpend(row SpendRow) {
	m.Rows = append(m.Rows, row)
}

// SumSpend sums rows attributed to filter.EntityID through the dimension's column
func (m *MockSpendLedger) SumSpend(ctx context.Context, tenantID int32, filter domain.SpendFilter) (decimal.Decimal, error) {
	if m.Err != nil {
		return decimal.Zero, m.Err
	}
	if !filter.Dimension.HasSpendAttribution() {
		return decimal.Zero, domain.ErrAttributionUnsupported
	}

	total := decimal.Zero
	for _, r := range m.Rows {
		if r.TenantID != tenantID {
			continue
		}
		if filter.BudgetID != nil && (r.BudgetID == nil || *r.BudgetID != *filter.BudgetID) {
			continue
		}
		attributed := r.CustomerID
		if filter.Dimension == domain.DimensionProduct {
			attributed = r.ProductID
		}
		if attributed == filter.EntityID {
			total = total.Add(r.Amount)
		}
	}
	return total, nil
}

// SumBudgetSpend sums every row charged to budgetID
func (m *MockSpendLedger) SumBudgetSpend(ctx context.Context, tenantID int32, budgetID uuid.UUID) (decimal.Decimal, error) {
	if m.Err != nil {
		return decimal.Zero, m.Err
	}
	total := decimal.Zero
	for _, r := range m.Rows {
		if r.TenantID == tenantID && r.BudgetID != nil && *r.BudgetID == budgetID {
			total = total.Add(r.Amount)
		}
	}
	return total, nil
}

// MockMutationGuard is an in-memory domain.MutationGuard
type MockMutationGuard struct {
	mu        sync.Mutex
	Held      map[string]bool
	Acquired  []string
	AcquireFn func(key string) (func(), error)
}

// NewMockMutationGuard creates a new MockMutationGuard
func NewMockMutationGuard() *MockMutationGuard {
	return &MockMutationGuard{Held: make(map[string]bool)}
}

// Acquire fails with ErrConflict if key is held
func (m *MockMutationGuard) Acquire(ctx context.Context, key string) (func(), error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Held[key] {
		return nil, domain.ErrConflict
	}
	m.Held[key] = true
	m.Acquired = append(m.Acquired, key)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.Held, key)
	}, nil
}

// RecordingPublisher captures published events
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []websocket.Event
	Tenant []int32
}

// Publish records the event
func (p *RecordingPublisher) Publish(tenantID int32, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	p.Tenant = append(p.Tenant, tenantID)
}

// Types returns the recorded event types in order
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Type
	}
	return out
}
