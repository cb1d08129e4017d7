package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tpm-platform/allocation-engine/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const allocationColumns = `id, tenant_id, name, description, notes, status, allocation_method, dimension,
	budget_ref, source_amount, allocated_amount, remaining_amount, utilized_amount, utilization_pct,
	fiscal_year, period_type, start_date, end_date, currency, locked, locked_by, locked_at,
	attributes, version, created_at, updated_at`

const lineColumns = `id, tenant_id, allocation_id, line_number, dimension_type, dimension_id, dimension_name,
	source_amount, allocated_amount, allocated_pct, utilized_amount, committed_amount, remaining_amount,
	utilization_pct, variance_amount, variance_pct, prior_year_amount, prior_year_growth_pct,
	utilization_tracked, status, notes, created_at, updated_at`

// BudgetAllocationRepository implements domain.BudgetAllocationRepository using PostgreSQL
type BudgetAllocationRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetAllocationRepository creates a new BudgetAllocationRepository
func NewBudgetAllocationRepository(pool *pgxpool.Pool) *BudgetAllocationRepository {
	return &BudgetAllocationRepository{pool: pool}
}

// Create inserts a new allocation at version 1
func (r *BudgetAllocationRepository) Create(ctx context.Context, a *domain.BudgetAllocation) (*domain.BudgetAllocation, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO budget_allocations (
			id, tenant_id, name, description, notes, status, allocation_method, dimension,
			budget_ref, source_amount, allocated_amount, remaining_amount, utilized_amount, utilization_pct,
			fiscal_year, period_type, start_date, end_date, currency, attributes, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, 1)
		RETURNING `+allocationColumns,
		a.ID, a.TenantID, a.Name, a.Description, a.Notes, a.Status, a.AllocationMethod, a.Dimension,
		a.BudgetRef,
		decimalToPgNumeric(a.SourceAmount),
		decimalToPgNumeric(a.AllocatedAmount),
		decimalToPgNumeric(a.RemainingAmount),
		decimalToPgNumeric(a.UtilizedAmount),
		decimalToPgNumeric(a.UtilizationPct),
		a.FiscalYear, a.PeriodType, timePtrToPgDate(a.StartDate), timePtrToPgDate(a.EndDate),
		a.Currency, nullJSON(a.Attributes),
	)

	created, err := scanAllocation(row)
	if err != nil {
		return nil, fmt.Errorf("insert allocation: %w", err)
	}
	return created, nil
}

// GetByID retrieves an allocation by tenant and id
func (r *BudgetAllocationRepository) GetByID(ctx context.Context, tenantID int32, id uuid.UUID) (*domain.BudgetAllocation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+allocationColumns+` FROM budget_allocations WHERE tenant_id = $1 AND id = $2`, tenantID, id)

	allocation, err := scanAllocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAllocationNotFound
		}
		return nil, err
	}
	return allocation, nil
}

// List returns one page of allocations, newest first
func (r *BudgetAllocationRepository) List(ctx context.Context, tenantID int32, filters *domain.AllocationFilters) (*domain.PaginatedAllocations, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filters.Status != nil {
		add("status = $%d", *filters.Status)
	}
	if filters.Dimension != nil {
		add("dimension = $%d", *filters.Dimension)
	}
	if filters.BudgetRef != nil {
		add("budget_ref = $%d", *filters.BudgetRef)
	}
	if filters.FiscalYear != nil {
		add("fiscal_year = $%d", *filters.FiscalYear)
	}
	whereSQL := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM budget_allocations WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count allocations: %w", err)
	}

	offset := (filters.Page - 1) * filters.PageSize
	pageArgs := append(append([]any{}, args...), filters.PageSize, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM budget_allocations WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		allocationColumns, whereSQL, len(args)+1, len(args)+2,
	), pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	data, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.BudgetAllocation, error) {
		return scanAllocation(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}

	totalPages := int32(0)
	if filters.PageSize > 0 {
		totalPages = int32((total + int64(filters.PageSize) - 1) / int64(filters.PageSize))
	}

	return &domain.PaginatedAllocations{
		Data:       data,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// Update writes the parent row
func (r *BudgetAllocationRepository) Update(ctx context.Context, a *domain.BudgetAllocation) (*domain.BudgetAllocation, error) {
	return r.writeParent(ctx, r.pool, a)
}

// Delete removes an allocation; its lines cascade
func (r *BudgetAllocationRepository) Delete(ctx context.Context, a *domain.BudgetAllocation) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budget_allocations WHERE tenant_id = $1 AND id = $2 AND version = $3`, a.TenantID, a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, r.pool, a)
	}
	return nil
}

// GetLines returns the lines of an allocation ordered by line number
func (r *BudgetAllocationRepository) GetLines(ctx context.Context, tenantID int32, allocationID uuid.UUID) ([]*domain.BudgetAllocationLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+lineColumns+` FROM budget_allocation_lines
		WHERE tenant_id = $1 AND allocation_id = $2
		ORDER BY line_number`, tenantID, allocationID)
	if err != nil {
		return nil, fmt.Errorf("get allocation lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.BudgetAllocationLine, error) {
		return scanLine(row)
	})
	if err != nil {
		return nil, fmt.Errorf("get allocation lines: %w", err)
	}
	return lines, nil
}

// ReplaceLines deletes every line, inserts lines and writes the parent in one transaction
func (r *BudgetAllocationRepository) ReplaceLines(ctx context.Context, a *domain.BudgetAllocation, lines []*domain.BudgetAllocationLine) (*domain.BudgetAllocation, error) {
	var saved *domain.BudgetAllocation
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		if saved, err = r.writeParent(ctx, tx, a); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM budget_allocation_lines WHERE tenant_id = $1 AND allocation_id = $2`, a.TenantID, a.ID); err != nil {
			return fmt.Errorf("delete allocation lines: %w", err)
		}

		batch := &pgx.Batch{}
		for _, l := range lines {
			batch.Queue(`
				INSERT INTO budget_allocation_lines (`+lineColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
				l.ID, l.TenantID, l.AllocationID, l.LineNumber, l.DimensionType, l.DimensionID, l.DimensionName,
				decimalToPgNumeric(l.SourceAmount),
				decimalToPgNumeric(l.AllocatedAmount),
				decimalToPgNumeric(l.AllocatedPct),
				decimalToPgNumeric(l.UtilizedAmount),
				decimalToPgNumeric(l.CommittedAmount),
				decimalToPgNumeric(l.RemainingAmount),
				decimalToPgNumeric(l.UtilizationPct),
				decimalToPgNumeric(l.VarianceAmount),
				decimalToPgNumeric(l.VariancePct),
				decimalPtrToPgNumeric(l.PriorYearAmount),
				decimalPtrToPgNumeric(l.PriorYearGrowthPct),
				l.UtilizationTracked, l.Status, l.Notes, l.CreatedAt, l.UpdatedAt,
			)
		}
		return execBatch(ctx, tx, batch, "insert allocation line")
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// UpdateLine writes one line's allocation fields and the parent totals
func (r *BudgetAllocationRepository) UpdateLine(ctx context.Context, a *domain.BudgetAllocation, line *domain.BudgetAllocationLine) (*domain.BudgetAllocation, error) {
	var saved *domain.BudgetAllocation
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		if saved, err = r.writeParent(ctx, tx, a); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE budget_allocation_lines
			SET allocated_amount = $4, allocated_pct = $5, remaining_amount = $6, notes = $7, updated_at = NOW()
			WHERE tenant_id = $1 AND allocation_id = $2 AND id = $3`,
			a.TenantID, a.ID, line.ID,
			decimalToPgNumeric(line.AllocatedAmount),
			decimalToPgNumeric(line.AllocatedPct),
			decimalToPgNumeric(line.RemainingAmount),
			line.Notes,
		)
		if err != nil {
			return fmt.Errorf("update allocation line: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAllocationLineNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SetLockState writes the parent lock fields and cascades lineStatus to every line
func (r *BudgetAllocationRepository) SetLockState(ctx context.Context, a *domain.BudgetAllocation, lineStatus domain.LineStatus) (*domain.BudgetAllocation, error) {
	var saved *domain.BudgetAllocation
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		if saved, err = r.writeParent(ctx, tx, a); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE budget_allocation_lines SET status = $3, updated_at = NOW()
			WHERE tenant_id = $1 AND allocation_id = $2`, a.TenantID, a.ID, lineStatus); err != nil {
			return fmt.Errorf("cascade line status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SaveUtilization writes the utilization fields of lines and the parent
func (r *BudgetAllocationRepository) SaveUtilization(ctx context.Context, a *domain.BudgetAllocation, lines []*domain.BudgetAllocationLine) (*domain.BudgetAllocation, error) {
	var saved *domain.BudgetAllocation
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		if saved, err = r.writeParent(ctx, tx, a); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, l := range lines {
			batch.Queue(`
				UPDATE budget_allocation_lines
				SET utilized_amount = $4, remaining_amount = $5, utilization_pct = $6,
					variance_amount = $7, variance_pct = $8, utilization_tracked = $9, updated_at = NOW()
				WHERE tenant_id = $1 AND allocation_id = $2 AND id = $3`,
				a.TenantID, a.ID, l.ID,
				decimalToPgNumeric(l.UtilizedAmount),
				decimalToPgNumeric(l.RemainingAmount),
				decimalToPgNumeric(l.UtilizationPct),
				decimalToPgNumeric(l.VarianceAmount),
				decimalToPgNumeric(l.VariancePct),
				l.UtilizationTracked,
			)
		}
		return execBatch(ctx, tx, batch, "save line utilization")
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Summary aggregates the allocations of a tenant
func (r *BudgetAllocationRepository) Summary(ctx context.Context, tenantID int32) (*domain.AllocationSummary, error) {
	s := &domain.AllocationSummary{ByStatus: make(map[domain.AllocationStatus]int64)}
	var source, allocated, utilized, remaining pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE locked),
			COALESCE(SUM(source_amount), 0),
			COALESCE(SUM(allocated_amount), 0),
			COALESCE(SUM(utilized_amount), 0),
			COALESCE(SUM(remaining_amount), 0)
		FROM budget_allocations WHERE tenant_id = $1`, tenantID,
	).Scan(&s.TotalAllocations, &s.LockedCount, &source, &allocated, &utilized, &remaining)
	if err != nil {
		return nil, fmt.Errorf("summarize allocations: %w", err)
	}
	s.TotalSource = pgNumericToDecimal(source)
	s.TotalAllocated = pgNumericToDecimal(allocated)
	s.TotalUtilized = pgNumericToDecimal(utilized)
	s.TotalRemaining = pgNumericToDecimal(remaining)

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM budget_allocations WHERE tenant_id = $1 GROUP BY status`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count allocations by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status domain.AllocationStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		s.ByStatus[status] = count
	}
	return s, rows.Err()
}

// GetLinesByBudget joins lines to the allocations referencing budgetID, largest first
func (r *BudgetAllocationRepository) GetLinesByBudget(ctx context.Context, tenantID int32, budgetID uuid.UUID) ([]*domain.WaterfallLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.name, l.id, l.dimension_type, l.dimension_id, l.dimension_name,
			l.allocated_amount, l.utilized_amount, l.remaining_amount, l.utilization_pct
		FROM budget_allocation_lines l
		JOIN budget_allocations a ON a.id = l.allocation_id AND a.tenant_id = l.tenant_id
		WHERE a.tenant_id = $1 AND a.budget_ref = $2
		ORDER BY l.allocated_amount DESC, a.name, l.line_number`, tenantID, budgetID)
	if err != nil {
		return nil, fmt.Errorf("get lines by budget: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.WaterfallLine, error) {
		var w domain.WaterfallLine
		var allocated, utilized, remaining, utilPct pgtype.Numeric
		err := row.Scan(&w.AllocationID, &w.AllocationName, &w.LineID, &w.DimensionType, &w.DimensionID, &w.DimensionName,
			&allocated, &utilized, &remaining, &utilPct)
		if err != nil {
			return nil, err
		}
		w.AllocatedAmount = pgNumericToDecimal(allocated)
		w.UtilizedAmount = pgNumericToDecimal(utilized)
		w.RemainingAmount = pgNumericToDecimal(remaining)
		w.UtilizationPct = pgNumericToDecimal(utilPct)
		return &w, nil
	})
}

// ListRefs returns the allocations in one of statuses across all tenants
func (r *BudgetAllocationRepository) ListRefs(ctx context.Context, statuses []domain.AllocationStatus) ([]domain.AllocationRef, error) {
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT tenant_id, id FROM budget_allocations
		WHERE status = ANY($1)
		ORDER BY tenant_id, created_at`, names)
	if err != nil {
		return nil, fmt.Errorf("list allocation refs: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AllocationRef, error) {
		var ref domain.AllocationRef
		err := row.Scan(&ref.TenantID, &ref.ID)
		return ref, err
	})
}

// writeParent updates every mutable parent column if the stored version still matches
func (r *BudgetAllocationRepository) writeParent(ctx context.Context, q querier, a *domain.BudgetAllocation) (*domain.BudgetAllocation, error) {
	row := q.QueryRow(ctx, `
		UPDATE budget_allocations SET
			name = $4, description = $5, notes = $6, status = $7, allocation_method = $8, dimension = $9,
			budget_ref = $10, source_amount = $11, allocated_amount = $12, remaining_amount = $13,
			utilized_amount = $14, utilization_pct = $15, fiscal_year = $16, period_type = $17,
			start_date = $18, end_date = $19, currency = $20, locked = $21, locked_by = $22,
			locked_at = $23, attributes = $24, version = version + 1, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND version = $3
		RETURNING `+allocationColumns,
		a.TenantID, a.ID, a.Version,
		a.Name, a.Description, a.Notes, a.Status, a.AllocationMethod, a.Dimension,
		a.BudgetRef,
		decimalToPgNumeric(a.SourceAmount),
		decimalToPgNumeric(a.AllocatedAmount),
		decimalToPgNumeric(a.RemainingAmount),
		decimalToPgNumeric(a.UtilizedAmount),
		decimalToPgNumeric(a.UtilizationPct),
		a.FiscalYear, a.PeriodType,
		timePtrToPgDate(a.StartDate), timePtrToPgDate(a.EndDate),
		a.Currency, a.Locked, a.LockedBy, a.LockedAt, nullJSON(a.Attributes),
	)

	saved, err := scanAllocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingOrConflict(ctx, q, a)
	}
	if err != nil {
		return nil, fmt.Errorf("update allocation: %w", err)
	}
	return saved, nil
}

// missingOrConflict explains a write that matched no row
func (r *BudgetAllocationRepository) missingOrConflict(ctx context.Context, q querier, a *domain.BudgetAllocation) error {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM budget_allocations WHERE tenant_id = $1 AND id = $2)`, a.TenantID, a.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrAllocationNotFound
	}
	return domain.ErrConflict
}

func (r *BudgetAllocationRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func execBatch(ctx context.Context, q querier, batch *pgx.Batch, op string) error {
	if batch.Len() == 0 {
		return nil
	}
	br := q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("%s %d: %w", op, i+1, err)
		}
	}
	return br.Close()
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func scanAllocation(row pgx.Row) (*domain.BudgetAllocation, error) {
	var a domain.BudgetAllocation
	var source, allocated, remaining, utilized, utilizationPct pgtype.Numeric
	var startDate, endDate pgtype.Date
	var lockedAt pgtype.Timestamptz
	var attributes []byte
	err := row.Scan(
		&a.ID, &a.TenantID, &a.Name, &a.Description, &a.Notes, &a.Status, &a.AllocationMethod, &a.Dimension,
		&a.BudgetRef, &source, &allocated, &remaining, &utilized, &utilizationPct,
		&a.FiscalYear, &a.PeriodType, &startDate, &endDate, &a.Currency, &a.Locked, &a.LockedBy, &lockedAt,
		&attributes, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.SourceAmount = pgNumericToDecimal(source)
	a.AllocatedAmount = pgNumericToDecimal(allocated)
	a.RemainingAmount = pgNumericToDecimal(remaining)
	a.UtilizedAmount = pgNumericToDecimal(utilized)
	a.UtilizationPct = pgNumericToDecimal(utilizationPct)
	a.StartDate = pgDateToTimePtr(startDate)
	a.EndDate = pgDateToTimePtr(endDate)
	if lockedAt.Valid {
		t := lockedAt.Time.UTC()
		a.LockedAt = &t
	}
	if len(attributes) > 0 {
		a.Attributes = attributes
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func scanLine(row pgx.Row) (*domain.BudgetAllocationLine, error) {
	var l domain.BudgetAllocationLine
	var source, allocated, allocatedPct, utilized, committed, remaining pgtype.Numeric
	var utilPct, variance, variancePct, prior, priorGrowth pgtype.Numeric
	var createdAt, updatedAt time.Time
	err := row.Scan(
		&l.ID, &l.TenantID, &l.AllocationID, &l.LineNumber, &l.DimensionType, &l.DimensionID, &l.DimensionName,
		&source, &allocated, &allocatedPct, &utilized, &committed, &remaining,
		&utilPct, &variance, &variancePct, &prior, &priorGrowth,
		&l.UtilizationTracked, &l.Status, &l.Notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.SourceAmount = pgNumericToDecimal(source)
	l.AllocatedAmount = pgNumericToDecimal(allocated)
	l.AllocatedPct = pgNumericToDecimal(allocatedPct)
	l.UtilizedAmount = pgNumericToDecimal(utilized)
	l.CommittedAmount = pgNumericToDecimal(committed)
	l.RemainingAmount = pgNumericToDecimal(remaining)
	l.UtilizationPct = pgNumericToDecimal(utilPct)
	l.VarianceAmount = pgNumericToDecimal(variance)
	l.VariancePct = pgNumericToDecimal(variancePct)
	l.PriorYearAmount = pgNumericToDecimalPtr(prior)
	l.PriorYearGrowthPct = pgNumericToDecimalPtr(priorGrowth)
	l.CreatedAt = createdAt.UTC()
	l.UpdatedAt = updatedAt.UTC()
	return &l, nil
}
