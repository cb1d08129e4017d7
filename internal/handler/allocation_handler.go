package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/middleware"
	"github.com/tpm-platform/allocation-engine/internal/service"
)

// AllocationHandler handles budget allocation HTTP requests
type AllocationHandler struct {
	allocationService  *service.BudgetAllocationService
	utilizationService *service.UtilizationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocationService *service.BudgetAllocationService, utilizationService *service.UtilizationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService:  allocationService,
		utilizationService: utilizationService,
	}
}

// CreateAllocationRequest represents the create allocation request body
type CreateAllocationRequest struct {
	Name             string          `json:"name" validate:"required,max=255"`
	Description      *string         `json:"description,omitempty"`
	Notes            *string         `json:"notes,omitempty"`
	AllocationMethod string          `json:"allocationMethod,omitempty"`
	Dimension        string          `json:"dimension,omitempty"`
	BudgetRef        *string         `json:"budgetRef,omitempty" validate:"omitempty,uuid"`
	SourceAmount     *string         `json:"sourceAmount,omitempty" validate:"omitempty,numeric"`
	FiscalYear       *int32          `json:"fiscalYear,omitempty" validate:"omitempty,min=1900,max=9999"`
	PeriodType       string          `json:"periodType,omitempty"`
	StartDate        *string         `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate          *string         `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Currency         string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	Attributes       json.RawMessage `json:"attributes,omitempty" swaggertype:"object"`
}

// UpdateAllocationRequest is a partial update; omitted fields are left unchanged
type UpdateAllocationRequest struct {
	Name             *string         `json:"name,omitempty" validate:"omitempty,max=255"`
	Description      *string         `json:"description,omitempty"`
	Notes            *string         `json:"notes,omitempty"`
	Status           *string         `json:"status,omitempty"`
	AllocationMethod *string         `json:"allocationMethod,omitempty"`
	Dimension        *string         `json:"dimension,omitempty"`
	BudgetRef        *string         `json:"budgetRef,omitempty" validate:"omitempty,uuid"`
	SourceAmount     *string         `json:"sourceAmount,omitempty" validate:"omitempty,numeric"`
	FiscalYear       *int32          `json:"fiscalYear,omitempty" validate:"omitempty,min=1900,max=9999"`
	PeriodType       *string         `json:"periodType,omitempty"`
	StartDate        *string         `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate          *string         `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Currency         *string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	Attributes       json.RawMessage `json:"attributes,omitempty" swaggertype:"object"`
}

// DistributeRequest carries optional per-entity amounts that replace computed shares
type DistributeRequest struct {
	Overrides map[string]string `json:"overrides,omitempty"`
}

// UpdateLineRequest sets the allocated amount of one line
type UpdateLineRequest struct {
	AllocatedAmount string  `json:"allocatedAmount" validate:"required,numeric"`
	Notes           *string `json:"notes,omitempty"`
}

// ListAllocationsQuery holds the list filters
type ListAllocationsQuery struct {
	Status     string `query:"status"`
	BudgetRef  string `query:"budgetRef" validate:"omitempty,uuid"`
	FiscalYear int32  `query:"fiscalYear" validate:"omitempty,min=1900,max=9999"`
	Dimension  string `query:"dimension"`
	Page       int32  `query:"page" validate:"omitempty,min=1"`
	PageSize   int32  `query:"pageSize" validate:"omitempty,min=1,max=100"`
}

// CreateAllocation handles POST /api/v1/allocations
// @Summary Create allocation
// @Description Creates an empty draft allocation, optionally seeded from a budget
// @Tags allocations
// @Accept json
// @Produce json
// @Param request body CreateAllocationRequest true "Allocation"
// @Success 201 {object} AllocationResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations [post]
func (h *AllocationHandler) CreateAllocation(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	var req CreateAllocationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if errs := validateRequest(&req); errs != nil {
		return NewValidationError(c, "Validation failed", errs)
	}

	input := service.CreateAllocationInput{
		Name:             req.Name,
		Description:      req.Description,
		Notes:            req.Notes,
		AllocationMethod: domain.AllocationMethod(req.AllocationMethod),
		Dimension:        domain.Dimension(req.Dimension),
		FiscalYear:       req.FiscalYear,
		PeriodType:       domain.PeriodType(req.PeriodType),
		Currency:         req.Currency,
		Attributes:       req.Attributes,
	}
	// Shapes were validated above
	input.BudgetRef = parseUUIDPtr(req.BudgetRef)
	input.SourceAmount = parseDecimalPtr(req.SourceAmount)
	input.StartDate = parseDatePtr(req.StartDate)
	input.EndDate = parseDatePtr(req.EndDate)

	allocation, err := h.allocationService.CreateAllocation(c.Request().Context(), tenantID, input)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to create allocation")
	}

	return c.JSON(http.StatusCreated, toAllocationResponse(allocation))
}

// ListAllocations handles GET /api/v1/allocations
// @Summary List allocations
// @Tags allocations
// @Produce json
// @Param status query string false "Status filter"
// @Param budgetRef query string false "Budget id filter"
// @Param fiscalYear query int false "Fiscal year filter"
// @Param dimension query string false "Dimension filter"
// @Param page query int false "Page number (1-based)"
// @Param pageSize query int false "Page size (max 100)"
// @Success 200 {object} PaginatedAllocationsResponse
// @Failure 400 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations [get]
func (h *AllocationHandler) ListAllocations(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	var q ListAllocationsQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return NewValidationError(c, "Invalid query parameters", nil)
	}
	if errs := validateRequest(&q); errs != nil {
		return NewValidationError(c, "Validation failed", errs)
	}

	filters := &domain.AllocationFilters{
		FiscalYear: optionalYear(q.FiscalYear),
		BudgetRef:  parseUUIDPtr(optional(q.BudgetRef)),
		Page:       q.Page,
		PageSize:   q.PageSize,
	}
	if q.Status != "" {
		status := domain.AllocationStatus(q.Status)
		filters.Status = &status
	}
	if q.Dimension != "" {
		dimension := domain.Dimension(q.Dimension)
		filters.Dimension = &dimension
	}

	page, err := h.allocationService.ListAllocations(c.Request().Context(), tenantID, filters)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to list allocations")
	}

	resp := PaginatedAllocationsResponse{
		Data:       make([]AllocationResponse, 0, len(page.Data)),
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}
	for _, a := range page.Data {
		resp.Data = append(resp.Data, toAllocationResponse(a))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetAllocation handles GET /api/v1/allocations/:id
// @Summary Get allocation with lines
// @Tags allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 200 {object} AllocationResponse
// @Failure 404 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/{id} [get]
func (h *AllocationHandler) GetAllocation(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid allocation ID", nil)
	}

	allocation, err := h.allocationService.GetAllocation(c.Request().Context(), tenantID, id)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to get allocation")
	}
	return c.JSON(http.StatusOK, toAllocationResponse(allocation))
}

// UpdateAllocation handles PUT /api/v1/allocations/:id
// @Summary Update allocation fields
// @Tags allocations
// @Accept json
// @Produce json
// @Param id path string true "Allocation ID"
// @Param request body UpdateAllocationRequest true "Fields to change"
// @Success 200 {object} AllocationResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 423 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/{id} [put]
func (h *AllocationHandler) UpdateAllocation(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid allocation ID", nil)
	}

	var req UpdateAllocationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if errs := validateRequest(&req); errs != nil {
		return NewValidationError(c, "Validation failed", errs)
	}

	input := service.UpdateAllocationInput{
		Name:         req.Name,
		Description:  req.Description,
		Notes:        req.Notes,
		BudgetRef:    parseUUIDPtr(req.BudgetRef),
		SourceAmount: parseDecimalPtr(req.SourceAmount),
		FiscalYear:   req.FiscalYear,
		StartDate:    parseDatePtr(req.StartDate),
		EndDate:      parseDatePtr(req.EndDate),
		Currency:     req.Currency,
		Attributes:   req.Attributes,
	}
	if req.Status != nil {
		status := domain.AllocationStatus(*req.Status)
		input.Status = &status
	}
	if req.AllocationMethod != nil {
		method := domain.AllocationMethod(*req.AllocationMethod)
		input.AllocationMethod = &method
	}
	if req.Dimension != nil {
		dimension := domain.Dimension(*req.Dimension)
		input.Dimension = &dimension
	}
	if req.PeriodType != nil {
		periodType := domain.PeriodType(*req.PeriodType)
		input.PeriodType = &periodType
	}

	allocation, err := h.allocationService.UpdateAllocation(c.Request().Context(), tenantID, id, input)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to update allocation")
	}
	return c.JSON(http.StatusOK, toAllocationResponse(allocation))
}

// DeleteAllocation handles DELETE /api/v1/allocations/:id
// @Summary Delete allocation and its lines
// @Tags allocations
// @Param id path string true "Allocation ID"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Failure 423 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/{id} [delete]
func (h *AllocationHandler) DeleteAllocation(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid allocation ID", nil)
	}

	if err := h.allocationService.DeleteAllocation(c.Request().Context(), tenantID, id); err != nil {
		return respondError(c, err, tenantID, "Failed to delete allocation")
	}
	return c.NoContent(http.StatusNoContent)
}

// Distribute handles POST /api/v1/allocations/:id/distribute
// @Summary Distribute the source amount across the dimension's active entities
// @Description Replaces every existing line. Overrides pin amounts for specific entity ids.
// @Tags allocations
// @Accept json
// @Produce json
// @Param id path string true "Allocation ID"
// @Param request body DistributeRequest false "Overrides"
// @Success 200 {object} DistributionResponse
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 423 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/{id}/distribute [post]
func (h *AllocationHandler) Distribute(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid allocation ID", nil)
	}

	var req DistributeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	overrides := make(map[string]decimal.Decimal, len(req.Overrides))
	var errs []ValidationError
	for entityID, raw := range req.Overrides {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: "overrides." + entityID, Message: "Must be a valid decimal number"})
			continue
		}
		overrides[entityID] = amount
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Validation failed", errs)
	}

	result, err := h.allocationService.Distribute(c.Request().Context(), tenantID, id, overrides)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to distribute allocation")
	}
	return c.JSON(http.StatusOK, toDistributionResponse(result))
}

// Lock handles POST /api/v1/allocations/:id/lock
// @Summary Lock allocation
// @Tags allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 200 {object} AllocationResponse
// @Failure 404 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/{id}/lock [post]
func (h *AllocationHandler) Lock(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid allocation ID", nil)
	}

	allocation, err := h.allocationService.Lock(c.Request().Context(), tenantID, id, middleware.Actor(c))
	if err != nil {
		return respondError(c, err, tenantID, "Failed to lock allocation")
	}
	return c.JSON(http.StatusOK, toAllocationResponse(allocation))
}

// Unlock handles POST /api/v1/allocations/:id/unlock
// @Summary Unlock allocation
// @Tags allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 200 {object} AllocationResponse
// @Failure 404 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/{id}/unlock [post]
func (h *AllocationHandler) Unlock(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid allocation ID", nil)
	}

	allocation, err := h.allocationService.Unlock(c.Request().Context(), tenantID, id)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to unlock allocation")
	}
	return c.JSON(http.StatusOK, toAllocationResponse(allocation))
}

// RefreshUtilization handles POST /api/v1/allocations/:id/refresh-utilization
// @Summary Recompute utilization from the spend ledger
// @Tags allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 200 {object} RefreshResponse
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/{id}/refresh-utilization [post]
func (h *AllocationHandler) RefreshUtilization(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid allocation ID", nil)
	}

	result, err := h.utilizationService.Refresh(c.Request().Context(), tenantID, id)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to refresh utilization")
	}

	if result.UntrackedLines > 0 {
		log.Debug().
			Int32("tenant_id", tenantID).
			Str("allocation_id", id.String()).
			Int("untracked_lines", result.UntrackedLines).
			Msg("Refresh skipped lines without spend attribution")
	}

	return c.JSON(http.StatusOK, RefreshResponse{
		Allocation:     toAllocationResponse(result.Allocation),
		Lines:          toLineResponses(result.Lines),
		TrackedLines:   result.TrackedLines,
		UntrackedLines: result.UntrackedLines,
	})
}

// GetLines handles GET /api/v1/allocations/:id/lines
// @Summary List allocation lines
// @Tags allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 200 {array} AllocationLineResponse
// @Failure 404 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/{id}/lines [get]
func (h *AllocationHandler) GetLines(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid allocation ID", nil)
	}

	lines, err := h.allocationService.GetLines(c.Request().Context(), tenantID, id)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to get allocation lines")
	}
	return c.JSON(http.StatusOK, toLineResponses(lines))
}

// UpdateLine handles PUT /api/v1/allocations/:id/lines/:lineId
// @Summary Set one line's allocated amount
// @Tags allocations
// @Accept json
// @Produce json
// @Param id path string true "Allocation ID"
// @Param lineId path string true "Line ID"
// @Param request body UpdateLineRequest true "Amount"
// @Success 200 {object} LineUpdateResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 423 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/{id}/lines/{lineId} [put]
func (h *AllocationHandler) UpdateLine(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid allocation ID", nil)
	}
	lineID, ok := uuidParam(c, "lineId")
	if !ok {
		return NewValidationError(c, "Invalid line ID", nil)
	}

	var req UpdateLineRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if errs := validateRequest(&req); errs != nil {
		return NewValidationError(c, "Validation failed", errs)
	}
	amount, err := decimal.NewFromString(req.AllocatedAmount)
	if err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "allocatedAmount", Message: "Must be a valid decimal number"},
		})
	}

	line, allocation, err := h.allocationService.UpdateLine(c.Request().Context(), tenantID, id, lineID, amount, req.Notes)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to update allocation line")
	}
	return c.JSON(http.StatusOK, LineUpdateResponse{
		Line:       toLineResponse(line),
		Allocation: toAllocationResponse(allocation),
	})
}

func uuidParam(c echo.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	return id, err == nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalYear(year int32) *int32 {
	if year == 0 {
		return nil
	}
	return &year
}

func parseUUIDPtr(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

func parseDecimalPtr(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}

func parseDatePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}
