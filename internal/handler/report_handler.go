package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tpm-platform/allocation-engine/internal/middleware"
	"github.com/tpm-platform/allocation-engine/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves the read-only allocation rollups
type ReportHandler struct {
	allocationService *service.BudgetAllocationService
	waterfallService  *service.WaterfallService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(allocationService *service.BudgetAllocationService, waterfallService *service.WaterfallService) *ReportHandler {
	return &ReportHandler{
		allocationService: allocationService,
		waterfallService:  waterfallService,
	}
}

// WaterfallQuery holds the waterfall filters
type WaterfallQuery struct {
	FiscalYear int32  `query:"fiscalYear" validate:"omitempty,min=1900,max=9999"`
	BudgetRef  string `query:"budgetRef" validate:"omitempty,uuid"`
}

// GetSummary handles GET /api/v1/allocations/summary
// @Summary Tenant-wide allocation counters
// @Tags reports
// @Produce json
// @Success 200 {object} SummaryResponse
// @Security BearerAuth
// @Router /allocations/summary [get]
func (h *ReportHandler) GetSummary(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	summary, err := h.allocationService.GetSummary(c.Request().Context(), tenantID)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to get allocation summary")
	}
	return c.JSON(http.StatusOK, toSummaryResponse(summary))
}

// GetOptions handles GET /api/v1/allocations/options
// @Summary Accepted methods, dimensions, period types and statuses
// @Tags reports
// @Produce json
// @Success 200 {object} service.AllocationOptions
// @Security BearerAuth
// @Router /allocations/options [get]
func (h *ReportHandler) GetOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.allocationService.Options())
}

// GetWaterfall handles GET /api/v1/allocations/waterfall
// @Summary Budget to allocation to line rollup
// @Tags reports
// @Produce json
// @Param fiscalYear query int false "Fiscal year"
// @Param budgetRef query string false "Budget id"
// @Success 200 {array} WaterfallEntryResponse
// @Failure 404 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/waterfall [get]
func (h *ReportHandler) GetWaterfall(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	filters, errs := waterfallFilters(c)
	if errs != nil {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	entries, err := h.waterfallService.GetWaterfall(c.Request().Context(), tenantID, filters)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to get waterfall")
	}
	return c.JSON(http.StatusOK, toWaterfallResponse(entries))
}

// ExportWaterfall handles GET /api/v1/allocations/waterfall/export
// @Summary Export the waterfall as an xlsx workbook
// @Description Returns a presigned download link when report storage is configured, otherwise the file itself
// @Tags reports
// @Produce json,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param fiscalYear query int false "Fiscal year"
// @Param budgetRef query string false "Budget id"
// @Success 200 {object} WaterfallExportResponse
// @Failure 404 {object} ProblemDetails
// @Security BearerAuth
// @Router /allocations/waterfall/export [get]
func (h *ReportHandler) ExportWaterfall(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	filters, errs := waterfallFilters(c)
	if errs != nil {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	export, err := h.waterfallService.ExportWaterfall(c.Request().Context(), tenantID, filters)
	if err != nil {
		return respondError(c, err, tenantID, "Failed to export waterfall")
	}

	if export.URL == "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.FileName))
		return c.Blob(http.StatusOK, xlsxContentType, export.Content)
	}

	resp := WaterfallExportResponse{FileName: export.FileName, URL: export.URL}
	if export.ExpiresAt != nil {
		resp.ExpiresAt = export.ExpiresAt.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}

func waterfallFilters(c echo.Context) (service.WaterfallFilters, []ValidationError) {
	var q WaterfallQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return service.WaterfallFilters{}, []ValidationError{{Field: "query", Message: "Malformed query parameter"}}
	}
	if errs := validateRequest(&q); errs != nil {
		return service.WaterfallFilters{}, errs
	}
	return service.WaterfallFilters{
		FiscalYear: optionalYear(q.FiscalYear),
		BudgetRef:  parseUUIDPtr(optional(q.BudgetRef)),
	}, nil
}
