package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/tpm-platform/allocation-engine/internal/middleware"
)

// Token cost of the heavier allocation writes against the per-tenant limiter
const (
	distributeCost = 5
	refreshCost    = 3
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, allocationHandler *AllocationHandler, reportHandler *ReportHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Allocation routes (protected, mutating requests rate limited per tenant)
	allocations := api.Group("/allocations")
	allocations.Use(authMiddleware.Authenticate(), middleware.RequireTenant(), middleware.RateLimitMiddleware(rateLimiter))

	allocations.GET("/summary", reportHandler.GetSummary)
	allocations.GET("/options", reportHandler.GetOptions)
	allocations.GET("/waterfall", reportHandler.GetWaterfall)
	allocations.GET("/waterfall/export", reportHandler.ExportWaterfall)

	allocations.POST("", allocationHandler.CreateAllocation)
	allocations.GET("", allocationHandler.ListAllocations)
	allocations.GET("/:id", allocationHandler.GetAllocation)
	allocations.PUT("/:id", allocationHandler.UpdateAllocation)
	allocations.DELETE("/:id", allocationHandler.DeleteAllocation)
	allocations.POST("/:id/distribute", allocationHandler.Distribute)
	allocations.POST("/:id/lock", allocationHandler.Lock)
	allocations.POST("/:id/unlock", allocationHandler.Unlock)
	allocations.POST("/:id/refresh-utilization", allocationHandler.RefreshUtilization)
	allocations.GET("/:id/lines", allocationHandler.GetLines)
	allocations.PUT("/:id/lines/:lineId", allocationHandler.UpdateLine)

	rateLimiter.SetRouteCost("/api/v1/allocations/:id/distribute", distributeCost)
	rateLimiter.SetRouteCost("/api/v1/allocations/:id/refresh-utilization", refreshCost)
}
