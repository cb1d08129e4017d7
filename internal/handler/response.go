package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/tpm-platform/allocation-engine/internal/domain"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation     = "https://tpm.app/errors/validation"
	ErrorTypeNotFound       = "https://tpm.app/errors/not-found"
	ErrorTypeUnauthorized   = "https://tpm.app/errors/unauthorized"
	ErrorTypeConflict       = "https://tpm.app/errors/conflict"
	ErrorTypeLocked         = "https://tpm.app/errors/locked"
	ErrorTypeNotImplemented = "https://tpm.app/errors/method-not-implemented"
	ErrorTypeInternal       = "https://tpm.app/errors/internal"
)

func problem(c echo.Context, status int, errType, title, detail string, errs []ValidationError) error {
	return c.JSON(status, ProblemDetails{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errs,
	})
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return problem(c, http.StatusBadRequest, ErrorTypeValidation, "Validation Error", detail, errors)
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return problem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail, nil)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail, nil)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return problem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail, nil)
}

// NewLockedError creates a 423 response for writes against a locked allocation
func NewLockedError(c echo.Context, detail string) error {
	return problem(c, http.StatusLocked, ErrorTypeLocked, "Locked", detail, nil)
}

// NewNotImplementedError creates a 422 response for allocation methods without an algorithm
func NewNotImplementedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnprocessableEntity, ErrorTypeNotImplemented, "Method Not Implemented", detail, nil)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail, nil)
}

// fieldErrors names the request field each domain validation error refers to
var fieldErrors = []struct {
	err   error
	field string
}{
	{domain.ErrNameRequired, "name"},
	{domain.ErrNameTooLong, "name"},
	{domain.ErrInvalidStatus, "status"},
	{domain.ErrInvalidMethod, "allocationMethod"},
	{domain.ErrInvalidDimension, "dimension"},
	{domain.ErrInvalidPeriodType, "periodType"},
	{domain.ErrInvalidAmount, "amount"},
	{domain.ErrInvalidDateRange, "endDate"},
	{domain.ErrInvalidCurrency, "currency"},
	{domain.ErrNoEntitiesFound, "dimension"},
}

// respondError maps a service error onto its problem response. Unrecognised errors are
// logged and answered with 500 and the given fallback message.
func respondError(c echo.Context, err error, tenantID int32, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrTenantRequired):
		return NewUnauthorizedError(c, "Tenant required")
	case domain.IsNotFoundError(err):
		return NewNotFoundError(c, err.Error())
	case errors.Is(err, domain.ErrAllocationLocked):
		return NewLockedError(c, "Allocation is locked; unlock it before making changes")
	case errors.Is(err, domain.ErrMethodNotImplemented):
		return NewNotImplementedError(c, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return NewConflictError(c, "Allocation was modified by another request; reload and retry")
	case domain.IsValidationError(err):
		for _, fe := range fieldErrors {
			if errors.Is(err, fe.err) {
				return NewValidationError(c, "Validation failed", []ValidationError{{Field: fe.field, Message: fe.err.Error()}})
			}
		}
		return NewValidationError(c, err.Error(), nil)
	}

	log.Error().Err(err).Int32("tenant_id", tenantID).Str("path", c.Path()).Msg(fallback)
	return NewInternalError(c, fallback)
}
