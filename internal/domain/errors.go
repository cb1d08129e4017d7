package domain

import "errors"

// Domain errors
var (
	ErrInvalidInput = errors.New("invalid input")

	ErrTenantRequired = errors.New("tenant context is required")

	ErrAllocationNotFound     = errors.New("allocation not found")
	ErrAllocationLineNotFound = errors.New("allocation line not found")
	ErrBudgetNotFound         = errors.New("budget not found")

	ErrAllocationLocked = errors.New("allocation is locked")
	ErrConflict         = errors.New("allocation was modified concurrently")

	ErrNameRequired         = errors.New("name is required")
	ErrNameTooLong          = errors.New("name exceeds maximum length")
	ErrInvalidStatus        = errors.New("invalid allocation status")
	ErrInvalidMethod        = errors.New("invalid allocation method")
	ErrInvalidDimension     = errors.New("invalid dimension")
	ErrInvalidPeriodType    = errors.New("invalid period type")
	ErrInvalidAmount        = errors.New("amount must be zero or positive")
	ErrInvalidDateRange     = errors.New("end date must not be before start date")
	ErrInvalidCurrency      = errors.New("currency must be a 3-letter ISO code")
	ErrNoEntitiesFound      = errors.New("no active entities found for dimension")
	ErrMethodNotImplemented = errors.New("allocation method is not implemented")

	ErrAttributionUnsupported = errors.New("dimension has no spend attribution")
)

// IsValidationError reports whether err is a caller input error
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput,
		ErrNameRequired,
		ErrNameTooLong,
		ErrInvalidStatus,
		ErrInvalidMethod,
		ErrInvalidDimension,
		ErrInvalidPeriodType,
		ErrInvalidAmount,
		ErrInvalidDateRange,
		ErrInvalidCurrency,
		ErrNoEntitiesFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFoundError reports whether err names a missing tenant-scoped resource
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrAllocationNotFound) ||
		errors.Is(err, ErrAllocationLineNotFound) ||
		errors.Is(err, ErrBudgetNotFound)
}
