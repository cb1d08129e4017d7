package service

import "github.com/tpm-platform/allocation-engine/internal/domain"

// MethodOption describes an allocation method and whether distribute can run it
type MethodOption struct {
	Value       domain.AllocationMethod `json:"value"`
	Implemented bool                    `json:"implemented"`
}

// DimensionOption describes a dimension and whether utilization can be tracked for it
type DimensionOption struct {
	Value            domain.Dimension `json:"value"`
	SpendAttribution bool             `json:"spendAttribution"`
}

// AllocationOptions enumerates the values accepted by allocation endpoints
type AllocationOptions struct {
	Methods     []MethodOption            `json:"methods"`
	Dimensions  []DimensionOption         `json:"dimensions"`
	PeriodTypes []domain.PeriodType       `json:"periodTypes"`
	Statuses    []domain.AllocationStatus `json:"statuses"`
}

// Options lists methods, dimensions, period types and statuses in display order.
// With legacy fallback on, every method is reported as implemented.
func (s *BudgetAllocationService) Options() *AllocationOptions {
	opts := &AllocationOptions{
		Methods:     make([]MethodOption, 0, len(domain.AllocationMethods)),
		Dimensions:  make([]DimensionOption, 0, len(domain.Dimensions)),
		PeriodTypes: append([]domain.PeriodType(nil), domain.PeriodTypes...),
		Statuses:    append([]domain.AllocationStatus(nil), domain.AllocationStatuses...),
	}
	for _, m := range domain.AllocationMethods {
		opts.Methods = append(opts.Methods, MethodOption{Value: m, Implemented: m.IsImplemented() || s.legacyFallback})
	}
	for _, d := range domain.Dimensions {
		opts.Dimensions = append(opts.Dimensions, DimensionOption{Value: d, SpendAttribution: d.HasSpendAttribution()})
	}
	return opts
}
