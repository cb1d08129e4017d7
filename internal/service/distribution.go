package service

import (
	"github.com/shopspring/decimal"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/util"
)

// DistributionInput is everything the strategy needs to split a source amount
type DistributionInput struct {
	SourceAmount decimal.Decimal
	Entities     []ResolvedEntity
	Method       domain.AllocationMethod
	// Overrides pins the amount of individual entities, keyed by entity ID
	Overrides map[string]decimal.Decimal
	// PriorSpend is the historical attributed spend per entity, used by proportional
	PriorSpend map[string]decimal.Decimal
	// LegacyFallback aliases unimplemented methods to equal_split instead of rejecting them
	LegacyFallback bool
}

// DistributedShare is the strategy's output for one entity
type DistributedShare struct {
	EntityID           string
	EntityName         string
	Amount             decimal.Decimal
	Pct                decimal.Decimal
	PriorYearAmount    *decimal.Decimal
	PriorYearGrowthPct *decimal.Decimal
}

// EffectiveMethod returns the algorithm that will actually run for method
func EffectiveMethod(method domain.AllocationMethod, legacyFallback bool) (domain.AllocationMethod, error) {
	if !method.IsValid() {
		return "", domain.ErrInvalidMethod
	}
	if method.IsImplemented() {
		return method, nil
	}
	if legacyFallback {
		return domain.AllocationMethodEqualSplit, nil
	}
	return "", domain.ErrMethodNotImplemented
}

// Distribute splits in.SourceAmount across in.Entities. It is a pure function.
//
// Overrides are applied per entity and are not renormalized, so the shares may sum to
// more or less than the source amount. Equal-weight splits without overrides push the
// cent remainder left by rounding onto the last entity, so the shares sum to the source
// amount exactly. Prior-spend weighted shares are each round2(source × weight) and may
// miss the source by a few cents.
func Distribute(in DistributionInput) ([]DistributedShare, error) {
	if len(in.Entities) == 0 {
		return nil, domain.ErrNoEntitiesFound
	}
	if in.SourceAmount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	for _, amount := range in.Overrides {
		if amount.IsNegative() {
			return nil, domain.ErrInvalidAmount
		}
	}

	method, err := EffectiveMethod(in.Method, in.LegacyFallback)
	if err != nil {
		return nil, err
	}

	var shares []DistributedShare
	weighted := false
	switch method {
	case domain.AllocationMethodProportional:
		shares, weighted = distributeProportional(in)
	default:
		shares = distributeEqualSplit(in)
	}

	if !weighted && !anyOverrideApplies(in.Entities, in.Overrides) {
		absorbRemainder(shares, in.SourceAmount)
	}

	for i := range shares {
		shares[i].Pct = util.Percent(shares[i].Amount, in.SourceAmount)
		if shares[i].PriorYearAmount != nil {
			growth := growthPct(shares[i].Amount, *shares[i].PriorYearAmount)
			shares[i].PriorYearGrowthPct = &growth
		}
	}

	return shares, nil
}

func distributeEqualSplit(in DistributionInput) []DistributedShare {
	perEntity := equalShare(in.SourceAmount, len(in.Entities))

	shares := make([]DistributedShare, len(in.Entities))
	for i, e := range in.Entities {
		amount := perEntity
		if override, ok := in.Overrides[e.ID]; ok {
			amount = util.Round2(override)
		}
		shares[i] = DistributedShare{EntityID: e.ID, EntityName: e.Name, Amount: amount}
	}
	return shares
}

// distributeProportional reports whether any prior spend weighted the result
func distributeProportional(in DistributionInput) ([]DistributedShare, bool) {
	priors := make([]decimal.Decimal, len(in.Entities))
	totalPrior := decimal.Zero
	for i, e := range in.Entities {
		prior := in.PriorSpend[e.ID]
		if prior.IsNegative() {
			prior = decimal.Zero
		}
		priors[i] = prior
		totalPrior = totalPrior.Add(prior)
	}

	// Equal weighting shares the equal_split code path so both produce identical cents
	perEntity := equalShare(in.SourceAmount, len(in.Entities))

	shares := make([]DistributedShare, len(in.Entities))
	for i, e := range in.Entities {
		var amount decimal.Decimal
		if override, ok := in.Overrides[e.ID]; ok {
			amount = util.Round2(override)
		} else if totalPrior.IsZero() {
			amount = perEntity
		} else {
			amount = util.Round2(in.SourceAmount.Mul(priors[i]).Div(totalPrior))
		}

		prior := util.Round2(priors[i])
		shares[i] = DistributedShare{
			EntityID:        e.ID,
			EntityName:      e.Name,
			Amount:          amount,
			PriorYearAmount: &prior,
		}
	}
	return shares, !totalPrior.IsZero()
}

func equalShare(source decimal.Decimal, n int) decimal.Decimal {
	return util.Round2(source.Div(decimal.NewFromInt(int64(n))))
}

func anyOverrideApplies(entities []ResolvedEntity, overrides map[string]decimal.Decimal) bool {
	if len(overrides) == 0 {
		return false
	}
	for _, e := range entities {
		if _, ok := overrides[e.ID]; ok {
			return true
		}
	}
	return false
}

// absorbRemainder moves the rounding difference onto the last share. A share never goes
// below zero; for sub-cent sources any excess walks back to earlier shares.
func absorbRemainder(shares []DistributedShare, source decimal.Decimal) {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Amount)
	}
	remainder := source.Sub(total)

	for i := len(shares) - 1; i >= 0 && !remainder.IsZero(); i-- {
		adjusted := util.Round2(shares[i].Amount.Add(remainder))
		if adjusted.IsNegative() {
			remainder = adjusted
			shares[i].Amount = decimal.Zero
			continue
		}
		shares[i].Amount = adjusted
		remainder = decimal.Zero
	}
}

func growthPct(amount, prior decimal.Decimal) decimal.Decimal {
	if prior.IsZero() {
		return decimal.Zero
	}
	return util.Percent(amount.Sub(prior), prior)
}
