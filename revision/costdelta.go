package revision

import "github.com/shopspring/decimal"

// =============================================================================
// COST DELTA - Threshold evaluation between active and draft totals
// =============================================================================

// DeltaPolicy bounds how far a draft total may drift from the active total
// before approval is forced. Nil bounds are unlimited.
type DeltaPolicy struct {
	MaxAmount  *decimal.Decimal // absolute bound on |delta|
	MaxPercent *decimal.Decimal // percent bound on |percent change|
}

// CostDelta is the evaluator's verdict: signed difference, percent change
// relative to the original total, and whether either bound was exceeded.
type CostDelta struct {
	Delta            decimal.Decimal
	PercentChange    decimal.Decimal
	ExceedsThreshold bool
}

// CostDeltaFunc is the evaluator contract the service consumes. Pure and
// synchronous; injectable so deployments can swap threshold semantics.
type CostDeltaFunc func(original, current decimal.Decimal, policy DeltaPolicy) CostDelta

// EvaluateCostDelta is the default evaluator. When the original total is
// zero the percent change is reported as zero and only the absolute bound
// can flag the delta.
func EvaluateCostDelta(original, current decimal.Decimal, policy DeltaPolicy) CostDelta {
	delta := current.Sub(original)

	percent := decimal.Zero
	if !original.IsZero() {
		percent = delta.Div(original).Mul(hundred)
	}

	exceeds := false
	if policy.MaxAmount != nil && delta.Abs().GreaterThan(*policy.MaxAmount) {
		exceeds = true
	}
	if policy.MaxPercent != nil && percent.Abs().GreaterThan(*policy.MaxPercent) {
		exceeds = true
	}

	return CostDelta{Delta: delta, PercentChange: percent, ExceedsThreshold: exceeds}
}
