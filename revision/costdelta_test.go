package revision_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/revision-engine/revision"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func moneyPtr(s string) *decimal.Decimal {
	d := money(s)
	return &d
}

// =============================================================================
// DELTA AND PERCENT MATH
// =============================================================================

func TestEvaluateCostDelta_Increase(t *testing.T) {
	// GIVEN: Original total 6080, current total 6720
	// WHEN: Evaluating with no bounds
	// THEN: Delta 640, percent ~10.53, threshold not exceeded

	got := revision.EvaluateCostDelta(money("6080"), money("6720"), revision.DeltaPolicy{})
	if !got.Delta.Equal(money("640")) {
		t.Errorf("expected delta 640, got %s", got.Delta)
	}
	if got.PercentChange.StringFixed(2) != "10.53" {
		t.Errorf("expected percent 10.53, got %s", got.PercentChange.StringFixed(2))
	}
	if got.ExceedsThreshold {
		t.Error("no bounds configured, nothing should be exceeded")
	}
}

func TestEvaluateCostDelta_Decrease_SignedDelta(t *testing.T) {
	got := revision.EvaluateCostDelta(money("1000"), money("900"), revision.DeltaPolicy{})
	if !got.Delta.Equal(money("-100")) {
		t.Errorf("expected delta -100, got %s", got.Delta)
	}
	if !got.PercentChange.Equal(money("-10")) {
		t.Errorf("expected percent -10, got %s", got.PercentChange)
	}
}

func TestEvaluateCostDelta_ZeroOriginal(t *testing.T) {
	// GIVEN: An original total of zero
	// WHEN: Evaluating a draft total of 50
	// THEN: Percent change is reported as zero; only the absolute bound can flag

	policy := revision.DeltaPolicy{MaxPercent: moneyPtr("1")}
	got := revision.EvaluateCostDelta(decimal.Zero, money("50"), policy)
	if !got.PercentChange.IsZero() {
		t.Errorf("expected zero percent for zero original, got %s", got.PercentChange)
	}
	if got.ExceedsThreshold {
		t.Error("percent bound must not flag when the original total is zero")
	}

	policy.MaxAmount = moneyPtr("40")
	got = revision.EvaluateCostDelta(decimal.Zero, money("50"), policy)
	if !got.ExceedsThreshold {
		t.Error("absolute bound should still flag a 50 delta against a 40 cap")
	}
}

// =============================================================================
// THRESHOLD BOUNDS
// =============================================================================

func TestEvaluateCostDelta_AbsoluteBound(t *testing.T) {
	policy := revision.DeltaPolicy{MaxAmount: moneyPtr("500")}

	within := revision.EvaluateCostDelta(money("6080"), money("6580"), policy)
	if within.ExceedsThreshold {
		t.Error("delta of exactly 500 should not exceed a 500 cap")
	}

	over := revision.EvaluateCostDelta(money("6080"), money("6580.01"), policy)
	if !over.ExceedsThreshold {
		t.Error("delta of 500.01 should exceed a 500 cap")
	}
}

func TestEvaluateCostDelta_AbsoluteBound_UsesMagnitude(t *testing.T) {
	// GIVEN: A draft that lowers the total by more than the cap
	// WHEN: Evaluating
	// THEN: The bound flags decreases too

	policy := revision.DeltaPolicy{MaxAmount: moneyPtr("500")}
	got := revision.EvaluateCostDelta(money("6080"), money("5000"), policy)
	if !got.ExceedsThreshold {
		t.Error("a 1080 decrease should exceed a 500 cap")
	}
}

func TestEvaluateCostDelta_PercentBound(t *testing.T) {
	policy := revision.DeltaPolicy{MaxPercent: moneyPtr("10")}

	within := revision.EvaluateCostDelta(money("1000"), money("1100"), policy)
	if within.ExceedsThreshold {
		t.Error("exactly 10 percent should not exceed a 10 percent cap")
	}

	over := revision.EvaluateCostDelta(money("1000"), money("1101"), policy)
	if !over.ExceedsThreshold {
		t.Error("10.1 percent should exceed a 10 percent cap")
	}
}

func TestEvaluateCostDelta_EitherBoundFlags(t *testing.T) {
	// GIVEN: Both bounds configured, only the percent bound crossed
	// WHEN: Evaluating
	// THEN: The delta is flagged

	policy := revision.DeltaPolicy{MaxAmount: moneyPtr("1000"), MaxPercent: moneyPtr("5")}
	got := revision.EvaluateCostDelta(money("1000"), money("1100"), policy)
	if !got.ExceedsThreshold {
		t.Error("crossing the percent bound alone should flag")
	}
}

func TestEvaluateCostDelta_NilBoundsNeverFlag(t *testing.T) {
	got := revision.EvaluateCostDelta(money("100"), money("1000000"), revision.DeltaPolicy{})
	if got.ExceedsThreshold {
		t.Error("nil bounds are unlimited")
	}
}
