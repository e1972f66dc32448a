package revision_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/revision-engine/revision"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func line(num int, desc string, qty, price int64) revision.LineItem {
	return revision.LineItem{
		LineNumber:  num,
		Description: desc,
		Quantity:    decimal.NewFromInt(qty),
		UnitPrice:   decimal.NewFromInt(price),
	}
}

func fieldsOf(changes []revision.Change) []revision.ChangeField {
	out := make([]revision.ChangeField, len(changes))
	for i, c := range changes {
		out[i] = c.Field
	}
	return out
}

// =============================================================================
// CHANGE DETECTION
// =============================================================================

func TestDiffLineItems_Identical_NoChanges(t *testing.T) {
	lines := []revision.LineItem{line(1, "Brackets", 100, 32)}
	if got := revision.DiffLineItems(lines, lines); len(got) != 0 {
		t.Errorf("expected no changes, got %d", len(got))
	}
}

func TestDiffLineItems_QuantityChange(t *testing.T) {
	// GIVEN: One line whose quantity moves from 100 to 120
	// WHEN: Diffing original against proposed
	// THEN: One critical quantity change with previous and new values

	orig := []revision.LineItem{line(1, "Brackets", 100, 32)}
	prop := []revision.LineItem{line(1, "Brackets", 120, 32)}

	changes := revision.DiffLineItems(orig, prop)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	c := changes[0]
	if c.Field != revision.FieldQuantity {
		t.Errorf("expected quantity field, got %s", c.Field)
	}
	if c.PreviousValue != "100" || c.NewValue != "120" {
		t.Errorf("expected 100 -> 120, got %s -> %s", c.PreviousValue, c.NewValue)
	}
	if !c.IsCritical() {
		t.Error("quantity change should be critical")
	}
	if c.LineNumber != 1 {
		t.Errorf("expected line 1, got %d", c.LineNumber)
	}
}

func TestDiffLineItems_DescriptionChange_NonCritical(t *testing.T) {
	orig := []revision.LineItem{line(2, "Rails", 60, 48)}
	prop := []revision.LineItem{line(2, "Rails, anodized", 60, 48)}

	changes := revision.DiffLineItems(orig, prop)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].Field != revision.FieldDescription {
		t.Errorf("expected description field, got %s", changes[0].Field)
	}
	if changes[0].IsCritical() {
		t.Error("description change should be non-critical")
	}
}

func TestDiffLineItems_LineAddedAndRemoved(t *testing.T) {
	// GIVEN: Line 1 removed, line 3 added
	// WHEN: Diffing
	// THEN: Both emitted as critical composition changes

	orig := []revision.LineItem{line(1, "Brackets", 100, 32), line(2, "Rails", 60, 48)}
	prop := []revision.LineItem{line(2, "Rails", 60, 48), line(3, "Fasteners", 500, 1)}

	changes := revision.DiffLineItems(orig, prop)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Field != revision.FieldLineRemoved || changes[0].LineNumber != 1 {
		t.Errorf("expected line 1 removed first, got %s on line %d", changes[0].Field, changes[0].LineNumber)
	}
	if changes[1].Field != revision.FieldLineAdded || changes[1].LineNumber != 3 {
		t.Errorf("expected line 3 added second, got %s on line %d", changes[1].Field, changes[1].LineNumber)
	}
	for _, c := range changes {
		if !c.IsCritical() {
			t.Errorf("%s should be critical", c.Field)
		}
	}
}

func TestDiffLineItems_EmissionOrder(t *testing.T) {
	// GIVEN: A proposal that removes line 2, adds line 4, and edits
	//        quantity, price, and description on line 1
	// WHEN: Diffing
	// THEN: Removals come first, then additions, then per-line field
	//       changes in quantity, price, discount, description order

	orig := []revision.LineItem{
		line(1, "Brackets", 100, 32),
		line(2, "Rails", 60, 48),
	}
	edited := line(1, "Brackets, zinc plated", 120, 30)
	prop := []revision.LineItem{
		edited,
		line(4, "Fasteners", 500, 1),
	}

	got := fieldsOf(revision.DiffLineItems(orig, prop))
	want := []revision.ChangeField{
		revision.FieldLineRemoved,
		revision.FieldLineAdded,
		revision.FieldQuantity,
		revision.FieldUnitPrice,
		revision.FieldDescription,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d changes, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDiffLineItems_DiscountChange(t *testing.T) {
	orig := []revision.LineItem{line(1, "Brackets", 100, 32)}
	prop := []revision.LineItem{line(1, "Brackets", 100, 32)}
	prop[0].DiscountPercent = decimal.NewFromInt(5)

	changes := revision.DiffLineItems(orig, prop)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].Field != revision.FieldDiscountPercent {
		t.Errorf("expected discount field, got %s", changes[0].Field)
	}
	if changes[0].PreviousValue != "0" || changes[0].NewValue != "5" {
		t.Errorf("expected 0 -> 5, got %s -> %s", changes[0].PreviousValue, changes[0].NewValue)
	}
}

func TestDiffLineItems_EquivalentDecimals_NotAChange(t *testing.T) {
	// GIVEN: Quantities 10 and 10.0, equal in value
	// WHEN: Diffing
	// THEN: No change is emitted

	orig := []revision.LineItem{line(1, "Brackets", 10, 32)}
	prop := []revision.LineItem{line(1, "Brackets", 10, 32)}
	prop[0].Quantity = decimal.RequireFromString("10.0")

	if got := revision.DiffLineItems(orig, prop); len(got) != 0 {
		t.Errorf("expected no changes for equal decimals, got %d", len(got))
	}
}

// =============================================================================
// SUMMARIES
// =============================================================================

func TestSummarize_Empty(t *testing.T) {
	if got := revision.Summarize(nil); got != "no changes" {
		t.Errorf("expected %q, got %q", "no changes", got)
	}
}

func TestSummarize_SingularNoun(t *testing.T) {
	changes := []revision.Change{{Field: revision.FieldQuantity}}
	if got := revision.Summarize(changes); got != "1 change: 1 quantity" {
		t.Errorf("expected %q, got %q", "1 change: 1 quantity", got)
	}
}

func TestSummarize_CountsByCategoryInFixedOrder(t *testing.T) {
	// GIVEN: Two quantity changes and one price change, recorded price-first
	// WHEN: Summarizing
	// THEN: Categories follow the fixed order, not recording order

	changes := []revision.Change{
		{Field: revision.FieldUnitPrice},
		{Field: revision.FieldQuantity},
		{Field: revision.FieldQuantity},
	}
	want := "3 changes: 2 quantity, 1 price"
	if got := revision.Summarize(changes); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSummarize_MixedCategories(t *testing.T) {
	changes := []revision.Change{
		{Field: revision.FieldDescription},
		{Field: revision.FieldLineAdded},
		{Field: revision.FieldDiscountPercent},
		{Field: revision.FieldLineRemoved},
	}
	want := "4 changes: 1 discount, 1 added, 1 removed, 1 description"
	if got := revision.Summarize(changes); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSummarize_FreeFormFieldsFollowKnownCategories(t *testing.T) {
	// GIVEN: A free-form change field the detector never emits
	// WHEN: Summarizing alongside a known category
	// THEN: The free-form field is counted after the fixed order

	changes := []revision.Change{
		{Field: revision.ChangeField("delivery_terms")},
		{Field: revision.FieldQuantity},
	}
	want := "2 changes: 1 quantity, 1 delivery_terms"
	if got := revision.Summarize(changes); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
