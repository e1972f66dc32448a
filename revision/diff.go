/*
diff.go - Change detection between line-item collections

PURPOSE:
  Given the draft's current lines and a proposed collection, emit the list
  of typed Change records and classify each as critical or non-critical.
  Pure: the caller (service.go) stamps ids, actor, and timestamps before
  appending the result to the draft's change log.

EMISSION ORDER CONTRACT:
  Removals by line number ascending, then additions by line number
  ascending, then per-line field changes in line-number order; within one
  line: quantity, unit price, discount percent, description. Change
  summaries are deterministic because this ordering is.

SEE ALSO:
  - types.go: Change, ChangeField, Classify
  - service.go: UpdateLines stamps and appends the emitted changes
*/
package revision

import (
	"fmt"
	"sort"
)

// =============================================================================
// CHANGE DETECTOR
// =============================================================================

// DiffLineItems compares two line-item collections keyed by line number and
// returns the ordered list of changes. ID, ChangedBy, and ChangedAt are left
// zero for the caller to stamp.
func DiffLineItems(original, proposed []LineItem) []Change {
	origByLine := make(map[int]LineItem, len(original))
	for _, l := range original {
		origByLine[l.LineNumber] = l
	}
	propByLine := make(map[int]LineItem, len(proposed))
	for _, l := range proposed {
		propByLine[l.LineNumber] = l
	}

	var changes []Change

	// Removals first.
	var removed []int
	for num := range origByLine {
		if _, ok := propByLine[num]; !ok {
			removed = append(removed, num)
		}
	}
	sort.Ints(removed)
	for _, num := range removed {
		line := origByLine[num]
		changes = append(changes, Change{
			Field:         FieldLineRemoved,
			LineNumber:    num,
			PreviousValue: line.Description,
			EditType:      EditCritical,
			Description:   fmt.Sprintf("line %d removed", num),
		})
	}

	// Then additions.
	var added []int
	for num := range propByLine {
		if _, ok := origByLine[num]; !ok {
			added = append(added, num)
		}
	}
	sort.Ints(added)
	for _, num := range added {
		line := propByLine[num]
		changes = append(changes, Change{
			Field:       FieldLineAdded,
			LineNumber:  num,
			NewValue:    line.Description,
			EditType:    EditCritical,
			Description: fmt.Sprintf("line %d added", num),
		})
	}

	// Then field-by-field changes on lines present in both.
	var common []int
	for num := range origByLine {
		if _, ok := propByLine[num]; ok {
			common = append(common, num)
		}
	}
	sort.Ints(common)
	for _, num := range common {
		before, after := origByLine[num], propByLine[num]
		changes = append(changes, diffLine(before, after)...)
	}

	return changes
}

func diffLine(before, after LineItem) []Change {
	num := before.LineNumber
	var changes []Change

	if !before.Quantity.Equal(after.Quantity) {
		changes = append(changes, fieldChange(FieldQuantity, num,
			before.Quantity.String(), after.Quantity.String()))
	}
	if !before.UnitPrice.Equal(after.UnitPrice) {
		changes = append(changes, fieldChange(FieldUnitPrice, num,
			before.UnitPrice.String(), after.UnitPrice.String()))
	}
	if !before.DiscountPercent.Equal(after.DiscountPercent) {
		changes = append(changes, fieldChange(FieldDiscountPercent, num,
			before.DiscountPercent.String(), after.DiscountPercent.String()))
	}
	if before.Description != after.Description {
		changes = append(changes, fieldChange(FieldDescription, num,
			before.Description, after.Description))
	}
	return changes
}

func fieldChange(field ChangeField, lineNumber int, prev, next string) Change {
	return Change{
		Field:         field,
		LineNumber:    lineNumber,
		PreviousValue: prev,
		NewValue:      next,
		EditType:      Classify(field),
		Description:   fmt.Sprintf("%s changed from %s to %s on line %d", fieldLabel(field), prev, next, lineNumber),
	}
}

// =============================================================================
// CHANGE SUMMARY
// =============================================================================

// summaryOrder fixes the category order of summaries so they are stable
// for tests and timeline displays.
var summaryOrder = []ChangeField{
	FieldQuantity,
	FieldUnitPrice,
	FieldDiscountPercent,
	FieldLineAdded,
	FieldLineRemoved,
	FieldDescription,
}

func fieldLabel(field ChangeField) string {
	switch field {
	case FieldQuantity:
		return "quantity"
	case FieldUnitPrice:
		return "price"
	case FieldDiscountPercent:
		return "discount"
	case FieldLineAdded:
		return "added"
	case FieldLineRemoved:
		return "removed"
	case FieldDescription:
		return "description"
	default:
		return string(field)
	}
}

// Summarize regenerates the human-readable aggregate for a change list,
// e.g. "3 changes: 2 quantity, 1 price".
func Summarize(changes []Change) string {
	if len(changes) == 0 {
		return "no changes"
	}
	counts := make(map[ChangeField]int)
	for _, c := range changes {
		counts[c.Field]++
	}
	noun := "changes"
	if len(changes) == 1 {
		noun = "change"
	}
	out := fmt.Sprintf("%d %s: ", len(changes), noun)
	first := true
	emit := func(field ChangeField, n int) {
		if !first {
			out += ", "
		}
		out += fmt.Sprintf("%d %s", n, fieldLabel(field))
		first = false
	}
	for _, field := range summaryOrder {
		if n := counts[field]; n > 0 {
			emit(field, n)
			delete(counts, field)
		}
	}
	// Fields outside the fixed order (free-form change records) follow in
	// first-seen order.
	for _, c := range changes {
		if n := counts[c.Field]; n > 0 {
			emit(c.Field, n)
			delete(counts, c.Field)
		}
	}
	return out
}
