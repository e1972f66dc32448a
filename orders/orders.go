// Package orders implements the order-side domain around the revision engine.
// It defines order kinds, line validation, and the initial confirmed revision
// an order starts from.
package orders

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/revision-engine/revision"
)

// =============================================================================
// ORDER KINDS
// =============================================================================

// Kind distinguishes the two order families that share the revision workflow.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindSales    Kind = "sales"
)

// IsValid reports whether k is a known order kind.
func (k Kind) IsValid() bool {
	return k == KindPurchase || k == KindSales
}

// Order is the directory record a revision history hangs off.
// Line items live on revisions, not here.
type Order struct {
	Number       revision.OrderNumber
	Kind         Kind
	Counterparty string
	Currency     string
	CreatedBy    revision.UserID
	CreatedAt    time.Time
}

// =============================================================================
// LINE VALIDATION
// =============================================================================

// ErrInvalidLines indicates a line item collection that fails business
// validation. Wrapped errors carry the offending line.
var ErrInvalidLines = fmt.Errorf("invalid line items")

var oneHundred = decimal.NewFromInt(100)

// ValidateLines checks a proposed line item collection before it reaches the
// engine: at least one line, unique positive line numbers, non-empty
// descriptions, positive quantity, non-negative unit price, discount 0-100.
func ValidateLines(lines []revision.LineItem) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line item is required", ErrInvalidLines)
	}

	seen := make(map[int]bool, len(lines))
	for _, line := range lines {
		if line.LineNumber < 1 {
			return fmt.Errorf("%w: line numbers start at 1, got %d", ErrInvalidLines, line.LineNumber)
		}
		if seen[line.LineNumber] {
			return fmt.Errorf("%w: duplicate line number %d", ErrInvalidLines, line.LineNumber)
		}
		seen[line.LineNumber] = true

		if line.Description == "" {
			return fmt.Errorf("%w: line %d has no description", ErrInvalidLines, line.LineNumber)
		}
		if !line.Quantity.IsPositive() {
			return fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidLines, line.LineNumber)
		}
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %d unit price cannot be negative", ErrInvalidLines, line.LineNumber)
		}
		if line.DiscountPercent.IsNegative() || line.DiscountPercent.GreaterThan(oneHundred) {
			return fmt.Errorf("%w: line %d discount must be between 0 and 100", ErrInvalidLines, line.LineNumber)
		}
	}
	return nil
}

// =============================================================================
// INITIAL REVISION
// =============================================================================

// NewInitialRevision builds the confirmed v1.0 revision an order's history
// starts from. The returned revision carries created and confirmed audit
// entries so the order timeline has an origin.
func NewInitialRevision(o Order, lines []revision.LineItem, actor revision.User, clock revision.Clock, ids revision.IDGenerator) (*revision.Revision, error) {
	if !o.Kind.IsValid() {
		return nil, fmt.Errorf("unknown order kind %q", o.Kind)
	}
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}

	sorted := make([]revision.LineItem, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LineNumber < sorted[j].LineNumber })

	one := revision.NewVersion(1, 0)
	rev := &revision.Revision{
		ID:          revision.RevisionID(ids.NewID()),
		OrderNumber: o.Number,
		Version:     one,
		Status:      revision.StatusConfirmed,
		Lines:       sorted,
		CreatedBy:   actor.ID,
		CreatedAt:   clock.Now(),
		BaseVersion: one,
	}
	rev.BaseTotal = rev.Total()

	rev.Audit = []revision.AuditEntry{
		{
			ID:          ids.NewID(),
			OrderNumber: o.Number,
			RevisionID:  rev.ID,
			Action:      revision.AuditCreated,
			Status:      revision.StatusDraft,
			At:          rev.CreatedAt,
			Actor:       actor.ID,
			Role:        actor.Role,
		},
		{
			ID:          ids.NewID(),
			OrderNumber: o.Number,
			RevisionID:  rev.ID,
			Action:      revision.AuditConfirmed,
			Status:      revision.StatusConfirmed,
			At:          clock.Now(),
			Actor:       actor.ID,
			Role:        actor.Role,
		},
	}

	return rev, nil
}
