/*
Package revision implements the revision and approval workflow engine for
confirmed orders.

PURPOSE:
  A confirmed order (purchase or sales) is amended by opening a draft
  revision, editing its line items, routing the draft through a multi-level
  approval chain, and confirming the result as the order's new active
  revision. This package owns that lifecycle: status transitions, change
  detection and classification, version bumps, approval chain routing,
  permission computation, and the append-only audit log that timeline
  displays replay.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status: The revision workflow states and their legal transitions
  - LineItem: One order line with decimal quantity/price/discount math
  - Change: An atomic recorded edit, classified critical or non-critical
  - User/Approver: Actors; approvers carry a chain level
  - Revision: The aggregate the Service mutates

DESIGN PRINCIPLES:
  1. Single owner: only the Service mutates a Revision; everyone else
     holds read-only snapshots
  2. Audit canonical: display timestamps (submitted/approved/sent/...)
     are derived from the audit log, never stored alongside it
  3. Precision: decimal.Decimal for all money and quantity math
  4. Type safety: typed string identifiers prevent mixing order numbers,
     revision ids, and user ids

SEE ALSO:
  - diff.go: Change detection between line-item collections
  - chain.go: Approval chain construction and advancement
  - service.go: The lifecycle state machine
  - store.go: Persistence contract and audit entries
*/
package revision

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RevisionID string
type OrderNumber string
type UserID string
type ChangeID string

// =============================================================================
// STATUS - Workflow states and legal transitions
// =============================================================================

type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusSent            Status = "sent"
	StatusConfirmed       Status = "confirmed"
)

// allowedTransitions is the edge set of the workflow. The draft to approved
// edge exists only for the skip-approval fast path; rejected re-enters the
// workflow through resubmission.
var allowedTransitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval, StatusApproved},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusRejected:        {StatusPendingApproval},
	StatusApproved:        {StatusSent},
	StatusSent:            {StatusConfirmed},
	StatusConfirmed:       {},
}

// CanTransition reports whether from -> to is a legal workflow edge.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValid reports whether s is one of the known workflow states.
func (s Status) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsDraftFamily reports whether s belongs to the pending-draft family:
// every state except confirmed. At most one revision per order may be in
// a draft-family status at a time.
func (s Status) IsDraftFamily() bool {
	return s.IsValid() && s != StatusConfirmed
}

// IsEditable reports whether line edits and change recording are allowed.
func (s Status) IsEditable() bool {
	return s == StatusDraft || s == StatusRejected
}

// IsTerminal reports whether no further transition leaves s.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0 && s.IsValid()
}

// =============================================================================
// LINE ITEM - One order line, identified by its line number
// =============================================================================

type LineItem struct {
	LineNumber      int
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

func (l LineItem) Subtotal() decimal.Decimal { return l.Quantity.Mul(l.UnitPrice) }

func (l LineItem) DiscountAmount() decimal.Decimal {
	return l.Subtotal().Mul(l.DiscountPercent).Div(hundred)
}

func (l LineItem) NetTotal() decimal.Decimal { return l.Subtotal().Sub(l.DiscountAmount()) }

// Total sums the net totals of a line-item collection.
func Total(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.NetTotal())
	}
	return total
}

// =============================================================================
// CHANGE - One atomic recorded edit
// =============================================================================

type EditType string

const (
	EditCritical    EditType = "critical"
	EditNonCritical EditType = "non-critical"
)

type ChangeField string

const (
	FieldQuantity        ChangeField = "quantity"
	FieldUnitPrice       ChangeField = "unit_price"
	FieldDiscountPercent ChangeField = "discount_percent"
	FieldDescription     ChangeField = "description"
	FieldLineAdded       ChangeField = "line_added"
	FieldLineRemoved     ChangeField = "line_removed"
)

// Classify maps a change field to its severity. Quantity, price, discount,
// and line composition edits are critical; everything else is non-critical.
func Classify(field ChangeField) EditType {
	switch field {
	case FieldQuantity, FieldUnitPrice, FieldDiscountPercent, FieldLineAdded, FieldLineRemoved:
		return EditCritical
	default:
		return EditNonCritical
	}
}

type Change struct {
	ID            ChangeID
	Field         ChangeField
	LineNumber    int
	PreviousValue string
	NewValue      string
	EditType      EditType
	ChangedBy     UserID
	ChangedAt     time.Time
	Description   string
}

func (c Change) IsCritical() bool { return c.EditType == EditCritical }

// AnyCritical reports whether any change in the list is critical.
func AnyCritical(changes []Change) bool {
	for _, c := range changes {
		if c.IsCritical() {
			return true
		}
	}
	return false
}

// =============================================================================
// ACTORS - Users and approvers
// =============================================================================

type Role string

const (
	RoleSalesRep    Role = "sales_rep"
	RoleProcurement Role = "procurement"
	RoleManager     Role = "manager"
	RoleDirector    Role = "director"
	RoleAdmin       Role = "admin"
)

type User struct {
	ID            UserID
	Name          string
	Role          Role
	IsApprover    bool
	ApproverLevel int // 0 when not an approver
}

// Approver is the chain-step view of a user: one approver per level.
type Approver struct {
	ID    UserID
	Name  string
	Role  Role
	Level int
}

// AsApprover projects a user onto its chain-step form.
func (u User) AsApprover() Approver {
	return Approver{ID: u.ID, Name: u.Name, Role: u.Role, Level: u.ApproverLevel}
}

// =============================================================================
// WORKFLOW CONFIG - Approver roster plus threshold policy
// =============================================================================

// WorkflowConfig is data, not code: the ordered approver roster and the
// cost-delta threshold policy that decide whether and how a draft is
// routed for approval. Parsed from JSON by the factory package.
type WorkflowConfig struct {
	Name      string
	Approvers []Approver
	Policy    DeltaPolicy
}

// ApproverAt returns the configured approver for a level, if any.
func (w WorkflowConfig) ApproverAt(level int) (Approver, bool) {
	for _, a := range w.Approvers {
		if a.Level == level {
			return a, true
		}
	}
	return Approver{}, false
}

// =============================================================================
// REVISION - The unit of work
// =============================================================================

// Revision is one version of an order's content. While its status is in
// the draft family it is the order's single mutable pending draft; once
// confirmed it is immutable history and, if latest, the active revision.
//
// BaseVersion and BaseTotal snapshot the active revision the draft was
// seeded from: the version policy recomputes Version from BaseVersion on
// every recorded change, and the cost-delta evaluator compares BaseTotal
// against the draft's current total.
type Revision struct {
	ID             RevisionID
	OrderNumber    OrderNumber
	Version        Version
	Status         Status
	Lines          []LineItem
	Changes        []Change
	ChangesSummary string
	Chain          *ApprovalChain  // current routing, nil unless submitted
	History        []ApprovalCycle // one cycle per submission attempt
	Audit          []AuditEntry    // append-only, canonical record

	CreatedBy UserID
	CreatedAt time.Time

	BaseVersion Version
	BaseTotal   decimal.Decimal
}

// Total is the draft's current net total across all lines.
func (r *Revision) Total() decimal.Decimal { return Total(r.Lines) }

// HasCriticalChange reports whether any recorded change is critical.
func (r *Revision) HasCriticalChange() bool { return AnyCritical(r.Changes) }

// CurrentCycle returns the most recent approval cycle, or nil before the
// first submission.
func (r *Revision) CurrentCycle() *ApprovalCycle {
	if len(r.History) == 0 {
		return nil
	}
	return &r.History[len(r.History)-1]
}

// HasUnsubmittedChanges reports whether changes were recorded after the
// last submission attempt (or at all, for a never-submitted draft). A
// rejected revision cannot be resubmitted as-is.
func (r *Revision) HasUnsubmittedChanges() bool {
	submitted := 0
	if cy := r.CurrentCycle(); cy != nil {
		submitted = cy.ChangeCount
	}
	return len(r.Changes) > submitted
}

// LineAt returns the line with the given number, or nil.
func (r *Revision) LineAt(lineNumber int) *LineItem {
	for i := range r.Lines {
		if r.Lines[i].LineNumber == lineNumber {
			return &r.Lines[i]
		}
	}
	return nil
}

// Clone deep-copies the revision so callers can mutate a working copy and
// discard it on failure without touching the original.
func (r *Revision) Clone() *Revision {
	if r == nil {
		return nil
	}
	out := *r
	out.Lines = append([]LineItem(nil), r.Lines...)
	out.Changes = append([]Change(nil), r.Changes...)
	out.Chain = r.Chain.Clone()
	if r.History != nil {
		out.History = make([]ApprovalCycle, len(r.History))
		for i := range r.History {
			out.History[i] = r.History[i].Clone()
		}
	}
	out.Audit = append([]AuditEntry(nil), r.Audit...)
	return &out
}

// =============================================================================
// DERIVED TIMESTAMPS - Read from the audit log, never stored twice
// =============================================================================

func (r *Revision) auditTime(actions ...AuditAction) *time.Time {
	if e := r.lastAudit(actions...); e != nil {
		t := e.At
		return &t
	}
	return nil
}

func (r *Revision) auditActor(actions ...AuditAction) UserID {
	if e := r.lastAudit(actions...); e != nil {
		return e.Actor
	}
	return ""
}

func (r *Revision) lastAudit(actions ...AuditAction) *AuditEntry {
	for i := len(r.Audit) - 1; i >= 0; i-- {
		for _, a := range actions {
			if r.Audit[i].Action == a {
				return &r.Audit[i]
			}
		}
	}
	return nil
}

func (r *Revision) SubmittedAt() *time.Time { return r.auditTime(AuditSubmitted) }
func (r *Revision) SubmittedBy() UserID     { return r.auditActor(AuditSubmitted) }
func (r *Revision) ApprovedAt() *time.Time  { return r.auditTime(AuditApproved, AuditApprovalSkipped) }
func (r *Revision) RejectedAt() *time.Time  { return r.auditTime(AuditRejected, AuditChangesRequested) }
func (r *Revision) SentAt() *time.Time      { return r.auditTime(AuditSent) }
func (r *Revision) SentBy() UserID          { return r.auditActor(AuditSent) }
func (r *Revision) ConfirmedAt() *time.Time { return r.auditTime(AuditConfirmed) }
func (r *Revision) ConfirmedBy() UserID     { return r.auditActor(AuditConfirmed) }
