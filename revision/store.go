/*
store.go - Persistence contract and the append-only audit log

PURPOSE:
  Defines the interface between the engine and the database, plus the
  audit entry type that is the canonical record of what happened to an
  order. Different implementations back this with SQLite or memory.

APPEND-ONLY CONTRACT:
  Audit rows are never updated or deleted. SaveRevision upserts the
  working revision row and appends any audit entries not yet persisted,
  atomically; DeleteRevision removes the revision row but leaves its
  audit rows behind, so an order's timeline still shows discarded
  attempts. Timeline displays and status reconstruction replay the audit
  log; they never trust cached fields.

IMPLEMENTATIONS:
  - store/memory.go: In-memory, for tests and demos
  - store/sqlite (top level): SQLite, production shape

SEE ALSO:
  - service.go: The only caller of the mutating methods
  - types.go: Revision derives its display timestamps from AuditEntry
*/
package revision

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Revision persistence
// =============================================================================

// Store persists revisions and their audit rows. Implementations must make
// SaveRevision atomic: the revision upsert and the audit appends land
// together or not at all.
type Store interface {
	// SaveRevision upserts the revision and appends its new audit entries.
	SaveRevision(ctx context.Context, rev *Revision) error

	// GetDraft returns the order's draft-family revision, or (nil, nil)
	// when the order has no pending draft.
	GetDraft(ctx context.Context, order OrderNumber) (*Revision, error)

	// GetRevision returns a revision by id.
	GetRevision(ctx context.Context, id RevisionID) (*Revision, error)

	// DeleteRevision removes the revision row. Audit rows are retained;
	// any unsaved entries on rev are appended first.
	DeleteRevision(ctx context.Context, rev *Revision) error

	// History returns the order's confirmed revisions, version ascending.
	History(ctx context.Context, order OrderNumber) ([]*Revision, error)

	// Active returns the order's latest confirmed revision, or (nil, nil)
	// when the order has never been confirmed.
	Active(ctx context.Context, order OrderNumber) (*Revision, error)

	// Timeline returns every audit entry ever recorded for the order,
	// oldest first, including entries from discarded revisions.
	Timeline(ctx context.Context, order OrderNumber) ([]AuditEntry, error)
}

// =============================================================================
// AUDIT LOG - Canonical record of every action
// =============================================================================

type AuditAction string

const (
	AuditCreated          AuditAction = "created"
	AuditSubmitted        AuditAction = "submitted"
	AuditStepApproved     AuditAction = "step_approved" // intermediate chain level, no status change
	AuditApproved         AuditAction = "approved"
	AuditRejected         AuditAction = "rejected"
	AuditChangesRequested AuditAction = "changes_requested"
	AuditApprovalSkipped  AuditAction = "approval_skipped"
	AuditSent             AuditAction = "sent"
	AuditConfirmed        AuditAction = "confirmed"
	AuditDiscarded        AuditAction = "discarded"
)

// AuditEntry records who did what when. Status is the revision status
// after the action, for display; reconstruction goes through the action
// (see ReplayStatus) so the log stays self-proving.
type AuditEntry struct {
	ID          string
	OrderNumber OrderNumber
	RevisionID  RevisionID
	Action      AuditAction
	Status      Status
	At          time.Time
	Actor       UserID
	Role        Role
	Notes       string
}

// statusAfter maps status-bearing actions to the status they produce.
// Actions absent from the map (step_approved, discarded) change nothing.
var statusAfter = map[AuditAction]Status{
	AuditCreated:          StatusDraft,
	AuditSubmitted:        StatusPendingApproval,
	AuditApproved:         StatusApproved,
	AuditRejected:         StatusRejected,
	AuditChangesRequested: StatusRejected,
	AuditApprovalSkipped:  StatusApproved,
	AuditSent:             StatusSent,
	AuditConfirmed:        StatusConfirmed,
}

// ReplayStatus reconstructs a revision's final status from its audit
// entries alone, in order. Returns false when no entry carries a status,
// which for a well-formed log only happens when the log is empty.
func ReplayStatus(entries []AuditEntry) (Status, bool) {
	var status Status
	found := false
	for _, e := range entries {
		if next, ok := statusAfter[e.Action]; ok {
			status = next
			found = true
		}
	}
	return status, found
}
