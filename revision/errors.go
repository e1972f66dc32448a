/*
errors.go - Centralized error types for the revision engine

PURPOSE:
  All failure kinds in one place. Every engine operation that fails leaves
  state untouched and returns one of these; callers branch with errors.Is
  or the predicate helpers.

ERROR CATEGORIES:
  1. Transition errors - action not permitted from the current status/role
  2. Draft conflicts   - at-most-one-draft invariant violations
  3. Lookup errors     - no draft/revision/line for the requested operation
  4. Chain errors      - advancing an approval chain at the wrong step
  5. Workflow config   - malformed approver roster or threshold policy

USAGE:
  The API layer maps kinds to HTTP statuses:

    if revision.IsNotFound(err) { ... 404 }
    if revision.IsConflict(err) { ... 409 }
    if revision.IsInvalidTransition(err) { ... 400 }

SEE ALSO:
  - service.go: Produces these from every transition method
  - chain.go: Produces StaleStepError
*/
package revision

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when an action is not permitted from
	// the revision's current status or for the acting user's role.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConflictingDraft is returned when creating a draft for an order
	// that already has a draft-family revision.
	ErrConflictingDraft = errors.New("conflicting draft")

	// ErrNotFound is returned when no draft, revision, or line exists for
	// the requested operation.
	ErrNotFound = errors.New("not found")

	// ErrStaleApprovalStep is returned when advancing an approval chain at
	// the wrong level, on an already-acted step, or after completion.
	ErrStaleApprovalStep = errors.New("stale approval step")

	// ErrInvalidWorkflow is returned when an approver roster or threshold
	// policy is malformed (no approvers, duplicate levels, bad bounds).
	ErrInvalidWorkflow = errors.New("invalid workflow configuration")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError explains why an operation is not allowed right now.
type TransitionError struct {
	Op     string
	Status Status
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s in status %q: %s", e.Op, e.Status, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ConflictingDraftError identifies the draft that blocks creating another.
type ConflictingDraftError struct {
	OrderNumber OrderNumber
	ExistingID  RevisionID
	Status      Status
}

func (e *ConflictingDraftError) Error() string {
	return fmt.Sprintf("order %s already has a pending revision %s (status %s)",
		e.OrderNumber, e.ExistingID, e.Status)
}

func (e *ConflictingDraftError) Unwrap() error { return ErrConflictingDraft }

// NotFoundError names what was missing.
type NotFoundError struct {
	Kind string // "draft", "revision", "order", "line", "user", "workflow"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StaleStepError explains a rejected chain advance.
type StaleStepError struct {
	Level        int
	CurrentLevel int
	Reason       string
}

func (e *StaleStepError) Error() string {
	return fmt.Sprintf("cannot act at level %d (current level %d): %s",
		e.Level, e.CurrentLevel, e.Reason)
}

func (e *StaleStepError) Unwrap() error { return ErrStaleApprovalStep }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInvalidTransition returns true for state machine violations. These are
// user-visible validation failures, never crashes.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsConflict returns true when the operation lost to existing state: a
// second draft, or a chain step acted on stale information.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflictingDraft) ||
		errors.Is(err, ErrStaleApprovalStep)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
