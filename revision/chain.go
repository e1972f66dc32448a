/*
chain.go - Approval chain construction and advancement

PURPOSE:
  An approval chain routes a submitted draft through its approvers one
  level at a time. This file owns the chain data model and the only two
  operations on it: building a fresh chain from the configured roster and
  advancing it with one approver's terminal decision.

INVARIANTS:
  - currentLevel always points at the lowest pending level
  - the chain is complete iff every step is approved (outcome approved)
    or any step is rejected (outcome rejected, remaining levels
    short-circuited)
  - a completed chain never advances again; resubmission builds a brand
    new chain and the old one stays frozen on its approval cycle

SEE ALSO:
  - service.go: Builds a chain on submit, advances it on approve/reject
  - types.go: Approver
*/
package revision

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// STEPS AND OUTCOMES
// =============================================================================

type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
)

// StepAction is the decision an approver took. Reject and request-changes
// both mark the step rejected; the action keeps them apart for the audit
// trail and the cycle outcome.
type StepAction string

const (
	ActionApprove        StepAction = "approve"
	ActionReject         StepAction = "reject"
	ActionRequestChanges StepAction = "request_changes"
)

type ApprovalStep struct {
	Level    int
	Approver Approver
	Status   StepStatus
	Action   StepAction // empty until acted
	Notes    string
	ActionBy UserID
	ActionAt *time.Time
}

type ChainOutcome string

const (
	OutcomeApproved ChainOutcome = "approved"
	OutcomeRejected ChainOutcome = "rejected"
)

// =============================================================================
// APPROVAL CHAIN
// =============================================================================

type ApprovalChain struct {
	ID           string
	RevisionID   RevisionID
	Steps        []ApprovalStep // ordered by level ascending
	CurrentLevel int
	IsComplete   bool
	Outcome      ChainOutcome // empty until complete
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// BuildChain creates a fresh chain with one pending step per approver,
// sorted by level ascending. Levels need not be contiguous but must be
// unique and positive.
func BuildChain(ids IDGenerator, revisionID RevisionID, approvers []Approver, at time.Time) (*ApprovalChain, error) {
	if len(approvers) == 0 {
		return nil, fmt.Errorf("%w: no approvers configured", ErrInvalidWorkflow)
	}

	sorted := append([]Approver(nil), approvers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	steps := make([]ApprovalStep, 0, len(sorted))
	seen := make(map[int]bool, len(sorted))
	for _, a := range sorted {
		if a.Level < 1 {
			return nil, fmt.Errorf("%w: approver %s has level %d, want >= 1", ErrInvalidWorkflow, a.ID, a.Level)
		}
		if seen[a.Level] {
			return nil, fmt.Errorf("%w: duplicate approver level %d", ErrInvalidWorkflow, a.Level)
		}
		seen[a.Level] = true
		steps = append(steps, ApprovalStep{Level: a.Level, Approver: a, Status: StepPending})
	}

	return &ApprovalChain{
		ID:           ids.NewID(),
		RevisionID:   revisionID,
		Steps:        steps,
		CurrentLevel: steps[0].Level,
		StartedAt:    at,
	}, nil
}

// Advance records one approver's decision at the given level.
//
// Preconditions: the chain is not complete, level equals CurrentLevel, and
// that step is still pending; otherwise a StaleStepError is returned and
// the chain is left untouched. Each decision is terminal for its step.
func (c *ApprovalChain) Advance(level int, action StepAction, actor UserID, notes string, at time.Time) error {
	if c.IsComplete {
		return &StaleStepError{Level: level, CurrentLevel: c.CurrentLevel,
			Reason: fmt.Sprintf("chain already complete with outcome %q", c.Outcome)}
	}
	if level != c.CurrentLevel {
		return &StaleStepError{Level: level, CurrentLevel: c.CurrentLevel,
			Reason: "approvals must proceed in level order"}
	}
	step := c.StepAt(level)
	if step == nil {
		return &StaleStepError{Level: level, CurrentLevel: c.CurrentLevel,
			Reason: "no step at this level"}
	}
	if step.Status != StepPending {
		return &StaleStepError{Level: level, CurrentLevel: c.CurrentLevel,
			Reason: fmt.Sprintf("step already %s", step.Status)}
	}

	acted := at
	step.Action = action
	step.Notes = notes
	step.ActionBy = actor
	step.ActionAt = &acted

	switch action {
	case ActionApprove:
		step.Status = StepApproved
		next, ok := c.nextPendingLevel()
		if !ok {
			c.complete(OutcomeApproved, at)
			return nil
		}
		c.CurrentLevel = next
	case ActionReject, ActionRequestChanges:
		step.Status = StepRejected
		c.complete(OutcomeRejected, at)
	default:
		step.Action = ""
		step.Notes = ""
		step.ActionBy = ""
		step.ActionAt = nil
		return &StaleStepError{Level: level, CurrentLevel: c.CurrentLevel,
			Reason: fmt.Sprintf("unknown action %q", action)}
	}
	return nil
}

func (c *ApprovalChain) complete(outcome ChainOutcome, at time.Time) {
	done := at
	c.IsComplete = true
	c.Outcome = outcome
	c.CompletedAt = &done
}

func (c *ApprovalChain) nextPendingLevel() (int, bool) {
	for _, s := range c.Steps {
		if s.Status == StepPending {
			return s.Level, true
		}
	}
	return 0, false
}

// CurrentStep returns the step at CurrentLevel, or nil once complete.
func (c *ApprovalChain) CurrentStep() *ApprovalStep {
	if c == nil || c.IsComplete {
		return nil
	}
	return c.StepAt(c.CurrentLevel)
}

// StepAt returns the step with the given level, or nil.
func (c *ApprovalChain) StepAt(level int) *ApprovalStep {
	for i := range c.Steps {
		if c.Steps[i].Level == level {
			return &c.Steps[i]
		}
	}
	return nil
}

// Clone deep-copies the chain.
func (c *ApprovalChain) Clone() *ApprovalChain {
	if c == nil {
		return nil
	}
	out := *c
	out.Steps = make([]ApprovalStep, len(c.Steps))
	for i, s := range c.Steps {
		out.Steps[i] = s
		if s.ActionAt != nil {
			t := *s.ActionAt
			out.Steps[i].ActionAt = &t
		}
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// =============================================================================
// APPROVAL CYCLE - One submission attempt, retained in history
// =============================================================================

type CycleOutcome string

const (
	CyclePending          CycleOutcome = "pending"
	CycleApproved         CycleOutcome = "approved"
	CycleRejected         CycleOutcome = "rejected"
	CycleChangesRequested CycleOutcome = "changes_requested"
)

// ApprovalCycle records one submit-to-resolution attempt. The chain models
// the routing of that attempt; the cycle list on a revision models the
// history of attempts across rejection and resubmission.
//
// While the cycle is pending its routing lives on Revision.Chain; the
// chain is attached here when the cycle resolves, frozen. ChangeCount is
// the size of the change log at submission: resubmitting requires at
// least one change recorded after it.
type ApprovalCycle struct {
	ID            string
	Sequence      int // 1-based submission count for the revision
	SubmittedBy   UserID
	SubmittedAt   time.Time
	SubmitNotes   string
	ChangeCount   int
	Outcome       CycleOutcome
	DecidedBy     UserID
	DecidedAt     *time.Time
	DecisionNotes string
	Chain         *ApprovalChain
}

func (cy ApprovalCycle) Clone() ApprovalCycle {
	out := cy
	out.Chain = cy.Chain.Clone()
	if cy.DecidedAt != nil {
		t := *cy.DecidedAt
		out.DecidedAt = &t
	}
	return out
}
