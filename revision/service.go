/*
service.go - The revision lifecycle state machine

PURPOSE:
  The Service is the single owner of revision state for every order. All
  mutation goes through the transition methods below; the UI layer is a
  thin subscriber that re-reads computed permissions after each call.

WORKFLOW:

  createDraft ──▶ draft ──submit──▶ pending_approval ──approve*──▶ approved
                    │                      │                          │
                    │                   reject /                    send
                    │               request changes                   │
                    │                      ▼                          ▼
                    │                  rejected ──(edit, resubmit)   sent
                    │                                                 │
                    └──skip approval (no critical change,          confirm
                       delta under threshold)──▶ approved ──▶ sent    │
                                                                      ▼
                                                                  confirmed

CONTRACTS:
  - Per-order serialization: one mutex per order number; mutating calls on
    the same order never interleave
  - No partial mutation: every operation works on a deep copy and persists
    it only after all checks pass; a typed failure leaves state untouched
  - Audit first: every status change appends exactly one audit entry in
    the same save
  - Events after commit: publishing is fire-and-forget; failures are
    logged and swallowed, never surfaced as transition failures

SEE ALSO:
  - permission.go: The rules every transition re-checks
  - chain.go: Chain construction and advancement
  - store.go: Persistence contract
*/
package revision

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store    Store
	clock    Clock
	ids      IDGenerator
	evaluate CostDeltaFunc
	pub      Publisher
	log      zerolog.Logger

	mu       sync.Mutex
	locks    map[OrderNumber]*sync.Mutex
	workflow WorkflowConfig
}

type Option func(*Service)

func WithClock(c Clock) Option            { return func(s *Service) { s.clock = c } }
func WithIDGenerator(g IDGenerator) Option { return func(s *Service) { s.ids = g } }
func WithCostDelta(f CostDeltaFunc) Option { return func(s *Service) { s.evaluate = f } }
func WithPublisher(p Publisher) Option     { return func(s *Service) { s.pub = p } }
func WithLogger(l zerolog.Logger) Option   { return func(s *Service) { s.log = l } }

func NewService(store Store, workflow WorkflowConfig, opts ...Option) *Service {
	s := &Service{
		store:    store,
		clock:    SystemClock{},
		ids:      UUIDGenerator{},
		evaluate: EvaluateCostDelta,
		log:      zerolog.Nop(),
		locks:    make(map[OrderNumber]*sync.Mutex),
		workflow: workflow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workflow returns a snapshot of the current workflow configuration.
func (s *Service) Workflow() WorkflowConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.workflow
	cfg.Approvers = append([]Approver(nil), s.workflow.Approvers...)
	return cfg
}

// SetWorkflow replaces the workflow configuration. Drafts already in
// flight keep their built chains; the next submission uses the new roster.
func (s *Service) SetWorkflow(cfg WorkflowConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.Approvers = append([]Approver(nil), cfg.Approvers...)
	s.workflow = cfg
}

// lockOrder serializes mutating operations per order.
func (s *Service) lockOrder(order OrderNumber) func() {
	s.mu.Lock()
	l, ok := s.locks[order]
	if !ok {
		l = &sync.Mutex{}
		s.locks[order] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// =============================================================================
// DRAFT CREATION AND EDITING
// =============================================================================

// CreateDraft opens a new draft seeded from the order's active revision.
// Fails with ConflictingDraftError while any draft-family revision exists.
func (s *Service) CreateDraft(ctx context.Context, order OrderNumber, actor User) (*Revision, error) {
	unlock := s.lockOrder(order)
	defer unlock()

	existing, err := s.store.GetDraft(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if existing != nil {
		return nil, &ConflictingDraftError{OrderNumber: order, ExistingID: existing.ID, Status: existing.Status}
	}

	active, err := s.store.Active(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load active revision: %w", err)
	}
	if active == nil {
		return nil, &NotFoundError{Kind: "active revision", Key: string(order)}
	}

	if actor.IsApprover {
		return nil, &TransitionError{Op: "create draft", Status: active.Status,
			Reason: "approvers cannot edit orders"}
	}

	now := s.clock.Now()
	draft := &Revision{
		ID:          RevisionID(s.ids.NewID()),
		OrderNumber: order,
		Version:     active.Version,
		Status:      StatusDraft,
		Lines:       append([]LineItem(nil), active.Lines...),
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		BaseVersion: active.Version,
		BaseTotal:   active.Total(),
	}
	s.appendAudit(draft, AuditCreated, actor, "", now)

	if err := s.store.SaveRevision(ctx, draft); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	s.logTransition(draft, actor, AuditCreated)
	s.publish(ctx, draft, EventDraftCreated, actor, now, "")
	return draft, nil
}

// ChangeInput is one manual edit for RecordChange. For the line fields the
// engine tracks (quantity, unit price, discount, description) the previous
// value is read from the draft and the new value is applied to the line;
// for any other field the change is recorded as given, non-critical.
type ChangeInput struct {
	Field         ChangeField
	LineNumber    int
	PreviousValue string
	NewValue      string
	Description   string
}

// RecordChange appends one change to the draft, recomputes the version and
// the change summary. Valid only while the draft is editable.
func (s *Service) RecordChange(ctx context.Context, order OrderNumber, actor User, input ChangeInput) (*Revision, error) {
	unlock := s.lockOrder(order)
	defer unlock()

	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(draft, actor, "record change"); err != nil {
		return nil, err
	}

	work := draft.Clone()
	change := Change{
		Field:         input.Field,
		LineNumber:    input.LineNumber,
		PreviousValue: input.PreviousValue,
		NewValue:      input.NewValue,
		EditType:      Classify(input.Field),
		Description:   input.Description,
	}

	switch input.Field {
	case FieldLineAdded, FieldLineRemoved:
		return nil, &TransitionError{Op: "record change", Status: work.Status,
			Reason: "line composition changes must go through a line update"}
	case FieldQuantity, FieldUnitPrice, FieldDiscountPercent, FieldDescription:
		line := work.LineAt(input.LineNumber)
		if line == nil {
			return nil, &NotFoundError{Kind: "line", Key: strconv.Itoa(input.LineNumber)}
		}
		prev, applyErr := applyLineField(line, input.Field, input.NewValue)
		if applyErr != nil {
			return nil, &TransitionError{Op: "record change", Status: work.Status, Reason: applyErr.Error()}
		}
		if prev == input.NewValue {
			return draft, nil
		}
		change.PreviousValue = prev
		if change.Description == "" {
			change.Description = fmt.Sprintf("%s changed from %s to %s on line %d",
				fieldLabel(input.Field), prev, input.NewValue, input.LineNumber)
		}
	}

	now := s.clock.Now()
	change.ID = ChangeID(s.ids.NewID())
	change.ChangedBy = actor.ID
	change.ChangedAt = now
	work.Changes = append(work.Changes, change)
	s.recompute(work)

	if err := s.store.SaveRevision(ctx, work); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return work, nil
}

// UpdateLines replaces the draft's line items with the proposed collection,
// recording the detected changes. A proposal identical to the current lines
// is a no-op.
func (s *Service) UpdateLines(ctx context.Context, order OrderNumber, actor User, proposed []LineItem) (*Revision, error) {
	unlock := s.lockOrder(order)
	defer unlock()

	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(draft, actor, "update lines"); err != nil {
		return nil, err
	}

	work := draft.Clone()
	detected := DiffLineItems(work.Lines, proposed)
	if len(detected) == 0 {
		return draft, nil
	}

	now := s.clock.Now()
	for i := range detected {
		detected[i].ID = ChangeID(s.ids.NewID())
		detected[i].ChangedBy = actor.ID
		detected[i].ChangedAt = now
	}

	lines := append([]LineItem(nil), proposed...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNumber < lines[j].LineNumber })
	work.Lines = lines
	work.Changes = append(work.Changes, detected...)
	s.recompute(work)

	if err := s.store.SaveRevision(ctx, work); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return work, nil
}

// =============================================================================
// SUBMISSION AND APPROVAL
// =============================================================================

// SubmitForApproval builds a fresh approval chain, opens a new approval
// cycle, and moves the draft to pending_approval.
func (s *Service) SubmitForApproval(ctx context.Context, order OrderNumber, actor User, notes string) (*Revision, error) {
	unlock := s.lockOrder(order)
	defer unlock()

	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return nil, err
	}

	work := draft.Clone()
	cfg := s.Workflow()
	needs := RequiresApproval(work, cfg.Policy, s.evaluate)
	if p := ComputePermissions(actor, work, needs); !p.CanSubmit {
		return nil, &TransitionError{Op: "submit", Status: work.Status,
			Reason: s.submitDenied(work, actor, needs)}
	}

	now := s.clock.Now()
	chain, err := BuildChain(s.ids, work.ID, cfg.Approvers, now)
	if err != nil {
		return nil, err
	}

	work.Chain = chain
	work.History = append(work.History, ApprovalCycle{
		ID:          s.ids.NewID(),
		Sequence:    len(work.History) + 1,
		SubmittedBy: actor.ID,
		SubmittedAt: now,
		SubmitNotes: notes,
		Outcome:     CyclePending,
		ChangeCount: len(work.Changes),
	})
	work.Status = StatusPendingApproval
	s.appendAudit(work, AuditSubmitted, actor, notes, now)

	if err := s.store.SaveRevision(ctx, work); err != nil {
		return nil, fmt.Errorf("save revision: %w", err)
	}
	s.logTransition(work, actor, AuditSubmitted)
	s.publish(ctx, work, EventSubmitted, actor, now, notes)
	return work, nil
}

func (s *Service) submitDenied(rev *Revision, actor User, needs bool) string {
	switch {
	case actor.IsApprover:
		return "approvers cannot submit revisions"
	case !rev.Status.IsEditable():
		return "only draft or rejected revisions can be submitted"
	case !rev.HasUnsubmittedChanges():
		if len(rev.Changes) == 0 {
			return "no changes recorded"
		}
		return "no new changes since the last submission"
	case !needs:
		return "approval is not required for this draft"
	default:
		return "submission not permitted"
	}
}

// Approve records the current approver's approval. An intermediate level
// advances the chain; the final level completes it and moves the revision
// to approved.
func (s *Service) Approve(ctx context.Context, order OrderNumber, actor User, notes string) (*Revision, error) {
	unlock := s.lockOrder(order)
	defer unlock()

	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return nil, err
	}

	work := draft.Clone()
	if err := s.requireApprover(work, actor, "approve"); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := work.Chain.Advance(work.Chain.CurrentLevel, ActionApprove, actor.ID, notes, now); err != nil {
		return nil, err
	}

	if !work.Chain.IsComplete {
		s.appendAudit(work, AuditStepApproved, actor, notes, now)
		if err := s.store.SaveRevision(ctx, work); err != nil {
			return nil, fmt.Errorf("save revision: %w", err)
		}
		s.logTransition(work, actor, AuditStepApproved)
		s.publish(ctx, work, EventStepApproved, actor, now, notes)
		return work, nil
	}

	work.Status = StatusApproved
	s.closeCycle(work, CycleApproved, actor, notes, now)
	s.appendAudit(work, AuditApproved, actor, notes, now)

	if err := s.store.SaveRevision(ctx, work); err != nil {
		return nil, fmt.Errorf("save revision: %w", err)
	}
	s.logTransition(work, actor, AuditApproved)
	s.publish(ctx, work, EventApproved, actor, now, notes)
	return work, nil
}

// Reject records a rejection by the current approver. Notes are required;
// the chain short-circuits and the revision becomes editable again.
func (s *Service) Reject(ctx context.Context, order OrderNumber, actor User, notes string) (*Revision, error) {
	return s.reject(ctx, order, actor, ActionReject, notes)
}

// RequestChanges is a rejection that asks the submitter for specific
// rework. Same state effect as Reject; the cycle outcome and audit action
// keep the two apart.
func (s *Service) RequestChanges(ctx context.Context, order OrderNumber, actor User, notes string) (*Revision, error) {
	return s.reject(ctx, order, actor, ActionRequestChanges, notes)
}

func (s *Service) reject(ctx context.Context, order OrderNumber, actor User, action StepAction, notes string) (*Revision, error) {
	op := "reject"
	cycleOutcome := CycleRejected
	auditAction := AuditRejected
	eventType := EventRejected
	if action == ActionRequestChanges {
		op = "request changes"
		cycleOutcome = CycleChangesRequested
		auditAction = AuditChangesRequested
		eventType = EventChangesRequested
	}

	unlock := s.lockOrder(order)
	defer unlock()

	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return nil, err
	}

	work := draft.Clone()
	if err := s.requireApprover(work, actor, op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(notes) == "" {
		return nil, &TransitionError{Op: op, Status: work.Status, Reason: "notes are required"}
	}

	now := s.clock.Now()
	if err := work.Chain.Advance(work.Chain.CurrentLevel, action, actor.ID, notes, now); err != nil {
		return nil, err
	}

	work.Status = StatusRejected
	s.closeCycle(work, cycleOutcome, actor, notes, now)
	s.appendAudit(work, auditAction, actor, notes, now)

	if err := s.store.SaveRevision(ctx, work); err != nil {
		return nil, fmt.Errorf("save revision: %w", err)
	}
	s.logTransition(work, actor, auditAction)
	s.publish(ctx, work, eventType, actor, now, notes)
	return work, nil
}

// requireApprover checks CanApprove and distinguishes an approver acting
// out of level order (stale step) from everyone else (invalid transition).
func (s *Service) requireApprover(rev *Revision, actor User, op string) error {
	p := ComputePermissions(actor, rev, false)
	if p.CanApprove {
		return nil
	}
	if rev.Status == StatusPendingApproval && rev.Chain != nil && actor.IsApprover {
		if step := rev.Chain.StepAt(actor.ApproverLevel); step != nil && step.Approver.ID == actor.ID {
			return &StaleStepError{Level: actor.ApproverLevel, CurrentLevel: rev.Chain.CurrentLevel,
				Reason: "approvals must proceed in level order"}
		}
	}
	switch {
	case !actor.IsApprover:
		return &TransitionError{Op: op, Status: rev.Status, Reason: "only approvers can act on submissions"}
	case rev.Status != StatusPendingApproval:
		return &TransitionError{Op: op, Status: rev.Status, Reason: "revision is not awaiting approval"}
	default:
		return &TransitionError{Op: op, Status: rev.Status, Reason: "you are not the current approver"}
	}
}

func (s *Service) closeCycle(rev *Revision, outcome CycleOutcome, actor User, notes string, at time.Time) {
	cy := rev.CurrentCycle()
	if cy == nil {
		return
	}
	decided := at
	cy.Outcome = outcome
	cy.DecidedBy = actor.ID
	cy.DecidedAt = &decided
	cy.DecisionNotes = notes
	cy.Chain = rev.Chain
}

// =============================================================================
// SEND, SKIP, CONFIRM, DISCARD
// =============================================================================

// SendOnward moves an approved revision to sent.
func (s *Service) SendOnward(ctx context.Context, order OrderNumber, actor User) (*Revision, error) {
	unlock := s.lockOrder(order)
	defer unlock()

	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return nil, err
	}

	work := draft.Clone()
	if p := ComputePermissions(actor, work, false); !p.CanSend {
		return nil, &TransitionError{Op: "send", Status: work.Status,
			Reason: "only approved revisions can be sent"}
	}

	now := s.clock.Now()
	work.Status = StatusSent
	s.appendAudit(work, AuditSent, actor, "", now)

	if err := s.store.SaveRevision(ctx, work); err != nil {
		return nil, fmt.Errorf("save revision: %w", err)
	}
	s.logTransition(work, actor, AuditSent)
	s.publish(ctx, work, EventSent, actor, now, "")
	return work, nil
}

// SkipApprovalAndSend takes the fast path for drafts that need no
// approval: draft to approved to sent in one atomic operation, both
// transitions audited, no chain built.
func (s *Service) SkipApprovalAndSend(ctx context.Context, order OrderNumber, actor User) (*Revision, error) {
	unlock := s.lockOrder(order)
	defer unlock()

	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return nil, err
	}

	work := draft.Clone()
	cfg := s.Workflow()
	needs := RequiresApproval(work, cfg.Policy, s.evaluate)
	if p := ComputePermissions(actor, work, needs); !p.CanSkipApproval {
		return nil, &TransitionError{Op: "skip approval", Status: work.Status,
			Reason: s.skipDenied(work, actor, needs)}
	}

	work.Status = StatusApproved
	s.appendAudit(work, AuditApprovalSkipped, actor, "", s.clock.Now())
	work.Status = StatusSent
	s.appendAudit(work, AuditSent, actor, "", s.clock.Now())

	if err := s.store.SaveRevision(ctx, work); err != nil {
		return nil, fmt.Errorf("save revision: %w", err)
	}
	s.logTransition(work, actor, AuditSent)
	s.publish(ctx, work, EventApprovalSkipped, actor, work.Audit[len(work.Audit)-2].At, "")
	s.publish(ctx, work, EventSent, actor, work.Audit[len(work.Audit)-1].At, "")
	return work, nil
}

func (s *Service) skipDenied(rev *Revision, actor User, needs bool) string {
	switch {
	case actor.IsApprover:
		return "approvers cannot edit orders"
	case rev.Status != StatusDraft:
		return "only drafts can skip approval"
	case !rev.HasUnsubmittedChanges():
		return "no changes recorded"
	case needs:
		return "approval is required for this draft"
	default:
		return "skip not permitted"
	}
}

// Confirm promotes a sent revision to the order's new active revision and
// appends it to history. The sole exit from the draft family.
func (s *Service) Confirm(ctx context.Context, order OrderNumber, actor User) (*Revision, error) {
	unlock := s.lockOrder(order)
	defer unlock()

	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return nil, err
	}

	work := draft.Clone()
	if work.Status != StatusSent {
		return nil, &TransitionError{Op: "confirm", Status: work.Status,
			Reason: "only sent revisions can be confirmed"}
	}

	now := s.clock.Now()
	work.Status = StatusConfirmed
	s.appendAudit(work, AuditConfirmed, actor, "", now)

	if err := s.store.SaveRevision(ctx, work); err != nil {
		return nil, fmt.Errorf("save revision: %w", err)
	}
	s.logTransition(work, actor, AuditConfirmed)
	s.publish(ctx, work, EventConfirmed, actor, now, "")
	return work, nil
}

// Discard deletes the draft. Its audit entries stay in the order timeline.
func (s *Service) Discard(ctx context.Context, order OrderNumber, actor User) error {
	unlock := s.lockOrder(order)
	defer unlock()

	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return err
	}

	work := draft.Clone()
	if p := ComputePermissions(actor, work, false); !p.CanDiscard {
		return &TransitionError{Op: "discard", Status: work.Status,
			Reason: "only draft or rejected revisions can be discarded"}
	}

	now := s.clock.Now()
	s.appendAudit(work, AuditDiscarded, actor, "", now)

	if err := s.store.DeleteRevision(ctx, work); err != nil {
		return fmt.Errorf("delete revision: %w", err)
	}
	s.logTransition(work, actor, AuditDiscarded)
	s.publish(ctx, work, EventDiscarded, actor, now, "")
	return nil
}

// =============================================================================
// READS
// =============================================================================

// GetDraft returns the order's pending draft.
func (s *Service) GetDraft(ctx context.Context, order OrderNumber) (*Revision, error) {
	return s.loadDraft(ctx, order)
}

// GetActive returns the order's active (latest confirmed) revision.
func (s *Service) GetActive(ctx context.Context, order OrderNumber) (*Revision, error) {
	active, err := s.store.Active(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load active revision: %w", err)
	}
	if active == nil {
		return nil, &NotFoundError{Kind: "active revision", Key: string(order)}
	}
	return active, nil
}

// GetHistory returns the order's confirmed revisions, oldest first.
func (s *Service) GetHistory(ctx context.Context, order OrderNumber) ([]*Revision, error) {
	return s.store.History(ctx, order)
}

// Timeline returns every audit entry for the order, including entries
// from discarded drafts.
func (s *Service) Timeline(ctx context.Context, order OrderNumber) ([]AuditEntry, error) {
	return s.store.Timeline(ctx, order)
}

// GetPermissions computes the action set for a user against the order's
// current draft. With no pending draft, nothing is permitted.
func (s *Service) GetPermissions(ctx context.Context, order OrderNumber, user User) (Permissions, error) {
	draft, err := s.store.GetDraft(ctx, order)
	if err != nil {
		return Permissions{}, fmt.Errorf("load draft: %w", err)
	}
	cfg := s.Workflow()
	needs := RequiresApproval(draft, cfg.Policy, s.evaluate)
	return ComputePermissions(user, draft, needs), nil
}

// CostDelta evaluates the draft's total against its base total under the
// configured threshold policy.
func (s *Service) CostDelta(ctx context.Context, order OrderNumber) (CostDelta, error) {
	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return CostDelta{}, err
	}
	cfg := s.Workflow()
	return s.evaluate(draft.BaseTotal, draft.Total(), cfg.Policy), nil
}

// RequiresApproval reports whether the order's draft must be routed
// through the approval chain.
func (s *Service) RequiresApproval(ctx context.Context, order OrderNumber) (bool, error) {
	draft, err := s.loadDraft(ctx, order)
	if err != nil {
		return false, err
	}
	cfg := s.Workflow()
	return RequiresApproval(draft, cfg.Policy, s.evaluate), nil
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (s *Service) loadDraft(ctx context.Context, order OrderNumber) (*Revision, error) {
	draft, err := s.store.GetDraft(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return nil, &NotFoundError{Kind: "draft", Key: string(order)}
	}
	return draft, nil
}

func (s *Service) requireEdit(rev *Revision, actor User, op string) error {
	if p := ComputePermissions(actor, rev, false); !p.CanEdit {
		if actor.IsApprover {
			return &TransitionError{Op: op, Status: rev.Status, Reason: "approvers cannot edit orders"}
		}
		return &TransitionError{Op: op, Status: rev.Status,
			Reason: "revision is not editable in this status"}
	}
	return nil
}

// recompute refreshes the derived draft fields after its change log grew:
// the version from the base under the union rule, and the summary.
func (s *Service) recompute(rev *Revision) {
	rev.Version = NextVersion(rev.BaseVersion, AnyCritical(rev.Changes))
	rev.ChangesSummary = Summarize(rev.Changes)
}

func (s *Service) appendAudit(rev *Revision, action AuditAction, actor User, notes string, at time.Time) {
	rev.Audit = append(rev.Audit, AuditEntry{
		ID:          s.ids.NewID(),
		OrderNumber: rev.OrderNumber,
		RevisionID:  rev.ID,
		Action:      action,
		Status:      rev.Status,
		At:          at,
		Actor:       actor.ID,
		Role:        actor.Role,
		Notes:       notes,
	})
}

func (s *Service) logTransition(rev *Revision, actor User, action AuditAction) {
	s.log.Info().
		Str("order", string(rev.OrderNumber)).
		Str("revision", string(rev.ID)).
		Str("action", string(action)).
		Str("status", string(rev.Status)).
		Str("version", rev.Version.String()).
		Str("actor", string(actor.ID)).
		Msg("revision transition")
}

// publish delivers one post-commit event. Failures are logged and
// swallowed; a committed transition never rolls back on publish errors.
func (s *Service) publish(ctx context.Context, rev *Revision, typ EventType, actor User, at time.Time, notes string) {
	if s.pub == nil {
		return
	}
	ev := Event{
		Type:        typ,
		OrderNumber: rev.OrderNumber,
		RevisionID:  rev.ID,
		Version:     rev.Version.String(),
		Status:      rev.Status,
		Actor:       actor.ID,
		At:          at,
		Notes:       notes,
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("event", string(typ)).
			Str("order", string(rev.OrderNumber)).
			Msg("event publish failed")
	}
}

func applyLineField(line *LineItem, field ChangeField, value string) (previous string, err error) {
	parse := func(v string) (decimal.Decimal, error) {
		d, perr := decimal.NewFromString(strings.TrimSpace(v))
		if perr != nil {
			return decimal.Zero, fmt.Errorf("bad %s value %q", fieldLabel(field), v)
		}
		return d, nil
	}
	switch field {
	case FieldQuantity:
		previous = line.Quantity.String()
		d, perr := parse(value)
		if perr != nil {
			return "", perr
		}
		line.Quantity = d
	case FieldUnitPrice:
		previous = line.UnitPrice.String()
		d, perr := parse(value)
		if perr != nil {
			return "", perr
		}
		line.UnitPrice = d
	case FieldDiscountPercent:
		previous = line.DiscountPercent.String()
		d, perr := parse(value)
		if perr != nil {
			return "", perr
		}
		line.DiscountPercent = d
	case FieldDescription:
		previous = line.Description
		line.Description = value
	}
	return previous, nil
}
