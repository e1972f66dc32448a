package revision_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/revision-engine/revision"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	editor = revision.User{ID: "u-morgan", Name: "Morgan Blake", Role: revision.RoleProcurement}
	dana   = revision.User{ID: "u-dana", Name: "Dana Kim", Role: revision.RoleManager,
		IsApprover: true, ApproverLevel: 1}
	sam = revision.User{ID: "u-sam", Name: "Sam Ortiz", Role: revision.RoleDirector,
		IsApprover: true, ApproverLevel: 2}
)

func draftWith(status revision.Status, changes ...revision.Change) *revision.Revision {
	return &revision.Revision{
		ID:          "rev-1",
		OrderNumber: "PO-1",
		Version:     revision.NewVersion(1, 0),
		Status:      status,
		Lines:       []revision.LineItem{line(1, "Brackets", 100, 32)},
		Changes:     changes,
		BaseVersion: revision.NewVersion(1, 0),
		BaseTotal:   decimal.NewFromInt(3200),
	}
}

func criticalChange() revision.Change {
	return revision.Change{
		ID: "chg-1", Field: revision.FieldQuantity, LineNumber: 1,
		PreviousValue: "100", NewValue: "120", EditType: revision.EditCritical,
	}
}

func cosmeticChange() revision.Change {
	return revision.Change{
		ID: "chg-2", Field: revision.FieldDescription, LineNumber: 1,
		PreviousValue: "Brackets", NewValue: "Brackets, zinc", EditType: revision.EditNonCritical,
	}
}

func pendingWithChain(t *testing.T) *revision.Revision {
	t.Helper()
	rev := draftWith(revision.StatusPendingApproval, criticalChange())
	chain, err := revision.BuildChain(revision.NewSequenceIDs("chain"), rev.ID,
		[]revision.Approver{dana.AsApprover(), sam.AsApprover()}, chainStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rev.Chain = chain
	return rev
}

// =============================================================================
// EMPTY CASES
// =============================================================================

func TestComputePermissions_NoDraft(t *testing.T) {
	if p := revision.ComputePermissions(editor, nil, true); p != (revision.Permissions{}) {
		t.Errorf("expected nothing permitted without a draft, got %+v", p)
	}
}

func TestComputePermissions_ConfirmedRevision(t *testing.T) {
	rev := draftWith(revision.StatusConfirmed)
	if p := revision.ComputePermissions(editor, rev, true); p != (revision.Permissions{}) {
		t.Errorf("expected nothing permitted on confirmed, got %+v", p)
	}
}

// =============================================================================
// EDITOR PERMISSIONS
// =============================================================================

func TestComputePermissions_Editor_FreshDraft(t *testing.T) {
	// GIVEN: A draft with no recorded changes
	// WHEN: Computing permissions for a non-approver
	// THEN: Edit and discard only; nothing to submit or skip yet

	p := revision.ComputePermissions(editor, draftWith(revision.StatusDraft), false)
	if !p.CanEdit {
		t.Error("expected CanEdit")
	}
	if p.CanSubmit {
		t.Error("no changes recorded, CanSubmit must be false")
	}
	if p.CanSkipApproval {
		t.Error("no changes recorded, CanSkipApproval must be false")
	}
	if !p.CanDiscard {
		t.Error("expected CanDiscard on a draft")
	}
	if p.CanApprove || p.CanSend {
		t.Error("editor on a draft can neither approve nor send")
	}
}

func TestComputePermissions_Editor_CriticalChange_SubmitOnly(t *testing.T) {
	// GIVEN: A draft with a critical change, approval required
	// WHEN: Computing permissions for the editor
	// THEN: Submit is offered, skip is not

	p := revision.ComputePermissions(editor, draftWith(revision.StatusDraft, criticalChange()), true)
	if !p.CanSubmit {
		t.Error("expected CanSubmit with changes and approval required")
	}
	if p.CanSkipApproval {
		t.Error("approval required, CanSkipApproval must be false")
	}
}

func TestComputePermissions_Editor_CosmeticChange_SkipOnly(t *testing.T) {
	// GIVEN: A draft with a non-critical change, approval not required
	// WHEN: Computing permissions for the editor
	// THEN: Skip is offered, submit is not

	p := revision.ComputePermissions(editor, draftWith(revision.StatusDraft, cosmeticChange()), false)
	if p.CanSubmit {
		t.Error("approval not required, CanSubmit must be false")
	}
	if !p.CanSkipApproval {
		t.Error("expected CanSkipApproval with changes and no approval needed")
	}
}

func TestComputePermissions_Editor_PendingApproval_Locked(t *testing.T) {
	p := revision.ComputePermissions(editor, pendingWithChain(t), true)
	if p.CanEdit || p.CanSubmit || p.CanSkipApproval || p.CanDiscard {
		t.Errorf("pending revision must be locked for the editor, got %+v", p)
	}
}

func TestComputePermissions_Editor_Rejected_EditableAgain(t *testing.T) {
	// GIVEN: A rejected revision whose changes were all submitted already
	// WHEN: Computing permissions for the editor
	// THEN: Editing and discarding reopen; submitting needs a new change

	rev := draftWith(revision.StatusRejected, criticalChange())
	rev.History = []revision.ApprovalCycle{{
		ID: "cy-1", Sequence: 1, SubmittedBy: editor.ID,
		Outcome: revision.CycleRejected, ChangeCount: 1,
	}}

	p := revision.ComputePermissions(editor, rev, true)
	if !p.CanEdit || !p.CanDiscard {
		t.Errorf("expected edit and discard on rejected, got %+v", p)
	}
	if p.CanSubmit {
		t.Error("no new change since the rejected submission, CanSubmit must be false")
	}

	rev.Changes = append(rev.Changes, cosmeticChange())
	p = revision.ComputePermissions(editor, rev, true)
	if !p.CanSubmit {
		t.Error("expected CanSubmit after a new change is recorded")
	}
}

// =============================================================================
// APPROVER PERMISSIONS
// =============================================================================

func TestComputePermissions_Approver_CurrentStepOnly(t *testing.T) {
	// GIVEN: A pending revision with the chain at level 1
	// WHEN: Computing permissions for both approvers
	// THEN: Only the level 1 approver may act

	rev := pendingWithChain(t)

	p1 := revision.ComputePermissions(dana, rev, true)
	if !p1.CanApprove {
		t.Error("expected the level 1 approver to hold CanApprove")
	}
	p2 := revision.ComputePermissions(sam, rev, true)
	if p2.CanApprove {
		t.Error("the level 2 approver must wait for level 1")
	}
}

func TestComputePermissions_Approver_NeverEdits(t *testing.T) {
	p := revision.ComputePermissions(dana, draftWith(revision.StatusDraft, criticalChange()), true)
	if p.CanEdit || p.CanSubmit || p.CanSkipApproval {
		t.Errorf("approver must not edit, submit, or skip, got %+v", p)
	}
}

func TestComputePermissions_EditorsAndApproversNeverOverlap(t *testing.T) {
	// Permission exclusivity: for any user and revision at most one of
	// CanEdit, CanApprove is set.

	revs := []*revision.Revision{
		draftWith(revision.StatusDraft, criticalChange()),
		draftWith(revision.StatusRejected, criticalChange()),
		pendingWithChain(t),
		draftWith(revision.StatusApproved, criticalChange()),
	}
	for _, rev := range revs {
		for _, u := range []revision.User{editor, dana, sam} {
			p := revision.ComputePermissions(u, rev, true)
			if p.CanEdit && p.CanApprove {
				t.Errorf("user %s on status %s: CanEdit and CanApprove overlap", u.ID, rev.Status)
			}
		}
	}
}

// =============================================================================
// SEND
// =============================================================================

func TestComputePermissions_CanSend_OnlyWhenApproved(t *testing.T) {
	approved := draftWith(revision.StatusApproved, criticalChange())
	if p := revision.ComputePermissions(editor, approved, false); !p.CanSend {
		t.Error("expected CanSend on an approved revision")
	}
	for _, status := range []revision.Status{
		revision.StatusDraft, revision.StatusPendingApproval,
		revision.StatusRejected, revision.StatusSent,
	} {
		if p := revision.ComputePermissions(editor, draftWith(status), false); p.CanSend {
			t.Errorf("CanSend must be false in status %s", status)
		}
	}
}

// =============================================================================
// REQUIRES APPROVAL
// =============================================================================

func TestRequiresApproval_CriticalChangeAlwaysRoutes(t *testing.T) {
	// GIVEN: A generous threshold policy that nothing exceeds
	// WHEN: The draft holds one critical change
	// THEN: Approval is still required

	rev := draftWith(revision.StatusDraft, criticalChange())
	policy := revision.DeltaPolicy{MaxAmount: moneyPtr("1000000")}
	if !revision.RequiresApproval(rev, policy, nil) {
		t.Error("critical change must force approval regardless of the delta")
	}
}

func TestRequiresApproval_CosmeticUnderThreshold_False(t *testing.T) {
	rev := draftWith(revision.StatusDraft, cosmeticChange())
	policy := revision.DeltaPolicy{MaxAmount: moneyPtr("500"), MaxPercent: moneyPtr("10")}
	if revision.RequiresApproval(rev, policy, nil) {
		t.Error("cosmetic change with no cost movement must not require approval")
	}
}

func TestRequiresApproval_DeltaOverThreshold_True(t *testing.T) {
	// GIVEN: Only non-critical changes, but the total drifted past the cap
	// WHEN: Deriving requiresApproval
	// THEN: The threshold half forces routing

	rev := draftWith(revision.StatusDraft, cosmeticChange())
	rev.BaseTotal = decimal.NewFromInt(1000)
	policy := revision.DeltaPolicy{MaxAmount: moneyPtr("500")}
	if !revision.RequiresApproval(rev, policy, nil) {
		t.Errorf("delta of %s should exceed the 500 cap", rev.Total().Sub(rev.BaseTotal))
	}
}

func TestRequiresApproval_NilRevision(t *testing.T) {
	if revision.RequiresApproval(nil, revision.DeltaPolicy{}, nil) {
		t.Error("no draft, nothing to approve")
	}
}

func TestRequiresApproval_CustomEvaluator(t *testing.T) {
	// GIVEN: An injected evaluator that always flags
	// WHEN: Deriving requiresApproval for a cosmetic-only draft
	// THEN: The evaluator's verdict wins

	always := func(original, current decimal.Decimal, policy revision.DeltaPolicy) revision.CostDelta {
		return revision.CostDelta{ExceedsThreshold: true}
	}
	rev := draftWith(revision.StatusDraft, cosmeticChange())
	if !revision.RequiresApproval(rev, revision.DeltaPolicy{}, always) {
		t.Error("injected evaluator should drive the verdict")
	}
}
