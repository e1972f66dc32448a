package revision_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/revision-engine/revision"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var chainStart = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func approver(id string, level int) revision.Approver {
	return revision.Approver{ID: revision.UserID(id), Name: id, Role: revision.RoleManager, Level: level}
}

func twoLevelChain(t *testing.T) *revision.ApprovalChain {
	t.Helper()
	chain, err := revision.BuildChain(revision.NewSequenceIDs("chain"), "rev-1",
		[]revision.Approver{approver("dana", 1), approver("sam", 2)}, chainStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return chain
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestBuildChain_NoApprovers(t *testing.T) {
	_, err := revision.BuildChain(revision.NewSequenceIDs("chain"), "rev-1", nil, chainStart)
	if !errors.Is(err, revision.ErrInvalidWorkflow) {
		t.Errorf("expected ErrInvalidWorkflow, got %v", err)
	}
}

func TestBuildChain_LevelBelowOne(t *testing.T) {
	_, err := revision.BuildChain(revision.NewSequenceIDs("chain"), "rev-1",
		[]revision.Approver{approver("dana", 0)}, chainStart)
	if !errors.Is(err, revision.ErrInvalidWorkflow) {
		t.Errorf("expected ErrInvalidWorkflow, got %v", err)
	}
}

func TestBuildChain_DuplicateLevels(t *testing.T) {
	_, err := revision.BuildChain(revision.NewSequenceIDs("chain"), "rev-1",
		[]revision.Approver{approver("dana", 1), approver("sam", 1)}, chainStart)
	if !errors.Is(err, revision.ErrInvalidWorkflow) {
		t.Errorf("expected ErrInvalidWorkflow, got %v", err)
	}
}

func TestBuildChain_SortsByLevel(t *testing.T) {
	// GIVEN: A roster listed director-first
	// WHEN: Building the chain
	// THEN: Steps are ordered by level and the current level is the lowest

	chain, err := revision.BuildChain(revision.NewSequenceIDs("chain"), "rev-1",
		[]revision.Approver{approver("sam", 3), approver("dana", 1)}, chainStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chain.Steps[0].Level != 1 || chain.Steps[1].Level != 3 {
		t.Errorf("expected steps ordered 1,3, got %d,%d", chain.Steps[0].Level, chain.Steps[1].Level)
	}
	if chain.CurrentLevel != 1 {
		t.Errorf("expected current level 1, got %d", chain.CurrentLevel)
	}
	for _, s := range chain.Steps {
		if s.Status != revision.StepPending {
			t.Errorf("level %d: expected pending, got %s", s.Level, s.Status)
		}
	}
	if chain.IsComplete || chain.Outcome != "" {
		t.Error("fresh chain must not be complete")
	}
}

// =============================================================================
// ADVANCEMENT
// =============================================================================

func TestAdvance_IntermediateApproval_MovesToNextLevel(t *testing.T) {
	// GIVEN: A two-level chain at level 1
	// WHEN: The level 1 approver approves
	// THEN: The step is recorded and the chain moves to level 2, still open

	chain := twoLevelChain(t)
	acted := chainStart.Add(time.Hour)

	if err := chain.Advance(1, revision.ActionApprove, "dana", "looks right", acted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	step := chain.StepAt(1)
	if step.Status != revision.StepApproved || step.Action != revision.ActionApprove {
		t.Errorf("expected approved step, got %s/%s", step.Status, step.Action)
	}
	if step.ActionBy != "dana" || step.Notes != "looks right" {
		t.Errorf("expected actor and notes recorded, got %s %q", step.ActionBy, step.Notes)
	}
	if step.ActionAt == nil || !step.ActionAt.Equal(acted) {
		t.Errorf("expected action time %v, got %v", acted, step.ActionAt)
	}
	if chain.CurrentLevel != 2 {
		t.Errorf("expected current level 2, got %d", chain.CurrentLevel)
	}
	if chain.IsComplete {
		t.Error("chain must stay open with a pending level left")
	}
}

func TestAdvance_FinalApproval_CompletesApproved(t *testing.T) {
	chain := twoLevelChain(t)
	if err := chain.Advance(1, revision.ActionApprove, "dana", "", chainStart.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done := chainStart.Add(2 * time.Hour)
	if err := chain.Advance(2, revision.ActionApprove, "sam", "", done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !chain.IsComplete || chain.Outcome != revision.OutcomeApproved {
		t.Errorf("expected complete/approved, got %v/%s", chain.IsComplete, chain.Outcome)
	}
	if chain.CompletedAt == nil || !chain.CompletedAt.Equal(done) {
		t.Errorf("expected completion at %v, got %v", done, chain.CompletedAt)
	}
	if chain.CurrentStep() != nil {
		t.Error("complete chain has no current step")
	}
}

func TestAdvance_NonContiguousLevels(t *testing.T) {
	// GIVEN: Approvers at levels 1 and 3
	// WHEN: Level 1 approves
	// THEN: The chain advances to level 3

	chain, err := revision.BuildChain(revision.NewSequenceIDs("chain"), "rev-1",
		[]revision.Approver{approver("dana", 1), approver("sam", 3)}, chainStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := chain.Advance(1, revision.ActionApprove, "dana", "", chainStart.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chain.CurrentLevel != 3 {
		t.Errorf("expected current level 3, got %d", chain.CurrentLevel)
	}
}

func TestAdvance_Reject_ShortCircuits(t *testing.T) {
	// GIVEN: A two-level chain at level 1
	// WHEN: The level 1 approver rejects
	// THEN: The chain completes rejected and level 2 is never asked

	chain := twoLevelChain(t)
	if err := chain.Advance(1, revision.ActionReject, "dana", "price too high", chainStart.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !chain.IsComplete || chain.Outcome != revision.OutcomeRejected {
		t.Errorf("expected complete/rejected, got %v/%s", chain.IsComplete, chain.Outcome)
	}
	if chain.StepAt(1).Status != revision.StepRejected {
		t.Errorf("expected level 1 rejected, got %s", chain.StepAt(1).Status)
	}
	if chain.StepAt(2).Status != revision.StepPending {
		t.Errorf("expected level 2 left pending, got %s", chain.StepAt(2).Status)
	}
}

func TestAdvance_RequestChanges_KeepsActionApart(t *testing.T) {
	chain := twoLevelChain(t)
	if err := chain.Advance(1, revision.ActionRequestChanges, "dana", "split line 2", chainStart.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	step := chain.StepAt(1)
	if step.Status != revision.StepRejected {
		t.Errorf("expected rejected status, got %s", step.Status)
	}
	if step.Action != revision.ActionRequestChanges {
		t.Errorf("expected request_changes action, got %s", step.Action)
	}
	if chain.Outcome != revision.OutcomeRejected {
		t.Errorf("expected rejected outcome, got %s", chain.Outcome)
	}
}

// =============================================================================
// STALE STEPS
// =============================================================================

func TestAdvance_WrongLevel_Stale(t *testing.T) {
	// GIVEN: A two-level chain still at level 1
	// WHEN: Level 2 tries to act first
	// THEN: StaleStepError, chain untouched

	chain := twoLevelChain(t)
	err := chain.Advance(2, revision.ActionApprove, "sam", "", chainStart.Add(time.Hour))

	if !errors.Is(err, revision.ErrStaleApprovalStep) {
		t.Fatalf("expected ErrStaleApprovalStep, got %v", err)
	}
	var stale *revision.StaleStepError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StaleStepError, got %T", err)
	}
	if stale.Level != 2 || stale.CurrentLevel != 1 {
		t.Errorf("expected level 2 vs current 1, got %d vs %d", stale.Level, stale.CurrentLevel)
	}
	if chain.StepAt(2).Status != revision.StepPending {
		t.Error("failed advance must leave the step pending")
	}
}

func TestAdvance_CompleteChain_Stale(t *testing.T) {
	chain := twoLevelChain(t)
	if err := chain.Advance(1, revision.ActionReject, "dana", "no", chainStart.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := chain.Advance(2, revision.ActionApprove, "sam", "", chainStart.Add(2*time.Hour))
	if !errors.Is(err, revision.ErrStaleApprovalStep) {
		t.Errorf("expected ErrStaleApprovalStep on a complete chain, got %v", err)
	}
}

func TestAdvance_UnknownAction_Stale(t *testing.T) {
	chain := twoLevelChain(t)
	err := chain.Advance(1, revision.StepAction("defer"), "dana", "", chainStart.Add(time.Hour))
	if !errors.Is(err, revision.ErrStaleApprovalStep) {
		t.Fatalf("expected ErrStaleApprovalStep, got %v", err)
	}
	step := chain.StepAt(1)
	if step.Status != revision.StepPending || step.Action != "" || step.ActionAt != nil {
		t.Error("unknown action must leave the step untouched")
	}
}

// =============================================================================
// CLONING
// =============================================================================

func TestChain_Clone_Independent(t *testing.T) {
	chain := twoLevelChain(t)
	clone := chain.Clone()

	if err := clone.Advance(1, revision.ActionApprove, "dana", "", chainStart.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chain.StepAt(1).Status != revision.StepPending {
		t.Error("advancing the clone must not touch the original")
	}
	if chain.CurrentLevel != 1 {
		t.Errorf("expected original still at level 1, got %d", chain.CurrentLevel)
	}
}
