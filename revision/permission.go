/*
permission.go - Role and status based permission computation

PURPOSE:
  Pure function of (user, revision, chain) producing the set of actions
  currently permitted. The UI re-reads this after every transition instead
  of keeping its own rules; the service re-checks it before mutating, so
  the rules hold even against a bypassed or stale UI.

RULES:
  - editing and submitting belong to non-approvers, on editable drafts
  - approving belongs to the approver whose step is current
  - editors and approvers never overlap for the same revision
  - skip-approval exists only while nothing about the draft forces review

SEE ALSO:
  - service.go: Enforces these before every transition
  - costdelta.go: The threshold half of requiresApproval
*/
package revision

// Permissions is the computed action set for one user against one
// revision. Zero value means nothing is permitted.
type Permissions struct {
	CanEdit         bool
	CanSubmit       bool
	CanApprove      bool
	CanSend         bool
	CanSkipApproval bool
	CanDiscard      bool
}

// ComputePermissions evaluates the permission rules. rev may be nil (no
// pending draft for the order), in which case nothing is permitted.
// requiresApproval is derived by the caller, see RequiresApproval.
func ComputePermissions(user User, rev *Revision, requiresApproval bool) Permissions {
	if rev == nil || !rev.Status.IsDraftFamily() {
		return Permissions{}
	}

	var p Permissions
	hasChanges := rev.HasUnsubmittedChanges()

	if !user.IsApprover && rev.Status.IsEditable() {
		p.CanEdit = true
		p.CanSubmit = hasChanges && requiresApproval
	}

	if user.IsApprover && rev.Status == StatusPendingApproval && rev.Chain != nil {
		if step := rev.Chain.CurrentStep(); step != nil && step.Approver.ID == user.ID {
			p.CanApprove = true
		}
	}

	p.CanSend = rev.Status == StatusApproved

	if !user.IsApprover && rev.Status == StatusDraft && hasChanges && !requiresApproval {
		p.CanSkipApproval = true
	}

	p.CanDiscard = rev.Status.IsEditable()

	return p
}

// RequiresApproval derives whether the draft must be routed through the
// approval chain: true iff any recorded change is critical or the cost
// delta between the base total and the draft's current total exceeds the
// threshold policy. Derived on demand, never stored.
func RequiresApproval(rev *Revision, policy DeltaPolicy, evaluate CostDeltaFunc) bool {
	if rev == nil {
		return false
	}
	if rev.HasCriticalChange() {
		return true
	}
	if evaluate == nil {
		evaluate = EvaluateCostDelta
	}
	return evaluate(rev.BaseTotal, rev.Total(), policy).ExceedsThreshold
}
