/*
workflows.go - Pre-built workflow configurations

These functions build JSON workflow definitions for common approval setups.
They construct JSON strings directly to avoid import cycles with the
factory package.

USAGE:
  import "github.com/warp/revision-engine/orders"

  jsonStr := orders.TwoLevelWorkflowJSON("purchase-standard",
      "u-mgr", "Dana Kim", "u-dir", "Sam Ortiz", 500, 10)
  cfg, err := factory.ParseWorkflow(jsonStr)
*/
package orders

import (
	"encoding/json"
)

// TwoLevelWorkflowJSON returns JSON for a two-level approval workflow:
// a manager at level 1, a director at level 2, and both an absolute and a
// percentage cost-delta threshold.
func TwoLevelWorkflowJSON(name, managerID, managerName, directorID, directorName string, maxAmount, maxPercent float64) string {
	wj := map[string]interface{}{
		"name": name,
		"approvers": []map[string]interface{}{
			{"id": managerID, "name": managerName, "role": "manager", "level": 1},
			{"id": directorID, "name": directorName, "role": "director", "level": 2},
		},
		"threshold": map[string]interface{}{
			"max_amount":  maxAmount,
			"max_percent": maxPercent,
		},
	}
	b, _ := json.MarshalIndent(wj, "", "  ")
	return string(b)
}

// SingleApproverWorkflowJSON returns JSON for a one-level workflow with an
// absolute cost-delta threshold only.
func SingleApproverWorkflowJSON(name, approverID, approverName string, maxAmount float64) string {
	wj := map[string]interface{}{
		"name": name,
		"approvers": []map[string]interface{}{
			{"id": approverID, "name": approverName, "role": "manager", "level": 1},
		},
		"threshold": map[string]interface{}{
			"max_amount": maxAmount,
		},
	}
	b, _ := json.MarshalIndent(wj, "", "  ")
	return string(b)
}

// AutoApproveWorkflowJSON returns JSON for a workflow with no cost-delta
// thresholds. Only critical changes ever require approval, so non-critical
// edits stay on the skip-approval path regardless of the cost delta.
func AutoApproveWorkflowJSON(name, approverID, approverName string) string {
	wj := map[string]interface{}{
		"name": name,
		"approvers": []map[string]interface{}{
			{"id": approverID, "name": approverName, "role": "manager", "level": 1},
		},
	}
	b, _ := json.MarshalIndent(wj, "", "  ")
	return string(b)
}
