/*
Package factory provides JSON to Go workflow-config conversion.

PURPOSE:
  Converts JSON workflow definitions into revision.WorkflowConfig objects.
  This enables workflow configuration without code changes - operations
  staff can define approver chains and thresholds in JSON, and the factory
  creates the proper Go structs.

WHY JSON?
  - Non-developers can modify workflows
  - Easy integration with admin UI
  - Version control for workflow definitions
  - Database storage of workflow configs

JSON SCHEMA:
  {
    "name": "purchase-standard",
    "approvers": [
      {"id": "u-mgr", "name": "Dana Kim", "role": "manager", "level": 1},
      {"id": "u-dir", "name": "Sam Ortiz", "role": "director", "level": 2}
    ],
    "threshold": {
      "max_amount": 500,
      "max_percent": 10
    }
  }

VALIDATION:
  - Name is required
  - Approver levels must be >= 1 and unique
  - Thresholds must be non-negative
  Violations wrap revision.ErrInvalidWorkflow.

USAGE:
  factory := NewWorkflowFactory()

  // From JSON string
  cfg, err := factory.ParseWorkflow(jsonString)

  // From domain-specific preset (recommended)
  import "github.com/warp/revision-engine/orders"
  jsonStr := orders.TwoLevelWorkflowJSON("purchase-standard",
      "u-mgr", "Dana Kim", "u-dir", "Sam Ortiz", 500, 10)
  cfg, err := factory.ParseWorkflow(jsonStr)

  // Use in system
  svc := revision.NewService(store, *cfg)

SEE ALSO:
  - revision/types.go: WorkflowConfig type definition
  - orders/workflows.go: Pre-built workflow configurations
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/revision-engine/revision"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// WorkflowJSON is the JSON representation of a workflow configuration.
type WorkflowJSON struct {
	Name      string         `json:"name"`
	Approvers []ApproverJSON `json:"approvers,omitempty"`
	Threshold *ThresholdJSON `json:"threshold,omitempty"`
}

// ApproverJSON represents one approver in the chain.
type ApproverJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Level int    `json:"level"`
}

// ThresholdJSON represents the cost-delta threshold policy. Both bounds are
// optional; a missing bound never flags.
type ThresholdJSON struct {
	MaxAmount  *float64 `json:"max_amount,omitempty"`
	MaxPercent *float64 `json:"max_percent,omitempty"`
}

// =============================================================================
// WORKFLOW FACTORY
// =============================================================================

// WorkflowFactory converts JSON workflow definitions to Go structs.
type WorkflowFactory struct{}

// NewWorkflowFactory creates a new workflow factory.
func NewWorkflowFactory() *WorkflowFactory {
	return &WorkflowFactory{}
}

// ParseWorkflow parses a JSON string into a WorkflowConfig.
func (f *WorkflowFactory) ParseWorkflow(jsonStr string) (*revision.WorkflowConfig, error) {
	var wj WorkflowJSON
	if err := json.Unmarshal([]byte(jsonStr), &wj); err != nil {
		return nil, fmt.Errorf("failed to parse workflow JSON: %w", err)
	}

	return f.FromJSON(wj)
}

// FromJSON converts WorkflowJSON to a validated WorkflowConfig.
func (f *WorkflowFactory) FromJSON(wj WorkflowJSON) (*revision.WorkflowConfig, error) {
	if wj.Name == "" {
		return nil, fmt.Errorf("%w: name is required", revision.ErrInvalidWorkflow)
	}

	cfg := &revision.WorkflowConfig{Name: wj.Name}

	seen := make(map[int]bool, len(wj.Approvers))
	for _, aj := range wj.Approvers {
		if aj.Level < 1 {
			return nil, fmt.Errorf("%w: approver level must be >= 1, got %d", revision.ErrInvalidWorkflow, aj.Level)
		}
		if seen[aj.Level] {
			return nil, fmt.Errorf("%w: duplicate approver level %d", revision.ErrInvalidWorkflow, aj.Level)
		}
		seen[aj.Level] = true

		if aj.ID == "" {
			return nil, fmt.Errorf("%w: approver at level %d has no id", revision.ErrInvalidWorkflow, aj.Level)
		}

		cfg.Approvers = append(cfg.Approvers, revision.Approver{
			ID:    revision.UserID(aj.ID),
			Name:  aj.Name,
			Role:  revision.Role(aj.Role),
			Level: aj.Level,
		})
	}

	if wj.Threshold != nil {
		policy, err := parseThreshold(*wj.Threshold)
		if err != nil {
			return nil, err
		}
		cfg.Policy = policy
	}

	return cfg, nil
}

// ToJSON converts a WorkflowConfig back to its JSON representation.
func (f *WorkflowFactory) ToJSON(cfg revision.WorkflowConfig) WorkflowJSON {
	wj := WorkflowJSON{Name: cfg.Name}

	for _, a := range cfg.Approvers {
		wj.Approvers = append(wj.Approvers, ApproverJSON{
			ID:    string(a.ID),
			Name:  a.Name,
			Role:  string(a.Role),
			Level: a.Level,
		})
	}

	if cfg.Policy.MaxAmount != nil || cfg.Policy.MaxPercent != nil {
		tj := &ThresholdJSON{}
		if cfg.Policy.MaxAmount != nil {
			v, _ := cfg.Policy.MaxAmount.Float64()
			tj.MaxAmount = &v
		}
		if cfg.Policy.MaxPercent != nil {
			v, _ := cfg.Policy.MaxPercent.Float64()
			tj.MaxPercent = &v
		}
		wj.Threshold = tj
	}

	return wj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseThreshold(tj ThresholdJSON) (revision.DeltaPolicy, error) {
	var policy revision.DeltaPolicy

	if tj.MaxAmount != nil {
		if *tj.MaxAmount < 0 {
			return policy, fmt.Errorf("%w: max_amount cannot be negative", revision.ErrInvalidWorkflow)
		}
		d := decimal.NewFromFloat(*tj.MaxAmount)
		policy.MaxAmount = &d
	}
	if tj.MaxPercent != nil {
		if *tj.MaxPercent < 0 {
			return policy, fmt.Errorf("%w: max_percent cannot be negative", revision.ErrInvalidWorkflow)
		}
		d := decimal.NewFromFloat(*tj.MaxPercent)
		policy.MaxPercent = &d
	}

	return policy, nil
}
