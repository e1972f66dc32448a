package factory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/revision-engine/factory"
	"github.com/warp/revision-engine/orders"
	"github.com/warp/revision-engine/revision"
)

// =============================================================================
// PRESET PARSING
// =============================================================================

func TestParseWorkflow_TwoLevelPreset(t *testing.T) {
	// GIVEN: The two-level preset JSON from the orders package
	// WHEN: Parsing it through the factory
	// THEN: The config carries both approvers and both threshold bounds

	f := factory.NewWorkflowFactory()

	cfg, err := f.ParseWorkflow(orders.TwoLevelWorkflowJSON(
		"purchase-standard", "u-dana", "Dana Kim", "u-sam", "Sam Ortiz", 500, 10))
	require.NoError(t, err)

	assert.Equal(t, "purchase-standard", cfg.Name)

	require.Len(t, cfg.Approvers, 2)
	assert.Equal(t, revision.UserID("u-dana"), cfg.Approvers[0].ID)
	assert.Equal(t, revision.RoleManager, cfg.Approvers[0].Role)
	assert.Equal(t, 1, cfg.Approvers[0].Level)
	assert.Equal(t, revision.UserID("u-sam"), cfg.Approvers[1].ID)
	assert.Equal(t, revision.RoleDirector, cfg.Approvers[1].Role)
	assert.Equal(t, 2, cfg.Approvers[1].Level)

	require.NotNil(t, cfg.Policy.MaxAmount)
	assert.True(t, cfg.Policy.MaxAmount.Equal(decimal.NewFromInt(500)))
	require.NotNil(t, cfg.Policy.MaxPercent)
	assert.True(t, cfg.Policy.MaxPercent.Equal(decimal.NewFromInt(10)))
}

func TestParseWorkflow_SingleApproverPreset(t *testing.T) {
	f := factory.NewWorkflowFactory()

	cfg, err := f.ParseWorkflow(orders.SingleApproverWorkflowJSON(
		"sales-fast", "u-dana", "Dana Kim", 250))
	require.NoError(t, err)

	require.Len(t, cfg.Approvers, 1)
	require.NotNil(t, cfg.Policy.MaxAmount)
	assert.True(t, cfg.Policy.MaxAmount.Equal(decimal.NewFromInt(250)))
	assert.Nil(t, cfg.Policy.MaxPercent, "the single-approver preset sets no percent bound")
}

func TestParseWorkflow_AutoApprovePreset(t *testing.T) {
	f := factory.NewWorkflowFactory()

	cfg, err := f.ParseWorkflow(orders.AutoApproveWorkflowJSON(
		"sales-auto", "u-dana", "Dana Kim"))
	require.NoError(t, err)

	require.Len(t, cfg.Approvers, 1)
	assert.Nil(t, cfg.Policy.MaxAmount, "no bounds means cost deltas never force approval")
	assert.Nil(t, cfg.Policy.MaxPercent)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestParseWorkflow_RejectsInvalidDefinitions(t *testing.T) {
	cases := []struct {
		name    string
		json    string
		wantMsg string
	}{
		{"missing name", `{"approvers": [{"id": "u-dana", "name": "Dana Kim", "level": 1}]}`, "name is required"},
		{"level zero", `{"name": "w", "approvers": [{"id": "u-dana", "name": "Dana Kim", "level": 0}]}`, "level must be >= 1"},
		{"duplicate level", `{"name": "w", "approvers": [{"id": "u-dana", "name": "Dana Kim", "level": 1}, {"id": "u-sam", "name": "Sam Ortiz", "level": 1}]}`, "duplicate approver level"},
		{"missing approver id", `{"name": "w", "approvers": [{"name": "Dana Kim", "level": 1}]}`, "has no id"},
		{"negative max_amount", `{"name": "w", "threshold": {"max_amount": -1}}`, "max_amount cannot be negative"},
		{"negative max_percent", `{"name": "w", "threshold": {"max_percent": -0.5}}`, "max_percent cannot be negative"},
	}

	f := factory.NewWorkflowFactory()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ParseWorkflow(tc.json)
			require.Error(t, err)
			assert.ErrorIs(t, err, revision.ErrInvalidWorkflow)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestParseWorkflow_MalformedJSON(t *testing.T) {
	f := factory.NewWorkflowFactory()

	_, err := f.ParseWorkflow(`{"name": "w",`)
	require.Error(t, err)
	assert.NotErrorIs(t, err, revision.ErrInvalidWorkflow, "syntax errors are not validation errors")
	assert.Contains(t, err.Error(), "failed to parse workflow JSON")
}

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestWorkflowJSON_RoundTrip(t *testing.T) {
	f := factory.NewWorkflowFactory()

	original, err := f.ParseWorkflow(orders.TwoLevelWorkflowJSON(
		"purchase-standard", "u-dana", "Dana Kim", "u-sam", "Sam Ortiz", 500, 10))
	require.NoError(t, err)

	back, err := f.FromJSON(f.ToJSON(*original))
	require.NoError(t, err)

	assert.Equal(t, original.Name, back.Name)
	assert.Equal(t, original.Approvers, back.Approvers)
	assert.True(t, back.Policy.MaxAmount.Equal(*original.Policy.MaxAmount))
	assert.True(t, back.Policy.MaxPercent.Equal(*original.Policy.MaxPercent))
}

// =============================================================================
// FACTORY OUTPUT DRIVES THE CHAIN BUILDER
// =============================================================================

func TestParsedConfig_BuildsAChain(t *testing.T) {
	// The factory's approver list must be directly usable by the chain
	// builder without any reshaping.

	f := factory.NewWorkflowFactory()

	cfg, err := f.ParseWorkflow(orders.TwoLevelWorkflowJSON(
		"purchase-standard", "u-dana", "Dana Kim", "u-sam", "Sam Ortiz", 500, 10))
	require.NoError(t, err)

	chain, err := revision.BuildChain(revision.NewSequenceIDs("chain"), "rev-1",
		cfg.Approvers, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, chain.Steps, 2)
	assert.Equal(t, 1, chain.CurrentLevel)
	assert.Equal(t, revision.UserID("u-dana"), chain.CurrentStep().Approver.ID)
}
