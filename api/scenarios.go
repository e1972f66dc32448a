/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates users, a workflow
	config, orders with confirmed revisions, and drives the engine into a
	specific mid-workflow state.

AVAILABLE SCENARIOS:

	purchase-two-level: Critical quantity change awaiting a 2-level chain
	sales-fast-path:    Non-critical edit eligible for skip-approval
	rejected-resubmit:  Rejected revision waiting for a re-edit
	fresh-start:        Roster + one confirmed order, no draft

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Seed the user roster
 3. Install a workflow config via the factory
 4. Create orders with their confirmed v1.0 revisions
 5. Drive the engine (draft, changes, submit, decisions) to the target state

DEMO USERS:

	u-pat    Pat Reyes     sales_rep    (edits sales orders)
	u-morgan Morgan Blake  procurement  (edits purchase orders)
	u-dana   Dana Kim      manager      (approver, level 1)
	u-sam    Sam Ortiz     director     (approver, level 2)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "purchase-two-level"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared handler context
  - orders/workflows.go: Workflow JSON presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/revision-engine/orders"
	"github.com/warp/revision-engine/revision"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "purchase-two-level",
		Name:        "Purchase: Two-Level Approval",
		Description: "Quantity change on a $6,080 purchase order, submitted and awaiting the manager-then-director chain",
	},
	{
		ID:          "sales-fast-path",
		Name:        "Sales: Fast Path",
		Description: "Non-critical description edit under a threshold-free workflow, eligible for skip-approval",
	},
	{
		ID:          "rejected-resubmit",
		Name:        "Rejected: Edit and Resubmit",
		Description: "Price change rejected with notes; the revision is editable again and waits for a new change",
	},
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "Roster, workflow, and one confirmed order with no draft in flight",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "purchase-two-level":
		err = h.loadPurchaseTwoLevelScenario(ctx)
	case "sales-fast-path":
		err = h.loadSalesFastPathScenario(ctx)
	case "rejected-resubmit":
		err = h.loadRejectedResubmitScenario(ctx)
	case "fresh-start":
		err = h.loadFreshStartScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.log.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadPurchaseTwoLevelScenario(ctx context.Context) error {
	roster, err := h.seedRoster(ctx)
	if err != nil {
		return err
	}

	// Two approval levels, tight thresholds ($500 / 10%)
	workflowJSON := orders.TwoLevelWorkflowJSON("purchase-standard",
		"u-dana", "Dana Kim", "u-sam", "Sam Ortiz", 500, 10)
	if err := h.applyWorkflowJSON(ctx, workflowJSON); err != nil {
		return err
	}

	// $6,080 purchase order confirmed ten days ago
	clock := revision.NewStepClock(daysAgo(10), 15*time.Minute)
	lines := []revision.LineItem{
		{LineNumber: 1, Description: "Steel mounting brackets", Quantity: dec(100), UnitPrice: dec(32)},
		{LineNumber: 2, Description: "Aluminum support rails", Quantity: dec(60), UnitPrice: dec(48)},
	}
	order := orders.Order{
		Number:       "PO-2025-001",
		Kind:         orders.KindPurchase,
		Counterparty: "Acme Industrial Supply",
		Currency:     "USD",
		CreatedBy:    roster.morgan.ID,
		CreatedAt:    clock.Now(),
	}
	if err := h.createConfirmedOrder(ctx, order, lines, roster.morgan, clock); err != nil {
		return err
	}

	// Morgan bumps line 1 from 100 to 120 units and submits. The change is
	// critical, so the draft sits at version 2.0 awaiting Dana (level 1).
	if _, err := h.Service.CreateDraft(ctx, order.Number, roster.morgan); err != nil {
		return err
	}
	if _, err := h.Service.RecordChange(ctx, order.Number, roster.morgan, revision.ChangeInput{
		Field:      revision.FieldQuantity,
		LineNumber: 1,
		NewValue:   "120",
	}); err != nil {
		return err
	}
	if _, err := h.Service.SubmitForApproval(ctx, order.Number, roster.morgan,
		"Customer upped the order volume"); err != nil {
		return err
	}

	return nil
}

func (h *Handler) loadSalesFastPathScenario(ctx context.Context) error {
	roster, err := h.seedRoster(ctx)
	if err != nil {
		return err
	}

	// No thresholds: only critical changes ever require approval
	workflowJSON := orders.AutoApproveWorkflowJSON("sales-light", "u-dana", "Dana Kim")
	if err := h.applyWorkflowJSON(ctx, workflowJSON); err != nil {
		return err
	}

	clock := revision.NewStepClock(daysAgo(6), 20*time.Minute)
	lines := []revision.LineItem{
		{LineNumber: 1, Description: "Modular shelving unit", Quantity: dec(24), UnitPrice: dec(180), DiscountPercent: dec(5)},
		{LineNumber: 2, Description: "Installation service", Quantity: dec(1), UnitPrice: dec(950)},
	}
	order := orders.Order{
		Number:       "SO-2025-104",
		Kind:         orders.KindSales,
		Counterparty: "Brightline Retail",
		Currency:     "USD",
		CreatedBy:    roster.pat.ID,
		CreatedAt:    clock.Now(),
	}
	if err := h.createConfirmedOrder(ctx, order, lines, roster.pat, clock); err != nil {
		return err
	}

	// A description-only edit stays non-critical, so the draft is eligible
	// for skip-approval.
	if _, err := h.Service.CreateDraft(ctx, order.Number, roster.pat); err != nil {
		return err
	}
	if _, err := h.Service.RecordChange(ctx, order.Number, roster.pat, revision.ChangeInput{
		Field:      revision.FieldDescription,
		LineNumber: 2,
		NewValue:   "Installation service, weekend slot",
	}); err != nil {
		return err
	}

	return nil
}

func (h *Handler) loadRejectedResubmitScenario(ctx context.Context) error {
	roster, err := h.seedRoster(ctx)
	if err != nil {
		return err
	}

	workflowJSON := orders.SingleApproverWorkflowJSON("purchase-single", "u-dana", "Dana Kim", 250)
	if err := h.applyWorkflowJSON(ctx, workflowJSON); err != nil {
		return err
	}

	clock := revision.NewStepClock(daysAgo(4), 30*time.Minute)
	lines := []revision.LineItem{
		{LineNumber: 1, Description: "Bearing assembly", Quantity: dec(40), UnitPrice: dec(55)},
	}
	order := orders.Order{
		Number:       "PO-2025-007",
		Kind:         orders.KindPurchase,
		Counterparty: "Nordic Components",
		Currency:     "USD",
		CreatedBy:    roster.morgan.ID,
		CreatedAt:    clock.Now(),
	}
	if err := h.createConfirmedOrder(ctx, order, lines, roster.morgan, clock); err != nil {
		return err
	}

	// Price bump, submitted, rejected by Dana. The revision is editable
	// again but cannot be resubmitted until a new change is recorded.
	if _, err := h.Service.CreateDraft(ctx, order.Number, roster.morgan); err != nil {
		return err
	}
	if _, err := h.Service.RecordChange(ctx, order.Number, roster.morgan, revision.ChangeInput{
		Field:      revision.FieldUnitPrice,
		LineNumber: 1,
		NewValue:   "61.50",
	}); err != nil {
		return err
	}
	if _, err := h.Service.SubmitForApproval(ctx, order.Number, roster.morgan,
		"Supplier price update"); err != nil {
		return err
	}
	if _, err := h.Service.Reject(ctx, order.Number, roster.dana, "price too high"); err != nil {
		return err
	}

	return nil
}

func (h *Handler) loadFreshStartScenario(ctx context.Context) error {
	roster, err := h.seedRoster(ctx)
	if err != nil {
		return err
	}

	workflowJSON := orders.TwoLevelWorkflowJSON("purchase-standard",
		"u-dana", "Dana Kim", "u-sam", "Sam Ortiz", 500, 10)
	if err := h.applyWorkflowJSON(ctx, workflowJSON); err != nil {
		return err
	}

	clock := revision.NewStepClock(daysAgo(2), 10*time.Minute)
	lines := []revision.LineItem{
		{LineNumber: 1, Description: "Conveyor belt section", Quantity: dec(12), UnitPrice: dec(240)},
		{LineNumber: 2, Description: "Drive motor", Quantity: dec(2), UnitPrice: dec(1150)},
	}
	order := orders.Order{
		Number:       "PO-2025-100",
		Kind:         orders.KindPurchase,
		Counterparty: "Harbor Automation",
		Currency:     "USD",
		CreatedBy:    roster.morgan.ID,
		CreatedAt:    clock.Now(),
	}
	return h.createConfirmedOrder(ctx, order, lines, roster.morgan, clock)
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

type demoRoster struct {
	pat    revision.User
	morgan revision.User
	dana   revision.User
	sam    revision.User
}

func (h *Handler) seedRoster(ctx context.Context) (demoRoster, error) {
	roster := demoRoster{
		pat:    revision.User{ID: "u-pat", Name: "Pat Reyes", Role: revision.RoleSalesRep},
		morgan: revision.User{ID: "u-morgan", Name: "Morgan Blake", Role: revision.RoleProcurement},
		dana:   revision.User{ID: "u-dana", Name: "Dana Kim", Role: revision.RoleManager, IsApprover: true, ApproverLevel: 1},
		sam:    revision.User{ID: "u-sam", Name: "Sam Ortiz", Role: revision.RoleDirector, IsApprover: true, ApproverLevel: 2},
	}

	for _, u := range []revision.User{roster.pat, roster.morgan, roster.dana, roster.sam} {
		if err := h.Store.SaveUser(ctx, u); err != nil {
			return roster, err
		}
	}
	return roster, nil
}

// applyWorkflowJSON parses, persists, and activates a workflow config.
func (h *Handler) applyWorkflowJSON(ctx context.Context, jsonStr string) error {
	cfg, err := h.WorkflowFactory.ParseWorkflow(jsonStr)
	if err != nil {
		return err
	}
	if err := h.Store.SaveWorkflow(ctx, cfg.Name, jsonStr); err != nil {
		return err
	}
	h.Service.SetWorkflow(*cfg)
	return nil
}

// createConfirmedOrder persists the order and its confirmed v1.0 revision.
func (h *Handler) createConfirmedOrder(ctx context.Context, o orders.Order, lines []revision.LineItem, actor revision.User, clock revision.Clock) error {
	initial, err := orders.NewInitialRevision(o, lines, actor, clock, h.IDs)
	if err != nil {
		return err
	}
	if err := h.Store.SaveOrder(ctx, o); err != nil {
		return err
	}
	return h.Store.SaveRevision(ctx, initial)
}

func daysAgo(n int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -n)
}

func dec(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}
