/*
handlers.go - HTTP API handlers for the revision workflow system

PURPOSE:
  Exposes the revision engine via REST API. Handles HTTP request/response,
  JSON serialization, actor resolution, and delegates to domain logic.

ENDPOINTS:
  Orders:
    GET    /api/orders                       List all orders
    POST   /api/orders                       Create order + initial revision
    GET    /api/orders/{number}              Get order details

  Draft lifecycle:
    POST   /api/orders/{number}/draft                 Create revision draft
    GET    /api/orders/{number}/draft                 Get current draft
    DELETE /api/orders/{number}/draft                 Discard draft
    PUT    /api/orders/{number}/draft/lines           Replace proposed lines
    POST   /api/orders/{number}/draft/changes         Record a single edit
    POST   /api/orders/{number}/draft/submit          Submit for approval
    POST   /api/orders/{number}/draft/approve         Approve current level
    POST   /api/orders/{number}/draft/reject          Reject (notes required)
    POST   /api/orders/{number}/draft/request-changes Request changes
    POST   /api/orders/{number}/draft/send            Send approved revision
    POST   /api/orders/{number}/draft/skip-approval   Skip approval and send
    POST   /api/orders/{number}/draft/confirm         Confirm sent revision

  Reads:
    GET    /api/orders/{number}/active       Active (confirmed) revision
    GET    /api/orders/{number}/history      Confirmed revision history
    GET    /api/orders/{number}/permissions  Action availability for actor
    GET    /api/orders/{number}/delta        Cost delta vs active
    GET    /api/orders/{number}/timeline     Full audit timeline

  Users / workflow:
    GET    /api/users                        List roster
    POST   /api/users                        Create/update user
    GET    /api/users/{id}                   Get user
    GET    /api/workflow                     Current workflow config
    PUT    /api/workflow                     Replace workflow config

  Scenarios:
    GET    /api/scenarios                    List demo scenarios
    POST   /api/scenarios/load               Load a demo scenario
    POST   /api/scenarios/reset              Clear all data

ACTOR RESOLUTION:
  Every mutating endpoint reads the X-User-ID header, resolves the user
  from the roster, and passes it explicitly into the engine. There is no
  ambient current-user state.

ERROR HANDLING:
  Engine errors map to HTTP status codes:
  - 400: Invalid transition, validation errors, invalid input
  - 404: Order / draft / revision / user not found
  - 409: Conflicting draft, stale approval step
  - 500: Internal errors

SECURITY NOTE:
  The X-User-ID header is trusted as-is. There is no authentication; put a
  gateway in front of this in any real deployment.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/revision-engine/factory"
	"github.com/warp/revision-engine/orders"
	"github.com/warp/revision-engine/revision"
	"github.com/warp/revision-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store           *sqlite.Store
	Service         *revision.Service
	WorkflowFactory *factory.WorkflowFactory

	// Clock and IDs seed initial revisions and scenario data.
	Clock revision.Clock
	IDs   revision.IDGenerator

	log zerolog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store and service.
func NewHandler(store *sqlite.Store, svc *revision.Service, log zerolog.Logger) *Handler {
	return &Handler{
		Store:           store,
		Service:         svc,
		WorkflowFactory: factory.NewWorkflowFactory(),
		Clock:           revision.SystemClock{},
		IDs:             revision.UUIDGenerator{},
		log:             log,
	}
}

// requireActor resolves the acting user from the X-User-ID header.
// Writes the error response and returns false when resolution fails.
func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (revision.User, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "X-User-ID header is required", nil)
		return revision.User{}, false
	}

	user, err := h.Store.GetUser(r.Context(), revision.UserID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve user", err)
		return revision.User{}, false
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return revision.User{}, false
	}
	return *user, true
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// ListOrders returns all orders with their active version and draft status.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := h.Store.ListOrders(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders", err)
		return
	}

	dtos := make([]OrderDTO, len(all))
	for i, o := range all {
		dto := toOrderDTO(o)
		if active, err := h.Store.Active(ctx, o.Number); err == nil && active != nil {
			dto.ActiveVersion = active.Version.String()
		}
		if draft, err := h.Store.GetDraft(ctx, o.Number); err == nil && draft != nil {
			dto.DraftStatus = string(draft.Status)
		}
		dtos[i] = dto
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetOrder returns a single order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	o, err := h.Store.GetOrder(r.Context(), number)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get order", err)
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, "Order not found", nil)
		return
	}

	dto := toOrderDTO(*o)
	if active, err := h.Store.Active(r.Context(), number); err == nil && active != nil {
		dto.ActiveVersion = active.Version.String()
	}
	if draft, err := h.Store.GetDraft(r.Context(), number); err == nil && draft != nil {
		dto.DraftStatus = string(draft.Status)
	}

	writeJSON(w, http.StatusOK, dto)
}

// CreateOrder creates an order together with its confirmed v1.0 revision.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Number == "" {
		writeError(w, http.StatusBadRequest, "Order number is required", nil)
		return
	}

	ctx := r.Context()
	if existing, err := h.Store.GetOrder(ctx, revision.OrderNumber(req.Number)); err == nil && existing != nil {
		writeError(w, http.StatusConflict, "Order already exists", nil)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	o := orders.Order{
		Number:       revision.OrderNumber(req.Number),
		Kind:         orders.Kind(req.Kind),
		Counterparty: req.Counterparty,
		Currency:     currency,
		CreatedBy:    actor.ID,
		CreatedAt:    h.Clock.Now(),
	}

	initial, err := orders.NewInitialRevision(o, fromLineItemInputs(req.Lines), actor, h.Clock, h.IDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order", err)
		return
	}

	if err := h.Store.SaveOrder(ctx, o); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create order", err)
		return
	}
	if err := h.Store.SaveRevision(ctx, initial); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save initial revision", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRevisionDTO(initial))
}

// =============================================================================
// DRAFT LIFECYCLE HANDLERS
// =============================================================================

// CreateDraft opens a new revision draft seeded from the active revision.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	rev, err := h.Service.CreateDraft(r.Context(), number, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRevisionDTO(rev))
}

// GetDraft returns the order's current draft-family revision.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	rev, err := h.Service.GetDraft(r.Context(), number)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevisionDTO(rev))
}

// DiscardDraft deletes the draft. Its audit entries stay on the timeline.
func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	if err := h.Service.Discard(r.Context(), number, actor); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

// UpdateLines replaces the draft's proposed line items; the change detector
// records the resulting field-level changes.
func (h *Handler) UpdateLines(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	var req UpdateLinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	proposed := fromLineItemInputs(req.Lines)
	if err := orders.ValidateLines(proposed); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid line items", err)
		return
	}

	rev, err := h.Service.UpdateLines(r.Context(), number, actor, proposed)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevisionDTO(rev))
}

// RecordChange records a single field edit against the draft.
func (h *Handler) RecordChange(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	var req RecordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rev, err := h.Service.RecordChange(r.Context(), number, actor, revision.ChangeInput{
		Field:       revision.ChangeField(req.Field),
		LineNumber:  req.LineNumber,
		NewValue:    req.NewValue,
		Description: req.Description,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevisionDTO(rev))
}

// SubmitForApproval routes the draft into its approval chain.
func (h *Handler) SubmitForApproval(w http.ResponseWriter, r *http.Request) {
	h.workflowAction(w, r, h.Service.SubmitForApproval)
}

// Approve records the current-level approver's approval.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.workflowAction(w, r, h.Service.Approve)
}

// Reject rejects the pending revision. Notes are required.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.workflowAction(w, r, h.Service.Reject)
}

// RequestChanges sends the revision back for edits. Notes are required.
func (h *Handler) RequestChanges(w http.ResponseWriter, r *http.Request) {
	h.workflowAction(w, r, h.Service.RequestChanges)
}

// workflowAction handles the shared decode-call-respond shape of the
// notes-carrying workflow endpoints. The body is optional; an absent or
// empty body means no notes.
func (h *Handler) workflowAction(w http.ResponseWriter, r *http.Request,
	op func(context.Context, revision.OrderNumber, revision.User, string) (*revision.Revision, error)) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	var req NotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rev, err := op(r.Context(), number, actor, req.Notes)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevisionDTO(rev))
}

// SendOnward marks the approved revision as sent to the counterparty.
func (h *Handler) SendOnward(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	rev, err := h.Service.SendOnward(r.Context(), number, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevisionDTO(rev))
}

// SkipApprovalAndSend sends a draft that does not require approval.
func (h *Handler) SkipApprovalAndSend(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	rev, err := h.Service.SkipApprovalAndSend(r.Context(), number, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevisionDTO(rev))
}

// Confirm promotes the sent revision to the order's new active revision.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	rev, err := h.Service.Confirm(r.Context(), number, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevisionDTO(rev))
}

// =============================================================================
// READ HANDLERS
// =============================================================================

// GetActive returns the order's active (latest confirmed) revision.
func (h *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	rev, err := h.Service.GetActive(r.Context(), number)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevisionDTO(rev))
}

// GetHistory returns the order's confirmed revisions, oldest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	revs, err := h.Service.GetHistory(r.Context(), number)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]RevisionDTO, len(revs))
	for i, rev := range revs {
		dtos[i] = toRevisionDTO(rev)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPermissions returns the actor's action availability for the order's
// draft, plus the derived requires-approval flag and cost delta.
func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	number := revision.OrderNumber(chi.URLParam(r, "number"))
	ctx := r.Context()

	perms, err := h.Service.GetPermissions(ctx, number, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dto := PermissionsDTO{
		CanEdit:         perms.CanEdit,
		CanSubmit:       perms.CanSubmit,
		CanApprove:      perms.CanApprove,
		CanSend:         perms.CanSend,
		CanSkipApproval: perms.CanSkipApproval,
		CanDiscard:      perms.CanDiscard,
	}

	// With no draft these stay at their zero values.
	if needs, err := h.Service.RequiresApproval(ctx, number); err == nil {
		dto.RequiresApproval = needs
	}
	if cd, err := h.Service.CostDelta(ctx, number); err == nil {
		d := toCostDeltaDTO(cd)
		dto.CostDelta = &d
	}

	writeJSON(w, http.StatusOK, dto)
}

// GetCostDelta returns the draft's cost delta against the active revision.
func (h *Handler) GetCostDelta(w http.ResponseWriter, r *http.Request) {
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	cd, err := h.Service.CostDelta(r.Context(), number)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCostDeltaDTO(cd))
}

// GetTimeline returns the order's full audit timeline, oldest first,
// including entries from discarded drafts.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	number := revision.OrderNumber(chi.URLParam(r, "number"))

	entries, err := h.Service.Timeline(r.Context(), number)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditEntryDTOs(entries))
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns the roster.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := revision.UserID(chi.URLParam(r, "id"))

	user, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// CreateUser creates or updates a roster entry.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	if req.IsApprover && req.ApproverLevel < 1 {
		writeError(w, http.StatusBadRequest, "approver_level must be >= 1 for approvers", nil)
		return
	}

	user := revision.User{
		ID:            revision.UserID(req.ID),
		Name:          req.Name,
		Role:          revision.Role(req.Role),
		IsApprover:    req.IsApprover,
		ApproverLevel: req.ApproverLevel,
	}
	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// =============================================================================
// WORKFLOW HANDLERS
// =============================================================================

// GetWorkflow returns the currently configured workflow.
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	cfg := h.Service.Workflow()
	writeJSON(w, http.StatusOK, h.WorkflowFactory.ToJSON(cfg))
}

// UpdateWorkflow validates, persists, and activates a workflow config.
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wj factory.WorkflowJSON
	if err := json.NewDecoder(r.Body).Decode(&wj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.WorkflowFactory.FromJSON(wj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid workflow", err)
		return
	}

	raw, _ := json.Marshal(wj)
	if err := h.Store.SaveWorkflow(r.Context(), cfg.Name, string(raw)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save workflow", err)
		return
	}

	h.Service.SetWorkflow(*cfg)
	writeJSON(w, http.StatusOK, h.WorkflowFactory.ToJSON(*cfg))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine error kinds to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case revision.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case revision.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case revision.IsInvalidTransition(err):
		writeError(w, http.StatusBadRequest, "Invalid transition", err)
	case errors.Is(err, revision.ErrInvalidWorkflow):
		writeError(w, http.StatusBadRequest, "Invalid workflow", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
