/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Quantities, prices, and totals travel as decimal values, which serialize
  to quoted strings ("6080.00") and parse from strings or numbers. Floats
  never touch money.

TYPES:
  Orders:
    OrderDTO, CreateOrderRequest, LineItemDTO, LineItemInput

  Revisions:
    RevisionDTO, ChangeDTO, ApprovalChainDTO, ApprovalStepDTO,
    ApprovalCycleDTO, AuditEntryDTO

  Permissions:
    PermissionsDTO, CostDeltaDTO

  Users / workflow:
    UserDTO, CreateUserRequest, WorkflowDTO (wraps factory.WorkflowJSON)

  Scenarios:
    ScenarioDTO

SEE ALSO:
  - handlers.go: Uses these types
  - factory/workflow.go: WorkflowJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/revision-engine/orders"
	"github.com/warp/revision-engine/revision"
)

// =============================================================================
// ORDER TYPES
// =============================================================================

// OrderDTO represents an order in API responses.
type OrderDTO struct {
	Number        string `json:"number"`
	Kind          string `json:"kind"`
	Counterparty  string `json:"counterparty"`
	Currency      string `json:"currency"`
	CreatedBy     string `json:"created_by,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	ActiveVersion string `json:"active_version,omitempty"`
	DraftStatus   string `json:"draft_status,omitempty"`
}

// CreateOrderRequest is the request to create an order with its initial
// confirmed revision.
type CreateOrderRequest struct {
	Number       string          `json:"number"`
	Kind         string          `json:"kind"`
	Counterparty string          `json:"counterparty"`
	Currency     string          `json:"currency"`
	Lines        []LineItemInput `json:"lines"`
}

// LineItemDTO represents a line item in API responses.
type LineItemDTO struct {
	LineNumber      int             `json:"line_number"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	NetTotal        decimal.Decimal `json:"net_total"`
}

// LineItemInput is a proposed line item from a client.
type LineItemInput struct {
	LineNumber      int             `json:"line_number"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// =============================================================================
// REVISION TYPES
// =============================================================================

// RevisionDTO represents a revision in API responses. The display timestamps
// are derived from the audit log.
type RevisionDTO struct {
	ID             string             `json:"id"`
	OrderNumber    string             `json:"order_number"`
	Version        string             `json:"version"`
	Status         string             `json:"status"`
	Lines          []LineItemDTO      `json:"lines"`
	Changes        []ChangeDTO        `json:"changes,omitempty"`
	ChangesSummary string             `json:"changes_summary,omitempty"`
	Total          decimal.Decimal    `json:"total"`
	Chain          *ApprovalChainDTO  `json:"approval_chain,omitempty"`
	History        []ApprovalCycleDTO `json:"approval_history,omitempty"`
	CreatedBy      string             `json:"created_by"`
	CreatedAt      string             `json:"created_at"`
	BaseVersion    string             `json:"base_version"`
	BaseTotal      decimal.Decimal    `json:"base_total"`
	SubmittedAt    *string            `json:"submitted_at,omitempty"`
	SubmittedBy    string             `json:"submitted_by,omitempty"`
	ApprovedAt     *string            `json:"approved_at,omitempty"`
	RejectedAt     *string            `json:"rejected_at,omitempty"`
	SentAt         *string            `json:"sent_at,omitempty"`
	ConfirmedAt    *string            `json:"confirmed_at,omitempty"`
}

// ChangeDTO represents a recorded change.
type ChangeDTO struct {
	ID            string `json:"id"`
	Field         string `json:"field"`
	LineNumber    int    `json:"line_number,omitempty"`
	PreviousValue string `json:"previous_value,omitempty"`
	NewValue      string `json:"new_value,omitempty"`
	EditType      string `json:"edit_type"`
	ChangedBy     string `json:"changed_by"`
	ChangedAt     string `json:"changed_at"`
	Description   string `json:"description,omitempty"`
}

// RecordChangeRequest is the request to record a single field edit.
type RecordChangeRequest struct {
	Field       string `json:"field"`
	LineNumber  int    `json:"line_number"`
	NewValue    string `json:"new_value"`
	Description string `json:"description,omitempty"`
}

// UpdateLinesRequest replaces the draft's proposed line items wholesale.
type UpdateLinesRequest struct {
	Lines []LineItemInput `json:"lines"`
}

// NotesRequest carries optional or required notes for workflow actions.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// =============================================================================
// APPROVAL TYPES
// =============================================================================

// ApprovalChainDTO represents an approval chain.
type ApprovalChainDTO struct {
	ID           string            `json:"id"`
	CurrentLevel int               `json:"current_level"`
	IsComplete   bool              `json:"is_complete"`
	Outcome      string            `json:"outcome,omitempty"`
	Steps        []ApprovalStepDTO `json:"steps"`
	StartedAt    string            `json:"started_at"`
	CompletedAt  *string           `json:"completed_at,omitempty"`
}

// ApprovalStepDTO represents one step in an approval chain.
type ApprovalStepDTO struct {
	Level        int     `json:"level"`
	ApproverID   string  `json:"approver_id"`
	ApproverName string  `json:"approver_name"`
	ApproverRole string  `json:"approver_role,omitempty"`
	Status       string  `json:"status"`
	Action       string  `json:"action,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	ActionBy     string  `json:"action_by,omitempty"`
	ActionAt     *string `json:"action_at,omitempty"`
}

// ApprovalCycleDTO represents one submit-to-decision round.
type ApprovalCycleDTO struct {
	ID            string            `json:"id"`
	Sequence      int               `json:"sequence"`
	SubmittedBy   string            `json:"submitted_by"`
	SubmittedAt   string            `json:"submitted_at"`
	SubmitNotes   string            `json:"submit_notes,omitempty"`
	Outcome       string            `json:"outcome"`
	DecidedBy     string            `json:"decided_by,omitempty"`
	DecidedAt     *string           `json:"decided_at,omitempty"`
	DecisionNotes string            `json:"decision_notes,omitempty"`
	Chain         *ApprovalChainDTO `json:"chain,omitempty"`
}

// AuditEntryDTO represents one audit log entry.
type AuditEntryDTO struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	RevisionID  string `json:"revision_id"`
	Action      string `json:"action"`
	Status      string `json:"status"`
	At          string `json:"at"`
	Actor       string `json:"actor"`
	Role        string `json:"role,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// =============================================================================
// PERMISSION TYPES
// =============================================================================

// PermissionsDTO is the action availability snapshot for one user.
type PermissionsDTO struct {
	CanEdit          bool          `json:"can_edit"`
	CanSubmit        bool          `json:"can_submit"`
	CanApprove       bool          `json:"can_approve"`
	CanSend          bool          `json:"can_send"`
	CanSkipApproval  bool          `json:"can_skip_approval"`
	CanDiscard       bool          `json:"can_discard"`
	RequiresApproval bool          `json:"requires_approval"`
	CostDelta        *CostDeltaDTO `json:"cost_delta,omitempty"`
}

// CostDeltaDTO represents the cost comparison between active and draft.
type CostDeltaDTO struct {
	Delta            decimal.Decimal `json:"delta"`
	PercentChange    decimal.Decimal `json:"percent_change"`
	ExceedsThreshold bool            `json:"exceeds_threshold"`
}

// =============================================================================
// USER / WORKFLOW TYPES
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	IsApprover    bool   `json:"is_approver"`
	ApproverLevel int    `json:"approver_level,omitempty"`
}

// CreateUserRequest is the request to create or update a user.
type CreateUserRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	IsApprover    bool   `json:"is_approver"`
	ApproverLevel int    `json:"approver_level,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toOrderDTO(o orders.Order) OrderDTO {
	return OrderDTO{
		Number:       string(o.Number),
		Kind:         string(o.Kind),
		Counterparty: o.Counterparty,
		Currency:     o.Currency,
		CreatedBy:    string(o.CreatedBy),
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
	}
}

func toLineItemDTO(l revision.LineItem) LineItemDTO {
	return LineItemDTO{
		LineNumber:      l.LineNumber,
		Description:     l.Description,
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		DiscountPercent: l.DiscountPercent,
		NetTotal:        l.NetTotal(),
	}
}

func toLineItemDTOs(lines []revision.LineItem) []LineItemDTO {
	dtos := make([]LineItemDTO, len(lines))
	for i, l := range lines {
		dtos[i] = toLineItemDTO(l)
	}
	return dtos
}

func fromLineItemInputs(inputs []LineItemInput) []revision.LineItem {
	lines := make([]revision.LineItem, len(inputs))
	for i, in := range inputs {
		lines[i] = revision.LineItem{
			LineNumber:      in.LineNumber,
			Description:     in.Description,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			DiscountPercent: in.DiscountPercent,
		}
	}
	return lines
}

func toChangeDTO(c revision.Change) ChangeDTO {
	return ChangeDTO{
		ID:            string(c.ID),
		Field:         string(c.Field),
		LineNumber:    c.LineNumber,
		PreviousValue: c.PreviousValue,
		NewValue:      c.NewValue,
		EditType:      string(c.EditType),
		ChangedBy:     string(c.ChangedBy),
		ChangedAt:     c.ChangedAt.Format(time.RFC3339),
		Description:   c.Description,
	}
}

func toChainDTO(chain *revision.ApprovalChain) *ApprovalChainDTO {
	if chain == nil {
		return nil
	}

	dto := &ApprovalChainDTO{
		ID:           chain.ID,
		CurrentLevel: chain.CurrentLevel,
		IsComplete:   chain.IsComplete,
		Outcome:      string(chain.Outcome),
		StartedAt:    chain.StartedAt.Format(time.RFC3339),
		CompletedAt:  timePtr(chain.CompletedAt),
	}

	for _, step := range chain.Steps {
		dto.Steps = append(dto.Steps, ApprovalStepDTO{
			Level:        step.Level,
			ApproverID:   string(step.Approver.ID),
			ApproverName: step.Approver.Name,
			ApproverRole: string(step.Approver.Role),
			Status:       string(step.Status),
			Action:       string(step.Action),
			Notes:        step.Notes,
			ActionBy:     string(step.ActionBy),
			ActionAt:     timePtr(step.ActionAt),
		})
	}
	return dto
}

func toCycleDTOs(cycles []revision.ApprovalCycle) []ApprovalCycleDTO {
	var dtos []ApprovalCycleDTO
	for _, cy := range cycles {
		dtos = append(dtos, ApprovalCycleDTO{
			ID:            cy.ID,
			Sequence:      cy.Sequence,
			SubmittedBy:   string(cy.SubmittedBy),
			SubmittedAt:   cy.SubmittedAt.Format(time.RFC3339),
			SubmitNotes:   cy.SubmitNotes,
			Outcome:       string(cy.Outcome),
			DecidedBy:     string(cy.DecidedBy),
			DecidedAt:     timePtr(cy.DecidedAt),
			DecisionNotes: cy.DecisionNotes,
			Chain:         toChainDTO(cy.Chain),
		})
	}
	return dtos
}

func toRevisionDTO(rev *revision.Revision) RevisionDTO {
	dto := RevisionDTO{
		ID:             string(rev.ID),
		OrderNumber:    string(rev.OrderNumber),
		Version:        rev.Version.String(),
		Status:         string(rev.Status),
		Lines:          toLineItemDTOs(rev.Lines),
		ChangesSummary: rev.ChangesSummary,
		Total:          rev.Total(),
		Chain:          toChainDTO(rev.Chain),
		History:        toCycleDTOs(rev.History),
		CreatedBy:      string(rev.CreatedBy),
		CreatedAt:      rev.CreatedAt.Format(time.RFC3339),
		BaseVersion:    rev.BaseVersion.String(),
		BaseTotal:      rev.BaseTotal,
		SubmittedAt:    timePtr(rev.SubmittedAt()),
		SubmittedBy:    string(rev.SubmittedBy()),
		ApprovedAt:     timePtr(rev.ApprovedAt()),
		RejectedAt:     timePtr(rev.RejectedAt()),
		SentAt:         timePtr(rev.SentAt()),
		ConfirmedAt:    timePtr(rev.ConfirmedAt()),
	}

	for _, c := range rev.Changes {
		dto.Changes = append(dto.Changes, toChangeDTO(c))
	}
	return dto
}

func toAuditEntryDTOs(entries []revision.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:          string(e.ID),
			OrderNumber: string(e.OrderNumber),
			RevisionID:  string(e.RevisionID),
			Action:      string(e.Action),
			Status:      string(e.Status),
			At:          e.At.Format(time.RFC3339),
			Actor:       string(e.Actor),
			Role:        string(e.Role),
			Notes:       e.Notes,
		}
	}
	return dtos
}

func toUserDTO(u revision.User) UserDTO {
	return UserDTO{
		ID:            string(u.ID),
		Name:          u.Name,
		Role:          string(u.Role),
		IsApprover:    u.IsApprover,
		ApproverLevel: u.ApproverLevel,
	}
}

func toCostDeltaDTO(cd revision.CostDelta) CostDeltaDTO {
	return CostDeltaDTO{
		Delta:            cd.Delta,
		PercentChange:    cd.PercentChange,
		ExceedsThreshold: cd.ExceedsThreshold,
	}
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
