package flow

import (
	"github.com/Abraxas-365/craftable/storex"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// ============================================================================
// Flow DTOs
// ============================================================================

type CreateFlowRequest struct {
	TenantID    kernel.TenantID `json:"tenant_id" validate:"required"`
	Name        string          `json:"name" validate:"required,min=2"`
	Description string          `json:"description,omitempty"`
	Definition  FlowDefinition  `json:"definition" validate:"required"`
}

type UpdateFlowRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Definition  *FlowDefinition `json:"definition,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

type FlowListRequest struct {
	storex.PaginationOptions
	TenantID kernel.TenantID `json:"tenant_id" validate:"required"`
	IsActive *bool           `json:"is_active,omitempty"`
	Search   string          `json:"search,omitempty"`
}

func (flr FlowListRequest) GetOffset() int {
	return (flr.Page - 1) * flr.PageSize
}

type FlowListResponse = storex.Paginated[Flow]

// ============================================================================
// Validation DTOs
// ============================================================================

type ValidateFlowRequest struct {
	Definition FlowDefinition `json:"definition" validate:"required"`
}

type ValidateFlowResponse struct {
	IsValid       bool             `json:"is_valid"`
	Errors        []string         `json:"errors,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
	InitialBranch string           `json:"initial_branch,omitempty"`
	InitialTrace  *ResolutionTrace `json:"initial_trace,omitempty"`
}

// ============================================================================
// Session DTOs
// ============================================================================

type SessionListRequest struct {
	storex.PaginationOptions
	TenantID kernel.TenantID `json:"tenant_id" validate:"required"`
	Status   *SessionStatus  `json:"status,omitempty"`
}

func (slr SessionListRequest) GetOffset() int {
	return (slr.Page - 1) * slr.PageSize
}

type SessionListResponse = storex.Paginated[Session]

// ============================================================================
// Message DTOs
// ============================================================================

// InboundMessageRequest is the webhook payload the channel layer posts.
type InboundMessageRequest struct {
	MessageID kernel.MessageID `json:"message_id" validate:"required"`
	ChannelID kernel.ChannelID `json:"channel_id" validate:"required"`
	SenderID  string           `json:"sender_id" validate:"required"`
	Text      string           `json:"text"`
}

type MessageListRequest struct {
	storex.PaginationOptions
	TenantID  kernel.TenantID  `json:"tenant_id" validate:"required"`
	SessionID kernel.SessionID `json:"session_id,omitempty"`
}

func (mlr MessageListRequest) GetOffset() int {
	return (mlr.Page - 1) * mlr.PageSize
}

type MessageListResponse = storex.Paginated[Message]

// TurnResponse is returned to the webhook caller: the outbound messages the
// channel should deliver plus the resulting session state.
type TurnResponse struct {
	SessionID kernel.SessionID `json:"session_id"`
	Status    SessionStatus    `json:"status"`
	Messages  []string         `json:"messages"`
}
