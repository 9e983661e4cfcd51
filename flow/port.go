package flow

import (
	"context"

	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// ============================================================================
// Repository Interfaces
// ============================================================================

// FlowRepository persistencia de flujos
type FlowRepository interface {
	Save(ctx context.Context, f Flow) error
	FindByID(ctx context.Context, id kernel.FlowID) (*Flow, error)
	FindByName(ctx context.Context, name string, tenantID kernel.TenantID) (*Flow, error)
	Delete(ctx context.Context, id kernel.FlowID, tenantID kernel.TenantID) error
	ExistsByName(ctx context.Context, name string, tenantID kernel.TenantID) (bool, error)

	FindByTenant(ctx context.Context, tenantID kernel.TenantID) ([]*Flow, error)
	FindActiveByChannel(ctx context.Context, channelID kernel.ChannelID, tenantID kernel.TenantID) (*Flow, error)

	List(ctx context.Context, req FlowListRequest) (FlowListResponse, error)
}

// SessionRepository persistencia de sesiones
type SessionRepository interface {
	Save(ctx context.Context, session Session) error
	FindByID(ctx context.Context, id kernel.SessionID) (*Session, error)
	Delete(ctx context.Context, id kernel.SessionID) error

	// FindOpenByChannelAndSender returns the active or suspended session for
	// a user/channel pair, or a not-found error.
	FindOpenByChannelAndSender(ctx context.Context, channelID kernel.ChannelID, senderID string) (*Session, error)
	FindExpired(ctx context.Context) ([]*Session, error)

	List(ctx context.Context, req SessionListRequest) (SessionListResponse, error)

	MarkExpired(ctx context.Context, id kernel.SessionID) error
	CountActive(ctx context.Context, tenantID kernel.TenantID) (int, error)
}

// MessageRepository persistencia del transcript
type MessageRepository interface {
	Save(ctx context.Context, msg Message) error
	FindByID(ctx context.Context, id kernel.MessageID) (*Message, error)
	FindBySession(ctx context.Context, sessionID kernel.SessionID) ([]*Message, error)

	List(ctx context.Context, req MessageListRequest) (MessageListResponse, error)
}

// ============================================================================
// Manager Interfaces
// ============================================================================

// SessionManager manejo de sesiones con lógica de negocio
type SessionManager interface {
	// GetOrCreate returns the open session for a user/channel pair, creating
	// one bound to the tenant's active flow on the first inbound message.
	GetOrCreate(ctx context.Context, channelID kernel.ChannelID, senderID string, tenantID kernel.TenantID, flowID kernel.FlowID) (*Session, error)

	Update(ctx context.Context, session Session) error
	Get(ctx context.Context, sessionID kernel.SessionID) (*Session, error)
	ExtendSession(ctx context.Context, sessionID kernel.SessionID) error
	SweepExpired(ctx context.Context) error
}

// SessionLocker serializes turns belonging to one session. Turns for
// different sessions are independent and never coordinate.
type SessionLocker interface {
	// Acquire blocks the session for one turn; returns a release func.
	// A second Acquire for the same session while held fails with
	// ErrTurnInProgress.
	Acquire(ctx context.Context, sessionID kernel.SessionID) (release func(), err error)
}

// ============================================================================
// Executor Interfaces
// ============================================================================

// NodeExecutor implements one node kind's behavior, side effects included.
// Execute never lets an error escape as a raised condition the interpreter
// must interpret: external failures come back as error/failure branches with
// a user-safe message. The returned context is a candidate; the interpreter
// alone commits it.
type NodeExecutor interface {
	Execute(ctx context.Context, tenantID kernel.TenantID, execCtx *ExecContext, node Node) (*ExecResult, error)

	// SupportsType reports whether this executor handles the node kind.
	SupportsType(nodeType NodeType) bool

	// ValidateConfig checks a node payload at authoring time.
	ValidateConfig(data map[string]any) error
}

// Interpreter drives one conversation turn through the graph.
type Interpreter interface {
	// RunTurn resumes the session with one inbound message text and returns
	// the outbound buffer plus the updated pointer. The session value is
	// mutated; the caller persists it.
	RunTurn(ctx context.Context, f *Flow, session *Session, inboundText string) (*TurnResult, error)

	// ValidateFlow checks a definition against registered executors.
	ValidateFlow(ctx context.Context, f Flow) error
}

// ============================================================================
// Processor / delivery
// ============================================================================

// TurnProcessor procesa mensajes entrantes de principio a fin
type TurnProcessor interface {
	ProcessMessage(ctx context.Context, msg Message) (*TurnResult, error)
}

// Responder delivers outbound messages back to the user's channel. Channel
// transports live outside the engine; this is the narrow seam they plug into.
type Responder interface {
	SendMessages(ctx context.Context, session *Session, texts []string) error
}
