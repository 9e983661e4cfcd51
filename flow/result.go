package flow

import "github.com/dialogo-labs/dialogo/pkg/kernel"

// ============================================================================
// Branch vocabulary
//
// These sentinels cross the boundary to flow authors: the builder shows them
// as edge handles. They must stay stable.
// ============================================================================

const (
	BranchSuccess      = "success"
	BranchFailure      = "failure"
	BranchError        = "error"
	BranchResponse     = "response"
	BranchAvailable    = "available"
	BranchNotAvailable = "not_available"
	BranchQualified    = "qualified"
	BranchNotQualified = "not_qualified"
	BranchNeedReason   = "needReason"
	BranchNeedDateTime = "needDateTime"

	// BranchTerminal is returned by an executor that ends the conversation
	// itself instead of selecting an outgoing edge.
	BranchTerminal = "__terminal"
)

// ============================================================================
// Execution Result
// ============================================================================

// ExecResult is the sole communication channel between a node executor and
// the interpreter: the branch tag to follow, an optional user-facing
// message, and the candidate context the interpreter may commit.
type ExecResult struct {
	NextBranch string       `json:"next_branch"`
	Message    string       `json:"message,omitempty"`
	Context    *ExecContext `json:"context,omitempty"`
}

// ============================================================================
// Turn Result
// ============================================================================

// TurnResult is what one interpreter turn produces: the concatenated
// outbound buffer, the persisted pointer and status, and the resolver
// diagnostics accumulated along the way.
type TurnResult struct {
	SessionID     kernel.SessionID  `json:"session_id,omitempty"`
	Messages      []string          `json:"messages"`
	Status        SessionStatus     `json:"status"`
	CurrentNodeID string            `json:"current_node_id,omitempty"`
	Context       *ExecContext      `json:"context,omitempty"`
	Hops          int               `json:"hops"`
	Diagnostics   []ResolutionTrace `json:"diagnostics,omitempty"`
}
