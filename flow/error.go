package flow

import (
	"net/http"

	"github.com/Abraxas-365/craftable/errx"
)

var ErrRegistry = errx.NewRegistry("FLOW")

var (
	// Flow errors
	CodeFlowNotFound          = ErrRegistry.Register("FLOW_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Flow not found")
	CodeFlowAlreadyExists     = ErrRegistry.Register("FLOW_ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Flow already exists")
	CodeInvalidFlowDefinition = ErrRegistry.Register("INVALID_FLOW_DEFINITION", errx.TypeValidation, http.StatusBadRequest, "Invalid flow definition")
	CodeFlowInactive          = ErrRegistry.Register("FLOW_INACTIVE", errx.TypeBusiness, http.StatusForbidden, "Flow is inactive")

	// Structural errors (graph shape)
	CodeDanglingEdge       = ErrRegistry.Register("DANGLING_EDGE", errx.TypeValidation, http.StatusBadRequest, "Edge references a missing node")
	CodeNoEntryNode        = ErrRegistry.Register("NO_ENTRY_NODE", errx.TypeValidation, http.StatusBadRequest, "Flow has no reachable entry node")
	CodeDuplicateBranchTag = ErrRegistry.Register("DUPLICATE_BRANCH_TAG", errx.TypeValidation, http.StatusBadRequest, "Two edges leaving one node share a branch tag")
	CodeUnknownNodeKind    = ErrRegistry.Register("UNKNOWN_NODE_KIND", errx.TypeValidation, http.StatusBadRequest, "Node kind is not recognized")
	CodeNodeNotFound       = ErrRegistry.Register("NODE_NOT_FOUND", errx.TypeValidation, http.StatusBadRequest, "Current node pointer resolves to no node")

	// Structural errors (traversal)
	CodeUnmatchedBranch   = ErrRegistry.Register("UNMATCHED_BRANCH", errx.TypeValidation, http.StatusBadRequest, "No outgoing edge matches the executor branch")
	CodeHopBudgetExceeded = ErrRegistry.Register("HOP_BUDGET_EXCEEDED", errx.TypeValidation, http.StatusBadRequest, "Turn exceeded the node traversal budget")

	// Session errors
	CodeSessionNotFound = ErrRegistry.Register("SESSION_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Session not found")
	CodeSessionExpired  = ErrRegistry.Register("SESSION_EXPIRED", errx.TypeBusiness, http.StatusGone, "Session expired")
	CodeSessionFinished = ErrRegistry.Register("SESSION_FINISHED", errx.TypeBusiness, http.StatusConflict, "Session already completed or failed")
	CodeTurnInProgress  = ErrRegistry.Register("TURN_IN_PROGRESS", errx.TypeConflict, http.StatusConflict, "Another turn for this session is in progress")

	// Message errors
	CodeMessageAlreadyProcessed = ErrRegistry.Register("MESSAGE_ALREADY_PROCESSED", errx.TypeConflict, http.StatusConflict, "Message was already processed")
	CodeMessageProcessingFailed = ErrRegistry.Register("MESSAGE_PROCESSING_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Message processing failed")
)

// Error constructor functions
func ErrFlowNotFound() *errx.Error {
	return ErrRegistry.New(CodeFlowNotFound)
}

func ErrFlowAlreadyExists() *errx.Error {
	return ErrRegistry.New(CodeFlowAlreadyExists)
}

func ErrInvalidFlowDefinition() *errx.Error {
	return ErrRegistry.New(CodeInvalidFlowDefinition)
}

func ErrFlowInactive() *errx.Error {
	return ErrRegistry.New(CodeFlowInactive)
}

func ErrDanglingEdge() *errx.Error {
	return ErrRegistry.New(CodeDanglingEdge)
}

func ErrNoEntryNode() *errx.Error {
	return ErrRegistry.New(CodeNoEntryNode)
}

func ErrDuplicateBranchTag() *errx.Error {
	return ErrRegistry.New(CodeDuplicateBranchTag)
}

func ErrUnknownNodeKind() *errx.Error {
	return ErrRegistry.New(CodeUnknownNodeKind)
}

func ErrNodeNotFound() *errx.Error {
	return ErrRegistry.New(CodeNodeNotFound)
}

func ErrUnmatchedBranch() *errx.Error {
	return ErrRegistry.New(CodeUnmatchedBranch)
}

func ErrHopBudgetExceeded() *errx.Error {
	return ErrRegistry.New(CodeHopBudgetExceeded)
}

func ErrSessionNotFound() *errx.Error {
	return ErrRegistry.New(CodeSessionNotFound)
}

func ErrSessionExpired() *errx.Error {
	return ErrRegistry.New(CodeSessionExpired)
}

func ErrSessionFinished() *errx.Error {
	return ErrRegistry.New(CodeSessionFinished)
}

func ErrTurnInProgress() *errx.Error {
	return ErrRegistry.New(CodeTurnInProgress)
}

func ErrMessageAlreadyProcessed() *errx.Error {
	return ErrRegistry.New(CodeMessageAlreadyProcessed)
}

func ErrMessageProcessingFailed() *errx.Error {
	return ErrRegistry.New(CodeMessageProcessingFailed)
}

// IsStructural reports whether err is one of the graph-shape or traversal
// errors that must fail the session rather than surface to the end user.
// All structural codes above are registered as validation-type errors.
func IsStructural(err error) bool {
	return errx.IsType(err, errx.TypeValidation)
}
