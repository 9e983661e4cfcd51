package flowinterp

import (
	"context"
	"log"
	"strings"

	"github.com/Abraxas-365/craftable/errx"

	"github.com/dialogo-labs/dialogo/flow"
)

// DefaultHopBudget bounds node traversals per turn. A graph whose
// non-suspending nodes form a cycle terminates with a structural error
// instead of spinning.
const DefaultHopBudget = 25

// FlowInterpreter camina el grafo conversacional un turno a la vez:
// avanza desde el nodo actual hasta la próxima suspensión o nodo final,
// acumulando los mensajes salientes del turno.
type FlowInterpreter struct {
	nodeExecutors map[flow.NodeType]flow.NodeExecutor
	hopBudget     int
}

var _ flow.Interpreter = (*FlowInterpreter)(nil)

func NewFlowInterpreter(hopBudget int, nodeExecutors ...flow.NodeExecutor) *FlowInterpreter {
	if hopBudget <= 0 {
		hopBudget = DefaultHopBudget
	}

	interp := &FlowInterpreter{
		nodeExecutors: make(map[flow.NodeType]flow.NodeExecutor),
		hopBudget:     hopBudget,
	}

	for _, nodeExec := range nodeExecutors {
		interp.RegisterNodeExecutor(nodeExec)
	}

	return interp
}

func (i *FlowInterpreter) RegisterNodeExecutor(executor flow.NodeExecutor) {
	for _, nodeType := range []flow.NodeType{
		flow.NodeTypeCondition,
		flow.NodeTypeTextGen,
		flow.NodeTypeAvailability,
		flow.NodeTypeBook,
		flow.NodeTypeReschedule,
		flow.NodeTypeCancel,
		flow.NodeTypeLeadQual,
		flow.NodeTypeCatalog,
	} {
		if executor.SupportsType(nodeType) {
			i.nodeExecutors[nodeType] = executor
			log.Printf("✅ Registered executor for node type: %s", nodeType)
		}
	}
}

// ============================================================================
// RunTurn - drive one conversation turn
// ============================================================================

func (i *FlowInterpreter) RunTurn(ctx context.Context, f *flow.Flow, session *flow.Session, inboundText string) (*flow.TurnResult, error) {
	if session.IsFinished() {
		return nil, flow.ErrSessionFinished().WithDetail("session_id", session.ID.String())
	}

	def := &f.Definition
	execCtx := session.Context
	if execCtx == nil {
		execCtx = flow.NewExecContext()
	}

	// Executors stamp their side effects (CRM leads, bookings) with the
	// conversation identity, so it travels in the context.
	execCtx.Set("session_id", session.ID.String())
	execCtx.Set("tenant_id", session.TenantID.String())
	execCtx.Set("sender_id", session.SenderID)

	inboundText = strings.TrimSpace(inboundText)
	execCtx.Set("last_message", inboundText)

	result := &flow.TurnResult{Messages: []string{}}

	currentNodeID := session.CurrentNodeID
	if currentNodeID == "" {
		entry := def.EntryNode()
		if entry == nil {
			return nil, flow.ErrNoEntryNode().WithDetail("flow_id", f.ID.String())
		}
		currentNodeID = entry.ID
	}

	// Suspended sessions first bind the inbound text to the capture variable
	// the suspended node declared. Waiting message nodes then advance along
	// their outgoing edge; waiting executor nodes (condition) re-run with the
	// variable now present.
	if session.Status == flow.SessionStatusSuspended {
		node := def.GetNodeByID(currentNodeID)
		if node == nil {
			return nil, flow.ErrNodeNotFound().WithDetail("node_id", currentNodeID)
		}

		variable := session.WaitingVariable
		if variable == "" {
			variable = node.CaptureVariable()
		}
		if variable != "" {
			execCtx.Set(variable, inboundText)
		}

		if !node.IsExecutor() {
			edge := def.FirstOutgoingEdge(currentNodeID)
			if edge == nil {
				session.Complete()
				return i.finishTurn(session, execCtx, result, 0), nil
			}
			currentNodeID = edge.Target
		}
	}

	hops := 0
	for {
		if hops >= i.hopBudget {
			return nil, flow.ErrHopBudgetExceeded().
				WithDetail("flow_id", f.ID.String()).
				WithDetail("hop_budget", i.hopBudget).
				WithDetail("node_id", currentNodeID)
		}
		hops++

		node := def.GetNodeByID(currentNodeID)
		if node == nil {
			return nil, flow.ErrNodeNotFound().WithDetail("node_id", currentNodeID)
		}
		if !node.IsKnown() {
			return nil, flow.ErrUnknownNodeKind().
				WithDetail("node_id", node.ID).
				WithDetail("node_type", string(node.Type))
		}

		switch node.Kind() {
		case flow.NodeTypeStart:
			edge := def.FirstOutgoingEdge(node.ID)
			if edge == nil {
				session.MoveTo(node.ID)
				session.Complete()
				return i.finishTurn(session, execCtx, result, hops), nil
			}
			currentNodeID = edge.Target

		case flow.NodeTypeEnd:
			text, trace, ok := flow.ResolveNodeMessage(node)
			result.Diagnostics = append(result.Diagnostics, trace)
			if ok {
				result.Messages = append(result.Messages, flow.RenderTemplate(text, execCtx))
			}
			session.MoveTo(node.ID)
			session.Complete()
			return i.finishTurn(session, execCtx, result, hops), nil

		case flow.NodeTypeMessage, flow.NodeTypeInputCapture:
			// Misses are diagnostics too: the trace reports what was tried.
			text, trace, ok := flow.ResolveNodeMessage(node)
			result.Diagnostics = append(result.Diagnostics, trace)
			if ok {
				result.Messages = append(result.Messages, flow.RenderTemplate(text, execCtx))
			}

			if node.Kind() == flow.NodeTypeInputCapture || node.WaitsForResponse() {
				session.Suspend(node.ID, node.CaptureVariable())
				return i.finishTurn(session, execCtx, result, hops), nil
			}

			edge := def.FirstOutgoingEdge(node.ID)
			if edge == nil {
				session.MoveTo(node.ID)
				session.Complete()
				return i.finishTurn(session, execCtx, result, hops), nil
			}
			currentNodeID = edge.Target

		default:
			// Condition nodes without their discriminant yet prompt the user
			// and park the turn, so a menu reads as one suspension point.
			if node.Kind() == flow.NodeTypeCondition && !execCtx.Has(node.ConditionVariable()) {
				text, trace, ok := flow.ResolveNodeMessage(node)
				result.Diagnostics = append(result.Diagnostics, trace)
				if ok {
					result.Messages = append(result.Messages, flow.RenderTemplate(text, execCtx))
				}
				session.Suspend(node.ID, node.ConditionVariable())
				return i.finishTurn(session, execCtx, result, hops), nil
			}

			nextNodeID, done, err := i.executeNode(ctx, f, session, def, node, execCtx, result)
			if err != nil {
				return nil, err
			}
			if done {
				return i.finishTurn(session, execCtx, result, hops), nil
			}
			currentNodeID = nextNodeID
		}
	}
}

// executeNode dispatches one executor node and selects the outgoing edge
// for the branch it produced. done reports that the session reached a
// terminal state inside the node.
func (i *FlowInterpreter) executeNode(
	ctx context.Context,
	f *flow.Flow,
	session *flow.Session,
	def *flow.FlowDefinition,
	node *flow.Node,
	execCtx *flow.ExecContext,
	result *flow.TurnResult,
) (string, bool, error) {
	executor, ok := i.nodeExecutors[node.Kind()]
	if !ok {
		return "", false, flow.ErrUnknownNodeKind().
			WithDetail("node_id", node.ID).
			WithDetail("node_type", string(node.Type)).
			WithDetail("reason", "no executor registered for node type")
	}

	log.Printf("⚡ Executing node: %s (type: %s)", node.ID, node.Kind())

	execResult, err := executor.Execute(ctx, session.TenantID, execCtx, *node)
	if err != nil {
		// Executors convert provider failures into branches; an escaped
		// error means the node itself is broken.
		return "", false, errx.Wrap(err, "node executor failed", errx.TypeValidation)
	}

	if execResult.Context != nil {
		execCtx.Merge(execResult.Context)
	}
	if execResult.Message != "" {
		result.Messages = append(result.Messages, execResult.Message)
	}

	if execResult.NextBranch == flow.BranchTerminal {
		session.MoveTo(node.ID)
		session.Complete()
		return "", true, nil
	}

	edge := def.EdgeForBranch(node.ID, execResult.NextBranch)
	if edge == nil {
		return "", false, flow.ErrUnmatchedBranch().
			WithDetail("flow_id", f.ID.String()).
			WithDetail("node_id", node.ID).
			WithDetail("branch", execResult.NextBranch)
	}

	return edge.Target, false, nil
}

// finishTurn commits the context and pointer back onto the session and
// assembles the TurnResult the processor persists and delivers.
func (i *FlowInterpreter) finishTurn(session *flow.Session, execCtx *flow.ExecContext, result *flow.TurnResult, hops int) *flow.TurnResult {
	session.Context = execCtx
	session.TurnCount++
	session.UpdateActivity()

	result.Status = session.Status
	result.CurrentNodeID = session.CurrentNodeID
	result.Context = execCtx
	result.Hops = hops
	return result
}

// ============================================================================
// Validation
// ============================================================================

func (i *FlowInterpreter) ValidateFlow(ctx context.Context, f flow.Flow) error {
	if err := f.Definition.Validate(); err != nil {
		return err
	}

	for _, node := range f.Definition.Nodes {
		executor, ok := i.nodeExecutors[node.Kind()]
		if !ok {
			continue
		}
		if err := executor.ValidateConfig(node.Data); err != nil {
			return errx.Wrap(err, "node config validation failed", errx.TypeValidation).
				WithDetail("node_id", node.ID).
				WithDetail("node_type", string(node.Type))
		}
	}

	return nil
}
