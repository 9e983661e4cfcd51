package flow

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// ============================================================================
// Flow Entity
// ============================================================================

// Flow representa un flujo conversacional autorado por un tenant
type Flow struct {
	ID          kernel.FlowID   `db:"id" json:"id"`
	TenantID    kernel.TenantID `db:"tenant_id" json:"tenant_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Definition  FlowDefinition  `db:"definition" json:"definition"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// FlowDefinition es el grafo crudo producido por el editor visual
type FlowDefinition struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node es un paso del grafo conversacional
type Node struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Position *Position      `json:"position,omitempty"`
	Data     map[string]any `json:"data"`
}

// Position coordenadas del editor visual, sin semántica de ejecución
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge conexión dirigida entre dos nodos
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	// SourceHandle carries the branch tag the interpreter matches against
	// the executor's NextBranch. Empty means unconditional.
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// BranchTag returns the edge's branch discriminator.
func (e Edge) BranchTag() string { return e.SourceHandle }

// ============================================================================
// Node Types
// ============================================================================

// NodeType tipo de nodo
type NodeType string

const (
	NodeTypeStart        NodeType = "start"
	NodeTypeMessage      NodeType = "message"
	NodeTypeInputCapture NodeType = "input_capture"
	NodeTypeCondition    NodeType = "condition"
	NodeTypeTextGen      NodeType = "text_generation"
	NodeTypeAvailability NodeType = "availability_check"
	NodeTypeBook         NodeType = "book_appointment"
	NodeTypeReschedule   NodeType = "reschedule_appointment"
	NodeTypeCancel       NodeType = "cancel_appointment"
	NodeTypeLeadQual     NodeType = "lead_qualification"
	NodeTypeCatalog      NodeType = "catalog_listing"
	NodeTypeEnd          NodeType = "end"
)

// nodeTypeAliases maps the type strings that different builder versions
// emitted for the same node kind. Unknown strings are kept verbatim so the
// graph still loads; they only fail when the interpreter reaches them.
var nodeTypeAliases = map[string]NodeType{
	"start":                  NodeTypeStart,
	"entry":                  NodeTypeStart,
	"inicio":                 NodeTypeStart,
	"message":                NodeTypeMessage,
	"text":                   NodeTypeMessage,
	"sendMessage":            NodeTypeMessage,
	"input_capture":          NodeTypeInputCapture,
	"inputCapture":           NodeTypeInputCapture,
	"input":                  NodeTypeInputCapture,
	"question":               NodeTypeInputCapture,
	"condition":              NodeTypeCondition,
	"branch":                 NodeTypeCondition,
	"switch":                 NodeTypeCondition,
	"options":                NodeTypeCondition,
	"text_generation":        NodeTypeTextGen,
	"aiResponse":             NodeTypeTextGen,
	"ai":                     NodeTypeTextGen,
	"availability_check":     NodeTypeAvailability,
	"checkAvailability":      NodeTypeAvailability,
	"availability":           NodeTypeAvailability,
	"book_appointment":       NodeTypeBook,
	"bookAppointment":        NodeTypeBook,
	"booking":                NodeTypeBook,
	"reschedule_appointment": NodeTypeReschedule,
	"rescheduleAppointment":  NodeTypeReschedule,
	"cancel_appointment":     NodeTypeCancel,
	"cancelAppointment":      NodeTypeCancel,
	"lead_qualification":     NodeTypeLeadQual,
	"leadQualification":      NodeTypeLeadQual,
	"qualifyLead":            NodeTypeLeadQual,
	"catalog_listing":        NodeTypeCatalog,
	"listProducts":           NodeTypeCatalog,
	"listServices":           NodeTypeCatalog,
	"products":               NodeTypeCatalog,
	"services":               NodeTypeCatalog,
	"end":                    NodeTypeEnd,
	"finish":                 NodeTypeEnd,
	"fin":                    NodeTypeEnd,
}

// NormalizeNodeType maps a raw builder type string to its canonical NodeType.
// The second return reports whether the type is recognized.
func NormalizeNodeType(raw string) (NodeType, bool) {
	if t, ok := nodeTypeAliases[raw]; ok {
		return t, true
	}
	return NodeType(raw), false
}

// IsKnown reports whether the node's type belongs to the engine vocabulary.
func (n Node) IsKnown() bool {
	_, ok := NormalizeNodeType(string(n.Type))
	return ok
}

// Kind returns the canonical node type, resolving builder aliases.
func (n Node) Kind() NodeType {
	t, _ := NormalizeNodeType(string(n.Type))
	return t
}

// IsEntry reports whether the node is marked as the conversation entry,
// either by its type or by a payload flag older builders used.
func (n Node) IsEntry() bool {
	if n.Kind() == NodeTypeStart {
		return true
	}
	for _, key := range []string{"isStart", "is_start", "entry"} {
		if v, ok := n.Data[key].(bool); ok && v {
			return true
		}
	}
	return false
}

// IsExecutor reports whether the node dispatches to a registered executor.
func (n Node) IsExecutor() bool {
	switch n.Kind() {
	case NodeTypeCondition, NodeTypeTextGen, NodeTypeAvailability,
		NodeTypeBook, NodeTypeReschedule, NodeTypeCancel,
		NodeTypeLeadQual, NodeTypeCatalog:
		return true
	}
	return false
}

// ============================================================================
// Defensive payload accessors
// ============================================================================

// StringData returns the first non-empty string stored under any of the
// given keys, checking one level of nesting for builders that wrap the
// payload in a sub-object.
func (n Node) StringData(keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := n.Data[key].(string); ok && v != "" {
			return v, true
		}
	}
	outerKeys := make([]string, 0, len(n.Data))
	for key := range n.Data {
		outerKeys = append(outerKeys, key)
	}
	sort.Strings(outerKeys)
	for _, outerKey := range outerKeys {
		nested, ok := n.Data[outerKey].(map[string]any)
		if !ok {
			continue
		}
		for _, key := range keys {
			if v, ok := nested[key].(string); ok && v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// BoolData returns the first boolean stored under any of the given keys.
func (n Node) BoolData(keys ...string) (bool, bool) {
	for _, key := range keys {
		switch v := n.Data[key].(type) {
		case bool:
			return v, true
		case string:
			if v == "true" {
				return true, true
			}
			if v == "false" {
				return false, true
			}
		}
	}
	return false, false
}

// IntData returns the first integer-convertible value under the given keys.
func (n Node) IntData(keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := n.Data[key].(type) {
		case int:
			return v, true
		case float64:
			return int(v), true
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i), true
			}
		}
	}
	return 0, false
}

// StringListData returns a list of strings under the given keys, tolerating
// both []string and the []any the JSON decoder produces.
func (n Node) StringListData(keys ...string) []string {
	for _, key := range keys {
		switch v := n.Data[key].(type) {
		case []string:
			return v
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				switch it := item.(type) {
				case string:
					out = append(out, it)
				case map[string]any:
					// option objects: {value: "...", label: "..."}
					if s, ok := it["value"].(string); ok && s != "" {
						out = append(out, s)
					} else if s, ok := it["label"].(string); ok && s != "" {
						out = append(out, s)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// WaitsForResponse reports whether a message node suspends the turn.
func (n Node) WaitsForResponse() bool {
	v, _ := n.BoolData("waitForResponse", "wait_for_response", "waitResponse")
	return v
}

// CaptureVariable returns the context variable the next inbound message
// should be bound to while the session is suspended at this node.
func (n Node) CaptureVariable() string {
	if v, ok := n.StringData("variable", "capture_variable", "variableName", "saveAs"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// ConditionVariable returns the context variable a condition node branches
// on. Falls back to "selected_option" when the builder omitted it.
func (n Node) ConditionVariable() string {
	if v := n.CaptureVariable(); v != "" {
		return v
	}
	return "selected_option"
}

// ============================================================================
// Graph accessors
// ============================================================================

// GetNodeByID obtiene un nodo por ID
func (d *FlowDefinition) GetNodeByID(nodeID string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == nodeID {
			return &d.Nodes[i]
		}
	}
	return nil
}

// OutgoingEdges returns the edges leaving a node in declaration order.
func (d *FlowDefinition) OutgoingEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// EdgeForBranch returns the first declared edge leaving nodeID whose branch
// tag matches exactly. First-declared-edge-wins when tags collide; the
// collision itself is rejected by Validate.
func (d *FlowDefinition) EdgeForBranch(nodeID, branch string) *Edge {
	for i := range d.Edges {
		if d.Edges[i].Source == nodeID && d.Edges[i].BranchTag() == branch {
			return &d.Edges[i]
		}
	}
	return nil
}

// FirstOutgoingEdge returns the first declared edge leaving nodeID.
func (d *FlowDefinition) FirstOutgoingEdge(nodeID string) *Edge {
	for i := range d.Edges {
		if d.Edges[i].Source == nodeID {
			return &d.Edges[i]
		}
	}
	return nil
}

// EntryNode locates the start node, or nil if the graph has none.
func (d *FlowDefinition) EntryNode() *Node {
	for i := range d.Nodes {
		if d.Nodes[i].IsEntry() {
			return &d.Nodes[i]
		}
	}
	return nil
}

// ============================================================================
// Parsing & Validation
// ============================================================================

// ParseDefinition decodes a raw builder document into a FlowDefinition.
func ParseDefinition(raw []byte) (*FlowDefinition, error) {
	var def FlowDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, ErrInvalidFlowDefinition().WithDetail("reason", err.Error())
	}
	return &def, nil
}

// Validate enforces the structural invariants of the graph: unique node ids,
// edges referencing existing nodes, a reachable entry, and no two edges
// leaving one node with the same branch tag.
func (d *FlowDefinition) Validate() error {
	if len(d.Nodes) == 0 {
		return ErrInvalidFlowDefinition().WithDetail("reason", "flow has no nodes")
	}

	nodeIDs := make(map[string]bool, len(d.Nodes))
	for _, node := range d.Nodes {
		if node.ID == "" {
			return ErrInvalidFlowDefinition().WithDetail("reason", "node has no ID")
		}
		if nodeIDs[node.ID] {
			return ErrInvalidFlowDefinition().
				WithDetail("node_id", node.ID).
				WithDetail("reason", "duplicate node ID")
		}
		nodeIDs[node.ID] = true
	}

	branchSeen := make(map[string]string, len(d.Edges))
	for _, edge := range d.Edges {
		if !nodeIDs[edge.Source] {
			return ErrDanglingEdge().
				WithDetail("edge_id", edge.ID).
				WithDetail("source", edge.Source)
		}
		if !nodeIDs[edge.Target] {
			return ErrDanglingEdge().
				WithDetail("edge_id", edge.ID).
				WithDetail("target", edge.Target)
		}
		key := edge.Source + "\x00" + edge.BranchTag()
		if prev, ok := branchSeen[key]; ok {
			return ErrDuplicateBranchTag().
				WithDetail("source", edge.Source).
				WithDetail("branch", edge.BranchTag()).
				WithDetail("edge_id", edge.ID).
				WithDetail("conflicts_with", prev)
		}
		branchSeen[key] = edge.ID
	}

	if err := d.validateReachability(); err != nil {
		return err
	}

	return nil
}

// validateReachability checks that at least one node is reachable from the
// nominal entry point.
func (d *FlowDefinition) validateReachability() error {
	entry := d.EntryNode()
	if entry == nil {
		// No explicit entry: the first message node acts as one.
		for _, node := range d.Nodes {
			if node.Kind() == NodeTypeMessage {
				return nil
			}
		}
		return ErrNoEntryNode()
	}

	visited := map[string]bool{entry.ID: true}
	queue := []string{entry.ID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range d.OutgoingEdges(current) {
			if !visited[e.Target] {
				visited[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}

	// A lone entry node is still a (degenerate) valid graph if it carries a
	// message of its own; otherwise nothing is reachable.
	if len(visited) == 1 && len(d.Nodes) > 1 {
		return ErrNoEntryNode().
			WithDetail("entry_id", entry.ID).
			WithDetail("reason", "entry node has no outgoing edges")
	}

	return nil
}

// ============================================================================
// Domain Methods - Flow
// ============================================================================

// IsValid verifica si el flujo es válido
func (f *Flow) IsValid() bool {
	return f.Name != "" && len(f.Definition.Nodes) > 0 && !f.TenantID.IsEmpty()
}

// Activate activa el flujo
func (f *Flow) Activate() {
	f.IsActive = true
	f.UpdatedAt = time.Now()
}

// Deactivate desactiva el flujo
func (f *Flow) Deactivate() {
	f.IsActive = false
	f.UpdatedAt = time.Now()
}

// UpdateDetails actualiza nombre y descripción
func (f *Flow) UpdateDetails(name, description string) {
	if name != "" {
		f.Name = name
	}
	if description != "" {
		f.Description = description
	}
	f.UpdatedAt = time.Now()
}

// UpdateDefinition reemplaza el grafo del flujo
func (f *Flow) UpdateDefinition(def FlowDefinition) {
	f.Definition = def
	f.UpdatedAt = time.Now()
}
