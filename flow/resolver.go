package flow

import (
	"fmt"
	"sort"
	"strings"
)

// ============================================================================
// Message Resolver
//
// Different builder versions stored the human-readable message of a node
// under different payload keys, sometimes wrapped in a sub-object. The
// resolver tries an ordered list of strategies and reports, as a first-class
// output, which one fired — authoring-tool drift recurs and has to be
// introspectable without a debugger.
// ============================================================================

// messageKeys are the known payload keys, in priority order.
var messageKeys = []string{"message", "messageText", "content", "text"}

// ResolutionSource names the strategy that produced a message.
type ResolutionSource string

const (
	SourceDirectKey  ResolutionSource = "direct_key"
	SourceNestedKey  ResolutionSource = "nested_key"
	SourceHeuristic  ResolutionSource = "heuristic"
	SourceUnresolved ResolutionSource = "unresolved"
)

// ResolutionTrace records one resolver outcome for operator tooling.
type ResolutionTrace struct {
	NodeID  string           `json:"node_id,omitempty"`
	Source  ResolutionSource `json:"source"`
	Key     string           `json:"key,omitempty"`
	Branch  string           `json:"branch,omitempty"`
	Tried   []string         `json:"tried,omitempty"`
	Comment string           `json:"comment,omitempty"`
}

// ResolveNodeMessage returns the best available message text for a node.
// The trace always reports which strategy fired, or everything that was
// tried when nothing matched.
func ResolveNodeMessage(node *Node) (string, ResolutionTrace, bool) {
	trace := ResolutionTrace{NodeID: node.ID}

	// 1. Known keys, top level, fixed priority order.
	for _, key := range messageKeys {
		trace.Tried = append(trace.Tried, key)
		if v, ok := node.Data[key].(string); ok && v != "" {
			trace.Source = SourceDirectKey
			trace.Key = key
			return v, trace, true
		}
	}

	// Map iteration order is randomized; resolution must be deterministic,
	// so the fallback strategies walk the payload keys sorted.
	sortedKeys := make([]string, 0, len(node.Data))
	for key := range node.Data {
		sortedKeys = append(sortedKeys, key)
	}
	sort.Strings(sortedKeys)

	// 2. Same keys one level deeper, for payloads wrapped in a sub-object.
	for _, outerKey := range sortedKeys {
		nested, ok := node.Data[outerKey].(map[string]any)
		if !ok {
			continue
		}
		for _, key := range messageKeys {
			trace.Tried = append(trace.Tried, outerKey+"."+key)
			if v, ok := nested[key].(string); ok && v != "" {
				trace.Source = SourceNestedKey
				trace.Key = outerKey + "." + key
				return v, trace, true
			}
		}
	}

	// 3. Last resort: the first string field long enough to plausibly be
	// prose, skipping keys that look like identifiers or type tags.
	for _, key := range sortedKeys {
		if looksLikeIdentifierKey(key) {
			continue
		}
		if v, ok := node.Data[key].(string); ok && len(v) > 10 {
			trace.Tried = append(trace.Tried, key)
			trace.Source = SourceHeuristic
			trace.Key = key
			return v, trace, true
		}
	}

	trace.Source = SourceUnresolved
	trace.Comment = fmt.Sprintf("no message found in node %q (type %s)", node.ID, node.Type)
	return "", trace, false
}

// looksLikeIdentifierKey filters payload keys that hold ids, types or other
// machine fields rather than user-facing text.
func looksLikeIdentifierKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range []string{"id", "type", "kind", "variable", "handle", "ref", "key", "url"} {
		if lower == marker || strings.HasSuffix(lower, marker) {
			return true
		}
	}
	return false
}

// ============================================================================
// Initial message
// ============================================================================

// InitialBranch names which step of the entry fallback chain fired.
type InitialBranch string

const (
	InitialFromEntryTarget InitialBranch = "entry_first_edge_target"
	InitialFromEntryNode   InitialBranch = "entry_node_itself"
	InitialFromFirstMsg    InitialBranch = "first_message_node"
	InitialFromScan        InitialBranch = "full_scan"
	InitialNotFound        InitialBranch = "not_found"
)

// InitialMessage is the resolved opening line plus how it was found.
type InitialMessage struct {
	Text   string          `json:"text"`
	NodeID string          `json:"node_id"`
	Branch InitialBranch   `json:"branch"`
	Trace  ResolutionTrace `json:"trace"`
}

// FindInitialMessage locates the conversation's opening line. Every branch
// of the fallback chain reports which branch fired so offline validation
// tooling can flag flows that only open by accident.
func FindInitialMessage(def *FlowDefinition) (*InitialMessage, error) {
	entry := def.EntryNode()

	// (b) no entry marker: fall back to the first message node in array order.
	if entry == nil {
		for i := range def.Nodes {
			node := &def.Nodes[i]
			if node.Kind() != NodeTypeMessage {
				continue
			}
			if text, trace, ok := ResolveNodeMessage(node); ok {
				trace.Branch = string(InitialFromFirstMsg)
				return &InitialMessage{Text: text, NodeID: node.ID, Branch: InitialFromFirstMsg, Trace: trace}, nil
			}
		}
		return nil, ErrNoEntryNode().WithDetail("branch", string(InitialNotFound))
	}

	// (c) entry exists: follow its first declared outgoing edge.
	if edge := def.FirstOutgoingEdge(entry.ID); edge != nil {
		if target := def.GetNodeByID(edge.Target); target != nil {
			if text, trace, ok := ResolveNodeMessage(target); ok {
				trace.Branch = string(InitialFromEntryTarget)
				return &InitialMessage{Text: text, NodeID: target.ID, Branch: InitialFromEntryTarget, Trace: trace}, nil
			}
		}
	} else {
		// (d) entry with no outgoing edges: the entry may carry the message.
		if text, trace, ok := ResolveNodeMessage(entry); ok {
			trace.Branch = string(InitialFromEntryNode)
			return &InitialMessage{Text: text, NodeID: entry.ID, Branch: InitialFromEntryNode, Trace: trace}, nil
		}
	}

	// (e) last resort: scan every node for something resolvable.
	for i := range def.Nodes {
		node := &def.Nodes[i]
		if text, trace, ok := ResolveNodeMessage(node); ok {
			trace.Branch = string(InitialFromScan)
			return &InitialMessage{Text: text, NodeID: node.ID, Branch: InitialFromScan, Trace: trace}, nil
		}
	}

	return nil, ErrNoEntryNode().
		WithDetail("branch", string(InitialNotFound)).
		WithDetail("reason", "no node in the flow resolves to a message")
}
