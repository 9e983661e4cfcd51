package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialogo-labs/dialogo/flow"
)

func TestResolveNodeMessage_DirectKeyPriority(t *testing.T) {
	node := &flow.Node{
		ID:   "n1",
		Type: flow.NodeTypeMessage,
		Data: map[string]any{
			"text":    "segundo",
			"message": "primero",
		},
	}

	text, trace, ok := flow.ResolveNodeMessage(node)
	require.True(t, ok)
	assert.Equal(t, "primero", text)
	assert.Equal(t, flow.SourceDirectKey, trace.Source)
	assert.Equal(t, "message", trace.Key)
}

func TestResolveNodeMessage_NestedKey(t *testing.T) {
	node := &flow.Node{
		ID:   "n1",
		Type: flow.NodeTypeMessage,
		Data: map[string]any{
			"config": map[string]any{"content": "Bienvenido a la barbería"},
		},
	}

	text, trace, ok := flow.ResolveNodeMessage(node)
	require.True(t, ok)
	assert.Equal(t, "Bienvenido a la barbería", text)
	assert.Equal(t, flow.SourceNestedKey, trace.Source)
	assert.Equal(t, "config.content", trace.Key)
}

func TestResolveNodeMessage_Heuristic(t *testing.T) {
	node := &flow.Node{
		ID:   "n1",
		Type: flow.NodeTypeMessage,
		Data: map[string]any{
			"nodeType": "greeting",          // identifier-like key, skipped
			"saludo":   "Hola, ¿en qué puedo ayudarte?", // long enough to be prose
		},
	}

	text, trace, ok := flow.ResolveNodeMessage(node)
	require.True(t, ok)
	assert.Equal(t, "Hola, ¿en qué puedo ayudarte?", text)
	assert.Equal(t, flow.SourceHeuristic, trace.Source)
	assert.Equal(t, "saludo", trace.Key)
}

func TestResolveNodeMessage_Unresolved(t *testing.T) {
	node := &flow.Node{
		ID:   "n1",
		Type: flow.NodeTypeMessage,
		Data: map[string]any{"variable": "name", "corto": "hola"},
	}

	_, trace, ok := flow.ResolveNodeMessage(node)
	assert.False(t, ok)
	assert.Equal(t, flow.SourceUnresolved, trace.Source)
	assert.NotEmpty(t, trace.Tried)
}

func TestFindInitialMessage_EntryFirstEdgeTarget(t *testing.T) {
	def := &flow.FlowDefinition{
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeTypeStart, Data: map[string]any{}},
			{ID: "greet", Type: flow.NodeTypeMessage, Data: map[string]any{"message": "Hola"}},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "start", Target: "greet"},
		},
	}

	initial, err := flow.FindInitialMessage(def)
	require.NoError(t, err)
	assert.Equal(t, "Hola", initial.Text)
	assert.Equal(t, "greet", initial.NodeID)
	assert.Equal(t, flow.InitialFromEntryTarget, initial.Branch)
}

func TestFindInitialMessage_EntryNodeItself(t *testing.T) {
	def := &flow.FlowDefinition{
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeTypeStart, Data: map[string]any{"message": "Hola desde el inicio"}},
		},
	}

	initial, err := flow.FindInitialMessage(def)
	require.NoError(t, err)
	assert.Equal(t, "Hola desde el inicio", initial.Text)
	assert.Equal(t, flow.InitialFromEntryNode, initial.Branch)
}

func TestFindInitialMessage_FirstMessageNode(t *testing.T) {
	def := &flow.FlowDefinition{
		Nodes: []flow.Node{
			{ID: "cond", Type: flow.NodeTypeCondition, Data: map[string]any{}},
			{ID: "msg", Type: flow.NodeTypeMessage, Data: map[string]any{"message": "Sin nodo de inicio"}},
		},
	}

	initial, err := flow.FindInitialMessage(def)
	require.NoError(t, err)
	assert.Equal(t, "msg", initial.NodeID)
	assert.Equal(t, flow.InitialFromFirstMsg, initial.Branch)
}

func TestFindInitialMessage_FullScan(t *testing.T) {
	// Entry exists but neither its edge target nor the entry itself resolves;
	// a non-message node elsewhere carries the only resolvable text.
	def := &flow.FlowDefinition{
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeTypeStart, Data: map[string]any{}},
			{ID: "cond", Type: flow.NodeTypeCondition, Data: map[string]any{}},
			{ID: "qual", Type: flow.NodeTypeLeadQual, Data: map[string]any{"message": "¿Qué tan urgente es tu consulta?"}},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "start", Target: "cond"},
		},
	}

	initial, err := flow.FindInitialMessage(def)
	require.NoError(t, err)
	assert.Equal(t, "qual", initial.NodeID)
	assert.Equal(t, flow.InitialFromScan, initial.Branch)
}

func TestFindInitialMessage_NotFound(t *testing.T) {
	def := &flow.FlowDefinition{
		Nodes: []flow.Node{
			{ID: "cond", Type: flow.NodeTypeCondition, Data: map[string]any{}},
		},
	}

	_, err := flow.FindInitialMessage(def)
	require.Error(t, err)
	assert.True(t, flow.IsStructural(err))
}
