package flow_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialogo-labs/dialogo/flow"
)

func TestExecContext_InsertionOrder(t *testing.T) {
	ctx := flow.NewExecContext()
	ctx.Set("name", "Ana")
	ctx.Set("phone", "555-1234")
	ctx.Set("name", "Ana María") // overwrite keeps original position

	assert.Equal(t, []string{"name", "phone"}, ctx.Keys())
	assert.Equal(t, "Ana María", ctx.GetString("name"))
	assert.Equal(t, 2, ctx.Len())
}

func TestExecContext_GetString_NonString(t *testing.T) {
	ctx := flow.NewExecContext()
	ctx.Set("count", 3)

	assert.Equal(t, "3", ctx.GetString("count"))
	assert.Equal(t, "", ctx.GetString("missing"))
}

func TestExecContext_CloneIsolation(t *testing.T) {
	ctx := flow.NewExecContext()
	ctx.Set("a", "1")

	clone := ctx.Clone()
	clone.Set("a", "2")
	clone.Set("b", "3")

	assert.Equal(t, "1", ctx.GetString("a"))
	assert.False(t, ctx.Has("b"))
	assert.Equal(t, "2", clone.GetString("a"))
}

func TestExecContext_Merge(t *testing.T) {
	base := flow.NewExecContext()
	base.Set("a", "1")
	base.Set("b", "2")

	other := flow.NewExecContext()
	other.Set("b", "override")
	other.Set("c", "3")

	base.Merge(other)

	assert.Equal(t, []string{"a", "b", "c"}, base.Keys())
	assert.Equal(t, "override", base.GetString("b"))
	assert.Equal(t, "3", base.GetString("c"))

	base.Merge(nil) // no-op
	assert.Equal(t, 3, base.Len())
}

func TestExecContext_JSONRoundTrip(t *testing.T) {
	ctx := flow.NewExecContext()
	ctx.Set("z", "last-name-first")
	ctx.Set("a", "second")
	ctx.Set("m", 42)

	data, err := json.Marshal(ctx)
	require.NoError(t, err)

	restored := flow.NewExecContext()
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, []string{"z", "a", "m"}, restored.Keys())
	assert.Equal(t, "last-name-first", restored.GetString("z"))
	assert.Equal(t, "42", restored.GetString("m"))
}

func TestExecContext_UnmarshalLegacyObject(t *testing.T) {
	restored := flow.NewExecContext()
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Ana","phone":"555"}`), restored))

	assert.Equal(t, "Ana", restored.GetString("name"))
	assert.Equal(t, "555", restored.GetString("phone"))
	assert.Equal(t, 2, restored.Len())
}

func TestRenderTemplate(t *testing.T) {
	ctx := flow.NewExecContext()
	ctx.Set("name", "Ana")
	ctx.Set("service", "corte")

	out := flow.RenderTemplate("Hola {{name}}, tu {{ service }} está confirmado", ctx)
	assert.Equal(t, "Hola Ana, tu corte está confirmado", out)
}

func TestRenderTemplate_UnboundTokenLeftVerbatim(t *testing.T) {
	ctx := flow.NewExecContext()
	ctx.Set("name", "Ana")

	out := flow.RenderTemplate("Hola {{name}}, fecha: {{appointment_date}}", ctx)
	assert.Equal(t, "Hola Ana, fecha: {{appointment_date}}", out)
}

func TestRenderTemplate_NilContext(t *testing.T) {
	assert.Equal(t, "Hola {{name}}", flow.RenderTemplate("Hola {{name}}", nil))
}
