package nodeexec

import (
	"fmt"
	"strings"
	"time"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/scheduling"
)

// fieldResolver resolves executor inputs with a fixed priority: node config
// first (templates rendered against the context), then the context variable
// of the same name. Builder payloads are loosely schematized, so every field
// accepts a list of legacy key spellings.
type fieldResolver struct {
	node    flow.Node
	execCtx *flow.ExecContext
}

func newFieldResolver(node flow.Node, execCtx *flow.ExecContext) fieldResolver {
	return fieldResolver{node: node, execCtx: execCtx}
}

// String resolves a string field: config (rendered) -> context -> "".
func (r fieldResolver) String(keys ...string) string {
	if v, ok := r.node.StringData(keys...); ok {
		return strings.TrimSpace(flow.RenderTemplate(v, r.execCtx))
	}
	for _, key := range keys {
		if r.execCtx != nil && r.execCtx.Has(key) {
			if v := strings.TrimSpace(r.execCtx.GetString(key)); v != "" {
				return v
			}
		}
	}
	return ""
}

// Int resolves an integer field: config -> context -> default.
func (r fieldResolver) Int(defaultValue int, keys ...string) int {
	if v, ok := r.node.IntData(keys...); ok {
		return v
	}
	for _, key := range keys {
		if r.execCtx == nil {
			break
		}
		if v, ok := r.execCtx.Get(key); ok {
			switch n := v.(type) {
			case int:
				return n
			case float64:
				return int(n)
			}
		}
	}
	return defaultValue
}

// Bool resolves a boolean config flag.
func (r fieldResolver) Bool(keys ...string) bool {
	v, _ := r.node.BoolData(keys...)
	return v
}

// ============================================================================
// Slot parsing
// ============================================================================

// slotTimeLayouts are the datetime spellings users and builders produce.
var slotTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"02/01/2006 15:04",
}

// parseSlotValue turns a context value into a scheduling slot. It accepts
// the native struct, the map shape a JSON round-trip produces, and a bare
// datetime string (a 30-minute slot is assumed for those).
func parseSlotValue(v any) (scheduling.Slot, bool) {
	switch s := v.(type) {
	case scheduling.Slot:
		return s, !s.Start.IsZero()
	case map[string]any:
		start, okStart := parseTimeValue(s["start"])
		if !okStart {
			return scheduling.Slot{}, false
		}
		end, okEnd := parseTimeValue(s["end"])
		if !okEnd {
			end = start.Add(30 * time.Minute)
		}
		return scheduling.Slot{Start: start, End: end}, true
	case string:
		if start, ok := parseTimeValue(s); ok {
			return scheduling.Slot{Start: start, End: start.Add(30 * time.Minute)}, true
		}
	}
	return scheduling.Slot{}, false
}

func parseTimeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		for _, layout := range slotTimeLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// formatSlot renders a slot as a user-facing time range.
func formatSlot(s scheduling.Slot) string {
	return fmt.Sprintf("%s - %s", s.Start.Format("15:04"), s.End.Format("15:04"))
}
