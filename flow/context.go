package flow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ============================================================================
// Execution Context
// ============================================================================

// ExecContext is the per-conversation variable store. Keys keep their
// insertion order so replays and transcripts are deterministic. The store is
// merge-only: a key can be overwritten but never removed, so the last-known
// value of every variable stays inspectable.
type ExecContext struct {
	keys   []string
	values map[string]any
}

// NewExecContext crea un contexto vacío
func NewExecContext() *ExecContext {
	return &ExecContext{values: make(map[string]any)}
}

// Set adds or overwrites a variable.
func (c *ExecContext) Set(key string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Get returns a variable's value.
func (c *ExecContext) Get(key string) (any, bool) {
	if c.values == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// GetString returns a variable rendered as a string, empty when unset.
func (c *ExecContext) GetString(key string) string {
	v, ok := c.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Has reports whether the variable is bound.
func (c *ExecContext) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Keys returns the variable names in insertion order.
func (c *ExecContext) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of bound variables.
func (c *ExecContext) Len() int { return len(c.keys) }

// Clone returns an independent copy. Executors work on a clone and return
// it as a candidate; only the interpreter commits the result, so a failed
// side effect never leaves partially-applied keys behind.
func (c *ExecContext) Clone() *ExecContext {
	clone := &ExecContext{
		keys:   make([]string, len(c.keys)),
		values: make(map[string]any, len(c.values)),
	}
	copy(clone.keys, c.keys)
	for k, v := range c.values {
		clone.values[k] = v
	}
	return clone
}

// Merge applies every key of other on top of c, last-write-wins per key.
func (c *ExecContext) Merge(other *ExecContext) {
	if other == nil {
		return
	}
	for _, key := range other.keys {
		c.Set(key, other.values[key])
	}
}

// AsMap returns a plain map snapshot for expression evaluation.
func (c *ExecContext) AsMap() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// ============================================================================
// JSON round-trip (insertion order preserved)
// ============================================================================

type contextEntry struct {
	Key   string `json:"k"`
	Value any    `json:"v"`
}

// MarshalJSON serializes the context as an ordered list of entries.
func (c *ExecContext) MarshalJSON() ([]byte, error) {
	entries := make([]contextEntry, 0, len(c.keys))
	for _, key := range c.keys {
		entries = append(entries, contextEntry{Key: key, Value: c.values[key]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON restores the context, accepting both the ordered entry list
// and the plain-object shape older session rows were stored with.
func (c *ExecContext) UnmarshalJSON(data []byte) error {
	c.keys = nil
	c.values = make(map[string]any)

	var entries []contextEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		for _, e := range entries {
			c.Set(e.Key, e.Value)
		}
		return nil
	}

	var legacy map[string]any
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	for k, v := range legacy {
		c.Set(k, v)
	}
	return nil
}

// ============================================================================
// Templating
// ============================================================================

var templateTokenRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// RenderTemplate replaces {{variable}} tokens with context values. A token
// whose variable is unbound is left verbatim in the output: a misconfigured
// flow must produce a visibly broken message, not a silently incomplete one.
func RenderTemplate(text string, execCtx *ExecContext) string {
	if execCtx == nil || !strings.Contains(text, "{{") {
		return text
	}
	return templateTokenRegex.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(templateTokenRegex.FindStringSubmatch(match)[1])
		if v, ok := execCtx.Get(name); ok {
			return fmt.Sprint(v)
		}
		return match
	})
}
