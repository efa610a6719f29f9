package domain

import (
	"encoding/json"
	"fmt"
)

// MaxContextValueBytes bounds the serialized size of a single context value.
// Collected values are scalars or small structured values, never transcripts
// or model payloads.
const MaxContextValueBytes = 4096

// Context is the mutable key/value bag scoped to one conversation. It is the
// source of truth for collected intake data.
//
// A Context is not safe for concurrent use on its own: callers must only
// touch it while holding the conversation's queue lock, which the session
// queue guarantees by serializing inputs.
type Context struct {
	values map[string]any
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Snapshot returns a copy of the full current context.
func (c *Context) Snapshot() map[string]any {
	snap := make(map[string]any, len(c.values))
	for k, v := range c.values {
		snap[k] = v
	}
	return snap
}

// Get returns the value for key, if present.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Len returns the number of collected fields.
func (c *Context) Len() int {
	return len(c.values)
}

// ApplyUpdates merges delta into the context and returns the new full
// snapshot. Keys in delta overwrite existing keys (explicit corrections);
// nothing else is ever erased. The merge is atomic per call: every value is
// validated first, and either all keys are written or none.
func (c *Context) ApplyUpdates(delta map[string]any) (map[string]any, error) {
	for k, v := range delta {
		if err := validateValue(k, v); err != nil {
			return nil, err
		}
	}
	for k, v := range delta {
		c.values[k] = v
	}
	return c.Snapshot(), nil
}

// MissingRequired returns the required fields of state not yet collected,
// preserving the state's asking order.
func (c *Context) MissingRequired(state StateDef) []string {
	var missing []string
	for _, f := range state.RequiredFields {
		if v, ok := c.values[f]; !ok || v == nil || v == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

func validateValue(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("field %s: %w: not serializable: %v", key, ErrInvalidContextValue, err)
	}
	if len(data) > MaxContextValueBytes {
		return fmt.Errorf("field %s: %w: %d bytes exceeds limit", key, ErrInvalidContextValue, len(data))
	}
	return nil
}
