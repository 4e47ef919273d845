package dialog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const actionKey = "action"

// Context is the conversational state bag. The action sub-structure is typed;
// every other key is carried in Extra and passed through untouched.
type Context struct {
	Action *Action
	Extra  map[string]any
}

// Get returns the value stored under key.
func (c Context) Get(key string) (any, bool) {
	v, ok := c.Extra[key]
	return v, ok
}

// String returns the value stored under key when it is a string.
func (c Context) String(key string) string {
	s, _ := c.Extra[key].(string)
	return s
}

// Set stores v under key. The action key is reserved; use Action instead.
func (c *Context) Set(key string, v any) {
	if key == actionKey {
		panic("dialog: action is set through Context.Action")
	}
	if c.Extra == nil {
		c.Extra = make(map[string]any)
	}
	c.Extra[key] = v
}

// PendingAction returns the action the engine asked for, or nil when there is
// none or it has already been handled.
func (c Context) PendingAction() *Action {
	if c.Action == nil || !c.Action.Pending() {
		return nil
	}
	return c.Action
}

// ClearAction marks the requested action as handled. The action is reset to an
// empty object, which the engine reads as "nothing outstanding".
func (c *Context) ClearAction() {
	c.Action = &Action{}
}

func (c Context) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+1)
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.Action != nil {
		out[actionKey] = c.Action
	}
	return json.Marshal(out)
}

func (c *Context) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*c = Context{}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	next := Context{Extra: make(map[string]any, len(raw))}
	for k, v := range raw {
		if k == actionKey && isObject(v) {
			var a Action
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("context action: %w", err)
			}
			next.Action = &a
			continue
		}
		val, err := decodeValue(v)
		if err != nil {
			return fmt.Errorf("context %s: %w", k, err)
		}
		next.Extra[k] = val
	}
	*c = next
	return nil
}

func isObject(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

// decodeValue keeps numbers as json.Number so counters and ids the engine
// stores in the context survive the round trip exactly.
func decodeValue(b json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
