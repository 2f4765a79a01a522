// ABOUTME: Toolset is an immutable named bundle of tool descriptors plus one handler.
// ABOUTME: It is the unit of encapsulated capability and is shared by pointer across menus.

package toolset

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Param describes one typed tool parameter.
type Param struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Enum        []string `json:"enum,omitempty"`
	Default     string   `json:"default,omitempty"`
}

// Descriptor describes one tool in a toolset.
type Descriptor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"parameters"`
}

// ParamNames returns the parameter names in declaration order.
func (d Descriptor) ParamNames() []string {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	return names
}

// Call is a request to run one tool.
type Call struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"parameters"`
}

// Lookup returns the raw parameter value.
func (c Call) Lookup(key string) (any, bool) {
	if c.Params == nil {
		return nil, false
	}
	v, ok := c.Params[key]
	return v, ok && v != nil
}

// String returns the parameter as text. Numbers and booleans are formatted;
// objects and arrays are returned as compact JSON.
func (c Call) String(key string) string {
	v, ok := c.Lookup(key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Int returns the parameter as an integer, or def when it is absent or not numeric.
func (c Call) Int(key string, def int) int {
	v, ok := c.Lookup(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// Signature returns a canonical form of the call. Two calls with the same
// name and structurally equal params have the same signature.
func (c Call) Signature() string {
	params := c.Params
	if params == nil {
		params = map[string]any{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return c.Name + fmt.Sprint(params)
	}
	return c.Name + string(b)
}

// Caller is the actor on whose behalf a tool runs.
type Caller interface {
	ID() string
	Handle() string
	SetHandle(handle string)
	Self() map[string]string
	SetSelfField(key, value string)
	Menu() *Menu
	SetMenu(m *Menu)
}

// Handler executes any tool declared by its toolset.
type Handler func(ctx context.Context, caller Caller, call Call) (string, error)

// Option configures a Toolset.
type Option func(*Toolset)

// WithPresence attaches a check that reports whether an actor is registered
// with the toolset's private state (for example, entered in a chat).
func WithPresence(fn func(actorID string) bool) Option {
	return func(t *Toolset) {
		t.presence = fn
	}
}

// Toolset is a named, immutable set of tools sharing one handler.
type Toolset struct {
	name     string
	tools    []Descriptor
	index    map[string]int
	handler  Handler
	presence func(actorID string) bool
}

// New builds a toolset. Tool names must be non-empty and unique within the set.
func New(name string, tools []Descriptor, handler Handler, opts ...Option) (*Toolset, error) {
	if strings.TrimSpace(name) == "" {
		return nil, Errorf(ErrValidationFailed, "toolset name is required")
	}
	if handler == nil {
		return nil, Errorf(ErrValidationFailed, "toolset %s: handler is required", name)
	}
	t := &Toolset{
		name:    name,
		tools:   make([]Descriptor, len(tools)),
		index:   make(map[string]int, len(tools)),
		handler: handler,
	}
	for i, d := range tools {
		if d.Name == "" {
			return nil, Errorf(ErrValidationFailed, "toolset %s: tool %d has no name", name, i)
		}
		if _, dup := t.index[d.Name]; dup {
			return nil, Errorf(ErrValidationFailed, "toolset %s: duplicate tool %s", name, d.Name)
		}
		d.Params = append([]Param(nil), d.Params...)
		t.tools[i] = d
		t.index[d.Name] = i
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// MustNew is New for statically declared toolsets. It panics on invalid input.
func MustNew(name string, tools []Descriptor, handler Handler, opts ...Option) *Toolset {
	t, err := New(name, tools, handler, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the toolset's menu key.
func (t *Toolset) Name() string { return t.name }

// Tools returns a copy of the descriptors in declaration order.
func (t *Toolset) Tools() []Descriptor {
	out := make([]Descriptor, len(t.tools))
	copy(out, t.tools)
	return out
}

// Has reports whether the toolset declares the named tool.
func (t *Toolset) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Present asks the presence check about an actor. ok is false when the
// toolset has no presence check.
func (t *Toolset) Present(actorID string) (present, ok bool) {
	if t.presence == nil {
		return false, false
	}
	return t.presence(actorID), true
}

// Call runs one tool. Undeclared names produce an "Unknown tool" result
// without reaching the handler. A panicking handler is reported as an error.
func (t *Toolset) Call(ctx context.Context, caller Caller, call Call) (result string, err error) {
	if !t.Has(call.Name) {
		return "Unknown tool: " + call.Name, nil
	}
	defer func() {
		if r := recover(); r != nil {
			result = ""
			err = fmt.Errorf("tool %s panicked: %v", call.Name, r)
		}
	}()
	return t.handler(ctx, caller, call)
}
