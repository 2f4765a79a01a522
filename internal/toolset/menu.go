// ABOUTME: Menu composes an ordered list of shared toolsets into one actor-visible capability set.
// ABOUTME: Supports gated navigation (loadToolset/toolList) and ungated first-match direct dispatch.

package toolset

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Navigation tool names understood by Menu.Navigate.
const (
	LoadToolsetTool = "loadToolset"
	ToolListTool    = "toolList"
)

// Menu is the capability composition bound to an actor. Toolsets are held by
// reference; the only state a Menu owns is which toolset is currently loaded.
type Menu struct {
	label    string
	toolsets []*Toolset

	mu     sync.Mutex
	loaded string
}

// NewMenu builds a menu. It fails with ErrToolCollision if two toolsets
// declare the same tool name, or if a toolset name repeats.
func NewMenu(label string, toolsets ...*Toolset) (*Menu, error) {
	owner := make(map[string]string)
	names := make(map[string]bool)
	for _, ts := range toolsets {
		if ts == nil {
			return nil, Errorf(ErrValidationFailed, "menu %s: nil toolset", label)
		}
		if names[ts.Name()] {
			return nil, fmt.Errorf("%w: toolset '%s' appears twice in menu %s", ErrToolCollision, ts.Name(), label)
		}
		names[ts.Name()] = true
		for _, d := range ts.tools {
			if prev, exists := owner[d.Name]; exists {
				return nil, fmt.Errorf("%w: tool '%s' declared by both '%s' and '%s'", ErrToolCollision, d.Name, prev, ts.Name())
			}
			owner[d.Name] = ts.Name()
		}
	}
	return &Menu{
		label:    label,
		toolsets: append([]*Toolset(nil), toolsets...),
	}, nil
}

// Label names the context this menu belongs to (a room name or "Directory").
func (m *Menu) Label() string { return m.label }

// Toolsets returns the toolsets in menu order.
func (m *Menu) Toolsets() []*Toolset {
	return append([]*Toolset(nil), m.toolsets...)
}

// Loaded returns the currently loaded toolset name, if any.
func (m *Menu) Loaded() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded, m.loaded != ""
}

// Resolve returns the first toolset declaring name, or nil.
func (m *Menu) Resolve(name string) *Toolset {
	for _, ts := range m.toolsets {
		if ts.Has(name) {
			return ts
		}
	}
	return nil
}

// Has reports whether any toolset in the menu declares name.
func (m *Menu) Has(name string) bool {
	return m.Resolve(name) != nil
}

// ToolNames lists every reachable tool in menu order.
func (m *Menu) ToolNames() []string {
	var names []string
	for _, ts := range m.toolsets {
		for _, d := range ts.tools {
			names = append(names, d.Name)
		}
	}
	return names
}

// CallTool dispatches directly to the toolset declaring the tool, whatever
// the navigation state. Errors are returned as "Error: ..." text.
func (m *Menu) CallTool(ctx context.Context, caller Caller, call Call) string {
	ts := m.Resolve(call.Name)
	if ts == nil {
		return "Unknown tool: " + call.Name
	}
	return invoke(ctx, ts, caller, call)
}

// Navigate is the gated protocol. In the directory state only loadToolset is
// accepted; in the loaded state only toolList or a tool of the loaded set.
// Rejected calls leave the state untouched.
func (m *Menu) Navigate(ctx context.Context, caller Caller, call Call) string {
	m.mu.Lock()
	if m.loaded == "" {
		defer m.mu.Unlock()
		if call.Name != LoadToolsetTool {
			return "No toolset loaded"
		}
		if _, ok := call.Lookup("toolsetIndex"); !ok {
			return "Error: toolsetIndex required"
		}
		idx := call.Int("toolsetIndex", -1)
		if idx < 0 || idx >= len(m.toolsets) {
			return fmt.Sprintf("Error: toolset index %q not found", call.String("toolsetIndex"))
		}
		m.loaded = m.toolsets[idx].Name()
		return "Toolset menu loaded"
	}

	if call.Name == ToolListTool {
		m.loaded = ""
		m.mu.Unlock()
		return "Toolset menu loaded"
	}
	var ts *Toolset
	for _, candidate := range m.toolsets {
		if candidate.Name() == m.loaded {
			ts = candidate
			break
		}
	}
	m.mu.Unlock()

	if ts == nil || !ts.Has(call.Name) {
		return "Tool not found"
	}
	return invoke(ctx, ts, caller, call)
}

// Render describes the current navigation state as plain text.
func (m *Menu) Render() string {
	loaded, ok := m.Loaded()

	var b strings.Builder
	if ok {
		fmt.Fprintf(&b, "\nTool Menu (%s):\n", loaded)
		for _, ts := range m.toolsets {
			if ts.Name() != loaded {
				continue
			}
			for _, d := range ts.tools {
				fmt.Fprintf(&b, "\t%s (%s): %s\n", d.Name, strings.Join(d.ParamNames(), ", "), d.Description)
			}
		}
		b.WriteString("To return to the toolset menu, use toolList()\n")
		return b.String()
	}

	b.WriteString("Tool Sets Available:\n")
	for i, ts := range m.toolsets {
		fmt.Fprintf(&b, "\t[%d] %s\n", i, ts.Name())
	}
	b.WriteString("\n To load a toolset, use loadToolset(toolsetIndex)\n")
	return b.String()
}

// Catalog lists every reachable tool with one example call each.
func (m *Menu) Catalog() string {
	var b strings.Builder
	for _, ts := range m.toolsets {
		fmt.Fprintf(&b, "## %s\n", ts.Name())
		for _, d := range ts.tools {
			fmt.Fprintf(&b, "- %s(%s): %s\n", d.Name, strings.Join(d.ParamNames(), ", "), d.Description)
			fmt.Fprintf(&b, "  example: %s\n", ExampleCall(d))
		}
	}
	return b.String()
}

func invoke(ctx context.Context, ts *Toolset, caller Caller, call Call) string {
	result, err := ts.Call(ctx, caller, call)
	if err != nil {
		return "Error: " + err.Error()
	}
	return result
}
