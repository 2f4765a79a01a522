package toolset

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMenuRejectsCollisions(t *testing.T) {
	a := echoToolset(t, "A", "one", "two")
	b := echoToolset(t, "B", "two", "three")

	_, err := NewMenu("m", a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolCollision))
	assert.Contains(t, err.Error(), "two")

	_, err = NewMenu("m", a, a)
	assert.True(t, errors.Is(err, ErrToolCollision))
}

func TestDirectDispatchIgnoresNavigationState(t *testing.T) {
	a := echoToolset(t, "A", "one")
	b := echoToolset(t, "B", "two")
	m, err := NewMenu("m", a, b)
	require.NoError(t, err)
	ctx := context.Background()
	caller := newStubCaller("1")

	// Directory state: gated path rejects, direct path succeeds.
	assert.Equal(t, "No toolset loaded", m.Navigate(ctx, caller, Call{Name: "two"}))
	assert.Equal(t, "B:two", m.CallTool(ctx, caller, Call{Name: "two"}))

	// Loaded(A): gated path rejects B's tool, direct path still reaches it.
	assert.Equal(t, "Toolset menu loaded", m.Navigate(ctx, caller, Call{Name: LoadToolsetTool, Params: map[string]any{"toolsetIndex": 0}}))
	assert.Equal(t, "Tool not found", m.Navigate(ctx, caller, Call{Name: "two"}))
	assert.Equal(t, "A:one", m.Navigate(ctx, caller, Call{Name: "one"}))
	assert.Equal(t, "B:two", m.CallTool(ctx, caller, Call{Name: "two"}))

	assert.Equal(t, "Unknown tool: nope", m.CallTool(ctx, caller, Call{Name: "nope"}))
}

func TestNavigationStateMachine(t *testing.T) {
	a := echoToolset(t, "A", "one")
	b := echoToolset(t, "B", "two")
	m, err := NewMenu("m", a, b)
	require.NoError(t, err)
	ctx := context.Background()
	caller := newStubCaller("1")

	rng := rand.New(rand.NewSource(42))
	calls := []Call{
		{Name: LoadToolsetTool, Params: map[string]any{"toolsetIndex": 0}},
		{Name: LoadToolsetTool, Params: map[string]any{"toolsetIndex": 1}},
		{Name: LoadToolsetTool, Params: map[string]any{"toolsetIndex": 7}},
		{Name: LoadToolsetTool},
		{Name: ToolListTool},
		{Name: "one"},
		{Name: "two"},
	}

	for i := 0; i < 500; i++ {
		before, wasLoaded := m.Loaded()
		call := calls[rng.Intn(len(calls))]
		m.Navigate(ctx, caller, call)
		after, isLoaded := m.Loaded()

		if isLoaded && after != "A" && after != "B" {
			t.Fatalf("loaded name %q matches no toolset", after)
		}
		switch {
		case !wasLoaded && isLoaded:
			idx := call.Int("toolsetIndex", -1)
			if call.Name != LoadToolsetTool || idx < 0 || idx > 1 {
				t.Fatalf("entered Loaded(%s) via %+v", after, call)
			}
		case wasLoaded && !isLoaded:
			if call.Name != ToolListTool {
				t.Fatalf("left Loaded(%s) via %s", before, call.Name)
			}
		case wasLoaded && isLoaded && before != after:
			t.Fatalf("switched %s -> %s without passing through directory", before, after)
		}
	}
}

func TestRejectedNavigationDoesNotChangeState(t *testing.T) {
	m, err := NewMenu("m", echoToolset(t, "A", "one"))
	require.NoError(t, err)
	ctx := context.Background()

	out := m.Navigate(ctx, nil, Call{Name: LoadToolsetTool, Params: map[string]any{"toolsetIndex": 3}})
	assert.True(t, strings.HasPrefix(out, "Error:"))
	_, loaded := m.Loaded()
	assert.False(t, loaded)

	assert.Equal(t, "No toolset loaded", m.Navigate(ctx, nil, Call{Name: ToolListTool}))
	_, loaded = m.Loaded()
	assert.False(t, loaded)
}

func TestLoadToolsetReportsBadIndex(t *testing.T) {
	m, err := NewMenu("m", echoToolset(t, "A", "one"))
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, "Error: toolsetIndex required", m.Navigate(ctx, nil, Call{Name: LoadToolsetTool}))
	assert.Equal(t, `Error: toolset index "7" not found`,
		m.Navigate(ctx, nil, Call{Name: LoadToolsetTool, Params: map[string]any{"toolsetIndex": 7}}))
	assert.Equal(t, `Error: toolset index "two" not found`,
		m.Navigate(ctx, nil, Call{Name: LoadToolsetTool, Params: map[string]any{"toolsetIndex": "two"}}))

	_, loaded := m.Loaded()
	assert.False(t, loaded)
}

func TestMenuSurfacesErrorsAsText(t *testing.T) {
	ts := MustNew("E", []Descriptor{{Name: "fail"}}, func(context.Context, Caller, Call) (string, error) {
		return "", Errorf(ErrNotFound, "room %s not found", "Nowhere")
	})
	m, err := NewMenu("m", ts)
	require.NoError(t, err)

	assert.Equal(t, "Error: room Nowhere not found", m.CallTool(context.Background(), nil, Call{Name: "fail"}))
}

func TestRender(t *testing.T) {
	ts := MustNew("Polis Directory", []Descriptor{
		{Name: "joinRoom", Description: "Join a room by name", Params: []Param{{Name: "name"}}},
	}, func(context.Context, Caller, Call) (string, error) { return "", nil })
	m, err := NewMenu("Directory", ts, echoToolset(t, "Identity", "getSelf"))
	require.NoError(t, err)

	want := "Tool Sets Available:\n\t[0] Polis Directory\n\t[1] Identity\n\n To load a toolset, use loadToolset(toolsetIndex)\n"
	assert.Equal(t, want, m.Render())

	m.Navigate(context.Background(), nil, Call{Name: LoadToolsetTool, Params: map[string]any{"toolsetIndex": float64(0)}})
	want = "\nTool Menu (Polis Directory):\n\tjoinRoom (name): Join a room by name\nTo return to the toolset menu, use toolList()\n"
	assert.Equal(t, want, m.Render())
}

func TestCatalogListsEveryTool(t *testing.T) {
	m, err := NewMenu("m", echoToolset(t, "A", "one", "two"), echoToolset(t, "B", "three"))
	require.NoError(t, err)

	catalog := m.Catalog()
	for _, name := range []string{"one", "two", "three"} {
		assert.Contains(t, catalog, fmt.Sprintf("- %s()", name))
		assert.Contains(t, catalog, fmt.Sprintf("example: %s({})", name))
	}
	assert.Equal(t, []string{"one", "two", "three"}, m.ToolNames())
	assert.Same(t, m.Toolsets()[1], m.Resolve("three"))
	assert.Nil(t, m.Resolve("four"))
}
