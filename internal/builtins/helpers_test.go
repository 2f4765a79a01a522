package builtins

import (
	"context"
	"time"

	"github.com/2389/polis/internal/toolset"
)

type testCaller struct {
	id     string
	handle string
	self   map[string]string
	menu   *toolset.Menu
}

func newCaller(id string) *testCaller {
	return &testCaller{id: id, self: map[string]string{}}
}

func (c *testCaller) ID() string               { return c.id }
func (c *testCaller) Handle() string           { return c.handle }
func (c *testCaller) SetHandle(h string)       { c.handle = h }
func (c *testCaller) Self() map[string]string  { return c.self }
func (c *testCaller) SetSelfField(k, v string) { c.self[k] = v }
func (c *testCaller) Menu() *toolset.Menu      { return c.menu }
func (c *testCaller) SetMenu(m *toolset.Menu)  { c.menu = m }

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func call(ts *toolset.Toolset, c toolset.Caller, name string, params map[string]any) (string, error) {
	return ts.Call(context.Background(), c, toolset.Call{Name: name, Params: params})
}
