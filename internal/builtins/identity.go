// ABOUTME: Identity toolset lets an actor read and edit its own handle and self-state.
// ABOUTME: Shared by every menu; it only ever touches the calling actor.

package builtins

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2389/polis/internal/toolset"
)

// IdentityToolsetName is the menu key of the identity toolset.
const IdentityToolsetName = "Identity"

// Identity returns a new identity toolset. It is stateless, so one instance
// can be shared across every menu.
func Identity() *toolset.Toolset {
	return toolset.MustNew(IdentityToolsetName, identityTools, identityHandler)
}

var identityTools = []toolset.Descriptor{
	{Name: "getHandle", Description: "Get current handle"},
	{
		Name:        "setHandle",
		Description: "Set a new handle for yourself (does not auto-enter chat)",
		Params: []toolset.Param{
			{Name: "handle", Description: "New handle", Type: "string"},
		},
	},
	{Name: "getSelf", Description: "Get your self state (includes handle and all self fields)"},
	{
		Name:        "setSelfField",
		Description: "Set a key/value in your self state",
		Params: []toolset.Param{
			{Name: "key", Description: "Field name", Type: "string"},
			{Name: "value", Description: "Field value", Type: "string"},
		},
	},
	{
		Name:        "setGoal",
		Description: "Update your current goal",
		Params: []toolset.Param{
			{Name: "goal", Description: "New goal", Type: "string"},
		},
	},
}

func identityHandler(ctx context.Context, caller toolset.Caller, call toolset.Call) (string, error) {
	if caller == nil {
		return "", toolset.Errorf(toolset.ErrValidationFailed, "agent required")
	}

	switch call.Name {
	case "getHandle":
		handle := caller.Handle()
		if handle == "" {
			handle = "(unset)"
		}
		return "Handle: " + handle, nil

	case "setHandle":
		handle := call.String("handle")
		if handle == "" {
			return "", toolset.Errorf(toolset.ErrValidationFailed, "handle is required")
		}
		caller.SetHandle(handle)
		return "Handle set to " + handle, nil

	case "getSelf":
		self := map[string]string{}
		for k, v := range caller.Self() {
			self[k] = v
		}
		self["handle"] = caller.Handle()
		if self["handle"] == "" {
			self["handle"] = "(unset)"
		}
		b, err := json.MarshalIndent(self, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding self: %w", err)
		}
		return string(b), nil

	case "setSelfField":
		key := call.String("key")
		if key == "" {
			return "", toolset.Errorf(toolset.ErrValidationFailed, "key is required")
		}
		caller.SetSelfField(key, call.String("value"))
		return fmt.Sprintf("Self[%s] set", key), nil

	case "setGoal":
		goal := call.String("goal")
		if goal == "" {
			return "", toolset.Errorf(toolset.ErrValidationFailed, "goal is required")
		}
		caller.SetSelfField("goal", goal)
		return "Goal set", nil
	}
	return "Unknown tool: " + call.Name, nil
}
