package builtins

import (
	"encoding/json"
	"testing"
)

func TestIdentityTools(t *testing.T) {
	ts := Identity()
	c := newCaller("a")

	out, err := call(ts, c, "getHandle", nil)
	if err != nil || out != "Handle: (unset)" {
		t.Fatalf("getHandle = %q, %v", out, err)
	}

	if _, err := call(ts, c, "setHandle", map[string]any{"handle": "Ada"}); err != nil {
		t.Fatalf("setHandle: %v", err)
	}
	if c.handle != "Ada" {
		t.Errorf("handle = %q, want Ada", c.handle)
	}

	if _, err := call(ts, c, "setSelfField", map[string]any{"key": "mood", "value": "curious"}); err != nil {
		t.Fatalf("setSelfField: %v", err)
	}
	if _, err := call(ts, c, "setGoal", map[string]any{"goal": "build a garden"}); err != nil {
		t.Fatalf("setGoal: %v", err)
	}

	out, err = call(ts, c, "getSelf", nil)
	if err != nil {
		t.Fatalf("getSelf: %v", err)
	}
	var self map[string]string
	if err := json.Unmarshal([]byte(out), &self); err != nil {
		t.Fatalf("getSelf returned invalid JSON: %v", err)
	}
	if self["handle"] != "Ada" || self["mood"] != "curious" || self["goal"] != "build a garden" {
		t.Errorf("unexpected self: %v", self)
	}
}

func TestIdentityRequiresCaller(t *testing.T) {
	if _, err := call(Identity(), nil, "getSelf", nil); err == nil {
		t.Error("expected error without caller")
	}
	if _, err := call(Identity(), newCaller("a"), "setSelfField", map[string]any{"value": "x"}); err == nil {
		t.Error("expected error without key")
	}
}
