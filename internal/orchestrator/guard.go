// ABOUTME: LoopGuard skips read-only tool calls an actor repeats from its previous pass.
// ABOUTME: Calls compare by name plus structurally equal params; the guard can be disabled.

package orchestrator

import (
	"sync"

	"github.com/2389/polis/internal/toolset"
)

// DefaultReadOnlyTools are the calls the guard considers safe to skip.
var DefaultReadOnlyTools = []string{
	"listRooms", "who", "read", "roomInfo", "recentActivity",
	"listItems", "myItems", "getSelf", "getHandle", "inspectItem",
}

// LoopGuard remembers each actor's read-only calls from its last pass.
// It is a heuristic and may skip a call that would have returned new data.
type LoopGuard struct {
	enabled  bool
	readOnly map[string]bool

	mu   sync.Mutex
	last map[string]map[string]bool
}

// NewLoopGuard builds a guard. An empty readOnly list uses DefaultReadOnlyTools.
func NewLoopGuard(enabled bool, readOnly []string) *LoopGuard {
	if len(readOnly) == 0 {
		readOnly = DefaultReadOnlyTools
	}
	set := make(map[string]bool, len(readOnly))
	for _, name := range readOnly {
		set[name] = true
	}
	return &LoopGuard{
		enabled:  enabled,
		readOnly: set,
		last:     make(map[string]map[string]bool),
	}
}

// ShouldSkip reports whether call repeats a read-only call from the actor's previous pass.
func (g *LoopGuard) ShouldSkip(actorID string, call toolset.Call) bool {
	if g == nil || !g.enabled || !g.readOnly[call.Name] {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last[actorID][call.Signature()]
}

// Remember replaces the actor's remembered calls with this pass's read-only calls.
func (g *LoopGuard) Remember(actorID string, calls []toolset.Call) {
	if g == nil || !g.enabled {
		return
	}
	sigs := make(map[string]bool)
	for _, c := range calls {
		if g.readOnly[c.Name] {
			sigs[c.Signature()] = true
		}
	}
	g.mu.Lock()
	g.last[actorID] = sigs
	g.mu.Unlock()
}

// Forget drops an actor's memory.
func (g *LoopGuard) Forget(actorID string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	delete(g.last, actorID)
	g.mu.Unlock()
}
