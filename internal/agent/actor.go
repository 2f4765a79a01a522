// ABOUTME: Actor is one autonomous agent: identity, handle, self-state, history ring and current Menu.
// ABOUTME: Implements toolset.Caller so toolsets can read and update the actor directly.

package agent

import (
	"sync"

	"github.com/google/uuid"

	"github.com/2389/polis/internal/toolset"
)

// DefaultHistorySize is the history ring capacity when none is configured.
const DefaultHistorySize = 12

// Params configures a new Actor.
type Params struct {
	ID           string
	Handle       string
	Model        string
	SystemPrompt string
	HistorySize  int
	Menu         *toolset.Menu
}

// Actor is a registered agent. All mutable state sits behind mu; the scheduler
// runs passes on one goroutine but the dashboard reads concurrently.
type Actor struct {
	id           string
	model        string
	systemPrompt string

	mu           sync.Mutex
	handle       string
	self         map[string]string
	history      []string
	historySize  int
	menu         *toolset.Menu
	instructions string
}

var _ toolset.Caller = (*Actor)(nil)

// New creates an actor. An empty ID gets a fresh uuid.
func New(p Params) *Actor {
	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	size := p.HistorySize
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Actor{
		id:           id,
		model:        p.Model,
		systemPrompt: p.SystemPrompt,
		handle:       p.Handle,
		self:         make(map[string]string),
		historySize:  size,
		menu:         p.Menu,
	}
}

// ID returns the actor id.
func (a *Actor) ID() string { return a.id }

// Model returns the reasoning model id, possibly empty.
func (a *Actor) Model() string { return a.model }

// SystemPrompt returns the actor's persona prompt.
func (a *Actor) SystemPrompt() string { return a.systemPrompt }

func (a *Actor) Handle() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handle
}

func (a *Actor) SetHandle(handle string) {
	a.mu.Lock()
	a.handle = handle
	a.mu.Unlock()
}

// Self returns a copy of the self-state map.
func (a *Actor) Self() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.self))
	for k, v := range a.self {
		out[k] = v
	}
	return out
}

func (a *Actor) SetSelfField(key, value string) {
	a.mu.Lock()
	a.self[key] = value
	a.mu.Unlock()
}

// Menu returns the actor's current menu.
func (a *Actor) Menu() *toolset.Menu {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.menu
}

// SetMenu replaces the current menu wholesale.
func (a *Actor) SetMenu(m *toolset.Menu) {
	a.mu.Lock()
	a.menu = m
	a.mu.Unlock()
}

// Instructions returns the instructions for the next pass.
func (a *Actor) Instructions() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.instructions
}

// SetInstructions sets the instructions for the next pass.
func (a *Actor) SetInstructions(s string) {
	a.mu.Lock()
	a.instructions = s
	a.mu.Unlock()
}

// AppendHistory adds entries, evicting the oldest beyond capacity.
func (a *Actor) AppendHistory(entries ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, entries...)
	if over := len(a.history) - a.historySize; over > 0 {
		a.history = append([]string(nil), a.history[over:]...)
	}
}

// History returns the history ring oldest-first.
func (a *Actor) History() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.history...)
}
