// ABOUTME: Manager tracks registered actors in registration order.
// ABOUTME: The scheduler walks this order round-robin; the dashboard lists it.

package agent

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrAgentAlreadyRegistered indicates an actor with the same ID is already registered.
var ErrAgentAlreadyRegistered = errors.New("agent already registered")

// ErrAgentNotFound indicates the specified actor was not found.
var ErrAgentNotFound = errors.New("agent not found")

// Manager is the ordered actor registry.
type Manager struct {
	mu     sync.RWMutex
	actors map[string]*Actor
	order  []string
	logger *slog.Logger
}

// NewManager creates an empty registry.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		actors: make(map[string]*Actor),
		logger: logger.With("component", "agents"),
	}
}

// Register appends an actor. Returns ErrAgentAlreadyRegistered on duplicate IDs.
func (m *Manager) Register(a *Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.actors[a.ID()]; exists {
		return ErrAgentAlreadyRegistered
	}
	m.actors[a.ID()] = a
	m.order = append(m.order, a.ID())

	m.logger.Info("=== AGENT REGISTERED ===",
		"agent_id", a.ID(),
		"handle", a.Handle(),
		"total_agents", len(m.order),
	)
	return nil
}

// Unregister removes an actor, returning it.
func (m *Manager) Unregister(id string) (*Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, exists := m.actors[id]
	if !exists {
		return nil, ErrAgentNotFound
	}
	delete(m.actors, id)
	for i, other := range m.order {
		if other == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	m.logger.Info("=== AGENT REMOVED ===",
		"agent_id", id,
		"total_agents", len(m.order),
	)
	return a, nil
}

// Get returns the actor with the given ID.
func (m *Manager) Get(id string) (*Actor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actors[id]
	return a, ok
}

// At returns the actor at position i modulo the registry size.
func (m *Manager) At(i int) (*Actor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.order) == 0 {
		return nil, false
	}
	return m.actors[m.order[i%len(m.order)]], true
}

// List returns all actors in registration order.
func (m *Manager) List() []*Actor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Actor, len(m.order))
	for i, id := range m.order {
		out[i] = m.actors[id]
	}
	return out
}

// Len returns the number of registered actors.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}
