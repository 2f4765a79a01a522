// Package agent holds the actors that live in the polis.
//
// # Actor
//
// An Actor carries its identity, a display handle, a free-form self-state map,
// a bounded history ring and exactly one current Menu:
//
//	a := agent.New(agent.Params{ID: "alpha", Handle: "Alpha", Menu: dirMenu})
//
// Actor implements toolset.Caller, which is how toolsets read the caller's
// identity and swap its Menu (joinRoom, returnToDirectory). The Menu is always
// replaced wholesale, never patched.
//
// # Manager
//
// Manager is the ordered registry the scheduler walks round-robin:
//
//   - Register(actor): append, rejecting duplicate IDs
//   - Unregister(id): remove
//   - At(i): actor at i modulo the registry size
//   - List(): all actors in registration order
//
// # Thread Safety
//
// Both types are safe for concurrent use.
package agent
