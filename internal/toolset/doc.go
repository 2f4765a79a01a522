// Package toolset implements the two-level tool dispatch used by every actor.
//
// # Toolsets
//
// A Toolset is an immutable named list of tool descriptors plus one handler
// that executes any of them. Handlers close over whatever private state they
// need (a chat log, a room's items). Toolsets are shared by pointer, so state
// mutated through one menu is visible through every other menu holding the
// same toolset.
//
// # Menus
//
// A Menu composes toolsets for one actor. It offers two dispatch paths:
//
//	Navigate  - gated: loadToolset(index) then tool calls, toolList() to go back
//	CallTool  - ungated: first toolset declaring the name wins
//
// The scheduler always uses CallTool. Menus reject tool name collisions at
// construction time, so "first match" never shadows anything in practice.
//
// # Errors
//
// Handlers classify failures with Errorf and the kind sentinels (ErrNotFound,
// ErrPermissionDenied, ...). At the Menu boundary errors become "Error: ..."
// result text; a failing tool never aborts the caller.
package toolset
