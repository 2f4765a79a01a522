// Package builtins provides the capability packs that are not tied to the
// directory: per-room chat and the shared identity toolset.
//
// # Chat
//
// NewChat builds one room's chat registry and its toolset:
//
//   - enter: register under a handle unique among other participants
//   - leave: unregister
//   - changeHandle: rename while entered
//   - who: list participants with join times
//   - chat: post a message (requires enter)
//   - read: newest messages, at most ReadCap (requires enter)
//
// Re-entering keeps the original join time. A handle collision fails with
// toolset.ErrConflict and leaves the registry untouched. The chat exposes a
// presence check so the scheduler can tell whether an actor has entered.
//
// # Identity
//
// Identity returns a stateless toolset over the calling actor:
// getHandle, setHandle, getSelf, setSelfField and setGoal.
package builtins
