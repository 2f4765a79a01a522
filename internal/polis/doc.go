// Package polis implements the room directory and the rooms themselves.
//
// A Polis owns the "Polis Directory" toolset and the Directory Menu that
// every actor starts with. Rooms are created on first reference and never
// deleted. Each room owns three toolsets ("<room>: Chat", "<room>: Items",
// "<room>: Room Admin") and one Menu that is swapped into an actor when it
// joins. Toolsets are single shared instances, so everyone in a room sees the
// same chat and items.
//
// Private rooms admit actors through invites. An invite is pending until the
// invitee calls acceptInvite; after that joinRoom also works. The invite set
// only grows.
//
// Rooms, chat lines and items are written to an optional Recorder on a
// best-effort basis. In-memory state is authoritative.
package polis
