// Package store provides persistent storage for the polis using SQLite.
//
// # Architecture
//
// Store is the full persistence contract and SQLiteStore implements it over
// modernc.org/sqlite (pure Go, no cgo). Callers that need only a slice of it
// declare their own narrow interface, as the polis and orchestrator do.
//
// Persistence is best-effort from the core's point of view: in-memory state is
// authoritative for membership and ownership, and callers log and swallow
// write failures.
//
// # Data Models
//
//   - PassRecord: one completed actor pass (decision, snapshot, outcomes)
//   - ChatMessage: one room chat line
//   - RoomRecord: room name, visibility and creation time
//   - ItemRecord: item template and current state
//   - InteractionRecord: one simulated interaction with an item
//
// # Queries
//
// List calls clamp their limit to DefaultLimit when unset and MaxLimit at
// most. Chat and interaction queries return rows oldest first; pass queries
// return the newest first.
//
// # Schema Management
//
// The schema is created on open with CREATE TABLE IF NOT EXISTS, then
// column-level migrations run after checking pragma_table_info. Both steps are
// idempotent.
//
// # Timestamps
//
// Timestamps are stored as fixed-width UTC text so that ORDER BY on the column
// is chronological.
package store
