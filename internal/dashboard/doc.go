// Package dashboard serves the read-mostly web view of a running polis.
//
// JSON endpoints under /api expose persisted passes, rooms, actors, chat and
// item interactions, plus structured live room snapshots. HTML pages render
// recent passes, rooms with an admin chat form, and item sheets (markdown
// rendered with goldmark). The only write is POST /rooms/chat, which posts an
// admin message into a live room chat; repeated form nonces are dropped.
//
// The dashboard is unauthenticated and meant for local use.
package dashboard
