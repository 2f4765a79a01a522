// ABOUTME: Room chat persistence for the polis
// ABOUTME: Queries always return messages in chronological order

package store

import (
	"context"
	"fmt"
	"time"
)

const chatColumns = `id, timestamp, room, agent_id, handle, content`

// SaveChatMessage appends a chat message.
func (s *SQLiteStore) SaveChatMessage(ctx context.Context, msg *ChatMessage) error {
	query := `INSERT INTO chat_messages (` + chatColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		formatTime(msg.Timestamp),
		msg.Room,
		msg.ActorID,
		msg.Handle,
		msg.Content,
	)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	return nil
}

// ListRecentChatByRoom returns the newest limit messages of a room, oldest first.
func (s *SQLiteStore) ListRecentChatByRoom(ctx context.Context, room string, limit int) ([]*ChatMessage, error) {
	// Get the N most recent messages, but return them in chronological order
	query := `
		SELECT ` + chatColumns + ` FROM (
			SELECT rowid AS rid, ` + chatColumns + `
			FROM chat_messages
			WHERE room = ?
			ORDER BY timestamp DESC, rowid DESC
			LIMIT ?
		)
		ORDER BY timestamp ASC, rid ASC
	`
	return s.queryChat(ctx, query, room, clampLimit(limit))
}

// ListChatSince returns every message in a room strictly after since, oldest first.
func (s *SQLiteStore) ListChatSince(ctx context.Context, room string, since time.Time) ([]*ChatMessage, error) {
	query := `
		SELECT ` + chatColumns + `
		FROM chat_messages
		WHERE room = ? AND timestamp > ?
		ORDER BY timestamp ASC, rowid ASC
		LIMIT ?
	`
	return s.queryChat(ctx, query, room, formatTime(since), MaxLimit)
}

// ListChatRooms returns the distinct room names that have chat, sorted.
func (s *SQLiteStore) ListChatRooms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT room FROM chat_messages ORDER BY room`)
	if err != nil {
		return nil, fmt.Errorf("querying chat rooms: %w", err)
	}
	defer rows.Close()

	var rooms []string
	for rows.Next() {
		var room string
		if err := rows.Scan(&room); err != nil {
			return nil, fmt.Errorf("scanning chat room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *SQLiteStore) queryChat(ctx context.Context, query string, args ...any) ([]*ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chat: %w", err)
	}
	defer rows.Close()

	var msgs []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		var ts string
		if err := rows.Scan(&m.ID, &ts, &m.Room, &m.ActorID, &m.Handle, &m.Content); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		m.Timestamp = parseTime(ts)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat: %w", err)
	}
	return msgs, nil
}
