// ABOUTME: Room registry and invite persistence
// ABOUTME: Upserts keep the first recorded visibility; explicit flips go through SetRoomVisibility

package store

import (
	"context"
	"fmt"
)

// UpsertRoom records a room if it is not already known. An existing row is
// left untouched, so the first visibility wins.
func (s *SQLiteStore) UpsertRoom(ctx context.Context, room *RoomRecord) error {
	query := `
		INSERT INTO rooms (name, is_private, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, room.Name, room.Private, formatTime(room.CreatedAt))
	if err != nil {
		return fmt.Errorf("upserting room: %w", err)
	}
	return nil
}

// SetRoomVisibility flips a room's private flag.
// Returns ErrNotFound if the room was never recorded.
func (s *SQLiteStore) SetRoomVisibility(ctx context.Context, name string, private bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE rooms SET is_private = ? WHERE name = ?`, private, name)
	if err != nil {
		return fmt.Errorf("updating room visibility: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRooms returns every recorded room in creation order.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*RoomRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, is_private, created_at FROM rooms ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*RoomRecord
	for rows.Next() {
		var r RoomRecord
		var created string
		if err := rows.Scan(&r.Name, &r.Private, &created); err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		r.CreatedAt = parseTime(created)
		rooms = append(rooms, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	return rooms, nil
}

// SaveInvite records an invite. Saving an existing invite can promote it to
// accepted but never demotes it, and the original created_at is kept.
func (s *SQLiteStore) SaveInvite(ctx context.Context, inv *InviteRecord) error {
	query := `
		INSERT INTO room_invites (room, agent_id, accepted, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(room, agent_id) DO UPDATE SET accepted = MAX(accepted, excluded.accepted)
	`
	_, err := s.db.ExecContext(ctx, query, inv.Room, inv.ActorID, inv.Accepted, formatTime(inv.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving invite: %w", err)
	}
	return nil
}

// ListInvites returns a room's invites in the order they were issued.
func (s *SQLiteStore) ListInvites(ctx context.Context, room string) ([]*InviteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT room, agent_id, accepted, created_at FROM room_invites
		WHERE room = ? ORDER BY created_at ASC, rowid ASC
	`, room)
	if err != nil {
		return nil, fmt.Errorf("querying invites: %w", err)
	}
	defer rows.Close()

	var invites []*InviteRecord
	for rows.Next() {
		var inv InviteRecord
		var created string
		if err := rows.Scan(&inv.Room, &inv.ActorID, &inv.Accepted, &created); err != nil {
			return nil, fmt.Errorf("scanning invite: %w", err)
		}
		inv.CreatedAt = parseTime(created)
		invites = append(invites, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invites: %w", err)
	}
	return invites, nil
}
