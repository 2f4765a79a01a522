// ABOUTME: Item and interaction persistence
// ABOUTME: Deleting an item cascades to its interaction log

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const itemColumns = `id, room, owner_id, template_json, state_json, created_at, updated_at`

// SaveItem inserts a new item.
func (s *SQLiteStore) SaveItem(ctx context.Context, item *ItemRecord) error {
	query := `INSERT INTO items (` + itemColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	updated := item.UpdatedAt
	if updated.IsZero() {
		updated = item.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.Room,
		item.OwnerID,
		rawOr(item.Template, "{}"),
		rawOr(item.State, "{}"),
		formatTime(item.CreatedAt),
		formatTime(updated),
	)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}

	s.logger.Debug("saved item", "id", item.ID, "room", item.Room)
	return nil
}

// UpdateItemState replaces an item's stored state.
// Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStore) UpdateItemState(ctx context.Context, id string, state json.RawMessage) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE items SET state_json = ?, updated_at = ? WHERE id = ?`,
		rawOr(state, "{}"), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("updating item state: %w", err)
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

// DeleteItem removes an item and its interactions.
// Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
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

// GetItem retrieves an item by ID.
// Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*ItemRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return item, nil
}

// ListItems returns a room's items in creation order.
func (s *SQLiteStore) ListItems(ctx context.Context, room string) ([]*ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE room = ? ORDER BY created_at ASC, rowid ASC`, room)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []*ItemRecord
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*ItemRecord, error) {
	var item ItemRecord
	var tmpl, state, created, updated string
	if err := row.Scan(&item.ID, &item.Room, &item.OwnerID, &tmpl, &state, &created, &updated); err != nil {
		return nil, err
	}
	item.Template = []byte(tmpl)
	item.State = []byte(state)
	item.CreatedAt = parseTime(created)
	item.UpdatedAt = parseTime(updated)
	return &item, nil
}

// SaveInteraction appends one interaction to an item's log.
func (s *SQLiteStore) SaveInteraction(ctx context.Context, rec *InteractionRecord) error {
	query := `
		INSERT INTO item_interactions
			(id, item_id, room, agent_id, interaction, inputs_json, outputs_json, description, state_json, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.ItemID,
		rec.Room,
		rec.ActorID,
		rec.Interaction,
		rawOr(rec.Inputs, "{}"),
		rawOr(rec.Outputs, "[]"),
		rec.Description,
		rawOr(rec.State, "{}"),
		formatTime(rec.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting interaction: %w", err)
	}
	return nil
}

// ListInteractions returns an item's newest interactions, oldest first.
func (s *SQLiteStore) ListInteractions(ctx context.Context, itemID string, limit int) ([]*InteractionRecord, error) {
	query := `
		SELECT id, item_id, room, agent_id, interaction, inputs_json, outputs_json, description, state_json, timestamp
		FROM (
			SELECT rowid AS rid, * FROM item_interactions
			WHERE item_id = ?
			ORDER BY timestamp DESC, rowid DESC
			LIMIT ?
		)
		ORDER BY timestamp ASC, rid ASC
	`
	rows, err := s.db.QueryContext(ctx, query, itemID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying interactions: %w", err)
	}
	defer rows.Close()

	var recs []*InteractionRecord
	for rows.Next() {
		var r InteractionRecord
		var inputs, outputs, state, ts string
		err := rows.Scan(&r.ID, &r.ItemID, &r.Room, &r.ActorID, &r.Interaction,
			&inputs, &outputs, &r.Description, &state, &ts)
		if err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		r.Inputs = []byte(inputs)
		r.Outputs = []byte(outputs)
		r.State = []byte(state)
		r.Timestamp = parseTime(ts)
		recs = append(recs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating interactions: %w", err)
	}
	return recs, nil
}
