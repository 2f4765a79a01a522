// ABOUTME: Pass record persistence: one append-only row per completed actor pass
// ABOUTME: Supports recent, recent-by-actor and per-actor summary queries

package store

import (
	"context"
	"database/sql"
	"fmt"
)

const passColumns = `id, timestamp, agent_id, handle, intent, rationale, tool_calls,
	followup_instructions, snapshot, menu_snapshot, executions`

// SavePass appends a pass record. Records are never updated.
func (s *SQLiteStore) SavePass(ctx context.Context, rec *PassRecord) error {
	query := `INSERT INTO passes (` + passColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		formatTime(rec.Timestamp),
		rec.ActorID,
		rec.Handle,
		rec.Intent,
		rec.Rationale,
		rawOr(rec.ToolCalls, "[]"),
		rec.FollowupInstructions,
		rec.Snapshot,
		rec.MenuSnapshot,
		rawOr(rec.Executions, "[]"),
	)
	if err != nil {
		return fmt.Errorf("inserting pass: %w", err)
	}

	s.logger.Debug("saved pass", "id", rec.ID, "agent_id", rec.ActorID)
	return nil
}

// ListRecentPasses returns the newest passes first.
func (s *SQLiteStore) ListRecentPasses(ctx context.Context, limit int) ([]*PassRecord, error) {
	query := `SELECT ` + passColumns + ` FROM passes ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	return s.queryPasses(ctx, query, clampLimit(limit))
}

// ListRecentPassesByActor returns one actor's newest passes first.
func (s *SQLiteStore) ListRecentPassesByActor(ctx context.Context, actorID string, limit int) ([]*PassRecord, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE agent_id = ?
		ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	return s.queryPasses(ctx, query, actorID, clampLimit(limit))
}

// ListActors summarizes every actor that has a pass, most recently active first.
func (s *SQLiteStore) ListActors(ctx context.Context) ([]*ActorSummary, error) {
	query := `
		SELECT p.agent_id, COUNT(*), MAX(p.timestamp),
			(SELECT handle FROM passes q WHERE q.agent_id = p.agent_id ORDER BY q.timestamp DESC LIMIT 1)
		FROM passes p
		GROUP BY p.agent_id
		ORDER BY MAX(p.timestamp) DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying actors: %w", err)
	}
	defer rows.Close()

	var actors []*ActorSummary
	for rows.Next() {
		var a ActorSummary
		var last string
		var handle sql.NullString
		if err := rows.Scan(&a.ID, &a.Passes, &last, &handle); err != nil {
			return nil, fmt.Errorf("scanning actor: %w", err)
		}
		a.LastPassAt = parseTime(last)
		a.Handle = handle.String
		actors = append(actors, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actors: %w", err)
	}
	return actors, nil
}

func (s *SQLiteStore) queryPasses(ctx context.Context, query string, args ...any) ([]*PassRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying passes: %w", err)
	}
	defer rows.Close()

	var passes []*PassRecord
	for rows.Next() {
		var rec PassRecord
		var ts, toolCalls, executions string
		err := rows.Scan(
			&rec.ID,
			&ts,
			&rec.ActorID,
			&rec.Handle,
			&rec.Intent,
			&rec.Rationale,
			&toolCalls,
			&rec.FollowupInstructions,
			&rec.Snapshot,
			&rec.MenuSnapshot,
			&executions,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning pass: %w", err)
		}
		rec.Timestamp = parseTime(ts)
		rec.ToolCalls = []byte(toolCalls)
		rec.Executions = []byte(executions)
		passes = append(passes, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passes: %w", err)
	}
	return passes, nil
}
