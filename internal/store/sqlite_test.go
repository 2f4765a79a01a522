// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers opening, schema idempotence, passes and actor summaries

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("parent directory was not created")
	}
}

func TestNewSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	first, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.SavePass(context.Background(), &PassRecord{ID: "p1", ActorID: "a", Intent: "x", Timestamp: time.Now()}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(dbPath)
	require.NoError(t, err, "schema and migrations must be idempotent")
	defer second.Close()

	passes, err := second.ListRecentPasses(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, passes, 1)
}

func TestNewSQLiteStore_Memory(t *testing.T) {
	store, err := NewSQLiteStore(MemoryPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.UpsertRoom(ctx, &RoomRecord{Name: "Agora", CreatedAt: time.Now()}))
	rooms, err := store.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestSavePass_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &PassRecord{
		ID:                   "pass-1",
		Timestamp:            ts,
		ActorID:              "alpha",
		Handle:               "Alpha",
		Intent:               "say hello",
		Rationale:            "nobody has spoken",
		ToolCalls:            json.RawMessage(`[{"name":"chat","params":{"content":"hi"}}]`),
		FollowupInstructions: "wait for replies",
		Snapshot:             "- self: {}",
		MenuSnapshot:         "Tool Sets Available:",
		Executions:           json.RawMessage(`[{"name":"chat","result":"ok"}]`),
	}
	require.NoError(t, store.SavePass(ctx, rec))

	got, err := store.ListRecentPasses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.True(t, ts.Equal(got[0].Timestamp))
	assert.Equal(t, "Alpha", got[0].Handle)
	assert.JSONEq(t, string(rec.ToolCalls), string(got[0].ToolCalls))
	assert.JSONEq(t, string(rec.Executions), string(got[0].Executions))
	assert.Equal(t, rec.FollowupInstructions, got[0].FollowupInstructions)
}

func TestListRecentPasses_NewestFirstAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		actor := "alpha"
		if i%2 == 1 {
			actor = "beta"
		}
		err := store.SavePass(ctx, &PassRecord{
			ID:        fmt.Sprintf("p%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			ActorID:   actor,
			Intent:    "i",
		})
		require.NoError(t, err)
	}

	recent, err := store.ListRecentPasses(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "p4", recent[0].ID)
	assert.Equal(t, "p3", recent[1].ID)

	beta, err := store.ListRecentPassesByActor(ctx, "beta", 10)
	require.NoError(t, err)
	require.Len(t, beta, 2)
	assert.Equal(t, "p3", beta[0].ID)
	assert.Equal(t, "p1", beta[1].ID)
}

func TestListActors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	passes := []struct {
		id, actor, handle string
		offset            time.Duration
	}{
		{"p1", "alpha", "Al", 0},
		{"p2", "beta", "Be", time.Second},
		{"p3", "alpha", "Alpha", 2 * time.Second},
	}
	for _, p := range passes {
		require.NoError(t, store.SavePass(ctx, &PassRecord{
			ID: p.id, ActorID: p.actor, Handle: p.handle, Intent: "i", Timestamp: base.Add(p.offset),
		}))
	}

	actors, err := store.ListActors(ctx)
	require.NoError(t, err)
	require.Len(t, actors, 2)
	assert.Equal(t, "alpha", actors[0].ID)
	assert.Equal(t, 2, actors[0].Passes)
	assert.Equal(t, "Alpha", actors[0].Handle)
	assert.True(t, base.Add(2*time.Second).Equal(actors[0].LastPassAt))
	assert.Equal(t, "beta", actors[1].ID)
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{10, 10},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
