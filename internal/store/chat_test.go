// ABOUTME: Tests for chat and room persistence
// ABOUTME: Verifies chronological ordering, since-queries and first-visibility-wins upserts

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedChat(t *testing.T, s *SQLiteStore, room string, n int, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := s.SaveChatMessage(context.Background(), &ChatMessage{
			ID:        fmt.Sprintf("%s-%d", room, i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Room:      room,
			ActorID:   "alpha",
			Handle:    "Alpha",
			Content:   fmt.Sprintf("msg %d", i),
		})
		require.NoError(t, err)
	}
}

func TestListRecentChatByRoom_Chronological(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	seedChat(t, s, "Agora", 5, base)
	seedChat(t, s, "Council", 2, base)

	msgs, err := s.ListRecentChatByRoom(ctx, "Agora", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg 2", msgs[0].Content)
	assert.Equal(t, "msg 3", msgs[1].Content)
	assert.Equal(t, "msg 4", msgs[2].Content)
	for _, m := range msgs {
		assert.Equal(t, "Agora", m.Room)
	}
}

func TestListRecentChatByRoom_SameTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, s.SaveChatMessage(ctx, &ChatMessage{ID: id, Timestamp: ts, Room: "r", ActorID: "a", Handle: "A", Content: id}))
	}

	msgs, err := s.ListRecentChatByRoom(ctx, "r", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].ID)
	assert.Equal(t, "third", msgs[2].ID)
}

func TestListChatSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedChat(t, s, "Agora", 4, base)

	msgs, err := s.ListChatSince(ctx, "Agora", base.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg 2", msgs[0].Content)
	assert.Equal(t, "msg 3", msgs[1].Content)
}

func TestListChatRooms(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()
	seedChat(t, s, "Council", 1, base)
	seedChat(t, s, "Agora", 2, base)

	rooms, err := s.ListChatRooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Agora", "Council"}, rooms)
}

func TestUpsertRoom_FirstVisibilityWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertRoom(ctx, &RoomRecord{Name: "Agora", Private: false, CreatedAt: base}))
	require.NoError(t, s.UpsertRoom(ctx, &RoomRecord{Name: "Agora", Private: true, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.UpsertRoom(ctx, &RoomRecord{Name: "Council", Private: true, CreatedAt: base.Add(time.Minute)}))

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Agora", rooms[0].Name)
	assert.False(t, rooms[0].Private)
	assert.True(t, base.Equal(rooms[0].CreatedAt))
	assert.Equal(t, "Council", rooms[1].Name)
	assert.True(t, rooms[1].Private)
}

func TestSetRoomVisibility(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRoom(ctx, &RoomRecord{Name: "Agora", CreatedAt: time.Now()}))
	require.NoError(t, s.SetRoomVisibility(ctx, "Agora", true))

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	assert.True(t, rooms[0].Private)

	err = s.SetRoomVisibility(ctx, "Nowhere", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveInvite_AcceptanceSticks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveInvite(ctx, &InviteRecord{Room: "Council", ActorID: "B", CreatedAt: base}))
	require.NoError(t, s.SaveInvite(ctx, &InviteRecord{Room: "Council", ActorID: "C", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, s.SaveInvite(ctx, &InviteRecord{Room: "Council", ActorID: "B", Accepted: true, CreatedAt: base.Add(time.Hour)}))
	// A repeat invite after acceptance leaves the invite accepted.
	require.NoError(t, s.SaveInvite(ctx, &InviteRecord{Room: "Council", ActorID: "B", CreatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, s.SaveInvite(ctx, &InviteRecord{Room: "Agora", ActorID: "B", CreatedAt: base}))

	invites, err := s.ListInvites(ctx, "Council")
	require.NoError(t, err)
	require.Len(t, invites, 2)
	assert.Equal(t, "B", invites[0].ActorID)
	assert.True(t, invites[0].Accepted)
	assert.True(t, base.Equal(invites[0].CreatedAt))
	assert.Equal(t, "C", invites[1].ActorID)
	assert.False(t, invites[1].Accepted)

	none, err := s.ListInvites(ctx, "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, none)
}
