// ABOUTME: Tests for the directory toolset, room membership and the admin toolset.
// ABOUTME: Includes the Agora handle-conflict and Council invite scenarios.

package polis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/polis/internal/agent"
	"github.com/2389/polis/internal/builtins"
	"github.com/2389/polis/internal/toolset"
)

func stepClock() func() time.Time {
	t := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestPolis(t *testing.T, opts ...Option) *Polis {
	t.Helper()
	opts = append([]Option{WithClock(stepClock()), WithSharedToolsets(builtins.Identity())}, opts...)
	p, err := New(opts...)
	require.NoError(t, err)
	return p
}

func newActor(p *Polis, id string) *agent.Actor {
	return agent.New(agent.Params{ID: id, Menu: p.DirectoryMenu()})
}

func do(a *agent.Actor, name string, params map[string]any) string {
	return a.Menu().CallTool(context.Background(), a, toolset.Call{Name: name, Params: params})
}

func TestScenarioAgora(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")
	b := newActor(p, "B")

	assert.Equal(t, "Created room Agora (public)", do(a, "createRoom", map[string]any{"name": "Agora"}))
	assert.Equal(t, "Joined room Agora", do(a, "joinRoom", map[string]any{"name": "Agora"}))
	assert.Equal(t, "Agent Alpha (#A) entered chat", do(a, "enter", map[string]any{"handle": "Alpha"}))
	assert.Equal(t, "Message posted by Alpha (#A)", do(a, "chat", map[string]any{"content": "hello"}))

	assert.Equal(t, "Joined room Agora", do(b, "joinRoom", map[string]any{"name": "Agora"}))
	res := do(b, "enter", map[string]any{"handle": "Alpha"})
	assert.Equal(t, "Error: this handle already exists, please chose another one", res)

	assert.Equal(t, "Agent Beta (#B) entered chat", do(b, "enter", map[string]any{"handle": "Beta"}))
	read := do(b, "read", map[string]any{"limit": 10})
	lines := strings.Split(read, "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "hello")
	assert.Contains(t, lines[0], "Alpha (#A)")
}

func TestScenarioCouncil(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")
	b := newActor(p, "B")

	assert.Equal(t, "Created private room Council and invited #B",
		do(a, "createPrivateRoomAndInvite", map[string]any{"name": "Council", "inviteAgentId": "B"}))

	before := b.Menu()
	res := do(b, "joinRoom", map[string]any{"name": "Council"})
	assert.True(t, strings.HasPrefix(res, "Error: "), res)
	assert.Same(t, before, b.Menu())

	assert.Equal(t, "Accepted invite and joined Council", do(b, "acceptInvite", map[string]any{"name": "Council"}))
	council, ok := p.Room("Council")
	require.True(t, ok)
	assert.Same(t, council.Menu(), b.Menu())

	// The invite survives acceptance, and accepted invitees may use joinRoom.
	assert.Equal(t, "Returned to directory", do(b, "returnToDirectory", nil))
	assert.Equal(t, "Joined room Council", do(b, "joinRoom", map[string]any{"name": "Council"}))
	assert.True(t, council.Invited("B"))
}

func TestJoinPrivateWithoutInvite(t *testing.T) {
	p := newTestPolis(t)
	ctx := context.Background()
	_, _, err := p.GetOrCreateRoom(ctx, "Vault", true)
	require.NoError(t, err)

	c := newActor(p, "C")
	before := c.Menu()

	_, err = p.DirectoryToolset().Call(ctx, c, toolset.Call{Name: "joinRoom", Params: map[string]any{"name": "Vault"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolset.ErrPermissionDenied))
	assert.Equal(t, "room Vault is private; invite required", err.Error())
	assert.Same(t, before, c.Menu())

	_, err = p.DirectoryToolset().Call(ctx, c, toolset.Call{Name: "acceptInvite", Params: map[string]any{"name": "Vault"}})
	assert.ErrorIs(t, err, toolset.ErrPermissionDenied)
	assert.Equal(t, "no invite for you in Vault", err.Error())
	assert.Same(t, before, c.Menu())
}

func TestJoinUnknownRoom(t *testing.T) {
	p := newTestPolis(t)
	c := newActor(p, "C")
	_, err := p.DirectoryToolset().Call(context.Background(), c, toolset.Call{Name: "joinRoom", Params: map[string]any{"name": "Nowhere"}})
	assert.ErrorIs(t, err, toolset.ErrNotFound)
	assert.Equal(t, "room Nowhere not found", err.Error())
}

func TestCreateRoomFirstVisibilityWins(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")

	assert.Equal(t, "Created room Den (private)", do(a, "createRoom", map[string]any{"name": "Den", "visibility": "private"}))
	assert.Equal(t, "Created room Den (private)", do(a, "createRoom", map[string]any{"name": "Den", "visibility": "public"}))
	assert.Equal(t, "Created room Agora (public)", do(a, "createRoom", map[string]any{"name": "Agora"}))
	assert.Len(t, p.Rooms(), 2)

	assert.Equal(t, "Den (private)\nAgora (public)", do(a, "listRooms", nil))
}

func TestListRoomsEmpty(t *testing.T) {
	p := newTestPolis(t)
	assert.Equal(t, "No rooms", do(newActor(p, "A"), "listRooms", nil))
}

func TestDirectoryValidation(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")
	assert.Equal(t, "Error: name required", do(a, "createRoom", nil))
	assert.Equal(t, "Error: name and inviteAgentId required", do(a, "createPrivateRoomAndInvite", map[string]any{"name": "X"}))

	_, err := p.DirectoryToolset().Call(context.Background(), nil, toolset.Call{Name: "listRooms"})
	assert.ErrorIs(t, err, toolset.ErrValidationFailed)
}

func TestCreatePrivateForcesExistingRoomPrivate(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")
	do(a, "createRoom", map[string]any{"name": "Agora"})
	do(a, "createPrivateRoomAndInvite", map[string]any{"name": "Agora", "inviteAgentId": "#B"})

	room, _ := p.Room("Agora")
	assert.True(t, room.Private())
	assert.True(t, room.Invited("B"))
}

func TestAdminTools(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")
	do(a, "createRoom", map[string]any{"name": "Agora"})
	do(a, "joinRoom", map[string]any{"name": "Agora"})

	assert.Equal(t, "Agora | public | items: 0 | invites: 0", do(a, "roomInfo", nil))
	assert.Equal(t, "Invited #B to Agora", do(a, "invite", map[string]any{"agentId": "B"}))
	assert.Equal(t, "Invited #B to Agora", do(a, "invite", map[string]any{"agentId": "B"}))
	assert.Equal(t, "Room Agora is now private", do(a, "makePrivate", nil))
	assert.Equal(t, "Agora | private | items: 0 | invites: 1", do(a, "roomInfo", nil))
	assert.Equal(t, "Room Agora is now public", do(a, "makePublic", nil))
	assert.Equal(t, "Error: agentId required", do(a, "invite", nil))
}

func TestAdminInviteIsPendingUntilAccepted(t *testing.T) {
	p := newTestPolis(t)
	a, b := newActor(p, "A"), newActor(p, "B")
	do(a, "createPrivateRoomAndInvite", map[string]any{"name": "Den", "inviteAgentId": "A"})
	do(a, "acceptInvite", map[string]any{"name": "Den"})
	room, _ := p.Room("Den")
	require.Same(t, room.Menu(), a.Menu())

	assert.Equal(t, "Invited #B to Den", do(a, "invite", map[string]any{"agentId": "B"}))
	assert.Equal(t, "Error: room Den is private; accept your invite with acceptInvite",
		do(b, "joinRoom", map[string]any{"name": "Den"}))
	assert.Equal(t, "Accepted invite and joined Den", do(b, "acceptInvite", map[string]any{"name": "Den"}))
	assert.Same(t, room.Menu(), b.Menu())
}

func TestRecentActivityInMemory(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")
	b := newActor(p, "B")
	for _, actor := range []*agent.Actor{a, b} {
		do(actor, "createRoom", map[string]any{"name": "Agora"})
		do(actor, "joinRoom", map[string]any{"name": "Agora"})
	}
	do(a, "enter", map[string]any{"handle": "Alpha"})
	do(b, "enter", map[string]any{"handle": "Beta"})
	do(a, "chat", map[string]any{"content": "hi"})
	do(b, "chat", map[string]any{"content": "hey"})

	res := do(a, "recentActivity", nil)
	assert.True(t, strings.HasPrefix(res, "Room: Agora\nItems:\nNo items\n\nRecent Chat:\n"), res)
	assert.Contains(t, res, "You: hi")
	assert.Contains(t, res, "Beta (#B): hey")

	empty := newTestPolis(t)
	c := newActor(empty, "C")
	do(c, "createRoom", map[string]any{"name": "Quiet"})
	do(c, "joinRoom", map[string]any{"name": "Quiet"})
	assert.Equal(t, "Room: Quiet\nItems:\nNo items\n\nRecent Chat:\nNo messages", do(c, "recentActivity", nil))
}

func TestReturnAndLeave(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")
	do(a, "createRoom", map[string]any{"name": "Agora"})
	do(a, "joinRoom", map[string]any{"name": "Agora"})
	room, _ := p.Room("Agora")

	assert.False(t, a.Menu().Has("listRooms"))
	assert.Equal(t, "Returned to directory", do(a, "returnToDirectory", nil))
	assert.Same(t, p.DirectoryMenu(), a.Menu())

	do(a, "joinRoom", map[string]any{"name": "Agora"})
	do(a, "enter", map[string]any{"handle": "Alpha"})
	require.True(t, room.Chat().Present("A"))

	assert.Equal(t, "Left room Agora", do(a, "leaveRoom", nil))
	assert.False(t, room.Chat().Present("A"))
	assert.Same(t, p.DirectoryMenu(), a.Menu())
}

func TestSharedToolsetsReachableEverywhere(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")
	assert.Equal(t, "Handle set to Al", do(a, "setHandle", map[string]any{"handle": "Al"}))

	do(a, "createRoom", map[string]any{"name": "Agora"})
	do(a, "joinRoom", map[string]any{"name": "Agora"})
	assert.Equal(t, "Handle: Al", do(a, "getHandle", nil))
}

func TestSharedToolsetCollision(t *testing.T) {
	clash := toolset.MustNew("Clash", []toolset.Descriptor{{Name: "listRooms"}},
		func(context.Context, toolset.Caller, toolset.Call) (string, error) { return "", nil })

	_, err := New(WithSharedToolsets(clash))
	assert.ErrorIs(t, err, toolset.ErrToolCollision)

	roomClash := toolset.MustNew("RoomClash", []toolset.Descriptor{{Name: "roomInfo"}},
		func(context.Context, toolset.Caller, toolset.Call) (string, error) { return "", nil })
	p, err := New(WithSharedToolsets(roomClash))
	require.NoError(t, err)
	_, _, err = p.GetOrCreateRoom(context.Background(), "Agora", false)
	assert.ErrorIs(t, err, toolset.ErrToolCollision)
	assert.Empty(t, p.Rooms())
}

func TestRoomMenuIsShared(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")
	b := newActor(p, "B")
	for _, actor := range []*agent.Actor{a, b} {
		do(actor, "createRoom", map[string]any{"name": "Agora"})
		do(actor, "joinRoom", map[string]any{"name": "Agora"})
	}
	assert.Same(t, a.Menu(), b.Menu())
	assert.Equal(t, "Agora", a.Menu().Label())
}

func TestSnapshots(t *testing.T) {
	p := newTestPolis(t)
	a := newActor(p, "A")
	do(a, "createRoom", map[string]any{"name": "Agora"})
	do(a, "joinRoom", map[string]any{"name": "Agora"})
	do(a, "enter", map[string]any{"handle": "Alpha"})
	do(a, "chat", map[string]any{"content": "one"})
	do(a, "chat", map[string]any{"content": "two"})

	snaps := p.Snapshots(1)
	require.Len(t, snaps, 1)
	s := snaps[0]
	assert.Equal(t, "Agora", s.Name)
	assert.False(t, s.Private)
	require.Len(t, s.Participants, 1)
	assert.Equal(t, "Alpha", s.Participants[0].Handle)
	require.Len(t, s.RecentChat, 1)
	assert.Equal(t, "two", s.RecentChat[0].Content)
	assert.Empty(t, s.Items)
}
