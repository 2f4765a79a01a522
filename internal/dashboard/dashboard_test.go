// ABOUTME: Handler tests for the dashboard using httptest, a temp SQLite store and a live polis.
// ABOUTME: Covers JSON endpoints, HTML pages and the deduplicated admin chat post.

package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/polis/internal/agent"
	"github.com/2389/polis/internal/builtins"
	"github.com/2389/polis/internal/feed"
	"github.com/2389/polis/internal/items"
	"github.com/2389/polis/internal/polis"
	"github.com/2389/polis/internal/reasoning"
	"github.com/2389/polis/internal/store"
	"github.com/2389/polis/internal/toolset"
)

type fixture struct {
	store  *store.SQLiteStore
	city   *polis.Polis
	server *httptest.Server
	roster *staticRoster
}

type staticRoster struct{ actors []*agent.Actor }

func (s *staticRoster) Actors() []*agent.Actor { return s.actors }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "polis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sim := items.NewSimulator(reasoning.NewScripted(
		`{"name":"Lantern","description":"A brass lantern","state_parameters":["lit"],"interactions":[{"name":"light","description":"Light it"}],"core_prompt":"a lantern"}`,
		`{"item_state":{"lit":"no"}}`,
	), "test-model", nil)

	city, err := polis.New(
		polis.WithStore(st),
		polis.WithSimulator(sim),
		polis.WithSharedToolsets(builtins.Identity()),
	)
	require.NoError(t, err)

	roster := &staticRoster{}
	d, err := New(st, city, WithRoster(roster))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)

	return &fixture{store: st, city: city, server: srv, roster: roster}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func decodeJSON(t *testing.T, body string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), v), body)
}

func savePass(t *testing.T, st *store.SQLiteStore, id, actorID, intent string, at time.Time) {
	t.Helper()
	require.NoError(t, st.SavePass(context.Background(), &store.PassRecord{
		ID:         id,
		Timestamp:  at,
		ActorID:    actorID,
		Handle:     strings.ToUpper(actorID),
		Intent:     intent,
		Rationale:  "why not",
		ToolCalls:  json.RawMessage(`[]`),
		Executions: json.RawMessage(`[{"name":"listRooms","result":"No rooms"},{"name":"who","result":"Skipped who: repeated read-only call","skipped":true}]`),
	}))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)
}

func TestPassesEndpoint(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	savePass(t, f.store, "p1", "a", "first", base)
	savePass(t, f.store, "p2", "b", "second", base.Add(time.Minute))
	savePass(t, f.store, "p3", "a", "third", base.Add(2*time.Minute))

	resp, body := f.get(t, "/api/passes")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var passes []store.PassRecord
	decodeJSON(t, body, &passes)
	require.Len(t, passes, 3)
	assert.Equal(t, "third", passes[0].Intent)

	_, body = f.get(t, "/api/passes?agentId=a&limit=1")
	decodeJSON(t, body, &passes)
	require.Len(t, passes, 1)
	assert.Equal(t, "p3", passes[0].ID)

	resp, _ = f.get(t, "/api/passes?limit=lots")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmptyListsAreArrays(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/passes", "/api/rooms", "/api/agents", "/api/room-snapshots", "/api/room-chat?room=Nowhere", "/api/items/nope/interactions"} {
		resp, body := f.get(t, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "[]", strings.TrimSpace(body), path)
	}
}

func TestAgentsEndpointMergesRoster(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	savePass(t, f.store, "p1", "a", "first", base)
	savePass(t, f.store, "p2", "b", "second", base.Add(time.Minute))

	f.roster.actors = []*agent.Actor{
		agent.New(agent.Params{ID: "a", Handle: "Alpha"}),
		agent.New(agent.Params{ID: "z"}),
	}

	_, body := f.get(t, "/api/agents")
	var agents []AgentResponse
	decodeJSON(t, body, &agents)
	require.Len(t, agents, 3)

	assert.Equal(t, "b", agents[0].ID)
	assert.False(t, agents[0].Active)
	assert.Equal(t, "a", agents[1].ID)
	assert.True(t, agents[1].Active)
	assert.Equal(t, "Alpha", agents[1].Handle)
	assert.Equal(t, 1, agents[1].Passes)
	assert.Equal(t, "z", agents[2].ID)
	assert.Nil(t, agents[2].LastPassAt)
}

func TestRoomsAndSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.city.GetOrCreateRoom(ctx, "Agora", false)
	require.NoError(t, err)
	_, _, err = f.city.GetOrCreateRoom(ctx, "Council", true)
	require.NoError(t, err)

	a := agent.New(agent.Params{ID: "A", Menu: f.city.DirectoryMenu()})
	call := func(name string, params map[string]any) string {
		return a.Menu().CallTool(ctx, a, toolset.Call{Name: name, Params: params})
	}
	call("joinRoom", map[string]any{"name": "Agora"})
	call("enter", map[string]any{"handle": "Alpha"})
	call("chat", map[string]any{"content": "hello"})

	_, body := f.get(t, "/api/rooms")
	var rooms []store.RoomRecord
	decodeJSON(t, body, &rooms)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Agora", rooms[0].Name)
	assert.True(t, rooms[1].Private)

	_, body = f.get(t, "/api/room-snapshots?limit=5")
	var snaps []polis.RoomSnapshot
	decodeJSON(t, body, &snaps)
	require.Len(t, snaps, 2)
	assert.Equal(t, "Agora", snaps[0].Name)
	require.Len(t, snaps[0].Participants, 1)
	assert.Equal(t, "Alpha", snaps[0].Participants[0].Handle)
	require.Len(t, snaps[0].RecentChat, 1)
	assert.Equal(t, "hello", snaps[0].RecentChat[0].Content)

	_, body = f.get(t, "/api/room-chat?room=Agora")
	var chat []store.ChatMessage
	decodeJSON(t, body, &chat)
	require.Len(t, chat, 1)
	assert.Equal(t, "A", chat[0].ActorID)

	resp, _ := f.get(t, "/api/room-chat")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminChatPostDedupesNonce(t *testing.T) {
	f := newFixture(t)
	room, _, err := f.city.GetOrCreateRoom(context.Background(), "Agora", false)
	require.NoError(t, err)

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	form := url.Values{"room": {"Agora"}, "content": {"welcome all"}, "nonce": {"n-1"}}

	for i := 0; i < 2; i++ {
		resp, err := client.PostForm(f.server.URL+"/rooms/chat", form)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	}

	msgs := room.Chat().Recent(10)
	require.Len(t, msgs, 1)
	assert.Equal(t, AdminActorID, msgs[0].ActorID)
	assert.Equal(t, DefaultAdminHandle, msgs[0].Handle)

	persisted, err := f.store.ListRecentChatByRoom(context.Background(), "Agora", 10)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "admin", persisted[0].ActorID)

	resp, err := client.Post(f.server.URL+"/rooms/chat", "application/json",
		strings.NewReader(`{"room":"Agora","content":"json hello","handle":"Mayor","nonce":"n-2"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	msgs = room.Chat().Recent(10)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Mayor", msgs[1].Handle)
}

func TestAdminChatPostValidation(t *testing.T) {
	f := newFixture(t)

	resp, err := http.PostForm(f.server.URL+"/rooms/chat", url.Values{"room": {"Nowhere"}, "content": {"hi"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.PostForm(f.server.URL+"/rooms/chat", url.Values{"room": {"Nowhere"}, "content": {"  "}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	savePass(t, f.store, "p1", "a", "explore the square", time.Now())

	_, _, err := f.city.GetOrCreateRoom(ctx, "Agora", false)
	require.NoError(t, err)
	a := agent.New(agent.Params{ID: "A", Menu: f.city.DirectoryMenu()})
	a.Menu().CallTool(ctx, a, toolset.Call{Name: "joinRoom", Params: map[string]any{"name": "Agora"}})
	res := a.Menu().CallTool(ctx, a, toolset.Call{Name: "createItem", Params: map[string]any{"description": "a lantern"}})
	require.False(t, strings.HasPrefix(res, "Error"), res)

	resp, body := f.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "explore the square")
	assert.Contains(t, body, "skipped")

	resp, body = f.get(t, "/rooms")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Agora")
	assert.Contains(t, body, `name="nonce"`)
	assert.Contains(t, body, "/rooms/Agora/items/0")

	resp, body = f.get(t, "/rooms/Agora/items/0")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<h1>Item: Lantern</h1>")
	assert.Contains(t, body, "lit: no")

	resp, _ = f.get(t, "/rooms/Agora/items/9")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = f.get(t, "/rooms/Nowhere/items/0")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEventsDisabledWithoutFeed(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.get(t, "/api/events")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestEventsStreamPasses(t *testing.T) {
	f := newFixture(t)
	b := feed.New(nil)
	defer b.Close()

	d, err := New(f.store, f.city, WithFeed(b))
	require.NoError(t, err)
	defer d.Close()
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?agentId=ada", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		require.True(t, lines.Scan())
		return lines.Text()
	}
	assert.Equal(t, "event: ready", next())
	assert.Equal(t, `data: {"agent_id":"ada"}`, next())
	assert.Equal(t, "", next())

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	b.Publish(feed.Event{PassID: "p-bo", ActorID: "bo"})
	b.Publish(feed.Event{PassID: "p-ada", ActorID: "ada", Intent: "wander", Tools: []string{"who"}})

	assert.Equal(t, "event: pass", next())
	data := strings.TrimPrefix(next(), "data: ")
	var ev feed.Event
	decodeJSON(t, data, &ev)
	assert.Equal(t, "p-ada", ev.PassID)
	assert.Equal(t, []string{"who"}, ev.Tools)

	b.Close()
	assert.Equal(t, "", next())
	assert.False(t, lines.Scan())
}
