// ABOUTME: Dashboard wires the polis web view: routes, templates and collaborators.
// ABOUTME: Reads come from the store and live room snapshots; admin chat writes go to live rooms.

package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/polis/internal/agent"
	"github.com/2389/polis/internal/dedupe"
	"github.com/2389/polis/internal/feed"
	"github.com/2389/polis/internal/polis"
	"github.com/2389/polis/internal/store"
)

const (
	// AdminActorID is the actor id stamped on dashboard chat posts.
	AdminActorID = "admin"

	// DefaultAdminHandle is used when a post carries no handle.
	DefaultAdminHandle = "Admin"

	// RoomChatLimit caps /api/room-chat.
	RoomChatLimit = 20

	// defaultSnapshotChat is the chat lines per room in snapshots when no limit is given.
	defaultSnapshotChat = 10

	// overviewPasses is how many passes the overview page shows.
	overviewPasses = 50
)

// Reader is the persisted state the dashboard reads.
type Reader interface {
	ListRecentPasses(ctx context.Context, limit int) ([]*store.PassRecord, error)
	ListRecentPassesByActor(ctx context.Context, actorID string, limit int) ([]*store.PassRecord, error)
	ListActors(ctx context.Context) ([]*store.ActorSummary, error)
	ListRooms(ctx context.Context) ([]*store.RoomRecord, error)
	ListRecentChatByRoom(ctx context.Context, room string, limit int) ([]*store.ChatMessage, error)
	ListInteractions(ctx context.Context, itemID string, limit int) ([]*store.InteractionRecord, error)
}

// City is the live polis state.
type City interface {
	Snapshots(chatLimit int) []polis.RoomSnapshot
	Room(name string) (*polis.Room, bool)
}

// Roster lists the currently registered actors.
type Roster interface {
	Actors() []*agent.Actor
}

// Feed streams completed passes.
type Feed interface {
	Subscribe(ctx context.Context, actorID string) (<-chan feed.Event, string)
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithRoster merges live actors into /api/agents.
func WithRoster(r Roster) Option {
	return func(d *Dashboard) { d.roster = r }
}

// WithDedupe sets the nonce cache used by POST /rooms/chat.
func WithDedupe(c *dedupe.Cache) Option {
	return func(d *Dashboard) { d.nonces = c }
}

// WithFeed enables the live pass stream at /api/events.
func WithFeed(f Feed) Option {
	return func(d *Dashboard) { d.feed = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dashboard) { d.logger = l }
}

// Dashboard serves the web view.
type Dashboard struct {
	store      Reader
	city       City
	roster     Roster
	feed       Feed
	nonces     *dedupe.Cache
	ownsNonces bool
	logger     *slog.Logger
	pages      map[string]*template.Template
}

// New builds a dashboard. store and city are required.
func New(reader Reader, city City, opts ...Option) (*Dashboard, error) {
	if reader == nil || city == nil {
		return nil, fmt.Errorf("dashboard: store and city are required")
	}
	d := &Dashboard{
		store:  reader,
		city:   city,
		logger: slog.Default(),
		pages:  make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dashboard")
	if d.nonces == nil {
		d.nonces = dedupe.New(dedupe.DefaultTTL, dedupe.DefaultMaxSize)
		d.ownsNonces = true
	}

	for _, page := range []string{"overview", "rooms", "item"} {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", page, err)
		}
		d.pages[page] = tmpl
	}
	return d, nil
}

// Close releases the nonce cache when the dashboard created it.
func (d *Dashboard) Close() {
	if d.ownsNonces {
		d.nonces.Close()
	}
}

// RegisterRoutes registers every dashboard route on mux.
func (d *Dashboard) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", d.handleHealth)

	mux.HandleFunc("GET /api/passes", d.handlePasses)
	mux.HandleFunc("GET /api/rooms", d.handleRooms)
	mux.HandleFunc("GET /api/agents", d.handleAgents)
	mux.HandleFunc("GET /api/room-snapshots", d.handleRoomSnapshots)
	mux.HandleFunc("GET /api/room-chat", d.handleRoomChat)
	mux.HandleFunc("GET /api/items/{id}/interactions", d.handleItemInteractions)
	mux.HandleFunc("GET /api/events", d.handleEvents)

	mux.HandleFunc("GET /{$}", d.handleOverviewPage)
	mux.HandleFunc("GET /rooms", d.handleRoomsPage)
	mux.HandleFunc("GET /rooms/{room}/items/{index}", d.handleItemPage)
	mux.HandleFunc("POST /rooms/chat", d.handleRoomChatPost)

	d.logger.Info("dashboard routes registered")
}

// Handler returns a mux with every route registered.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	d.RegisterRoutes(mux)
	return logRequests(d.logger, mux)
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// logRequests logs each request at debug level.
func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
