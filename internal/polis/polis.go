// ABOUTME: Polis is the room directory: a get-or-create registry of rooms plus the directory toolset.
// ABOUTME: The directory Menu is the capability set every actor starts with.

package polis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/polis/internal/items"
	"github.com/2389/polis/internal/store"
	"github.com/2389/polis/internal/toolset"
)

const (
	// DirectoryToolsetName is the directory toolset's menu key.
	DirectoryToolsetName = "Polis Directory"

	// DirectoryMenuLabel labels the directory Menu.
	DirectoryMenuLabel = "Directory"

	// RecentActivityCap bounds chat lines in recentActivity.
	RecentActivityCap = 20
)

// Recorder is the slice of the store the polis writes to. Writes are
// best-effort: failures are logged and never surface to tool callers.
type Recorder interface {
	UpsertRoom(ctx context.Context, room *store.RoomRecord) error
	SetRoomVisibility(ctx context.Context, name string, private bool) error
	ListRooms(ctx context.Context) ([]*store.RoomRecord, error)
	SaveInvite(ctx context.Context, inv *store.InviteRecord) error
	ListInvites(ctx context.Context, room string) ([]*store.InviteRecord, error)
	SaveChatMessage(ctx context.Context, msg *store.ChatMessage) error
	ListRecentChatByRoom(ctx context.Context, room string, limit int) ([]*store.ChatMessage, error)
	SaveItem(ctx context.Context, item *store.ItemRecord) error
	UpdateItemState(ctx context.Context, id string, state json.RawMessage) error
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context, room string) ([]*store.ItemRecord, error)
	SaveInteraction(ctx context.Context, rec *store.InteractionRecord) error
}

// ItemSimulator generates items and plays out interactions.
type ItemSimulator interface {
	CreateTemplate(ctx context.Context, description string) (*items.Template, error)
	InitialState(ctx context.Context, tmpl *items.Template, creationPrompt string) (items.State, error)
	Interact(ctx context.Context, tmpl *items.Template, state items.State, req items.InteractionRequest) (*items.Interaction, error)
}

// Option configures a Polis.
type Option func(*Polis)

// WithStore persists rooms, chat and items.
func WithStore(r Recorder) Option {
	return func(p *Polis) { p.store = r }
}

// WithSimulator sets the item simulator used by createItem and interact.
func WithSimulator(s ItemSimulator) Option {
	return func(p *Polis) { p.sim = s }
}

// WithSharedToolsets appends toolsets to the directory Menu and every room Menu.
func WithSharedToolsets(ts ...*toolset.Toolset) Option {
	return func(p *Polis) { p.shared = append(p.shared, ts...) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Polis) { p.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Polis) { p.now = now }
}

// Polis is the root registry of rooms.
type Polis struct {
	mu    sync.Mutex
	rooms map[string]*Room
	order []string

	directory *toolset.Toolset
	dirMenu   *toolset.Menu
	shared    []*toolset.Toolset

	store  Recorder
	sim    ItemSimulator
	logger *slog.Logger
	now    func() time.Time
}

// New creates an empty polis. Seeding rooms is the caller's job.
func New(opts ...Option) (*Polis, error) {
	p := &Polis{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "polis")

	p.directory = toolset.MustNew(DirectoryToolsetName, directoryTools, p.handleDirectory)
	menu, err := toolset.NewMenu(DirectoryMenuLabel, append([]*toolset.Toolset{p.directory}, p.shared...)...)
	if err != nil {
		return nil, fmt.Errorf("building directory menu: %w", err)
	}
	p.dirMenu = menu
	return p, nil
}

// DirectoryMenu returns the shared directory Menu.
func (p *Polis) DirectoryMenu() *toolset.Menu { return p.dirMenu }

// DirectoryToolset returns the directory toolset.
func (p *Polis) DirectoryToolset() *toolset.Toolset { return p.directory }

// Room returns the named room.
func (p *Polis) Room(name string) (*Room, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.rooms[name]
	return r, ok
}

// Rooms returns every room in creation order.
func (p *Polis) Rooms() []*Room {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Room, len(p.order))
	for i, name := range p.order {
		out[i] = p.rooms[name]
	}
	return out
}

// GetOrCreateRoom returns the named room, creating it with the given
// visibility when unknown. An existing room keeps its visibility.
func (p *Polis) GetOrCreateRoom(ctx context.Context, name string, private bool) (*Room, bool, error) {
	room, created, err := p.getOrCreate(name, private, p.now())
	if err != nil {
		return nil, false, err
	}
	if created {
		p.logger.Info("=== ROOM CREATED ===", "room", name, "private", private)
		p.record(ctx, "upserting room", func(ctx context.Context) error {
			return p.store.UpsertRoom(ctx, &store.RoomRecord{Name: name, Private: private, CreatedAt: room.createdAt})
		})
	}
	return room, created, nil
}

func (p *Polis) getOrCreate(name string, private bool, createdAt time.Time) (*Room, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, toolset.Errorf(toolset.ErrValidationFailed, "name required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if r, ok := p.rooms[name]; ok {
		return r, false, nil
	}
	r, err := newRoom(p, name, private, createdAt)
	if err != nil {
		return nil, false, err
	}
	p.rooms[name] = r
	p.order = append(p.order, name)
	return r, true, nil
}

// Restore rebuilds rooms, invites and items from the store. Chat
// registrations are not persisted and start empty.
func (p *Polis) Restore(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	records, err := p.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("listing rooms: %w", err)
	}

	for _, rec := range records {
		room, _, err := p.getOrCreate(rec.Name, rec.Private, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("restoring room %s: %w", rec.Name, err)
		}
		invites, err := p.store.ListInvites(ctx, rec.Name)
		if err != nil {
			return fmt.Errorf("listing invites for %s: %w", rec.Name, err)
		}
		for _, inv := range invites {
			room.restoreInvite(inv.ActorID, inv.Accepted)
		}
		itemRecs, err := p.store.ListItems(ctx, rec.Name)
		if err != nil {
			return fmt.Errorf("listing items for %s: %w", rec.Name, err)
		}
		for _, ir := range itemRecs {
			var tmpl items.Template
			if err := json.Unmarshal(ir.Template, &tmpl); err != nil {
				p.logger.Warn("skipping unreadable item", "item_id", ir.ID, "error", err)
				continue
			}
			var state items.State
			if len(ir.State) > 0 {
				if err := json.Unmarshal(ir.State, &state); err != nil {
					p.logger.Warn("skipping unreadable item state", "item_id", ir.ID, "error", err)
					continue
				}
			}
			room.restoreItem(ir.ID, ir.OwnerID, items.New(&tmpl, state))
		}
	}

	p.logger.Info("restored rooms", "count", len(records))
	return nil
}

// Snapshots returns a structured view of every room.
func (p *Polis) Snapshots(chatLimit int) []RoomSnapshot {
	rooms := p.Rooms()
	out := make([]RoomSnapshot, len(rooms))
	for i, r := range rooms {
		out[i] = r.Snapshot(chatLimit)
	}
	return out
}

// record runs a best-effort store write.
func (p *Polis) record(ctx context.Context, what string, fn func(ctx context.Context) error) {
	if p.store == nil {
		return
	}
	if err := fn(ctx); err != nil {
		p.logger.Warn("persistence failed", "op", what, "error", err)
	}
}

var directoryTools = []toolset.Descriptor{
	{Name: "listRooms", Description: "List available rooms"},
	{
		Name:        "createRoom",
		Description: "Create a room",
		Params: []toolset.Param{
			{Name: "name", Description: "Room name", Type: "string"},
			{Name: "visibility", Description: "public or private", Type: "string", Enum: []string{"public", "private"}, Default: "public"},
		},
	},
	{
		Name:        "createPrivateRoomAndInvite",
		Description: "Create a private room and invite an agent",
		Params: []toolset.Param{
			{Name: "name", Description: "Room name", Type: "string"},
			{Name: "inviteAgentId", Description: "Agent id to invite", Type: "string"},
		},
	},
	{
		Name:        "joinRoom",
		Description: "Join a room by name",
		Params: []toolset.Param{
			{Name: "name", Description: "Room name", Type: "string"},
		},
	},
	{
		Name:        "acceptInvite",
		Description: "Accept an invite to a private room",
		Params: []toolset.Param{
			{Name: "name", Description: "Room name", Type: "string"},
		},
	},
}

func (p *Polis) handleDirectory(ctx context.Context, caller toolset.Caller, call toolset.Call) (string, error) {
	if caller == nil {
		return "", toolset.Errorf(toolset.ErrValidationFailed, "agent required")
	}

	switch call.Name {
	case "listRooms":
		rooms := p.Rooms()
		if len(rooms) == 0 {
			return "No rooms", nil
		}
		lines := make([]string, len(rooms))
		for i, r := range rooms {
			lines[i] = fmt.Sprintf("%s (%s)", r.Name(), visibility(r.Private()))
		}
		return strings.Join(lines, "\n"), nil

	case "createRoom":
		name := call.String("name")
		if name == "" {
			return "", toolset.Errorf(toolset.ErrValidationFailed, "name required")
		}
		vis := call.String("visibility")
		room, _, err := p.GetOrCreateRoom(ctx, name, vis == "private")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created room %s (%s)", room.Name(), visibility(room.Private())), nil

	case "createPrivateRoomAndInvite":
		name, invitee := call.String("name"), normalizeID(call.String("inviteAgentId"))
		if name == "" || invitee == "" {
			return "", toolset.Errorf(toolset.ErrValidationFailed, "name and inviteAgentId required")
		}
		room, _, err := p.GetOrCreateRoom(ctx, name, true)
		if err != nil {
			return "", err
		}
		room.setPrivate(ctx, true)
		room.Invite(ctx, invitee)
		return fmt.Sprintf("Created private room %s and invited #%s", room.Name(), invitee), nil

	case "joinRoom":
		name := call.String("name")
		room, ok := p.Room(name)
		if !ok {
			return "", toolset.Errorf(toolset.ErrNotFound, "room %s not found", name)
		}
		if err := room.checkJoin(caller.ID()); err != nil {
			return "", err
		}
		caller.SetMenu(room.Menu())
		return "Joined room " + room.Name(), nil

	case "acceptInvite":
		name := call.String("name")
		room, ok := p.Room(name)
		if !ok {
			return "", toolset.Errorf(toolset.ErrNotFound, "room %s not found", name)
		}
		if !room.accept(ctx, caller.ID()) {
			return "", toolset.Errorf(toolset.ErrPermissionDenied, "no invite for you in %s", room.Name())
		}
		caller.SetMenu(room.Menu())
		return "Accepted invite and joined " + room.Name(), nil
	}
	return "Unknown tool: " + call.Name, nil
}

func visibility(private bool) string {
	if private {
		return "private"
	}
	return "public"
}

func normalizeID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "#")
}
