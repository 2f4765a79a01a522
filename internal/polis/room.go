// ABOUTME: Room is a named shared context with chat, items and admin toolsets.
// ABOUTME: Tracks visibility, the grow-only invite set and the ordered owned-item list.

package polis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/polis/internal/builtins"
	"github.com/2389/polis/internal/items"
	"github.com/2389/polis/internal/store"
	"github.com/2389/polis/internal/toolset"
)

// roomItem is one owned item. ID is stable across index shifts.
type roomItem struct {
	id      string
	ownerID string
	item    *items.Item
}

// Room is one named room. Its toolsets are single shared instances.
type Room struct {
	name      string
	createdAt time.Time
	polis     *Polis

	mu      sync.Mutex
	private bool
	// invites maps actor id to whether the invite has been accepted.
	invites map[string]bool
	items   []roomItem

	chat    *builtins.Chat
	itemsTS *toolset.Toolset
	adminTS *toolset.Toolset
	menu    *toolset.Menu
}

func newRoom(p *Polis, name string, private bool, createdAt time.Time) (*Room, error) {
	r := &Room{
		name:      name,
		createdAt: createdAt,
		polis:     p,
		private:   private,
		invites:   make(map[string]bool),
	}
	r.chat = builtins.NewChat(name+": Chat",
		builtins.WithClock(p.now),
		builtins.WithMessageHook(r.persistMessage),
	)
	r.itemsTS = toolset.MustNew(name+": Items", roomItemTools, r.handleItems)
	r.adminTS = toolset.MustNew(name+": Room Admin", roomAdminTools, r.handleAdmin)

	sets := append([]*toolset.Toolset{r.chat.Toolset(), r.itemsTS, r.adminTS}, p.shared...)
	menu, err := toolset.NewMenu(name, sets...)
	if err != nil {
		return nil, fmt.Errorf("building menu for room %s: %w", name, err)
	}
	r.menu = menu
	return r, nil
}

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// CreatedAt returns when the room was first created.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Menu returns the room Menu swapped into actors that join.
func (r *Room) Menu() *toolset.Menu { return r.menu }

// Chat returns the room chat registry.
func (r *Room) Chat() *builtins.Chat { return r.chat }

// Private reports the room's visibility.
func (r *Room) Private() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.private
}

// Invite adds an actor to the invite set. Re-inviting is a no-op and never
// resets an accepted invite.
// Every invite starts pending, including those from the admin invite tool.
func (r *Room) Invite(ctx context.Context, actorID string) {
	id := normalizeID(actorID)
	r.mu.Lock()
	_, exists := r.invites[id]
	if !exists {
		r.invites[id] = false
	}
	r.mu.Unlock()

	if !exists {
		r.saveInvite(ctx, id, false)
	}
}

// Invited reports whether the actor holds an invite, accepted or not.
func (r *Room) Invited(actorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.invites[normalizeID(actorID)]
	return ok
}

// checkJoin gates joinRoom. Private rooms admit only actors that have
// accepted an invite; a pending invite must go through acceptInvite first.
func (r *Room) checkJoin(actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.private {
		return nil
	}
	accepted, invited := r.invites[normalizeID(actorID)]
	switch {
	case !invited:
		return toolset.Errorf(toolset.ErrPermissionDenied, "room %s is private; invite required", r.name)
	case !accepted:
		return toolset.Errorf(toolset.ErrPermissionDenied, "room %s is private; accept your invite with acceptInvite", r.name)
	}
	return nil
}

// accept marks an invite accepted. The entry is kept so acceptance repeats.
func (r *Room) accept(ctx context.Context, actorID string) bool {
	id := normalizeID(actorID)
	r.mu.Lock()
	accepted, ok := r.invites[id]
	if ok {
		r.invites[id] = true
	}
	r.mu.Unlock()

	if ok && !accepted {
		r.saveInvite(ctx, id, true)
	}
	return ok
}

func (r *Room) saveInvite(ctx context.Context, id string, accepted bool) {
	r.polis.record(ctx, "saving invite", func(ctx context.Context) error {
		return r.polis.store.SaveInvite(ctx, &store.InviteRecord{
			Room:      r.name,
			ActorID:   id,
			Accepted:  accepted,
			CreatedAt: r.polis.now(),
		})
	})
}

// restoreInvite loads a persisted invite without writing it back.
func (r *Room) restoreInvite(actorID string, accepted bool) {
	id := normalizeID(actorID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites[id] = r.invites[id] || accepted
}

func (r *Room) setPrivate(ctx context.Context, private bool) {
	r.mu.Lock()
	changed := r.private != private
	r.private = private
	r.mu.Unlock()

	if changed {
		r.polis.record(ctx, "setting room visibility", func(ctx context.Context) error {
			return r.polis.store.SetRoomVisibility(ctx, r.name, private)
		})
	}
}

func (r *Room) inviteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.invites)
}

// ItemSummary describes one item for listings.
type ItemSummary struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"ownerId"`
}

// Items lists the room's items in order.
func (r *Room) Items() []ItemSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ItemSummary, len(r.items))
	for i, it := range r.items {
		out[i] = ItemSummary{Index: i, ID: it.id, Name: it.item.Name(), OwnerID: it.ownerID}
	}
	return out
}

// Item returns the item at index.
func (r *Room) Item(index int) (*items.Item, bool) {
	entry, ok := r.itemAt(index)
	if !ok {
		return nil, false
	}
	return entry.item, true
}

func (r *Room) itemAt(index int) (roomItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.items) {
		return roomItem{}, false
	}
	return r.items[index], true
}

// indexOfLocked re-resolves an item by ID after an unlocked section.
func (r *Room) indexOfLocked(id string) int {
	for i, it := range r.items {
		if it.id == id {
			return i
		}
	}
	return -1
}

func (r *Room) addItem(ownerID string, item *items.Item) roomItem {
	entry := roomItem{id: uuid.New().String(), ownerID: ownerID, item: item}
	r.mu.Lock()
	r.items = append(r.items, entry)
	r.mu.Unlock()
	return entry
}

func (r *Room) restoreItem(id, ownerID string, item *items.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOfLocked(id) >= 0 {
		return
	}
	r.items = append(r.items, roomItem{id: id, ownerID: ownerID, item: item})
}

// RoomSnapshot is a structured view of a room for the dashboard.
type RoomSnapshot struct {
	Name         string                 `json:"name"`
	Private      bool                   `json:"isPrivate"`
	Invites      int                    `json:"invites"`
	Participants []builtins.Participant `json:"participants"`
	Items        []ItemSummary          `json:"items"`
	RecentChat   []builtins.Message     `json:"recentChat"`
}

// Snapshot captures the room's live state.
func (r *Room) Snapshot(chatLimit int) RoomSnapshot {
	return RoomSnapshot{
		Name:         r.name,
		Private:      r.Private(),
		Invites:      r.inviteCount(),
		Participants: r.chat.Participants(),
		Items:        r.Items(),
		RecentChat:   r.chat.Recent(chatLimit),
	}
}

// persistMessage is the chat hook. It runs outside the chat lock.
func (r *Room) persistMessage(m builtins.Message) {
	r.polis.record(context.Background(), "saving chat message", func(ctx context.Context) error {
		return r.polis.store.SaveChatMessage(ctx, &store.ChatMessage{
			ID:        uuid.New().String(),
			Timestamp: m.Timestamp,
			Room:      r.name,
			ActorID:   m.ActorID,
			Handle:    m.Handle,
			Content:   m.Content,
		})
	})
}
