// ABOUTME: Store interface and record types for polis persistence
// ABOUTME: Defines pass, chat, room, item and interaction records plus the Store contract

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Query limits applied to every List call.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// PassRecord is the immutable record of one completed actor pass.
type PassRecord struct {
	ID                   string          `json:"id"`
	Timestamp            time.Time       `json:"timestamp"`
	ActorID              string          `json:"agentId"`
	Handle               string          `json:"handle,omitempty"`
	Intent               string          `json:"intent"`
	Rationale            string          `json:"rationale"`
	ToolCalls            json.RawMessage `json:"toolCalls"`
	FollowupInstructions string          `json:"followupInstructions"`
	Snapshot             string          `json:"snapshot"`
	MenuSnapshot         string          `json:"menuSnapshot"`
	Executions           json.RawMessage `json:"executions"`
}

// ActorSummary is one actor that has completed at least one pass.
type ActorSummary struct {
	ID         string    `json:"id"`
	Handle     string    `json:"handle,omitempty"`
	Passes     int       `json:"passes"`
	LastPassAt time.Time `json:"lastPassAt"`
}

// ChatMessage is one persisted room chat line.
type ChatMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Room      string    `json:"room"`
	ActorID   string    `json:"agentId"`
	Handle    string    `json:"handle"`
	Content   string    `json:"content"`
}

// RoomRecord is the persisted registry entry for a room.
type RoomRecord struct {
	Name      string    `json:"name"`
	Private   bool      `json:"isPrivate"`
	CreatedAt time.Time `json:"createdAt"`
}

// InviteRecord is a persisted room invite. Accepted never reverts.
type InviteRecord struct {
	Room      string    `json:"room"`
	ActorID   string    `json:"agentId"`
	Accepted  bool      `json:"accepted"`
	CreatedAt time.Time `json:"createdAt"`
}

// ItemRecord is a persisted item: its template and current state.
type ItemRecord struct {
	ID        string          `json:"id"`
	Room      string          `json:"room"`
	OwnerID   string          `json:"ownerId"`
	Template  json.RawMessage `json:"template"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// InteractionRecord logs one simulated interaction with an item.
type InteractionRecord struct {
	ID          string          `json:"id"`
	ItemID      string          `json:"itemId"`
	Room        string          `json:"room"`
	ActorID     string          `json:"agentId"`
	Interaction string          `json:"interaction"`
	Inputs      json.RawMessage `json:"inputs"`
	Outputs     json.RawMessage `json:"outputs"`
	Description string          `json:"description"`
	State       json.RawMessage `json:"state"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Store is the persistence contract. SQLiteStore implements it.
type Store interface {
	SavePass(ctx context.Context, rec *PassRecord) error
	ListRecentPasses(ctx context.Context, limit int) ([]*PassRecord, error)
	ListRecentPassesByActor(ctx context.Context, actorID string, limit int) ([]*PassRecord, error)
	ListActors(ctx context.Context) ([]*ActorSummary, error)

	SaveChatMessage(ctx context.Context, msg *ChatMessage) error
	ListRecentChatByRoom(ctx context.Context, room string, limit int) ([]*ChatMessage, error)
	ListChatSince(ctx context.Context, room string, since time.Time) ([]*ChatMessage, error)
	ListChatRooms(ctx context.Context) ([]string, error)

	UpsertRoom(ctx context.Context, room *RoomRecord) error
	SetRoomVisibility(ctx context.Context, name string, private bool) error
	ListRooms(ctx context.Context) ([]*RoomRecord, error)
	SaveInvite(ctx context.Context, inv *InviteRecord) error
	ListInvites(ctx context.Context, room string) ([]*InviteRecord, error)

	SaveItem(ctx context.Context, item *ItemRecord) error
	UpdateItemState(ctx context.Context, id string, state json.RawMessage) error
	DeleteItem(ctx context.Context, id string) error
	GetItem(ctx context.Context, id string) (*ItemRecord, error)
	ListItems(ctx context.Context, room string) ([]*ItemRecord, error)
	SaveInteraction(ctx context.Context, rec *InteractionRecord) error
	ListInteractions(ctx context.Context, itemID string, limit int) ([]*InteractionRecord, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
