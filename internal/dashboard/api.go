// ABOUTME: JSON endpoints for passes, rooms, actors, room snapshots, chat and item interactions.
// ABOUTME: Query limits are parsed here and clamped by the store.

package dashboard

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/2389/polis/internal/store"
)

// AgentResponse is one entry of /api/agents.
type AgentResponse struct {
	ID         string     `json:"id"`
	Handle     string     `json:"handle,omitempty"`
	Passes     int        `json:"passes"`
	LastPassAt *time.Time `json:"lastPassAt,omitempty"`
	Active     bool       `json:"active"`
}

func (d *Dashboard) handlePasses(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}

	var (
		passes []*store.PassRecord
		err    error
	)
	if actorID := r.URL.Query().Get("agentId"); actorID != "" {
		passes, err = d.store.ListRecentPassesByActor(r.Context(), actorID, limit)
	} else {
		passes, err = d.store.ListRecentPasses(r.Context(), limit)
	}
	if err != nil {
		d.logger.Error("failed to list passes", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "failed to list passes")
		return
	}
	if passes == nil {
		passes = []*store.PassRecord{}
	}
	writeJSON(w, passes)
}

func (d *Dashboard) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := d.store.ListRooms(r.Context())
	if err != nil {
		d.logger.Error("failed to list rooms", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	if rooms == nil {
		rooms = []*store.RoomRecord{}
	}
	writeJSON(w, rooms)
}

func (d *Dashboard) handleAgents(w http.ResponseWriter, r *http.Request) {
	summaries, err := d.store.ListActors(r.Context())
	if err != nil {
		d.logger.Error("failed to list agents", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "failed to list agents")
		return
	}

	byID := make(map[string]*AgentResponse)
	out := make([]*AgentResponse, 0, len(summaries))
	for _, s := range summaries {
		last := s.LastPassAt
		a := &AgentResponse{ID: s.ID, Handle: s.Handle, Passes: s.Passes, LastPassAt: &last}
		byID[s.ID] = a
		out = append(out, a)
	}

	if d.roster != nil {
		for _, actor := range d.roster.Actors() {
			a, ok := byID[actor.ID()]
			if !ok {
				a = &AgentResponse{ID: actor.ID()}
				byID[actor.ID()] = a
				out = append(out, a)
			}
			a.Active = true
			if h := actor.Handle(); h != "" {
				a.Handle = h
			}
		}
	}

	// Actors with passes first, newest pass first; idle actors by id.
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].LastPassAt, out[j].LastPassAt
		switch {
		case li != nil && lj != nil:
			return li.After(*lj)
		case li != nil:
			return true
		case lj != nil:
			return false
		}
		return out[i].ID < out[j].ID
	})
	writeJSON(w, out)
}

func (d *Dashboard) handleRoomSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", defaultSnapshotChat)
	if !ok {
		return
	}
	if limit > RoomChatLimit {
		limit = RoomChatLimit
	}
	writeJSON(w, d.city.Snapshots(limit))
}

func (d *Dashboard) handleRoomChat(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		sendJSONError(w, http.StatusBadRequest, "room is required")
		return
	}
	msgs, err := d.store.ListRecentChatByRoom(r.Context(), room, RoomChatLimit)
	if err != nil {
		d.logger.Error("failed to list room chat", "room", room, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "failed to list room chat")
		return
	}
	if msgs == nil {
		msgs = []*store.ChatMessage{}
	}
	writeJSON(w, msgs)
}

func (d *Dashboard) handleItemInteractions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		sendJSONError(w, http.StatusBadRequest, "item id is required")
		return
	}
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	recs, err := d.store.ListInteractions(r.Context(), id, limit)
	if err != nil {
		d.logger.Error("failed to list interactions", "item_id", id, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "failed to list interactions")
		return
	}
	if recs == nil {
		recs = []*store.InteractionRecord{}
	}
	writeJSON(w, recs)
}

// queryInt parses an optional non-negative integer query parameter,
// writing a 400 and returning false when it is malformed.
func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		sendJSONError(w, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
