// ABOUTME: HTML pages: recent passes, rooms with the admin chat form, and item sheets.
// ABOUTME: Also handles the admin chat post with nonce dedupe.

package dashboard

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/2389/polis/internal/dedupe"
	"github.com/2389/polis/internal/polis"
	"github.com/2389/polis/internal/store"
)

type executionView struct {
	Name    string `json:"name"`
	Result  string `json:"result"`
	Skipped bool   `json:"skipped"`
}

type passView struct {
	*store.PassRecord
	Steps []executionView
}

type overviewData struct {
	Title  string
	Passes []passView
}

type roomsData struct {
	Title string
	Nonce string
	Rooms []polis.RoomSnapshot
}

type itemData struct {
	Title        string
	Room         string
	Sheet        template.HTML
	Interactions []*store.InteractionRecord
}

// ChatPost is the admin chat form, also accepted as JSON.
type ChatPost struct {
	Room    string `json:"room"`
	Content string `json:"content"`
	Handle  string `json:"handle"`
	Nonce   string `json:"nonce"`
}

func (d *Dashboard) render(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.pages[page].Execute(w, data); err != nil {
		d.logger.Error("failed to render page", "page", page, "error", err)
	}
}

func (d *Dashboard) handleOverviewPage(w http.ResponseWriter, r *http.Request) {
	passes, err := d.store.ListRecentPasses(r.Context(), overviewPasses)
	if err != nil {
		d.logger.Error("failed to list passes", "error", err)
		http.Error(w, "Failed to load passes", http.StatusInternalServerError)
		return
	}

	views := make([]passView, len(passes))
	for i, p := range passes {
		views[i] = passView{PassRecord: p}
		if len(p.Executions) > 0 {
			if err := json.Unmarshal(p.Executions, &views[i].Steps); err != nil {
				d.logger.Warn("undecodable executions", "pass_id", p.ID, "error", err)
			}
		}
	}
	d.render(w, "overview", overviewData{Title: "Passes", Passes: views})
}

func (d *Dashboard) handleRoomsPage(w http.ResponseWriter, r *http.Request) {
	d.render(w, "rooms", roomsData{
		Title: "Rooms",
		Nonce: uuid.New().String(),
		Rooms: d.city.Snapshots(RoomChatLimit),
	})
}

func (d *Dashboard) handleItemPage(w http.ResponseWriter, r *http.Request) {
	roomName := r.PathValue("room")
	room, ok := d.city.Room(roomName)
	if !ok {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "Invalid item index", http.StatusBadRequest)
		return
	}
	item, ok := room.Item(index)
	if !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(item.Sheet()), &html); err != nil {
		d.logger.Error("failed to convert item sheet", "room", roomName, "index", index, "error", err)
		html.Reset()
		html.WriteString("<p>Failed to render item sheet.</p>")
	}

	var interactions []*store.InteractionRecord
	summaries := room.Items()
	if index < len(summaries) {
		interactions, err = d.store.ListInteractions(r.Context(), summaries[index].ID, RoomChatLimit)
		if err != nil {
			d.logger.Warn("failed to list interactions", "item_id", summaries[index].ID, "error", err)
		}
	}

	d.render(w, "item", itemData{
		Title:        item.Name(),
		Room:         room.Name(),
		Sheet:        template.HTML(html.String()),
		Interactions: interactions,
	})
}

func (d *Dashboard) handleRoomChatPost(w http.ResponseWriter, r *http.Request) {
	wantsJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")

	var post ChatPost
	if wantsJSON {
		if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
			sendJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		post = ChatPost{
			Room:    r.FormValue("room"),
			Content: r.FormValue("content"),
			Handle:  r.FormValue("handle"),
			Nonce:   r.FormValue("nonce"),
		}
	}

	fail := func(status int, msg string) {
		if wantsJSON {
			sendJSONError(w, status, msg)
			return
		}
		http.Error(w, msg, status)
	}

	post.Content = strings.TrimSpace(post.Content)
	if post.Room == "" || post.Content == "" {
		fail(http.StatusBadRequest, "room and content are required")
		return
	}
	room, ok := d.city.Room(post.Room)
	if !ok {
		fail(http.StatusNotFound, "room not found")
		return
	}

	duplicate := d.nonces.Seen(dedupe.Key(room.Name(), post.Nonce))
	if duplicate {
		d.logger.Debug("dropping duplicate admin post", "room", room.Name(), "nonce", post.Nonce)
	} else {
		handle := strings.TrimSpace(post.Handle)
		if handle == "" {
			handle = DefaultAdminHandle
		}
		room.Chat().Post(AdminActorID, handle, post.Content)
		d.logger.Info("admin message posted", "room", room.Name(), "handle", handle)
	}

	if wantsJSON {
		writeJSON(w, map[string]any{"posted": !duplicate, "room": room.Name()})
		return
	}
	http.Redirect(w, r, "/rooms#room-"+url.PathEscape(room.Name()), http.StatusSeeOther)
}
