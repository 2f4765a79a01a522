// ABOUTME: Server-sent event stream of completed passes for the dashboard
// ABOUTME: Optional agentId narrows the stream to one actor

package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/2389/polis/internal/feed"
)

// handleEvents streams passes until the client goes away or the feed closes.
func (d *Dashboard) handleEvents(w http.ResponseWriter, r *http.Request) {
	if d.feed == nil {
		sendJSONError(w, http.StatusServiceUnavailable, "live feed disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	actorID := r.URL.Query().Get("agentId")
	events, _ := d.feed.Subscribe(r.Context(), actorID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	d.writeSSEEvent(w, "ready", map[string]string{"agent_id": actorID})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.writeSSEEvent(w, "pass", ev)
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE event.
func (d *Dashboard) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		d.logger.Error("failed to marshal SSE data", "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

var _ Feed = (*feed.Broadcaster)(nil)
