package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// Events streams live updates over SSE, the wire format the dashboard's
// EventSource client speaks. Each connected client gets its own subscriber
// channel; a client that stops draining is dropped by the broadcaster.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Warningf("failed to encode event: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// EventsWS is the WebSocket flavor of the live-update stream, carrying the
// same JSON envelopes as /events.
func (h *Handler) EventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warningf("websocket accept failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients never send; CloseRead gives us a context that cancels when
	// the peer goes away.
	ctx := conn.CloseRead(r.Context())

	ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, open := <-ch:
			if !open {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Warningf("failed to encode event: %v", err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}
