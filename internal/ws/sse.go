package ws

import (
	"fmt"
	"net/http"
	"time"
)

const sseKeepAlive = 25 * time.Second

// ServeSSE streams patch events over server-sent events for clients that
// cannot hold a websocket. Each event is one JSON patch payload.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if h.metrics != nil {
		h.metrics.IncrementConnections(r.Context())
		defer h.metrics.DecrementConnections(r.Context())
	}

	sub := h.stores.Subscribe(r.Context(), patchChannels...)
	defer sub.Close()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: patch\ndata: %s\n\n", msg.Payload)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
