package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ServeSSE streams whole-collection snapshots to the client as Server-Sent
// Events: one event on connect, then one per change signal on topic. fetch
// must return the complete current collection. The subscription is torn down
// when the client disconnects.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, topic Topic, fetch func() (interface{}, error)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := hub.Subscribe(topic)
	defer cancel()

	send := func() bool {
		snapshot, err := fetch()
		if err != nil {
			return true // transient; keep the stream open and retry on next signal
		}
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return true
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			if !send() {
				return
			}
		}
	}
}
