package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sreejitheg/DFES/internal/models"
)

// keepaliveInterval is how often a comment line is written to an idle
// stream so dead connections are detected and unregistered promptly.
const keepaliveInterval = 25 * time.Second

// Stream handles long-lived Server-Sent Events subscriptions. The client
// first receives a replay of recent history, then every newly published
// message as a discrete event until it disconnects. Closing the
// connection is the unsubscribe signal.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Snapshot and registration are atomic, so replaying History before
	// draining C yields every message exactly once, in order.
	sub := h.relay.Subscribe()
	defer sub.Close()

	for _, msg := range sub.History {
		if err := writeEvent(w, msg); err != nil {
			return
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-sub.C:
			if !open {
				// Dropped by the relay for falling behind.
				return
			}
			if err := writeEvent(w, msg); err != nil {
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
