package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sreejitheg/DFES/internal/models"
)

// IncomingResponse represents the inbound ingestion response.
type IncomingResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

// Incoming handles messages pushed by the automation backend. The message
// is validated, appended to history and broadcast to every connected
// stream subscriber. Validation failures leave the store untouched.
func (h *Handler) Incoming(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Event) == "" {
		h.Error(w, http.StatusBadRequest, "event is required")
		return
	}
	if strings.TrimSpace(req.Speaker) == "" {
		h.Error(w, http.StatusBadRequest, "speaker is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" && strings.TrimSpace(req.AudioURL) == "" {
		h.Error(w, http.StatusBadRequest, "text or audioUrl is required")
		return
	}
	if req.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, req.Timestamp); err != nil {
			h.Error(w, http.StatusBadRequest, "ts must be an RFC 3339 timestamp")
			return
		}
	}

	msg := h.relay.Publish(req.Message())

	h.log.Debug().
		Str("id", msg.ID).
		Str("event", msg.Event).
		Str("speaker", msg.Speaker).
		Msg("message ingested")

	h.JSON(w, http.StatusOK, IncomingResponse{Success: true, MessageID: msg.ID})
}
