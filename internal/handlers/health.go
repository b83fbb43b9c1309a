package handlers

import (
	"net/http"
	"time"
)

const version = "0.1.0"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Subscribers int    `json:"subscribers"`
	TextHook    bool   `json:"textWebhookConfigured"`
	VoiceHook   bool   `json:"voiceWebhookConfigured"`
	Timestamp   string `json:"timestamp"`
}

// Health handles the health check endpoint. There are no external
// dependencies to probe; the response reports relay and dispatcher state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Version:     version,
		Subscribers: h.relay.SubscriberCount(),
		TextHook:    h.hooks.TextConfigured(),
		VoiceHook:   h.hooks.VoiceConfigured(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}
