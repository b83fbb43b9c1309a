package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sreejitheg/DFES/internal/config"
	"github.com/sreejitheg/DFES/internal/relay"
	"github.com/sreejitheg/DFES/internal/webhook"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	relay *relay.Relay
	hooks *webhook.Dispatcher
	cfg   *config.Config
	log   zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(r *relay.Relay, hooks *webhook.Dispatcher, cfg *config.Config, logger zerolog.Logger) *Handler {
	return &Handler{relay: r, hooks: hooks, cfg: cfg, log: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
