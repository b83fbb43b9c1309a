package handlers

import "net/http"

// ClientConfigResponse represents the client configuration response.
type ClientConfigResponse struct {
	AssistantEvent string `json:"assistantEvent"`
}

// ClientConfig returns the configuration the presentation layer needs to
// render messages, currently just the assistant event tag. The value is
// immutable for the process lifetime.
func (h *Handler) ClientConfig(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, ClientConfigResponse{
		AssistantEvent: h.cfg.AssistantEvent,
	})
}
