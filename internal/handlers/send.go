package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sreejitheg/DFES/internal/webhook"
)

// SendTextRequest represents the outbound text request.
type SendTextRequest struct {
	Text     string `json:"text"`
	ClientID string `json:"clientId"`
}

// SendTextResponse represents the outbound text response.
type SendTextResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	WebhookStatus int    `json:"webhookStatus"`
}

// SendVoiceResponse represents the outbound voice response.
type SendVoiceResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	WebhookStatus int    `json:"webhookStatus"`
	AudioSize     int    `json:"audioSize"`
}

// SendText forwards user text to the outbound text webhook.
func (h *Handler) SendText(w http.ResponseWriter, r *http.Request) {
	var req SendTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	status, err := h.hooks.SendText(r.Context(), req.Text, req.ClientID)
	if err != nil {
		h.webhookError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, SendTextResponse{
		Success:       true,
		Message:       "Text sent to webhook",
		WebhookStatus: status,
	})
}

// SendVoice forwards a recorded audio payload to the outbound voice
// webhook. Expects multipart form data with an "audio" file part plus
// optional clientId and mimeType fields.
func (h *Handler) SendVoice(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		// A chunked upload carries no Content-Length, so the body cap
		// only trips while the form is being read.
		if isMaxBytes(err) {
			h.Error(w, http.StatusRequestEntityTooLarge, "audio payload exceeds size limit")
			return
		}
		h.Error(w, http.StatusBadRequest, "no audio file provided")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		if isMaxBytes(err) {
			h.Error(w, http.StatusRequestEntityTooLarge, "audio payload exceeds size limit")
			return
		}
		h.Error(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	mimeType := r.FormValue("mimeType")
	if mimeType == "" {
		mimeType = header.Header.Get("Content-Type")
	}

	status, err := h.hooks.SendVoice(r.Context(), audio, mimeType, r.FormValue("clientId"))
	if err != nil {
		h.webhookError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, SendVoiceResponse{
		Success:       true,
		Message:       "Voice sent to webhook",
		WebhookStatus: status,
		AudioSize:     len(audio),
	})
}

func isMaxBytes(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// webhookError maps dispatcher failures to HTTP status codes.
func (h *Handler) webhookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, webhook.ErrEmptyText):
		h.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, webhook.ErrPayloadTooLarge):
		h.Error(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, webhook.ErrNotConfigured), errors.Is(err, webhook.ErrInvalidEndpoint):
		h.Error(w, http.StatusInternalServerError, err.Error())
	default:
		// Unreachable endpoint or non-success upstream status.
		h.Error(w, http.StatusBadGateway, err.Error())
	}
}
