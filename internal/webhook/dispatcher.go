// Package webhook forwards outbound text and voice payloads to the
// configured automation endpoints. Stateless: one synchronous attempt per
// call, no retry, no queueing.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sreejitheg/DFES/internal/metrics"
)

// Validation and capacity errors, reported before any network call.
var (
	ErrEmptyText       = errors.New("webhook: text is empty")
	ErrNotConfigured   = errors.New("webhook: endpoint not configured")
	ErrInvalidEndpoint = errors.New("webhook: endpoint is not a valid URL")
	ErrPayloadTooLarge = errors.New("webhook: audio payload exceeds size limit")
)

// StatusError reports a non-success response from the upstream endpoint.
type StatusError struct {
	Kind       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook: %s endpoint returned status %d", e.Kind, e.StatusCode)
}

// Dispatcher sends payloads to the outbound text and voice endpoints.
type Dispatcher struct {
	textURL       string
	voiceURL      string
	maxAudioBytes int64
	client        *http.Client
	log           zerolog.Logger
}

// NewDispatcher creates a Dispatcher. timeout bounds every outbound call so
// a hung endpoint cannot hang the inbound request indefinitely.
func NewDispatcher(textURL, voiceURL string, maxAudioBytes int64, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		textURL:       textURL,
		voiceURL:      voiceURL,
		maxAudioBytes: maxAudioBytes,
		client:        &http.Client{Timeout: timeout},
		log:           logger,
	}
}

// TextConfigured reports whether an outbound text endpoint is set.
func (d *Dispatcher) TextConfigured() bool { return d.textURL != "" }

// VoiceConfigured reports whether an outbound voice endpoint is set.
func (d *Dispatcher) VoiceConfigured() bool { return d.voiceURL != "" }

// SendText forwards free text to the text endpoint as a JSON body
// {text, clientId, timestamp}. Returns the upstream status code on
// success; validation failures are reported before any network call.
func (d *Dispatcher) SendText(ctx context.Context, text, clientID string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyText
	}
	if err := checkEndpoint(d.textURL); err != nil {
		return 0, err
	}

	body, err := json.Marshal(map[string]string{
		"text":      text,
		"clientId":  clientID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.textURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	return d.deliver(req, "text")
}

// SendVoice forwards raw audio bytes to the voice endpoint as a multipart
// payload with clientId, timestamp and audioSize metadata fields.
// Oversized payloads are rejected before any network call.
func (d *Dispatcher) SendVoice(ctx context.Context, audio []byte, mimeType, clientID string) (int, error) {
	if int64(len(audio)) > d.maxAudioBytes {
		return 0, ErrPayloadTooLarge
	}
	if err := checkEndpoint(d.voiceURL); err != nil {
		return 0, err
	}

	if mimeType == "" {
		mimeType = "audio/wav"
	}
	if clientID == "" {
		clientID = "local-user"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="audio"; filename="recording.wav"`)
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return 0, err
	}
	if _, err := part.Write(audio); err != nil {
		return 0, err
	}

	_ = mw.WriteField("clientId", clientID)
	_ = mw.WriteField("timestamp", time.Now().UTC().Format(time.RFC3339))
	_ = mw.WriteField("audioSize", strconv.Itoa(len(audio)))
	if err := mw.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.voiceURL, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return d.deliver(req, "voice")
}

// deliver performs the single delivery attempt and maps the outcome.
func (d *Dispatcher) deliver(req *http.Request, kind string) (int, error) {
	start := time.Now()
	resp, err := d.client.Do(req)
	metrics.WebhookLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues(kind, "error").Inc()
		d.log.Error().Err(err).Str("kind", kind).Msg("webhook delivery failed")
		return 0, fmt.Errorf("webhook: %s delivery failed: %w", kind, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.WebhookDeliveries.WithLabelValues(kind, "error").Inc()
		d.log.Error().Int("status", resp.StatusCode).Str("kind", kind).Msg("webhook returned non-success status")
		return resp.StatusCode, &StatusError{Kind: kind, StatusCode: resp.StatusCode}
	}

	metrics.WebhookDeliveries.WithLabelValues(kind, "ok").Inc()
	return resp.StatusCode, nil
}

func checkEndpoint(url string) error {
	if url == "" {
		return ErrNotConfigured
	}
	if !strings.HasPrefix(url, "http") {
		return ErrInvalidEndpoint
	}
	return nil
}
