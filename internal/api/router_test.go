package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sreejitheg/DFES/internal/config"
	"github.com/sreejitheg/DFES/internal/models"
	"github.com/sreejitheg/DFES/internal/relay"
	"github.com/sreejitheg/DFES/internal/webhook"
)

func newTestServer(t *testing.T, textURL, voiceURL string) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Port:            "0",
		Env:             "test",
		AssistantEvent:  "Control",
		TextWebhookURL:  textURL,
		VoiceWebhookURL: voiceURL,
		HistorySize:     100,
		WebhookTimeout:  5 * time.Second,
		MaxAudioBytes:   config.DefaultMaxAudioBytes,
	}

	logger := zerolog.Nop()
	rly := relay.New(cfg.HistorySize, logger)
	hooks := webhook.NewDispatcher(cfg.TextWebhookURL, cfg.VoiceWebhookURL, cfg.MaxAudioBytes, cfg.WebhookTimeout, logger)

	srv := httptest.NewServer(NewRouter(logger, cfg, rly, hooks))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestIncomingStoresAndReturnsID(t *testing.T) {
	srv := newTestServer(t, "", "")

	resp := postJSON(t, srv.URL+"/api/incoming", models.IngestRequest{
		Event: "user", Speaker: "Alice", Text: "hi",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	if id, _ := body["messageId"].(string); id == "" {
		t.Fatal("expected a generated messageId")
	}
}

func TestIncomingValidation(t *testing.T) {
	srv := newTestServer(t, "", "")

	cases := []struct {
		name    string
		payload interface{}
	}{
		{"missing event", models.IngestRequest{Speaker: "Alice", Text: "hi"}},
		{"missing speaker", models.IngestRequest{Event: "user", Text: "hi"}},
		{"neither text nor audioUrl", models.IngestRequest{Event: "user", Speaker: "Alice"}},
		{"bad timestamp", models.IngestRequest{Event: "user", Speaker: "a", Text: "hi", Timestamp: "yesterday"}},
	}
	for _, tc := range cases {
		resp := postJSON(t, srv.URL+"/api/incoming", tc.payload)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, resp.StatusCode)
		}
	}

	// Malformed JSON
	resp, err := http.Post(srv.URL+"/api/incoming", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed JSON: expected 400, got %d", resp.StatusCode)
	}
}

func TestClientConfig(t *testing.T) {
	srv := newTestServer(t, "", "")

	resp, err := http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatal(err)
	}
	body := decodeBody(t, resp)
	if body["assistantEvent"] != "Control" {
		t.Fatalf("expected assistantEvent Control, got %v", body)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "http://example.com/hook", "")

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "healthy" {
		t.Fatalf("expected healthy, got %v", body)
	}
	if body["textWebhookConfigured"] != true || body["voiceWebhookConfigured"] != false {
		t.Fatalf("unexpected webhook flags: %v", body)
	}
}

// readEvent reads one SSE data line, skipping separators and comments.
func readEvent(t *testing.T, reader *bufio.Reader) models.Message {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		line = strings.TrimRight(line, "\n")
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg models.Message
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Fatal(err)
		}
		return msg
	}
}

func TestStreamReplayThenLive(t *testing.T) {
	srv := newTestServer(t, "", "")

	// Seed history before connecting.
	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv.URL+"/api/incoming", models.IngestRequest{
			Event: "user", Speaker: "Alice", Text: fmt.Sprintf("seed-%d", i),
		})
		resp.Body.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)

	// Replay burst, in insertion order.
	for i := 0; i < 3; i++ {
		msg := readEvent(t, reader)
		want := fmt.Sprintf("seed-%d", i)
		if msg.Text != want {
			t.Fatalf("replay %d: expected %q, got %q", i, want, msg.Text)
		}
		if msg.ID == "" {
			t.Fatal("replayed message missing id")
		}
	}

	// A message published after connect arrives live.
	post := postJSON(t, srv.URL+"/api/incoming", models.IngestRequest{
		Event: "Control", Speaker: "Assistant", Text: "live-msg",
	})
	post.Body.Close()

	msg := readEvent(t, reader)
	if msg.Text != "live-msg" || msg.Event != "Control" {
		t.Fatalf("expected live message, got %+v", msg)
	}
}

func TestStreamDisconnectUnregisters(t *testing.T) {
	cfg := &config.Config{
		Env: "test", AssistantEvent: "Control",
		HistorySize: 10, WebhookTimeout: time.Second,
		MaxAudioBytes: config.DefaultMaxAudioBytes,
	}
	logger := zerolog.Nop()
	rly := relay.New(cfg.HistorySize, logger)
	hooks := webhook.NewDispatcher("", "", cfg.MaxAudioBytes, cfg.WebhookTimeout, logger)
	srv := httptest.NewServer(NewRouter(logger, cfg, rly, hooks))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}

	// Wait for the subscription to register.
	deadline := time.Now().Add(2 * time.Second)
	for rly.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	resp.Body.Close()

	// Disconnect must promptly unregister the sink.
	deadline = time.Now().Add(2 * time.Second)
	for rly.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not unregistered, count = %d", rly.SubscriberCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSendTextForwarded(t *testing.T) {
	var got map[string]string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	srv := newTestServer(t, hook.URL, "")

	resp := postJSON(t, srv.URL+"/api/send-text", map[string]string{"text": "hello", "clientId": "client-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != true || body["webhookStatus"] != float64(http.StatusOK) {
		t.Fatalf("unexpected response %v", body)
	}
	if got["text"] != "hello" || got["clientId"] != "client-1" {
		t.Fatalf("webhook received %v", got)
	}
}

func TestSendTextValidationAndFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	// Empty text: 400, no call
	srv := newTestServer(t, failing.URL, "")
	resp := postJSON(t, srv.URL+"/api/send-text", map[string]string{"text": "", "clientId": "c"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty text: expected 400, got %d", resp.StatusCode)
	}

	// Upstream failure: 502
	resp = postJSON(t, srv.URL+"/api/send-text", map[string]string{"text": "hi", "clientId": "c"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("upstream failure: expected 502, got %d", resp.StatusCode)
	}

	// Unconfigured endpoint: 500
	unconfigured := newTestServer(t, "", "")
	resp = postJSON(t, unconfigured.URL+"/api/send-text", map[string]string{"text": "hi", "clientId": "c"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unconfigured: expected 500, got %d", resp.StatusCode)
	}
}

func TestSendVoiceForwarded(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Error(err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	srv := newTestServer(t, "", hook.URL)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "recording.wav")
	if err != nil {
		t.Fatal(err)
	}
	audio := bytes.Repeat([]byte{0x01}, 128)
	if _, err := part.Write(audio); err != nil {
		t.Fatal(err)
	}
	_ = mw.WriteField("clientId", "client-3")
	_ = mw.WriteField("mimeType", "audio/webm")
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(srv.URL+"/api/send-voice", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["audioSize"] != float64(128) {
		t.Fatalf("expected audioSize 128 echoed back, got %v", body["audioSize"])
	}
}

func TestSendVoiceOversizedChunkedRejected(t *testing.T) {
	var calls atomic.Int64
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer hook.Close()

	cfg := &config.Config{
		Env: "test", AssistantEvent: "Control",
		HistorySize: 10, WebhookTimeout: time.Second,
		MaxAudioBytes: 1024,
	}
	logger := zerolog.Nop()
	rly := relay.New(cfg.HistorySize, logger)
	hooks := webhook.NewDispatcher("", hook.URL, cfg.MaxAudioBytes, cfg.WebhookTimeout, logger)
	srv := httptest.NewServer(NewRouter(logger, cfg, rly, hooks))
	defer srv.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "recording.wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(bytes.Repeat([]byte{0x02}, 256*1024)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	// io.MultiReader hides the length, so the request goes out chunked
	// and the Content-Length check cannot catch it.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/send-voice", io.MultiReader(&buf))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
	if calls.Load() != 0 {
		t.Fatal("expected no webhook call for oversized payload")
	}
}

func TestSendVoiceMissingFile(t *testing.T) {
	srv := newTestServer(t, "", "http://example.com/hook")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("clientId", "c")
	_ = mw.Close()

	resp, err := http.Post(srv.URL+"/api/send-voice", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
