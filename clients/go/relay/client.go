// Package relay provides a client for the DFES chat relay API.
package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is a chat message as delivered by the relay.
type Message struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text,omitempty"`
	AudioURL  string `json:"audioUrl,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Timestamp string `json:"ts"`
}

// Config holds the relay's client-facing configuration.
type Config struct {
	AssistantEvent string `json:"assistantEvent"`
}

// Client is a DFES relay API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new relay client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Config fetches the relay's client configuration.
func (c *Client) Config(ctx context.Context) (*Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/config", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config request failed: status %d", resp.StatusCode)
	}

	var cfg Config
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SendText forwards free text to the relay's outbound text webhook.
func (c *Client) SendText(ctx context.Context, text, clientID string) error {
	body, err := json.Marshal(map[string]string{"text": text, "clientId": clientID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/send-text", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send-text failed: status %d", resp.StatusCode)
	}
	return nil
}

// Stream subscribes to the relay's event stream. It returns a channel that
// first carries the history replay and then every newly published message.
// The channel is closed when the context is canceled or the connection
// drops. The caller should drain promptly; the relay disconnects
// subscribers that fall behind.
func (c *Client) Stream(ctx context.Context) (<-chan Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The streaming request must not be bounded by the client timeout.
	httpClient := &http.Client{Transport: c.HTTPClient.Transport}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream request failed: status %d", resp.StatusCode)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		readEvents(ctx, resp.Body, out)
	}()
	return out, nil
}

// readEvents parses SSE data lines into messages until the stream ends.
func readEvents(ctx context.Context, body io.Reader, out chan<- Message) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue // keepalive comments and blank separators
		}

		var msg Message
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			continue
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}
