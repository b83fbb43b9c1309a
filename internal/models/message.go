package models

// Message represents a chat message held in the in-memory history.
type Message struct {
	ID        string `json:"id"`                 // ULID, assigned by the store
	Event     string `json:"event"`              // sender-role tag, e.g. "user_echo", "Control"
	Speaker   string `json:"speaker"`            // display label
	Text      string `json:"text,omitempty"`     // absent for audio-only messages
	AudioURL  string `json:"audioUrl,omitempty"` // reference to an audio asset
	SessionID string `json:"sessionId,omitempty"`
	Timestamp string `json:"ts"` // RFC 3339
}

// IngestRequest is a candidate message as submitted by the automation
// backend. The id is always store-assigned; one supplied here is ignored.
type IngestRequest struct {
	Event     string `json:"event"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text,omitempty"`
	AudioURL  string `json:"audioUrl,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Timestamp string `json:"ts,omitempty"`
}

// Message builds a Message from the request. The id stays unset and the
// timestamp is carried over only if the caller supplied one.
func (r IngestRequest) Message() Message {
	return Message{
		Event:     r.Event,
		Speaker:   r.Speaker,
		Text:      r.Text,
		AudioURL:  r.AudioURL,
		SessionID: r.SessionID,
		Timestamp: r.Timestamp,
	}
}
