package relay

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sreejitheg/DFES/internal/models"
)

// ring is a fixed-capacity circular buffer of messages. Insertion beyond
// capacity evicts the oldest entry in O(1). Not safe for concurrent use on
// its own; the Relay mutex is the single serialization point for both
// appends and snapshots.
type ring struct {
	buf  []models.Message
	head int // index of the oldest entry
	size int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &ring{buf: make([]models.Message, capacity)}
}

func (r *ring) capacity() int {
	return len(r.buf)
}

// append finalizes the candidate (assigns a ULID, fills in a missing
// timestamp) and inserts it at the tail, evicting the oldest entry when
// the buffer is full.
func (r *ring) append(candidate models.Message) models.Message {
	candidate.ID = ulid.Make().String()
	if candidate.Timestamp == "" {
		candidate.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	tail := (r.head + r.size) % len(r.buf)
	r.buf[tail] = candidate
	if r.size < len(r.buf) {
		r.size++
	} else {
		r.head = (r.head + 1) % len(r.buf)
	}
	return candidate
}

// recent returns up to limit of the most recently appended messages in
// insertion order, oldest of the window first. The result is a copy.
func (r *ring) recent(limit int) []models.Message {
	if limit <= 0 || r.size == 0 {
		return []models.Message{}
	}
	if limit > r.size {
		limit = r.size
	}

	out := make([]models.Message, limit)
	start := r.head + r.size - limit
	for i := 0; i < limit; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}
