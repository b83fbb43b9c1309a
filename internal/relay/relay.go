// Package relay implements the in-process message core: a bounded ring
// buffer of recent history plus fan-out to live streaming subscribers.
//
// One mutex guards both the ring and the subscriber set. Subscribe takes
// its history snapshot and registers the subscriber's channel under that
// mutex, and Publish appends and enqueues under the same mutex, so the
// snapshot boundary and the first live message are adjacent: a new
// subscriber sees every message exactly once across the replay/live
// transition. Subscriber delivery is a buffered channel send, never
// blocking I/O, so a slow or dead sink cannot stall a broadcast.
package relay

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sreejitheg/DFES/internal/metrics"
	"github.com/sreejitheg/DFES/internal/models"
)

// DefaultHistorySize is the ring capacity used when none is configured.
const DefaultHistorySize = 100

// subscriber channels get headroom beyond the replay size so a briefly
// stalled consumer is not dropped immediately.
const channelSlack = 16

// Relay owns the message history and the live subscriber set.
type Relay struct {
	log zerolog.Logger

	mu   sync.Mutex
	ring *ring
	subs map[string]*Subscription
}

// Subscription is a live subscriber handle. History holds the replay
// snapshot taken at registration; C carries every message published after
// that snapshot, in publish order, until the subscription is closed or
// dropped. C is closed when the subscriber falls too far behind or Close
// is called.
type Subscription struct {
	ID      string
	History []models.Message
	C       <-chan models.Message

	r  *Relay
	ch chan models.Message
}

// New creates a Relay with the given history capacity.
func New(historySize int, logger zerolog.Logger) *Relay {
	return &Relay{
		log:  logger,
		ring: newRing(historySize),
		subs: make(map[string]*Subscription),
	}
}

// Publish finalizes the candidate message, appends it to the history and
// enqueues it to every live subscriber. A subscriber whose buffer is full
// has stopped draining and is dropped; delivery to the rest continues.
// Returns the finalized message.
func (r *Relay) Publish(candidate models.Message) models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := r.ring.append(candidate)

	for id, sub := range r.subs {
		select {
		case sub.ch <- msg:
		default:
			delete(r.subs, id)
			close(sub.ch)
			metrics.SubscribersDropped.WithLabelValues("slow").Inc()
			metrics.Subscribers.Dec()
			r.log.Warn().Str("subscriber", id).Msg("dropping slow subscriber")
		}
	}

	metrics.MessagesPublished.Inc()
	return msg
}

// Subscribe registers a new live subscriber. The history snapshot and the
// registration happen atomically, so the caller must deliver History
// first and then drain C to see an exactly-once, in-order stream.
func (r *Relay) Subscribe() *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan models.Message, r.ring.capacity()+channelSlack)
	sub := &Subscription{
		ID:      uuid.NewString(),
		History: r.ring.recent(r.ring.capacity()),
		C:       ch,
		r:       r,
		ch:      ch,
	}
	r.subs[sub.ID] = sub

	metrics.Subscribers.Inc()
	r.log.Debug().Str("subscriber", sub.ID).Int("replay", len(sub.History)).Msg("subscriber registered")
	return sub
}

// Close unregisters the subscription and closes its channel. Idempotent;
// closing an already-dropped subscription is a no-op.
func (s *Subscription) Close() {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()

	if _, ok := s.r.subs[s.ID]; !ok {
		return
	}
	delete(s.r.subs, s.ID)
	close(s.ch)
	metrics.SubscribersDropped.WithLabelValues("disconnect").Inc()
	metrics.Subscribers.Dec()
	s.r.log.Debug().Str("subscriber", s.ID).Msg("subscriber closed")
}

// Recent returns up to limit of the most recently published messages in
// publish order.
func (r *Relay) Recent(limit int) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ring.recent(limit)
}

// SubscriberCount reports the current number of live subscribers.
func (r *Relay) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
