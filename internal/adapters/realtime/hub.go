// Package realtime fans lifecycle events out to in-process subscribers keyed by topic.
package realtime

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event types published on topics.
const (
	EventBookingCreated   = "booking.created"
	EventBookingOffered   = "booking.offered"
	EventOfferAccepted    = "offer.accepted"
	EventOfferDeclined    = "offer.declined"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventMessageCreated   = "message.created"
	EventNotification     = "notification.created"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Event is a single change published on a topic.
type Event struct {
	Topic string    `json:"topic"`
	Type  string    `json:"type"`
	Data  any       `json:"data,omitempty"`
	At    time.Time `json:"at"`
}

// Publisher accepts events for delivery. Publish never blocks on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// NotificationsTopic is the per-user notification feed.
func NotificationsTopic(userID string) string { return "notifications:" + userID }

// ThreadTopic carries messages posted in a thread.
func ThreadTopic(threadID string) string { return "thread:" + threadID }

// BookingTopic carries status changes of a booking.
func BookingTopic(bookingID string) string { return "booking:" + bookingID }

// SplitTopic returns the kind and key of a topic such as "thread:abc".
func SplitTopic(topic string) (kind, key string, ok bool) {
	kind, key, ok = strings.Cut(topic, ":")
	if !ok || kind == "" || key == "" {
		return "", "", false
	}
	return kind, key, true
}

type subscriber struct {
	ch chan Event
}

// Hub is an in-memory topic broker. The zero value is not usable; call NewHub.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*subscriber]struct{}
	buffer  int
	dropped atomic.Int64
}

var _ Publisher = (*Hub)(nil)

// NewHub creates a hub whose subscribers buffer up to buffer events. buffer <= 0 uses DefaultBuffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{topics: make(map[string]map[*subscriber]struct{}), buffer: buffer}
}

// Subscribe registers a subscriber on topic. The returned func unsubscribes and
// closes the channel; calling it more than once is safe.
// POST: The channel receives every event published on topic until unsubscribed, minus drops
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*subscriber]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.topics[topic], sub)
			if len(h.topics[topic]) == 0 {
				delete(h.topics, topic)
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish delivers ev to every subscriber of ev.Topic. Subscribers whose buffer is
// full miss the event.
// INVARIANT: Publish never blocks
func (h *Hub) Publish(_ context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[ev.Topic] {
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Dropped returns the number of events discarded because a subscriber was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
