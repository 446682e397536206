package realtime

import (
	"context"
	"log/slog"
)

// BrokerPublisher publishes JSON documents under a routing key.
type BrokerPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Fanout publishes to the local hub and, when configured, to an external broker.
// Broker failures are logged and swallowed.
type Fanout struct {
	hub    *Hub
	broker BrokerPublisher
}

var _ Publisher = (*Fanout)(nil)

// NewFanout wraps hub. broker may be nil.
func NewFanout(hub *Hub, broker BrokerPublisher) *Fanout {
	return &Fanout{hub: hub, broker: broker}
}

// Publish delivers ev locally, then forwards it to the broker using ev.Type as routing key.
func (f *Fanout) Publish(ctx context.Context, ev Event) {
	f.hub.Publish(ctx, ev)
	if f.broker == nil {
		return
	}
	if err := f.broker.PublishJSON(ctx, ev.Type, ev); err != nil {
		slog.Warn("realtime_event", "event", "broker_publish_failed", "type", ev.Type, "topic", ev.Topic, "error", err)
	}
}

// Hub returns the local hub for subscribers.
func (f *Fanout) Hub() *Hub {
	return f.hub
}
