package realtime

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHub_PublishReachesTopicSubscribersOnly(t *testing.T) {
	hub := NewHub(4)
	ctx := context.Background()

	thread, unsubThread := hub.Subscribe(ThreadTopic("t1"))
	defer unsubThread()
	other, unsubOther := hub.Subscribe(ThreadTopic("t2"))
	defer unsubOther()

	hub.Publish(ctx, Event{Topic: ThreadTopic("t1"), Type: EventMessageCreated, Data: "hello"})

	select {
	case ev := <-thread:
		if ev.Type != EventMessageCreated || ev.Data != "hello" || ev.At.IsZero() {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
	select {
	case ev := <-other:
		t.Errorf("other topic received %+v", ev)
	default:
	}
}

func TestHub_FullSubscriberDropsWithoutBlocking(t *testing.T) {
	hub := NewHub(1)
	ch, unsub := hub.Subscribe("booking:b1")
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			hub.Publish(context.Background(), Event{Topic: "booking:b1", Type: EventBookingConfirmed})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if hub.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", hub.Dropped())
	}
	if len(ch) != 1 {
		t.Errorf("buffered = %d, want 1", len(ch))
	}
}

func TestHub_UnsubscribeClosesAndIsIdempotent(t *testing.T) {
	hub := NewHub(0)
	ch, unsub := hub.Subscribe(NotificationsTopic("u1"))
	if hub.Subscribers(NotificationsTopic("u1")) != 1 {
		t.Fatal("subscriber not registered")
	}
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	if hub.Subscribers(NotificationsTopic("u1")) != 0 {
		t.Error("subscriber still registered")
	}
	hub.Publish(context.Background(), Event{Topic: NotificationsTopic("u1")})
}

func TestSplitTopic(t *testing.T) {
	tests := []struct {
		topic    string
		kind     string
		key      string
		expectOK bool
	}{
		{"thread:abc", "thread", "abc", true},
		{"notifications:u1", "notifications", "u1", true},
		{"thread:", "", "", false},
		{"nocolon", "", "", false},
	}
	for _, tt := range tests {
		kind, key, ok := SplitTopic(tt.topic)
		if kind != tt.kind || key != tt.key || ok != tt.expectOK {
			t.Errorf("SplitTopic(%q) = %q, %q, %v", tt.topic, kind, key, ok)
		}
	}
}

type recordingBroker struct {
	keys []string
	err  error
}

func (b *recordingBroker) PublishJSON(_ context.Context, key string, _ any) error {
	b.keys = append(b.keys, key)
	return b.err
}

func TestFanout_ForwardsToBrokerAndSwallowsErrors(t *testing.T) {
	hub := NewHub(4)
	broker := &recordingBroker{err: errors.New("connection reset")}
	fan := NewFanout(hub, broker)

	ch, unsub := fan.Hub().Subscribe(BookingTopic("b1"))
	defer unsub()
	fan.Publish(context.Background(), Event{Topic: BookingTopic("b1"), Type: EventBookingCancelled})

	if len(broker.keys) != 1 || broker.keys[0] != EventBookingCancelled {
		t.Errorf("broker keys = %v", broker.keys)
	}
	if len(ch) != 1 {
		t.Error("local subscriber missed the event")
	}

	NewFanout(hub, nil).Publish(context.Background(), Event{Topic: "x:y"})
}
