package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"whistle/internal/adapters/realtime"
	"whistle/internal/adapters/storage"
	"whistle/internal/domain/message"
	"whistle/internal/domain/notification"
)

// ThreadStoreForSend defines the messaging store interface needed by SendMessage.
type ThreadStoreForSend interface {
	GetParticipant(ctx context.Context, threadID, profileID string) (message.Participant, error)
	ListParticipants(ctx context.Context, threadID string) ([]message.Participant, error)
	SaveMessage(ctx context.Context, m message.Message) error
	MarkRead(ctx context.Context, threadID, profileID string, at time.Time) error
}

// SendMessageInput carries input for the send-message orchestrator.
type SendMessageInput struct {
	ThreadID string
	SenderID string
	Body     string
	ClientID string // echoed on the realtime event so the sender can reconcile its optimistic copy
}

// MessageEvent is the realtime payload for a new message.
type MessageEvent struct {
	message.Message
	ClientID string `json:"client_id,omitempty"`
}

// SendMessageDeps holds dependencies for SendMessage.
type SendMessageDeps struct {
	ThreadStore ThreadStoreForSend
	Notifier    NotificationSender
	Events      realtime.Publisher
	GenerateID  func() string
	Now         func() time.Time
}

// ExecuteSendMessage posts a user message to a thread.
// PRE: SenderID participates in ThreadID; body is non-empty and at most 4000 characters
// POST: Message stored; published on the thread topic; other participants notified
func ExecuteSendMessage(ctx context.Context, input SendMessageInput, deps SendMessageDeps) (message.Message, error) {
	if _, err := deps.ThreadStore.GetParticipant(ctx, input.ThreadID, input.SenderID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return message.Message{}, message.ErrNotParticipant
		}
		return message.Message{}, fmt.Errorf("get participant: %w", err)
	}

	now := deps.Now()
	m := message.Message{
		ID:        deps.GenerateID(),
		ThreadID:  input.ThreadID,
		SenderID:  input.SenderID,
		Kind:      message.KindUser,
		Body:      strings.TrimSpace(input.Body),
		CreatedAt: now,
	}
	if err := m.Validate(); err != nil {
		return message.Message{}, err
	}
	if err := deps.ThreadStore.SaveMessage(ctx, m); err != nil {
		return message.Message{}, fmt.Errorf("save message: %w", err)
	}
	if err := deps.ThreadStore.MarkRead(ctx, m.ThreadID, m.SenderID, now); err != nil {
		slog.Warn("message_event", "event", "mark_read_failed", "thread_id", m.ThreadID, "error", err)
	}

	publish(ctx, deps.Events, realtime.Event{
		Topic: realtime.ThreadTopic(m.ThreadID),
		Type:  realtime.EventMessageCreated,
		Data:  MessageEvent{Message: m, ClientID: input.ClientID},
		At:    now,
	})

	participants, err := deps.ThreadStore.ListParticipants(ctx, m.ThreadID)
	if err != nil {
		slog.Warn("message_event", "event", "participants_lookup_failed", "thread_id", m.ThreadID, "error", err)
		return m, nil
	}
	for _, p := range participants {
		if p.ProfileID == m.SenderID {
			continue
		}
		notify(ctx, deps.Notifier, NotifyInput{
			UserID: p.ProfileID,
			Type:   notification.TypeNewMessage,
			Title:  "New message",
			Body:   m.Body,
			Link:   "/threads/" + m.ThreadID,
		})
	}

	slog.Info("message_event", "event", "message_sent", "thread_id", m.ThreadID, "sender_id", m.SenderID)
	return m, nil
}
