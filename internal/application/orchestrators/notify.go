package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	pushAdapter "whistle/internal/adapters/push"
	"whistle/internal/adapters/realtime"
	"whistle/internal/domain/notification"
	"whistle/internal/domain/outbox"
	"whistle/internal/domain/profile"
	"whistle/internal/domain/push"
)

// NotifyInput describes one in-app notification for one user.
type NotifyInput struct {
	UserID string
	Type   string
	Title  string
	Body   string
	Link   string
}

// NotificationSender delivers lifecycle notifications. Implementations never fail the caller.
type NotificationSender interface {
	Notify(ctx context.Context, input NotifyInput)
}

// NotificationStoreForNotify defines the store interface needed by Notifier.
type NotificationStoreForNotify interface {
	Save(ctx context.Context, n notification.Notification) error
}

// PushStoreForNotify defines the subscription store interface needed by Notifier.
type PushStoreForNotify interface {
	ListByProfile(ctx context.Context, profileID string) ([]push.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// ProfileStoreForNotify resolves the email address for email delivery.
type ProfileStoreForNotify interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
}

// OutboxStoreForNotify defines the outbox interface needed by Notifier.
type OutboxStoreForNotify interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// NotifierDeps holds dependencies for Notifier.
type NotifierDeps struct {
	NotificationStore NotificationStoreForNotify
	PushStore         PushStoreForNotify
	ProfileStore      ProfileStoreForNotify
	OutboxStore       OutboxStoreForNotify
	Push              pushAdapter.Sender
	Events            realtime.Publisher
	EmailEnabled      bool
	GenerateID        func() string
	Now               func() time.Time
}

// Notifier fans a notification out to the in-app inbox, the realtime hub,
// web push and (when enabled) queued email.
type Notifier struct {
	deps NotifierDeps
}

var _ NotificationSender = (*Notifier)(nil)

// NewNotifier creates a Notifier.
func NewNotifier(deps NotifierDeps) *Notifier {
	return &Notifier{deps: deps}
}

// Notify records and delivers a notification.
// PRE: input.UserID identifies a profile
// POST: Notification row saved; push and email attempted; failures logged only
func (n *Notifier) Notify(ctx context.Context, input NotifyInput) {
	now := n.deps.Now()
	note := notification.Notification{
		ID:        n.deps.GenerateID(),
		UserID:    input.UserID,
		Type:      input.Type,
		Title:     input.Title,
		Body:      input.Body,
		Link:      input.Link,
		CreatedAt: now,
	}
	if err := note.Validate(); err != nil {
		slog.Error("notification_event", "event", "invalid", "user_id", input.UserID, "type", input.Type, "error", err)
		return
	}
	if err := n.deps.NotificationStore.Save(ctx, note); err != nil {
		slog.Error("notification_event", "event", "save_failed", "user_id", input.UserID, "type", input.Type, "error", err)
		return
	}

	publish(ctx, n.deps.Events, realtime.Event{
		Topic: realtime.NotificationsTopic(input.UserID),
		Type:  realtime.EventNotification,
		Data:  note,
		At:    now,
	})

	n.sendPush(ctx, note)
	n.queueEmail(ctx, note)
}

func (n *Notifier) sendPush(ctx context.Context, note notification.Notification) {
	if n.deps.Push == nil || n.deps.PushStore == nil {
		return
	}
	subs, err := n.deps.PushStore.ListByProfile(ctx, note.UserID)
	if err != nil {
		slog.Error("push_event", "event", "list_failed", "user_id", note.UserID, "error", err)
		return
	}
	payload := push.Payload{Title: note.Title, Body: note.Body, URL: note.Link, Tag: note.Type}
	for _, sub := range subs {
		err := n.deps.Push.Send(ctx, sub, payload)
		switch {
		case err == nil:
		case errors.Is(err, pushAdapter.ErrSubscriptionGone):
			slog.Info("push_event", "event", "subscription_gone", "subscription_id", sub.ID, "user_id", note.UserID)
			if err := n.deps.PushStore.Delete(ctx, sub.ID); err != nil {
				slog.Error("push_event", "event", "delete_failed", "subscription_id", sub.ID, "error", err)
			}
		default:
			slog.Warn("push_event", "event", "send_failed", "subscription_id", sub.ID, "error", err)
			n.enqueue(ctx, outbox.ActionTypePush, outbox.PushPayload{
				SubscriptionID: sub.ID,
				Title:          note.Title,
				Body:           note.Body,
				URL:            note.Link,
			})
		}
	}
}

func (n *Notifier) queueEmail(ctx context.Context, note notification.Notification) {
	if !n.deps.EmailEnabled || n.deps.ProfileStore == nil {
		return
	}
	p, err := n.deps.ProfileStore.GetByID(ctx, note.UserID)
	if err != nil {
		slog.Error("email_event", "event", "recipient_lookup_failed", "user_id", note.UserID, "error", err)
		return
	}
	n.enqueue(ctx, outbox.ActionTypeEmail, outbox.EmailPayload{
		To:      p.Email,
		Subject: note.Title,
		Body:    note.Body,
		Link:    note.Link,
	})
}

func (n *Notifier) enqueue(ctx context.Context, actionType string, payload any) {
	if n.deps.OutboxStore == nil {
		return
	}
	entry, err := outbox.NewEntry(n.deps.GenerateID(), actionType, payload, n.deps.Now())
	if err != nil {
		slog.Error("outbox_event", "event", "build_failed", "action_type", actionType, "error", err)
		return
	}
	if err := n.deps.OutboxStore.Save(ctx, entry); err != nil {
		slog.Error("outbox_event", "event", "save_failed", "action_type", actionType, "error", err)
	}
}

// publish sends ev when pub is configured.
func publish(ctx context.Context, pub realtime.Publisher, ev realtime.Event) {
	if pub != nil {
		pub.Publish(ctx, ev)
	}
}

// notify delivers input when ns is configured.
func notify(ctx context.Context, ns NotificationSender, input NotifyInput) {
	if ns != nil {
		ns.Notify(ctx, input)
	}
}

// localToday returns today's date in loc as YYYY-MM-DD.
func localToday(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}
