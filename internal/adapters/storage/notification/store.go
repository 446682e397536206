package notification

import (
	"context"
	"time"

	domain "whistle/internal/domain/notification"
)

// Store persists in-app notifications.
type Store interface {
	Save(ctx context.Context, value domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
}

var _ Store = (*SQLiteStore)(nil)
