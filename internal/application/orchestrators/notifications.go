package orchestrators

import (
	"context"
	"time"
)

// NotificationStoreForRead defines the store interface needed to mark notifications read.
type NotificationStoreForRead interface {
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
}

// MarkNotificationsReadDeps holds dependencies for the mark-read orchestrators.
type MarkNotificationsReadDeps struct {
	NotificationStore NotificationStoreForRead
	Now               func() time.Time
}

// ExecuteMarkNotificationRead marks one of the user's notifications read.
// PRE: id belongs to userID
// POST: ReadAt set if previously unread
func ExecuteMarkNotificationRead(ctx context.Context, userID, id string, deps MarkNotificationsReadDeps) error {
	return deps.NotificationStore.MarkRead(ctx, userID, id, deps.Now())
}

// ExecuteMarkAllNotificationsRead marks every unread notification of the user read.
// POST: Returns the number of notifications changed
func ExecuteMarkAllNotificationsRead(ctx context.Context, userID string, deps MarkNotificationsReadDeps) (int, error) {
	return deps.NotificationStore.MarkAllRead(ctx, userID, deps.Now())
}
