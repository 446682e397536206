package projections

import (
	"context"

	domainNotification "whistle/internal/domain/notification"
)

// Notification list sizes.
const (
	DefaultNotificationLimit = 30
	MaxNotificationLimit     = 100
)

// ListNotificationsResult carries the newest notifications and the unread total.
type ListNotificationsResult struct {
	Notifications []domainNotification.Notification `json:"notifications"`
	UnreadCount   int                               `json:"unread_count"`
}

// ListNotificationsDeps holds dependencies for the notification queries.
type ListNotificationsDeps struct {
	NotificationStore NotificationStore
}

// QueryListNotifications returns the user's notifications newest first.
// POST: UnreadCount counts every unread notification, not only those returned
func QueryListNotifications(ctx context.Context, userID string, limit int, deps ListNotificationsDeps) (ListNotificationsResult, error) {
	notes, err := deps.NotificationStore.ListByUser(ctx, userID, clampLimit(limit, DefaultNotificationLimit, MaxNotificationLimit))
	if err != nil {
		return ListNotificationsResult{}, err
	}
	unread, err := deps.NotificationStore.CountUnread(ctx, userID)
	if err != nil {
		return ListNotificationsResult{}, err
	}
	if notes == nil {
		notes = []domainNotification.Notification{}
	}
	return ListNotificationsResult{Notifications: notes, UnreadCount: unread}, nil
}

// QueryUnreadCount returns the number of unread notifications.
func QueryUnreadCount(ctx context.Context, userID string, deps ListNotificationsDeps) (int, error) {
	return deps.NotificationStore.CountUnread(ctx, userID)
}
