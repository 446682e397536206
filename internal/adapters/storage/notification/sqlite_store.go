package notification

import (
	"context"
	"fmt"
	"time"

	"whistle/internal/adapters/storage"
	domain "whistle/internal/domain/notification"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new notification store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts a notification.
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, n domain.Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification (id, user_id, type, title, body, link, read_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.Link, storage.FormatTime(n.ReadAt), storage.FormatTime(n.CreatedAt))
	return err
}

// ListByUser returns the user's notifications newest first.
// PRE: limit > 0
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, type, title, body, link, read_at, created_at FROM notification
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var readAt, createdAt string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Link, &readAt, &createdAt); err != nil {
			return nil, err
		}
		n.ReadAt = storage.ParseTime(readAt)
		n.CreatedAt = storage.ParseTime(createdAt)
		results = append(results, n)
	}
	return results, rows.Err()
}

// CountUnread counts the user's unread notifications.
func (s *SQLiteStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notification WHERE user_id = ? AND read_at = ''", userID).Scan(&count)
	return count, err
}

// MarkRead marks one of the user's notifications read. Already-read rows keep their first read time.
// POST: Returns an error wrapping storage.ErrNotFound if the notification does not belong to userID
func (s *SQLiteStore) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notification SET read_at = CASE WHEN read_at = '' THEN ? ELSE read_at END
		 WHERE id = ? AND user_id = ?`, storage.FormatTime(at), id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read.
// POST: Returns the number of rows changed
func (s *SQLiteStore) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notification SET read_at = ? WHERE user_id = ? AND read_at = ''", storage.FormatTime(at), userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
