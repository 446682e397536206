package push

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"whistle/internal/adapters/storage"
	domain "whistle/internal/domain/push"
)

const subscriptionColumns = "id, profile_id, endpoint, p256dh, auth, user_agent, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new push subscription store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save upserts a subscription keyed by endpoint. A browser re-subscribing
// moves the endpoint to the current profile and refreshes its keys.
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, sub domain.Subscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscription (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
		   profile_id=excluded.profile_id, p256dh=excluded.p256dh, auth=excluded.auth,
		   user_agent=excluded.user_agent`,
		sub.ID, sub.ProfileID, sub.Endpoint, sub.P256dh, sub.Auth, sub.UserAgent, storage.FormatTime(sub.CreatedAt))
	return err
}

// Get retrieves a subscription by ID.
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Subscription, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM push_subscription WHERE id = ?", id)
	sub, err := scanSubscription(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Subscription{}, fmt.Errorf("push subscription %s: %w", id, storage.ErrNotFound)
	}
	return sub, err
}

// ListByProfile returns every subscription registered by profileID.
func (s *SQLiteStore) ListByProfile(ctx context.Context, profileID string) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+subscriptionColumns+" FROM push_subscription WHERE profile_id = ? ORDER BY created_at", profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, sub)
	}
	return results, rows.Err()
}

// Delete removes a subscription by ID. Missing rows are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM push_subscription WHERE id = ?", id)
	return err
}

// DeleteByEndpoint removes the profile's subscription for endpoint.
func (s *SQLiteStore) DeleteByEndpoint(ctx context.Context, profileID, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM push_subscription WHERE profile_id = ? AND endpoint = ?", profileID, endpoint)
	return err
}

// scanSubscription extracts a Subscription from a row scanner function.
func scanSubscription(scan func(dest ...any) error) (domain.Subscription, error) {
	var sub domain.Subscription
	var createdAt string
	if err := scan(&sub.ID, &sub.ProfileID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.UserAgent, &createdAt); err != nil {
		return domain.Subscription{}, err
	}
	sub.CreatedAt = storage.ParseTime(createdAt)
	return sub, nil
}
