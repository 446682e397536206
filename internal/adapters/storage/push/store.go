package push

import (
	"context"

	domain "whistle/internal/domain/push"
)

// Store persists browser push subscriptions.
type Store interface {
	Save(ctx context.Context, value domain.Subscription) error
	Get(ctx context.Context, id string) (domain.Subscription, error)
	ListByProfile(ctx context.Context, profileID string) ([]domain.Subscription, error)
	Delete(ctx context.Context, id string) error
	DeleteByEndpoint(ctx context.Context, profileID, endpoint string) error
}

var _ Store = (*SQLiteStore)(nil)
