package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"whistle/internal/domain/push"
)

// PushStoreForSubscribe defines the store interface needed by the push subscription orchestrators.
type PushStoreForSubscribe interface {
	Save(ctx context.Context, s push.Subscription) error
	DeleteByEndpoint(ctx context.Context, profileID, endpoint string) error
}

// SubscribePushInput carries a browser PushSubscription.
type SubscribePushInput struct {
	ProfileID string
	Endpoint  string
	P256dh    string
	Auth      string
	UserAgent string
}

// PushSubscriptionDeps holds dependencies for push subscription orchestrators.
type PushSubscriptionDeps struct {
	PushStore  PushStoreForSubscribe
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteSubscribePush registers a push endpoint for the profile.
// PRE: Endpoint is https; keys present
// POST: Subscription stored; re-subscribing an endpoint moves it to ProfileID
func ExecuteSubscribePush(ctx context.Context, input SubscribePushInput, deps PushSubscriptionDeps) (push.Subscription, error) {
	s := push.Subscription{
		ID:        deps.GenerateID(),
		ProfileID: input.ProfileID,
		Endpoint:  strings.TrimSpace(input.Endpoint),
		P256dh:    strings.TrimSpace(input.P256dh),
		Auth:      strings.TrimSpace(input.Auth),
		UserAgent: input.UserAgent,
		CreatedAt: deps.Now(),
	}
	if len(s.UserAgent) > 255 {
		s.UserAgent = s.UserAgent[:255]
	}
	if err := s.Validate(); err != nil {
		return push.Subscription{}, err
	}
	if err := deps.PushStore.Save(ctx, s); err != nil {
		return push.Subscription{}, fmt.Errorf("save push subscription: %w", err)
	}
	slog.Info("push_event", "event", "subscribed", "profile_id", s.ProfileID)
	return s, nil
}

// ExecuteUnsubscribePush removes the profile's subscription for endpoint.
// POST: No subscription for (ProfileID, Endpoint) remains
func ExecuteUnsubscribePush(ctx context.Context, profileID, endpoint string, deps PushSubscriptionDeps) error {
	if err := deps.PushStore.DeleteByEndpoint(ctx, profileID, strings.TrimSpace(endpoint)); err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	slog.Info("push_event", "event", "unsubscribed", "profile_id", profileID)
	return nil
}
