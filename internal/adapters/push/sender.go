// Package push delivers Web Push notifications signed with VAPID keys.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"

	domain "whistle/internal/domain/push"
)

// DefaultTTL is how long, in seconds, a push service holds an undelivered message.
const DefaultTTL = 24 * 60 * 60

// ErrSubscriptionGone is returned when the push service reports the endpoint as expired (404 or 410).
var ErrSubscriptionGone = errors.New("push subscription is gone")

// Sender delivers a payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub domain.Subscription, payload domain.Payload) error
}

// Config holds the VAPID credentials.
type Config struct {
	PublicKey  string
	PrivateKey string
	Subject    string // mailto: or https: contact
	TTL        int
	Client     webpush.HTTPClient // nil uses http.DefaultClient
}

// WebPushSender sends encrypted payloads through the subscriber's push service.
type WebPushSender struct {
	cfg Config
}

var _ Sender = (*WebPushSender)(nil)

// NewWebPushSender creates a sender for the given VAPID configuration.
// PRE: cfg.PublicKey and cfg.PrivateKey are a VAPID key pair
func NewWebPushSender(cfg Config) *WebPushSender {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &WebPushSender{cfg: cfg}
}

// PublicKey returns the application server key browsers subscribe with.
func (s *WebPushSender) PublicKey() string {
	return s.cfg.PublicKey
}

// Send encrypts payload for sub and posts it to the push service.
// POST: Returns nil on 2xx, ErrSubscriptionGone on 404/410, a wrapped status error otherwise
func (s *WebPushSender) Send(ctx context.Context, sub domain.Subscription, payload domain.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &webpush.Options{
		HTTPClient:      s.cfg.Client,
		Subscriber:      s.cfg.Subject,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             s.cfg.TTL,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 300:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateKeys returns a new VAPID key pair as base64url strings.
func GenerateKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}

// Delivery is a push recorded by NoopSender.
type Delivery struct {
	Subscription domain.Subscription
	Payload      domain.Payload
}

// NoopSender records deliveries instead of sending them. Used when VAPID keys are not configured.
type NoopSender struct {
	mu   sync.Mutex
	sent []Delivery
}

var _ Sender = (*NoopSender)(nil)

// Send records the delivery.
func (n *NoopSender) Send(_ context.Context, sub domain.Subscription, payload domain.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Delivery{Subscription: sub, Payload: payload})
	return nil
}

// Sent returns a copy of the recorded deliveries.
func (n *NoopSender) Sent() []Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Delivery, len(n.sent))
	copy(out, n.sent)
	return out
}
