package push

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyProfileID  = errors.New("profile ID is required")
	ErrInvalidEndpoint = errors.New("push endpoint must be an https URL")
	ErrMissingKeys     = errors.New("push subscription keys p256dh and auth are required")
)

// Subscription is a browser push endpoint registered by a profile.
type Subscription struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the Subscription has valid data.
// PRE: Subscription struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Subscription) Validate() error {
	if s.ProfileID == "" {
		return ErrEmptyProfileID
	}
	if !strings.HasPrefix(s.Endpoint, "https://") || len(s.Endpoint) > 2048 {
		return ErrInvalidEndpoint
	}
	if s.P256dh == "" || s.Auth == "" {
		return ErrMissingKeys
	}
	return nil
}

// Payload is the JSON document delivered to the service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}
