package notification

import (
	"errors"
	"time"
)

// Type constants for lifecycle notifications.
const (
	TypeBookingOffer       = "booking_offer"
	TypeOfferAccepted      = "offer_accepted"
	TypeOfferDeclined      = "offer_declined"
	TypeBookingConfirmed   = "booking_confirmed"
	TypeBookingCancelled   = "booking_cancelled"
	TypeBookingCompleted   = "booking_completed"
	TypeNewMessage         = "new_message"
	TypeVerificationResult = "verification_result"
	TypeComplianceUpdated  = "compliance_updated"
)

// Max length constants
const (
	MaxTitleLength = 120
	MaxBodyLength  = 500
)

// Domain errors
var (
	ErrEmptyUserID  = errors.New("user ID is required")
	ErrEmptyType    = errors.New("notification type is required")
	ErrEmptyTitle   = errors.New("notification title is required")
	ErrTitleTooLong = errors.New("notification title cannot exceed 120 characters")
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      string    `json:"link"`
	ReadAt    time.Time `json:"read_at,omitzero"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the Notification has valid data.
// Body is truncated rather than rejected.
// PRE: Notification struct is populated
// POST: Returns nil if valid, error otherwise
func (n *Notification) Validate() error {
	if n.UserID == "" {
		return ErrEmptyUserID
	}
	if n.Type == "" {
		return ErrEmptyType
	}
	if n.Title == "" {
		return ErrEmptyTitle
	}
	if len(n.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if r := []rune(n.Body); len(r) > MaxBodyLength {
		n.Body = string(r[:MaxBodyLength-1]) + "…"
	}
	return nil
}

// IsRead returns true if the notification has been read.
func (n *Notification) IsRead() bool {
	return !n.ReadAt.IsZero()
}

// MarkRead records when the notification was read.
// POST: ReadAt is set to now if previously zero
func (n *Notification) MarkRead(now time.Time) {
	if n.ReadAt.IsZero() {
		n.ReadAt = now
	}
}
