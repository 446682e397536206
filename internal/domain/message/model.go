package message

import (
	"errors"
	"strings"
	"time"
)

// Kind constants
const (
	KindUser   = "user"
	KindSystem = "system"
)

// MaxBodyLength caps a single message body.
const MaxBodyLength = 4000

// Domain errors
var (
	ErrEmptyThreadID  = errors.New("thread ID is required")
	ErrEmptySenderID  = errors.New("sender ID is required")
	ErrEmptyBody      = errors.New("message cannot be empty")
	ErrBodyTooLong    = errors.New("message cannot exceed 4000 characters")
	ErrInvalidKind    = errors.New("kind must be user or system")
	ErrNotParticipant = errors.New("you are not a participant in this thread")
)

// Thread is the messaging channel for one confirmed booking.
type Thread struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Participant is a profile's membership in a thread.
type Participant struct {
	ThreadID   string    `json:"thread_id"`
	ProfileID  string    `json:"profile_id"`
	JoinedAt   time.Time `json:"joined_at,omitzero"`
	LastReadAt time.Time `json:"last_read_at,omitzero"`
}

// Message is a single entry in a thread. System messages have no sender.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	SenderID  string    `json:"sender_id"`
	Kind      string    `json:"kind"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the Message has valid data.
// PRE: Message struct is populated
// POST: Returns nil if valid, error otherwise
func (m *Message) Validate() error {
	if m.ThreadID == "" {
		return ErrEmptyThreadID
	}
	switch m.Kind {
	case KindUser:
		if m.SenderID == "" {
			return ErrEmptySenderID
		}
	case KindSystem:
	default:
		return ErrInvalidKind
	}
	if strings.TrimSpace(m.Body) == "" {
		return ErrEmptyBody
	}
	if len([]rune(m.Body)) > MaxBodyLength {
		return ErrBodyTooLong
	}
	if m.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	return nil
}

// IsSystem reports whether the message was posted by the platform.
func (m *Message) IsSystem() bool {
	return m.Kind == KindSystem
}

// IsUnreadFor reports whether the message is unread for a participant.
// INVARIANT: a participant's own messages are never unread
func (m *Message) IsUnreadFor(p Participant) bool {
	if m.SenderID == p.ProfileID {
		return false
	}
	return m.CreatedAt.After(p.LastReadAt)
}
