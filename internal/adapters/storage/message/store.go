package message

import (
	"context"
	"time"

	domain "whistle/internal/domain/message"
)

// Store persists booking threads, their participants and messages.
type Store interface {
	// EnsureThread returns the booking's thread, creating it if absent.
	// PRE: candidate.BookingID is non-empty
	// POST: Exactly one thread exists for the booking
	EnsureThread(ctx context.Context, candidate domain.Thread) (domain.Thread, error)

	GetThread(ctx context.Context, id string) (domain.Thread, error)
	GetThreadByBooking(ctx context.Context, bookingID string) (domain.Thread, error)

	// AddParticipant is idempotent per (thread, profile).
	AddParticipant(ctx context.Context, p domain.Participant) error
	GetParticipant(ctx context.Context, threadID, profileID string) (domain.Participant, error)
	ListParticipants(ctx context.Context, threadID string) ([]domain.Participant, error)
	MarkRead(ctx context.Context, threadID, profileID string, at time.Time) error

	SaveMessage(ctx context.Context, m domain.Message) error
	ListMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error)

	// ListThreadSummaries returns the profile's threads newest activity first.
	ListThreadSummaries(ctx context.Context, profileID string, limit int) ([]ThreadSummary, error)
}

// ThreadSummary is one row of a participant's thread list.
type ThreadSummary struct {
	Thread      domain.Thread
	LastMessage domain.Message // zero when the thread is empty
	UnreadCount int
}

var _ Store = (*SQLiteStore)(nil)
