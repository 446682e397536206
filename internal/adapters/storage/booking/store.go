package booking

import (
	"context"
	"time"

	domain "whistle/internal/domain/booking"
)

// Store persists bookings and their assignment.
type Store interface {
	Get(ctx context.Context, id string) (domain.Booking, error)
	Save(ctx context.Context, value domain.Booking) error
	ListByCoach(ctx context.Context, coachID string, filter ListFilter) ([]domain.Booking, error)
	ListAssigned(ctx context.Context, refereeID string, filter ListFilter) ([]domain.Booking, error)
	MarkOffered(ctx context.Context, id string, now time.Time) (bool, error)
	GetAssignment(ctx context.Context, bookingID string) (domain.Assignment, error)
	Confirm(ctx context.Context, assignment domain.Assignment, now time.Time) error
	Cancel(ctx context.Context, value domain.Booking) ([]string, error)
}

// ListFilter carries filtering parameters for list operations.
type ListFilter struct {
	Limit    int
	Offset   int
	Status   string
	FromDate string // inclusive YYYY-MM-DD lower bound on match_date
}

var _ Store = (*SQLiteStore)(nil)
