package offer

import (
	"context"

	bookingdomain "whistle/internal/domain/booking"
	domain "whistle/internal/domain/offer"
)

// Store persists offers sent to referees.
type Store interface {
	Create(ctx context.Context, value domain.Offer) error
	Get(ctx context.Context, id string) (domain.Offer, error)
	Respond(ctx context.Context, value domain.Offer) error
	ListByBooking(ctx context.Context, bookingID string) ([]domain.Offer, error)
	ListForReferee(ctx context.Context, refereeID string, filter ListFilter) ([]InboxRow, error)
}

// ListFilter carries filtering parameters for the referee inbox.
type ListFilter struct {
	Limit    int
	Offset   int
	Statuses []string
}

// InboxRow is an offer joined with the booking it refers to.
type InboxRow struct {
	Offer   domain.Offer
	Booking bookingdomain.Booking
}

var _ Store = (*SQLiteStore)(nil)
