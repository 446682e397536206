package projections

import (
	"context"
	"errors"
	"fmt"

	"whistle/internal/adapters/storage"
	domainBooking "whistle/internal/domain/booking"
	domainOffer "whistle/internal/domain/offer"
)

// GetBookingQuery carries query parameters.
type GetBookingQuery struct {
	BookingID string
	Viewer    Viewer
}

// GetBookingResult carries the booking as the viewer may see it.
// Offers is populated for the coach and admins; MyOffer for a referee holding an offer.
type GetBookingResult struct {
	Booking    domainBooking.Booking     `json:"booking"`
	Offers     []domainOffer.Offer       `json:"offers,omitempty"`
	MyOffer    *domainOffer.Offer        `json:"my_offer,omitempty"`
	Assignment *domainBooking.Assignment `json:"assignment,omitempty"`
	ThreadID   string                    `json:"thread_id,omitempty"`
}

// GetBookingDeps holds dependencies for GetBooking.
type GetBookingDeps struct {
	BookingStore BookingStore
	OfferStore   OfferStore
	ThreadStore  ThreadStore // optional: nil skips the thread lookup
}

// QueryGetBooking returns a booking scoped to the viewer's role.
// PRE: Viewer is authenticated
// POST: Returns the booking if the viewer is its coach, an admin, the assigned
// referee or a referee holding an offer; ErrNotVisible otherwise
func QueryGetBooking(ctx context.Context, query GetBookingQuery, deps GetBookingDeps) (GetBookingResult, error) {
	b, err := deps.BookingStore.Get(ctx, query.BookingID)
	if err != nil {
		return GetBookingResult{}, err
	}
	result := GetBookingResult{Booking: b}

	a, err := deps.BookingStore.GetAssignment(ctx, b.ID)
	switch {
	case err == nil:
		result.Assignment = &a
	case !errors.Is(err, storage.ErrNotFound):
		return GetBookingResult{}, fmt.Errorf("get assignment: %w", err)
	}

	offers, err := deps.OfferStore.ListByBooking(ctx, b.ID)
	if err != nil {
		return GetBookingResult{}, fmt.Errorf("list offers: %w", err)
	}

	isAssigned := result.Assignment != nil && result.Assignment.RefereeID == query.Viewer.ID
	switch {
	case b.CoachID == query.Viewer.ID || query.Viewer.IsAdmin():
		result.Offers = offers
	default:
		for i := range offers {
			if offers[i].RefereeID == query.Viewer.ID {
				result.MyOffer = &offers[i]
				break
			}
		}
		if result.MyOffer == nil && !isAssigned {
			return GetBookingResult{}, ErrNotVisible
		}
	}

	if deps.ThreadStore != nil && (b.CoachID == query.Viewer.ID || isAssigned || query.Viewer.IsAdmin()) {
		t, err := deps.ThreadStore.GetThreadByBooking(ctx, b.ID)
		switch {
		case err == nil:
			result.ThreadID = t.ID
		case !errors.Is(err, storage.ErrNotFound):
			return GetBookingResult{}, fmt.Errorf("get thread: %w", err)
		}
	}
	return result, nil
}

// CalendarAccess decides whether the viewer may download the booking's calendar file.
// Only the coach and the assigned referee qualify: they get booking.ErrNotConfirmed
// until the booking is confirmed or completed, everyone else gets ErrNotVisible.
func CalendarAccess(r GetBookingResult, viewer Viewer) error {
	party := r.Booking.CoachID == viewer.ID || (r.Assignment != nil && r.Assignment.RefereeID == viewer.ID)
	if !party {
		return ErrNotVisible
	}
	if r.Booking.Status != domainBooking.StatusConfirmed && r.Booking.Status != domainBooking.StatusCompleted {
		return domainBooking.ErrNotConfirmed
	}
	return nil
}

// CanViewCalendar reports whether CalendarAccess allows the download.
func CanViewCalendar(r GetBookingResult, viewer Viewer) bool {
	return CalendarAccess(r, viewer) == nil
}
