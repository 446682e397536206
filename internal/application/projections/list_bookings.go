package projections

import (
	"context"
	"time"

	bookingStore "whistle/internal/adapters/storage/booking"
	offerStore "whistle/internal/adapters/storage/offer"
	domainBooking "whistle/internal/domain/booking"
	domainOffer "whistle/internal/domain/offer"
)

// Default and maximum page sizes for booking lists.
const (
	DefaultBookingLimit = 50
	MaxBookingLimit     = 200
)

// ListBookingsQuery carries query parameters for coach and referee booking lists.
type ListBookingsQuery struct {
	ProfileID string
	Status    string
	Upcoming  bool // only matches on or after today
	Limit     int
	Offset    int
}

// ListBookingsDeps holds dependencies for the booking lists.
type ListBookingsDeps struct {
	BookingStore BookingStore
	Location     *time.Location
	Now          func() time.Time
}

func (q ListBookingsQuery) filter(deps ListBookingsDeps) bookingStore.ListFilter {
	f := bookingStore.ListFilter{
		Limit:  clampLimit(q.Limit, DefaultBookingLimit, MaxBookingLimit),
		Offset: max(q.Offset, 0),
		Status: q.Status,
	}
	if q.Upcoming {
		f.FromDate = localToday(deps.Now(), deps.Location)
	}
	return f
}

// QueryListCoachBookings lists the coach's bookings.
// PRE: ProfileID is a coach
// POST: Returns bookings ordered by match date
func QueryListCoachBookings(ctx context.Context, query ListBookingsQuery, deps ListBookingsDeps) ([]domainBooking.Booking, error) {
	bookings, err := deps.BookingStore.ListByCoach(ctx, query.ProfileID, query.filter(deps))
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []domainBooking.Booking{}
	}
	return bookings, nil
}

// QueryListAssignedBookings lists the bookings a referee is assigned to.
// PRE: ProfileID is a referee
// POST: Returns confirmed and completed bookings ordered by match date
func QueryListAssignedBookings(ctx context.Context, query ListBookingsQuery, deps ListBookingsDeps) ([]domainBooking.Booking, error) {
	bookings, err := deps.BookingStore.ListAssigned(ctx, query.ProfileID, query.filter(deps))
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []domainBooking.Booking{}
	}
	return bookings, nil
}

// ListRefereeOffersQuery carries query parameters for the offers inbox.
type ListRefereeOffersQuery struct {
	RefereeID string
	Statuses  []string // empty means active offers only
	Limit     int
	Offset    int
}

// OfferInboxItem is one offer with the match summary a referee needs to decide.
type OfferInboxItem struct {
	Offer        domainOffer.Offer `json:"offer"`
	BookingID    string            `json:"booking_id"`
	Title        string            `json:"title"`
	MatchDate    string            `json:"match_date"`
	KickoffTime  string            `json:"kickoff_time"`
	GroundName   string            `json:"ground_name"`
	Postcode     string            `json:"postcode"`
	County       string            `json:"county"`
	Format       string            `json:"format"`
	AgeGroup     string            `json:"age_group"`
	BudgetPence  int               `json:"budget_pence"`
	BookingState string            `json:"booking_status"`
}

// ListRefereeOffersDeps holds dependencies for ListRefereeOffers.
type ListRefereeOffersDeps struct {
	OfferStore OfferStore
}

// QueryListRefereeOffers returns the referee's offers with booking summaries.
// PRE: RefereeID is a referee
// POST: Returns offers newest first; defaults to sent and accepted_priced
func QueryListRefereeOffers(ctx context.Context, query ListRefereeOffersQuery, deps ListRefereeOffersDeps) ([]OfferInboxItem, error) {
	statuses := query.Statuses
	if len(statuses) == 0 {
		statuses = []string{domainOffer.StatusSent, domainOffer.StatusAcceptedPriced}
	}
	rows, err := deps.OfferStore.ListForReferee(ctx, query.RefereeID, offerStore.ListFilter{
		Limit:    clampLimit(query.Limit, DefaultBookingLimit, MaxBookingLimit),
		Offset:   max(query.Offset, 0),
		Statuses: statuses,
	})
	if err != nil {
		return nil, err
	}

	items := make([]OfferInboxItem, 0, len(rows))
	for _, row := range rows {
		b := row.Booking
		items = append(items, OfferInboxItem{
			Offer:        row.Offer,
			BookingID:    b.ID,
			Title:        b.Title(),
			MatchDate:    b.MatchDate,
			KickoffTime:  b.KickoffTime,
			GroundName:   b.GroundName,
			Postcode:     b.Postcode,
			County:       b.County,
			Format:       b.Format,
			AgeGroup:     b.AgeGroup,
			BudgetPence:  b.BudgetPence,
			BookingState: b.Status,
		})
	}
	return items, nil
}
