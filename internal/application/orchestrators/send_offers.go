package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"whistle/internal/adapters/realtime"
	availabilityStore "whistle/internal/adapters/storage/availability"
	"whistle/internal/domain/booking"
	"whistle/internal/domain/notification"
	"whistle/internal/domain/offer"
	"whistle/internal/domain/referee"
)

// MaxBulkOffers caps the referees offered a booking in one bulk send.
const MaxBulkOffers = 15

// BookingStoreForOffers defines the booking store interface needed to dispatch offers.
type BookingStoreForOffers interface {
	Get(ctx context.Context, id string) (booking.Booking, error)
	MarkOffered(ctx context.Context, id string, now time.Time) (bool, error)
}

// AvailabilityStoreForMatching defines the availability lookup used by bulk matching.
type AvailabilityStoreForMatching interface {
	MatchWeekly(ctx context.Context, filter availabilityStore.WeeklyMatchFilter) ([]string, error)
}

// OfferStoreForCreate defines the offer store interface needed to dispatch offers.
type OfferStoreForCreate interface {
	Create(ctx context.Context, o offer.Offer) error
}

// SendOffersInput carries input for the bulk offer orchestrator.
type SendOffersInput struct {
	BookingID string
	ActorID   string
}

// SendOffersResult lists the offers created.
type SendOffersResult struct {
	Booking    booking.Booking
	OfferIDs   []string
	RefereeIDs []string
}

// SendOffersDeps holds dependencies for SendBookingOffers.
type SendOffersDeps struct {
	BookingStore      BookingStoreForOffers
	AvailabilityStore AvailabilityStoreForMatching
	OfferStore        OfferStoreForCreate
	Notifier          NotificationSender
	Events            realtime.Publisher
	GenerateID        func() string
	Now               func() time.Time
}

// ExecuteSendBookingOffers offers the booking to referees whose weekly availability
// falls on the match's day of week. Referees already holding an offer are skipped.
// PRE: ActorID is the booking's coach; booking is pending or offered
// POST: Up to MaxBulkOffers offers in status sent; booking offered if any were created
func ExecuteSendBookingOffers(ctx context.Context, input SendOffersInput, deps SendOffersDeps) (SendOffersResult, error) {
	b, err := openBookingForCoach(ctx, deps.BookingStore, input.BookingID, input.ActorID)
	if err != nil {
		return SendOffersResult{}, err
	}
	day, err := b.Weekday()
	if err != nil {
		return SendOffersResult{}, err
	}

	refereeIDs, err := deps.AvailabilityStore.MatchWeekly(ctx, availabilityStore.WeeklyMatchFilter{
		DayOfWeek:        day,
		ExcludeBookingID: b.ID,
		Limit:            MaxBulkOffers,
	})
	if err != nil {
		return SendOffersResult{}, fmt.Errorf("match referees: %w", err)
	}

	result := SendOffersResult{Booking: b}
	for _, refereeID := range refereeIDs {
		o, err := createOffer(ctx, deps, &result.Booking, refereeID)
		if errors.Is(err, offer.ErrDuplicate) {
			continue
		}
		if err != nil {
			slog.Error("booking_event", "event", "offer_create_failed", "booking_id", b.ID, "referee_id", refereeID, "error", err)
			continue
		}
		result.OfferIDs = append(result.OfferIDs, o.ID)
		result.RefereeIDs = append(result.RefereeIDs, refereeID)
	}

	slog.Info("booking_event", "event", "offers_sent", "booking_id", b.ID, "candidates", len(refereeIDs), "offered", len(result.OfferIDs))
	return result, nil
}

// RefereeStoreForRequest defines the referee lookup needed by RequestReferee.
type RefereeStoreForRequest interface {
	Get(ctx context.Context, profileID string) (referee.Profile, error)
}

// RequestRefereeInput carries input for a targeted offer.
type RequestRefereeInput struct {
	BookingID string
	ActorID   string
	RefereeID string
}

// RequestRefereeDeps holds dependencies for RequestReferee.
type RequestRefereeDeps struct {
	BookingStore BookingStoreForOffers
	RefereeStore RefereeStoreForRequest
	OfferStore   OfferStoreForCreate
	Notifier     NotificationSender
	Events       realtime.Publisher
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteRequestReferee offers the booking to one chosen referee.
// PRE: ActorID is the booking's coach; RefereeID has a referee profile
// POST: One offer in status sent; booking offered
// INVARIANT: At most one offer per (booking, referee)
func ExecuteRequestReferee(ctx context.Context, input RequestRefereeInput, deps RequestRefereeDeps) (offer.Offer, error) {
	b, err := openBookingForCoach(ctx, deps.BookingStore, input.BookingID, input.ActorID)
	if err != nil {
		return offer.Offer{}, err
	}
	if _, err := deps.RefereeStore.Get(ctx, input.RefereeID); err != nil {
		return offer.Offer{}, fmt.Errorf("get referee: %w", err)
	}

	o, err := createOffer(ctx, SendOffersDeps{
		BookingStore: deps.BookingStore,
		OfferStore:   deps.OfferStore,
		Notifier:     deps.Notifier,
		Events:       deps.Events,
		GenerateID:   deps.GenerateID,
		Now:          deps.Now,
	}, &b, input.RefereeID)
	if err != nil {
		return offer.Offer{}, err
	}

	slog.Info("booking_event", "event", "referee_requested", "booking_id", b.ID, "referee_id", input.RefereeID)
	return o, nil
}

func openBookingForCoach(ctx context.Context, store BookingStoreForOffers, bookingID, actorID string) (booking.Booking, error) {
	b, err := store.Get(ctx, bookingID)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if b.CoachID != actorID {
		return booking.Booking{}, booking.ErrNotBookingOwner
	}
	if !b.IsOpen() {
		return booking.Booking{}, booking.ErrNotOpen
	}
	return b, nil
}

// createOffer inserts one sent offer, flips the booking to offered on its first
// offer and notifies the referee.
func createOffer(ctx context.Context, deps SendOffersDeps, b *booking.Booking, refereeID string) (offer.Offer, error) {
	now := deps.Now()
	o := offer.Offer{
		ID:        deps.GenerateID(),
		BookingID: b.ID,
		RefereeID: refereeID,
		Status:    offer.StatusSent,
		CreatedAt: now,
	}
	if err := o.Validate(); err != nil {
		return offer.Offer{}, err
	}
	if err := deps.OfferStore.Create(ctx, o); err != nil {
		return offer.Offer{}, err
	}

	if b.Status == booking.StatusPending {
		changed, err := deps.BookingStore.MarkOffered(ctx, b.ID, now)
		if err != nil {
			return offer.Offer{}, fmt.Errorf("mark booking offered: %w", err)
		}
		if changed {
			_ = b.MarkOffered(now)
			publish(ctx, deps.Events, realtime.Event{
				Topic: realtime.BookingTopic(b.ID),
				Type:  realtime.EventBookingOffered,
				Data:  *b,
				At:    now,
			})
		}
	}

	notify(ctx, deps.Notifier, NotifyInput{
		UserID: refereeID,
		Type:   notification.TypeBookingOffer,
		Title:  "New match offer",
		Body:   fmt.Sprintf("%s on %s at %s, %s", b.Title(), b.MatchDate, b.KickoffTime, b.GroundName),
		Link:   "/offers/" + o.ID,
	})
	return o, nil
}
