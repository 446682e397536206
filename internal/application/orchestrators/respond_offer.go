package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"whistle/internal/adapters/realtime"
	"whistle/internal/domain/booking"
	"whistle/internal/domain/notification"
	"whistle/internal/domain/offer"
)

// OfferStoreForRespond defines the offer store interface needed by referee responses.
type OfferStoreForRespond interface {
	Get(ctx context.Context, id string) (offer.Offer, error)
	Respond(ctx context.Context, o offer.Offer) error
}

// BookingStoreForRespond defines the booking lookup needed by referee responses.
type BookingStoreForRespond interface {
	Get(ctx context.Context, id string) (booking.Booking, error)
}

// RespondOfferInput carries a referee's answer to an offer.
type RespondOfferInput struct {
	OfferID   string
	RefereeID string
	Price     string // pounds, e.g. "45.00"; accept only
	Note      string
}

// RespondOfferDeps holds dependencies for AcceptOffer and DeclineOffer.
type RespondOfferDeps struct {
	OfferStore   OfferStoreForRespond
	BookingStore BookingStoreForRespond
	Notifier     NotificationSender
	Events       realtime.Publisher
	Now          func() time.Time
}

// ExecuteAcceptOffer records the referee's acceptance with a quoted price.
// PRE: RefereeID holds the offer; offer is sent; booking is open
// POST: Offer accepted_priced with PricePence; coach notified
func ExecuteAcceptOffer(ctx context.Context, input RespondOfferInput, deps RespondOfferDeps) (offer.Offer, error) {
	pence, err := offer.ParsePricePence(input.Price)
	if err != nil {
		return offer.Offer{}, err
	}
	o, b, err := loadOfferForReferee(ctx, input, deps)
	if err != nil {
		return offer.Offer{}, err
	}

	now := deps.Now()
	if err := o.AcceptWithPrice(pence, input.Note, now); err != nil {
		return offer.Offer{}, err
	}
	if err := deps.OfferStore.Respond(ctx, o); err != nil {
		return offer.Offer{}, fmt.Errorf("save offer response: %w", err)
	}

	slog.Info("booking_event", "event", "offer_accepted", "booking_id", b.ID, "offer_id", o.ID, "referee_id", o.RefereeID, "price_pence", o.PricePence)
	publish(ctx, deps.Events, realtime.Event{
		Topic: realtime.BookingTopic(b.ID),
		Type:  realtime.EventOfferAccepted,
		Data:  o,
		At:    now,
	})
	notify(ctx, deps.Notifier, NotifyInput{
		UserID: b.CoachID,
		Type:   notification.TypeOfferAccepted,
		Title:  "A referee accepted your match",
		Body:   fmt.Sprintf("%s: £%s quoted", b.Title(), offer.FormatPence(o.PricePence)),
		Link:   "/bookings/" + b.ID,
	})
	return o, nil
}

// ExecuteDeclineOffer records the referee turning the offer down.
// PRE: RefereeID holds the offer; offer is sent
// POST: Offer declined; coach notified
func ExecuteDeclineOffer(ctx context.Context, input RespondOfferInput, deps RespondOfferDeps) (offer.Offer, error) {
	o, b, err := loadOfferForReferee(ctx, input, deps)
	if err != nil {
		return offer.Offer{}, err
	}

	now := deps.Now()
	if err := o.Decline(input.Note, now); err != nil {
		return offer.Offer{}, err
	}
	if err := deps.OfferStore.Respond(ctx, o); err != nil {
		return offer.Offer{}, fmt.Errorf("save offer response: %w", err)
	}

	slog.Info("booking_event", "event", "offer_declined", "booking_id", b.ID, "offer_id", o.ID, "referee_id", o.RefereeID)
	publish(ctx, deps.Events, realtime.Event{
		Topic: realtime.BookingTopic(b.ID),
		Type:  realtime.EventOfferDeclined,
		Data:  o,
		At:    now,
	})
	notify(ctx, deps.Notifier, NotifyInput{
		UserID: b.CoachID,
		Type:   notification.TypeOfferDeclined,
		Title:  "A referee declined your match",
		Body:   b.Title(),
		Link:   "/bookings/" + b.ID,
	})
	return o, nil
}

func loadOfferForReferee(ctx context.Context, input RespondOfferInput, deps RespondOfferDeps) (offer.Offer, booking.Booking, error) {
	o, err := deps.OfferStore.Get(ctx, input.OfferID)
	if err != nil {
		return offer.Offer{}, booking.Booking{}, fmt.Errorf("get offer: %w", err)
	}
	if o.RefereeID != input.RefereeID {
		return offer.Offer{}, booking.Booking{}, offer.ErrNotOfferHolder
	}
	b, err := deps.BookingStore.Get(ctx, o.BookingID)
	if err != nil {
		return offer.Offer{}, booking.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if !b.IsOpen() {
		return offer.Offer{}, booking.Booking{}, booking.ErrNotOpen
	}
	return o, b, nil
}
