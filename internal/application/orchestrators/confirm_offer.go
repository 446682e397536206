package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"whistle/internal/adapters/realtime"
	"whistle/internal/domain/availability"
	"whistle/internal/domain/booking"
	"whistle/internal/domain/message"
	"whistle/internal/domain/notification"
	"whistle/internal/domain/offer"
)

// OfferStoreForConfirm defines the offer lookup needed by ConfirmOffer.
type OfferStoreForConfirm interface {
	Get(ctx context.Context, id string) (offer.Offer, error)
}

// BookingStoreForConfirm defines the booking store interface needed by ConfirmOffer.
type BookingStoreForConfirm interface {
	Get(ctx context.Context, id string) (booking.Booking, error)
	Confirm(ctx context.Context, a booking.Assignment, now time.Time) error
}

// ThreadStoreForConfirm defines the messaging store interface needed by ConfirmOffer.
type ThreadStoreForConfirm interface {
	EnsureThread(ctx context.Context, candidate message.Thread) (message.Thread, error)
	AddParticipant(ctx context.Context, p message.Participant) error
	SaveMessage(ctx context.Context, m message.Message) error
}

// AvailabilityStoreForConfirm consumes the referee's date slot for the match.
type AvailabilityStoreForConfirm interface {
	DeleteOverlappingDates(ctx context.Context, refereeID, date, start, end string) (int, error)
}

// ConfirmOfferInput carries input for the confirm orchestrator.
type ConfirmOfferInput struct {
	OfferID string
	ActorID string
}

// ConfirmOfferResult carries the confirmed booking and its side effects.
type ConfirmOfferResult struct {
	Booking    booking.Booking
	Assignment booking.Assignment
	Thread     message.Thread
}

// ConfirmOfferDeps holds dependencies for ConfirmOffer.
type ConfirmOfferDeps struct {
	OfferStore        OfferStoreForConfirm
	BookingStore      BookingStoreForConfirm
	ThreadStore       ThreadStoreForConfirm
	AvailabilityStore AvailabilityStoreForConfirm
	Notifier          NotificationSender
	Events            realtime.Publisher
	GenerateID        func() string
	Now               func() time.Time
}

// ExecuteConfirmOffer binds the offering referee to the booking.
// The assignment, offer statuses and booking status commit together; the thread,
// system message, slot removal and notification follow.
// PRE: ActorID is the booking's coach; offer is accepted_priced; booking is pending or offered
// POST: Booking confirmed; offer accepted; sibling offers withdrawn; one assignment;
// thread with both parties and a confirmation message
// INVARIANT: A booking has at most one assignment and at most one thread
func ExecuteConfirmOffer(ctx context.Context, input ConfirmOfferInput, deps ConfirmOfferDeps) (ConfirmOfferResult, error) {
	o, err := deps.OfferStore.Get(ctx, input.OfferID)
	if err != nil {
		return ConfirmOfferResult{}, fmt.Errorf("get offer: %w", err)
	}
	b, err := deps.BookingStore.Get(ctx, o.BookingID)
	if err != nil {
		return ConfirmOfferResult{}, fmt.Errorf("get booking: %w", err)
	}
	if b.CoachID != input.ActorID {
		return ConfirmOfferResult{}, booking.ErrNotBookingOwner
	}
	if !b.IsOpen() {
		return ConfirmOfferResult{}, booking.ErrNotOpen
	}
	if o.Status != offer.StatusAcceptedPriced {
		return ConfirmOfferResult{}, offer.ErrNotPriced
	}

	now := deps.Now()
	a := booking.Assignment{
		ID:        deps.GenerateID(),
		BookingID: b.ID,
		RefereeID: o.RefereeID,
		OfferID:   o.ID,
		CreatedAt: now,
	}
	if err := deps.BookingStore.Confirm(ctx, a, now); err != nil {
		return ConfirmOfferResult{}, err
	}
	b.Status = booking.StatusConfirmed
	b.UpdatedAt = now
	slog.Info("booking_event", "event", "booking_confirmed", "booking_id", b.ID, "offer_id", o.ID, "referee_id", o.RefereeID)

	thread, err := openBookingThread(ctx, deps, b, o.RefereeID, now)
	if err != nil {
		return ConfirmOfferResult{}, err
	}

	consumeSlot(ctx, deps.AvailabilityStore, b, o.RefereeID)

	publish(ctx, deps.Events, realtime.Event{
		Topic: realtime.BookingTopic(b.ID),
		Type:  realtime.EventBookingConfirmed,
		Data:  b,
		At:    now,
	})
	notify(ctx, deps.Notifier, NotifyInput{
		UserID: o.RefereeID,
		Type:   notification.TypeBookingConfirmed,
		Title:  "You're confirmed for a match",
		Body:   fmt.Sprintf("%s on %s at %s, %s", b.Title(), b.MatchDate, b.KickoffTime, b.GroundName),
		Link:   "/threads/" + thread.ID,
	})

	return ConfirmOfferResult{Booking: b, Assignment: a, Thread: thread}, nil
}

func openBookingThread(ctx context.Context, deps ConfirmOfferDeps, b booking.Booking, refereeID string, now time.Time) (message.Thread, error) {
	thread, err := deps.ThreadStore.EnsureThread(ctx, message.Thread{
		ID:        deps.GenerateID(),
		BookingID: b.ID,
		CreatedAt: now,
	})
	if err != nil {
		return message.Thread{}, fmt.Errorf("open booking thread: %w", err)
	}
	for _, profileID := range []string{b.CoachID, refereeID} {
		if err := deps.ThreadStore.AddParticipant(ctx, message.Participant{
			ThreadID:  thread.ID,
			ProfileID: profileID,
			JoinedAt:  now,
		}); err != nil {
			return message.Thread{}, fmt.Errorf("add thread participant: %w", err)
		}
	}

	m := message.Message{
		ID:        deps.GenerateID(),
		ThreadID:  thread.ID,
		Kind:      message.KindSystem,
		Body:      b.ConfirmationMessage(),
		CreatedAt: now,
	}
	if err := m.Validate(); err != nil {
		return message.Thread{}, err
	}
	if err := deps.ThreadStore.SaveMessage(ctx, m); err != nil {
		return message.Thread{}, fmt.Errorf("post confirmation message: %w", err)
	}
	publish(ctx, deps.Events, realtime.Event{
		Topic: realtime.ThreadTopic(thread.ID),
		Type:  realtime.EventMessageCreated,
		Data:  m,
		At:    now,
	})
	return thread, nil
}

// consumeSlot removes the referee's date slots overlapping the match window.
// Failures are logged; the confirmation stands.
func consumeSlot(ctx context.Context, store AvailabilityStoreForConfirm, b booking.Booking, refereeID string) {
	if store == nil {
		return
	}
	start, end, err := availability.MatchWindow(b.KickoffTime, booking.MatchDuration)
	if err != nil {
		slog.Warn("booking_event", "event", "slot_window_invalid", "booking_id", b.ID, "error", err)
		return
	}
	n, err := store.DeleteOverlappingDates(ctx, refereeID, b.MatchDate, start, end)
	if err != nil {
		slog.Error("booking_event", "event", "slot_consume_failed", "booking_id", b.ID, "referee_id", refereeID, "error", err)
		return
	}
	slog.Info("booking_event", "event", "slot_consumed", "booking_id", b.ID, "referee_id", refereeID, "slots", n)
}
