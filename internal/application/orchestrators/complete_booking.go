package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"whistle/internal/adapters/realtime"
	"whistle/internal/domain/booking"
	"whistle/internal/domain/notification"
	"whistle/internal/domain/profile"
)

// ErrForbidden is returned when the caller's role may not perform the operation.
var ErrForbidden = errors.New("you do not have permission to do this")

// BookingStoreForComplete defines the booking store interface needed by CompleteBooking.
type BookingStoreForComplete interface {
	Get(ctx context.Context, id string) (booking.Booking, error)
	GetAssignment(ctx context.Context, bookingID string) (booking.Assignment, error)
	Save(ctx context.Context, b booking.Booking) error
}

// CompleteBookingInput carries input for the complete orchestrator.
type CompleteBookingInput struct {
	BookingID string
	ActorID   string
	ActorRole string
}

// CompleteBookingDeps holds dependencies for CompleteBooking.
type CompleteBookingDeps struct {
	BookingStore BookingStoreForComplete
	Notifier     NotificationSender
	Events       realtime.Publisher
	Location     *time.Location
	Now          func() time.Time
}

// ExecuteCompleteBooking marks a confirmed booking as played.
// PRE: ActorID is the booking's coach or an admin; kickoff has passed
// POST: Booking completed; assigned referee notified
func ExecuteCompleteBooking(ctx context.Context, input CompleteBookingInput, deps CompleteBookingDeps) (booking.Booking, error) {
	b, err := deps.BookingStore.Get(ctx, input.BookingID)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if input.ActorRole != profile.RoleAdmin && b.CoachID != input.ActorID {
		return booking.Booking{}, booking.ErrNotBookingOwner
	}

	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	now := deps.Now()
	if err := b.Complete(now, loc); err != nil {
		return booking.Booking{}, err
	}
	if err := deps.BookingStore.Save(ctx, b); err != nil {
		return booking.Booking{}, fmt.Errorf("save booking: %w", err)
	}

	slog.Info("booking_event", "event", "booking_completed", "booking_id", b.ID, "actor_id", input.ActorID)
	publish(ctx, deps.Events, realtime.Event{
		Topic: realtime.BookingTopic(b.ID),
		Type:  realtime.EventBookingCompleted,
		Data:  b,
		At:    now,
	})

	a, err := deps.BookingStore.GetAssignment(ctx, b.ID)
	if err != nil {
		slog.Warn("booking_event", "event", "assignment_lookup_failed", "booking_id", b.ID, "error", err)
		return b, nil
	}
	notify(ctx, deps.Notifier, NotifyInput{
		UserID: a.RefereeID,
		Type:   notification.TypeBookingCompleted,
		Title:  "Match marked as played",
		Body:   fmt.Sprintf("%s on %s", b.Title(), b.MatchDate),
		Link:   "/bookings/" + b.ID,
	})
	return b, nil
}
