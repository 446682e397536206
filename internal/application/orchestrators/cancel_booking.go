package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"whistle/internal/adapters/realtime"
	"whistle/internal/adapters/storage"
	"whistle/internal/domain/audit"
	"whistle/internal/domain/booking"
	"whistle/internal/domain/notification"
)

// BookingStoreForCancel defines the booking store interface needed by CancelBooking.
type BookingStoreForCancel interface {
	Get(ctx context.Context, id string) (booking.Booking, error)
	GetAssignment(ctx context.Context, bookingID string) (booking.Assignment, error)
	Cancel(ctx context.Context, b booking.Booking) ([]string, error)
}

// CancelBookingInput carries input for the cancel orchestrator.
type CancelBookingInput struct {
	BookingID  string
	ActorID    string
	ActorEmail string
	ActorRole  string
	Reason     string
}

// CancelBookingDeps holds dependencies for CancelBooking.
type CancelBookingDeps struct {
	BookingStore BookingStoreForCancel
	AuditStore   AuditStoreForRecord // optional
	Notifier     NotificationSender
	Events       realtime.Publisher
	Now          func() time.Time
}

// ExecuteCancelBooking cancels a booking on behalf of its coach or assigned referee.
// Open offers are withdrawn and their referees told. The referee's consumed
// availability slot is not restored.
// PRE: ActorID is the coach, or the assigned referee of a confirmed booking
// POST: Booking cancelled; counterparty notified
func ExecuteCancelBooking(ctx context.Context, input CancelBookingInput, deps CancelBookingDeps) (booking.Booking, error) {
	b, err := deps.BookingStore.Get(ctx, input.BookingID)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if b.IsClosed() {
		return booking.Booking{}, booking.ErrAlreadyClosed
	}

	var assignedRefereeID string
	if b.Status == booking.StatusConfirmed {
		a, err := deps.BookingStore.GetAssignment(ctx, b.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return booking.Booking{}, fmt.Errorf("get assignment: %w", err)
		}
		assignedRefereeID = a.RefereeID
	}

	isCoach := input.ActorID == b.CoachID
	isReferee := assignedRefereeID != "" && input.ActorID == assignedRefereeID
	switch {
	case isCoach:
	case isReferee:
	case b.IsOpen():
		return booking.Booking{}, booking.ErrCancelNotPermitted
	default:
		return booking.Booking{}, booking.ErrNotBookingParty
	}

	now := deps.Now()
	if err := b.Cancel(input.ActorID, input.Reason, now); err != nil {
		return booking.Booking{}, err
	}
	offered, err := deps.BookingStore.Cancel(ctx, b)
	if err != nil {
		return booking.Booking{}, err
	}

	recordAudit(ctx, deps.AuditStore, audit.New(audit.Actor{ID: input.ActorID, Email: input.ActorEmail, Role: input.ActorRole}, audit.CategoryBooking, audit.ActionCancel, now).
		On("booking", b.ID).
		Describe("%s cancelled", b.Title()).
		Meta(map[string]string{"reason": b.CancelReason, "referee_id": assignedRefereeID}))
	slog.Info("booking_event", "event", "booking_cancelled", "booking_id", b.ID, "cancelled_by", input.ActorID, "withdrawn_offers", len(offered))
	publish(ctx, deps.Events, realtime.Event{
		Topic: realtime.BookingTopic(b.ID),
		Type:  realtime.EventBookingCancelled,
		Data:  b,
		At:    now,
	})

	body := fmt.Sprintf("%s on %s at %s has been cancelled", b.Title(), b.MatchDate, b.KickoffTime)
	if b.CancelReason != "" {
		body += ": " + b.CancelReason
	}
	recipients := make([]string, 0, len(offered)+1)
	if isReferee {
		recipients = append(recipients, b.CoachID)
	} else if assignedRefereeID != "" {
		recipients = append(recipients, assignedRefereeID)
	}
	recipients = append(recipients, offered...)
	for _, userID := range recipients {
		notify(ctx, deps.Notifier, NotifyInput{
			UserID: userID,
			Type:   notification.TypeBookingCancelled,
			Title:  "Match cancelled",
			Body:   body,
			Link:   "/bookings/" + b.ID,
		})
	}
	return b, nil
}
