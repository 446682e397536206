package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"whistle/internal/adapters/realtime"
	"whistle/internal/domain/booking"
)

// BookingStoreForCreate defines the store interface needed by CreateBooking.
type BookingStoreForCreate interface {
	Save(ctx context.Context, b booking.Booking) error
}

// BookingFields are the coach-editable match details.
type BookingFields struct {
	MatchDate    string
	KickoffTime  string
	GroundName   string
	Postcode     string
	County       string
	HomeTeam     string
	AwayTeam     string
	Format       string
	AgeGroup     string
	BudgetPence  int
	Notes        string
	CentralVenue bool
}

// CreateBookingInput carries input for the create-booking orchestrator.
type CreateBookingInput struct {
	CoachID string
	BookingFields
}

// CreateBookingDeps holds dependencies for CreateBooking.
type CreateBookingDeps struct {
	BookingStore BookingStoreForCreate
	Events       realtime.Publisher
	Location     *time.Location
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteCreateBooking creates a pending booking for a coach.
// PRE: CoachID is a coach; match date is today or later in Location
// POST: Booking persisted with status pending
func ExecuteCreateBooking(ctx context.Context, input CreateBookingInput, deps CreateBookingDeps) (booking.Booking, error) {
	now := deps.Now()
	b := booking.Booking{
		ID:        deps.GenerateID(),
		CoachID:   input.CoachID,
		Status:    booking.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyBookingFields(&b, input.BookingFields)
	if err := b.Validate(localToday(now, deps.Location)); err != nil {
		return booking.Booking{}, err
	}

	if err := deps.BookingStore.Save(ctx, b); err != nil {
		return booking.Booking{}, fmt.Errorf("save booking: %w", err)
	}

	slog.Info("booking_event", "event", "booking_created", "booking_id", b.ID, "coach_id", b.CoachID, "match_date", b.MatchDate)
	publish(ctx, deps.Events, realtime.Event{
		Topic: realtime.BookingTopic(b.ID),
		Type:  realtime.EventBookingCreated,
		Data:  b,
		At:    now,
	})
	return b, nil
}

// BookingStoreForUpdate defines the store interface needed by UpdateBooking.
type BookingStoreForUpdate interface {
	Get(ctx context.Context, id string) (booking.Booking, error)
	Save(ctx context.Context, b booking.Booking) error
}

// UpdateBookingInput carries input for the update-booking orchestrator.
type UpdateBookingInput struct {
	BookingID string
	ActorID   string
	BookingFields
}

// UpdateBookingDeps holds dependencies for UpdateBooking.
type UpdateBookingDeps struct {
	BookingStore BookingStoreForUpdate
	Location     *time.Location
	Now          func() time.Time
}

// ExecuteUpdateBooking replaces the match details of an open booking.
// PRE: ActorID is the booking's coach
// POST: Booking fields replaced; status unchanged
// INVARIANT: Only pending or offered bookings may be edited
func ExecuteUpdateBooking(ctx context.Context, input UpdateBookingInput, deps UpdateBookingDeps) (booking.Booking, error) {
	b, err := deps.BookingStore.Get(ctx, input.BookingID)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if b.CoachID != input.ActorID {
		return booking.Booking{}, booking.ErrNotBookingOwner
	}
	if !b.IsOpen() {
		return booking.Booking{}, booking.ErrNotOpen
	}

	now := deps.Now()
	applyBookingFields(&b, input.BookingFields)
	b.UpdatedAt = now
	if err := b.Validate(localToday(now, deps.Location)); err != nil {
		return booking.Booking{}, err
	}
	if err := deps.BookingStore.Save(ctx, b); err != nil {
		return booking.Booking{}, fmt.Errorf("save booking: %w", err)
	}

	slog.Info("booking_event", "event", "booking_updated", "booking_id", b.ID)
	return b, nil
}

func applyBookingFields(b *booking.Booking, f BookingFields) {
	b.MatchDate = strings.TrimSpace(f.MatchDate)
	b.KickoffTime = strings.TrimSpace(f.KickoffTime)
	b.GroundName = strings.TrimSpace(f.GroundName)
	b.Postcode = strings.ToUpper(strings.TrimSpace(f.Postcode))
	b.County = strings.TrimSpace(f.County)
	b.HomeTeam = strings.TrimSpace(f.HomeTeam)
	b.AwayTeam = strings.TrimSpace(f.AwayTeam)
	b.Format = f.Format
	b.AgeGroup = strings.TrimSpace(f.AgeGroup)
	b.BudgetPence = f.BudgetPence
	b.Notes = strings.TrimSpace(f.Notes)
	b.CentralVenue = f.CentralVenue
}
