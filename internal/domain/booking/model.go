package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status constants for the booking lifecycle.
const (
	StatusPending   = "pending"
	StatusOffered   = "offered"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Format constants
const (
	Format11v11 = "11v11"
	Format9v9   = "9v9"
	Format7v7   = "7v7"
	Format5v5   = "5v5"
)

// DateLayout is the wire and storage format for match dates.
const DateLayout = "2006-01-02"

// MatchDuration is the length of a booked match slot.
const MatchDuration = 2 * time.Hour

// Max length constants
const (
	MaxTeamLength   = 80
	MaxGroundLength = 120
	MaxNotesLength  = 2000
	MaxReasonLength = 500
)

// ValidFormats contains all valid match formats.
var ValidFormats = []string{Format11v11, Format9v9, Format7v7, Format5v5}

// Domain errors
var (
	ErrEmptyCoachID       = errors.New("coach ID is required")
	ErrInvalidDate        = errors.New("match date must be YYYY-MM-DD")
	ErrDateInPast         = errors.New("match date cannot be in the past")
	ErrInvalidKickoff     = errors.New("kickoff time must be HH:MM")
	ErrInvalidFormat      = errors.New("format must be one of: 11v11, 9v9, 7v7, 5v5")
	ErrNegativeBudget     = errors.New("budget cannot be negative")
	ErrEmptyGround        = errors.New("ground name is required")
	ErrEmptyPostcode      = errors.New("postcode is required")
	ErrEmptyTeams         = errors.New("home and away teams are required")
	ErrTeamTooLong        = errors.New("team name cannot exceed 80 characters")
	ErrGroundTooLong      = errors.New("ground name cannot exceed 120 characters")
	ErrNotesTooLong       = errors.New("notes cannot exceed 2000 characters")
	ErrReasonTooLong      = errors.New("cancel reason cannot exceed 500 characters")
	ErrNotOpen            = errors.New("booking is no longer open for offers")
	ErrNotConfirmed       = errors.New("booking is not confirmed")
	ErrAlreadyClosed      = errors.New("booking is already completed or cancelled")
	ErrMatchNotPlayed     = errors.New("match has not kicked off yet")
	ErrAlreadyAssigned    = errors.New("booking already has an assigned referee")
	ErrNotBookingOwner    = errors.New("only the booking's coach can do this")
	ErrNotBookingReferee  = errors.New("only the assigned referee can do this")
	ErrNotBookingParty    = errors.New("you are not a party to this booking")
	ErrCancelNotPermitted = errors.New("only the coach can cancel an unconfirmed booking")
)

// Booking is a coach's request for a referee at a match.
type Booking struct {
	ID           string    `json:"id"`
	CoachID      string    `json:"coach_id"`
	Status       string    `json:"status"`
	MatchDate    string    `json:"match_date"`   // YYYY-MM-DD
	KickoffTime  string    `json:"kickoff_time"` // HH:MM
	GroundName   string    `json:"ground_name"`
	Postcode     string    `json:"postcode"`
	County       string    `json:"county"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	Format       string    `json:"format"`
	AgeGroup     string    `json:"age_group"`
	BudgetPence  int       `json:"budget_pence"`
	Notes        string    `json:"notes"`
	CentralVenue bool      `json:"central_venue"`
	CancelledBy  string    `json:"cancelled_by"`
	CancelReason string    `json:"cancel_reason"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// Assignment binds exactly one referee to a booking once an offer is confirmed.
type Assignment struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	RefereeID string    `json:"referee_id"`
	OfferID   string    `json:"offer_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the booking fields against today's date.
// PRE: today is YYYY-MM-DD
// POST: Returns nil if valid, error otherwise
func (b *Booking) Validate(today string) error {
	if b.CoachID == "" {
		return ErrEmptyCoachID
	}
	if _, err := time.Parse(DateLayout, b.MatchDate); err != nil {
		return ErrInvalidDate
	}
	if b.MatchDate < today {
		return ErrDateInPast
	}
	if _, err := time.Parse("15:04", b.KickoffTime); err != nil || len(b.KickoffTime) != 5 {
		return ErrInvalidKickoff
	}
	if !IsValidFormat(b.Format) {
		return ErrInvalidFormat
	}
	if b.BudgetPence < 0 {
		return ErrNegativeBudget
	}
	if strings.TrimSpace(b.GroundName) == "" {
		return ErrEmptyGround
	}
	if len(b.GroundName) > MaxGroundLength {
		return ErrGroundTooLong
	}
	if strings.TrimSpace(b.Postcode) == "" {
		return ErrEmptyPostcode
	}
	if strings.TrimSpace(b.HomeTeam) == "" || strings.TrimSpace(b.AwayTeam) == "" {
		return ErrEmptyTeams
	}
	if len(b.HomeTeam) > MaxTeamLength || len(b.AwayTeam) > MaxTeamLength {
		return ErrTeamTooLong
	}
	if len(b.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// IsOpen reports whether the booking can still receive or confirm offers.
func (b *Booking) IsOpen() bool {
	return b.Status == StatusPending || b.Status == StatusOffered
}

// IsClosed reports whether the booking reached a terminal state.
func (b *Booking) IsClosed() bool {
	return b.Status == StatusCompleted || b.Status == StatusCancelled
}

// MarkOffered moves a pending booking to offered. Already-offered bookings are unchanged.
// PRE: booking is open
// POST: Status is offered
func (b *Booking) MarkOffered(now time.Time) error {
	if !b.IsOpen() {
		return ErrNotOpen
	}
	if b.Status == StatusPending {
		b.Status = StatusOffered
		b.UpdatedAt = now
	}
	return nil
}

// Cancel moves the booking to cancelled.
// PRE: booking is not completed or cancelled; reason within length limit
// POST: Status is cancelled, CancelledBy and CancelReason recorded
func (b *Booking) Cancel(by, reason string, now time.Time) error {
	if b.IsClosed() {
		return ErrAlreadyClosed
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > MaxReasonLength {
		return ErrReasonTooLong
	}
	b.Status = StatusCancelled
	b.CancelledBy = by
	b.CancelReason = reason
	b.UpdatedAt = now
	return nil
}

// Complete moves a confirmed booking to completed once kickoff has passed.
// PRE: Status is confirmed; now is after kickoff in loc
// POST: Status is completed
func (b *Booking) Complete(now time.Time, loc *time.Location) error {
	if b.Status != StatusConfirmed {
		return ErrNotConfirmed
	}
	start, err := b.StartsAt(loc)
	if err != nil {
		return err
	}
	if now.Before(start) {
		return ErrMatchNotPlayed
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now
	return nil
}

// StartsAt returns the kickoff instant in loc.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" 15:04", b.MatchDate+" "+b.KickoffTime, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Weekday returns the day of week of the match date (0 = Sunday).
func (b *Booking) Weekday() (int, error) {
	t, err := time.Parse(DateLayout, b.MatchDate)
	if err != nil {
		return 0, ErrInvalidDate
	}
	return int(t.Weekday()), nil
}

// Title returns "<home> v <away>".
func (b *Booking) Title() string {
	return b.HomeTeam + " v " + b.AwayTeam
}

// ConfirmationMessage returns the system message posted in the booking thread on confirmation.
func (b *Booking) ConfirmationMessage() string {
	return fmt.Sprintf("Booking confirmed: %s on %s at %s. Use this thread to arrange match-day details.",
		b.Title(), b.MatchDate, b.KickoffTime)
}

// IsValidFormat reports whether format is one of ValidFormats.
func IsValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
