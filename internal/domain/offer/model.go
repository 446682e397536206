package offer

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Status constants for the referee-side offer lifecycle.
const (
	StatusSent           = "sent"
	StatusAcceptedPriced = "accepted_priced"
	StatusAccepted       = "accepted"
	StatusDeclined       = "declined"
	StatusWithdrawn      = "withdrawn"
)

// MaxPricePence caps a quoted match fee at £1000.
const MaxPricePence = 100000

// MaxNoteLength caps the note a referee can attach when responding.
const MaxNoteLength = 500

// Domain errors
var (
	ErrEmptyBookingID = errors.New("booking ID is required")
	ErrEmptyRefereeID = errors.New("referee ID is required")
	ErrInvalidPrice   = errors.New("price must be a positive amount in pounds, e.g. 45.00")
	ErrPriceTooHigh   = errors.New("price cannot exceed 1000.00")
	ErrNotSent        = errors.New("offer has already been responded to")
	ErrNotPriced      = errors.New("offer has not been accepted with a price")
	ErrNoteTooLong    = errors.New("note cannot exceed 500 characters")
	ErrNotOfferHolder = errors.New("offer belongs to another referee")
	ErrDuplicate      = errors.New("referee has already been offered this booking")
)

// Offer is a referee's standing invitation to officiate a booking.
type Offer struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"booking_id"`
	RefereeID   string    `json:"referee_id"`
	Status      string    `json:"status"`
	PricePence  int       `json:"price_pence"`
	RefereeNote string    `json:"referee_note"`
	CreatedAt   time.Time `json:"created_at"`
	RespondedAt time.Time `json:"responded_at,omitzero"`
}

// Validate checks if the Offer has valid data.
// PRE: Offer struct is populated
// POST: Returns nil if valid, error otherwise
func (o *Offer) Validate() error {
	if o.BookingID == "" {
		return ErrEmptyBookingID
	}
	if o.RefereeID == "" {
		return ErrEmptyRefereeID
	}
	if len(o.RefereeNote) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// AcceptWithPrice records the referee's quoted fee.
// PRE: Status is sent
// POST: Status is accepted_priced, PricePence and RespondedAt set
func (o *Offer) AcceptWithPrice(pricePence int, note string, now time.Time) error {
	if o.Status != StatusSent {
		return ErrNotSent
	}
	if pricePence <= 0 {
		return ErrInvalidPrice
	}
	if pricePence > MaxPricePence {
		return ErrPriceTooHigh
	}
	if len(note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	o.Status = StatusAcceptedPriced
	o.PricePence = pricePence
	o.RefereeNote = strings.TrimSpace(note)
	o.RespondedAt = now
	return nil
}

// Decline records the referee turning the offer down.
// PRE: Status is sent
// POST: Status is declined
func (o *Offer) Decline(note string, now time.Time) error {
	if o.Status != StatusSent {
		return ErrNotSent
	}
	if len(note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	o.Status = StatusDeclined
	o.RefereeNote = strings.TrimSpace(note)
	o.RespondedAt = now
	return nil
}

// IsActive reports whether the offer is still awaiting a decision from either side.
func (o *Offer) IsActive() bool {
	return o.Status == StatusSent || o.Status == StatusAcceptedPriced
}

// ParsePricePence parses a pounds amount such as "45", "45.5" or "45.00" into pence.
// A leading "£" is allowed. At most two decimal places.
func ParsePricePence(s string) (int, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "£"))
	if s == "" {
		return 0, ErrInvalidPrice
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || !allDigits(whole) {
		return 0, ErrInvalidPrice
	}
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 || !allDigits(frac) {
			return 0, ErrInvalidPrice
		}
		if len(frac) == 1 {
			frac += "0"
		}
	} else {
		frac = "00"
	}
	if len(whole) > 6 {
		return 0, ErrPriceTooHigh
	}
	pounds, err := strconv.Atoi(whole)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	pence, _ := strconv.Atoi(frac)
	total := pounds*100 + pence
	if total <= 0 {
		return 0, ErrInvalidPrice
	}
	if total > MaxPricePence {
		return 0, ErrPriceTooHigh
	}
	return total, nil
}

// FormatPence renders pence as pounds with two decimals, e.g. 4500 -> "45.00".
func FormatPence(pence int) string {
	sign := ""
	if pence < 0 {
		sign = "-"
		pence = -pence
	}
	frac := strconv.Itoa(pence % 100)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.Itoa(pence/100) + "." + frac
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
