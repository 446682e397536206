package availability

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the on-disk and wire format for availability dates.
const DateLayout = "2006-01-02"

// MaxSlotsPerReferee bounds a single wholesale replace.
const MaxSlotsPerReferee = 200

// Domain errors
var (
	ErrEmptyRefereeID = errors.New("referee ID is required")
	ErrInvalidDay     = errors.New("day of week must be 0 (Sunday) to 6 (Saturday)")
	ErrInvalidTime    = errors.New("time must be HH:MM")
	ErrEndBeforeStart = errors.New("end time must be after start time")
	ErrInvalidDate    = errors.New("date must be YYYY-MM-DD")
	ErrDateInPast     = errors.New("date cannot be in the past")
	ErrTooManySlots   = errors.New("too many availability slots")
)

// WeeklySlot is a recurring window on a day of the week.
type WeeklySlot struct {
	ID        string `json:"id"`
	RefereeID string `json:"referee_id"`
	DayOfWeek int    `json:"day_of_week"` // 0 = Sunday
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Validate checks if the WeeklySlot has valid data.
// PRE: WeeklySlot struct is populated
// POST: Returns nil if valid, error otherwise
func (s *WeeklySlot) Validate() error {
	if s.RefereeID == "" {
		return ErrEmptyRefereeID
	}
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return ErrInvalidDay
	}
	return validateRange(s.StartTime, s.EndTime)
}

// DateSlot is a one-off window on a calendar date.
type DateSlot struct {
	ID        string `json:"id"`
	RefereeID string `json:"referee_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Validate checks if the DateSlot has valid data and is not in the past relative to today.
// PRE: today is a YYYY-MM-DD date
// POST: Returns nil if valid, error otherwise
func (s *DateSlot) Validate(today string) error {
	if s.RefereeID == "" {
		return ErrEmptyRefereeID
	}
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return ErrInvalidDate
	}
	// YYYY-MM-DD sorts lexically.
	if s.Date < today {
		return ErrDateInPast
	}
	return validateRange(s.StartTime, s.EndTime)
}

// Overlaps reports whether the slot intersects the half-open window [start, end).
// INVARIANT: slot.start < end && slot.end > start
func (s *DateSlot) Overlaps(start, end string) bool {
	return s.StartTime < end && s.EndTime > start
}

// Covers reports whether the slot is on date and overlaps the window.
func (s *DateSlot) Covers(date, start, end string) bool {
	return s.Date == date && s.Overlaps(start, end)
}

// ParseClock parses an HH:MM time into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, ErrInvalidTime
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock formats minutes since midnight as HH:MM, clamping to 23:59.
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > 23*60+59 {
		minutes = 23*60 + 59
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MatchWindow returns the HH:MM range covered by a match kicking off at kickoff
// and lasting duration, clamped to the same day.
// PRE: kickoff is HH:MM
func MatchWindow(kickoff string, duration time.Duration) (string, string, error) {
	start, err := ParseClock(kickoff)
	if err != nil {
		return "", "", err
	}
	return FormatClock(start), FormatClock(start + int(duration/time.Minute)), nil
}

func validateRange(start, end string) error {
	s, err := ParseClock(start)
	if err != nil {
		return err
	}
	e, err := ParseClock(end)
	if err != nil {
		return err
	}
	if e <= s {
		return ErrEndBeforeStart
	}
	return nil
}
