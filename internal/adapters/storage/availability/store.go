package availability

import (
	"context"

	domain "whistle/internal/domain/availability"
)

// Store persists referee availability and answers matching queries.
type Store interface {
	ReplaceWeekly(ctx context.Context, refereeID string, slots []domain.WeeklySlot) error
	ReplaceDates(ctx context.Context, refereeID string, slots []domain.DateSlot) error
	ListWeekly(ctx context.Context, refereeID string) ([]domain.WeeklySlot, error)
	ListDates(ctx context.Context, refereeID, fromDate string) ([]domain.DateSlot, error)
	DeleteOverlappingDates(ctx context.Context, refereeID, date, start, end string) (int, error)
	MatchWeekly(ctx context.Context, filter WeeklyMatchFilter) ([]string, error)
	SearchDates(ctx context.Context, filter DateSearchFilter) ([]Candidate, error)
}

// WeeklyMatchFilter selects referees with a recurring slot on DayOfWeek.
type WeeklyMatchFilter struct {
	DayOfWeek        int
	ExcludeBookingID string // skip referees already holding an offer on this booking
	Limit            int
}

// DateSearchFilter selects referees with a dated slot overlapping [Start, End) on Date.
type DateSearchFilter struct {
	Date             string
	Start            string
	End              string
	County           string
	CentralVenueOnly bool
	ExcludeBookingID string
	Limit            int
}

// Candidate is a referee whose dated availability matched a search.
type Candidate struct {
	RefereeID          string
	FullName           string
	County             string
	Level              string
	VerificationStatus string
	CentralVenueOptIn  bool
	Slot               domain.DateSlot
}

var _ Store = (*SQLiteStore)(nil)
