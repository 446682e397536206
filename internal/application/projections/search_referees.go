package projections

import (
	"context"
	"strings"

	availabilityStore "whistle/internal/adapters/storage/availability"
	domainAvailability "whistle/internal/domain/availability"
	domainBooking "whistle/internal/domain/booking"
)

// MaxSearchResults caps the targeted search result list.
const MaxSearchResults = 50

// SearchAvailableRefereesQuery carries query parameters.
type SearchAvailableRefereesQuery struct {
	BookingID        string
	Viewer           Viewer
	County           string // optional exact county match
	CentralVenueOnly bool
	Limit            int
}

// AvailableReferee is a referee whose dated availability overlaps the match window.
type AvailableReferee struct {
	RefereeID          string `json:"referee_id"`
	FullName           string `json:"full_name"`
	County             string `json:"county"`
	Level              string `json:"level"`
	VerificationStatus string `json:"verification_status"`
	CentralVenueOptIn  bool   `json:"central_venue_opt_in"`
	SlotStart          string `json:"slot_start"`
	SlotEnd            string `json:"slot_end"`
}

// SearchAvailableRefereesResult carries the match window and the candidates.
type SearchAvailableRefereesResult struct {
	Date     string             `json:"date"`
	Start    string             `json:"start"`
	End      string             `json:"end"`
	Referees []AvailableReferee `json:"referees"`
}

// SearchAvailableRefereesDeps holds dependencies for SearchAvailableReferees.
type SearchAvailableRefereesDeps struct {
	BookingStore      BookingStore
	AvailabilityStore AvailabilityStore
}

// QuerySearchAvailableReferees finds referees with a dated slot overlapping
// kickoff..kickoff+2h on the match date. Referees already offered the booking
// are excluded. Results are unranked.
// PRE: Viewer is the booking's coach or an admin
// POST: Returns at most MaxSearchResults candidates
func QuerySearchAvailableReferees(ctx context.Context, query SearchAvailableRefereesQuery, deps SearchAvailableRefereesDeps) (SearchAvailableRefereesResult, error) {
	b, err := deps.BookingStore.Get(ctx, query.BookingID)
	if err != nil {
		return SearchAvailableRefereesResult{}, err
	}
	if b.CoachID != query.Viewer.ID && !query.Viewer.IsAdmin() {
		return SearchAvailableRefereesResult{}, ErrNotVisible
	}
	start, end, err := domainAvailability.MatchWindow(b.KickoffTime, domainBooking.MatchDuration)
	if err != nil {
		return SearchAvailableRefereesResult{}, err
	}

	candidates, err := deps.AvailabilityStore.SearchDates(ctx, availabilityStore.DateSearchFilter{
		Date:             b.MatchDate,
		Start:            start,
		End:              end,
		County:           strings.TrimSpace(query.County),
		CentralVenueOnly: query.CentralVenueOnly,
		ExcludeBookingID: b.ID,
		Limit:            clampLimit(query.Limit, MaxSearchResults, MaxSearchResults),
	})
	if err != nil {
		return SearchAvailableRefereesResult{}, err
	}

	result := SearchAvailableRefereesResult{
		Date:     b.MatchDate,
		Start:    start,
		End:      end,
		Referees: make([]AvailableReferee, 0, len(candidates)),
	}
	for _, c := range candidates {
		result.Referees = append(result.Referees, AvailableReferee{
			RefereeID:          c.RefereeID,
			FullName:           c.FullName,
			County:             c.County,
			Level:              c.Level,
			VerificationStatus: c.VerificationStatus,
			CentralVenueOptIn:  c.CentralVenueOptIn,
			SlotStart:          c.Slot.StartTime,
			SlotEnd:            c.Slot.EndTime,
		})
	}
	return result, nil
}
