package projections

import (
	"context"
	"net/url"
	"strconv"

	refereeStore "whistle/internal/adapters/storage/referee"
	"whistle/internal/application/listutil"
)

// RefereeSortColumns are the sort keys accepted by the admin referee list.
var RefereeSortColumns = []string{"name", "county", "verification", "updated"}

// RefereeFilterKeys are the exact-match filters accepted by the admin referee list.
var RefereeFilterKeys = []string{"county", "verification_status", "compliance_status", "pending"}

// RefereeListItem is one row of the admin referee list.
type RefereeListItem struct {
	ProfileID          string `json:"profile_id"`
	FullName           string `json:"full_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	FANumber           string `json:"fa_number"`
	VerificationStatus string `json:"verification_status"`
	ComplianceStatus   string `json:"compliance_status"`
	County             string `json:"county"`
	Level              string `json:"level"`
	TravelRadiusKm     int    `json:"travel_radius_km"`
	CentralVenueOptIn  bool   `json:"central_venue_opt_in"`
	ReviewNote         string `json:"review_note,omitempty"`
}

// ListRefereesResult carries one page of referees.
type ListRefereesResult struct {
	Referees []RefereeListItem `json:"referees"`
	Page     listutil.PageInfo `json:"page"`
}

// ListRefereesDeps holds dependencies for the admin referee queries.
type ListRefereesDeps struct {
	RefereeStore RefereeStore
}

// QueryListReferees returns a filtered, sorted page of referees.
// PRE: caller is an admin
// POST: Returns at most params.PerPage rows with page metadata
func QueryListReferees(ctx context.Context, params listutil.ListParams, deps ListRefereesDeps) (ListRefereesResult, error) {
	filter := refereeStore.ListFilter{
		County:             params.Filters["county"],
		VerificationStatus: params.Filters["verification_status"],
		ComplianceStatus:   params.Filters["compliance_status"],
		Search:             params.Search,
		Sort:               params.Sort,
		Desc:               params.Dir == "desc",
	}
	if pending, err := strconv.ParseBool(params.Filters["pending"]); err == nil {
		filter.PendingReview = pending
	}

	total, err := deps.RefereeStore.Count(ctx, filter)
	if err != nil {
		return ListRefereesResult{}, err
	}
	page := listutil.NewPageInfo(params.Page, params.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = page.Offset()

	rows, err := deps.RefereeStore.List(ctx, filter)
	if err != nil {
		return ListRefereesResult{}, err
	}
	return ListRefereesResult{Referees: refereeItems(rows), Page: page}, nil
}

// QueryGetVerificationQueue returns referees whose verification or compliance
// is awaiting admin review, oldest update first.
// PRE: caller is an admin
func QueryGetVerificationQueue(ctx context.Context, deps ListRefereesDeps) ([]RefereeListItem, error) {
	rows, err := deps.RefereeStore.List(ctx, refereeStore.ListFilter{
		PendingReview: true,
		Sort:          "updated",
		Limit:         listutil.PerPageOptions[len(listutil.PerPageOptions)-1],
	})
	if err != nil {
		return nil, err
	}
	return refereeItems(rows), nil
}

// ParseRefereeListParams parses the admin referee list query string.
func ParseRefereeListParams(q url.Values) listutil.ListParams {
	return listutil.ParseListParams(q, RefereeSortColumns, RefereeFilterKeys)
}

func refereeItems(rows []refereeStore.Row) []RefereeListItem {
	items := make([]RefereeListItem, 0, len(rows))
	for _, row := range rows {
		r := row.Referee
		items = append(items, RefereeListItem{
			ProfileID:          r.ProfileID,
			FullName:           row.FullName,
			Email:              row.Email,
			Phone:              row.Phone,
			FANumber:           r.FANumber,
			VerificationStatus: r.VerificationStatus,
			ComplianceStatus:   r.ComplianceStatus,
			County:             r.County,
			Level:              r.Level,
			TravelRadiusKm:     r.TravelRadiusKm,
			CentralVenueOptIn:  r.CentralVenueOptIn,
			ReviewNote:         r.ReviewNote,
		})
	}
	return items
}
