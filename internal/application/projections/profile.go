package projections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whistle/internal/adapters/storage"
	domainAvailability "whistle/internal/domain/availability"
	domainProfile "whistle/internal/domain/profile"
	domainReferee "whistle/internal/domain/referee"
)

// GetMeResult carries the signed-in profile and, for referees, the referee profile.
type GetMeResult struct {
	Profile domainProfile.Profile  `json:"profile"`
	Referee *domainReferee.Profile `json:"referee,omitempty"`
}

// GetMeDeps holds dependencies for GetMe.
type GetMeDeps struct {
	ProfileStore ProfileStore
	RefereeStore RefereeStore
}

// QueryGetMe returns the caller's own profile.
func QueryGetMe(ctx context.Context, profileID string, deps GetMeDeps) (GetMeResult, error) {
	p, err := deps.ProfileStore.GetByID(ctx, profileID)
	if err != nil {
		return GetMeResult{}, err
	}
	result := GetMeResult{Profile: p}
	if p.IsReferee() && deps.RefereeStore != nil {
		r, err := deps.RefereeStore.Get(ctx, p.ID)
		switch {
		case err == nil:
			result.Referee = &r
		case !errors.Is(err, storage.ErrNotFound):
			return GetMeResult{}, fmt.Errorf("get referee profile: %w", err)
		}
	}
	return result, nil
}

// GetAvailabilityResult carries a referee's weekly slots and upcoming dated slots.
type GetAvailabilityResult struct {
	Weekly []domainAvailability.WeeklySlot `json:"weekly"`
	Dates  []domainAvailability.DateSlot   `json:"dates"`
}

// GetAvailabilityDeps holds dependencies for GetAvailability.
type GetAvailabilityDeps struct {
	AvailabilityStore AvailabilityStore
	Location          *time.Location
	Now               func() time.Time
}

// QueryGetAvailability returns the referee's availability from today onwards.
func QueryGetAvailability(ctx context.Context, refereeID string, deps GetAvailabilityDeps) (GetAvailabilityResult, error) {
	weekly, err := deps.AvailabilityStore.ListWeekly(ctx, refereeID)
	if err != nil {
		return GetAvailabilityResult{}, fmt.Errorf("list weekly availability: %w", err)
	}
	dates, err := deps.AvailabilityStore.ListDates(ctx, refereeID, localToday(deps.Now(), deps.Location))
	if err != nil {
		return GetAvailabilityResult{}, fmt.Errorf("list date availability: %w", err)
	}
	if weekly == nil {
		weekly = []domainAvailability.WeeklySlot{}
	}
	if dates == nil {
		dates = []domainAvailability.DateSlot{}
	}
	return GetAvailabilityResult{Weekly: weekly, Dates: dates}, nil
}
