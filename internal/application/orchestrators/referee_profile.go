package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"whistle/internal/domain/referee"
)

// RefereeStoreForUpdate defines the referee store interface needed by referee self-service.
type RefereeStoreForUpdate interface {
	Get(ctx context.Context, profileID string) (referee.Profile, error)
	Save(ctx context.Context, r referee.Profile) error
}

// UpdateRefereeProfileInput carries the referee-editable attributes.
type UpdateRefereeProfileInput struct {
	RefereeID         string
	County            string
	TravelRadiusKm    int
	CentralVenueOptIn bool
	Level             string
}

// RefereeProfileDeps holds dependencies for referee self-service orchestrators.
type RefereeProfileDeps struct {
	RefereeStore RefereeStoreForUpdate
	Now          func() time.Time
}

// ExecuteUpdateRefereeProfile updates county, travel radius, central-venue opt-in and level.
// PRE: RefereeID has a referee profile
// POST: Attributes replaced; review statuses unchanged
func ExecuteUpdateRefereeProfile(ctx context.Context, input UpdateRefereeProfileInput, deps RefereeProfileDeps) (referee.Profile, error) {
	r, err := deps.RefereeStore.Get(ctx, input.RefereeID)
	if err != nil {
		return referee.Profile{}, fmt.Errorf("get referee: %w", err)
	}
	r.County = strings.TrimSpace(input.County)
	r.TravelRadiusKm = input.TravelRadiusKm
	r.CentralVenueOptIn = input.CentralVenueOptIn
	r.Level = strings.TrimSpace(input.Level)
	r.UpdatedAt = deps.Now()
	if err := r.Validate(); err != nil {
		return referee.Profile{}, err
	}
	if err := deps.RefereeStore.Save(ctx, r); err != nil {
		return referee.Profile{}, fmt.Errorf("save referee: %w", err)
	}
	return r, nil
}

// SubmitFANumberInput carries a referee's FA registration number.
type SubmitFANumberInput struct {
	RefereeID string
	FANumber  string
}

// ExecuteSubmitFANumber records the FA number and queues it for admin review.
// PRE: FANumber is 8 to 10 digits
// POST: VerificationStatus pending
func ExecuteSubmitFANumber(ctx context.Context, input SubmitFANumberInput, deps RefereeProfileDeps) (referee.Profile, error) {
	r, err := deps.RefereeStore.Get(ctx, input.RefereeID)
	if err != nil {
		return referee.Profile{}, fmt.Errorf("get referee: %w", err)
	}
	if err := r.SubmitFANumber(input.FANumber, deps.Now()); err != nil {
		return referee.Profile{}, err
	}
	if err := deps.RefereeStore.Save(ctx, r); err != nil {
		return referee.Profile{}, fmt.Errorf("save referee: %w", err)
	}

	slog.Info("verification_event", "event", "fa_number_submitted", "referee_id", r.ProfileID)
	return r, nil
}
