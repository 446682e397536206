package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"whistle/internal/domain/profile"
	"whistle/internal/domain/referee"
)

// DemoSeedDeps holds stores needed for demo account seeding.
type DemoSeedDeps struct {
	Register          RegisterDeps
	RefereeStore      RefereeStoreForUpdate
	AvailabilityStore AvailabilityStoreForSet
}

// demoAccountDef defines a single demo account to seed.
type demoAccountDef struct {
	Email    string
	Role     string
	FullName string
	County   string
	Days     []int // weekly availability, 09:00-17:00
}

// demoPassword is shared by every demo account.
const demoPassword = "whistle-demo-pass"

// demoAccounts returns the list of demo accounts to seed.
func demoAccounts() []demoAccountDef {
	return []demoAccountDef{
		{Email: "coach@whistle.local", Role: profile.RoleCoach, FullName: "Demo Coach"},
		{Email: "ref.sat@whistle.local", Role: profile.RoleReferee, FullName: "Sam Saturday", County: "London", Days: []int{6}},
		{Email: "ref.sun@whistle.local", Role: profile.RoleReferee, FullName: "Sunny Sunday", County: "Essex", Days: []int{0, 6}},
	}
}

// ExecuteSeedDemoAccounts creates one coach and two referees with weekend availability
// for local development. It is idempotent and skips accounts that already exist.
// PRE: Database is migrated; not production
// POST: Demo accounts exist; returns how many were created
func ExecuteSeedDemoAccounts(ctx context.Context, deps DemoSeedDeps) (int, error) {
	created := 0
	for _, def := range demoAccounts() {
		p, err := ExecuteRegister(ctx, RegisterInput{
			Email:    def.Email,
			Password: demoPassword,
			Role:     def.Role,
			FullName: def.FullName,
		}, deps.Register)
		if errors.Is(err, ErrEmailAlreadyExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed demo account %s: %w", def.Email, err)
		}

		if p.IsReferee() {
			if _, err := ExecuteUpdateRefereeProfile(ctx, UpdateRefereeProfileInput{
				RefereeID:      p.ID,
				County:         def.County,
				TravelRadiusKm: 25,
				Level:          referee.LevelCounty,
			}, RefereeProfileDeps{RefereeStore: deps.RefereeStore, Now: deps.Register.Now}); err != nil {
				return created, fmt.Errorf("seed demo referee %s: %w", def.Email, err)
			}
			slots := make([]WeeklySlotInput, 0, len(def.Days))
			for _, d := range def.Days {
				slots = append(slots, WeeklySlotInput{DayOfWeek: d, StartTime: "09:00", EndTime: "17:00"})
			}
			if _, err := ExecuteSetWeeklyAvailability(ctx, SetWeeklyAvailabilityInput{RefereeID: p.ID, Slots: slots}, SetAvailabilityDeps{
				AvailabilityStore: deps.AvailabilityStore,
				GenerateID:        deps.Register.GenerateID,
				Now:               deps.Register.Now,
			}); err != nil {
				return created, fmt.Errorf("seed demo availability %s: %w", def.Email, err)
			}
		}

		created++
		slog.Info("seed_event", "event", "demo_account_created", "email", def.Email, "role", def.Role)
	}

	if created > 0 {
		slog.Info("seed_event", "event", "demo_accounts_seeded", "created", created)
	}
	return created, nil
}

