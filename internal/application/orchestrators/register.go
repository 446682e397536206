package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"whistle/internal/adapters/storage"
	"whistle/internal/domain/profile"
	"whistle/internal/domain/referee"
)

// ProfileStoreForRegister defines the store interface needed by Register.
type ProfileStoreForRegister interface {
	GetByEmail(ctx context.Context, email string) (profile.Profile, error)
	Save(ctx context.Context, p profile.Profile) error
}

// RefereeStoreForRegister defines the referee store interface needed by Register.
type RefereeStoreForRegister interface {
	Save(ctx context.Context, r referee.Profile) error
}

// RegisterInput carries input for the register orchestrator.
type RegisterInput struct {
	Email    string
	Password string
	Role     string
	FullName string
	Phone    string
	Postcode string
}

// RegisterDeps holds dependencies for Register.
type RegisterDeps struct {
	ProfileStore ProfileStoreForRegister
	RefereeStore RefereeStoreForRegister
	GenerateID   func() string
	Now          func() time.Time
}

var (
	ErrEmailAlreadyExists = errors.New("an account with this email already exists")
	ErrSelfRegisterAdmin  = errors.New("role must be coach or referee")
)

// ExecuteRegister creates a coach or referee profile. Referees also get a referee
// profile with both review statuses at not_provided.
// PRE: Valid email, password >= 12 chars, role coach or referee
// POST: Profile created with hashed password
// INVARIANT: Email must be unique
func ExecuteRegister(ctx context.Context, input RegisterInput, deps RegisterDeps) (profile.Profile, error) {
	if input.Role != profile.RoleCoach && input.Role != profile.RoleReferee {
		return profile.Profile{}, ErrSelfRegisterAdmin
	}
	return createProfile(ctx, input, deps)
}

func createProfile(ctx context.Context, input RegisterInput, deps RegisterDeps) (profile.Profile, error) {
	email := strings.TrimSpace(input.Email)
	if _, err := deps.ProfileStore.GetByEmail(ctx, email); err == nil {
		return profile.Profile{}, ErrEmailAlreadyExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return profile.Profile{}, fmt.Errorf("check email: %w", err)
	}

	now := deps.Now()
	p := profile.Profile{
		ID:        deps.GenerateID(),
		Email:     email,
		Role:      input.Role,
		FullName:  strings.TrimSpace(input.FullName),
		Phone:     strings.TrimSpace(input.Phone),
		Postcode:  strings.ToUpper(strings.TrimSpace(input.Postcode)),
		CreatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return profile.Profile{}, err
	}
	if err := p.SetPassword(input.Password); err != nil {
		return profile.Profile{}, err
	}

	if err := deps.ProfileStore.Save(ctx, p); err != nil {
		if storage.IsUniqueViolation(err) {
			return profile.Profile{}, ErrEmailAlreadyExists
		}
		return profile.Profile{}, fmt.Errorf("save profile: %w", err)
	}

	if p.IsReferee() {
		if err := deps.RefereeStore.Save(ctx, referee.New(p.ID, now)); err != nil {
			return profile.Profile{}, fmt.Errorf("save referee profile: %w", err)
		}
	}

	slog.Info("auth_event", "event", "profile_created", "profile_id", p.ID, "role", p.Role)
	return p, nil
}

// ProfileStoreForSeed defines the store interface needed by SeedAdmin.
type ProfileStoreForSeed interface {
	ProfileStoreForRegister
	CountByRole(ctx context.Context, role string) (int, error)
}

// SeedAdminDeps holds dependencies for SeedAdmin.
type SeedAdminDeps struct {
	ProfileStore ProfileStoreForSeed
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSeedAdmin creates the admin profile if no admin exists.
// PRE: Database is initialized
// POST: Admin profile created if the admin count is 0; returns whether one was created
func ExecuteSeedAdmin(ctx context.Context, email, password string, deps SeedAdminDeps) (bool, error) {
	count, err := deps.ProfileStore.CountByRole(ctx, profile.RoleAdmin)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	_, err = createProfile(ctx, RegisterInput{
		Email:    email,
		Password: password,
		Role:     profile.RoleAdmin,
		FullName: "Administrator",
	}, RegisterDeps{
		ProfileStore: deps.ProfileStore,
		GenerateID:   deps.GenerateID,
		Now:          deps.Now,
	})
	if err != nil {
		return false, err
	}

	slog.Info("auth_event", "event", "admin_seeded", "email", email)
	return true, nil
}
