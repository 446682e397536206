package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"whistle/internal/domain/profile"
)

// ProfileStoreForUpdate defines the store interface needed by profile edits.
type ProfileStoreForUpdate interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
	Save(ctx context.Context, p profile.Profile) error
}

// UpdateProfileInput carries the editable contact fields.
type UpdateProfileInput struct {
	ProfileID string
	FullName  string
	Phone     string
	Postcode  string
}

// UpdateProfileDeps holds dependencies for UpdateProfile.
type UpdateProfileDeps struct {
	ProfileStore ProfileStoreForUpdate
}

// ExecuteUpdateProfile updates name, phone and postcode.
// PRE: ProfileID identifies an existing profile
// POST: Contact fields replaced; email, role and password unchanged
func ExecuteUpdateProfile(ctx context.Context, input UpdateProfileInput, deps UpdateProfileDeps) (profile.Profile, error) {
	p, err := deps.ProfileStore.GetByID(ctx, input.ProfileID)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.FullName = strings.TrimSpace(input.FullName)
	p.Phone = strings.TrimSpace(input.Phone)
	p.Postcode = strings.ToUpper(strings.TrimSpace(input.Postcode))
	if err := p.Validate(); err != nil {
		return profile.Profile{}, err
	}
	if err := deps.ProfileStore.Save(ctx, p); err != nil {
		return profile.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// ChangePasswordInput carries input for the change-password orchestrator.
type ChangePasswordInput struct {
	ProfileID       string
	CurrentPassword string
	NewPassword     string
}

var (
	ErrCurrentPasswordWrong = errors.New("current password is incorrect")
	ErrNewPasswordSame      = errors.New("new password must be different from current password")
	ErrPasswordFieldsEmpty  = errors.New("current and new password are required")
)

// ExecuteChangePassword validates the current password and updates to the new one.
// PRE: ProfileID is valid, both passwords are non-empty
// POST: Password is updated
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps UpdateProfileDeps) error {
	if input.ProfileID == "" || input.CurrentPassword == "" || input.NewPassword == "" {
		return ErrPasswordFieldsEmpty
	}

	p, err := deps.ProfileStore.GetByID(ctx, input.ProfileID)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	if err := p.CheckPassword(input.CurrentPassword); err != nil {
		return ErrCurrentPasswordWrong
	}
	if input.CurrentPassword == input.NewPassword {
		return ErrNewPasswordSame
	}
	if err := p.SetPassword(input.NewPassword); err != nil {
		return err
	}
	if err := deps.ProfileStore.Save(ctx, p); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "profile_id", input.ProfileID)
	return nil
}
