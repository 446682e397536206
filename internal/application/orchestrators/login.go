package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"whistle/internal/domain/audit"
	"whistle/internal/domain/profile"
)

// ProfileStoreForLogin defines the store interface needed by Login.
type ProfileStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (profile.Profile, error)
	Save(ctx context.Context, p profile.Profile) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	ProfileID string
	Email     string
	Role      string
	FullName  string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	ProfileStore ProfileStoreForLogin
	AuditStore   AuditStoreForRecord // optional
	Now          func() time.Time
}

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed attempts")
)

// ExecuteLogin validates credentials and returns profile info for session creation.
// PRE: Valid email and password provided
// POST: Returns profile info on success, records failed login on failure
// INVARIANT: Profile must not be locked
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := deps.Now()

	p, err := deps.ProfileStore.GetByEmail(ctx, email)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "not_found")
		return LoginResult{}, ErrInvalidCredentials
	}

	if p.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "locked")
		return LoginResult{}, ErrAccountLocked
	}

	if err := p.CheckPassword(input.Password); err != nil {
		p.RecordFailedLogin(now)
		if err := deps.ProfileStore.Save(ctx, p); err != nil {
			slog.Error("auth_event", "event", "login_save_failed", "email", email, "error", err)
		}
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "wrong_password", "failed_logins", p.FailedLogins)
		if p.IsLocked(now) {
			recordAudit(ctx, deps.AuditStore, audit.New(audit.Actor{ID: p.ID, Email: p.Email, Role: p.Role}, audit.CategorySecurity, audit.ActionLockout, now).
				Warning().
				On("profile", p.ID).
				Describe("locked until %s after %d failed logins", p.LockedUntil.Format(time.RFC3339), p.FailedLogins))
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	if p.FailedLogins > 0 || !p.LockedUntil.IsZero() {
		p.ResetFailedLogins()
		if err := deps.ProfileStore.Save(ctx, p); err != nil {
			slog.Error("auth_event", "event", "login_save_failed", "email", email, "error", err)
		}
	}

	slog.Info("auth_event", "event", "login_success", "email", email, "role", p.Role)

	return LoginResult{
		ProfileID: p.ID,
		Email:     p.Email,
		Role:      p.Role,
		FullName:  p.FullName,
	}, nil
}
