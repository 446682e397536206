package profile

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength    = 254
	MaxFullNameLength = 120
	MaxPhoneLength    = 32
	MinPasswordLength = 12
)

// Role constants
const (
	RoleCoach   = "coach"
	RoleReferee = "referee"
	RoleAdmin   = "admin"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleCoach, RoleReferee, RoleAdmin}

// Domain errors
var (
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmailTooLong     = errors.New("email cannot exceed 254 characters")
	ErrInvalidRole      = errors.New("role must be one of: coach, referee, admin")
	ErrFullNameTooLong  = errors.New("full name cannot exceed 120 characters")
	ErrPhoneTooLong     = errors.New("phone cannot exceed 32 characters")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrWrongPassword    = errors.New("incorrect password")
)

// Profile is the identity of a coach, referee or admin.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Postcode     string    `json:"postcode"`
	CreatedAt    time.Time `json:"created_at"`
	FailedLogins int       `json:"-"`
	LockedUntil  time.Time `json:"-"`
}

// Validate checks if the Profile has valid data.
// PRE: Profile struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return ErrEmptyEmail
	}
	if len(p.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(p.Email, "@") {
		return ErrInvalidEmail
	}
	if !IsValidRole(p.Role) {
		return ErrInvalidRole
	}
	if len(p.FullName) > MaxFullNameLength {
		return ErrFullNameTooLong
	}
	if len(p.Phone) > MaxPhoneLength {
		return ErrPhoneTooLong
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt with cost 12.
// PRE: plaintext is non-empty and >= 12 characters
// POST: PasswordHash is set to bcrypt hash
func (p *Profile) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return err
	}
	p.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// INVARIANT: Profile fields are not mutated
func (p *Profile) CheckPassword(plaintext string) error {
	if p.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the profile is locked out at the given time.
func (p *Profile) IsLocked(now time.Time) bool {
	if p.LockedUntil.IsZero() {
		return false
	}
	return now.Before(p.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the profile after 5 failures.
// POST: FailedLogins incremented; LockedUntil set if >= 5 failures
func (p *Profile) RecordFailedLogin(now time.Time) {
	p.FailedLogins++
	if p.FailedLogins >= 5 {
		p.LockedUntil = now.Add(15 * time.Minute)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
func (p *Profile) ResetFailedLogins() {
	p.FailedLogins = 0
	p.LockedUntil = time.Time{}
}

// DisplayName returns the full name, falling back to the email address.
func (p *Profile) DisplayName() string {
	if strings.TrimSpace(p.FullName) != "" {
		return p.FullName
	}
	return p.Email
}

// IsCoach reports whether the profile has the coach role.
func (p *Profile) IsCoach() bool { return p.Role == RoleCoach }

// IsReferee reports whether the profile has the referee role.
func (p *Profile) IsReferee() bool { return p.Role == RoleReferee }

// IsAdmin reports whether the profile has the admin role.
func (p *Profile) IsAdmin() bool { return p.Role == RoleAdmin }

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
