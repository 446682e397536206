package referee

import (
	"errors"
	"strings"
	"time"
)

// Verification status constants
const (
	VerificationNotProvided = "not_provided"
	VerificationPending     = "pending"
	VerificationVerified    = "verified"
	VerificationRejected    = "rejected"
)

// Compliance status constants (safeguarding / DBS check)
const (
	ComplianceNotProvided = "not_provided"
	CompliancePending     = "pending"
	ComplianceVerified    = "verified"
	ComplianceExpired     = "expired"
)

// Level constants
const (
	LevelTrainee  = "trainee"
	LevelCounty   = "county"
	LevelRegional = "regional"
	LevelNational = "national"
)

// MaxTravelRadiusKm caps the self-declared travel radius.
const MaxTravelRadiusKm = 200

// MaxReviewNoteLength caps the admin note left on a rejection.
const MaxReviewNoteLength = 500

// ValidLevels contains all valid referee levels. Empty is also accepted.
var ValidLevels = []string{LevelTrainee, LevelCounty, LevelRegional, LevelNational}

// ValidComplianceStatuses contains all compliance statuses an admin may set.
var ValidComplianceStatuses = []string{ComplianceNotProvided, CompliancePending, ComplianceVerified, ComplianceExpired}

// Domain errors
var (
	ErrEmptyProfileID     = errors.New("profile ID is required")
	ErrInvalidFANumber    = errors.New("FA number must be 8 to 10 digits")
	ErrInvalidRadius      = errors.New("travel radius must be between 0 and 200 km")
	ErrInvalidLevel       = errors.New("level must be one of: trainee, county, regional, national")
	ErrInvalidCompliance  = errors.New("compliance status must be one of: not_provided, pending, verified, expired")
	ErrNotPendingReview   = errors.New("referee has no pending verification")
	ErrReviewNoteTooLong  = errors.New("review note cannot exceed 500 characters")
	ErrRejectionNeedsNote = errors.New("a note is required when rejecting verification")
	ErrAlreadyVerified    = errors.New("FA number is already verified")
	ErrCountyTooLong      = errors.New("county cannot exceed 64 characters")
)

// Profile holds the referee-specific attributes attached to a profile with the referee role.
type Profile struct {
	ProfileID          string    `json:"profile_id"`
	FANumber           string    `json:"fa_number"`
	VerificationStatus string    `json:"verification_status"`
	ComplianceStatus   string    `json:"compliance_status"`
	County             string    `json:"county"`
	TravelRadiusKm     int       `json:"travel_radius_km"`
	CentralVenueOptIn  bool      `json:"central_venue_opt_in"`
	Level              string    `json:"level"`
	ReviewNote         string    `json:"review_note"`
	UpdatedAt          time.Time `json:"updated_at,omitzero"`
}

// New returns a referee profile with both statuses at not_provided.
// POST: VerificationStatus and ComplianceStatus are not_provided
func New(profileID string, now time.Time) Profile {
	return Profile{
		ProfileID:          profileID,
		VerificationStatus: VerificationNotProvided,
		ComplianceStatus:   ComplianceNotProvided,
		UpdatedAt:          now,
	}
}

// IsValidFANumber reports whether s is an FA registration number: 8 to 10 ASCII digits.
func IsValidFANumber(s string) bool {
	if len(s) < 8 || len(s) > 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Validate checks if the referee Profile has valid data.
// PRE: Profile struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Profile) Validate() error {
	if p.ProfileID == "" {
		return ErrEmptyProfileID
	}
	if p.FANumber != "" && !IsValidFANumber(p.FANumber) {
		return ErrInvalidFANumber
	}
	if p.TravelRadiusKm < 0 || p.TravelRadiusKm > MaxTravelRadiusKm {
		return ErrInvalidRadius
	}
	if p.Level != "" && !contains(ValidLevels, p.Level) {
		return ErrInvalidLevel
	}
	if !contains(ValidComplianceStatuses, p.ComplianceStatus) {
		return ErrInvalidCompliance
	}
	if len(p.County) > 64 {
		return ErrCountyTooLong
	}
	if len(p.ReviewNote) > MaxReviewNoteLength {
		return ErrReviewNoteTooLong
	}
	return nil
}

// SubmitFANumber records a new FA number and queues it for admin review.
// PRE: number is 8-10 digits
// POST: FANumber set, VerificationStatus pending, ReviewNote cleared
func (p *Profile) SubmitFANumber(number string, now time.Time) error {
	number = strings.TrimSpace(number)
	if !IsValidFANumber(number) {
		return ErrInvalidFANumber
	}
	if p.VerificationStatus == VerificationVerified && p.FANumber == number {
		return ErrAlreadyVerified
	}
	p.FANumber = number
	p.VerificationStatus = VerificationPending
	p.ReviewNote = ""
	p.UpdatedAt = now
	return nil
}

// Approve marks a pending FA number as verified.
// PRE: VerificationStatus is pending
// POST: VerificationStatus is verified
func (p *Profile) Approve(now time.Time) error {
	if p.VerificationStatus != VerificationPending {
		return ErrNotPendingReview
	}
	p.VerificationStatus = VerificationVerified
	p.ReviewNote = ""
	p.UpdatedAt = now
	return nil
}

// Reject marks a pending FA number as rejected with an explanatory note.
// PRE: VerificationStatus is pending; note is non-empty
// POST: VerificationStatus is rejected, ReviewNote set
func (p *Profile) Reject(note string, now time.Time) error {
	if p.VerificationStatus != VerificationPending {
		return ErrNotPendingReview
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return ErrRejectionNeedsNote
	}
	if len(note) > MaxReviewNoteLength {
		return ErrReviewNoteTooLong
	}
	p.VerificationStatus = VerificationRejected
	p.ReviewNote = note
	p.UpdatedAt = now
	return nil
}

// SetCompliance sets the compliance status.
// PRE: status is one of ValidComplianceStatuses
func (p *Profile) SetCompliance(status string, now time.Time) error {
	if !contains(ValidComplianceStatuses, status) {
		return ErrInvalidCompliance
	}
	p.ComplianceStatus = status
	p.UpdatedAt = now
	return nil
}

// IsVerified reports whether the FA number has been verified.
func (p *Profile) IsVerified() bool {
	return p.VerificationStatus == VerificationVerified
}

// AwaitingReview reports whether the referee belongs in the admin verification queue.
func (p *Profile) AwaitingReview() bool {
	return p.VerificationStatus == VerificationPending || p.ComplianceStatus == CompliancePending
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
