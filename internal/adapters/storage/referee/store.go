package referee

import (
	"context"

	domain "whistle/internal/domain/referee"
)

// Store persists referee profile state.
type Store interface {
	Get(ctx context.Context, profileID string) (domain.Profile, error)
	Save(ctx context.Context, value domain.Profile) error
	List(ctx context.Context, filter ListFilter) ([]Row, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List and Count.
// Sort is a column key from SortColumns; unknown keys fall back to name.
type ListFilter struct {
	Limit              int
	Offset             int
	County             string
	VerificationStatus string
	ComplianceStatus   string
	Search             string // matches name or email
	PendingReview      bool   // verification or compliance pending
	Sort               string
	Desc               bool
}

// Row is a referee profile joined with its owning account details.
type Row struct {
	Referee  domain.Profile
	FullName string
	Email    string
	Phone    string
}

// SortColumns maps the public sort keys to SQL expressions.
var SortColumns = map[string]string{
	"name":         "p.full_name",
	"county":       "r.county",
	"verification": "r.verification_status",
	"updated":      "r.updated_at",
}

var _ Store = (*SQLiteStore)(nil)
