package profile

import (
	"context"

	domain "whistle/internal/domain/profile"
)

// Store persists Profile state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (domain.Profile, error)
	Save(ctx context.Context, value domain.Profile) error
	List(ctx context.Context, filter ListFilter) ([]domain.Profile, error)
	CountByRole(ctx context.Context, role string) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit  int
	Offset int
	Role   string
}

var _ Store = (*SQLiteStore)(nil)
