package audit

import (
	"context"
	"time"

	domain "whistle/internal/domain/audit"
)

// Store persists the append-only audit log.
type Store interface {
	// Save appends an event.
	// PRE: event.Validate() == nil
	Save(ctx context.Context, event domain.Event) error

	// List returns events matching filter, newest first, at most limit.
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)

	// GetByID returns the event or an error wrapping storage.ErrNotFound.
	GetByID(ctx context.Context, id string) (domain.Event, error)
}

// Filter narrows List. Zero fields match every event; Since and Until are inclusive.
type Filter struct {
	Category   domain.Category
	Action     domain.Action
	ActorID    string
	ResourceID string
	Since      time.Time
	Until      time.Time
}

var _ Store = (*SQLiteStore)(nil)
