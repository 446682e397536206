package outbox

import (
	"context"
	"time"

	domain "whistle/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or an error wrapping storage.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save persists an outbox entry (insert or update).
	// PRE: entity has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns pending and retrying entries after the cursor, oldest first.
	// PRE: limit > 0
	ListPending(ctx context.Context, afterCreatedAt time.Time, afterID string, limit int) ([]domain.Entry, error)

	// List returns entries matching filter, most recently attempted first.
	// PRE: filter.Limit > 0
	List(ctx context.Context, filter ListFilter) ([]domain.Entry, error)

	// CountByStatus returns the number of entries per status.
	CountByStatus(ctx context.Context) (map[string]int, error)

	// PurgeDone deletes done entries created before cutoff.
	// POST: Returns the number of rows removed
	PurgeDone(ctx context.Context, cutoff time.Time) (int, error)
}

// ListFilter narrows List by status and action type. Empty fields match all.
type ListFilter struct {
	Status     string
	ActionType string
	Limit      int
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
