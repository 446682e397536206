package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"whistle/internal/adapters/storage"
	domain "whistle/internal/domain/profile"
)

const profileColumns = "id, email, password_hash, role, full_name, phone, postcode, created_at, failed_logins, locked_until"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new profile store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Profile by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profile WHERE id = ?", id)
	p, err := scanProfile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, fmt.Errorf("profile %s: %w", id, storage.ErrNotFound)
	}
	return p, err
}

// GetByEmail retrieves a Profile by email, case-insensitively.
// PRE: email is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profile WHERE email = ?", strings.TrimSpace(email))
	p, err := scanProfile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, fmt.Errorf("profile with email: %w", storage.ErrNotFound)
	}
	return p, err
}

// Save persists a Profile (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted; a duplicate email returns an error satisfying storage.IsUniqueViolation
func (s *SQLiteStore) Save(ctx context.Context, p domain.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profile (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email=excluded.email, password_hash=excluded.password_hash, role=excluded.role,
		   full_name=excluded.full_name, phone=excluded.phone, postcode=excluded.postcode,
		   failed_logins=excluded.failed_logins, locked_until=excluded.locked_until`,
		p.ID, p.Email, p.PasswordHash, p.Role, p.FullName, p.Phone, p.Postcode,
		storage.FormatTime(p.CreatedAt), p.FailedLogins, storage.FormatTime(p.LockedUntil))
	return err
}

// List retrieves Profiles based on the filter, newest first.
// PRE: filter.Limit > 0
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Profile, error) {
	var qb strings.Builder
	var args []any
	qb.WriteString("SELECT " + profileColumns + " FROM profile")
	if filter.Role != "" {
		qb.WriteString(" WHERE role = ?")
		args = append(args, filter.Role)
	}
	qb.WriteString(" ORDER BY created_at DESC LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// CountByRole returns the number of profiles with role.
func (s *SQLiteStore) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profile WHERE role = ?", role).Scan(&n)
	return n, err
}

// scanProfile extracts a Profile from a row scanner function.
func scanProfile(scan func(dest ...any) error) (domain.Profile, error) {
	var p domain.Profile
	var createdAt, lockedUntil string
	err := scan(&p.ID, &p.Email, &p.PasswordHash, &p.Role, &p.FullName, &p.Phone, &p.Postcode,
		&createdAt, &p.FailedLogins, &lockedUntil)
	if err != nil {
		return domain.Profile{}, err
	}
	p.CreatedAt = storage.ParseTime(createdAt)
	p.LockedUntil = storage.ParseTime(lockedUntil)
	return p, nil
}
