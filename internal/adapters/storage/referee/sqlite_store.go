package referee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"whistle/internal/adapters/storage"
	domain "whistle/internal/domain/referee"
)

const refereeColumns = "r.profile_id, r.fa_number, r.verification_status, r.compliance_status, r.county, r.travel_radius_km, r.central_venue_opt_in, r.level, r.review_note, r.updated_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new referee store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the referee profile for profileID.
// PRE: profileID is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, profileID string) (domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+refereeColumns+" FROM referee_profile r WHERE r.profile_id = ?", profileID)
	p, err := scanReferee(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, fmt.Errorf("referee profile %s: %w", profileID, storage.ErrNotFound)
	}
	return p, err
}

// Save persists a referee profile (insert or update).
// PRE: entity has been validated; the owning profile row exists
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, p domain.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO referee_profile (profile_id, fa_number, verification_status, compliance_status, county,
		   travel_radius_km, central_venue_opt_in, level, review_note, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET
		   fa_number=excluded.fa_number, verification_status=excluded.verification_status,
		   compliance_status=excluded.compliance_status, county=excluded.county,
		   travel_radius_km=excluded.travel_radius_km, central_venue_opt_in=excluded.central_venue_opt_in,
		   level=excluded.level, review_note=excluded.review_note, updated_at=excluded.updated_at`,
		p.ProfileID, p.FANumber, p.VerificationStatus, p.ComplianceStatus, p.County,
		p.TravelRadiusKm, storage.BoolInt(p.CentralVenueOptIn), p.Level, p.ReviewNote, storage.FormatTime(p.UpdatedAt))
	return err
}

// List retrieves referees joined with their profile, filtered and sorted.
// PRE: filter.Limit > 0
// POST: Returns matching rows
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Row, error) {
	where, args := buildWhere(filter)
	orderBy, ok := SortColumns[filter.Sort]
	if !ok {
		orderBy = SortColumns["name"]
	}
	dir := "ASC"
	if filter.Desc {
		dir = "DESC"
	}
	query := "SELECT " + refereeColumns + ", p.full_name, p.email, p.phone" +
		" FROM referee_profile r JOIN profile p ON p.id = r.profile_id" + where +
		" ORDER BY " + orderBy + " " + dir + ", r.profile_id LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Row
	for rows.Next() {
		var r Row
		var fullName, email, phone string
		ref, err := scanReferee(func(dest ...any) error {
			return rows.Scan(append(dest, &fullName, &email, &phone)...)
		})
		if err != nil {
			return nil, err
		}
		r.Referee, r.FullName, r.Email, r.Phone = ref, fullName, email, phone
		results = append(results, r)
	}
	return results, rows.Err()
}

// Count returns the number of referees matching filter, ignoring paging.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM referee_profile r JOIN profile p ON p.id = r.profile_id"+where, args...).Scan(&n)
	return n, err
}

func buildWhere(filter ListFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.County != "" {
		conds = append(conds, "r.county = ? COLLATE NOCASE")
		args = append(args, filter.County)
	}
	if filter.VerificationStatus != "" {
		conds = append(conds, "r.verification_status = ?")
		args = append(args, filter.VerificationStatus)
	}
	if filter.ComplianceStatus != "" {
		conds = append(conds, "r.compliance_status = ?")
		args = append(args, filter.ComplianceStatus)
	}
	if filter.PendingReview {
		conds = append(conds, "(r.verification_status = 'pending' OR r.compliance_status = 'pending')")
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		conds = append(conds, "(p.full_name LIKE ? OR p.email LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanReferee extracts a referee Profile from a row scanner function.
func scanReferee(scan func(dest ...any) error) (domain.Profile, error) {
	var p domain.Profile
	var optIn int
	var updatedAt string
	err := scan(&p.ProfileID, &p.FANumber, &p.VerificationStatus, &p.ComplianceStatus, &p.County,
		&p.TravelRadiusKm, &optIn, &p.Level, &p.ReviewNote, &updatedAt)
	if err != nil {
		return domain.Profile{}, err
	}
	p.CentralVenueOptIn = optIn == 1
	p.UpdatedAt = storage.ParseTime(updatedAt)
	return p, nil
}
