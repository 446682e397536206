package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"whistle/internal/adapters/storage"
	domain "whistle/internal/domain/booking"
	offerdomain "whistle/internal/domain/offer"
)

const bookingColumns = "id, coach_id, status, match_date, kickoff_time, ground_name, postcode, county, home_team, away_team, format, age_group, budget_pence, notes, central_venue, cancelled_by, cancel_reason, created_at, updated_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new booking store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves a Booking by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Booking, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM booking WHERE id = ?", id)
	b, err := scanBooking(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, fmt.Errorf("booking %s: %w", id, storage.ErrNotFound)
	}
	return b, err
}

// Save persists a Booking (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, b domain.Booking) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO booking (`+bookingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, match_date=excluded.match_date, kickoff_time=excluded.kickoff_time,
		   ground_name=excluded.ground_name, postcode=excluded.postcode, county=excluded.county,
		   home_team=excluded.home_team, away_team=excluded.away_team, format=excluded.format,
		   age_group=excluded.age_group, budget_pence=excluded.budget_pence, notes=excluded.notes,
		   central_venue=excluded.central_venue, cancelled_by=excluded.cancelled_by,
		   cancel_reason=excluded.cancel_reason, updated_at=excluded.updated_at`,
		bookingArgs(b)...)
	return err
}

// ListByCoach returns the coach's bookings ordered by match date then kickoff.
// PRE: filter.Limit > 0
func (s *SQLiteStore) ListByCoach(ctx context.Context, coachID string, filter ListFilter) ([]domain.Booking, error) {
	return s.list(ctx, "SELECT "+bookingColumns+" FROM booking WHERE coach_id = ?", coachID, filter)
}

// ListAssigned returns bookings assigned to the referee ordered by match date then kickoff.
// PRE: filter.Limit > 0
func (s *SQLiteStore) ListAssigned(ctx context.Context, refereeID string, filter ListFilter) ([]domain.Booking, error) {
	cols := "b." + strings.ReplaceAll(bookingColumns, ", ", ", b.")
	return s.list(ctx,
		"SELECT "+cols+" FROM booking b JOIN booking_assignment a ON a.booking_id = b.id WHERE a.referee_id = ?",
		refereeID, filter)
}

func (s *SQLiteStore) list(ctx context.Context, base, ownerID string, filter ListFilter) ([]domain.Booking, error) {
	var qb strings.Builder
	args := []any{ownerID}
	qb.WriteString(base)
	if filter.Status != "" {
		qb.WriteString(" AND status = ?")
		args = append(args, filter.Status)
	}
	if filter.FromDate != "" {
		qb.WriteString(" AND match_date >= ?")
		args = append(args, filter.FromDate)
	}
	qb.WriteString(" ORDER BY match_date, kickoff_time LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	return results, rows.Err()
}

// MarkOffered moves a pending booking to offered.
// POST: Returns true if the status changed; a booking in any other status is left untouched
func (s *SQLiteStore) MarkOffered(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE booking SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		domain.StatusOffered, storage.FormatTime(now), id, domain.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// GetAssignment retrieves the assignment for a booking.
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetAssignment(ctx context.Context, bookingID string) (domain.Assignment, error) {
	var a domain.Assignment
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, booking_id, referee_id, offer_id, created_at FROM booking_assignment WHERE booking_id = ?",
		bookingID).Scan(&a.ID, &a.BookingID, &a.RefereeID, &a.OfferID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Assignment{}, fmt.Errorf("assignment for booking %s: %w", bookingID, storage.ErrNotFound)
	}
	if err != nil {
		return domain.Assignment{}, err
	}
	a.CreatedAt = storage.ParseTime(createdAt)
	return a, nil
}

// Confirm binds the offer's referee to the booking in one transaction: the
// assignment is inserted, the offer becomes accepted, every sibling offer is
// withdrawn and the booking becomes confirmed.
// PRE: assignment.OfferID refers to an accepted_priced offer on assignment.BookingID
// POST: All four writes are committed, or none are
// INVARIANT: a booking has at most one assignment (UNIQUE booking_id)
func (s *SQLiteStore) Confirm(ctx context.Context, a domain.Assignment, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ts := storage.FormatTime(now)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO booking_assignment (id, booking_id, referee_id, offer_id, created_at) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.BookingID, a.RefereeID, a.OfferID, storage.FormatTime(a.CreatedAt)); err != nil {
		if storage.IsUniqueViolation(err) {
			return domain.ErrAlreadyAssigned
		}
		return err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE booking_offer SET status = ?, responded_at = ? WHERE id = ? AND booking_id = ? AND status = ?",
		offerdomain.StatusAccepted, ts, a.OfferID, a.BookingID, offerdomain.StatusAcceptedPriced)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return offerdomain.ErrNotPriced
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE booking_offer SET status = ? WHERE booking_id = ? AND id != ? AND status != ?",
		offerdomain.StatusWithdrawn, a.BookingID, a.OfferID, offerdomain.StatusAccepted); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx,
		"UPDATE booking SET status = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)",
		domain.StatusConfirmed, ts, a.BookingID, domain.StatusPending, domain.StatusOffered)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return domain.ErrNotOpen
	}
	return tx.Commit()
}

// Cancel persists a cancelled booking and withdraws its open offers in one transaction.
// PRE: b.Status is cancelled
// POST: Returns the referee IDs whose sent or accepted_priced offers were withdrawn
func (s *SQLiteStore) Cancel(ctx context.Context, b domain.Booking) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE booking SET status = ?, cancelled_by = ?, cancel_reason = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?, ?)`,
		b.Status, b.CancelledBy, b.CancelReason, storage.FormatTime(b.UpdatedAt),
		b.ID, domain.StatusPending, domain.StatusOffered, domain.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return nil, domain.ErrAlreadyClosed
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT referee_id FROM booking_offer WHERE booking_id = ? AND status IN (?, ?) ORDER BY referee_id",
		b.ID, offerdomain.StatusSent, offerdomain.StatusAcceptedPriced)
	if err != nil {
		return nil, err
	}
	var refereeIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		refereeIDs = append(refereeIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE booking_offer SET status = ? WHERE booking_id = ? AND status IN (?, ?)",
		offerdomain.StatusWithdrawn, b.ID, offerdomain.StatusSent, offerdomain.StatusAcceptedPriced); err != nil {
		return nil, err
	}
	return refereeIDs, tx.Commit()
}

func bookingArgs(b domain.Booking) []any {
	return []any{
		b.ID, b.CoachID, b.Status, b.MatchDate, b.KickoffTime, b.GroundName, b.Postcode, b.County,
		b.HomeTeam, b.AwayTeam, b.Format, b.AgeGroup, b.BudgetPence, b.Notes, storage.BoolInt(b.CentralVenue),
		b.CancelledBy, b.CancelReason, storage.FormatTime(b.CreatedAt), storage.FormatTime(b.UpdatedAt),
	}
}

// scanBooking extracts a Booking from a row scanner function.
func scanBooking(scan func(dest ...any) error) (domain.Booking, error) {
	var b domain.Booking
	var central int
	var createdAt, updatedAt string
	err := scan(&b.ID, &b.CoachID, &b.Status, &b.MatchDate, &b.KickoffTime, &b.GroundName, &b.Postcode, &b.County,
		&b.HomeTeam, &b.AwayTeam, &b.Format, &b.AgeGroup, &b.BudgetPence, &b.Notes, &central,
		&b.CancelledBy, &b.CancelReason, &createdAt, &updatedAt)
	if err != nil {
		return domain.Booking{}, err
	}
	b.CentralVenue = central == 1
	b.CreatedAt = storage.ParseTime(createdAt)
	b.UpdatedAt = storage.ParseTime(updatedAt)
	return b, nil
}
