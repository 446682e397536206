package offer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"whistle/internal/adapters/storage"
	domain "whistle/internal/domain/offer"
)

const offerColumns = "o.id, o.booking_id, o.referee_id, o.status, o.price_pence, o.referee_note, o.created_at, o.responded_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new offer store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a new offer.
// PRE: entity has been validated
// POST: Entity is persisted; a second offer to the same referee returns domain.ErrDuplicate
func (s *SQLiteStore) Create(ctx context.Context, o domain.Offer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO booking_offer (id, booking_id, referee_id, status, price_pence, referee_note, created_at, responded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.BookingID, o.RefereeID, o.Status, o.PricePence, o.RefereeNote,
		storage.FormatTime(o.CreatedAt), storage.FormatTime(o.RespondedAt))
	if storage.IsUniqueViolation(err) {
		return domain.ErrDuplicate
	}
	return err
}

// Get retrieves an Offer by its ID.
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Offer, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+offerColumns+" FROM booking_offer o WHERE o.id = ?", id)
	o, err := scanOffer(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Offer{}, fmt.Errorf("offer %s: %w", id, storage.ErrNotFound)
	}
	return o, err
}

// Respond records a referee's answer to an offer that is still sent.
// PRE: value carries the new status, price and note
// POST: Returns domain.ErrNotSent if the offer was already answered or withdrawn
func (s *SQLiteStore) Respond(ctx context.Context, o domain.Offer) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE booking_offer SET status = ?, price_pence = ?, referee_note = ?, responded_at = ?
		 WHERE id = ? AND status = ?`,
		o.Status, o.PricePence, o.RefereeNote, storage.FormatTime(o.RespondedAt), o.ID, domain.StatusSent)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return domain.ErrNotSent
	}
	return nil
}

// ListByBooking returns every offer on a booking, oldest first.
func (s *SQLiteStore) ListByBooking(ctx context.Context, bookingID string) ([]domain.Offer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+offerColumns+" FROM booking_offer o WHERE o.booking_id = ? ORDER BY o.created_at, o.id", bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Offer
	for rows.Next() {
		o, err := scanOffer(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, o)
	}
	return results, rows.Err()
}

// ListForReferee returns the referee's offers joined with their booking, soonest match first.
// PRE: filter.Limit > 0
func (s *SQLiteStore) ListForReferee(ctx context.Context, refereeID string, filter ListFilter) ([]InboxRow, error) {
	var qb strings.Builder
	args := []any{refereeID}
	qb.WriteString(`SELECT ` + offerColumns + `,
		  b.id, b.coach_id, b.status, b.match_date, b.kickoff_time, b.ground_name, b.postcode, b.county,
		  b.home_team, b.away_team, b.format, b.age_group, b.budget_pence, b.central_venue
		 FROM booking_offer o JOIN booking b ON b.id = o.booking_id
		 WHERE o.referee_id = ?`)
	if len(filter.Statuses) > 0 {
		qb.WriteString(" AND o.status IN (?" + strings.Repeat(", ?", len(filter.Statuses)-1) + ")")
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	qb.WriteString(" ORDER BY b.match_date, b.kickoff_time, o.id LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []InboxRow
	for rows.Next() {
		var r InboxRow
		var central int
		b := &r.Booking
		o, err := scanOffer(func(dest ...any) error {
			return rows.Scan(append(dest,
				&b.ID, &b.CoachID, &b.Status, &b.MatchDate, &b.KickoffTime, &b.GroundName, &b.Postcode, &b.County,
				&b.HomeTeam, &b.AwayTeam, &b.Format, &b.AgeGroup, &b.BudgetPence, &central)...)
		})
		if err != nil {
			return nil, err
		}
		r.Offer = o
		b.CentralVenue = central == 1
		results = append(results, r)
	}
	return results, rows.Err()
}

// scanOffer extracts an Offer from a row scanner function.
func scanOffer(scan func(dest ...any) error) (domain.Offer, error) {
	var o domain.Offer
	var createdAt, respondedAt string
	err := scan(&o.ID, &o.BookingID, &o.RefereeID, &o.Status, &o.PricePence, &o.RefereeNote, &createdAt, &respondedAt)
	if err != nil {
		return domain.Offer{}, err
	}
	o.CreatedAt = storage.ParseTime(createdAt)
	o.RespondedAt = storage.ParseTime(respondedAt)
	return o, nil
}
