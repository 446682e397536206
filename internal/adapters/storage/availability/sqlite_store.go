package availability

import (
	"context"
	"strings"

	"whistle/internal/adapters/storage"
	domain "whistle/internal/domain/availability"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new availability store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// ReplaceWeekly deletes the referee's weekly slots and inserts slots in one transaction.
// PRE: every slot has been validated and belongs to refereeID
// POST: The referee's weekly availability equals slots
func (s *SQLiteStore) ReplaceWeekly(ctx context.Context, refereeID string, slots []domain.WeeklySlot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM weekly_availability WHERE referee_id = ?", refereeID); err != nil {
		return err
	}
	for _, slot := range slots {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO weekly_availability (id, referee_id, day_of_week, start_time, end_time) VALUES (?, ?, ?, ?, ?)`,
			slot.ID, refereeID, slot.DayOfWeek, slot.StartTime, slot.EndTime); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceDates deletes the referee's dated slots and inserts slots in one transaction.
// PRE: every slot has been validated and belongs to refereeID
// POST: The referee's dated availability equals slots
func (s *SQLiteStore) ReplaceDates(ctx context.Context, refereeID string, slots []domain.DateSlot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM date_availability WHERE referee_id = ?", refereeID); err != nil {
		return err
	}
	for _, slot := range slots {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO date_availability (id, referee_id, date, start_time, end_time) VALUES (?, ?, ?, ?, ?)`,
			slot.ID, refereeID, slot.Date, slot.StartTime, slot.EndTime); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListWeekly returns the referee's weekly slots ordered by day then start.
func (s *SQLiteStore) ListWeekly(ctx context.Context, refereeID string) ([]domain.WeeklySlot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, referee_id, day_of_week, start_time, end_time FROM weekly_availability
		 WHERE referee_id = ? ORDER BY day_of_week, start_time`, refereeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.WeeklySlot
	for rows.Next() {
		var slot domain.WeeklySlot
		if err := rows.Scan(&slot.ID, &slot.RefereeID, &slot.DayOfWeek, &slot.StartTime, &slot.EndTime); err != nil {
			return nil, err
		}
		results = append(results, slot)
	}
	return results, rows.Err()
}

// ListDates returns the referee's dated slots on or after fromDate. An empty fromDate returns all.
func (s *SQLiteStore) ListDates(ctx context.Context, refereeID, fromDate string) ([]domain.DateSlot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, referee_id, date, start_time, end_time FROM date_availability
		 WHERE referee_id = ? AND date >= ? ORDER BY date, start_time`, refereeID, fromDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.DateSlot
	for rows.Next() {
		slot, err := scanDateSlot(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, slot)
	}
	return results, rows.Err()
}

// DeleteOverlappingDates removes the referee's dated slots on date that overlap [start, end).
// POST: Returns the number of slots removed
func (s *SQLiteStore) DeleteOverlappingDates(ctx context.Context, refereeID, date, start, end string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM date_availability
		 WHERE referee_id = ? AND date = ? AND start_time < ? AND end_time > ?`,
		refereeID, date, end, start)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// MatchWeekly returns distinct referee IDs with a weekly slot on the filter's day,
// ordered by referee ID and capped at filter.Limit.
// PRE: filter.Limit > 0
func (s *SQLiteStore) MatchWeekly(ctx context.Context, filter WeeklyMatchFilter) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT w.referee_id FROM weekly_availability w
		 WHERE w.day_of_week = ?
		   AND NOT EXISTS (SELECT 1 FROM booking_offer o WHERE o.booking_id = ? AND o.referee_id = w.referee_id)
		 ORDER BY w.referee_id LIMIT ?`,
		filter.DayOfWeek, filter.ExcludeBookingID, filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SearchDates returns referees with a dated slot overlapping the filter window.
// One row per referee, carrying its earliest overlapping slot, ordered by referee ID,
// so Limit counts referees rather than slots.
// PRE: filter.Limit > 0
func (s *SQLiteStore) SearchDates(ctx context.Context, filter DateSearchFilter) ([]Candidate, error) {
	var qb strings.Builder
	args := []any{filter.Date, filter.End, filter.Start}
	qb.WriteString(`WITH overlapping AS (
		  SELECT id, referee_id, date, start_time, end_time,
		    ROW_NUMBER() OVER (PARTITION BY referee_id ORDER BY start_time, id) AS slot_rank
		  FROM date_availability
		  WHERE date = ? AND start_time < ? AND end_time > ?
		)
		SELECT d.id, d.referee_id, d.date, d.start_time, d.end_time,
		  p.full_name, r.county, r.level, r.verification_status, r.central_venue_opt_in
		 FROM overlapping d
		 JOIN profile p ON p.id = d.referee_id
		 JOIN referee_profile r ON r.profile_id = d.referee_id
		 WHERE d.slot_rank = 1`)
	if filter.County != "" {
		qb.WriteString(" AND r.county = ? COLLATE NOCASE")
		args = append(args, filter.County)
	}
	if filter.CentralVenueOnly {
		qb.WriteString(" AND r.central_venue_opt_in = 1")
	}
	if filter.ExcludeBookingID != "" {
		qb.WriteString(" AND NOT EXISTS (SELECT 1 FROM booking_offer o WHERE o.booking_id = ? AND o.referee_id = d.referee_id)")
		args = append(args, filter.ExcludeBookingID)
	}
	qb.WriteString(" ORDER BY d.referee_id LIMIT ?")
	args = append(args, filter.Limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Candidate
	for rows.Next() {
		var c Candidate
		var optIn int
		if err := rows.Scan(&c.Slot.ID, &c.Slot.RefereeID, &c.Slot.Date, &c.Slot.StartTime, &c.Slot.EndTime,
			&c.FullName, &c.County, &c.Level, &c.VerificationStatus, &optIn); err != nil {
			return nil, err
		}
		c.RefereeID = c.Slot.RefereeID
		c.CentralVenueOptIn = optIn == 1
		results = append(results, c)
	}
	return results, rows.Err()
}

// scanDateSlot extracts a DateSlot from a row scanner function.
func scanDateSlot(scan func(dest ...any) error) (domain.DateSlot, error) {
	var slot domain.DateSlot
	err := scan(&slot.ID, &slot.RefereeID, &slot.Date, &slot.StartTime, &slot.EndTime)
	return slot, err
}
