// Package storagetest opens migrated in-memory databases and seeds fixture rows for store tests.
package storagetest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"whistle/internal/adapters/storage"
)

// Now is the fixed clock used by fixtures.
var Now = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

// Open returns a migrated in-memory database closed at test cleanup.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Exec runs a statement and fails the test on error.
func Exec(t *testing.T, db storage.SQLDB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// SeedProfile inserts a profile row with the given id and role.
func SeedProfile(t *testing.T, db storage.SQLDB, id, role string) {
	t.Helper()
	Exec(t, db, `INSERT INTO profile (id, email, role, full_name, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, id+"@whistle.test", role, "Test "+id, storage.FormatTime(Now))
}

// SeedReferee inserts a referee profile and its referee_profile row.
func SeedReferee(t *testing.T, db storage.SQLDB, id, county string) {
	t.Helper()
	SeedProfile(t, db, id, "referee")
	Exec(t, db, `INSERT INTO referee_profile (profile_id, county, updated_at) VALUES (?, ?, ?)`,
		id, county, storage.FormatTime(Now))
}

// SeedBooking inserts a booking owned by coachID on date at kickoff.
func SeedBooking(t *testing.T, db storage.SQLDB, id, coachID, status, date, kickoff string) {
	t.Helper()
	Exec(t, db, `INSERT INTO booking (id, coach_id, status, match_date, kickoff_time, ground_name, postcode, county,
		home_team, away_team, format, budget_pence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'Victoria Park', 'E9 7BT', 'London', 'Rovers U11', 'United U11', '7v7', 3500, ?, ?)`,
		id, coachID, status, date, kickoff, storage.FormatTime(Now), storage.FormatTime(Now))
}

// SeedOffer inserts an offer row.
func SeedOffer(t *testing.T, db storage.SQLDB, id, bookingID, refereeID, status string, pricePence int) {
	t.Helper()
	Exec(t, db, `INSERT INTO booking_offer (id, booking_id, referee_id, status, price_pence, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, bookingID, refereeID, status, pricePence, storage.FormatTime(Now))
}
