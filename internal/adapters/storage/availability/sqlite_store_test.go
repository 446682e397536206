package availability

import (
	"context"
	"testing"

	"whistle/internal/adapters/storage/storagetest"
	domain "whistle/internal/domain/availability"
)

func TestSQLiteStore_ReplaceWeekly(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.SeedReferee(t, db, "r1", "Essex")
	store := NewSQLiteStore(db)
	ctx := context.Background()

	first := []domain.WeeklySlot{
		{ID: "w1", RefereeID: "r1", DayOfWeek: 6, StartTime: "09:00", EndTime: "12:00"},
		{ID: "w2", RefereeID: "r1", DayOfWeek: 0, StartTime: "10:00", EndTime: "16:00"},
	}
	if err := store.ReplaceWeekly(ctx, "r1", first); err != nil {
		t.Fatalf("ReplaceWeekly: %v", err)
	}
	got, err := store.ListWeekly(ctx, "r1")
	if err != nil {
		t.Fatalf("ListWeekly: %v", err)
	}
	if len(got) != 2 || got[0].ID != "w2" {
		t.Errorf("ListWeekly = %+v, want Sunday first", got)
	}

	second := []domain.WeeklySlot{{ID: "w3", RefereeID: "r1", DayOfWeek: 3, StartTime: "18:00", EndTime: "21:00"}}
	if err := store.ReplaceWeekly(ctx, "r1", second); err != nil {
		t.Fatalf("ReplaceWeekly again: %v", err)
	}
	got, _ = store.ListWeekly(ctx, "r1")
	if len(got) != 1 || got[0].ID != "w3" {
		t.Errorf("after replace = %+v, want only w3", got)
	}
}

func TestSQLiteStore_DatesAndConsumption(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.SeedReferee(t, db, "r1", "Essex")
	store := NewSQLiteStore(db)
	ctx := context.Background()

	slots := []domain.DateSlot{
		{ID: "d1", RefereeID: "r1", Date: "2026-08-30", StartTime: "09:00", EndTime: "12:00"},
		{ID: "d2", RefereeID: "r1", Date: "2026-09-05", StartTime: "09:00", EndTime: "12:00"},
		{ID: "d3", RefereeID: "r1", Date: "2026-09-05", StartTime: "14:00", EndTime: "17:00"},
	}
	if err := store.ReplaceDates(ctx, "r1", slots); err != nil {
		t.Fatalf("ReplaceDates: %v", err)
	}

	upcoming, err := store.ListDates(ctx, "r1", "2026-09-01")
	if err != nil {
		t.Fatalf("ListDates: %v", err)
	}
	if len(upcoming) != 2 {
		t.Fatalf("ListDates upcoming = %d, want 2", len(upcoming))
	}

	n, err := store.DeleteOverlappingDates(ctx, "r1", "2026-09-05", "10:30", "12:30")
	if err != nil {
		t.Fatalf("DeleteOverlappingDates: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	left, _ := store.ListDates(ctx, "r1", "")
	if len(left) != 2 || left[1].ID != "d3" {
		t.Errorf("remaining = %+v, want d1 and d3", left)
	}
}

func TestSQLiteStore_MatchWeekly(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.SeedProfile(t, db, "c1", "coach")
	for _, id := range []string{"r3", "r1", "r2"} {
		storagetest.SeedReferee(t, db, id, "Essex")
		storagetest.Exec(t, db, "INSERT INTO weekly_availability (id, referee_id, day_of_week, start_time, end_time) VALUES (?, ?, 6, '09:00', '13:00')", "w-"+id, id)
	}
	storagetest.Exec(t, db, "INSERT INTO weekly_availability (id, referee_id, day_of_week, start_time, end_time) VALUES ('w-r1b', 'r1', 6, '14:00', '17:00')")
	storagetest.SeedBooking(t, db, "b1", "c1", "offered", "2026-09-05", "10:00")
	storagetest.SeedOffer(t, db, "o1", "b1", "r2", "sent", 0)
	store := NewSQLiteStore(db)

	ids, err := store.MatchWeekly(context.Background(), WeeklyMatchFilter{DayOfWeek: 6, ExcludeBookingID: "b1", Limit: 15})
	if err != nil {
		t.Fatalf("MatchWeekly: %v", err)
	}
	if len(ids) != 2 || ids[0] != "r1" || ids[1] != "r3" {
		t.Errorf("MatchWeekly = %v, want [r1 r3]", ids)
	}

	capped, _ := store.MatchWeekly(context.Background(), WeeklyMatchFilter{DayOfWeek: 6, Limit: 1})
	if len(capped) != 1 {
		t.Errorf("capped = %v, want 1 id", capped)
	}
}

func TestSQLiteStore_SearchDates(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.SeedReferee(t, db, "r1", "Essex")
	storagetest.SeedReferee(t, db, "r2", "Kent")
	storagetest.SeedReferee(t, db, "r3", "Essex")
	storagetest.Exec(t, db, "UPDATE referee_profile SET central_venue_opt_in = 1 WHERE profile_id = 'r3'")
	insert := "INSERT INTO date_availability (id, referee_id, date, start_time, end_time) VALUES (?, ?, ?, ?, ?)"
	storagetest.Exec(t, db, insert, "d1", "r1", "2026-09-05", "09:00", "11:00")
	storagetest.Exec(t, db, insert, "d2", "r2", "2026-09-05", "10:00", "14:00")
	storagetest.Exec(t, db, insert, "d3", "r3", "2026-09-05", "12:00", "13:00")
	storagetest.Exec(t, db, insert, "d4", "r1", "2026-09-05", "12:00", "14:00")
	store := NewSQLiteStore(db)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter DateSearchFilter
		want   []string
	}{
		{"overlap only", DateSearchFilter{Date: "2026-09-05", Start: "10:00", End: "12:00", Limit: 50}, []string{"d1", "d2"}},
		{"window edge excluded", DateSearchFilter{Date: "2026-09-05", Start: "11:00", End: "12:00", Limit: 50}, []string{"d2"}},
		{"county, earliest slot per referee", DateSearchFilter{Date: "2026-09-05", Start: "10:00", End: "13:30", County: "essex", Limit: 50}, []string{"d1", "d3"}},
		{"limit counts referees", DateSearchFilter{Date: "2026-09-05", Start: "10:00", End: "13:30", Limit: 2}, []string{"d1", "d2"}},
		{"later slot when earlier misses", DateSearchFilter{Date: "2026-09-05", Start: "13:00", End: "14:00", County: "essex", Limit: 50}, []string{"d4"}},
		{"central venue", DateSearchFilter{Date: "2026-09-05", Start: "10:00", End: "14:00", CentralVenueOnly: true, Limit: 50}, []string{"d3"}},
		{"other date", DateSearchFilter{Date: "2026-09-06", Start: "10:00", End: "12:00", Limit: 50}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.SearchDates(ctx, tt.filter)
			if err != nil {
				t.Fatalf("SearchDates: %v", err)
			}
			var ids []string
			for _, c := range got {
				ids = append(ids, c.Slot.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("ids = %v, want %v", ids, tt.want)
					break
				}
			}
		})
	}
}
