package projections

import (
	"context"
	"errors"
	"testing"

	"whistle/internal/adapters/storage"
	"whistle/internal/adapters/storage/storagetest"
	domainBooking "whistle/internal/domain/booking"
	domainOffer "whistle/internal/domain/offer"
)

func seedOfferedBooking(t *testing.T) stores {
	t.Helper()
	s := newStores(t)
	storagetest.SeedProfile(t, s.db, "coach", "coach")
	storagetest.SeedProfile(t, s.db, "other-coach", "coach")
	storagetest.SeedReferee(t, s.db, "ref-a", "London")
	storagetest.SeedReferee(t, s.db, "ref-b", "London")
	storagetest.SeedReferee(t, s.db, "ref-c", "Kent")
	storagetest.SeedBooking(t, s.db, "b1", "coach", domainBooking.StatusOffered, "2026-09-12", "10:30")
	storagetest.SeedOffer(t, s.db, "o-a", "b1", "ref-a", domainOffer.StatusSent, 0)
	storagetest.SeedOffer(t, s.db, "o-b", "b1", "ref-b", domainOffer.StatusAcceptedPriced, 4000)
	return s
}

func bookingDeps(s stores) GetBookingDeps {
	return GetBookingDeps{BookingStore: s.bookings, OfferStore: s.offers, ThreadStore: s.threads}
}

func TestQueryGetBooking_CoachSeesAllOffers(t *testing.T) {
	s := seedOfferedBooking(t)
	got, err := QueryGetBooking(context.Background(), GetBookingQuery{BookingID: "b1", Viewer: coachViewer("coach")}, bookingDeps(s))
	if err != nil {
		t.Fatalf("QueryGetBooking: %v", err)
	}
	if len(got.Offers) != 2 {
		t.Errorf("offers = %d, want 2", len(got.Offers))
	}
	if got.MyOffer != nil || got.Assignment != nil || got.ThreadID != "" {
		t.Errorf("unexpected fields: %+v", got)
	}
}

func TestQueryGetBooking_RefereeSeesOwnOfferOnly(t *testing.T) {
	s := seedOfferedBooking(t)
	got, err := QueryGetBooking(context.Background(), GetBookingQuery{BookingID: "b1", Viewer: refereeViewer("ref-b")}, bookingDeps(s))
	if err != nil {
		t.Fatalf("QueryGetBooking: %v", err)
	}
	if got.Offers != nil {
		t.Errorf("referee should not see sibling offers: %+v", got.Offers)
	}
	if got.MyOffer == nil || got.MyOffer.ID != "o-b" || got.MyOffer.PricePence != 4000 {
		t.Errorf("MyOffer = %+v", got.MyOffer)
	}
}

func TestQueryGetBooking_NotVisible(t *testing.T) {
	s := seedOfferedBooking(t)
	for _, v := range []Viewer{coachViewer("other-coach"), refereeViewer("ref-c")} {
		_, err := QueryGetBooking(context.Background(), GetBookingQuery{BookingID: "b1", Viewer: v}, bookingDeps(s))
		if !errors.Is(err, ErrNotVisible) {
			t.Errorf("viewer %s: err = %v, want ErrNotVisible", v.ID, err)
		}
	}
}

func TestQueryGetBooking_Missing(t *testing.T) {
	s := newStores(t)
	_, err := QueryGetBooking(context.Background(), GetBookingQuery{BookingID: "nope", Viewer: adminViewer}, bookingDeps(s))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestQueryGetBooking_ConfirmedThreadAndCalendar(t *testing.T) {
	s := seedOfferedBooking(t)
	storagetest.Exec(t, s.db, "UPDATE booking SET status = ? WHERE id = 'b1'", domainBooking.StatusConfirmed)
	storagetest.Exec(t, s.db, "UPDATE booking_offer SET status = ? WHERE id = 'o-b'", domainOffer.StatusAccepted)
	storagetest.Exec(t, s.db, "UPDATE booking_offer SET status = ? WHERE id = 'o-a'", domainOffer.StatusWithdrawn)
	seedAssignment(t, s, "b1", "ref-b", "o-b")
	seedThread(t, s, "t1", "b1", "coach", "ref-b")

	tests := []struct {
		name         string
		viewer       Viewer
		wantThread   string
		wantCalendar bool
	}{
		{"coach", coachViewer("coach"), "t1", true},
		{"assigned referee", refereeViewer("ref-b"), "t1", true},
		{"admin", adminViewer, "t1", false},
		{"withdrawn referee", refereeViewer("ref-a"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QueryGetBooking(context.Background(), GetBookingQuery{BookingID: "b1", Viewer: tt.viewer}, bookingDeps(s))
			if err != nil {
				t.Fatalf("QueryGetBooking: %v", err)
			}
			if got.ThreadID != tt.wantThread {
				t.Errorf("ThreadID = %q, want %q", got.ThreadID, tt.wantThread)
			}
			if got.Assignment == nil || got.Assignment.RefereeID != "ref-b" {
				t.Errorf("Assignment = %+v", got.Assignment)
			}
			if CanViewCalendar(got, tt.viewer) != tt.wantCalendar {
				t.Errorf("CanViewCalendar = %v, want %v", !tt.wantCalendar, tt.wantCalendar)
			}
		})
	}
}

func TestCalendarAccess_UnconfirmedBooking(t *testing.T) {
	r := GetBookingResult{Booking: domainBooking.Booking{CoachID: "coach", Status: domainBooking.StatusOffered}}
	if CanViewCalendar(r, coachViewer("coach")) {
		t.Error("open booking should not export a calendar")
	}
	if err := CalendarAccess(r, coachViewer("coach")); !errors.Is(err, domainBooking.ErrNotConfirmed) {
		t.Errorf("coach on open booking: err = %v, want ErrNotConfirmed", err)
	}
	if err := CalendarAccess(r, coachViewer("someone-else")); !errors.Is(err, ErrNotVisible) {
		t.Errorf("stranger on open booking: err = %v, want ErrNotVisible", err)
	}

	r.Booking.Status = domainBooking.StatusCancelled
	if err := CalendarAccess(r, coachViewer("coach")); !errors.Is(err, domainBooking.ErrNotConfirmed) {
		t.Errorf("coach on cancelled booking: err = %v, want ErrNotConfirmed", err)
	}
}
