package offer_test

import (
	"testing"
	"time"

	"whistle/internal/domain/offer"
)

var now = time.Date(2026, 9, 6, 18, 0, 0, 0, time.UTC)

// TestParsePricePence tests parsing of pound amounts.
func TestParsePricePence(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr error
	}{
		{"45.00", 4500, nil},
		{"45", 4500, nil},
		{"45.5", 4550, nil},
		{"£30.25", 3025, nil},
		{" 12.05 ", 1205, nil},
		{"1000.00", 100000, nil},
		{"1000.01", 0, offer.ErrPriceTooHigh},
		{"0", 0, offer.ErrInvalidPrice},
		{"0.00", 0, offer.ErrInvalidPrice},
		{"", 0, offer.ErrInvalidPrice},
		{"-5", 0, offer.ErrInvalidPrice},
		{"45.", 0, offer.ErrInvalidPrice},
		{".50", 0, offer.ErrInvalidPrice},
		{"45.123", 0, offer.ErrInvalidPrice},
		{"4e2", 0, offer.ErrInvalidPrice},
		{"9999999", 0, offer.ErrPriceTooHigh},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := offer.ParsePricePence(tt.in)
			if err != tt.wantErr {
				t.Fatalf("ParsePricePence(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePricePence(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatPence(t *testing.T) {
	cases := map[int]string{4500: "45.00", 3025: "30.25", 5: "0.05", 0: "0.00", 100000: "1000.00"}
	for in, want := range cases {
		if got := offer.FormatPence(in); got != want {
			t.Errorf("FormatPence(%d) = %q, want %q", in, got, want)
		}
	}
}

// TestOffer_Respond tests accept and decline transitions.
func TestOffer_Respond(t *testing.T) {
	o := offer.Offer{ID: "o1", BookingID: "b1", RefereeID: "r1", Status: offer.StatusSent}
	if err := o.AcceptWithPrice(0, "", now); err != offer.ErrInvalidPrice {
		t.Errorf("AcceptWithPrice(0) = %v, want ErrInvalidPrice", err)
	}
	if err := o.AcceptWithPrice(4500, "Can bring flags", now); err != nil {
		t.Fatalf("AcceptWithPrice: %v", err)
	}
	if o.Status != offer.StatusAcceptedPriced || o.PricePence != 4500 || !o.RespondedAt.Equal(now) {
		t.Errorf("after accept: %+v", o)
	}
	if !o.IsActive() {
		t.Error("accepted_priced offer should be active")
	}
	if err := o.Decline("", now); err != offer.ErrNotSent {
		t.Errorf("Decline after accept = %v, want ErrNotSent", err)
	}

	d := offer.Offer{ID: "o2", BookingID: "b1", RefereeID: "r2", Status: offer.StatusSent}
	if err := d.Decline("Away that weekend", now); err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if d.Status != offer.StatusDeclined || d.IsActive() {
		t.Errorf("after decline: %+v", d)
	}
}

func TestOffer_Validate(t *testing.T) {
	o := offer.Offer{RefereeID: "r1"}
	if err := o.Validate(); err != offer.ErrEmptyBookingID {
		t.Errorf("Validate() = %v, want ErrEmptyBookingID", err)
	}
	o = offer.Offer{BookingID: "b1"}
	if err := o.Validate(); err != offer.ErrEmptyRefereeID {
		t.Errorf("Validate() = %v, want ErrEmptyRefereeID", err)
	}
}
