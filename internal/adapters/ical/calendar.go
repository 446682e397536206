// Package ical renders confirmed bookings as iCalendar documents.
package ical

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"whistle/internal/domain/booking"
)

// ProductID identifies the generator in PRODID.
const ProductID = "-//Whistle Connect//Booking Export//EN"

// UID returns the stable event identifier for a booking.
func UID(bookingID string) string {
	return bookingID + "@whistle-connect"
}

// Filename returns the download name for a booking's calendar file.
func Filename(b booking.Booking) string {
	return "whistle-" + b.MatchDate + "-" + b.ID + ".ics"
}

// BookingEvent renders b as a single-event calendar. The match runs for
// booking.MatchDuration from kickoff in loc.
// PRE: b has a valid MatchDate and KickoffTime
// POST: Returns the serialized VCALENDAR
func BookingEvent(b booking.Booking, loc *time.Location, now time.Time, link string) (string, error) {
	start, err := b.StartsAt(loc)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRTimezone(loc.String())

	ev := cal.AddEvent(UID(b.ID))
	ev.SetDtStampTime(now)
	ev.SetCreatedTime(b.CreatedAt)
	ev.SetModifiedAt(b.UpdatedAt)
	ev.SetStartAt(start)
	ev.SetEndAt(start.Add(booking.MatchDuration))
	ev.SetSummary(fmt.Sprintf("%s (%s)", b.Title(), b.Format))
	ev.SetLocation(strings.TrimSpace(b.GroundName + ", " + b.Postcode))
	ev.SetDescription(description(b))
	if link != "" {
		ev.SetURL(link)
	}
	return cal.Serialize(), nil
}

func description(b booking.Booking) string {
	var parts []string
	if b.AgeGroup != "" {
		parts = append(parts, "Age group: "+b.AgeGroup)
	}
	parts = append(parts, "Format: "+b.Format)
	if b.Notes != "" {
		parts = append(parts, b.Notes)
	}
	return strings.Join(parts, "\n")
}
