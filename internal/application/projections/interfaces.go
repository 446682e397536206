package projections

import (
	"context"
	"errors"
	"time"

	auditStore "whistle/internal/adapters/storage/audit"
	availabilityStore "whistle/internal/adapters/storage/availability"
	bookingStore "whistle/internal/adapters/storage/booking"
	"whistle/internal/adapters/storage/message"
	offerStore "whistle/internal/adapters/storage/offer"
	outboxStore "whistle/internal/adapters/storage/outbox"
	refereeStore "whistle/internal/adapters/storage/referee"
	domainAudit "whistle/internal/domain/audit"
	domainAvailability "whistle/internal/domain/availability"
	domainBooking "whistle/internal/domain/booking"
	domainMessage "whistle/internal/domain/message"
	domainNotification "whistle/internal/domain/notification"
	domainOffer "whistle/internal/domain/offer"
	domainOutbox "whistle/internal/domain/outbox"
	domainProfile "whistle/internal/domain/profile"
	domainReferee "whistle/internal/domain/referee"
)

// ErrNotVisible is returned when the viewer may not see the requested resource.
var ErrNotVisible = errors.New("you do not have access to this resource")

// Viewer identifies who is asking.
type Viewer struct {
	ID   string
	Role string
}

// IsAdmin reports whether the viewer is an admin.
func (v Viewer) IsAdmin() bool {
	return v.Role == domainProfile.RoleAdmin
}

// ProfileStore interface for profile queries.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (domainProfile.Profile, error)
}

// RefereeStore interface for referee queries.
type RefereeStore interface {
	Get(ctx context.Context, profileID string) (domainReferee.Profile, error)
	List(ctx context.Context, filter refereeStore.ListFilter) ([]refereeStore.Row, error)
	Count(ctx context.Context, filter refereeStore.ListFilter) (int, error)
}

// BookingStore interface for booking queries.
type BookingStore interface {
	Get(ctx context.Context, id string) (domainBooking.Booking, error)
	ListByCoach(ctx context.Context, coachID string, filter bookingStore.ListFilter) ([]domainBooking.Booking, error)
	ListAssigned(ctx context.Context, refereeID string, filter bookingStore.ListFilter) ([]domainBooking.Booking, error)
	GetAssignment(ctx context.Context, bookingID string) (domainBooking.Assignment, error)
}

// OfferStore interface for offer queries.
type OfferStore interface {
	ListByBooking(ctx context.Context, bookingID string) ([]domainOffer.Offer, error)
	ListForReferee(ctx context.Context, refereeID string, filter offerStore.ListFilter) ([]offerStore.InboxRow, error)
}

// AvailabilityStore interface for availability queries.
type AvailabilityStore interface {
	ListWeekly(ctx context.Context, refereeID string) ([]domainAvailability.WeeklySlot, error)
	ListDates(ctx context.Context, refereeID, fromDate string) ([]domainAvailability.DateSlot, error)
	SearchDates(ctx context.Context, filter availabilityStore.DateSearchFilter) ([]availabilityStore.Candidate, error)
}

// ThreadStore interface for messaging queries.
type ThreadStore interface {
	GetThread(ctx context.Context, id string) (domainMessage.Thread, error)
	GetThreadByBooking(ctx context.Context, bookingID string) (domainMessage.Thread, error)
	GetParticipant(ctx context.Context, threadID, profileID string) (domainMessage.Participant, error)
	ListParticipants(ctx context.Context, threadID string) ([]domainMessage.Participant, error)
	ListMessages(ctx context.Context, threadID string, limit int) ([]domainMessage.Message, error)
	ListThreadSummaries(ctx context.Context, profileID string, limit int) ([]message.ThreadSummary, error)
	MarkRead(ctx context.Context, threadID, profileID string, at time.Time) error
}

// NotificationStore interface for notification queries.
type NotificationStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]domainNotification.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// AuditStore interface for audit log queries.
type AuditStore interface {
	List(ctx context.Context, filter auditStore.Filter, limit int) ([]domainAudit.Event, error)
}

// OutboxStore interface for outbox admin queries.
type OutboxStore interface {
	List(ctx context.Context, filter outboxStore.ListFilter) ([]domainOutbox.Entry, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// clampLimit returns limit bounded to [1, ceiling], defaulting to def.
func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

func localToday(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(domainBooking.DateLayout)
}
