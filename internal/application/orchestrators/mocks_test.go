package orchestrators

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"whistle/internal/adapters/realtime"
	"whistle/internal/adapters/storage"
	availabilityStore "whistle/internal/adapters/storage/availability"
	"whistle/internal/domain/audit"
	"whistle/internal/domain/availability"
	"whistle/internal/domain/booking"
	"whistle/internal/domain/message"
	"whistle/internal/domain/notification"
	"whistle/internal/domain/offer"
	"whistle/internal/domain/outbox"
	"whistle/internal/domain/profile"
	"whistle/internal/domain/push"
	"whistle/internal/domain/referee"
)

var fixedTime = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// seqIDs returns a generator yielding id-1, id-2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

// --- profiles ---

type mockProfileStore struct {
	profiles map[string]profile.Profile
	saves    int
}

func newMockProfileStore(ps ...profile.Profile) *mockProfileStore {
	m := &mockProfileStore{profiles: make(map[string]profile.Profile)}
	for _, p := range ps {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *mockProfileStore) GetByID(_ context.Context, id string) (profile.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return profile.Profile{}, notFound("profile", id)
	}
	return p, nil
}

func (m *mockProfileStore) GetByEmail(_ context.Context, email string) (profile.Profile, error) {
	for _, p := range m.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return profile.Profile{}, notFound("profile", email)
}

func (m *mockProfileStore) Save(_ context.Context, p profile.Profile) error {
	m.saves++
	m.profiles[p.ID] = p
	return nil
}

func (m *mockProfileStore) CountByRole(_ context.Context, role string) (int, error) {
	n := 0
	for _, p := range m.profiles {
		if p.Role == role {
			n++
		}
	}
	return n, nil
}

// --- referees ---

type mockRefereeStore struct {
	referees map[string]referee.Profile
}

func newMockRefereeStore(rs ...referee.Profile) *mockRefereeStore {
	m := &mockRefereeStore{referees: make(map[string]referee.Profile)}
	for _, r := range rs {
		m.referees[r.ProfileID] = r
	}
	return m
}

func (m *mockRefereeStore) Get(_ context.Context, id string) (referee.Profile, error) {
	r, ok := m.referees[id]
	if !ok {
		return referee.Profile{}, notFound("referee", id)
	}
	return r, nil
}

func (m *mockRefereeStore) Save(_ context.Context, r referee.Profile) error {
	m.referees[r.ProfileID] = r
	return nil
}

// --- bookings and offers ---

// mockBookingDB backs both the booking and offer stores so Confirm and Cancel
// can touch offers the way the SQLite transaction does.
type mockBookingDB struct {
	bookings    map[string]booking.Booking
	offers      map[string]offer.Offer
	assignments map[string]booking.Assignment
	confirmErr  error
}

func newMockBookingDB() *mockBookingDB {
	return &mockBookingDB{
		bookings:    make(map[string]booking.Booking),
		offers:      make(map[string]offer.Offer),
		assignments: make(map[string]booking.Assignment),
	}
}

func (m *mockBookingDB) Get(_ context.Context, id string) (booking.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return booking.Booking{}, notFound("booking", id)
	}
	return b, nil
}

func (m *mockBookingDB) Save(_ context.Context, b booking.Booking) error {
	m.bookings[b.ID] = b
	return nil
}

func (m *mockBookingDB) MarkOffered(_ context.Context, id string, now time.Time) (bool, error) {
	b, ok := m.bookings[id]
	if !ok || b.Status != booking.StatusPending {
		return false, nil
	}
	b.Status = booking.StatusOffered
	b.UpdatedAt = now
	m.bookings[id] = b
	return true, nil
}

func (m *mockBookingDB) GetAssignment(_ context.Context, bookingID string) (booking.Assignment, error) {
	a, ok := m.assignments[bookingID]
	if !ok {
		return booking.Assignment{}, notFound("assignment", bookingID)
	}
	return a, nil
}

func (m *mockBookingDB) Confirm(_ context.Context, a booking.Assignment, now time.Time) error {
	if m.confirmErr != nil {
		return m.confirmErr
	}
	if _, ok := m.assignments[a.BookingID]; ok {
		return booking.ErrAlreadyAssigned
	}
	o := m.offers[a.OfferID]
	if o.Status != offer.StatusAcceptedPriced {
		return offer.ErrNotPriced
	}
	b := m.bookings[a.BookingID]
	if !b.IsOpen() {
		return booking.ErrNotOpen
	}
	for id, sib := range m.offers {
		if sib.BookingID != a.BookingID {
			continue
		}
		if id == a.OfferID {
			sib.Status = offer.StatusAccepted
		} else if sib.Status != offer.StatusAccepted {
			sib.Status = offer.StatusWithdrawn
		}
		m.offers[id] = sib
	}
	b.Status = booking.StatusConfirmed
	b.UpdatedAt = now
	m.bookings[b.ID] = b
	m.assignments[a.BookingID] = a
	return nil
}

func (m *mockBookingDB) Cancel(_ context.Context, b booking.Booking) ([]string, error) {
	cur := m.bookings[b.ID]
	if cur.IsClosed() {
		return nil, booking.ErrAlreadyClosed
	}
	m.bookings[b.ID] = b
	var ids []string
	for id, o := range m.offers {
		if o.BookingID == b.ID && o.IsActive() {
			ids = append(ids, o.RefereeID)
			o.Status = offer.StatusWithdrawn
			m.offers[id] = o
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// mockOfferStore exposes the offer side of mockBookingDB.
type mockOfferStore struct{ db *mockBookingDB }

func (m mockOfferStore) Create(_ context.Context, o offer.Offer) error {
	for _, existing := range m.db.offers {
		if existing.BookingID == o.BookingID && existing.RefereeID == o.RefereeID {
			return offer.ErrDuplicate
		}
	}
	m.db.offers[o.ID] = o
	return nil
}

func (m mockOfferStore) Get(_ context.Context, id string) (offer.Offer, error) {
	o, ok := m.db.offers[id]
	if !ok {
		return offer.Offer{}, notFound("offer", id)
	}
	return o, nil
}

func (m mockOfferStore) Respond(_ context.Context, o offer.Offer) error {
	if m.db.offers[o.ID].Status != offer.StatusSent {
		return offer.ErrNotSent
	}
	m.db.offers[o.ID] = o
	return nil
}

func (m *mockBookingDB) offersFor(bookingID string) []offer.Offer {
	var out []offer.Offer
	for _, o := range m.offers {
		if o.BookingID == bookingID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- availability ---

type mockAvailabilityStore struct {
	weekly    map[string][]availability.WeeklySlot
	dates     map[string][]availability.DateSlot
	matchIDs  []string
	matched   availabilityStore.WeeklyMatchFilter
	deleted   []string
	deleteErr error
}

func newMockAvailabilityStore() *mockAvailabilityStore {
	return &mockAvailabilityStore{
		weekly: make(map[string][]availability.WeeklySlot),
		dates:  make(map[string][]availability.DateSlot),
	}
}

func (m *mockAvailabilityStore) ReplaceWeekly(_ context.Context, refereeID string, slots []availability.WeeklySlot) error {
	m.weekly[refereeID] = slots
	return nil
}

func (m *mockAvailabilityStore) ReplaceDates(_ context.Context, refereeID string, slots []availability.DateSlot) error {
	m.dates[refereeID] = slots
	return nil
}

func (m *mockAvailabilityStore) MatchWeekly(_ context.Context, f availabilityStore.WeeklyMatchFilter) ([]string, error) {
	m.matched = f
	ids := m.matchIDs
	if len(ids) > f.Limit {
		ids = ids[:f.Limit]
	}
	return ids, nil
}

func (m *mockAvailabilityStore) DeleteOverlappingDates(_ context.Context, refereeID, date, start, end string) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	kept := m.dates[refereeID][:0]
	n := 0
	for _, s := range m.dates[refereeID] {
		if s.Covers(date, start, end) {
			n++
			m.deleted = append(m.deleted, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	m.dates[refereeID] = kept
	return n, nil
}

// --- messaging ---

type mockThreadStore struct {
	threads      map[string]message.Thread // keyed by booking ID
	participants map[string]map[string]message.Participant
	messages     []message.Message
}

func newMockThreadStore() *mockThreadStore {
	return &mockThreadStore{
		threads:      make(map[string]message.Thread),
		participants: make(map[string]map[string]message.Participant),
	}
}

func (m *mockThreadStore) EnsureThread(_ context.Context, c message.Thread) (message.Thread, error) {
	if t, ok := m.threads[c.BookingID]; ok {
		return t, nil
	}
	m.threads[c.BookingID] = c
	return c, nil
}

func (m *mockThreadStore) AddParticipant(_ context.Context, p message.Participant) error {
	if m.participants[p.ThreadID] == nil {
		m.participants[p.ThreadID] = make(map[string]message.Participant)
	}
	if _, ok := m.participants[p.ThreadID][p.ProfileID]; !ok {
		m.participants[p.ThreadID][p.ProfileID] = p
	}
	return nil
}

func (m *mockThreadStore) GetParticipant(_ context.Context, threadID, profileID string) (message.Participant, error) {
	p, ok := m.participants[threadID][profileID]
	if !ok {
		return message.Participant{}, notFound("participant", profileID)
	}
	return p, nil
}

func (m *mockThreadStore) ListParticipants(_ context.Context, threadID string) ([]message.Participant, error) {
	var out []message.Participant
	for _, p := range m.participants[threadID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProfileID < out[j].ProfileID })
	return out, nil
}

func (m *mockThreadStore) MarkRead(_ context.Context, threadID, profileID string, at time.Time) error {
	p, ok := m.participants[threadID][profileID]
	if !ok {
		return notFound("participant", profileID)
	}
	p.LastReadAt = at
	m.participants[threadID][profileID] = p
	return nil
}

func (m *mockThreadStore) SaveMessage(_ context.Context, msg message.Message) error {
	m.messages = append(m.messages, msg)
	return nil
}

// --- notifications, push, outbox, audit ---

type recordingNotifier struct {
	mu   sync.Mutex
	sent []NotifyInput
}

func (r *recordingNotifier) Notify(_ context.Context, in NotifyInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, in)
}

func (r *recordingNotifier) to(userID string) []NotifyInput {
	var out []NotifyInput
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type recordingPublisher struct {
	events []realtime.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev realtime.Event) {
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) types() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type mockNotificationStore struct {
	saved []notification.Notification
	err   error
}

func (m *mockNotificationStore) Save(_ context.Context, n notification.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, n)
	return nil
}

type mockPushStore struct {
	subs    map[string]push.Subscription
	deleted []string
}

func newMockPushStore(subs ...push.Subscription) *mockPushStore {
	m := &mockPushStore{subs: make(map[string]push.Subscription)}
	for _, s := range subs {
		m.subs[s.ID] = s
	}
	return m
}

func (m *mockPushStore) Save(_ context.Context, s push.Subscription) error {
	m.subs[s.ID] = s
	return nil
}

func (m *mockPushStore) Get(_ context.Context, id string) (push.Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return push.Subscription{}, notFound("push subscription", id)
	}
	return s, nil
}

func (m *mockPushStore) ListByProfile(_ context.Context, profileID string) ([]push.Subscription, error) {
	var out []push.Subscription
	for _, s := range m.subs {
		if s.ProfileID == profileID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockPushStore) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.subs, id)
	return nil
}

func (m *mockPushStore) DeleteByEndpoint(_ context.Context, profileID, endpoint string) error {
	for id, s := range m.subs {
		if s.ProfileID == profileID && s.Endpoint == endpoint {
			m.deleted = append(m.deleted, id)
			delete(m.subs, id)
		}
	}
	return nil
}

type mockOutboxStore struct {
	entries map[string]outbox.Entry
	purged  time.Time
}

func newMockOutboxStore(es ...outbox.Entry) *mockOutboxStore {
	m := &mockOutboxStore{entries: make(map[string]outbox.Entry)}
	for _, e := range es {
		m.entries[e.ID] = e
	}
	return m
}

func (m *mockOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return outbox.Entry{}, notFound("outbox entry", id)
	}
	return e, nil
}

func (m *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) ListPending(_ context.Context, afterCreatedAt time.Time, afterID string, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.Status != outbox.StatusPending && e.Status != outbox.StatusRetrying {
			continue
		}
		if e.CreatedAt.Before(afterCreatedAt) || (e.CreatedAt.Equal(afterCreatedAt) && e.ID <= afterID) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOutboxStore) PurgeDone(_ context.Context, cutoff time.Time) (int, error) {
	m.purged = cutoff
	n := 0
	for id, e := range m.entries {
		if e.Status == outbox.StatusDone && e.CreatedAt.Before(cutoff) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

func (m *mockOutboxStore) byType(actionType string) []outbox.Entry {
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.ActionType == actionType {
			out = append(out, e)
		}
	}
	return out
}

type mockAuditStore struct {
	events []audit.Event
}

func (m *mockAuditStore) Save(_ context.Context, e audit.Event) error {
	m.events = append(m.events, e)
	return nil
}

// --- fixtures ---

func testBooking(id, coachID, status string) booking.Booking {
	return booking.Booking{
		ID:          id,
		CoachID:     coachID,
		Status:      status,
		MatchDate:   "2026-09-12", // Saturday
		KickoffTime: "10:30",
		GroundName:  "Victoria Park",
		Postcode:    "E9 7BT",
		County:      "London",
		HomeTeam:    "Rovers U11",
		AwayTeam:    "United U11",
		Format:      booking.Format7v7,
		BudgetPence: 3500,
		CreatedAt:   fixedTime,
		UpdatedAt:   fixedTime,
	}
}

func testOffer(id, bookingID, refereeID, status string, pricePence int) offer.Offer {
	return offer.Offer{
		ID:         id,
		BookingID:  bookingID,
		RefereeID:  refereeID,
		Status:     status,
		PricePence: pricePence,
		CreatedAt:  fixedTime,
	}
}
