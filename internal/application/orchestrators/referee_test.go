package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"whistle/internal/domain/audit"
	"whistle/internal/domain/availability"
	"whistle/internal/domain/notification"
	"whistle/internal/domain/profile"
	"whistle/internal/domain/referee"
)

var adminActor = Actor{ID: "admin-1", Email: "admin@whistle.local", Role: profile.RoleAdmin}

func pendingReferee(id string) referee.Profile {
	r := referee.New(id, fixedTime)
	r.FANumber = "12345678"
	r.VerificationStatus = referee.VerificationPending
	return r
}

// --- Referee self-service ---

// TestExecuteSubmitFANumber tests submission moves the referee into review.
func TestExecuteSubmitFANumber(t *testing.T) {
	store := newMockRefereeStore(referee.New("ref-1", fixedTime))
	deps := RefereeProfileDeps{RefereeStore: store, Now: fixedNow}

	r, err := ExecuteSubmitFANumber(context.Background(), SubmitFANumberInput{RefereeID: "ref-1", FANumber: " 0012345678 "}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.FANumber != "0012345678" || r.VerificationStatus != referee.VerificationPending {
		t.Errorf("unexpected referee %+v", r)
	}
	if stored := store.referees["ref-1"]; !stored.AwaitingReview() {
		t.Error("expected stored referee awaiting review")
	}

	if _, err := ExecuteSubmitFANumber(context.Background(), SubmitFANumberInput{RefereeID: "ref-1", FANumber: "12AB5678"}, deps); !errors.Is(err, referee.ErrInvalidFANumber) {
		t.Errorf("expected ErrInvalidFANumber, got %v", err)
	}
}

// TestExecuteUpdateRefereeProfile tests attribute edits leave review state alone.
func TestExecuteUpdateRefereeProfile(t *testing.T) {
	store := newMockRefereeStore(pendingReferee("ref-1"))
	deps := RefereeProfileDeps{RefereeStore: store, Now: fixedNow}

	r, err := ExecuteUpdateRefereeProfile(context.Background(), UpdateRefereeProfileInput{
		RefereeID: "ref-1", County: " Essex ", TravelRadiusKm: 30, CentralVenueOptIn: true, Level: referee.LevelCounty,
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.County != "Essex" || !r.CentralVenueOptIn || r.VerificationStatus != referee.VerificationPending {
		t.Errorf("unexpected referee %+v", r)
	}

	if _, err := ExecuteUpdateRefereeProfile(context.Background(), UpdateRefereeProfileInput{RefereeID: "ref-1", TravelRadiusKm: 500}, deps); !errors.Is(err, referee.ErrInvalidRadius) {
		t.Errorf("expected ErrInvalidRadius, got %v", err)
	}
	if _, err := ExecuteUpdateRefereeProfile(context.Background(), UpdateRefereeProfileInput{RefereeID: "ref-1", Level: "grandmaster"}, deps); !errors.Is(err, referee.ErrInvalidLevel) {
		t.Errorf("expected ErrInvalidLevel, got %v", err)
	}
}

// --- Admin review ---

func reviewFixture(rs ...referee.Profile) (*mockRefereeStore, *mockAuditStore, *recordingNotifier, ReviewDeps) {
	store := newMockRefereeStore(rs...)
	audits := &mockAuditStore{}
	n := &recordingNotifier{}
	return store, audits, n, ReviewDeps{RefereeStore: store, AuditStore: audits, Notifier: n, Now: fixedNow}
}

// TestExecuteReviewVerification_Approve tests approval is audited and notified.
func TestExecuteReviewVerification_Approve(t *testing.T) {
	store, audits, n, deps := reviewFixture(pendingReferee("ref-1"))

	r, err := ExecuteReviewVerification(context.Background(), ReviewVerificationInput{RefereeID: "ref-1", Approve: true, Actor: adminActor}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.VerificationStatus != referee.VerificationVerified || store.referees["ref-1"].VerificationStatus != referee.VerificationVerified {
		t.Errorf("expected verified, got %s", r.VerificationStatus)
	}
	if len(audits.events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(audits.events))
	}
	e := audits.events[0]
	if e.Category != audit.CategoryVerification || e.Action != audit.ActionApprove || e.ResourceID != "ref-1" || e.ActorID != "admin-1" {
		t.Errorf("unexpected audit event %+v", e)
	}
	if len(n.sent) != 1 || n.sent[0].Type != notification.TypeVerificationResult {
		t.Errorf("expected verification notification, got %+v", n.sent)
	}
}

// TestExecuteReviewVerification_Reject tests the rejection note reaches the referee.
func TestExecuteReviewVerification_Reject(t *testing.T) {
	_, audits, n, deps := reviewFixture(pendingReferee("ref-1"))

	r, err := ExecuteReviewVerification(context.Background(), ReviewVerificationInput{RefereeID: "ref-1", Note: "Number not found on Whole Game", Actor: adminActor}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.VerificationStatus != referee.VerificationRejected || r.ReviewNote != "Number not found on Whole Game" {
		t.Errorf("unexpected referee %+v", r)
	}
	if audits.events[0].Action != audit.ActionReject || !strings.Contains(audits.events[0].Metadata, "Whole Game") {
		t.Errorf("unexpected audit event %+v", audits.events[0])
	}
	if n.sent[0].Body != "Number not found on Whole Game" {
		t.Errorf("expected note in notification, got %q", n.sent[0].Body)
	}
}

// TestExecuteReviewVerification_Rejections tests the review guards.
func TestExecuteReviewVerification_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input ReviewVerificationInput
		ref   referee.Profile
		want  error
	}{
		{"not admin", ReviewVerificationInput{RefereeID: "ref-1", Approve: true, Actor: Actor{ID: "coach-1", Role: profile.RoleCoach}}, pendingReferee("ref-1"), ErrForbidden},
		{"nothing pending", ReviewVerificationInput{RefereeID: "ref-1", Approve: true, Actor: adminActor}, referee.New("ref-1", fixedTime), referee.ErrNotPendingReview},
		{"reject without note", ReviewVerificationInput{RefereeID: "ref-1", Actor: adminActor}, pendingReferee("ref-1"), referee.ErrRejectionNeedsNote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, audits, n, deps := reviewFixture(tt.ref)
			_, err := ExecuteReviewVerification(context.Background(), tt.input, deps)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(audits.events) != 0 || len(n.sent) != 0 {
				t.Error("expected no audit or notification on failure")
			}
		})
	}
}

// TestExecuteSetComplianceStatus tests expiry is recorded as a warning.
func TestExecuteSetComplianceStatus(t *testing.T) {
	_, audits, _, deps := reviewFixture(referee.New("ref-1", fixedTime))

	r, err := ExecuteSetComplianceStatus(context.Background(), SetComplianceInput{RefereeID: "ref-1", Status: referee.ComplianceExpired, Actor: adminActor}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ComplianceStatus != referee.ComplianceExpired {
		t.Errorf("expected expired, got %s", r.ComplianceStatus)
	}
	if e := audits.events[0]; e.Severity != audit.SeverityWarning || e.Category != audit.CategoryCompliance {
		t.Errorf("unexpected audit event %+v", e)
	}

	if _, err := ExecuteSetComplianceStatus(context.Background(), SetComplianceInput{RefereeID: "ref-1", Status: "lapsed", Actor: adminActor}, deps); !errors.Is(err, referee.ErrInvalidCompliance) {
		t.Errorf("expected ErrInvalidCompliance, got %v", err)
	}
}

// --- Availability ---

// TestExecuteSetWeeklyAvailability tests wholesale replacement and slot validation.
func TestExecuteSetWeeklyAvailability(t *testing.T) {
	store := newMockAvailabilityStore()
	store.weekly["ref-1"] = []availability.WeeklySlot{{ID: "old", RefereeID: "ref-1", DayOfWeek: 1, StartTime: "18:00", EndTime: "20:00"}}
	deps := SetAvailabilityDeps{AvailabilityStore: store, GenerateID: seqIDs(), Now: fixedNow}

	slots, err := ExecuteSetWeeklyAvailability(context.Background(), SetWeeklyAvailabilityInput{
		RefereeID: "ref-1",
		Slots: []WeeklySlotInput{
			{DayOfWeek: 6, StartTime: "09:00", EndTime: "13:00"},
			{DayOfWeek: 0, StartTime: "10:00", EndTime: "16:00"},
		},
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 || len(store.weekly["ref-1"]) != 2 || store.weekly["ref-1"][0].ID == "old" {
		t.Errorf("expected weekly slots replaced, got %+v", store.weekly["ref-1"])
	}

	_, err = ExecuteSetWeeklyAvailability(context.Background(), SetWeeklyAvailabilityInput{
		RefereeID: "ref-1",
		Slots: []WeeklySlotInput{
			{DayOfWeek: 6, StartTime: "09:00", EndTime: "13:00"},
			{DayOfWeek: 7, StartTime: "09:00", EndTime: "13:00"},
		},
	}, deps)
	if !errors.Is(err, availability.ErrInvalidDay) || !strings.HasPrefix(err.Error(), "slot 2:") {
		t.Errorf("expected slot 2 ErrInvalidDay, got %v", err)
	}
	if len(store.weekly["ref-1"]) != 2 {
		t.Error("expected stored slots untouched after validation failure")
	}
}

// TestExecuteSetDateAvailability tests date slots are checked against local today.
func TestExecuteSetDateAvailability(t *testing.T) {
	store := newMockAvailabilityStore()
	deps := SetAvailabilityDeps{AvailabilityStore: store, GenerateID: seqIDs(), Now: fixedNow}

	if _, err := ExecuteSetDateAvailability(context.Background(), SetDateAvailabilityInput{
		RefereeID: "ref-1",
		Slots:     []DateSlotInput{{Date: "2026-09-12", StartTime: "09:00", EndTime: "17:00"}},
	}, deps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.dates["ref-1"]) != 1 {
		t.Errorf("expected one date slot, got %d", len(store.dates["ref-1"]))
	}

	tests := []struct {
		name string
		slot DateSlotInput
		want error
	}{
		{"past", DateSlotInput{Date: "2026-08-20", StartTime: "09:00", EndTime: "12:00"}, availability.ErrDateInPast},
		{"reversed", DateSlotInput{Date: "2026-09-20", StartTime: "12:00", EndTime: "09:00"}, availability.ErrEndBeforeStart},
		{"bad time", DateSlotInput{Date: "2026-09-20", StartTime: "9am", EndTime: "12:00"}, availability.ErrInvalidTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteSetDateAvailability(context.Background(), SetDateAvailabilityInput{RefereeID: "ref-1", Slots: []DateSlotInput{tt.slot}}, deps)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestExecuteSetAvailability_TooMany tests the per-referee slot cap.
func TestExecuteSetAvailability_TooMany(t *testing.T) {
	slots := make([]WeeklySlotInput, availability.MaxSlotsPerReferee+1)
	for i := range slots {
		slots[i] = WeeklySlotInput{DayOfWeek: i % 7, StartTime: "09:00", EndTime: "10:00"}
	}
	_, err := ExecuteSetWeeklyAvailability(context.Background(), SetWeeklyAvailabilityInput{RefereeID: "ref-1", Slots: slots},
		SetAvailabilityDeps{AvailabilityStore: newMockAvailabilityStore(), GenerateID: seqIDs(), Now: fixedNow})
	if !errors.Is(err, availability.ErrTooManySlots) {
		t.Errorf("expected ErrTooManySlots, got %v", err)
	}
}

// --- Notification read state ---

type mockReadStore struct {
	marked  []string
	allAt   time.Time
	changed int
}

func (m *mockReadStore) MarkRead(_ context.Context, userID, id string, _ time.Time) error {
	m.marked = append(m.marked, userID+"/"+id)
	return nil
}

func (m *mockReadStore) MarkAllRead(_ context.Context, _ string, at time.Time) (int, error) {
	m.allAt = at
	return m.changed, nil
}

// TestExecuteMarkNotificationsRead tests both read orchestrators pass the clock through.
func TestExecuteMarkNotificationsRead(t *testing.T) {
	store := &mockReadStore{changed: 3}
	deps := MarkNotificationsReadDeps{NotificationStore: store, Now: fixedNow}

	if err := ExecuteMarkNotificationRead(context.Background(), "ref-1", "n1", deps); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	n, err := ExecuteMarkAllNotificationsRead(context.Background(), "ref-1", deps)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if n != 3 || !store.allAt.Equal(fixedTime) || len(store.marked) != 1 || store.marked[0] != "ref-1/n1" {
		t.Errorf("unexpected store state %+v, n=%d", store, n)
	}
}
