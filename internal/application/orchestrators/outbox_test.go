package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	emailAdapter "whistle/internal/adapters/email"
	pushAdapter "whistle/internal/adapters/push"
	"whistle/internal/domain/audit"
	"whistle/internal/domain/outbox"
)

type stubExecutor struct {
	err   error
	calls []string
}

func (s *stubExecutor) Execute(_ context.Context, payload string) (string, error) {
	s.calls = append(s.calls, payload)
	if s.err != nil {
		return "", s.err
	}
	return "ext-1", nil
}

func newTestEntry(t *testing.T, id, actionType string, payload any) outbox.Entry {
	t.Helper()
	e, err := outbox.NewEntry(id, actionType, payload, fixedTime.Add(-time.Hour))
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	return e
}

// TestOutboxProcessor_ProcessPending tests success, failure and unknown types in one batch.
func TestOutboxProcessor_ProcessPending(t *testing.T) {
	store := newMockOutboxStore(
		newTestEntry(t, "e1", outbox.ActionTypeEmail, outbox.EmailPayload{To: "a@example.com", Subject: "s"}),
		newTestEntry(t, "e2", outbox.ActionTypePush, outbox.PushPayload{SubscriptionID: "s1"}),
	)
	emailExec := &stubExecutor{}
	pushExec := &stubExecutor{err: errors.New("503 from push service")}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeEmail: emailExec,
		outbox.ActionTypePush:  pushExec,
	}, fixedNow)

	n, err := p.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 attempted, got %d", n)
	}
	if e := store.entries["e1"]; e.Status != outbox.StatusDone || e.ExternalID != "ext-1" || e.Attempts != 1 {
		t.Errorf("unexpected email entry %+v", e)
	}
	e2 := store.entries["e2"]
	if e2.Status != outbox.StatusRetrying || e2.Attempts != 1 || !strings.Contains(e2.ErrorMessage, "503") {
		t.Errorf("unexpected push entry %+v", e2)
	}

	// Within the backoff window nothing is attempted again.
	n, err = p.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if n != 0 || len(pushExec.calls) != 1 {
		t.Errorf("expected backoff to skip the retry, attempted %d", n)
	}
}

// TestOutboxProcessor_BackoffDoesNotStarveFreshEntries tests that a full batch of
// entries still backing off does not hide a newer due entry.
func TestOutboxProcessor_BackoffDoesNotStarveFreshEntries(t *testing.T) {
	store := newMockOutboxStore()
	for i := 0; i < 25; i++ {
		e := newTestEntry(t, fmt.Sprintf("old-%02d", i), outbox.ActionTypePush, outbox.PushPayload{SubscriptionID: "s1"})
		e.MarkAttempt(fixedTime.Add(-time.Second))
		e.MarkFailed(errors.New("push service down"))
		store.entries[e.ID] = e
	}
	fresh, err := outbox.NewEntry("fresh", outbox.ActionTypeEmail, outbox.EmailPayload{To: "a@example.com", Subject: "s"}, fixedTime)
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	store.entries[fresh.ID] = fresh

	emailExec := &stubExecutor{}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeEmail: emailExec,
		outbox.ActionTypePush:  &stubExecutor{},
	}, fixedNow)

	n, err := p.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || len(emailExec.calls) != 1 {
		t.Errorf("expected only the fresh entry attempted, attempted %d", n)
	}
	if e := store.entries["fresh"]; e.Status != outbox.StatusDone || e.Attempts != 1 {
		t.Errorf("unexpected fresh entry %+v", e)
	}
	if e := store.entries["old-00"]; e.Attempts != 1 {
		t.Errorf("backing-off entry attempted early: %+v", e)
	}
}

// TestOutboxProcessor_ExhaustsAttempts tests an entry fails once MaxAttempts is reached.
func TestOutboxProcessor_ExhaustsAttempts(t *testing.T) {
	e := newTestEntry(t, "e1", outbox.ActionTypePush, outbox.PushPayload{SubscriptionID: "s1"})
	e.Attempts = e.MaxAttempts - 1
	store := newMockOutboxStore(e)
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionTypePush: &stubExecutor{err: errors.New("timeout")}}, fixedNow)

	if _, err := p.ProcessPending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.entries["e1"]; got.Status != outbox.StatusFailed || got.Attempts != got.MaxAttempts {
		t.Errorf("expected failed after max attempts, got %+v", got)
	}
}

// TestOutboxProcessor_AbandonsOnSentinel tests ErrAbandonEntry stops retries.
func TestOutboxProcessor_AbandonsOnSentinel(t *testing.T) {
	store := newMockOutboxStore(newTestEntry(t, "e1", outbox.ActionTypePush, outbox.PushPayload{SubscriptionID: "gone"}))
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionTypePush: &stubExecutor{err: ErrAbandonEntry}}, fixedNow)

	if _, err := p.ProcessPending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.entries["e1"]; got.Status != outbox.StatusAbandoned {
		t.Errorf("expected abandoned, got %s", got.Status)
	}
}

// TestOutboxProcessor_RetryEntry tests an admin retry requeues a failed entry.
func TestOutboxProcessor_RetryEntry(t *testing.T) {
	e := newTestEntry(t, "e1", outbox.ActionTypeEmail, outbox.EmailPayload{To: "a@example.com", Subject: "s"})
	e.Status = outbox.StatusFailed
	e.Attempts = e.MaxAttempts
	e.LastAttemptedAt = fixedTime
	store := newMockOutboxStore(e)
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionTypeEmail: &stubExecutor{}}, fixedNow)

	got, err := p.RetryEntry(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != outbox.StatusDone || got.Attempts != 1 {
		t.Errorf("expected done after one fresh attempt, got %+v", got)
	}

	if _, err := p.RetryEntry(context.Background(), "e1"); !errors.Is(err, outbox.ErrNotRetryable) {
		t.Errorf("expected ErrNotRetryable for done entry, got %v", err)
	}
}

// TestOutboxProcessor_PurgeDone tests the retention cutoff.
func TestOutboxProcessor_PurgeDone(t *testing.T) {
	old := newTestEntry(t, "old", outbox.ActionTypeEmail, outbox.EmailPayload{To: "a@example.com"})
	old.CreatedAt = fixedTime.Add(-8 * 24 * time.Hour)
	old.Status = outbox.StatusDone
	recent := newTestEntry(t, "recent", outbox.ActionTypeEmail, outbox.EmailPayload{To: "a@example.com"})
	recent.Status = outbox.StatusDone
	store := newMockOutboxStore(old, recent)
	p := NewOutboxProcessor(store, nil, fixedNow)

	n, err := p.PurgeDone(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || !store.purged.Equal(fixedTime.Add(-DoneRetention)) {
		t.Errorf("expected one purged at the retention cutoff, got %d at %v", n, store.purged)
	}
	if _, ok := store.entries["recent"]; !ok {
		t.Error("expected recent entry kept")
	}
}

// TestExecuteOutboxAdminAction tests abandon is audited.
func TestExecuteOutboxAdminAction(t *testing.T) {
	store := newMockOutboxStore(newTestEntry(t, "e1", outbox.ActionTypePush, outbox.PushPayload{SubscriptionID: "s1"}))
	audits := &mockAuditStore{}
	deps := OutboxAdminDeps{Processor: NewOutboxProcessor(store, nil, fixedNow), AuditStore: audits, Now: fixedNow}

	e, err := ExecuteOutboxAdminAction(context.Background(), OutboxAdminInput{EntryID: "e1", Abandon: true, Actor: adminActor}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Status != outbox.StatusAbandoned {
		t.Errorf("expected abandoned, got %s", e.Status)
	}
	if len(audits.events) != 1 || audits.events[0].Action != audit.ActionAbandon || audits.events[0].ResourceID != "e1" {
		t.Errorf("unexpected audit events %+v", audits.events)
	}
}

// TestEmailExecutor tests the queued email renders and sends.
func TestEmailExecutor(t *testing.T) {
	sender := emailAdapter.NewNoopSender()
	exec := &EmailExecutor{Sender: sender, BaseURL: "https://whistle.test"}
	payload, _ := json.Marshal(outbox.EmailPayload{To: "ref@example.com", Subject: "New match offer", Body: "Rovers v United", Link: "/offers/o1"})

	id, err := exec.Execute(context.Background(), string(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Error("expected provider message id")
	}
	sent := sender.Sent()
	if len(sent) != 1 || sent[0].To[0] != "ref@example.com" || !strings.Contains(sent[0].HTML, "https://whistle.test/offers/o1") {
		t.Errorf("unexpected send %+v", sent)
	}

	if _, err := exec.Execute(context.Background(), `{"subject":"x"}`); !errors.Is(err, ErrAbandonEntry) {
		t.Errorf("expected ErrAbandonEntry without recipient, got %v", err)
	}
}

// TestPushExecutor tests replay and gone-subscription cleanup.
func TestPushExecutor(t *testing.T) {
	subs := newMockPushStore(testPushSub("s1", "ref-1"), testPushSub("s2", "ref-1"))
	sender := &stubPushSender{errs: map[string]error{"s2": pushAdapter.ErrSubscriptionGone}}
	exec := &PushExecutor{Subscriptions: subs, Sender: sender}

	payload, _ := json.Marshal(outbox.PushPayload{SubscriptionID: "s1", Title: "New message"})
	if _, err := exec.Execute(context.Background(), string(payload)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.delivered) != 1 {
		t.Errorf("expected one delivery, got %v", sender.delivered)
	}

	payload, _ = json.Marshal(outbox.PushPayload{SubscriptionID: "s2", Title: "New message"})
	if _, err := exec.Execute(context.Background(), string(payload)); !errors.Is(err, ErrAbandonEntry) {
		t.Errorf("expected ErrAbandonEntry, got %v", err)
	}
	if _, ok := subs.subs["s2"]; ok {
		t.Error("expected gone subscription deleted")
	}

	payload, _ = json.Marshal(outbox.PushPayload{SubscriptionID: "missing"})
	if _, err := exec.Execute(context.Background(), string(payload)); !errors.Is(err, ErrAbandonEntry) {
		t.Errorf("expected ErrAbandonEntry for unknown subscription, got %v", err)
	}
}
