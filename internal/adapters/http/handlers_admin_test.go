package web

import (
	"context"
	"net/http"
	"testing"

	"whistle/internal/adapters/http/perf"
	"whistle/internal/domain/outbox"
)

func TestAdminReviewFlow(t *testing.T) {
	srv := newTestApp(t)
	admin := srv.seedAdmin()
	ref, refID := srv.register("ref@whistle.test", "referee")

	srv.mustDo("POST", "/api/push/subscribe", map[string]any{
		"endpoint":       "https://push.example.test/sub/1",
		"keys":           map[string]string{"p256dh": "BNcR", "auth": "tBHI"},
		"expirationTime": nil,
	}, ref, http.StatusCreated)

	srv.mustDo("POST", "/api/referee/fa-number", map[string]string{"fa_number": "12AB"}, ref, http.StatusBadRequest)
	srv.mustDo("POST", "/api/referee/fa-number", map[string]string{"fa_number": "20061234"}, ref, http.StatusOK)

	rr := srv.mustDo("GET", "/api/admin/verification-queue", nil, admin, http.StatusOK)
	var queue []struct {
		ProfileID string `json:"profile_id"`
		FANumber  string `json:"fa_number"`
	}
	decode(t, rr, &queue)
	if len(queue) != 1 || queue[0].ProfileID != refID || queue[0].FANumber != "20061234" {
		t.Fatalf("queue = %+v", queue)
	}

	// Rejection needs a note.
	srv.mustDo("POST", "/api/admin/referees/"+refID+"/review", map[string]any{"approve": false}, admin, http.StatusBadRequest)
	rr = srv.mustDo("POST", "/api/admin/referees/"+refID+"/review", map[string]any{"approve": true}, admin, http.StatusOK)
	var reviewed struct {
		VerificationStatus string `json:"verification_status"`
	}
	decode(t, rr, &reviewed)
	if reviewed.VerificationStatus != "verified" {
		t.Errorf("status = %q, want verified", reviewed.VerificationStatus)
	}
	srv.mustDo("POST", "/api/admin/referees/"+refID+"/review", map[string]any{"approve": true}, admin, http.StatusConflict)
	srv.mustDo("POST", "/api/admin/referees/missing/review", map[string]any{"approve": true}, admin, http.StatusNotFound)

	// The referee heard about it by push.
	sent := srv.push.Sent()
	if len(sent) != 1 || sent[0].Payload.Title != "Your FA number has been verified" {
		t.Errorf("push deliveries = %+v", sent)
	}

	srv.mustDo("POST", "/api/admin/referees/"+refID+"/compliance", map[string]string{"status": "lapsed"}, admin, http.StatusBadRequest)
	srv.mustDo("POST", "/api/admin/referees/"+refID+"/compliance", map[string]string{"status": "verified"}, admin, http.StatusOK)

	rr = srv.mustDo("GET", "/api/admin/referees?verification_status=verified", nil, admin, http.StatusOK)
	var list struct {
		Referees []struct {
			ProfileID        string `json:"profile_id"`
			ComplianceStatus string `json:"compliance_status"`
		} `json:"referees"`
	}
	decode(t, rr, &list)
	if len(list.Referees) != 1 || list.Referees[0].ComplianceStatus != "verified" {
		t.Errorf("referees = %+v", list)
	}

	rr = srv.mustDo("GET", "/api/admin/audit?resource_id="+refID, nil, admin, http.StatusOK)
	var events []struct {
		Category string `json:"category"`
		Action   string `json:"action"`
	}
	decode(t, rr, &events)
	if len(events) != 2 {
		t.Fatalf("audit events = %+v", events)
	}
	// Newest first.
	if events[0].Category != "compliance" || events[1].Action != "approve" {
		t.Errorf("audit order = %+v", events)
	}

	srv.mustDo("GET", "/api/admin/audit?from=yesterday", nil, admin, http.StatusBadRequest)
	rr = srv.mustDo("GET", "/api/admin/audit?category=verification&from=2026-09-01&to=2026-09-01", nil, admin, http.StatusOK)
	decode(t, rr, &events)
	if len(events) != 1 {
		t.Errorf("dated audit events = %+v", events)
	}

	srv.mustDo("POST", "/api/push/unsubscribe", map[string]string{"endpoint": "https://push.example.test/sub/1"}, ref, http.StatusNoContent)
}

func TestPushSubscribe_Validation(t *testing.T) {
	srv := newTestApp(t)
	ref, _ := srv.register("ref@whistle.test", "referee")
	srv.mustDo("POST", "/api/push/subscribe", map[string]any{
		"endpoint": "http://push.example.test/sub/1",
		"keys":     map[string]string{"p256dh": "BNcR", "auth": "tBHI"},
	}, ref, http.StatusBadRequest)
	srv.mustDo("POST", "/api/push/subscribe", map[string]any{
		"endpoint": "https://push.example.test/sub/1",
	}, ref, http.StatusBadRequest)

	rr := srv.mustDo("GET", "/api/push/vapid-key", nil, nil, http.StatusOK)
	var key struct {
		Enabled bool `json:"enabled"`
	}
	decode(t, rr, &key)
	if key.Enabled {
		t.Error("push reported enabled without a VAPID key")
	}
}

func TestAdminOutbox(t *testing.T) {
	srv := newTestApp(t)
	admin := srv.seedAdmin()

	ctx := context.Background()
	for _, id := range []string{"ob-1", "ob-2"} {
		e, err := outbox.NewEntry(id, outbox.ActionTypeEmail, outbox.EmailPayload{To: "coach@whistle.test", Subject: "Hi", Body: "Hello"}, timeNow())
		if err != nil {
			t.Fatalf("NewEntry: %v", err)
		}
		if err := stores.Outbox.Save(ctx, e); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	rr := srv.mustDo("POST", "/api/admin/outbox/ob-1/abandon", nil, admin, http.StatusOK)
	var entry struct {
		Status string `json:"status"`
	}
	decode(t, rr, &entry)
	if entry.Status != "abandoned" {
		t.Errorf("abandoned status = %q", entry.Status)
	}
	srv.mustDo("POST", "/api/admin/outbox/ob-1/retry", nil, admin, http.StatusConflict)

	// No email executor is registered in tests, so the attempt fails and backs off.
	rr = srv.mustDo("POST", "/api/admin/outbox/ob-2/retry", nil, admin, http.StatusOK)
	var retried struct {
		Status       string `json:"status"`
		Attempts     int    `json:"attempts"`
		ErrorMessage string `json:"error_message"`
	}
	decode(t, rr, &retried)
	if retried.Status != "retrying" || retried.Attempts != 1 || retried.ErrorMessage == "" {
		t.Errorf("retried entry = %+v", retried)
	}
	srv.mustDo("POST", "/api/admin/outbox/missing/retry", nil, admin, http.StatusNotFound)

	rr = srv.mustDo("GET", "/api/admin/outbox?status=abandoned", nil, admin, http.StatusOK)
	var list struct {
		Entries []struct {
			ID string `json:"id"`
		} `json:"entries"`
		Counts map[string]int `json:"counts"`
	}
	decode(t, rr, &list)
	if len(list.Entries) != 1 || list.Entries[0].ID != "ob-1" {
		t.Errorf("entries = %+v", list.Entries)
	}
	if list.Counts["abandoned"] != 1 || list.Counts["retrying"] != 1 || list.Counts["pending"] != 0 {
		t.Errorf("counts = %v", list.Counts)
	}

	rr = srv.mustDo("GET", "/api/admin/audit?category=system", nil, admin, http.StatusOK)
	var events []struct {
		Action string `json:"action"`
	}
	decode(t, rr, &events)
	if len(events) != 2 {
		t.Errorf("outbox audit events = %+v", events)
	}
}

func TestAdminPerf(t *testing.T) {
	srv := newTestApp(t)
	admin := srv.seedAdmin()
	srv.mustDo("GET", "/api/health", nil, nil, http.StatusOK)

	rr := srv.mustDo("GET", "/api/admin/perf?minutes=5&top=3", nil, admin, http.StatusOK)
	var snap perf.Snapshot
	decode(t, rr, &snap)
	if snap.Requests == 0 {
		t.Errorf("snapshot = %+v", snap)
	}
	found := false
	for _, s := range snap.SlowestPaths {
		if s.Key == "GET /api/health" {
			found = true
		}
	}
	if !found {
		t.Errorf("health route missing from %+v", snap.SlowestPaths)
	}
}
