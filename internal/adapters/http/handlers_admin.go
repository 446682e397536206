package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"whistle/internal/application/orchestrators"
	"whistle/internal/application/projections"
)

// handleAdminListReferees handles GET /api/admin/referees with the list query
// parameters (page, per_page, sort, dir, q, county, verification_status, compliance_status, pending).
func handleAdminListReferees(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryListReferees(r.Context(), projections.ParseRefereeListParams(r.URL.Query()),
		projections.ListRefereesDeps{RefereeStore: stores.Referees})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAdminVerificationQueue handles GET /api/admin/verification-queue.
func handleAdminVerificationQueue(w http.ResponseWriter, r *http.Request) {
	items, err := projections.QueryGetVerificationQueue(r.Context(), projections.ListRefereesDeps{RefereeStore: stores.Referees})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func reviewDeps() orchestrators.ReviewDeps {
	return orchestrators.ReviewDeps{
		RefereeStore: stores.Referees,
		AuditStore:   stores.Audit,
		Notifier:     app.Notifier,
		Now:          timeNow,
	}
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// handleAdminReviewReferee handles POST /api/admin/referees/{id}/review.
func handleAdminReviewReferee(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req reviewRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	p, err := orchestrators.ExecuteReviewVerification(r.Context(), orchestrators.ReviewVerificationInput{
		RefereeID: chi.URLParam(r, "id"),
		Approve:   req.Approve,
		Note:      req.Note,
		Actor:     actorOf(sess),
	}, reviewDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type complianceRequest struct {
	Status string `json:"status"`
}

// handleAdminSetCompliance handles POST /api/admin/referees/{id}/compliance.
func handleAdminSetCompliance(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req complianceRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	p, err := orchestrators.ExecuteSetComplianceStatus(r.Context(), orchestrators.SetComplianceInput{
		RefereeID: chi.URLParam(r, "id"),
		Status:    req.Status,
		Actor:     actorOf(sess),
	}, reviewDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// parseDateParam accepts YYYY-MM-DD or RFC 3339. An empty value yields the zero time.
// A bare date used as an upper bound covers the whole day.
func parseDateParam(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, app.Location)
	if err != nil {
		return time.Time{}, errors.New("dates must be YYYY-MM-DD or RFC 3339")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// handleAdminAuditLog handles GET /api/admin/audit?category=&action=&actor_id=&resource_id=&from=&to=&limit=.
func handleAdminAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDateParam(q.Get("from"), false)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	to, err := parseDateParam(q.Get("to"), true)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	events, err := projections.QueryGetAuditLog(r.Context(), projections.GetAuditLogQuery{
		Category:   q.Get("category"),
		Action:     q.Get("action"),
		ActorID:    q.Get("actor_id"),
		ResourceID: q.Get("resource_id"),
		From:       from,
		To:         to,
		Limit:      limit,
	}, projections.GetAuditLogDeps{AuditStore: stores.Audit})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleAdminListOutbox handles GET /api/admin/outbox?status=&action_type=&limit=.
func handleAdminListOutbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	result, err := projections.QueryListOutbox(r.Context(), projections.ListOutboxQuery{
		Status:     q.Get("status"),
		ActionType: q.Get("action_type"),
		Limit:      limit,
	}, projections.ListOutboxDeps{OutboxStore: stores.Outbox})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAdminOutboxAction handles POST /api/admin/outbox/{id}/retry and /abandon.
func handleAdminOutboxAction(abandon bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.Outbox == nil {
			writeError(w, http.StatusServiceUnavailable, "outbox worker is not configured")
			return
		}
		sess := currentSession(r)
		entry, err := orchestrators.ExecuteOutboxAdminAction(r.Context(), orchestrators.OutboxAdminInput{
			EntryID: chi.URLParam(r, "id"),
			Abandon: abandon,
			Actor:   actorOf(sess),
		}, orchestrators.OutboxAdminDeps{
			Processor:  app.Outbox,
			AuditStore: stores.Audit,
			Now:        timeNow,
		})
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// handleAdminPerf handles GET /api/admin/perf?minutes=&top=.
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if app.Perf == nil {
		writeError(w, http.StatusServiceUnavailable, "performance collector is not configured")
		return
	}
	q := r.URL.Query()
	minutes, err := strconv.Atoi(q.Get("minutes"))
	if err != nil || minutes <= 0 {
		minutes = 60
	}
	top, err := strconv.Atoi(q.Get("top"))
	if err != nil || top <= 0 || top > 50 {
		top = 10
	}
	writeJSON(w, http.StatusOK, app.Perf.Snapshot(timeNow().Add(-time.Duration(minutes)*time.Minute), top))
}
