package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"whistle/internal/application/orchestrators"
	"whistle/internal/application/projections"
)

// handleListThreads handles GET /api/threads.
func handleListThreads(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	items, err := projections.QueryListThreads(r.Context(), sess.ProfileID, projections.ListThreadsDeps{ThreadStore: stores.Threads})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleGetThread handles GET /api/threads/{id}?limit=. Viewing marks the thread read.
func handleGetThread(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	result, err := projections.QueryGetThread(r.Context(), projections.GetThreadQuery{
		ThreadID: chi.URLParam(r, "id"),
		ViewerID: sess.ProfileID,
		Limit:    limit,
	}, projections.GetThreadDeps{ThreadStore: stores.Threads, Now: timeNow})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type sendMessageRequest struct {
	Body     string `json:"body"`
	ClientID string `json:"client_id"`
}

type sendMessageResponse struct {
	projections.MessageView
	ClientID string `json:"client_id,omitempty"`
}

// handleSendMessage handles POST /api/threads/{id}/messages.
func handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req sendMessageRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	m, err := orchestrators.ExecuteSendMessage(r.Context(), orchestrators.SendMessageInput{
		ThreadID: chi.URLParam(r, "id"),
		SenderID: sess.ProfileID,
		Body:     req.Body,
		ClientID: req.ClientID,
	}, orchestrators.SendMessageDeps{
		ThreadStore: stores.Threads,
		Notifier:    app.Notifier,
		Events:      app.Events,
		GenerateID:  generateID,
		Now:         timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sendMessageResponse{
		MessageView: projections.MessageView{Message: m, HTML: projections.RenderMessage(m)},
		ClientID:    req.ClientID,
	})
}

func notificationsDeps() projections.ListNotificationsDeps {
	return projections.ListNotificationsDeps{NotificationStore: stores.Notifications}
}

// handleListNotifications handles GET /api/notifications?limit=.
func handleListNotifications(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	result, err := projections.QueryListNotifications(r.Context(), sess.ProfileID, limit, notificationsDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleUnreadCount handles GET /api/notifications/unread-count.
func handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	n, err := projections.QueryUnreadCount(r.Context(), sess.ProfileID, notificationsDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": n})
}

func markReadDeps() orchestrators.MarkNotificationsReadDeps {
	return orchestrators.MarkNotificationsReadDeps{NotificationStore: stores.Notifications, Now: timeNow}
}

// handleMarkNotificationRead handles POST /api/notifications/{id}/read.
func handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if err := orchestrators.ExecuteMarkNotificationRead(r.Context(), sess.ProfileID, chi.URLParam(r, "id"), markReadDeps()); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMarkAllNotificationsRead handles POST /api/notifications/read-all.
func handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	n, err := orchestrators.ExecuteMarkAllNotificationsRead(r.Context(), sess.ProfileID, markReadDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": n})
}

// handleVAPIDKey handles GET /api/push/vapid-key. An empty key means push is disabled.
func handleVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"public_key": app.VAPIDPublicKey,
		"enabled":    app.VAPIDPublicKey != "",
	})
}

type pushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	ExpirationTime *float64 `json:"expirationTime,omitempty"`
}

func pushDeps() orchestrators.PushSubscriptionDeps {
	return orchestrators.PushSubscriptionDeps{PushStore: stores.Push, GenerateID: generateID, Now: timeNow}
}

// handlePushSubscribe handles POST /api/push/subscribe with a browser PushSubscription JSON.
func handlePushSubscribe(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req pushSubscriptionRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	sub, err := orchestrators.ExecuteSubscribePush(r.Context(), orchestrators.SubscribePushInput{
		ProfileID: sess.ProfileID,
		Endpoint:  req.Endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		UserAgent: r.UserAgent(),
	}, pushDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": sub.ID})
}

// handlePushUnsubscribe handles POST /api/push/unsubscribe.
func handlePushUnsubscribe(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if !decodeOrReject(w, r, &req) {
		return
	}
	if err := orchestrators.ExecuteUnsubscribePush(r.Context(), sess.ProfileID, req.Endpoint, pushDeps()); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
