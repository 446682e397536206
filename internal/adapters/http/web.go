package web

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"whistle/internal/adapters/http/middleware"
	"whistle/internal/adapters/http/perf"
	"whistle/internal/adapters/realtime"
	auditStore "whistle/internal/adapters/storage/audit"
	availabilityStore "whistle/internal/adapters/storage/availability"
	bookingStore "whistle/internal/adapters/storage/booking"
	messageStore "whistle/internal/adapters/storage/message"
	notificationStore "whistle/internal/adapters/storage/notification"
	offerStore "whistle/internal/adapters/storage/offer"
	outboxStore "whistle/internal/adapters/storage/outbox"
	profileStore "whistle/internal/adapters/storage/profile"
	pushStore "whistle/internal/adapters/storage/push"
	refereeStore "whistle/internal/adapters/storage/referee"
	"whistle/internal/application/orchestrators"
	"whistle/internal/application/projections"
	"whistle/internal/domain/profile"
)

// Stores holds all storage dependencies.
type Stores struct {
	Profiles      profileStore.Store
	Referees      refereeStore.Store
	Availability  availabilityStore.Store
	Bookings      bookingStore.Store
	Offers        offerStore.Store
	Threads       messageStore.Store
	Notifications notificationStore.Store
	Push          pushStore.Store
	Outbox        outboxStore.Store
	Audit         auditStore.Store
}

// Options configures the HTTP layer. Hub and Notifier are required.
type Options struct {
	StaticDir      string
	CSRFKey        []byte // 32 bytes
	Secure         bool   // HTTPS deployment: Secure cookies and strict CSRF referer checks
	TrustedOrigins []string
	RateLimit      int // requests per second per IP
	SlowRequest    time.Duration
	Location       *time.Location
	BaseURL        string
	VAPIDPublicKey string

	DB            *sql.DB // pinged by /api/health when set
	SchemaVersion int64   // migration version applied at startup

	Hub      *realtime.Hub
	Events   realtime.Publisher // defaults to Hub
	Notifier orchestrators.NotificationSender
	Outbox   *orchestrators.OutboxProcessor
	Perf     *perf.Collector
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// Global options (set by NewMux)
var app Options

// timeNow is a variable for testability.
var timeNow = time.Now

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, opts Options) http.Handler {
	if opts.Events == nil {
		opts.Events = opts.Hub
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	stores = s
	app = opts
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = opts.Secure

	limiter := middleware.NewRateLimiter(opts.RateLimit, time.Second)

	r := chi.NewRouter()
	// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> routes
	r.Use(
		middleware.Timing(opts.Perf, opts.SlowRequest),
		middleware.RateLimit(limiter),
		middleware.Auth(sessions),
		middleware.CSRF(middleware.CSRFOptions{Key: opts.CSRFKey, Secure: opts.Secure, TrustedOrigins: opts.TrustedOrigins}),
		middleware.SecurityHeaders,
	)
	registerRoutes(r)

	if opts.StaticDir != "" {
		fs := http.FileServer(http.Dir(opts.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fs))
		r.Handle("/*", fs)
	}
	return r
}

func registerRoutes(r chi.Router) {
	r.Get("/api/health", handleHealth)
	r.Get("/api/csrf", handleCSRFToken)
	r.Post("/api/auth/register", handleRegister)
	r.Post("/api/auth/login", handleLogin)
	r.Post("/api/auth/logout", handleLogout)
	r.Get("/api/push/vapid-key", handleVAPIDKey)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/api/me", handleGetMe)
		r.Put("/api/me", handleUpdateMe)
		r.Post("/api/me/password", handleChangePassword)

		r.Get("/api/bookings/{id}", handleGetBooking)
		r.Get("/api/bookings/{id}/calendar.ics", handleBookingCalendar)
		r.Post("/api/bookings/{id}/cancel", handleCancelBooking)
		r.Post("/api/bookings/{id}/complete", handleCompleteBooking)

		r.Get("/api/threads", handleListThreads)
		r.Get("/api/threads/{id}", handleGetThread)
		r.Post("/api/threads/{id}/messages", handleSendMessage)

		r.Get("/api/notifications", handleListNotifications)
		r.Get("/api/notifications/unread-count", handleUnreadCount)
		r.Post("/api/notifications/read-all", handleMarkAllNotificationsRead)
		r.Post("/api/notifications/{id}/read", handleMarkNotificationRead)

		r.Post("/api/push/subscribe", handlePushSubscribe)
		r.Post("/api/push/unsubscribe", handlePushUnsubscribe)

		r.Get("/api/realtime", handleRealtime)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(profile.RoleCoach))

		r.Get("/api/bookings", handleListCoachBookings)
		r.Post("/api/bookings", handleCreateBooking)
		r.Put("/api/bookings/{id}", handleUpdateBooking)
		r.Post("/api/bookings/{id}/send-offers", handleSendOffers)
		r.Post("/api/bookings/{id}/request-referee", handleRequestReferee)
		r.Get("/api/bookings/{id}/available-referees", handleSearchReferees)
		r.Post("/api/offers/{id}/confirm", handleConfirmOffer)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(profile.RoleReferee))

		r.Get("/api/referee/offers", handleListRefereeOffers)
		r.Get("/api/referee/bookings", handleListAssignedBookings)
		r.Post("/api/offers/{id}/accept", handleAcceptOffer)
		r.Post("/api/offers/{id}/decline", handleDeclineOffer)
		r.Put("/api/referee/profile", handleUpdateRefereeProfile)
		r.Post("/api/referee/fa-number", handleSubmitFANumber)
		r.Get("/api/referee/availability", handleGetAvailability)
		r.Put("/api/referee/availability/weekly", handleSetWeeklyAvailability)
		r.Put("/api/referee/availability/dates", handleSetDateAvailability)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(profile.RoleAdmin))

		r.Get("/referees", handleAdminListReferees)
		r.Get("/verification-queue", handleAdminVerificationQueue)
		r.Post("/referees/{id}/review", handleAdminReviewReferee)
		r.Post("/referees/{id}/compliance", handleAdminSetCompliance)
		r.Get("/audit", handleAdminAuditLog)
		r.Get("/outbox", handleAdminListOutbox)
		r.Post("/outbox/{id}/retry", handleAdminOutboxAction(false))
		r.Post("/outbox/{id}/abandon", handleAdminOutboxAction(true))
		r.Get("/perf", handleAdminPerf)
	})
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeOrReject decodes the JSON body into v, writing a 400 on failure.
func decodeOrReject(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := strictDecode(r, v); err != nil {
		badRequest(w, "invalid request body")
		return false
	}
	return true
}

func isFormRequest(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// currentSession returns the session set by middleware.RequireAuth.
func currentSession(r *http.Request) middleware.Session {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	return sess
}

func viewerOf(sess middleware.Session) projections.Viewer {
	return projections.Viewer{ID: sess.ProfileID, Role: sess.Role}
}

func actorOf(sess middleware.Session) orchestrators.Actor {
	return orchestrators.Actor{ID: sess.ProfileID, Email: sess.Email, Role: sess.Role}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if app.DB != nil {
		if err := app.DB.PingContext(r.Context()); err != nil {
			slog.Error("health_check_failed", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "schema_version": app.SchemaVersion})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "schema_version": app.SchemaVersion})
}
