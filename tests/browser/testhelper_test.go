package browser_test

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	web "whistle/internal/adapters/http"
	"whistle/internal/adapters/http/perf"
	pushAdapter "whistle/internal/adapters/push"
	"whistle/internal/adapters/realtime"
	"whistle/internal/adapters/storage"
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
)

const (
	adminEmail   = "admin@whistle.test"
	testPassword = "correct-horse-battery"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
	Stores  *web.Stores
}

// newTestApp starts a fully wired server over a temp SQLite file and launches Chromium.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}

	stores := &web.Stores{
		Profiles:      profileStore.NewSQLiteStore(db),
		Referees:      refereeStore.NewSQLiteStore(db),
		Availability:  availabilityStore.NewSQLiteStore(db),
		Bookings:      bookingStore.NewSQLiteStore(db),
		Offers:        offerStore.NewSQLiteStore(db),
		Threads:       messageStore.NewSQLiteStore(db),
		Notifications: notificationStore.NewSQLiteStore(db),
		Push:          pushStore.NewSQLiteStore(db),
		Outbox:        outboxStore.NewSQLiteStore(db),
		Audit:         auditStore.NewSQLiteStore(db),
	}
	newID := func() string { return uuid.New().String() }

	if _, err := orchestrators.ExecuteSeedAdmin(ctx, adminEmail, testPassword, orchestrators.SeedAdminDeps{
		ProfileStore: stores.Profiles,
		GenerateID:   newID,
		Now:          time.Now,
	}); err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}

	hub := realtime.NewHub(realtime.DefaultBuffer)
	notifier := orchestrators.NewNotifier(orchestrators.NotifierDeps{
		NotificationStore: stores.Notifications,
		PushStore:         stores.Push,
		ProfileStore:      stores.Profiles,
		OutboxStore:       stores.Outbox,
		Push:              &pushAdapter.NoopSender{},
		Events:            hub,
		GenerateID:        newID,
		Now:               time.Now,
	})

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	mux := web.NewMux(stores, web.Options{
		CSRFKey:   []byte("0123456789abcdef0123456789abcdef"),
		RateLimit: 1000,
		Location:  london,
		BaseURL:   baseURL,
		Hub:       hub,
		Notifier:  notifier,
		Outbox:    orchestrators.NewOutboxProcessor(stores.Outbox, nil, time.Now),
		Perf:      perf.NewCollector(1000),
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	for range 50 {
		resp, err := http.Get(baseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		Server:  srv,
		PW:      pw,
		Browser: browser,
		Stores:  stores,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})

	return app
}

// apiClient returns a Playwright request context with its own cookie jar.
func (a *testApp) apiClient(t *testing.T) playwright.APIRequestContext {
	t.Helper()
	rc, err := a.PW.Request.NewContext(playwright.APIRequestNewContextOptions{
		BaseURL: playwright.String(a.BaseURL),
	})
	if err != nil {
		t.Fatalf("failed to create request context: %v", err)
	}
	t.Cleanup(func() { rc.Dispose() })
	return rc
}

// post sends body as JSON and fails the test unless the response status is want.
func post(t *testing.T, rc playwright.APIRequestContext, path string, body any, want int) playwright.APIResponse {
	t.Helper()
	resp, err := rc.Post(path, playwright.APIRequestContextPostOptions{Data: body})
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	if resp.Status() != want {
		text, _ := resp.Text()
		t.Fatalf("POST %s = %d, want %d: %s", path, resp.Status(), want, text)
	}
	return resp
}

// get fetches path and fails the test unless the response status is want.
func get(t *testing.T, rc playwright.APIRequestContext, path string, want int) playwright.APIResponse {
	t.Helper()
	resp, err := rc.Get(path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	if resp.Status() != want {
		text, _ := resp.Text()
		t.Fatalf("GET %s = %d, want %d: %s", path, resp.Status(), want, text)
	}
	return resp
}

// register signs up a new account on rc and returns its profile ID.
func register(t *testing.T, rc playwright.APIRequestContext, email, role string) string {
	t.Helper()
	resp := post(t, rc, "/api/auth/register", map[string]string{
		"email":     email,
		"password":  testPassword,
		"role":      role,
		"full_name": "Browser " + role,
	}, http.StatusCreated)
	var body struct {
		ProfileID string `json:"profile_id"`
	}
	if err := resp.JSON(&body); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return body.ProfileID
}

// futureSaturday returns the match date of the Saturday at least a week out.
func futureSaturday() string {
	d := time.Now().AddDate(0, 0, 7)
	for d.Weekday() != time.Saturday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(time.DateOnly)
}
