package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"whistle/internal/adapters/broker"
	emailAdapter "whistle/internal/adapters/email"
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
	"whistle/internal/config"
	"whistle/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	schema, _ := storage.SchemaVersion(ctx, db)
	slog.Info("database_ready", "path", cfg.DBPath, "schema", schema)
	if cfg.MigrateOnly {
		return nil
	}

	// Queries go through the timed wrapper so slow ones show up on /api/admin/perf.
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQuery)

	stores := &web.Stores{
		Profiles:      profileStore.NewSQLiteStore(timedDB),
		Referees:      refereeStore.NewSQLiteStore(timedDB),
		Availability:  availabilityStore.NewSQLiteStore(timedDB),
		Bookings:      bookingStore.NewSQLiteStore(timedDB),
		Offers:        offerStore.NewSQLiteStore(timedDB),
		Threads:       messageStore.NewSQLiteStore(timedDB),
		Notifications: notificationStore.NewSQLiteStore(timedDB),
		Push:          pushStore.NewSQLiteStore(timedDB),
		Outbox:        outboxStore.NewSQLiteStore(timedDB),
		Audit:         auditStore.NewSQLiteStore(timedDB),
	}
	newID := func() string { return uuid.New().String() }

	if err := seed(ctx, cfg, stores, newID); err != nil {
		return err
	}

	// Realtime: the in-process hub always, mirrored to AMQP when configured.
	hub := realtime.NewHub(realtime.DefaultBuffer)
	var events realtime.Publisher = hub
	if cfg.AMQPURL != "" {
		pub, err := broker.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
		defer pub.Close()
		events = realtime.NewFanout(hub, pub)
		slog.Info("broker_configured", "exchange", cfg.AMQPExchange)
	}

	var pushSender pushAdapter.Sender = &pushAdapter.NoopSender{}
	if cfg.PushEnabled() {
		pushSender = pushAdapter.NewWebPushSender(pushAdapter.Config{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subject:    cfg.VAPIDSubject,
		})
		slog.Info("push_configured")
	} else {
		slog.Warn("push_disabled", "reason", "WHISTLE_VAPID_PUBLIC_KEY and WHISTLE_VAPID_PRIVATE_KEY are not set")
	}

	var emailSender emailAdapter.Sender = emailAdapter.NewNoopSender()
	if cfg.EmailEnabled() {
		emailSender = emailAdapter.NewResendSender(cfg.ResendKey, cfg.EmailFrom, cfg.ReplyTo)
		slog.Info("email_configured", "provider", "resend")
	} else if cfg.IsProduction() {
		slog.Warn("email_disabled", "reason", "WHISTLE_RESEND_KEY is not set")
	}

	notifier := orchestrators.NewNotifier(orchestrators.NotifierDeps{
		NotificationStore: stores.Notifications,
		PushStore:         stores.Push,
		ProfileStore:      stores.Profiles,
		OutboxStore:       stores.Outbox,
		Push:              pushSender,
		Events:            events,
		EmailEnabled:      cfg.EmailEnabled() && cfg.EmailNotifications,
		GenerateID:        newID,
		Now:               time.Now,
	})

	processor := orchestrators.NewOutboxProcessor(stores.Outbox, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeEmail: &orchestrators.EmailExecutor{Sender: emailSender, BaseURL: cfg.BaseURL},
		outbox.ActionTypePush:  &orchestrators.PushExecutor{Subscriptions: stores.Push, Sender: pushSender},
	}, time.Now)
	outboxStop := make(chan struct{})
	orchestrators.StartBackgroundWorker(processor, cfg.OutboxInterval, outboxStop)
	defer close(outboxStop)

	csrfKey, err := cfg.CSRFKeyBytes()
	if err != nil {
		return err
	}
	if csrfKey == nil {
		// Development only: tokens stop validating across restarts.
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			return fmt.Errorf("generate csrf key: %w", err)
		}
		slog.Warn("csrf_key_generated", "reason", "WHISTLE_CSRF_KEY is not set")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	handler := web.NewMux(stores, web.Options{
		StaticDir:      staticDir(cfg.StaticDir),
		CSRFKey:        csrfKey,
		Secure:         cfg.IsProduction(),
		RateLimit:      cfg.RateLimit,
		SlowRequest:    cfg.SlowRequest,
		Location:       loc,
		BaseURL:        cfg.BaseURL,
		VAPIDPublicKey: cfg.VAPIDPublicKey,
		DB:             db,
		SchemaVersion:  schema,
		Hub:            hub,
		Events:         events,
		Notifier:       notifier,
		Outbox:         processor,
		Perf:           collector,
	})

	// No WriteTimeout: realtime connections are long-lived.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "schema", schema)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_stopping", "grace", cfg.ShutdownGrace.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// seed creates the admin account and, outside production, the demo accounts.
func seed(ctx context.Context, cfg config.Config, stores *web.Stores, newID func() string) error {
	if cfg.AdminPassword != "" {
		created, err := orchestrators.ExecuteSeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, orchestrators.SeedAdminDeps{
			ProfileStore: stores.Profiles,
			GenerateID:   newID,
			Now:          time.Now,
		})
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			slog.Info("admin_seeded", "email", cfg.AdminEmail)
		}
	} else {
		slog.Warn("admin_seed_skipped", "reason", "WHISTLE_ADMIN_PASSWORD is not set")
	}

	if cfg.IsProduction() {
		return nil
	}
	n, err := orchestrators.ExecuteSeedDemoAccounts(ctx, orchestrators.DemoSeedDeps{
		Register: orchestrators.RegisterDeps{
			ProfileStore: stores.Profiles,
			RefereeStore: stores.Referees,
			GenerateID:   newID,
			Now:          time.Now,
		},
		RefereeStore:      stores.Referees,
		AvailabilityStore: stores.Availability,
	})
	if err != nil {
		return fmt.Errorf("seed demo accounts: %w", err)
	}
	if n > 0 {
		slog.Info("demo_accounts_seeded", "count", n)
	}
	return nil
}

func setupLogging(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// staticDir returns dir when it exists, so a missing asset directory disables file serving.
func staticDir(dir string) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}
