// Package config loads server configuration from flags, an optional .env file and WHISTLE_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
)

// Prefix is the environment variable prefix.
const Prefix = "whistle"

// EnvProduction names the production environment.
const EnvProduction = "production"

// Config is the full server configuration.
type Config struct {
	Env       string `envconfig:"ENV" default:"development"`
	Addr      string `envconfig:"ADDR" default:":8080"`
	DBPath    string `envconfig:"DB_PATH" default:"whistle.db"`
	BaseURL   string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	StaticDir string `envconfig:"STATIC_DIR" default:"static"`
	Timezone  string `envconfig:"TIMEZONE" default:"Europe/London"`
	CSRFKey   string `envconfig:"CSRF_KEY"`
	RateLimit int    `envconfig:"RATE_LIMIT" default:"10"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:"admin@whistle.local"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	ResendKey          string `envconfig:"RESEND_KEY"`
	EmailFrom          string `envconfig:"EMAIL_FROM" default:"Whistle Connect <noreply@whistle.local>"`
	ReplyTo            string `envconfig:"REPLY_TO"`
	EmailNotifications bool   `envconfig:"EMAIL_NOTIFICATIONS" default:"false"`

	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `envconfig:"VAPID_SUBJECT" default:"mailto:admin@whistle.local"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"whistle.events"`

	SlowQuery      time.Duration `envconfig:"SLOW_QUERY" default:"50ms"`
	SlowRequest    time.Duration `envconfig:"SLOW_REQUEST" default:"500ms"`
	OutboxInterval time.Duration `envconfig:"OUTBOX_INTERVAL" default:"1m"`
	ShutdownGrace  time.Duration `envconfig:"SHUTDOWN_GRACE" default:"10s"`

	// MigrateOnly is set from --migrate-only: apply migrations and exit.
	MigrateOnly bool `ignored:"true"`
}

var (
	ErrCSRFKeyRequired = errors.New("WHISTLE_CSRF_KEY is required in production")
	ErrInvalidCSRFKey  = errors.New("WHISTLE_CSRF_KEY must be 64 hex characters (32 bytes)")
	ErrPartialVAPID    = errors.New("WHISTLE_VAPID_PUBLIC_KEY and WHISTLE_VAPID_PRIVATE_KEY must be set together")
)

// Load parses args, loads the env file named by --env-file (default .env, optional),
// then reads WHISTLE_* variables. Flags given explicitly override the environment.
// PRE: args excludes the program name
// POST: Returns a validated Config
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("whistle", pflag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "dotenv file to load if present")
	addr := fs.String("addr", "", "listen address, overrides WHISTLE_ADDR")
	dbPath := fs.String("db", "", "sqlite database path, overrides WHISTLE_DB_PATH")
	migrateOnly := fs.Bool("migrate-only", false, "apply migrations and exit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if _, err := os.Stat(*envFile); err == nil {
		if err := godotenv.Load(*envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", *envFile, err)
		}
	} else if fs.Changed("env-file") {
		return Config{}, fmt.Errorf("env file %s: %w", *envFile, err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if fs.Changed("addr") {
		cfg.Addr = *addr
	}
	if fs.Changed("db") {
		cfg.DBPath = *dbPath
	}
	cfg.MigrateOnly = *migrateOnly

	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.CSRFKey == "" && c.IsProduction() {
		return ErrCSRFKeyRequired
	}
	if c.CSRFKey != "" {
		if _, err := c.CSRFKeyBytes(); err != nil {
			return err
		}
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return ErrPartialVAPID
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether Env is production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// CSRFKeyBytes decodes CSRFKey. An empty key returns nil, nil.
func (c Config) CSRFKeyBytes() ([]byte, error) {
	if c.CSRFKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.CSRFKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidCSRFKey
	}
	return key, nil
}

// Location loads the match-time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// PushEnabled reports whether VAPID keys are configured.
func (c Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// EmailEnabled reports whether a Resend key is configured.
func (c Config) EmailEnabled() bool {
	return c.ResendKey != ""
}
