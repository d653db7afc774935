package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NahunMenem/TurnosLu/libs/config"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

type appConfig struct {
	Service  string
	Port     string
	GRPCPort string
	LogLevel string

	Store       string
	DatabaseURL string
	DBMaxConns  int
	Migrate     bool

	RedisURL     string
	SlotCacheTTL time.Duration

	KafkaBrokers    string
	OutboxPollEvery time.Duration
	OutboxBatchSize int

	AdminTokenHash string
	CORSOrigins    []string
	RateLimit      int
	RateWindow     time.Duration
	RateBackend    string
	RequestTimeout time.Duration
	BodyLimit      int

	StripeSecretKey     string
	StripeWebhookSecret string

	WhatsAppToken   string
	WhatsAppPhoneID string
	WhatsAppBaseURL string
	SMSWebhookURL   string
	SMSWebhookToken string
	SMTPHost        string
	SMTPPort        string
	SMTPFrom        string
	NotifyTimeout   time.Duration

	ShutdownTimeout time.Duration
}

// loadConfig reads the environment. Parse failures are collected so a bad
// deployment reports every wrong variable at once.
func loadConfig() (appConfig, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	intVar := func(key string, fallback int) int {
		v, err := config.Int(key, fallback)
		collect(err)
		return v
	}
	durVar := func(key string, fallback time.Duration) time.Duration {
		v, err := config.Duration(key, fallback)
		collect(err)
		return v
	}

	cfg := appConfig{
		Service:  config.String("SERVICE_NAME", "booking-service"),
		LogLevel: config.String("LOG_LEVEL", "info"),

		Store:       strings.ToLower(config.String("STORE_BACKEND", storePostgres)),
		DatabaseURL: config.String("DATABASE_URL", ""),
		DBMaxConns:  intVar("DB_MAX_CONNS", 10),
		Migrate:     config.Bool("DB_MIGRATE", true),

		RedisURL:     config.String("REDIS_URL", ""),
		SlotCacheTTL: durVar("SLOT_CACHE_TTL", 2*time.Minute),

		KafkaBrokers:    config.String("KAFKA_BROKERS", ""),
		OutboxPollEvery: durVar("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize: intVar("OUTBOX_BATCH_SIZE", 50),

		AdminTokenHash: config.String("ADMIN_TOKEN_HASH", ""),
		CORSOrigins:    config.List("CORS_ALLOWED_ORIGINS"),
		RateLimit:      intVar("RATE_LIMIT_REQUESTS", 120),
		RateWindow:     durVar("RATE_LIMIT_WINDOW", time.Minute),
		RateBackend:    strings.ToLower(config.String("RATE_LIMIT_BACKEND", "memory")),
		RequestTimeout: durVar("HTTP_REQUEST_TIMEOUT", 15*time.Second),
		BodyLimit:      intVar("HTTP_BODY_LIMIT_BYTES", 1<<20),

		StripeSecretKey:     config.String("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: config.String("STRIPE_WEBHOOK_SECRET", ""),

		WhatsAppToken:   config.String("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneID: config.String("WHATSAPP_PHONE_ID", ""),
		WhatsAppBaseURL: config.String("WHATSAPP_API_URL", ""),
		SMSWebhookURL:   config.String("SMS_WEBHOOK_URL", ""),
		SMSWebhookToken: config.String("SMS_WEBHOOK_TOKEN", ""),
		SMTPHost:        config.String("SMTP_HOST", ""),
		SMTPPort:        config.String("SMTP_PORT", "1025"),
		SMTPFrom:        config.String("SMTP_FROM", ""),
		NotifyTimeout:   durVar("NOTIFY_TIMEOUT", 15*time.Second),

		ShutdownTimeout: durVar("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	port, err := config.Port("PORT", "8083")
	collect(err)
	cfg.Port = port
	grpcPort, err := config.Port("GRPC_PORT", "9083")
	collect(err)
	cfg.GRPCPort = grpcPort

	switch cfg.Store {
	case storePostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_BACKEND=postgres"))
		}
	case storeMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q: want postgres or memory", cfg.Store))
	}
	switch cfg.RateBackend {
	case "memory", "off":
	case "redis":
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when RATE_LIMIT_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND %q: want memory, redis or off", cfg.RateBackend))
	}
	return cfg, errors.Join(errs...)
}
