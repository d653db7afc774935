package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/NahunMenem/TurnosLu/libs/config"
	"github.com/NahunMenem/TurnosLu/libs/db"
	"github.com/NahunMenem/TurnosLu/libs/grpcx"
	"github.com/NahunMenem/TurnosLu/libs/httpx"
	"github.com/NahunMenem/TurnosLu/libs/kafkax"
	otelx "github.com/NahunMenem/TurnosLu/libs/otel"
	"github.com/NahunMenem/TurnosLu/libs/runtime"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/booking"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/catalog"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/handlers"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/notify"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/outbox"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/payments"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/slotcache"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/storage"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/storage/memory"
)

// store is what both the engine and the catalog need from persistence.
type store interface {
	booking.Store
	catalog.Store
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}
	logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("booking service stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg appConfig, logger *slog.Logger) error {
	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		st     store
		checks []runtime.ReadyCheck
		probe  func(context.Context) error
	)
	switch cfg.Store {
	case storeMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		st = memory.New()
	default:
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: int32(cfg.DBMaxConns)})
		if err != nil {
			return fmt.Errorf("db connection: %w", err)
		}
		defer pool.Close()
		if cfg.Migrate {
			if err := storage.Migrate(ctx, pool); err != nil {
				return err
			}
		}
		outboxRepo := outbox.NewRepository()
		st = storage.NewPostgres(pool, outboxRepo)
		probe = db.ReadyCheck(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: probe})

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			PollEvery: cfg.OutboxPollEvery,
			BatchSize: cfg.OutboxBatchSize,
		})
		go publisher.Run(ctx)
		if cfg.KafkaBrokers != "" {
			checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	opts := booking.Options{Logger: logger}
	var invalidator catalog.Invalidator
	if rdb != nil {
		cache := slotcache.New(rdb, "", cfg.SlotCacheTTL)
		opts.Cache = cache
		invalidator = cache
	}
	dispatcher := notify.NewDispatcher(phoneSender(cfg, logger), emailSender(cfg), logger, notify.DispatcherConfig{Timeout: cfg.NotifyTimeout})
	opts.Notifier = dispatcher
	if cfg.StripeSecretKey != "" {
		opts.CardVerifier = payments.NewStripeVerifier(cfg.StripeSecretKey)
	}

	engine := booking.New(st, opts)
	cat := catalog.NewManager(st, invalidator, logger)
	h := handlers.New(engine, cat, logger, handlers.Config{StripeWebhookSecret: cfg.StripeWebhookSecret})

	middlewares := []func(http.Handler) http.Handler{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(cfg.BodyLimit)),
		httpx.WithTimeout(cfg.RequestTimeout),
	}
	switch cfg.RateBackend {
	case "redis":
		middlewares = append(middlewares, httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, cfg.RateWindow, cfg.Service+":rl").Middleware(logger, true))
	case "memory":
		middlewares = append(middlewares, httpx.NewRateLimiter(cfg.RateLimit, cfg.RateWindow).Middleware())
	}

	router := handlers.NewRouter(h, handlers.RouterConfig{
		AdminTokenHash: cfg.AdminTokenHash,
		CORSOrigins:    cfg.CORSOrigins,
		Middlewares:    middlewares,
		Health:         runtime.HealthHandler,
		Ready:          runtime.ReadyHandler(checks...),
	})
	if cfg.AdminTokenHash == "" {
		logger.Warn("ADMIN_TOKEN_HASH not set; admin routes are unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, cfg.Service),
		ReadHeaderTimeout: 5 * time.Second,
	}

	gs := grpcx.NewServer(logger)
	health := grpcx.RegisterHealth(gs, cfg.Service, probe, logger)
	go health.Run(ctx, 10*time.Second)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := gs.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	gs.GracefulStop()

	done := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("notifications still in flight at shutdown")
	}
	logger.Info("booking service stopped")
	return runErr
}

// phoneSender prefers WhatsApp, then the SMS webhook.
func phoneSender(cfg appConfig, logger *slog.Logger) notify.Sender {
	switch {
	case cfg.WhatsAppToken != "" && cfg.WhatsAppPhoneID != "":
		return notify.NewWhatsAppSender(cfg.WhatsAppBaseURL, cfg.WhatsAppPhoneID, cfg.WhatsAppToken)
	case cfg.SMSWebhookURL != "":
		return notify.NewWebhookSender(cfg.SMSWebhookURL, cfg.SMSWebhookToken)
	default:
		logger.Info("no phone notification provider configured; messages are dropped")
		return notify.NewNoopSender()
	}
}

func emailSender(cfg appConfig) notify.Sender {
	if cfg.SMTPHost == "" {
		return nil
	}
	return notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
}
