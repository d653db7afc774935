package grpcx

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer builds a traced gRPC server with request id and access logging.
func NewServer(logger *slog.Logger, extra ...grpc.ServerOption) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerLoggingInterceptor(logger),
		),
	}
	return grpc.NewServer(append(opts, extra...)...)
}

// Health wraps the standard health server and keeps the serving status of one
// service name in sync with a readiness probe.
type Health struct {
	srv     *health.Server
	service string
	probe   func(context.Context) error
	logger  *slog.Logger
}

func RegisterHealth(s *grpc.Server, service string, probe func(context.Context) error, logger *slog.Logger) *Health {
	h := &Health{srv: health.NewServer(), service: service, probe: probe, logger: logger}
	healthpb.RegisterHealthServer(s, h.srv)
	h.srv.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Refresh probes once and publishes the result for both the named service and
// the empty (server-wide) name.
func (h *Health) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if h.probe != nil {
		if err := h.probe(ctx); err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			h.logger.Warn("health probe failed", "service", h.service, "err", err)
		}
	}
	h.srv.SetServingStatus(h.service, st)
	h.srv.SetServingStatus("", st)
	return st
}

// Run refreshes on every tick until ctx is done, then marks everything as not serving.
func (h *Health) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Second
	}
	h.Refresh(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			h.Refresh(probeCtx)
			cancel()
		}
	}
}
