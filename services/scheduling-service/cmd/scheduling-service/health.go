package main

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/tailorbook/libs/runtime"
)

// healthReporter mirrors the /readyz checks onto the gRPC health service.
type healthReporter struct {
	server *health.Server
	checks []runtime.ReadyCheck
	logger *slog.Logger
	last   healthpb.HealthCheckResponse_ServingStatus
}

func newHealthReporter(logger *slog.Logger, checks ...runtime.ReadyCheck) *healthReporter {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &healthReporter{server: hs, checks: checks, logger: logger, last: healthpb.HealthCheckResponse_NOT_SERVING}
}

// refresh runs the checks once and publishes the result.
func (h *healthReporter) refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	report, ok := runtime.RunChecks(ctx, h.checks)
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if status != h.last {
		h.logger.Info("grpc health changed", "status", status.String(), "checks", report.Checks)
		h.last = status
	}
	h.server.SetServingStatus("", status)
	return status
}

// run refreshes every interval until ctx is done, then reports NOT_SERVING for good.
func (h *healthReporter) run(ctx context.Context, every time.Duration) {
	h.refresh(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.refresh(ctx)
		}
	}
}
