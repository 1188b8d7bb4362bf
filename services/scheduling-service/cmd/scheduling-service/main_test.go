package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/md-rashed-zaman/tailorbook/libs/grpcx"
	"github.com/md-rashed-zaman/tailorbook/libs/runtime"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "9090", cfg.GRPCPort)
	assert.Equal(t, "tailor.travel.updated.v1", cfg.TravelTopic)
	assert.Equal(t, 9, cfg.Availability.Hours.StartHour)
	assert.Equal(t, 17, cfg.Availability.Hours.EndHour)
	assert.Equal(t, 60, cfg.Availability.SlotMinutes)
	assert.True(t, cfg.EnforceHours)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, 10*time.Second, cfg.ShutdownGrace)
	assert.Equal(t, "*/5 * * * *", cfg.ReminderCron)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "8181")
	t.Setenv("TIMEZONE", "Asia/Dhaka")
	t.Setenv("WORK_START_HOUR", "10")
	t.Setenv("WORK_END_HOUR", "19")
	t.Setenv("ENFORCE_OFFERED_HOURS", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Port)
	assert.Equal(t, "Asia/Dhaka", cfg.Location.String())
	assert.Equal(t, cfg.Location, cfg.Availability.Location)
	assert.Equal(t, 10, cfg.Availability.Hours.StartHour)
	assert.Equal(t, 19, cfg.Availability.Hours.EndHour)
	assert.False(t, cfg.EnforceHours)
	assert.Len(t, cfg.CORSOrigins, 2)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"port":     {"PORT", "http"},
		"timezone": {"TIMEZONE", "Mars/Olympus"},
		"hours":    {"WORK_END_HOUR", "8"},
		"slot":     {"SLOT_MINUTES", "0"},
		"grace":    {"SHUTDOWN_GRACE", "soon"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := loadConfig()
			assert.Error(t, err)
		})
	}
}

func TestHealthReporterFollowsChecks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var failing error
	reporter := newHealthReporter(logger, runtime.ReadyCheck{
		Name:  "db",
		Check: func(context.Context) error { return failing },
	})

	lis := bufconn.Listen(1 << 16)
	srv := grpcx.NewServer(logger)
	healthpb.RegisterHealthServer(srv, reporter.server)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	ctx := context.Background()
	status := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status())

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, reporter.refresh(ctx))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status())

	failing = errors.New("connection refused")
	reporter.refresh(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status())
}
