package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/tailorbook/libs/config"
	"github.com/md-rashed-zaman/tailorbook/libs/db"
	"github.com/md-rashed-zaman/tailorbook/libs/grpcx"
	"github.com/md-rashed-zaman/tailorbook/libs/httpx"
	"github.com/md-rashed-zaman/tailorbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/tailorbook/libs/otel"
	"github.com/md-rashed-zaman/tailorbook/libs/redisx"
	"github.com/md-rashed-zaman/tailorbook/libs/runtime"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/consumer"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/inbox"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/reminders"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/store"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.Service)

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
		checks     []runtime.ReadyCheck
		storeOpts  []store.Option
		pool       *db.Pool
		repo       *storage.Repository
		outboxRepo *outbox.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err = db.Open(ctx, cfg.DatabaseURL, db.Options{})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		outboxRepo = outbox.NewRepository(pool)
		repo = storage.NewRepository(pool, outboxRepo, cfg.Location)
		if err := repo.EnsureSchema(ctx); err != nil {
			panic(err)
		}
		storeOpts = append(storeOpts, store.WithCommitter(repo))
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	} else {
		logger.Warn("DATABASE_URL not set, appointments are kept in memory only")
	}

	st := store.New(storeOpts...)
	engine, err := availability.NewEngine(cfg.Availability)
	if err != nil {
		panic(err)
	}
	projector, err := calendar.NewProjector(calendar.DefaultOptions())
	if err != nil {
		panic(err)
	}
	svc := booking.New(st, engine, projector, booking.Options{
		Logger:              logger,
		EnforceOfferedHours: cfg.EnforceHours,
		Location:            cfg.Location,
	})

	if repo != nil {
		if err := hydrate(ctx, repo, st, svc); err != nil {
			logger.Error("hydrate from db failed", "err", err)
			panic(err)
		}
		logger.Info("store hydrated", "appointments", st.Len())
	}

	var idem handlers.Idempotency
	var limiter httpx.Limiter = httpx.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer func() { _ = rdb.Close() }()
		idem = redisx.NewIdempotency(rdb)
		limiter = httpx.NewRedisLimiter(rdb, cfg.RateLimitPerMin, time.Minute, redisx.PrefixRateLimit)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}

	if cfg.KafkaBrokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})

		var dedupe consumer.Inbox = inbox.NewMemory()
		var travelStore consumer.TravelStore
		if pool != nil {
			dedupe = inbox.NewRepository(pool)
			travelStore = repo
			publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
				Brokers:   cfg.KafkaBrokers,
				PollEvery: cfg.OutboxPollEvery,
				BatchSize: cfg.OutboxBatchSize,
			})
			go publisher.Run(ctx)
		}
		travelConsumer := consumer.New(logger, dedupe, consumer.Config{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topic:   cfg.TravelTopic,
		}, consumer.TravelHandler(svc, travelStore, cfg.Location, logger))
		go travelConsumer.Run(ctx)
	}

	var queue reminders.Enqueuer
	if outboxRepo != nil {
		queue = outboxRepo
	}
	sweeper, err := reminders.New(st, queue, logger, reminders.Config{Spec: cfg.ReminderCron})
	if err != nil {
		panic(err)
	}
	if err := sweeper.Start(ctx); err != nil {
		panic(err)
	}

	grpcSrv := grpcx.NewServer(logger)
	reporter := newHealthReporter(logger, checks...)
	healthpb.RegisterHealthServer(grpcSrv, reporter.server)
	go reporter.run(ctx, 10*time.Second)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		panic(err)
	}
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	defer grpcSrv.GracefulStop()

	mux := runtime.NewBaseMuxWithReady(checks...)
	api := handlers.New(svc, idem, logger)
	handler := httpx.Chain(api.Routes(mux),
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key", "X-Request-ID"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.RateLimit(limiter, logger, true),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.ServeHTTP(ctx, srv, logger, cfg.ShutdownGrace)
}

// hydrate loads persisted appointments, their history and the travel schedule.
func hydrate(ctx context.Context, repo *storage.Repository, st *store.Store, svc *booking.Service) error {
	appts, err := repo.LoadAppointments(ctx)
	if err != nil {
		return err
	}
	events, err := repo.LoadEvents(ctx)
	if err != nil {
		return err
	}
	if err := st.Load(appts, events); err != nil {
		return err
	}
	windows, err := repo.LoadTravel(ctx)
	if err != nil {
		return err
	}
	return svc.SetTravel(windows)
}
