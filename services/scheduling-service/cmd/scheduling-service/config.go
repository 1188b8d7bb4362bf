package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/tailorbook/libs/config"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/consumer"
)

type serviceConfig struct {
	Service         string
	Port            string
	GRPCPort        string
	DatabaseURL     string
	RedisAddr       string
	KafkaBrokers    string
	KafkaGroupID    string
	TravelTopic     string
	Location        *time.Location
	Availability    availability.Config
	EnforceHours    bool
	ReminderCron    string
	RateLimitPerMin int
	CORSOrigins     []string
	ShutdownGrace   time.Duration
	OutboxPollEvery time.Duration
	OutboxBatchSize int
}

func loadConfig() (serviceConfig, error) {
	cfg := serviceConfig{
		Service:      config.String("SERVICE_NAME", "scheduling-service"),
		DatabaseURL:  config.String("DATABASE_URL", ""),
		RedisAddr:    config.String("REDIS_ADDR", ""),
		KafkaBrokers: config.String("KAFKA_BROKERS", ""),
		KafkaGroupID: config.String("KAFKA_GROUP_ID", "scheduling-service"),
		TravelTopic:  config.String("KAFKA_TRAVEL_TOPIC", consumer.TopicTravelUpdated),
		EnforceHours: config.Bool("ENFORCE_OFFERED_HOURS", true),
		ReminderCron: config.String("REMINDER_CRON", "*/5 * * * *"),
		CORSOrigins:  config.CSV("CORS_ALLOWED_ORIGINS"),
	}

	var err error
	if cfg.Port, err = config.Port("PORT", "8090"); err != nil {
		return cfg, err
	}
	if cfg.GRPCPort, err = config.Port("GRPC_PORT", "9090"); err != nil {
		return cfg, err
	}
	if cfg.Location, err = time.LoadLocation(config.String("TIMEZONE", "UTC")); err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}

	avail := availability.DefaultConfig()
	avail.Location = cfg.Location
	if avail.Hours.StartHour, err = config.Int("WORK_START_HOUR", avail.Hours.StartHour); err != nil {
		return cfg, err
	}
	if avail.Hours.EndHour, err = config.Int("WORK_END_HOUR", avail.Hours.EndHour); err != nil {
		return cfg, err
	}
	if avail.SlotMinutes, err = config.Int("SLOT_MINUTES", avail.SlotMinutes); err != nil {
		return cfg, err
	}
	if avail.StepMinutes, err = config.Int("SLOT_STEP_MINUTES", avail.StepMinutes); err != nil {
		return cfg, err
	}
	if err := avail.Validate(); err != nil {
		return cfg, err
	}
	cfg.Availability = avail

	if cfg.RateLimitPerMin, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return cfg, err
	}
	if cfg.ShutdownGrace, err = config.Duration("SHUTDOWN_GRACE", 10*time.Second); err != nil {
		return cfg, err
	}
	if cfg.OutboxPollEvery, err = config.Duration("OUTBOX_POLL_EVERY", 2*time.Second); err != nil {
		return cfg, err
	}
	if cfg.OutboxBatchSize, err = config.Int("OUTBOX_BATCH_SIZE", 50); err != nil {
		return cfg, err
	}
	return cfg, nil
}
