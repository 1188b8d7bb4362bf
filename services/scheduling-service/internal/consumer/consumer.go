// Package consumer reads Kafka topics, dedupes through an inbox and hands messages to a handler.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/tailorbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/tailorbook/libs/otel"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox is implemented by *inbox.Repository and *inbox.Memory.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
}

// Reader is the part of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     Reader
	logger     *slog.Logger
	inbox      Inbox
	handler    Handler
	retryEvery time.Duration
	maxBackoff time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, in Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:     reader,
		logger:     logger,
		inbox:      in,
		handler:    handler,
		retryEvery: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run consumes until ctx is done. An offset is committed only once its message is settled, and a
// message whose handler fails transiently is retried with backoff before moving on.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !sleep(ctx, c.retryEvery) {
				return
			}
			continue
		}
		if !c.settle(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka commit failed", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

// settle processes msg until it succeeds or is rejected for good. It returns false when ctx ended first.
func (c *Consumer) settle(ctx context.Context, msg kafka.Message) bool {
	backoff := c.retryEvery
	for {
		_, err := c.process(ctx, msg)
		if err == nil {
			return true
		}
		c.logger.Warn("message will be retried", "err", err, "topic", msg.Topic, "offset", msg.Offset, "backoff", backoff)
		if !sleep(ctx, backoff) {
			return false
		}
		if backoff *= 2; backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

// process applies msg at most once. It reports whether the handler applied the message; a non-nil
// error means the message is not settled and must be retried.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) (bool, error) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otelx.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID == "" {
		// no event_id header and no key: dedupe on the log position
		meta.EventID = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	seen, err := c.inbox.Seen(ctxSpan, meta.EventID)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("inbox lookup: %w", err)
	}
	if seen {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return false, nil
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if permanent(err) {
			c.logger.Error("event rejected", "err", err, "event_id", meta.EventID)
			return false, nil
		}
		return false, err
	}

	// A failed record only costs a repeat of an idempotent handler on redelivery.
	if _, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType); err != nil {
		c.logger.Warn("inbox record failed", "err", err, "event_id", meta.EventID)
	}
	return true, nil
}

// permanent errors come from the payload itself, so retrying cannot help.
func permanent(err error) bool {
	return errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrInvalidRange)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
