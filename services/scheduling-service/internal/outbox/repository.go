package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/tailorbook/libs/db"
	otelx "github.com/md-rashed-zaman/tailorbook/libs/otel"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes evt inside tx. It reports false when DedupeKey was already written.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) (bool, error) {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	var dedupe *string
	if evt.DedupeKey != "" {
		dedupe = &evt.DedupeKey
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, dedupe_key, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (dedupe_key) DO NOTHING
	`, uuid.NewString(), evt.AggregateType, evt.AggregateID, evt.EventType, dedupe, evt.Payload, traceparent, tracestate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Enqueue inserts evt in its own transaction.
func (r *Repository) Enqueue(ctx context.Context, evt Event) (bool, error) {
	var inserted bool
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		inserted, err = r.Insert(ctx, tx, evt)
		return err
	})
	return inserted, err
}

type Record struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, payload,
			COALESCE(traceparent, ''), COALESCE(tracestate, ''), created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.AggregateType, &rcd.AggregateID, &rcd.EventType,
			&rcd.Payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}
