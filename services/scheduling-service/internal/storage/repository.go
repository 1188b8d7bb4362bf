// Package storage persists appointments, their audit trail and travel windows in Postgres.
package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/tailorbook/libs/db"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/store"
)

//go:embed schema.sql
var schema string

type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	loc    *time.Location
}

// NewRepository reads timestamps back in loc. A nil outbox repository disables event writes.
func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{pool: pool, outbox: outboxRepo, loc: loc}
}

// EnsureSchema creates the service tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Commit writes one store mutation, its audit event and its outbox event in a single transaction.
// Constraint violations surface as model.ErrConflict so another writer's row is never overwritten.
func (r *Repository) Commit(ctx context.Context, m store.Mutation) error {
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := r.upsertAppointment(ctx, tx, toRow(m.After)); err != nil {
			return fmt.Errorf("upsert appointment %s: %w", m.After.ID, err)
		}
		if err := r.insertEvent(ctx, tx, toEventRow(m.Event)); err != nil {
			return fmt.Errorf("insert audit event: %w", err)
		}
		if r.outbox == nil {
			return nil
		}
		evt, err := outbox.FromMutation(m)
		if err != nil {
			return err
		}
		if _, err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
		return nil
	})
	if IsConflict(err) {
		return fmt.Errorf("%w: %v", model.ErrConflict, err)
	}
	return err
}

func (r *Repository) upsertAppointment(ctx context.Context, tx pgx.Tx, row appointmentRow) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments
			(id, customer_id, tailor_id, starts_at, duration_minutes, location_type, location_address,
			 location_city, location_country, latitude, longitude, purpose, status, notes, related_order_id,
			 reminder_enabled, reminder_hours, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			starts_at = EXCLUDED.starts_at,
			duration_minutes = EXCLUDED.duration_minutes,
			location_type = EXCLUDED.location_type,
			location_address = EXCLUDED.location_address,
			location_city = EXCLUDED.location_city,
			location_country = EXCLUDED.location_country,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			purpose = EXCLUDED.purpose,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`, row.ID, row.CustomerID, row.TailorID, row.StartsAt, row.DurationMinutes, row.LocationType, row.Address,
		row.City, row.Country, row.Latitude, row.Longitude, row.Purpose, row.Status, row.Notes, row.RelatedOrderID,
		row.ReminderEnabled, row.ReminderHours, row.CreatedAt, row.UpdatedAt)
	return err
}

func (r *Repository) insertEvent(ctx context.Context, tx pgx.Tx, row eventRow) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointment_events
			(id, appointment_id, kind, from_status, to_status, prev_starts_at, prev_duration_minutes,
			 starts_at, duration_minutes, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, row.ID, row.AppointmentID, row.Kind, row.FromStatus, row.ToStatus, row.PrevStartsAt,
		row.PrevDurationMinutes, row.StartsAt, row.DurationMinutes, row.OccurredAt)
	return err
}

func (r *Repository) LoadAppointments(ctx context.Context) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, customer_id, tailor_id, starts_at, duration_minutes, location_type, location_address,
			location_city, location_country, latitude, longitude, purpose, status, notes, related_order_id,
			reminder_enabled, reminder_hours, created_at, updated_at
		FROM appointments
		ORDER BY starts_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var row appointmentRow
		if err := rows.Scan(
			&row.ID,
			&row.CustomerID,
			&row.TailorID,
			&row.StartsAt,
			&row.DurationMinutes,
			&row.LocationType,
			&row.Address,
			&row.City,
			&row.Country,
			&row.Latitude,
			&row.Longitude,
			&row.Purpose,
			&row.Status,
			&row.Notes,
			&row.RelatedOrderID,
			&row.ReminderEnabled,
			&row.ReminderHours,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		appts = append(appts, row.appointment(r.loc))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *Repository) LoadEvents(ctx context.Context) ([]store.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, kind, from_status, to_status, prev_starts_at, prev_duration_minutes,
			starts_at, duration_minutes, occurred_at
		FROM appointment_events
		ORDER BY occurred_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.Event
	for rows.Next() {
		var row eventRow
		if err := rows.Scan(&row.ID, &row.AppointmentID, &row.Kind, &row.FromStatus, &row.ToStatus,
			&row.PrevStartsAt, &row.PrevDurationMinutes, &row.StartsAt, &row.DurationMinutes, &row.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, row.event(r.loc))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

func (r *Repository) LoadTravel(ctx context.Context) ([]model.TravelLocation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, city, country, venue, address, latitude, longitude, start_date, end_date
		FROM travel_windows
		ORDER BY start_date ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []model.TravelLocation
	for rows.Next() {
		var row travelRow
		if err := rows.Scan(&row.ID, &row.City, &row.Country, &row.Venue, &row.Address,
			&row.Latitude, &row.Longitude, &row.StartDate, &row.EndDate); err != nil {
			return nil, err
		}
		windows = append(windows, row.window(r.loc))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return windows, nil
}

// ReplaceTravel swaps the stored travel windows for windows.
func (r *Repository) ReplaceTravel(ctx context.Context, windows []model.TravelLocation) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM travel_windows`); err != nil {
			return err
		}
		for _, w := range windows {
			row := toTravelRow(w)
			if _, err := tx.Exec(ctx, `
				INSERT INTO travel_windows (id, city, country, venue, address, latitude, longitude, start_date, end_date)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, row.ID, row.City, row.Country, row.Venue, row.Address, row.Latitude, row.Longitude,
				row.StartDate, row.EndDate); err != nil {
				return fmt.Errorf("insert travel window %s: %w", w.ID, err)
			}
		}
		return nil
	})
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01")
}

var _ store.Committer = (*Repository)(nil)
