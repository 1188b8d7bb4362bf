package reminders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/outbox"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var base = time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)

type staticSource []model.Appointment

func (s staticSource) Snapshot() []model.Appointment { return s }

type memQueue struct {
	fail error
	keys map[string]outbox.Event
}

func (q *memQueue) Enqueue(_ context.Context, evt outbox.Event) (bool, error) {
	if q.fail != nil {
		return false, q.fail
	}
	if q.keys == nil {
		q.keys = map[string]outbox.Event{}
	}
	if _, ok := q.keys[evt.DedupeKey]; ok {
		return false, nil
	}
	q.keys[evt.DedupeKey] = evt
	return true, nil
}

func appt(id string, when time.Time, hours uint, status model.Status) model.Appointment {
	return model.Appointment{
		ID:              id,
		When:            when,
		DurationMinutes: 60,
		Status:          status,
		Reminder:        model.Reminder{Enabled: true, HoursBefore: hours},
	}
}

func TestDue(t *testing.T) {
	now := base
	appts := []model.Appointment{
		appt("due", base.Add(24*time.Hour-2*time.Minute), 24, model.StatusScheduled),
		appt("exact", base.Add(24*time.Hour), 24, model.StatusRescheduled),
		appt("later", base.Add(25*time.Hour), 24, model.StatusConfirmed),
		appt("short-notice", base.Add(3*time.Hour), 24, model.StatusScheduled),
		appt("canceled", base.Add(2*time.Hour), 24, model.StatusCanceled),
		appt("completed", base.Add(2*time.Hour), 24, model.StatusCompleted),
		{ID: "off", When: base.Add(time.Hour), Reminder: model.Reminder{Enabled: false, HoursBefore: 24}},
		appt("started", base, 24, model.StatusConfirmed),
		appt("past", base.Add(-time.Hour), 24, model.StatusScheduled),
	}
	var ids []string
	for _, a := range Due(appts, now) {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"due", "exact", "short-notice"}, ids)
}

func TestSweepEnqueuesOncePerReminder(t *testing.T) {
	now := base
	clock := func() time.Time { return now }
	src := staticSource{appt("a1", base.Add(24*time.Hour+3*time.Minute), 24, model.StatusScheduled)}
	q := &memQueue{}
	s, err := New(src, q, discard, Config{Spec: "* * * * *", Now: clock})
	require.NoError(t, err)

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	now = base.Add(5 * time.Minute)
	n, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := q.keys[outbox.ReminderDedupeKey("a1", base.Add(3*time.Minute))]
	assert.True(t, ok)

	now = base.Add(10 * time.Minute)
	n, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, q.keys, 1)
}

func TestSweepRemindsShortNoticeBooking(t *testing.T) {
	now := base
	booked := appt("a1", base.Add(2*time.Hour), 24, model.StatusScheduled)
	q := &memQueue{}
	s, err := New(staticSource{booked}, q, discard, Config{Now: func() time.Time { return now }})
	require.NoError(t, err)

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := q.keys[outbox.ReminderDedupeKey("a1", base.Add(-22*time.Hour))]
	assert.True(t, ok)

	now = base.Add(3 * time.Hour)
	n, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepRetriesOnFailure(t *testing.T) {
	now := base.Add(5 * time.Minute)
	src := staticSource{appt("a1", base.Add(24*time.Hour+3*time.Minute), 24, model.StatusScheduled)}
	q := &memQueue{fail: errors.New("db down")}
	s, err := New(src, q, discard, Config{Now: func() time.Time { return now }})
	require.NoError(t, err)

	_, err = s.Sweep(context.Background())
	require.Error(t, err)

	q.fail = nil
	now = base.Add(6 * time.Minute)
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSweepWithoutQueueLogsOnce(t *testing.T) {
	src := staticSource{appt("a1", base.Add(24*time.Hour+3*time.Minute), 24, model.StatusScheduled)}
	s, err := New(src, nil, discard, Config{Now: func() time.Time { return base.Add(5 * time.Minute) }})
	require.NoError(t, err)
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(staticSource{}, nil, discard, Config{Spec: "every tuesday"})
	assert.ErrorIs(t, err, model.ErrValidation)
}
