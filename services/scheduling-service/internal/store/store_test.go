package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/interval"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
)

var day = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

func newTestStore(opts ...Option) *Store {
	var n atomic.Int64
	base := []Option{
		WithClock(func() time.Time { return day }),
		WithIDs(func() string { return fmt.Sprintf("appt-%d", n.Add(1)) }),
	}
	return New(append(base, opts...)...)
}

func draft(tailor string, h, m, minutes int) model.Draft {
	return model.Draft{
		CustomerID:      "cust1",
		TailorID:        tailor,
		When:            day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute),
		DurationMinutes: minutes,
		Location:        model.Location{Kind: model.LocationShop},
		Purpose:         model.PurposeFitting,
	}
}

func change(h, m, minutes int) model.Change {
	return model.Change{
		When:            day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute),
		DurationMinutes: minutes,
		Location:        model.Location{Kind: model.LocationShop},
		Purpose:         model.PurposeFitting,
	}
}

func TestCreateAssignsIdentityAndDefaults(t *testing.T) {
	s := newTestStore()
	a, err := s.Create(context.Background(), draft("t1", 14, 0, 60))
	require.NoError(t, err)
	assert.Equal(t, "appt-1", a.ID)
	assert.Equal(t, model.StatusScheduled, a.Status)
	assert.Equal(t, model.DefaultReminder, a.Reminder)
	assert.Equal(t, day, a.CreatedAt)

	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestCreateConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	first, err := s.Create(ctx, draft("t1", 14, 0, 60))
	require.NoError(t, err)

	_, err = s.Create(ctx, draft("t1", 14, 30, 30))
	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, first.ID, conflict.ConflictingID)

	_, err = s.Create(ctx, draft("t1", 15, 0, 60))
	assert.NoError(t, err, "back-to-back appointments do not overlap")

	_, err = s.Create(ctx, draft("t2", 14, 0, 60))
	assert.NoError(t, err, "other tailors are independent")
	assert.Equal(t, 3, s.Len())
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	d := draft("t1", 9, 0, 0)
	_, err := newTestStore().Create(context.Background(), d)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCanceledAppointmentsFreeTheirTime(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	a, err := s.Create(ctx, draft("t1", 10, 0, 60))
	require.NoError(t, err)
	_, err = s.Cancel(ctx, a.ID)
	require.NoError(t, err)

	_, err = s.Create(ctx, draft("t1", 10, 0, 60))
	assert.NoError(t, err)
}

func TestRescheduleExcludesSelf(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	a, err := s.Create(ctx, draft("t1", 10, 0, 60))
	require.NoError(t, err)
	other, err := s.Create(ctx, draft("t1", 12, 0, 60))
	require.NoError(t, err)

	moved, err := s.Reschedule(ctx, a.ID, change(10, 30, 60))
	require.NoError(t, err)
	assert.Equal(t, a.ID, moved.ID)
	assert.Equal(t, model.StatusRescheduled, moved.Status)
	assert.Equal(t, day.Add(10*time.Hour+30*time.Minute), moved.When)

	_, err = s.Reschedule(ctx, a.ID, change(11, 30, 60))
	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, other.ID, conflict.ConflictingID)

	unchanged, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, moved, unchanged)

	again, err := s.Reschedule(ctx, a.ID, change(15, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, model.StatusRescheduled, again.Status)
}

func TestTerminalStatesRejectChanges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	done, err := s.Create(ctx, draft("t1", 9, 0, 60))
	require.NoError(t, err)
	_, err = s.Complete(ctx, done.ID)
	require.NoError(t, err)
	gone, err := s.Create(ctx, draft("t1", 11, 0, 60))
	require.NoError(t, err)
	_, err = s.Cancel(ctx, gone.ID)
	require.NoError(t, err)

	for _, id := range []string{done.ID, gone.ID} {
		before, err := s.Get(id)
		require.NoError(t, err)

		_, err = s.Reschedule(ctx, id, change(13, 0, 60))
		assert.ErrorIs(t, err, model.ErrInvalidState)
		_, err = s.Cancel(ctx, id)
		assert.ErrorIs(t, err, model.ErrInvalidState)
		_, err = s.Confirm(ctx, id)
		assert.ErrorIs(t, err, model.ErrInvalidState)

		after, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	}
}

func TestConfirmTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	a, err := s.Create(ctx, draft("t1", 9, 0, 60))
	require.NoError(t, err)

	c, err := s.Confirm(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, c.Status)

	_, err = s.Confirm(ctx, a.ID)
	var invalid *model.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, model.StatusConfirmed, invalid.From)
}

func TestUnknownID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.Cancel(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.Reschedule(ctx, "nope", change(9, 0, 60))
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.History("nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestHistoryRecordsEveryTransition(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	a, err := s.Create(ctx, draft("t1", 9, 0, 60))
	require.NoError(t, err)
	_, err = s.Reschedule(ctx, a.ID, change(10, 0, 30))
	require.NoError(t, err)
	_, err = s.Cancel(ctx, a.ID)
	require.NoError(t, err)

	evs, err := s.History(a.ID)
	require.NoError(t, err)
	require.Len(t, evs, 3)
	assert.Equal(t, EventCreated, evs[0].Kind)
	assert.Equal(t, EventRescheduled, evs[1].Kind)
	assert.Equal(t, day.Add(9*time.Hour), evs[1].PrevWhen)
	assert.Equal(t, day.Add(10*time.Hour), evs[1].When)
	assert.Equal(t, 30, evs[1].DurationMinutes)
	assert.Equal(t, EventCanceled, evs[2].Kind)
	assert.Equal(t, model.StatusRescheduled, evs[2].From)
	assert.Equal(t, model.StatusCanceled, evs[2].To)

	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, got.Status, "cancel never removes the record")
}

func TestSnapshotIsOrderedCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.Create(ctx, draft("t1", 15, 0, 60))
	require.NoError(t, err)
	_, err = s.Create(ctx, draft("t1", 9, 0, 60))
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.True(t, snap[0].When.Before(snap[1].When))

	snap[0].Status = model.StatusCanceled
	got, err := s.Get(snap[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, got.Status)
}

type recordingCommitter struct {
	fail      error
	mutations []Mutation
}

func (c *recordingCommitter) Commit(_ context.Context, m Mutation) error {
	if c.fail != nil {
		return c.fail
	}
	c.mutations = append(c.mutations, m)
	return nil
}

func TestCommitterSeesMutations(t *testing.T) {
	ctx := context.Background()
	rec := &recordingCommitter{}
	s := newTestStore(WithCommitter(rec))
	a, err := s.Create(ctx, draft("t1", 9, 0, 60))
	require.NoError(t, err)
	_, err = s.Confirm(ctx, a.ID)
	require.NoError(t, err)

	require.Len(t, rec.mutations, 2)
	assert.Nil(t, rec.mutations[0].Before)
	assert.Equal(t, EventCreated, rec.mutations[0].Event.Kind)
	require.NotNil(t, rec.mutations[1].Before)
	assert.Equal(t, model.StatusScheduled, rec.mutations[1].Before.Status)
	assert.Equal(t, model.StatusConfirmed, rec.mutations[1].After.Status)
}

func TestCommitFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	rec := &recordingCommitter{}
	s := newTestStore(WithCommitter(rec))
	a, err := s.Create(ctx, draft("t1", 9, 0, 60))
	require.NoError(t, err)

	boom := errors.New("db down")
	rec.fail = boom
	_, err = s.Cancel(ctx, a.ID)
	assert.ErrorIs(t, err, boom)
	_, err = s.Create(ctx, draft("t1", 11, 0, 60))
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, got.Status)
	assert.Equal(t, 1, s.Len())
	evs, err := s.History(a.ID)
	require.NoError(t, err)
	assert.Len(t, evs, 1)
}

func TestLoad(t *testing.T) {
	s := newTestStore()
	a := model.Appointment{ID: "x", TailorID: "t1", When: day.Add(9 * time.Hour), DurationMinutes: 60, Status: model.StatusConfirmed}
	evs := []Event{
		{ID: "e2", AppointmentID: "x", Kind: EventConfirmed, At: day.Add(time.Minute)},
		{ID: "e1", AppointmentID: "x", Kind: EventCreated, At: day},
		{ID: "e3", AppointmentID: "ghost", Kind: EventCreated, At: day},
	}
	require.NoError(t, s.Load([]model.Appointment{a}, evs))

	hist, err := s.History("x")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "e1", hist[0].ID)

	_, err = s.Create(context.Background(), draft("t1", 9, 30, 30))
	assert.ErrorIs(t, err, model.ErrConflict)

	assert.Error(t, s.Load([]model.Appointment{a, a}, nil))
	assert.Error(t, s.Load([]model.Appointment{{ID: "y", Status: "bogus"}}, nil))
}

func TestConcurrentCreatesNeverDoubleBook(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(func() time.Time { return day }))

	const workers = 32
	var wg sync.WaitGroup
	var ok, conflicts atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// staggered 30 minute bookings, each overlapping its neighbours
			_, err := s.Create(ctx, draft("t1", 9, (i%4)*15, 30))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, model.ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int64(workers), ok.Load()+conflicts.Load())

	snap := s.Snapshot()
	for i := range snap {
		for j := i + 1; j < len(snap); j++ {
			assert.False(t, interval.Overlaps(snap[i].Interval(), snap[j].Interval()),
				"%s overlaps %s", snap[i].ID, snap[j].ID)
		}
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(model.StatusScheduled, model.StatusConfirmed))
	assert.True(t, CanTransition(model.StatusRescheduled, model.StatusRescheduled))
	assert.False(t, CanTransition(model.StatusConfirmed, model.StatusScheduled))
	assert.False(t, CanTransition(model.StatusCanceled, model.StatusConfirmed))
	assert.False(t, CanTransition(model.StatusCompleted, model.StatusCanceled))
}
