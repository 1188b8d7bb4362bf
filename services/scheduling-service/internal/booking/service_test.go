package booking

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/store"
)

// 2026-10-20 is a Tuesday.
var tuesday = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

func newService(t *testing.T, enforce bool) *Service {
	t.Helper()
	engine, err := availability.NewEngine(availability.DefaultConfig())
	require.NoError(t, err)
	projector, err := calendar.NewProjector(calendar.DefaultOptions())
	require.NoError(t, err)
	return New(store.New(), engine, projector, Options{
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:                 func() time.Time { return tuesday.Add(8 * time.Hour) },
		EnforceOfferedHours: enforce,
	})
}

func fittingAt(h, m, minutes int) model.Draft {
	return model.Draft{
		CustomerID:      "c1",
		TailorID:        "t1",
		When:            tuesday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute),
		DurationMinutes: minutes,
		Location:        model.Location{Kind: model.LocationShop},
		Purpose:         model.PurposeFitting,
	}
}

func bookedAt(t *testing.T, slots []model.AvailableSlot, start time.Time) bool {
	t.Helper()
	for _, s := range slots {
		if s.Start.Equal(start) && s.Site == model.SiteShop {
			return s.Booked
		}
	}
	t.Fatalf("no slot at %s", start)
	return false
}

func TestFittingScenario(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, true)
	_, err := svc.CreateAppointment(ctx, fittingAt(14, 0, 60))
	require.NoError(t, err)

	slots, err := svc.GenerateAvailability(ctx, tuesday, tuesday.AddDate(0, 0, 1), nil)
	require.NoError(t, err)
	assert.True(t, bookedAt(t, slots, tuesday.Add(14*time.Hour)))
	assert.False(t, bookedAt(t, slots, tuesday.Add(13*time.Hour)))
	assert.False(t, bookedAt(t, slots, tuesday.Add(15*time.Hour)))

	_, err = svc.CreateAppointment(ctx, fittingAt(14, 30, 30))
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = svc.CreateAppointment(ctx, fittingAt(15, 0, 60))
	assert.NoError(t, err)
}

func TestRescheduleRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, true)
	a, err := svc.CreateAppointment(ctx, fittingAt(10, 0, 60))
	require.NoError(t, err)

	_, err = svc.RescheduleAppointment(ctx, a.ID, model.Change{
		When:            tuesday.Add(13 * time.Hour),
		DurationMinutes: 60,
		Location:        model.Location{Kind: model.LocationShop},
		Purpose:         model.PurposeFitting,
	})
	require.NoError(t, err)

	slots, err := svc.GenerateAvailability(ctx, tuesday, tuesday.AddDate(0, 0, 1), nil)
	require.NoError(t, err)
	assert.False(t, bookedAt(t, slots, tuesday.Add(10*time.Hour)))
	assert.True(t, bookedAt(t, slots, tuesday.Add(13*time.Hour)))
}

func TestCancelFreesSlot(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, false)
	a, err := svc.CreateAppointment(ctx, fittingAt(11, 0, 60))
	require.NoError(t, err)
	canceled, err := svc.CancelAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, canceled.Status)

	slots, err := svc.GenerateAvailability(ctx, tuesday, tuesday.AddDate(0, 0, 1), nil)
	require.NoError(t, err)
	assert.False(t, bookedAt(t, slots, tuesday.Add(11*time.Hour)))

	_, err = svc.CancelAppointment(ctx, a.ID)
	assert.ErrorIs(t, err, model.ErrInvalidState)

	hist, err := svc.History(a.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestEnforcedOfferedHours(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, true)
	_, err := svc.CreateAppointment(ctx, fittingAt(18, 0, 60))
	assert.ErrorIs(t, err, model.ErrValidation)

	hotel := fittingAt(10, 0, 60)
	hotel.Location = model.Location{Kind: model.LocationHotelVisit, Address: "1 Sukhumvit", City: "Bangkok", Country: "Thailand"}
	_, err = svc.CreateAppointment(ctx, hotel)
	assert.ErrorIs(t, err, model.ErrValidation)

	require.NoError(t, svc.SetTravel([]model.TravelLocation{{
		ID:          "trip1",
		Destination: model.Destination{City: "Bangkok", Country: "Thailand"},
		StartDate:   tuesday,
		EndDate:     tuesday.AddDate(0, 0, 2),
	}}))
	_, err = svc.CreateAppointment(ctx, hotel)
	assert.NoError(t, err)

	lax := newService(t, false)
	_, err = lax.CreateAppointment(ctx, fittingAt(18, 0, 60))
	assert.NoError(t, err)
}

func TestGenerateAvailabilityWindows(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, false)
	windows := []model.TravelLocation{{ID: "trip1", StartDate: tuesday, EndDate: tuesday}}
	slots, err := svc.GenerateAvailability(ctx, tuesday, tuesday.AddDate(0, 0, 1), windows)
	require.NoError(t, err)
	assert.Len(t, slots, 16)

	_, err = svc.GenerateAvailability(ctx, tuesday.AddDate(0, 0, 1), tuesday, nil)
	assert.ErrorIs(t, err, model.ErrInvalidRange)

	bad := []model.TravelLocation{{ID: "x", StartDate: tuesday.AddDate(0, 0, 1), EndDate: tuesday}}
	_, err = svc.GenerateAvailability(ctx, tuesday, tuesday.AddDate(0, 0, 1), bad)
	assert.ErrorIs(t, err, model.ErrInvalidRange)
	assert.ErrorIs(t, svc.SetTravel(bad), model.ErrInvalidRange)
	assert.True(t, len(svc.Travel().Windows()) == 0)
}

func TestProjections(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, false)
	_, err := svc.CreateAppointment(ctx, fittingAt(14, 0, 60))
	require.NoError(t, err)

	month, err := svc.ProjectMonth(ctx, 2026, time.October)
	require.NoError(t, err)
	var tue calendar.DayCell
	for _, w := range month.Weeks {
		for _, c := range w {
			if c.InMonth && c.Date.Day() == 20 {
				tue = c
			}
		}
	}
	assert.Equal(t, 1, tue.AppointmentCount)
	assert.Equal(t, 7, tue.OpenSlotCount)

	week, err := svc.ProjectWeek(ctx, tuesday.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Len(t, week.Rows[5].Cells[1].Appointments, 1)
	assert.Nil(t, week.Rows[5].Cells[1].OpenSlot)
	assert.NotNil(t, week.Rows[4].Cells[1].OpenSlot)

	day, err := svc.ProjectDay(ctx, tuesday)
	require.NoError(t, err)
	assert.Len(t, day.Rows, 12)
	assert.Len(t, day.Rows[5].Cells[0].Appointments, 1)
}

func TestListAppointments(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, false)
	a, err := svc.CreateAppointment(ctx, fittingAt(9, 0, 60))
	require.NoError(t, err)
	b, err := svc.CreateAppointment(ctx, fittingAt(12, 0, 60))
	require.NoError(t, err)
	_, err = svc.CompleteAppointment(ctx, a.ID)
	require.NoError(t, err)
	_, err = svc.ConfirmAppointment(ctx, b.ID)
	require.NoError(t, err)

	up := svc.ListAppointments(calendar.TabUpcoming, svc.Now())
	require.Len(t, up, 1)
	assert.Equal(t, b.ID, up[0].ID)
	past := svc.ListAppointments(calendar.TabPast, svc.Now())
	require.Len(t, past, 1)
	assert.Equal(t, a.ID, past[0].ID)

	got, err := svc.GetAppointment(b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
}
