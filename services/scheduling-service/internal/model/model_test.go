package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClassification(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCanceled.Terminal())
	assert.False(t, StatusRescheduled.Terminal())
	assert.False(t, StatusCanceled.Blocking())
	assert.True(t, StatusCompleted.Blocking())
	assert.False(t, Status("lost").Valid())
}

func TestDraftValidate(t *testing.T) {
	d := Draft{
		CustomerID:      "c1",
		TailorID:        "t1",
		When:            time.Date(2026, 10, 20, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Location:        Location{Kind: LocationShop},
		Purpose:         PurposeFitting,
	}
	require.NoError(t, d.Validate())

	bad := d
	bad.DurationMinutes = 0
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = d
	bad.Location = Location{Kind: LocationHotelVisit, City: "Bangkok", Country: "Thailand"}
	var verr *ValidationError
	require.True(t, errors.As(bad.Validate(), &verr))
	assert.Equal(t, "location.address", verr.Field)

	bad = d
	bad.Purpose = "tea"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}

func TestAppointmentTiming(t *testing.T) {
	a := Appointment{
		When:            time.Date(2026, 10, 20, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 45,
		Reminder:        Reminder{Enabled: true, HoursBefore: 24},
	}
	assert.Equal(t, time.Date(2026, 10, 20, 14, 45, 0, 0, time.UTC), a.End())
	remindAt, ok := a.RemindAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC), remindAt)

	a.Reminder.Enabled = false
	_, ok = a.RemindAt()
	assert.False(t, ok)
}

func TestErrorsMatchSentinels(t *testing.T) {
	assert.ErrorIs(t, &NotFoundError{ID: "x"}, ErrNotFound)
	assert.ErrorIs(t, &InvalidStateError{ID: "x", From: StatusCanceled, Action: "cancel"}, ErrInvalidState)
	assert.ErrorIs(t, &ConflictError{ConflictingID: "y"}, ErrConflict)
	assert.ErrorIs(t, &InvalidRangeError{}, ErrInvalidRange)
	assert.NotErrorIs(t, &ConflictError{}, ErrNotFound)
	assert.Contains(t, (&InvalidStateError{ID: "a1", From: StatusCompleted, Action: "reschedule"}).Error(), "completed")
}
