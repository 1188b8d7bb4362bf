package storage

import (
	"time"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/store"
)

// appointmentRow is the flattened column layout of the appointments table.
type appointmentRow struct {
	ID              string
	CustomerID      string
	TailorID        string
	StartsAt        time.Time
	DurationMinutes int
	LocationType    string
	Address         string
	City            string
	Country         string
	Latitude        *float64
	Longitude       *float64
	Purpose         string
	Status          string
	Notes           string
	RelatedOrderID  string
	ReminderEnabled bool
	ReminderHours   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func toRow(a model.Appointment) appointmentRow {
	r := appointmentRow{
		ID:              a.ID,
		CustomerID:      a.CustomerID,
		TailorID:        a.TailorID,
		StartsAt:        a.When,
		DurationMinutes: a.DurationMinutes,
		LocationType:    string(a.Location.Kind),
		Address:         a.Location.Address,
		City:            a.Location.City,
		Country:         a.Location.Country,
		Purpose:         string(a.Purpose),
		Status:          string(a.Status),
		Notes:           a.Notes,
		RelatedOrderID:  a.RelatedOrderID,
		ReminderEnabled: a.Reminder.Enabled,
		ReminderHours:   int(a.Reminder.HoursBefore),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if c := a.Location.Coordinates; c != nil {
		lat, lng := c.Latitude, c.Longitude
		r.Latitude, r.Longitude = &lat, &lng
	}
	return r
}

func (r appointmentRow) appointment(loc *time.Location) model.Appointment {
	a := model.Appointment{
		ID:              r.ID,
		CustomerID:      r.CustomerID,
		TailorID:        r.TailorID,
		When:            r.StartsAt.In(loc),
		DurationMinutes: r.DurationMinutes,
		Location: model.Location{
			Kind:    model.LocationKind(r.LocationType),
			Address: r.Address,
			City:    r.City,
			Country: r.Country,
		},
		Purpose:        model.Purpose(r.Purpose),
		Status:         model.Status(r.Status),
		Notes:          r.Notes,
		RelatedOrderID: r.RelatedOrderID,
		Reminder:       model.Reminder{Enabled: r.ReminderEnabled},
		CreatedAt:      r.CreatedAt.In(loc),
		UpdatedAt:      r.UpdatedAt.In(loc),
	}
	if r.ReminderHours > 0 {
		a.Reminder.HoursBefore = uint(r.ReminderHours)
	}
	if r.Latitude != nil && r.Longitude != nil {
		a.Location.Coordinates = &model.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return a
}

type eventRow struct {
	ID                  string
	AppointmentID       string
	Kind                string
	FromStatus          string
	ToStatus            string
	PrevStartsAt        *time.Time
	PrevDurationMinutes int
	StartsAt            time.Time
	DurationMinutes     int
	OccurredAt          time.Time
}

func toEventRow(e store.Event) eventRow {
	r := eventRow{
		ID:                  e.ID,
		AppointmentID:       e.AppointmentID,
		Kind:                string(e.Kind),
		FromStatus:          string(e.From),
		ToStatus:            string(e.To),
		PrevDurationMinutes: e.PrevDurationMinutes,
		StartsAt:            e.When,
		DurationMinutes:     e.DurationMinutes,
		OccurredAt:          e.At,
	}
	if !e.PrevWhen.IsZero() {
		prev := e.PrevWhen
		r.PrevStartsAt = &prev
	}
	return r
}

func (r eventRow) event(loc *time.Location) store.Event {
	e := store.Event{
		ID:                  r.ID,
		AppointmentID:       r.AppointmentID,
		Kind:                store.EventKind(r.Kind),
		From:                model.Status(r.FromStatus),
		To:                  model.Status(r.ToStatus),
		PrevDurationMinutes: r.PrevDurationMinutes,
		When:                r.StartsAt.In(loc),
		DurationMinutes:     r.DurationMinutes,
		At:                  r.OccurredAt.In(loc),
	}
	if r.PrevStartsAt != nil {
		e.PrevWhen = r.PrevStartsAt.In(loc)
	}
	return e
}

type travelRow struct {
	ID        string
	City      string
	Country   string
	Venue     string
	Address   string
	Latitude  *float64
	Longitude *float64
	StartDate time.Time
	EndDate   time.Time
}

func toTravelRow(w model.TravelLocation) travelRow {
	r := travelRow{
		ID:        w.ID,
		City:      w.Destination.City,
		Country:   w.Destination.Country,
		Venue:     w.Destination.Venue,
		Address:   w.Destination.Address,
		StartDate: w.StartDate,
		EndDate:   w.EndDate,
	}
	if c := w.Destination.Coordinates; c != nil {
		lat, lng := c.Latitude, c.Longitude
		r.Latitude, r.Longitude = &lat, &lng
	}
	return r
}

// window rebuilds the window with its DATE columns read as calendar days in loc.
func (r travelRow) window(loc *time.Location) model.TravelLocation {
	w := model.TravelLocation{
		ID: r.ID,
		Destination: model.Destination{
			City:    r.City,
			Country: r.Country,
			Venue:   r.Venue,
			Address: r.Address,
		},
		StartDate: asDay(r.StartDate, loc),
		EndDate:   asDay(r.EndDate, loc),
	}
	if r.Latitude != nil && r.Longitude != nil {
		w.Destination.Coordinates = &model.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return w
}

func asDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
