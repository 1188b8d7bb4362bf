package handlers

import (
	"time"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/store"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/travel"
)

type locationDTO struct {
	Type      string   `json:"type" validate:"required,oneof=shop hotel virtual"`
	Address   string   `json:"address,omitempty" validate:"max=300"`
	City      string   `json:"city,omitempty" validate:"max=120"`
	Country   string   `json:"country,omitempty" validate:"max=120"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

func (l locationDTO) model() model.Location {
	loc := model.Location{Kind: model.LocationKind(l.Type), Address: l.Address, City: l.City, Country: l.Country}
	if l.Latitude != nil && l.Longitude != nil {
		loc.Coordinates = &model.Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude}
	}
	return loc
}

func toLocationDTO(l model.Location) locationDTO {
	dto := locationDTO{Type: string(l.Kind), Address: l.Address, City: l.City, Country: l.Country}
	if l.Coordinates != nil {
		lat, lng := l.Coordinates.Latitude, l.Coordinates.Longitude
		dto.Latitude, dto.Longitude = &lat, &lng
	}
	return dto
}

type reminderDTO struct {
	Enabled     bool `json:"enabled"`
	HoursBefore uint `json:"hours_before" validate:"lte=336"`
}

type createAppointmentRequest struct {
	CustomerID      string       `json:"customer_id" validate:"required,max=64"`
	TailorID        string       `json:"tailor_id" validate:"required,max=64"`
	When            time.Time    `json:"when" validate:"required"`
	DurationMinutes int          `json:"duration_minutes" validate:"required,gt=0,lte=480"`
	Location        locationDTO  `json:"location"`
	Purpose         string       `json:"purpose" validate:"required,oneof=initial fitting consultation pickup"`
	Notes           string       `json:"notes,omitempty" validate:"max=2000"`
	RelatedOrderID  string       `json:"related_order_id,omitempty" validate:"max=64"`
	Reminder        *reminderDTO `json:"reminder,omitempty"`
}

func (r createAppointmentRequest) draft() model.Draft {
	d := model.Draft{
		CustomerID:      r.CustomerID,
		TailorID:        r.TailorID,
		When:            r.When,
		DurationMinutes: r.DurationMinutes,
		Location:        r.Location.model(),
		Purpose:         model.Purpose(r.Purpose),
		Notes:           r.Notes,
		RelatedOrderID:  r.RelatedOrderID,
	}
	if r.Reminder != nil {
		d.Reminder = &model.Reminder{Enabled: r.Reminder.Enabled, HoursBefore: r.Reminder.HoursBefore}
	}
	return d
}

type rescheduleRequest struct {
	When            time.Time   `json:"when" validate:"required"`
	DurationMinutes int         `json:"duration_minutes" validate:"required,gt=0,lte=480"`
	Location        locationDTO `json:"location"`
	Purpose         string      `json:"purpose" validate:"required,oneof=initial fitting consultation pickup"`
	Notes           string      `json:"notes,omitempty" validate:"max=2000"`
}

func (r rescheduleRequest) change() model.Change {
	return model.Change{
		When:            r.When,
		DurationMinutes: r.DurationMinutes,
		Location:        r.Location.model(),
		Purpose:         model.Purpose(r.Purpose),
		Notes:           r.Notes,
	}
}

type appointmentResponse struct {
	ID              string      `json:"id"`
	CustomerID      string      `json:"customer_id"`
	TailorID        string      `json:"tailor_id"`
	When            time.Time   `json:"when"`
	End             time.Time   `json:"end"`
	DurationMinutes int         `json:"duration_minutes"`
	Location        locationDTO `json:"location"`
	Purpose         string      `json:"purpose"`
	Status          string      `json:"status"`
	Notes           string      `json:"notes,omitempty"`
	RelatedOrderID  string      `json:"related_order_id,omitempty"`
	Reminder        reminderDTO `json:"reminder"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		CustomerID:      a.CustomerID,
		TailorID:        a.TailorID,
		When:            a.When,
		End:             a.End(),
		DurationMinutes: a.DurationMinutes,
		Location:        toLocationDTO(a.Location),
		Purpose:         string(a.Purpose),
		Status:          string(a.Status),
		Notes:           a.Notes,
		RelatedOrderID:  a.RelatedOrderID,
		Reminder:        reminderDTO{Enabled: a.Reminder.Enabled, HoursBefore: a.Reminder.HoursBefore},
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toAppointmentList(appts []model.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

type historyItem struct {
	ID                  string     `json:"id"`
	Kind                string     `json:"kind"`
	From                string     `json:"from,omitempty"`
	To                  string     `json:"to"`
	PrevWhen            *time.Time `json:"prev_when,omitempty"`
	PrevDurationMinutes int        `json:"prev_duration_minutes,omitempty"`
	When                time.Time  `json:"when"`
	DurationMinutes     int        `json:"duration_minutes"`
	At                  time.Time  `json:"at"`
}

func toHistory(evs []store.Event) []historyItem {
	out := make([]historyItem, 0, len(evs))
	for _, e := range evs {
		item := historyItem{
			ID:                  e.ID,
			Kind:                string(e.Kind),
			From:                string(e.From),
			To:                  string(e.To),
			PrevDurationMinutes: e.PrevDurationMinutes,
			When:                e.When,
			DurationMinutes:     e.DurationMinutes,
			At:                  e.At,
		}
		if !e.PrevWhen.IsZero() {
			prev := e.PrevWhen
			item.PrevWhen = &prev
		}
		out = append(out, item)
	}
	return out
}

type destinationDTO struct {
	City      string   `json:"city"`
	Country   string   `json:"country"`
	Venue     string   `json:"venue,omitempty"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func toDestinationDTO(d model.Destination) destinationDTO {
	dto := destinationDTO{City: d.City, Country: d.Country, Venue: d.Venue, Address: d.Address}
	if d.Coordinates != nil {
		lat, lng := d.Coordinates.Latitude, d.Coordinates.Longitude
		dto.Latitude, dto.Longitude = &lat, &lng
	}
	return dto
}

type slotResponse struct {
	ID                 string          `json:"id"`
	Start              time.Time       `json:"start"`
	End                time.Time       `json:"end"`
	Booked             bool            `json:"booked"`
	BoundAppointmentID string          `json:"bound_appointment_id,omitempty"`
	Site               string          `json:"site"`
	Destination        *destinationDTO `json:"destination,omitempty"`
}

func toSlotResponse(s model.AvailableSlot) slotResponse {
	out := slotResponse{
		ID:                 s.ID,
		Start:              s.Start,
		End:                s.End,
		Booked:             s.Booked,
		BoundAppointmentID: s.BoundAppointmentID,
		Site:               s.Site,
	}
	if s.Destination != nil {
		d := toDestinationDTO(*s.Destination)
		out.Destination = &d
	}
	return out
}

func toSlotList(slots []model.AvailableSlot) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
	}
	return out
}

type dayCellResponse struct {
	Date                string `json:"date"`
	InMonth             bool   `json:"in_month"`
	AppointmentCount    int    `json:"appointment_count"`
	OpenSlotCount       int    `json:"open_slot_count"`
	HasOpenAvailability bool   `json:"has_open_availability"`
}

type monthResponse struct {
	Year  int                 `json:"year"`
	Month int                 `json:"month"`
	Weeks [][]dayCellResponse `json:"weeks"`
}

func toMonthResponse(g calendar.MonthGrid) monthResponse {
	out := monthResponse{Year: g.Year, Month: int(g.Month), Weeks: make([][]dayCellResponse, 0, len(g.Weeks))}
	for _, w := range g.Weeks {
		week := make([]dayCellResponse, 0, len(w))
		for _, c := range w {
			week = append(week, dayCellResponse{
				Date:                c.Date.Format(time.DateOnly),
				InMonth:             c.InMonth,
				AppointmentCount:    c.AppointmentCount,
				OpenSlotCount:       c.OpenSlotCount,
				HasOpenAvailability: c.HasOpenAvailability,
			})
		}
		out.Weeks = append(out.Weeks, week)
	}
	return out
}

type hourCellResponse struct {
	Start        time.Time             `json:"start"`
	Appointments []appointmentResponse `json:"appointments"`
	OpenSlot     *slotResponse         `json:"open_slot,omitempty"`
}

type hourRowResponse struct {
	Hour  int                `json:"hour"`
	Cells []hourCellResponse `json:"cells"`
}

func toRows(rows []calendar.HourRow) []hourRowResponse {
	out := make([]hourRowResponse, 0, len(rows))
	for _, r := range rows {
		row := hourRowResponse{Hour: r.Hour, Cells: make([]hourCellResponse, 0, len(r.Cells))}
		for _, c := range r.Cells {
			cell := hourCellResponse{Start: c.Start, Appointments: toAppointmentList(c.Appointments)}
			if c.OpenSlot != nil {
				s := toSlotResponse(*c.OpenSlot)
				cell.OpenSlot = &s
			}
			row.Cells = append(row.Cells, cell)
		}
		out = append(out, row)
	}
	return out
}

type weekResponse struct {
	Days []string          `json:"days"`
	Rows []hourRowResponse `json:"rows"`
}

func toWeekResponse(v calendar.WeekView) weekResponse {
	out := weekResponse{Rows: toRows(v.Rows)}
	for _, d := range v.Days {
		out.Days = append(out.Days, d.Format(time.DateOnly))
	}
	return out
}

type dayResponse struct {
	Date string            `json:"date"`
	Rows []hourRowResponse `json:"rows"`
}

func toDayResponse(v calendar.DayView) dayResponse {
	return dayResponse{Date: v.Date.Format(time.DateOnly), Rows: toRows(v.Rows)}
}

type travelWindowResponse struct {
	ID          string         `json:"id"`
	Destination destinationDTO `json:"destination"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
}

type travelResponse struct {
	Active   *travelWindowResponse  `json:"active,omitempty"`
	Featured *travelWindowResponse  `json:"featured,omitempty"`
	Upcoming []travelWindowResponse `json:"upcoming"`
	Next     string                 `json:"next,omitempty"`
}

func toTravelWindow(w model.TravelLocation) travelWindowResponse {
	return travelWindowResponse{
		ID:          w.ID,
		Destination: toDestinationDTO(w.Destination),
		StartDate:   w.StartDate.Format(time.DateOnly),
		EndDate:     w.EndDate.Format(time.DateOnly),
	}
}

func toTravelResponse(s *travel.Schedule, date time.Time) travelResponse {
	out := travelResponse{Upcoming: []travelWindowResponse{}}
	if w, ok := s.ActiveWindow(date); ok {
		active := toTravelWindow(w)
		out.Active = &active
	}
	for _, w := range s.Upcoming(date) {
		out.Upcoming = append(out.Upcoming, toTravelWindow(w))
	}
	banner := s.Banner(date)
	if banner.Featured != nil {
		featured := toTravelWindow(*banner.Featured)
		out.Featured = &featured
	}
	out.Next = banner.Next
	return out
}
