// Package availability derives bookable slots from working hours, travel windows and the current
// appointment set. Slots are never stored: the same inputs always produce the same slots.
package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/interval"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/travel"
)

// WorkingHours is the daily window [StartHour, EndHour) in which slots may start.
type WorkingHours struct {
	StartHour int
	EndHour   int
}

type Config struct {
	Hours       WorkingHours
	SlotMinutes int
	StepMinutes int
	// Location decides calendar days and hour boundaries. Nil means the location of the range start.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		Hours:       WorkingHours{StartHour: 9, EndHour: 17},
		SlotMinutes: 60,
		StepMinutes: 60,
	}
}

func (c Config) Validate() error {
	if c.Hours.StartHour < 0 || c.Hours.EndHour > 24 || c.Hours.StartHour >= c.Hours.EndHour {
		return &model.ValidationError{
			Field:  "working_hours",
			Reason: fmt.Sprintf("invalid window %d-%d", c.Hours.StartHour, c.Hours.EndHour),
		}
	}
	if c.SlotMinutes <= 0 {
		return &model.ValidationError{Field: "slot_minutes", Reason: "must be positive"}
	}
	if c.StepMinutes <= 0 {
		return &model.ValidationError{Field: "step_minutes", Reason: "must be positive"}
	}
	return nil
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Generate returns every slot starting in [rangeStart, rangeEnd) on weekdays within working hours.
// Shop slots are offered every weekday; when a travel window covers the day, a hotel-visit slot is
// offered for the same times. A slot is booked iff it overlaps a non-canceled appointment, and
// BoundAppointmentID names the earliest such appointment (ties broken by id).
func (e *Engine) Generate(appts []model.Appointment, trips *travel.Schedule, rangeStart, rangeEnd time.Time) ([]model.AvailableSlot, error) {
	if rangeStart.After(rangeEnd) {
		return nil, &model.InvalidRangeError{Start: rangeStart, End: rangeEnd}
	}
	loc := e.cfg.Location
	if loc == nil {
		loc = rangeStart.Location()
	}
	busy := blocking(appts)

	var slots []model.AvailableSlot
	for day := interval.StartOfDay(rangeStart.In(loc)); day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
		if interval.IsWeekend(day) {
			continue
		}
		trip, traveling := trips.ActiveWindow(day)

		y, m, d := day.Date()
		for offset := e.cfg.Hours.StartHour * 60; offset < e.cfg.Hours.EndHour*60; offset += e.cfg.StepMinutes {
			start := time.Date(y, m, d, 0, offset, 0, 0, loc)
			if start.Before(rangeStart) || !start.Before(rangeEnd) {
				continue
			}
			iv := interval.FromMinutes(start, e.cfg.SlotMinutes)
			bound := firstOverlap(iv, busy)

			slots = append(slots, newSlot(iv, model.SiteShop, nil, bound))
			if traveling {
				dest := trip.Destination
				slots = append(slots, newSlot(iv, trip.ID, &dest, bound))
			}
		}
	}
	return slots, nil
}

// Offers reports whether iv could be booked at the given location: it must start on a weekday
// inside working hours, and hotel visits must fall on a day covered by a travel window.
func (e *Engine) Offers(iv interval.Interval, loc model.Location, trips *travel.Schedule) bool {
	tz := e.cfg.Location
	if tz == nil {
		tz = iv.Start.Location()
	}
	start := iv.Start.In(tz)
	if interval.IsWeekend(start) {
		return false
	}
	day := interval.StartOfDay(start)
	hours := interval.Interval{
		Start: day.Add(time.Duration(e.cfg.Hours.StartHour) * time.Hour),
		End:   day.Add(time.Duration(e.cfg.Hours.EndHour) * time.Hour),
	}
	if !hours.Contains(start) {
		return false
	}
	if loc.Kind == model.LocationHotelVisit {
		_, ok := trips.ActiveWindow(start)
		return ok
	}
	return true
}

type busyInterval struct {
	iv interval.Interval
	id string
}

func blocking(appts []model.Appointment) []busyInterval {
	busy := make([]busyInterval, 0, len(appts))
	for _, a := range appts {
		if !a.Status.Blocking() {
			continue
		}
		busy = append(busy, busyInterval{iv: a.Interval(), id: a.ID})
	}
	sort.Slice(busy, func(i, j int) bool {
		if !busy[i].iv.Start.Equal(busy[j].iv.Start) {
			return busy[i].iv.Start.Before(busy[j].iv.Start)
		}
		return busy[i].id < busy[j].id
	})
	return busy
}

func firstOverlap(iv interval.Interval, busy []busyInterval) string {
	for _, b := range busy {
		if interval.Overlaps(iv, b.iv) {
			return b.id
		}
	}
	return ""
}

func newSlot(iv interval.Interval, site string, dest *model.Destination, bound string) model.AvailableSlot {
	return model.AvailableSlot{
		ID:                 SlotID(iv.Start, site),
		Start:              iv.Start,
		End:                iv.End,
		Booked:             bound != "",
		BoundAppointmentID: bound,
		Site:               site,
		Destination:        dest,
	}
}

// SlotID is deterministic: slot-YYYYMMDD-HHMM-<site>.
func SlotID(start time.Time, site string) string {
	return fmt.Sprintf("slot-%s-%s", start.Format("20060102-1504"), site)
}

// OpenSlots filters slots down to the unbooked ones.
func OpenSlots(slots []model.AvailableSlot) []model.AvailableSlot {
	var out []model.AvailableSlot
	for _, s := range slots {
		if s.Open() {
			out = append(out, s)
		}
	}
	return out
}
