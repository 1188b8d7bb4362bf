// Package calendar builds month, week and day views and tabbed lists from an appointment snapshot
// and a generated slot set. Nothing here mutates its inputs.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/interval"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
)

// HourRange is an inclusive range of hour rows.
type HourRange struct {
	From int
	To   int
}

func (r HourRange) hours() []int {
	out := make([]int, 0, r.To-r.From+1)
	for h := r.From; h <= r.To; h++ {
		out = append(out, h)
	}
	return out
}

type Options struct {
	// MonthWeekStart is the first column of the month grid.
	MonthWeekStart time.Weekday
	WeekHours      HourRange
	DayHours       HourRange
}

func DefaultOptions() Options {
	return Options{
		MonthWeekStart: time.Sunday,
		WeekHours:      HourRange{From: 9, To: 18},
		DayHours:       HourRange{From: 9, To: 20},
	}
}

func (o Options) Validate() error {
	for name, r := range map[string]HourRange{"week_hours": o.WeekHours, "day_hours": o.DayHours} {
		if r.From < 0 || r.To > 23 || r.From > r.To {
			return &model.ValidationError{Field: name, Reason: fmt.Sprintf("invalid hour range %d-%d", r.From, r.To)}
		}
	}
	if o.MonthWeekStart < time.Sunday || o.MonthWeekStart > time.Saturday {
		return &model.ValidationError{Field: "month_week_start", Reason: "not a weekday"}
	}
	return nil
}

type DayCell struct {
	Date             time.Time
	InMonth          bool
	AppointmentCount int
	OpenSlotCount    int
	// HasOpenAvailability is set only for days with open slots and no appointments.
	HasOpenAvailability bool
}

type MonthGrid struct {
	Year  int
	Month time.Month
	Weeks [][]DayCell
}

type HourCell struct {
	Start        time.Time
	Appointments []model.Appointment
	OpenSlot     *model.AvailableSlot
}

type HourRow struct {
	Hour  int
	Cells []HourCell
}

type WeekView struct {
	Days []time.Time
	Rows []HourRow
}

type DayView struct {
	Date time.Time
	Rows []HourRow
}

type Projector struct {
	opts Options
}

func NewProjector(opts Options) (*Projector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Projector{opts: opts}, nil
}

// Month lays out every complete week overlapping the month. loc decides day boundaries.
func (p *Projector) Month(year int, month time.Month, loc *time.Location, appts []model.Appointment, slots []model.AvailableSlot) MonthGrid {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	start := weekStart(first, p.opts.MonthWeekStart)
	end := weekStart(last, p.opts.MonthWeekStart).AddDate(0, 0, 6)

	apptsByDay := make(map[int]int)
	for _, a := range appts {
		apptsByDay[interval.DayKey(a.When.In(loc))]++
	}
	openByDay := make(map[int]int)
	for _, s := range slots {
		if s.Open() {
			openByDay[interval.DayKey(s.Start.In(loc))]++
		}
	}

	grid := MonthGrid{Year: year, Month: month}
	var week []DayCell
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := interval.DayKey(d)
		cell := DayCell{
			Date:             d,
			InMonth:          d.Month() == month,
			AppointmentCount: apptsByDay[key],
			OpenSlotCount:    openByDay[key],
		}
		cell.HasOpenAvailability = cell.OpenSlotCount > 0 && cell.AppointmentCount == 0
		week = append(week, cell)
		if len(week) == 7 {
			grid.Weeks = append(grid.Weeks, week)
			week = nil
		}
	}
	return grid
}

// Week covers the Monday-start ISO week containing ref.
func (p *Projector) Week(ref time.Time, appts []model.Appointment, slots []model.AvailableSlot) WeekView {
	monday := weekStart(interval.StartOfDay(ref), time.Monday)
	view := WeekView{}
	for i := 0; i < 7; i++ {
		view.Days = append(view.Days, monday.AddDate(0, 0, i))
	}
	open := openSlots(slots)
	for _, h := range p.opts.WeekHours.hours() {
		row := HourRow{Hour: h}
		for _, d := range view.Days {
			row.Cells = append(row.Cells, hourCell(d, h, appts, open))
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func (p *Projector) Day(ref time.Time, appts []model.Appointment, slots []model.AvailableSlot) DayView {
	d := interval.StartOfDay(ref)
	view := DayView{Date: d}
	open := openSlots(slots)
	for _, h := range p.opts.DayHours.hours() {
		view.Rows = append(view.Rows, HourRow{Hour: h, Cells: []HourCell{hourCell(d, h, appts, open)}})
	}
	return view
}

// hourCell lists appointments overlapping the hour and the first open slot starting inside it.
func hourCell(day time.Time, hour int, appts []model.Appointment, open []model.AvailableSlot) HourCell {
	y, m, d := day.Date()
	start := time.Date(y, m, d, hour, 0, 0, 0, day.Location())
	iv := interval.Interval{Start: start, End: start.Add(time.Hour)}

	cell := HourCell{Start: start}
	for _, a := range appts {
		if interval.Overlaps(iv, a.Interval()) {
			cell.Appointments = append(cell.Appointments, a)
		}
	}
	sort.SliceStable(cell.Appointments, func(i, j int) bool {
		ai, aj := cell.Appointments[i], cell.Appointments[j]
		if !ai.When.Equal(aj.When) {
			return ai.When.Before(aj.When)
		}
		return ai.ID < aj.ID
	})
	for i := range open {
		if iv.Contains(open[i].Start) {
			s := open[i]
			cell.OpenSlot = &s
			break
		}
	}
	return cell
}

// openSlots returns the unbooked slots ordered by start, then id.
func openSlots(slots []model.AvailableSlot) []model.AvailableSlot {
	var out []model.AvailableSlot
	for _, s := range slots {
		if s.Open() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func weekStart(d time.Time, first time.Weekday) time.Time {
	back := (int(d.Weekday()) - int(first) + 7) % 7
	return interval.StartOfDay(d).AddDate(0, 0, -back)
}
