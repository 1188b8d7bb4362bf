// Package travel holds the tailor's travel windows, ordered and non-overlapping.
package travel

import (
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/interval"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
)

// Schedule is immutable once built and safe for concurrent readers.
type Schedule struct {
	windows []model.TravelLocation
}

// NewSchedule sorts windows by start date and rejects inverted or overlapping windows.
// Window days are inclusive on both ends, so a window ending on the day another starts overlaps it.
func NewSchedule(windows []model.TravelLocation) (*Schedule, error) {
	sorted := make([]model.TravelLocation, len(windows))
	copy(sorted, windows)
	for _, w := range sorted {
		if interval.DayKey(w.StartDate) > interval.DayKey(w.EndDate) {
			return nil, &model.InvalidRangeError{Start: w.StartDate, End: w.EndDate}
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := interval.DayKey(sorted[i].StartDate), interval.DayKey(sorted[j].StartDate)
		if ki != kj {
			return ki < kj
		}
		return sorted[i].ID < sorted[j].ID
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if interval.DayKey(cur.StartDate) <= interval.DayKey(prev.EndDate) {
			return nil, &model.ValidationError{
				Field:  "travel",
				Reason: fmt.Sprintf("window %q overlaps window %q", cur.ID, prev.ID),
			}
		}
	}
	return &Schedule{windows: sorted}, nil
}

// Empty returns a schedule with no travel.
func Empty() *Schedule {
	return &Schedule{}
}

// Windows returns a copy of all windows in order.
func (s *Schedule) Windows() []model.TravelLocation {
	if s == nil {
		return nil
	}
	out := make([]model.TravelLocation, len(s.windows))
	copy(out, s.windows)
	return out
}

// ActiveWindow returns the window whose days include date.
func (s *Schedule) ActiveWindow(date time.Time) (model.TravelLocation, bool) {
	if s == nil {
		return model.TravelLocation{}, false
	}
	day := interval.DayKey(date)
	for _, w := range s.windows {
		if interval.DayKey(w.StartDate) <= day && day <= interval.DayKey(w.EndDate) {
			return w, true
		}
	}
	return model.TravelLocation{}, false
}

// Upcoming returns the windows that have not ended before date, active window first.
func (s *Schedule) Upcoming(date time.Time) []model.TravelLocation {
	if s == nil {
		return nil
	}
	day := interval.DayKey(date)
	var out []model.TravelLocation
	for _, w := range s.windows {
		if interval.DayKey(w.EndDate) >= day {
			out = append(out, w)
		}
	}
	return out
}

// Banner is the travel notice shown next to the booking calendar: the featured window and a
// one-line mention of the window after it.
type Banner struct {
	Featured *model.TravelLocation
	Next     string
}

func (s *Schedule) Banner(date time.Time) Banner {
	up := s.Upcoming(date)
	var b Banner
	if len(up) > 0 {
		featured := up[0]
		b.Featured = &featured
	}
	if len(up) > 1 {
		b.Next = Headline(up[1])
	}
	return b
}

// Headline renders "Next: <city> (<Mon d> - <Mon d>)".
func Headline(w model.TravelLocation) string {
	return fmt.Sprintf("Next: %s (%s - %s)", w.Destination.City, w.StartDate.Format("Jan 2"), w.EndDate.Format("Jan 2"))
}
