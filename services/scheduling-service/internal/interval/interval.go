// Package interval implements half-open time interval arithmetic. Every overlap decision in the
// scheduling service goes through Overlaps so that back-to-back bookings never conflict.
package interval

import "time"

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// FromMinutes builds the interval starting at start and lasting minutes.
func FromMinutes(start time.Time, minutes int) Interval {
	return Interval{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
}

// Duration returns the length of i in whole minutes.
func Duration(i Interval) int {
	return int(i.End.Sub(i.Start) / time.Minute)
}

// Contains reports whether t lies in [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Overlaps reports whether a and b share any instant: a.Start < b.End && b.Start < a.End.
// Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
