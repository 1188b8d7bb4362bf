package model

import (
	"time"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/interval"
)

// SiteShop is the Site of slots offered at the home shop.
const SiteShop = "shop"

// AvailableSlot is a derived, never-persisted candidate booking interval.
type AvailableSlot struct {
	ID                 string
	Start              time.Time
	End                time.Time
	Booked             bool
	BoundAppointmentID string
	// Site is SiteShop or the id of the travel window the slot belongs to.
	Site        string
	Destination *Destination
}

func (s AvailableSlot) Interval() interval.Interval {
	return interval.Interval{Start: s.Start, End: s.End}
}

// Open reports whether the slot can still be booked.
func (s AvailableSlot) Open() bool {
	return !s.Booked
}
