package model

import "time"

type Destination struct {
	City        string
	Country     string
	Venue       string
	Address     string
	Coordinates *Coordinates
}

// TravelLocation is a dated window during which the tailor offers hotel visits at Destination.
// StartDate and EndDate are calendar days, both inclusive.
type TravelLocation struct {
	ID          string
	Destination Destination
	StartDate   time.Time
	EndDate     time.Time
}
