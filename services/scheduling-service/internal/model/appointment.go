package model

import (
	"strings"
	"time"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/interval"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCanceled    Status = "canceled"
	StatusRescheduled Status = "rescheduled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCanceled, StatusRescheduled:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Blocking reports whether an appointment in this status occupies its time interval.
func (s Status) Blocking() bool {
	return s != StatusCanceled
}

type LocationKind string

const (
	LocationShop       LocationKind = "shop"
	LocationHotelVisit LocationKind = "hotel"
	LocationVirtual    LocationKind = "virtual"
)

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Location is where the appointment takes place. Address fields are only meaningful for hotel visits.
type Location struct {
	Kind        LocationKind
	Address     string
	City        string
	Country     string
	Coordinates *Coordinates
}

func (l Location) Validate() error {
	switch l.Kind {
	case LocationShop, LocationVirtual:
		return nil
	case LocationHotelVisit:
		if strings.TrimSpace(l.Address) == "" {
			return &ValidationError{Field: "location.address", Reason: "required for hotel visits"}
		}
		if strings.TrimSpace(l.City) == "" || strings.TrimSpace(l.Country) == "" {
			return &ValidationError{Field: "location.city", Reason: "city and country required for hotel visits"}
		}
		return nil
	default:
		return &ValidationError{Field: "location.type", Reason: "unknown location type " + string(l.Kind)}
	}
}

type Purpose string

const (
	PurposeInitial      Purpose = "initial"
	PurposeFitting      Purpose = "fitting"
	PurposeConsultation Purpose = "consultation"
	PurposePickup       Purpose = "pickup"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeInitial, PurposeFitting, PurposeConsultation, PurposePickup:
		return true
	}
	return false
}

type Reminder struct {
	Enabled     bool
	HoursBefore uint
}

// DefaultReminder is applied when a booking does not specify reminder settings.
var DefaultReminder = Reminder{Enabled: true, HoursBefore: 24}

type Appointment struct {
	ID              string
	CustomerID      string
	TailorID        string
	When            time.Time
	DurationMinutes int
	Location        Location
	Purpose         Purpose
	Status          Status
	Notes           string
	RelatedOrderID  string
	Reminder        Reminder
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Appointment) End() time.Time {
	return a.Interval().End
}

func (a Appointment) Interval() interval.Interval {
	return interval.FromMinutes(a.When, a.DurationMinutes)
}

// RemindAt is the instant the reminder should fire; ok is false when reminders are disabled.
func (a Appointment) RemindAt() (time.Time, bool) {
	if !a.Reminder.Enabled {
		return time.Time{}, false
	}
	return a.When.Add(-time.Duration(a.Reminder.HoursBefore) * time.Hour), true
}

// Draft is the caller-supplied part of a booking: everything except identity and status.
type Draft struct {
	CustomerID      string
	TailorID        string
	When            time.Time
	DurationMinutes int
	Location        Location
	Purpose         Purpose
	Notes           string
	RelatedOrderID  string
	Reminder        *Reminder
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.CustomerID) == "" {
		return &ValidationError{Field: "customer_id", Reason: "required"}
	}
	if strings.TrimSpace(d.TailorID) == "" {
		return &ValidationError{Field: "tailor_id", Reason: "required"}
	}
	if d.When.IsZero() {
		return &ValidationError{Field: "when", Reason: "required"}
	}
	if err := validateTiming(d.DurationMinutes, d.Purpose); err != nil {
		return err
	}
	return d.Location.Validate()
}

// Change describes a reschedule: the new time, duration, location, purpose and notes.
type Change struct {
	When            time.Time
	DurationMinutes int
	Location        Location
	Purpose         Purpose
	Notes           string
}

func (c Change) Validate() error {
	if c.When.IsZero() {
		return &ValidationError{Field: "when", Reason: "required"}
	}
	if err := validateTiming(c.DurationMinutes, c.Purpose); err != nil {
		return err
	}
	return c.Location.Validate()
}

func validateTiming(duration int, purpose Purpose) error {
	if duration <= 0 {
		return &ValidationError{Field: "duration_minutes", Reason: "must be positive"}
	}
	if !purpose.Valid() {
		return &ValidationError{Field: "purpose", Reason: "unknown purpose " + string(purpose)}
	}
	return nil
}
