package store

import "github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"

// Rescheduled behaves like Scheduled at its new time, so it accepts the same moves.
var validNext = map[model.Status]map[model.Status]bool{
	model.StatusScheduled: {
		model.StatusConfirmed:   true,
		model.StatusRescheduled: true,
		model.StatusCanceled:    true,
		model.StatusCompleted:   true,
	},
	model.StatusConfirmed: {
		model.StatusRescheduled: true,
		model.StatusCanceled:    true,
		model.StatusCompleted:   true,
	},
	model.StatusRescheduled: {
		model.StatusConfirmed:   true,
		model.StatusRescheduled: true,
		model.StatusCanceled:    true,
		model.StatusCompleted:   true,
	},
	model.StatusCompleted: {},
	model.StatusCanceled:  {},
}

func CanTransition(from, to model.Status) bool {
	return validNext[from][to]
}

// EventKind names an entry in the audit trail.
type EventKind string

const (
	EventCreated     EventKind = "created"
	EventConfirmed   EventKind = "confirmed"
	EventRescheduled EventKind = "rescheduled"
	EventCanceled    EventKind = "canceled"
	EventCompleted   EventKind = "completed"
)

var actionFor = map[model.Status]EventKind{
	model.StatusConfirmed:   EventConfirmed,
	model.StatusRescheduled: EventRescheduled,
	model.StatusCanceled:    EventCanceled,
	model.StatusCompleted:   EventCompleted,
}
