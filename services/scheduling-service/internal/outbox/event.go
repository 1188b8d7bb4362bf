package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/store"
)

// Event is the envelope written to the outbox table. The Kafka topic equals EventType.
// A non-empty DedupeKey makes the insert a no-op when the key was already written.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	DedupeKey     string
	Payload       []byte
}

const (
	AggregateAppointment = "appointment"

	TypeReminderRequested = "scheduling.reminder.requested.v1"
)

// AppointmentEventType is scheduling.appointment.<kind>.v1.
func AppointmentEventType(kind store.EventKind) string {
	return fmt.Sprintf("scheduling.appointment.%s.v1", kind)
}

type AppointmentPayload struct {
	EventID         string     `json:"event_id"`
	AppointmentID   string     `json:"appointment_id"`
	CustomerID      string     `json:"customer_id"`
	TailorID        string     `json:"tailor_id"`
	Status          string     `json:"status"`
	PreviousStatus  string     `json:"previous_status,omitempty"`
	When            time.Time  `json:"when"`
	DurationMinutes int        `json:"duration_minutes"`
	PreviousWhen    *time.Time `json:"previous_when,omitempty"`
	LocationType    string     `json:"location_type"`
	Purpose         string     `json:"purpose"`
	RelatedOrderID  string     `json:"related_order_id,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// FromMutation builds the appointment lifecycle event for an accepted store mutation.
func FromMutation(m store.Mutation) (Event, error) {
	a := m.After
	p := AppointmentPayload{
		EventID:         m.Event.ID,
		AppointmentID:   a.ID,
		CustomerID:      a.CustomerID,
		TailorID:        a.TailorID,
		Status:          string(a.Status),
		PreviousStatus:  string(m.Event.From),
		When:            a.When,
		DurationMinutes: a.DurationMinutes,
		LocationType:    string(a.Location.Kind),
		Purpose:         string(a.Purpose),
		RelatedOrderID:  a.RelatedOrderID,
		OccurredAt:      m.Event.At,
	}
	if !m.Event.PrevWhen.IsZero() {
		prev := m.Event.PrevWhen
		p.PreviousWhen = &prev
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   a.ID,
		EventType:     AppointmentEventType(m.Event.Kind),
		DedupeKey:     m.Event.ID,
		Payload:       body,
	}, nil
}

type ReminderPayload struct {
	AppointmentID string    `json:"appointment_id"`
	CustomerID    string    `json:"customer_id"`
	TailorID      string    `json:"tailor_id"`
	When          time.Time `json:"when"`
	RemindAt      time.Time `json:"remind_at"`
	HoursBefore   uint      `json:"hours_before"`
	Purpose       string    `json:"purpose"`
	LocationType  string    `json:"location_type"`
}

// ReminderDedupeKey is appointmentId|remindAt, so a moved appointment gets a fresh reminder.
func ReminderDedupeKey(appointmentID string, remindAt time.Time) string {
	return appointmentID + "|" + remindAt.UTC().Format(time.RFC3339)
}

func ReminderEvent(a model.Appointment, remindAt time.Time) (Event, error) {
	body, err := json.Marshal(ReminderPayload{
		AppointmentID: a.ID,
		CustomerID:    a.CustomerID,
		TailorID:      a.TailorID,
		When:          a.When,
		RemindAt:      remindAt,
		HoursBefore:   a.Reminder.HoursBefore,
		Purpose:       string(a.Purpose),
		LocationType:  string(a.Location.Kind),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   a.ID,
		EventType:     TypeReminderRequested,
		DedupeKey:     ReminderDedupeKey(a.ID, remindAt),
		Payload:       body,
	}, nil
}
