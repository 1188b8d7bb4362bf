// Package store is the authoritative in-memory appointment collection. Every mutation runs its
// conflict check and its write under one lock, and readers work on copies.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/interval"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
)

// Event is one audit-trail entry. PrevWhen and PrevDurationMinutes are zero for creations.
type Event struct {
	ID                  string
	AppointmentID       string
	Kind                EventKind
	From                model.Status
	To                  model.Status
	PrevWhen            time.Time
	PrevDurationMinutes int
	When                time.Time
	DurationMinutes     int
	At                  time.Time
}

// Mutation is a single accepted transition: the record before (nil on create), after, and its event.
type Mutation struct {
	Before *model.Appointment
	After  model.Appointment
	Event  Event
}

// Committer persists a mutation before the store applies it. A commit error aborts the mutation.
type Committer interface {
	Commit(ctx context.Context, m Mutation) error
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDs(next func() string) Option {
	return func(s *Store) { s.newID = next }
}

func WithCommitter(c Committer) Option {
	return func(s *Store) { s.committer = c }
}

type Store struct {
	mu        sync.RWMutex
	byID      map[string]model.Appointment
	history   map[string][]Event
	now       func() time.Time
	newID     func() string
	committer Committer
}

func New(opts ...Option) *Store {
	s := &Store{
		byID:    make(map[string]model.Appointment),
		history: make(map[string][]Event),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the store contents with previously persisted state. Events for unknown
// appointments are dropped.
func (s *Store) Load(appts []model.Appointment, events []Event) error {
	byID := make(map[string]model.Appointment, len(appts))
	for _, a := range appts {
		if a.ID == "" {
			return &model.ValidationError{Field: "id", Reason: "persisted appointment without id"}
		}
		if !a.Status.Valid() {
			return &model.ValidationError{Field: "status", Reason: "unknown status " + string(a.Status) + " for " + a.ID}
		}
		if _, dup := byID[a.ID]; dup {
			return &model.ValidationError{Field: "id", Reason: "duplicate appointment " + a.ID}
		}
		byID[a.ID] = a
	}
	history := make(map[string][]Event)
	for _, e := range events {
		if _, ok := byID[e.AppointmentID]; ok {
			history[e.AppointmentID] = append(history[e.AppointmentID], e)
		}
	}
	for id := range history {
		evs := history[id]
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].At.Before(evs[j].At) })
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = byID
	s.history = history
	return nil
}

// Create books a new appointment after checking it against every blocking appointment of the same
// tailor. The appointment starts out Scheduled.
func (s *Store) Create(ctx context.Context, d model.Draft) (model.Appointment, error) {
	if err := d.Validate(); err != nil {
		return model.Appointment{}, err
	}
	reminder := model.DefaultReminder
	if d.Reminder != nil {
		reminder = *d.Reminder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	a := model.Appointment{
		ID:              s.newID(),
		CustomerID:      d.CustomerID,
		TailorID:        d.TailorID,
		When:            d.When,
		DurationMinutes: d.DurationMinutes,
		Location:        d.Location,
		Purpose:         d.Purpose,
		Status:          model.StatusScheduled,
		Notes:           d.Notes,
		RelatedOrderID:  d.RelatedOrderID,
		Reminder:        reminder,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, taken := s.byID[a.ID]; taken {
		return model.Appointment{}, &model.ValidationError{Field: "id", Reason: "generated id already in use"}
	}
	if err := s.checkConflict(a, ""); err != nil {
		return model.Appointment{}, err
	}
	ev := s.event(a.ID, EventCreated, "", model.StatusScheduled, nil, a, now)
	if err := s.apply(ctx, Mutation{After: a, Event: ev}); err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

// Reschedule moves an appointment in place. The appointment itself is excluded from the conflict set.
func (s *Store) Reschedule(ctx context.Context, id string, c model.Change) (model.Appointment, error) {
	if err := c.Validate(); err != nil {
		return model.Appointment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.guard(id, model.StatusRescheduled, "reschedule")
	if err != nil {
		return model.Appointment{}, err
	}
	after := before
	after.When = c.When
	after.DurationMinutes = c.DurationMinutes
	after.Location = c.Location
	after.Purpose = c.Purpose
	after.Notes = c.Notes
	after.Status = model.StatusRescheduled
	if err := s.checkConflict(after, id); err != nil {
		return model.Appointment{}, err
	}
	return s.transition(ctx, before, after, EventRescheduled)
}

func (s *Store) Cancel(ctx context.Context, id string) (model.Appointment, error) {
	return s.setStatus(ctx, id, model.StatusCanceled, "cancel")
}

func (s *Store) Confirm(ctx context.Context, id string) (model.Appointment, error) {
	return s.setStatus(ctx, id, model.StatusConfirmed, "confirm")
}

func (s *Store) Complete(ctx context.Context, id string) (model.Appointment, error) {
	return s.setStatus(ctx, id, model.StatusCompleted, "complete")
}

func (s *Store) Get(id string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return model.Appointment{}, &model.NotFoundError{ID: id}
	}
	return a, nil
}

// Snapshot returns a copy of every appointment ordered by start time, then id.
func (s *Store) Snapshot() []model.Appointment {
	s.mu.RLock()
	out := make([]model.Appointment, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].When.Equal(out[j].When) {
			return out[i].When.Before(out[j].When)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// History returns the audit trail of one appointment, oldest first.
func (s *Store) History(id string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byID[id]; !ok {
		return nil, &model.NotFoundError{ID: id}
	}
	evs := s.history[id]
	out := make([]Event, len(evs))
	copy(out, evs)
	return out, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) setStatus(ctx context.Context, id string, to model.Status, action string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.guard(id, to, action)
	if err != nil {
		return model.Appointment{}, err
	}
	after := before
	after.Status = to
	return s.transition(ctx, before, after, actionFor[to])
}

// guard must be called with mu held.
func (s *Store) guard(id string, to model.Status, action string) (model.Appointment, error) {
	a, ok := s.byID[id]
	if !ok {
		return model.Appointment{}, &model.NotFoundError{ID: id}
	}
	if !CanTransition(a.Status, to) {
		return model.Appointment{}, &model.InvalidStateError{ID: id, From: a.Status, Action: action}
	}
	return a, nil
}

func (s *Store) transition(ctx context.Context, before, after model.Appointment, kind EventKind) (model.Appointment, error) {
	now := s.now()
	after.UpdatedAt = now
	ev := s.event(after.ID, kind, before.Status, after.Status, &before, after, now)
	if err := s.apply(ctx, Mutation{Before: &before, After: after, Event: ev}); err != nil {
		return model.Appointment{}, err
	}
	return after, nil
}

// checkConflict returns the earliest blocking appointment of the same tailor that overlaps a.
// It must be called with mu held.
func (s *Store) checkConflict(a model.Appointment, exclude string) error {
	if !a.Status.Blocking() {
		return nil
	}
	iv := a.Interval()
	var hit *model.Appointment
	for id, other := range s.byID {
		if id == exclude || other.TailorID != a.TailorID || !other.Status.Blocking() {
			continue
		}
		if !interval.Overlaps(iv, other.Interval()) {
			continue
		}
		if hit == nil || other.When.Before(hit.When) || (other.When.Equal(hit.When) && other.ID < hit.ID) {
			o := other
			hit = &o
		}
	}
	if hit == nil {
		return nil
	}
	return &model.ConflictError{TailorID: a.TailorID, ConflictingID: hit.ID, Start: hit.When, End: hit.End()}
}

func (s *Store) event(id string, kind EventKind, from, to model.Status, before *model.Appointment, after model.Appointment, at time.Time) Event {
	ev := Event{
		ID:              uuid.NewString(),
		AppointmentID:   id,
		Kind:            kind,
		From:            from,
		To:              to,
		When:            after.When,
		DurationMinutes: after.DurationMinutes,
		At:              at,
	}
	if before != nil {
		ev.PrevWhen = before.When
		ev.PrevDurationMinutes = before.DurationMinutes
	}
	return ev
}

// apply commits then writes; it must be called with mu held.
func (s *Store) apply(ctx context.Context, m Mutation) error {
	if s.committer != nil {
		if err := s.committer.Commit(ctx, m); err != nil {
			return err
		}
	}
	s.byID[m.After.ID] = m.After
	s.history[m.After.ID] = append(s.history[m.After.ID], m.Event)
	return nil
}
