// Package booking is the entry point for callers of the scheduling core: it combines the appointment
// store, the availability engine, the travel schedule and the calendar projector.
package booking

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	otelx "github.com/md-rashed-zaman/tailorbook/libs/otel"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/interval"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/store"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/travel"
)

var tracer = otelx.Tracer("scheduling-service/booking")

type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	// EnforceOfferedHours rejects bookings that start outside working hours, on weekends, or as
	// hotel visits on days without a travel window.
	EnforceOfferedHours bool
	// Location decides calendar days for projections. Nil means UTC.
	Location *time.Location
}

type Service struct {
	store     *store.Store
	engine    *availability.Engine
	projector *calendar.Projector
	trips     atomic.Pointer[travel.Schedule]
	logger    *slog.Logger
	now       func() time.Time
	enforce   bool
	loc       *time.Location
}

func New(st *store.Store, engine *availability.Engine, projector *calendar.Projector, opts Options) *Service {
	s := &Service{
		store:     st,
		engine:    engine,
		projector: projector,
		logger:    opts.Logger,
		now:       opts.Now,
		enforce:   opts.EnforceOfferedHours,
		loc:       opts.Location,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	s.trips.Store(travel.Empty())
	return s
}

// Now is the service clock, used by callers for tab filtering and the past-dated policy.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) CreateAppointment(ctx context.Context, d model.Draft) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("tailor_id", d.TailorID),
		attribute.String("when", d.When.Format(time.RFC3339)),
		attribute.Int("duration_minutes", d.DurationMinutes),
	))
	defer span.End()

	if s.enforce {
		if err := d.Validate(); err != nil {
			return model.Appointment{}, fail(span, err)
		}
		if !s.engine.Offers(interval.FromMinutes(d.When, d.DurationMinutes), d.Location, s.Travel()) {
			return model.Appointment{}, fail(span, &model.ValidationError{Field: "when", Reason: "not an offered time for this location"})
		}
	}
	a, err := s.store.Create(ctx, d)
	if err != nil {
		return model.Appointment{}, fail(span, err)
	}
	span.SetAttributes(attribute.String("appointment_id", a.ID))
	s.logger.Info("appointment created", "appointment_id", a.ID, "tailor_id", a.TailorID, "when", a.When)
	return a, nil
}

func (s *Service) RescheduleAppointment(ctx context.Context, id string, c model.Change) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.reschedule", trace.WithAttributes(
		attribute.String("appointment_id", id),
		attribute.String("when", c.When.Format(time.RFC3339)),
	))
	defer span.End()

	if s.enforce {
		if err := c.Validate(); err != nil {
			return model.Appointment{}, fail(span, err)
		}
		if !s.engine.Offers(interval.FromMinutes(c.When, c.DurationMinutes), c.Location, s.Travel()) {
			return model.Appointment{}, fail(span, &model.ValidationError{Field: "when", Reason: "not an offered time for this location"})
		}
	}
	a, err := s.store.Reschedule(ctx, id, c)
	if err != nil {
		return model.Appointment{}, fail(span, err)
	}
	s.logger.Info("appointment rescheduled", "appointment_id", a.ID, "when", a.When)
	return a, nil
}

func (s *Service) CancelAppointment(ctx context.Context, id string) (model.Appointment, error) {
	return s.transition(ctx, "cancel", id, s.store.Cancel)
}

func (s *Service) ConfirmAppointment(ctx context.Context, id string) (model.Appointment, error) {
	return s.transition(ctx, "confirm", id, s.store.Confirm)
}

func (s *Service) CompleteAppointment(ctx context.Context, id string) (model.Appointment, error) {
	return s.transition(ctx, "complete", id, s.store.Complete)
}

func (s *Service) transition(ctx context.Context, action, id string, fn func(context.Context, string) (model.Appointment, error)) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking."+action, trace.WithAttributes(attribute.String("appointment_id", id)))
	defer span.End()

	a, err := fn(ctx, id)
	if err != nil {
		return model.Appointment{}, fail(span, err)
	}
	s.logger.Info("appointment "+string(a.Status), "appointment_id", a.ID)
	return a, nil
}

func (s *Service) GetAppointment(id string) (model.Appointment, error) {
	return s.store.Get(id)
}

func (s *Service) History(id string) ([]store.Event, error) {
	return s.store.History(id)
}

// ListAppointments filters a consistent snapshot of the store.
func (s *Service) ListAppointments(tab calendar.Tab, now time.Time) []model.Appointment {
	return calendar.FilterByTab(s.store.Snapshot(), tab, now)
}

// GenerateAvailability computes slots over [rangeStart, rangeEnd). A nil windows slice uses the
// current travel schedule.
func (s *Service) GenerateAvailability(ctx context.Context, rangeStart, rangeEnd time.Time, windows []model.TravelLocation) ([]model.AvailableSlot, error) {
	_, span := tracer.Start(ctx, "booking.availability", trace.WithAttributes(
		attribute.String("from", rangeStart.Format(time.RFC3339)),
		attribute.String("to", rangeEnd.Format(time.RFC3339)),
	))
	defer span.End()

	trips := s.Travel()
	if windows != nil {
		var err error
		if trips, err = travel.NewSchedule(windows); err != nil {
			return nil, fail(span, err)
		}
	}
	slots, err := s.engine.Generate(s.store.Snapshot(), trips, rangeStart, rangeEnd)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return slots, nil
}

func (s *Service) ProjectMonth(ctx context.Context, year int, month time.Month) (calendar.MonthGrid, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	// complete weeks reach at most six days either side of the month
	from, to := first.AddDate(0, 0, -6), first.AddDate(0, 1, 6)
	appts, slots, err := s.view(ctx, "booking.project_month", from, to)
	if err != nil {
		return calendar.MonthGrid{}, err
	}
	return s.projector.Month(year, month, s.loc, appts, slots), nil
}

func (s *Service) ProjectWeek(ctx context.Context, ref time.Time) (calendar.WeekView, error) {
	day := interval.StartOfDay(ref.In(s.loc))
	appts, slots, err := s.view(ctx, "booking.project_week", day.AddDate(0, 0, -6), day.AddDate(0, 0, 7))
	if err != nil {
		return calendar.WeekView{}, err
	}
	return s.projector.Week(day, appts, slots), nil
}

func (s *Service) ProjectDay(ctx context.Context, ref time.Time) (calendar.DayView, error) {
	day := interval.StartOfDay(ref.In(s.loc))
	appts, slots, err := s.view(ctx, "booking.project_day", day, day.AddDate(0, 0, 1))
	if err != nil {
		return calendar.DayView{}, err
	}
	return s.projector.Day(day, appts, slots), nil
}

// view takes one snapshot and derives slots from it so a projection never mixes store states.
func (s *Service) view(ctx context.Context, name string, from, to time.Time) ([]model.Appointment, []model.AvailableSlot, error) {
	_, span := tracer.Start(ctx, name)
	defer span.End()

	appts := s.store.Snapshot()
	slots, err := s.engine.Generate(appts, s.Travel(), from, to)
	if err != nil {
		return nil, nil, fail(span, err)
	}
	return appts, slots, nil
}

// Travel returns the current travel schedule.
func (s *Service) Travel() *travel.Schedule {
	return s.trips.Load()
}

// SetTravel replaces the travel schedule. Invalid windows leave the current schedule in place.
func (s *Service) SetTravel(windows []model.TravelLocation) error {
	sched, err := travel.NewSchedule(windows)
	if err != nil {
		return err
	}
	s.trips.Store(sched)
	s.logger.Info("travel schedule replaced", "windows", len(windows))
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
