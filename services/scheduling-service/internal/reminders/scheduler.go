// Package reminders periodically scans appointments for reminders that came due and enqueues them.
package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/outbox"
)

// Source supplies a consistent appointment snapshot; *store.Store satisfies it.
type Source interface {
	Snapshot() []model.Appointment
}

// Enqueuer accepts reminder events; *outbox.Repository satisfies it. inserted is false for
// events whose dedupe key was already seen.
type Enqueuer interface {
	Enqueue(ctx context.Context, evt outbox.Event) (inserted bool, err error)
}

type Config struct {
	Spec string
	Now  func() time.Time
}

type Scheduler struct {
	source Source
	queue  Enqueuer
	logger *slog.Logger
	spec   string
	now    func() time.Time
	cron   *cron.Cron

	mu sync.Mutex
	// sent maps reminder dedupe keys to the appointment start they belong to.
	sent map[string]time.Time
}

func New(source Source, queue Enqueuer, logger *slog.Logger, cfg Config) (*Scheduler, error) {
	if cfg.Spec == "" {
		cfg.Spec = "*/5 * * * *"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if _, err := cron.ParseStandard(cfg.Spec); err != nil {
		return nil, &model.ValidationError{Field: "reminder_cron", Reason: err.Error()}
	}
	return &Scheduler{
		source: source,
		queue:  queue,
		logger: logger,
		spec:   cfg.Spec,
		now:    cfg.Now,
		sent:   map[string]time.Time{},
	}, nil
}

// Start registers the sweep and starts the cron runner; it stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() {
		n, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error("reminder sweep failed", "err", err)
			return
		}
		if n > 0 {
			s.logger.Info("reminders enqueued", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("schedule reminder sweep: %w", err)
	}
	s.cron = c
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// Due returns appointments whose reminder instant has passed while the appointment itself has not
// started yet: RemindAt <= now < When. Terminal and reminder-disabled appointments are skipped.
func Due(appts []model.Appointment, now time.Time) []model.Appointment {
	var out []model.Appointment
	for _, a := range appts {
		if a.Status.Terminal() || !a.When.After(now) {
			continue
		}
		at, ok := a.RemindAt()
		if !ok || at.After(now) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Sweep enqueues every due reminder not already handed off and returns how many were newly
// enqueued. A reminder is marked sent only after its enqueue succeeded, so failures retry on the
// next sweep.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, when := range s.sent {
		if !when.After(now) {
			delete(s.sent, key)
		}
	}

	count := 0
	for _, a := range Due(s.source.Snapshot(), now) {
		at, _ := a.RemindAt()
		key := outbox.ReminderDedupeKey(a.ID, at)
		if _, ok := s.sent[key]; ok {
			continue
		}
		evt, err := outbox.ReminderEvent(a, at)
		if err != nil {
			return count, err
		}
		if s.queue == nil {
			s.logger.Info("reminder due", "appointment_id", a.ID, "remind_at", at, "when", a.When)
			s.sent[key] = a.When
			count++
			continue
		}
		inserted, err := s.queue.Enqueue(ctx, evt)
		if err != nil {
			return count, fmt.Errorf("enqueue reminder for %s: %w", a.ID, err)
		}
		s.sent[key] = a.When
		if inserted {
			count++
		}
	}
	return count, nil
}
