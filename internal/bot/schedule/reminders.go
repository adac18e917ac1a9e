// Package schedule runs recurring jobs, currently the day-before
// confirmation reminder.
package schedule

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/louisbranch/gather.space/internal/admin"
	"github.com/louisbranch/gather.space/internal/event"
)

// ReminderWindow is how far ahead the reminder job looks.
const ReminderWindow = 24 * time.Hour

// Reminder sends confirmation reminders for events starting soon.
type Reminder struct {
	engine *event.Service
	admin  *admin.Service
	logger *log.Logger
	clock  func() time.Time
}

// NewReminder creates the reminder job.
func NewReminder(engine *event.Service, adminSvc *admin.Service, logger *log.Logger) *Reminder {
	if logger == nil {
		logger = log.Default()
	}
	return &Reminder{engine: engine, admin: adminSvc, logger: logger, clock: time.Now}
}

// WithClock overrides the job clock. Intended for tests.
func (r *Reminder) WithClock(clock func() time.Time) *Reminder {
	r.clock = clock
	return r
}

// Start schedules the job with the given cron spec and runs it until the
// context is cancelled.
func (r *Reminder) Start(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := r.RunOnce(ctx); err != nil {
			r.logger.Printf("reminder job: %v", err)
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// RunOnce sends reminders for every event starting within the window.
// Reminders go to registrants who have not confirmed; the engine treats a
// repeat reminder as a cheap no-op when everyone already confirmed.
func (r *Reminder) RunOnce(ctx context.Context) error {
	now := r.clock()
	events, err := r.engine.ListActive(ctx, now)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.StartsAt.After(now.Add(ReminderWindow)) {
			continue
		}
		sent, err := r.admin.RemindUnconfirmed(ctx, 0, ev.ID)
		if err != nil {
			r.logger.Printf("remind for event %s: %v", ev.ID, err)
			continue
		}
		if sent > 0 {
			r.logger.Printf("reminded %d registrant(s) for event %s", sent, ev.ID)
		}
	}
	return nil
}
