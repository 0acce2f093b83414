// Package jobs runs the periodic work of the server on a cron
// scheduler: draining due alarms, the nightly reminder reset with the
// prescription expiry sweep, and the alarm restore at startup.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"vitalrite-api/internal/booking"
	"vitalrite-api/internal/prescription"
	"vitalrite-api/internal/reminder"
)

// NightlySpec fires a few minutes after local midnight.
const NightlySpec = "5 0 * * *"

type Users interface {
	UserIDs(ctx context.Context) ([]string, error)
}

type Dispatcher interface {
	Tick(ctx context.Context) (int, error)
}

type Jobs struct {
	c     *cron.Cron
	users Users
	disp  Dispatcher
	rem   *reminder.Service
	book  *booking.Service
	rx    *prescription.Service

	ctx    context.Context
	cancel context.CancelFunc
}

func New(users Users, disp Dispatcher, rem *reminder.Service, book *booking.Service, rx *prescription.Service, loc *time.Location) *Jobs {
	ctx, cancel := context.WithCancel(context.Background())
	return &Jobs{
		c:      cron.New(cron.WithLocation(loc)),
		users:  users,
		disp:   disp,
		rem:    rem,
		book:   book,
		rx:     rx,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the dispatcher every dispatchEvery and the nightly
// reset, then starts the scheduler.
func (j *Jobs) Start(dispatchEvery time.Duration) error {
	if _, err := j.c.AddFunc("@every "+dispatchEvery.String(), func() { j.Dispatch(j.ctx) }); err != nil {
		return fmt.Errorf("add dispatch job: %w", err)
	}
	_, err := j.c.AddFunc(NightlySpec, func() {
		if _, err := j.Nightly(j.ctx); err != nil {
			log.Printf("jobs: nightly: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("add nightly job: %w", err)
	}
	j.c.Start()
	log.Printf("jobs: started (dispatch every %s, nightly %q)", dispatchEvery, NightlySpec)
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (j *Jobs) Stop() {
	j.cancel()
	<-j.c.Stop().Done()
}

func (j *Jobs) Dispatch(ctx context.Context) {
	n, err := j.disp.Tick(ctx)
	if err != nil {
		log.Printf("jobs: dispatch: %v", err)
	}
	if n > 0 {
		log.Printf("jobs: fired %d alarms", n)
	}
}

// Nightly expires finished prescriptions and rebuilds every patient's
// reminders for the new day. One patient's failure does not stop the
// rest; it reports how many patients went through cleanly.
func (j *Jobs) Nightly(ctx context.Context) (int, error) {
	return j.each(ctx, "nightly", func(ctx context.Context, uid string) error {
		if _, err := j.rx.ExpireSweep(ctx, uid); err != nil {
			return fmt.Errorf("expire: %w", err)
		}
		if _, err := j.rem.Sync(ctx, uid); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		return nil
	})
}

// RestoreAll re-queues dose and appointment alarms for every patient,
// for a queue that lost its contents.
func (j *Jobs) RestoreAll(ctx context.Context) (int, error) {
	doses, appts := 0, 0
	n, err := j.each(ctx, "restore", func(ctx context.Context, uid string) error {
		d, err1 := j.rem.Restore(ctx, uid)
		a, err2 := j.book.Restore(ctx, uid)
		doses += d
		appts += a
		return errors.Join(err1, err2)
	})
	log.Printf("jobs: restored %d dose and %d appointment alarms for %d patients", doses, appts, n)
	return n, err
}

func (j *Jobs) each(ctx context.Context, name string, fn func(context.Context, string) error) (int, error) {
	uids, err := j.users.UserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	ok := 0
	var errs []error
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return ok, err
		}
		if err := fn(ctx, uid); err != nil {
			log.Printf("jobs: %s %s: %v", name, uid, err)
			errs = append(errs, fmt.Errorf("%s: %w", uid, err))
			continue
		}
		ok++
	}
	return ok, errors.Join(errs...)
}
