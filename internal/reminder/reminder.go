// Package reminder owns a patient's daily medicine reminders: the
// once-a-day rebuild from active prescriptions, alarm scheduling for
// each dose, and the Taken and Snooze actions.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"vitalrite-api/internal/alarm"
	"vitalrite-api/internal/clock"
	"vitalrite-api/internal/model"
	"vitalrite-api/internal/schedule"
)

var ErrDoseIndex = errors.New("dose index out of range")

type Store interface {
	User(ctx context.Context, uid string) (*model.User, error)
	SetLastReset(ctx context.Context, uid, date string) error
	Reminders(ctx context.Context, uid string) ([]model.Reminder, error)
	Reminder(ctx context.Context, uid, id string) (*model.Reminder, error)
	SaveReminder(ctx context.Context, uid string, r *model.Reminder) error
	DeleteReminder(ctx context.Context, uid, id string) error
	PrescriptionsForUser(ctx context.Context, uid string) ([]model.Prescription, error)
}

type Service struct {
	st    Store
	q     alarm.Queue
	clk   clock.Clock
	loc   *time.Location
	newID func() string
}

func New(st Store, q alarm.Queue, clk clock.Clock, loc *time.Location) *Service {
	return &Service{
		st:    st,
		q:     q,
		clk:   clk,
		loc:   loc,
		newID: func() string { return uuid.New().String() },
	}
}

func (s *Service) now() time.Time { return s.clk.Now().In(s.loc) }

// Today is the current calendar date in the service's zone.
func (s *Service) Today() string { return schedule.Today(s.clk.Now(), s.loc) }

// List returns uid's reminders as stored, without a reset.
func (s *Service) List(ctx context.Context, uid string) ([]model.Reminder, error) {
	return s.st.Reminders(ctx, uid)
}

// Sync brings uid's reminders up to today and makes sure every dose
// still to come has an alarm. Alarm failures do not stop the remaining
// doses; they are joined into the returned error.
func (s *Service) Sync(ctx context.Context, uid string) ([]model.Reminder, error) {
	if _, err := s.EnsureDailyReset(ctx, uid); err != nil {
		return nil, err
	}
	return s.scheduleAll(ctx, uid)
}

// Restore re-registers alarms for every untaken dose of uid, as after a
// restart. It does not rebuild the reminder set.
func (s *Service) Restore(ctx context.Context, uid string) (int, error) {
	rems, err := s.scheduleAll(ctx, uid)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rems {
		for i := range r.Times {
			if !r.IsTaken(i) {
				n++
			}
		}
	}
	return n, nil
}

func (s *Service) scheduleAll(ctx context.Context, uid string) ([]model.Reminder, error) {
	u, err := s.st.User(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", uid, err)
	}
	rems, err := s.st.Reminders(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}

	var errs []error
	for i := range rems {
		for j := range rems[i].Times {
			if _, err := s.ScheduleDose(ctx, u, &rems[i], j); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return rems, errors.Join(errs...)
}

// ScheduleDose queues the alarm for dose i of r. Taken doses and doses
// whose trigger has passed report false and lose any alarm still
// waiting for a later instant, such as one set from an older profile.
func (s *Service) ScheduleDose(ctx context.Context, u *model.User, r *model.Reminder, i int) (bool, error) {
	id := alarm.DoseID(u.UID, r.ID, i)
	if r.IsTaken(i) {
		return false, s.q.Cancel(ctx, id)
	}
	now := s.clk.Now()
	at, ok := schedule.NextTrigger(r, i, u, now, s.loc)
	if !ok {
		return false, s.dropStale(ctx, id, now)
	}
	a := alarm.NewDose(u.UID, u.Email, r.ID, r.MedicineName, r.Times[i], i, at)
	if err := s.q.Schedule(ctx, a); err != nil {
		log.Printf("reminder: schedule %s dose %d: %v", r.ID, i, err)
		return false, err
	}
	return true, nil
}

// dropStale cancels alarm id if it is still waiting for an instant after
// now. An alarm already due is left for the dispatcher.
func (s *Service) dropStale(ctx context.Context, id string, now time.Time) error {
	a, found, err := s.q.Lookup(ctx, id)
	if err != nil || !found || !a.FireAt.After(now) {
		return err
	}
	if err := s.q.Cancel(ctx, id); err != nil {
		log.Printf("reminder: drop stale alarm %s: %v", id, err)
		return err
	}
	return nil
}

// CancelDoses drops the alarm of every dose of r.
func (s *Service) CancelDoses(ctx context.Context, uid string, r *model.Reminder) error {
	var errs []error
	for i := range r.Times {
		if err := s.q.Cancel(ctx, alarm.DoseID(uid, r.ID, i)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) dose(ctx context.Context, uid, reminderID string, i int) (*model.Reminder, error) {
	r, err := s.st.Reminder(ctx, uid, reminderID)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(r.Times) {
		return nil, ErrDoseIndex
	}
	r.Pad(i)
	return r, nil
}

// TakeDose marks dose i taken, clears its snooze and cancels its alarm.
func (s *Service) TakeDose(ctx context.Context, uid, reminderID string, i int) (*model.Reminder, error) {
	r, err := s.dose(ctx, uid, reminderID, i)
	if err != nil {
		return nil, err
	}
	r.Taken[i] = true
	r.SnoozeTimes[i] = nil
	if err := s.st.SaveReminder(ctx, uid, r); err != nil {
		return nil, err
	}
	if err := s.q.Cancel(ctx, alarm.DoseID(uid, r.ID, i)); err != nil {
		log.Printf("reminder: cancel %s dose %d: %v", r.ID, i, err)
		return r, err
	}
	return r, nil
}

// SnoozeDose pushes dose i back from now and reschedules its alarm.
func (s *Service) SnoozeDose(ctx context.Context, uid, reminderID string, i int) (*model.Reminder, error) {
	r, err := s.dose(ctx, uid, reminderID, i)
	if err != nil {
		return nil, err
	}
	until := schedule.SnoozeUntil(r.Times[i], s.now())
	r.SnoozeTimes[i] = &until
	if err := s.st.SaveReminder(ctx, uid, r); err != nil {
		return nil, err
	}

	u, err := s.st.User(ctx, uid)
	if err != nil {
		return r, err
	}
	if _, err := s.ScheduleDose(ctx, u, r, i); err != nil {
		return r, err
	}
	return r, nil
}
