package docstore

import (
	"context"
	"log"
	"sort"
	"sync"

	"cloud.google.com/go/firestore"

	"vitalrite-api/internal/model"
)

func (s *Store) Reminders(ctx context.Context, uid string) ([]model.Reminder, error) {
	return all[model.Reminder](ctx, s.reminders(uid).Query)
}

func (s *Store) Reminder(ctx context.Context, uid, id string) (*model.Reminder, error) {
	return get[model.Reminder](ctx, s.reminders(uid).Doc(id))
}

func (s *Store) SaveReminder(ctx context.Context, uid string, r *model.Reminder) error {
	_, err := s.reminders(uid).Doc(r.ID).Set(ctx, r)
	return err
}

func (s *Store) DeleteReminder(ctx context.Context, uid, id string) error {
	_, err := s.reminders(uid).Doc(id).Delete(ctx)
	return mapErr(err)
}

func (s *Store) Appointment(ctx context.Context, id string) (*model.Appointment, error) {
	return get[model.Appointment](ctx, s.fs.Collection(colAppointments).Doc(id))
}

func (s *Store) SaveAppointment(ctx context.Context, a *model.Appointment) error {
	_, err := s.fs.Collection(colAppointments).Doc(a.ID).Set(ctx, a)
	return err
}

// AppointmentsFor merges the patient-side and doctor-side queries.
func (s *Store) AppointmentsFor(ctx context.Context, uid string) ([]model.Appointment, error) {
	col := s.fs.Collection(colAppointments)
	mine, err := all[model.Appointment](ctx, col.Where("userId", "==", uid))
	if err != nil {
		return nil, err
	}
	theirs, err := all[model.Appointment](ctx, col.Where("doctorId", "==", uid))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(mine))
	for _, a := range mine {
		seen[a.ID] = true
	}
	for _, a := range theirs {
		if !seen[a.ID] {
			mine = append(mine, a)
		}
	}
	sort.Slice(mine, func(i, j int) bool {
		if mine[i].Date != mine[j].Date {
			return mine[i].Date < mine[j].Date
		}
		return mine[i].Time < mine[j].Time
	})
	return mine, nil
}

func (s *Store) DoctorAppointmentsOn(ctx context.Context, doctorID, date string) ([]model.Appointment, error) {
	q := s.fs.Collection(colAppointments).
		Where("doctorId", "==", doctorID).
		Where("date", "==", date).
		Where("status", "==", model.StatusScheduled)
	return all[model.Appointment](ctx, q)
}

func (s *Store) Prescription(ctx context.Context, id string) (*model.Prescription, error) {
	return get[model.Prescription](ctx, s.fs.Collection(colPrescriptions).Doc(id))
}

func (s *Store) SavePrescription(ctx context.Context, p *model.Prescription) error {
	_, err := s.fs.Collection(colPrescriptions).Doc(p.ID).Set(ctx, p)
	return err
}

func (s *Store) PrescriptionsForUser(ctx context.Context, uid string) ([]model.Prescription, error) {
	return all[model.Prescription](ctx, s.fs.Collection(colPrescriptions).Where("userId", "==", uid))
}

// ---- watch

func (s *Store) WatchReminders(ctx context.Context, uid string) (<-chan struct{}, error) {
	return watch(ctx, s.reminders(uid).Query), nil
}

func (s *Store) WatchAppointments(ctx context.Context, uid string) (<-chan struct{}, error) {
	col := s.fs.Collection(colAppointments)
	return watch(ctx, col.Where("userId", "==", uid), col.Where("doctorId", "==", uid)), nil
}

// watch merges the change signals of qs. The channel closes once every
// listener has stopped.
func watch(ctx context.Context, qs ...firestore.Query) <-chan struct{} {
	out := make(chan struct{}, 1)
	var wg sync.WaitGroup
	for _, q := range qs {
		wg.Add(1)
		go func(q firestore.Query) {
			defer wg.Done()
			follow(ctx, q, out)
		}(q)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// follow signals out on every snapshot after the initial one.
func follow(ctx context.Context, q firestore.Query, out chan<- struct{}) {
	it := q.Snapshots(ctx)
	defer it.Stop()

	first := true
	for {
		if _, err := it.Next(); err != nil {
			if ctx.Err() == nil {
				log.Printf("docstore: snapshot: %v", err)
			}
			return
		}
		if first {
			first = false
			continue
		}
		select {
		case out <- struct{}{}:
		default:
		}
	}
}
