package memstore

import (
	"context"
	"sort"

	"vitalrite-api/internal/model"
	"vitalrite-api/internal/store"
)

func (s *Store) Reminders(_ context.Context, uid string) ([]model.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reminder
	for _, id := range s.reminderOrder[uid] {
		if r, ok := s.reminders[uid][id]; ok {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func (s *Store) Reminder(_ context.Context, uid, id string) (*model.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reminders[uid][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	r = clone(r)
	return &r, nil
}

func (s *Store) SaveReminder(_ context.Context, uid string, r *model.Reminder) error {
	s.mu.Lock()
	if s.reminders[uid] == nil {
		s.reminders[uid] = make(map[string]model.Reminder)
	}
	if _, ok := s.reminders[uid][r.ID]; !ok {
		s.reminderOrder[uid] = append(s.reminderOrder[uid], r.ID)
	}
	s.reminders[uid][r.ID] = clone(*r)
	s.writes++
	s.mu.Unlock()

	s.hub.publish(reminderTopic(uid))
	return nil
}

func (s *Store) DeleteReminder(_ context.Context, uid, id string) error {
	s.mu.Lock()
	delete(s.reminders[uid], id)
	order := s.reminderOrder[uid][:0]
	for _, x := range s.reminderOrder[uid] {
		if x != id {
			order = append(order, x)
		}
	}
	s.reminderOrder[uid] = order
	s.writes++
	s.mu.Unlock()

	s.hub.publish(reminderTopic(uid))
	return nil
}

func (s *Store) Appointment(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) SaveAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	prev, hadPrev := s.appointments[a.ID]
	s.appointments[a.ID] = *a
	s.writes++
	s.mu.Unlock()

	s.hub.publish(appointmentTopic(a.UserID))
	s.hub.publish(appointmentTopic(a.DoctorID))
	if hadPrev && prev.DoctorID != a.DoctorID {
		s.hub.publish(appointmentTopic(prev.DoctorID))
	}
	return nil
}

func (s *Store) AppointmentsFor(_ context.Context, uid string) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Appointment
	for _, a := range s.appointments {
		if a.UserID == uid || a.DoctorID == uid {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (s *Store) DoctorAppointmentsOn(_ context.Context, doctorID, date string) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Appointment
	for _, a := range s.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.Status == model.StatusScheduled {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func sortAppointments(as []model.Appointment) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].Date != as[j].Date {
			return as[i].Date < as[j].Date
		}
		return as[i].Time < as[j].Time
	})
}

func (s *Store) Prescription(_ context.Context, id string) (*model.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prescriptions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = clone(p)
	return &p, nil
}

func (s *Store) SavePrescription(_ context.Context, p *model.Prescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prescriptions[p.ID]; !ok {
		s.rxOrder = append(s.rxOrder, p.ID)
	}
	s.prescriptions[p.ID] = clone(*p)
	s.writes++
	return nil
}

func (s *Store) PrescriptionsForUser(_ context.Context, uid string) ([]model.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Prescription
	for _, id := range s.rxOrder {
		if p := s.prescriptions[id]; p.UserID == uid {
			out = append(out, clone(p))
		}
	}
	return out, nil
}
