package reminder

import (
	"context"
	"fmt"
	"log"

	"vitalrite-api/internal/model"
	"vitalrite-api/internal/schedule"
)

// EnsureDailyReset rebuilds uid's reminders from their active
// prescriptions the first time it runs on a new calendar day. It
// reports whether a rebuild happened; on the same day it reads the
// user and writes nothing.
//
// Two callers racing on a new day may both rebuild; the later writes
// win.
func (s *Service) EnsureDailyReset(ctx context.Context, uid string) (bool, error) {
	u, err := s.st.User(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("load user %s: %w", uid, err)
	}
	today := s.Today()
	if u.LastReminderResetDate == today {
		return false, nil
	}

	old, err := s.st.Reminders(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("load reminders: %w", err)
	}
	for i := range old {
		if err := s.CancelDoses(ctx, uid, &old[i]); err != nil {
			log.Printf("reminder: cancel alarms for %s: %v", old[i].ID, err)
		}
		if err := s.st.DeleteReminder(ctx, uid, old[i].ID); err != nil {
			return false, fmt.Errorf("delete reminder %s: %w", old[i].ID, err)
		}
	}

	rx, err := s.st.PrescriptionsForUser(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("load prescriptions: %w", err)
	}
	var active []model.Prescription
	for _, p := range rx {
		if schedule.IsActive(&p, today) {
			active = append(active, p)
		}
	}

	names, labels := groupMedicines(active)
	for _, name := range names {
		r := model.NewReminder(s.newID(), name, labels[name], today)
		if err := s.st.SaveReminder(ctx, uid, &r); err != nil {
			return false, fmt.Errorf("save reminder %s: %w", name, err)
		}
	}

	if err := s.st.SetLastReset(ctx, uid, today); err != nil {
		return false, fmt.Errorf("mark reset: %w", err)
	}
	log.Printf("reminder: reset %s for %s (%d medicines)", uid, today, len(names))
	return true, nil
}

// groupMedicines collects each medicine name once, in the order first
// seen, with the union of its time labels.
func groupMedicines(ps []model.Prescription) ([]string, map[string][]string) {
	var names []string
	labels := make(map[string][]string)
	seen := make(map[string]map[string]bool)

	for _, p := range ps {
		for _, m := range p.Medicines {
			if m.Name == "" {
				continue
			}
			if _, ok := seen[m.Name]; !ok {
				seen[m.Name] = make(map[string]bool)
				names = append(names, m.Name)
			}
			for _, t := range m.Times() {
				if seen[m.Name][t] {
					continue
				}
				seen[m.Name][t] = true
				labels[m.Name] = append(labels[m.Name], t)
			}
		}
	}
	return names, labels
}

// AddPrescription folds p's medicines into uid's reminders for today
// and schedules their doses. Doses already taken today keep their
// state; a first call on a new day rebuilds the whole set instead.
func (s *Service) AddPrescription(ctx context.Context, uid string, p *model.Prescription) ([]model.Reminder, error) {
	reset, err := s.EnsureDailyReset(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !reset && schedule.IsActive(p, s.Today()) {
		if err := s.merge(ctx, uid, p); err != nil {
			return nil, err
		}
	}
	return s.scheduleAll(ctx, uid)
}

func (s *Service) merge(ctx context.Context, uid string, p *model.Prescription) error {
	rems, err := s.st.Reminders(ctx, uid)
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}
	byName := make(map[string]*model.Reminder, len(rems))
	for i := range rems {
		byName[rems[i].MedicineName] = &rems[i]
	}

	names, labels := groupMedicines([]model.Prescription{*p})
	for _, name := range names {
		r, ok := byName[name]
		if !ok {
			nr := model.NewReminder(s.newID(), name, labels[name], s.Today())
			if err := s.st.SaveReminder(ctx, uid, &nr); err != nil {
				return fmt.Errorf("save reminder %s: %w", name, err)
			}
			continue
		}
		changed := false
		for _, l := range labels[name] {
			if !contains(r.Times, l) {
				r.Times = append(r.Times, l)
				changed = true
			}
		}
		if !changed {
			continue
		}
		r.Pad(len(r.Times) - 1)
		if err := s.st.SaveReminder(ctx, uid, r); err != nil {
			return fmt.Errorf("save reminder %s: %w", name, err)
		}
	}
	return nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
