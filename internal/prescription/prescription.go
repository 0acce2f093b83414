// Package prescription issues prescriptions against completed
// appointments and retires them once their course runs out.
package prescription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"vitalrite-api/internal/alarm"
	"vitalrite-api/internal/clock"
	"vitalrite-api/internal/model"
	"vitalrite-api/internal/schedule"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrUnknownLabel  = errors.New("unknown time label")
	ErrNotDoctor     = errors.New("appointment belongs to another doctor")
	ErrCancelled     = errors.New("appointment was cancelled")
)

type Store interface {
	User(ctx context.Context, uid string) (*model.User, error)
	Appointment(ctx context.Context, id string) (*model.Appointment, error)
	SaveAppointment(ctx context.Context, a *model.Appointment) error
	SavePrescription(ctx context.Context, p *model.Prescription) error
	PrescriptionsForUser(ctx context.Context, uid string) ([]model.Prescription, error)
	AddActivePrescription(ctx context.Context, uid, prescriptionID string) error
	RemoveActivePrescriptions(ctx context.Context, uid string, ids []string) error
}

// Reminders is the part of the reminder service a new prescription
// feeds into.
type Reminders interface {
	AddPrescription(ctx context.Context, uid string, p *model.Prescription) ([]model.Reminder, error)
}

type Service struct {
	st    Store
	rem   Reminders
	q     alarm.Queue
	clk   clock.Clock
	loc   *time.Location
	newID func() string
}

func New(st Store, rem Reminders, q alarm.Queue, clk clock.Clock, loc *time.Location) *Service {
	return &Service{
		st:    st,
		rem:   rem,
		q:     q,
		clk:   clk,
		loc:   loc,
		newID: func() string { return uuid.New().String() },
	}
}

func (s *Service) today() string { return schedule.Today(s.clk.Now(), s.loc) }

type Request struct {
	DoctorID      string
	AppointmentID string
	MainCause     string
	Weight        string
	Medicines     []model.Medicine
}

func (r *Request) validate() error {
	if r.DoctorID == "" || r.AppointmentID == "" || strings.TrimSpace(r.MainCause) == "" ||
		strings.TrimSpace(r.Weight) == "" || len(r.Medicines) == 0 {
		return ErrMissingFields
	}
	known := make(map[string]bool)
	for _, l := range schedule.Labels() {
		known[l] = true
	}
	for i, m := range r.Medicines {
		if strings.TrimSpace(m.Name) == "" || len(m.Times()) == 0 {
			return fmt.Errorf("%w: medicine %d", ErrMissingFields, i)
		}
		for _, l := range m.Times() {
			if !known[l] {
				return fmt.Errorf("%w: %q", ErrUnknownLabel, l)
			}
		}
	}
	return nil
}

// Prescribe writes a prescription for the patient of req.AppointmentID,
// starts today's reminders for it and closes the appointment.
func (s *Service) Prescribe(ctx context.Context, req Request) (*model.Prescription, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	appt, err := s.st.Appointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != req.DoctorID {
		return nil, ErrNotDoctor
	}
	if appt.Status == model.StatusCancelled {
		return nil, ErrCancelled
	}

	expiry, err := schedule.ExpiryDate(appt.Date, schedule.MaxDays(req.Medicines))
	if err != nil {
		return nil, fmt.Errorf("appointment %s date: %w", appt.ID, err)
	}
	p := &model.Prescription{
		ID:         s.newID(),
		UserID:     appt.UserID,
		Name:       appt.PatientName,
		DoctorName: appt.DoctorName,
		Date:       appt.Date,
		MainCause:  strings.TrimSpace(req.MainCause),
		Medicines:  req.Medicines,
		Weight:     strings.TrimSpace(req.Weight),
		Age:        appt.Age,
		ExpiryDate: expiry,
		Active:     true,
	}
	if err := s.st.SavePrescription(ctx, p); err != nil {
		return nil, fmt.Errorf("save prescription: %w", err)
	}
	if err := s.st.AddActivePrescription(ctx, p.UserID, p.ID); err != nil {
		return nil, fmt.Errorf("link prescription: %w", err)
	}

	appt.Status = model.StatusCompleted
	if err := s.st.SaveAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}
	if err := s.q.Cancel(ctx, alarm.AppointmentID(appt.UserID, appt.ID)); err != nil {
		log.Printf("prescription: cancel reminder for %s: %v", appt.ID, err)
	}

	if _, err := s.rem.AddPrescription(ctx, p.UserID, p); err != nil {
		log.Printf("prescription: reminders for %s: %v", p.UserID, err)
		return p, err
	}
	return p, nil
}

// ExpireSweep deactivates uid's prescriptions whose expiry is today or
// earlier and drops them from the user's active list. Two sweeps racing
// write the same result.
func (s *Service) ExpireSweep(ctx context.Context, uid string) (int, error) {
	all, err := s.st.PrescriptionsForUser(ctx, uid)
	if err != nil {
		return 0, err
	}
	today := s.today()
	var expired []string
	for i := range all {
		p := &all[i]
		if !p.Active || !schedule.Expired(p, today) {
			continue
		}
		p.Active = false
		if err := s.st.SavePrescription(ctx, p); err != nil {
			return len(expired), fmt.Errorf("expire %s: %w", p.ID, err)
		}
		expired = append(expired, p.ID)
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := s.st.RemoveActivePrescriptions(ctx, uid, expired); err != nil {
		return len(expired), fmt.Errorf("unlink expired: %w", err)
	}
	log.Printf("prescription: expired %d for %s", len(expired), uid)
	return len(expired), nil
}

// List splits uid's prescriptions into active and past, as of today.
func (s *Service) List(ctx context.Context, uid string) (active, past []model.Prescription, err error) {
	all, err := s.st.PrescriptionsForUser(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	today := s.today()
	active, past = []model.Prescription{}, []model.Prescription{}
	for _, p := range all {
		if schedule.IsActive(&p, today) {
			active = append(active, p)
		} else {
			past = append(past, p)
		}
	}
	return active, past, nil
}
