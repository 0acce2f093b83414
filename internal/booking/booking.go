// Package booking handles doctor availability and appointment booking.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vitalrite-api/internal/alarm"
	"vitalrite-api/internal/clock"
	"vitalrite-api/internal/model"
	"vitalrite-api/internal/schedule"
	"vitalrite-api/internal/store"
)

var (
	ErrMissingFields       = errors.New("missing required fields")
	ErrInvalidDate         = errors.New("invalid date")
	ErrPastDate            = errors.New("appointment date must be in the future")
	ErrHoliday             = errors.New("doctor is not available on this date")
	ErrSlotUnavailable     = errors.New("slot is not available")
	ErrNotOwner            = errors.New("appointment belongs to someone else")
	ErrNotScheduled        = errors.New("only a scheduled appointment can be rescheduled")
	ErrInvalidAvailability = errors.New("invalid availability")
)

// used when a doctor never saved availability
const (
	defaultOpen     = "09:00"
	defaultClose    = "17:00"
	defaultCapacity = 1
)

// ReminderLead is how long before an appointment its reminder fires.
const ReminderLead = 24 * time.Hour

type Store interface {
	User(ctx context.Context, uid string) (*model.User, error)
	Doctor(ctx context.Context, uid string) (*model.Doctor, error)
	SearchDoctors(ctx context.Context, prefix string) ([]model.Doctor, error)
	Availability(ctx context.Context, doctorID string) (*model.DoctorAvailability, error)
	SaveAvailability(ctx context.Context, a *model.DoctorAvailability) error
	Appointment(ctx context.Context, id string) (*model.Appointment, error)
	SaveAppointment(ctx context.Context, a *model.Appointment) error
	AppointmentsFor(ctx context.Context, uid string) ([]model.Appointment, error)
	DoctorAppointmentsOn(ctx context.Context, doctorID, date string) ([]model.Appointment, error)
}

type Service struct {
	st    Store
	q     alarm.Queue
	clk   clock.Clock
	loc   *time.Location
	newID func() string

	// serialises bookings per doctor and day within this process
	locks sync.Map
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

func (s *Service) today() string { return schedule.Today(s.clk.Now(), s.loc) }

func (s *Service) lock(doctorID, date string) func() {
	v, _ := s.locks.LoadOrStore(doctorID+"|"+date, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func validDate(d string) bool {
	_, err := time.Parse(model.DateLayout, d)
	return err == nil
}

// SetAvailability stores a doctor's hours, capacity and holidays.
func (s *Service) SetAvailability(ctx context.Context, a *model.DoctorAvailability) error {
	openAt, ok1 := schedule.ParseClock(a.OpenTiming)
	closeAt, ok2 := schedule.ParseClock(a.CloseTiming)
	if !ok1 || !ok2 || openAt >= closeAt {
		return fmt.Errorf("%w: open must be before close (HH:mm)", ErrInvalidAvailability)
	}
	if a.MaxAppointmentsPerHour < 0 {
		return fmt.Errorf("%w: negative capacity", ErrInvalidAvailability)
	}
	for _, h := range a.Holidays {
		if !validDate(h) {
			return fmt.Errorf("%w: holiday %q", ErrInvalidAvailability, h)
		}
	}
	a.OpenTiming = schedule.FormatClock(openAt)
	a.CloseTiming = schedule.FormatClock(closeAt)
	return s.st.SaveAvailability(ctx, a)
}

// Availability returns the doctor's saved availability, or the default
// 09:00-17:00 at one booking an hour.
func (s *Service) Availability(ctx context.Context, doctorID string) (*model.DoctorAvailability, error) {
	a, err := s.st.Availability(ctx, doctorID)
	if errors.Is(err, store.ErrNotFound) {
		return &model.DoctorAvailability{
			DoctorID:               doctorID,
			OpenTiming:             defaultOpen,
			CloseTiming:            defaultClose,
			MaxAppointmentsPerHour: defaultCapacity,
			Holidays:               []string{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if a.OpenTiming == "" {
		a.OpenTiming = defaultOpen
	}
	if a.CloseTiming == "" {
		a.CloseTiming = defaultClose
	}
	return a, nil
}

// Slots lists the free slots of doctorID on date. A holiday has none.
// exclude names an appointment whose own slot should count as free,
// for rescheduling.
func (s *Service) Slots(ctx context.Context, doctorID, date, exclude string) ([]string, error) {
	if !validDate(date) {
		return nil, ErrInvalidDate
	}
	av, err := s.Availability(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if av.IsHoliday(date) {
		return []string{}, nil
	}
	booked, err := s.booked(ctx, doctorID, date, exclude)
	if err != nil {
		return nil, err
	}
	all := schedule.GenerateSlots(av.OpenTiming, av.CloseTiming, av.MaxAppointmentsPerHour)
	return schedule.FilterSlots(all, booked, av.MaxAppointmentsPerHour), nil
}

func (s *Service) booked(ctx context.Context, doctorID, date, exclude string) ([]string, error) {
	appts, err := s.st.DoctorAppointmentsOn(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, a := range appts {
		if a.ID != exclude {
			out = append(out, a.Time)
		}
	}
	return out, nil
}

// SearchDoctors matches a case-insensitive name prefix.
func (s *Service) SearchDoctors(ctx context.Context, prefix string) ([]model.Doctor, error) {
	return s.st.SearchDoctors(ctx, strings.TrimSpace(prefix))
}

// Upcoming lists uid's Scheduled appointments from today on, as patient
// or as doctor.
func (s *Service) Upcoming(ctx context.Context, uid string) ([]model.Appointment, error) {
	all, err := s.st.AppointmentsFor(ctx, uid)
	if err != nil {
		return nil, err
	}
	today := s.today()
	out := []model.Appointment{}
	for _, a := range all {
		if a.Status == model.StatusScheduled && a.Date >= today {
			out = append(out, a)
		}
	}
	return out, nil
}

// History lists every appointment of uid regardless of status.
func (s *Service) History(ctx context.Context, uid string) ([]model.Appointment, error) {
	return s.st.AppointmentsFor(ctx, uid)
}

func (s *Service) email(ctx context.Context, uid string) string {
	u, err := s.st.User(ctx, uid)
	if err != nil {
		return ""
	}
	return u.Email
}

// scheduleReminder queues the alarm ReminderLead before a. It is a
// no-op when that instant has already passed.
func (s *Service) scheduleReminder(ctx context.Context, a *model.Appointment, email string) (bool, error) {
	start, err := a.StartsAt(s.loc)
	if err != nil {
		return false, nil
	}
	at := start.Add(-ReminderLead)
	if !at.After(s.clk.Now()) {
		return false, nil
	}
	al := alarm.NewAppointment(a.UserID, email, a.ID, a.DoctorName, a.Date, a.Time, at)
	if err := s.q.Schedule(ctx, al); err != nil {
		log.Printf("booking: schedule reminder for %s: %v", a.ID, err)
		return false, err
	}
	return true, nil
}

// Restore re-queues reminders for uid's Scheduled appointments as a
// patient.
func (s *Service) Restore(ctx context.Context, uid string) (int, error) {
	all, err := s.st.AppointmentsFor(ctx, uid)
	if err != nil {
		return 0, err
	}
	email := s.email(ctx, uid)
	n := 0
	var errs []error
	for i := range all {
		a := &all[i]
		if a.UserID != uid || a.Status != model.StatusScheduled {
			continue
		}
		ok, err := s.scheduleReminder(ctx, a, email)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			n++
		}
	}
	return n, errors.Join(errs...)
}
