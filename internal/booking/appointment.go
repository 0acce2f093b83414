package booking

import (
	"context"
	"log"
	"strings"

	"vitalrite-api/internal/alarm"
	"vitalrite-api/internal/model"
	"vitalrite-api/internal/schedule"
)

type BookRequest struct {
	// ID reschedules an existing appointment when set.
	ID          string
	UserID      string
	DoctorID    string
	PatientName string
	Age         string
	Gender      string
	Date        string
	Time        string
}

// Book creates an appointment, or moves the one named by req.ID, and
// queues its reminder.
func (s *Service) Book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.Age = strings.TrimSpace(req.Age)
	if req.UserID == "" || req.DoctorID == "" || req.PatientName == "" || req.Age == "" || req.Date == "" || req.Time == "" {
		return nil, ErrMissingFields
	}
	if !validDate(req.Date) {
		return nil, ErrInvalidDate
	}
	if !schedule.IsFutureDate(req.Date, s.today()) {
		return nil, ErrPastDate
	}

	if req.ID != "" {
		prev, err := s.st.Appointment(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if prev.UserID != req.UserID {
			return nil, ErrNotOwner
		}
		if prev.Status != model.StatusScheduled {
			return nil, ErrNotScheduled
		}
	}

	doc, err := s.st.Doctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	av, err := s.Availability(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if av.IsHoliday(req.Date) {
		return nil, ErrHoliday
	}

	unlock := s.lock(req.DoctorID, req.Date)
	defer unlock()

	booked, err := s.booked(ctx, req.DoctorID, req.Date, req.ID)
	if err != nil {
		return nil, err
	}
	offered := false
	for _, slot := range schedule.GenerateSlots(av.OpenTiming, av.CloseTiming, av.MaxAppointmentsPerHour) {
		if slot == req.Time {
			offered = true
			break
		}
	}
	if !offered || !schedule.Available(req.Time, booked, av.MaxAppointmentsPerHour) {
		return nil, ErrSlotUnavailable
	}

	a := &model.Appointment{
		ID:          req.ID,
		UserID:      req.UserID,
		DoctorID:    req.DoctorID,
		PatientName: req.PatientName,
		DoctorName:  doc.Name,
		Date:        req.Date,
		Time:        req.Time,
		Age:         req.Age,
		Gender:      req.Gender,
		Status:      model.StatusScheduled,
	}
	if a.ID == "" {
		a.ID = s.newID()
	} else if err := s.q.Cancel(ctx, alarm.AppointmentID(a.UserID, a.ID)); err != nil {
		log.Printf("booking: cancel old reminder for %s: %v", a.ID, err)
	}

	if err := s.st.SaveAppointment(ctx, a); err != nil {
		return nil, err
	}
	if _, err := s.scheduleReminder(ctx, a, s.email(ctx, a.UserID)); err != nil {
		return a, err
	}
	return a, nil
}

// Cancel marks an appointment Cancelled on behalf of its patient or
// doctor and drops its reminder.
func (s *Service) Cancel(ctx context.Context, uid, id string) (*model.Appointment, error) {
	a, err := s.st.Appointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != uid && a.DoctorID != uid {
		return nil, ErrNotOwner
	}
	a.Status = model.StatusCancelled
	if err := s.st.SaveAppointment(ctx, a); err != nil {
		return nil, err
	}
	if err := s.q.Cancel(ctx, alarm.AppointmentID(a.UserID, a.ID)); err != nil {
		log.Printf("booking: cancel reminder for %s: %v", a.ID, err)
		return a, err
	}
	return a, nil
}
