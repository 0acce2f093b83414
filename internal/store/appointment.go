package store

import (
	"context"

	"vitalrite-api/internal/model"
)

func (s *Store) Appointment(ctx context.Context, id string) (*model.Appointment, error) {
	return one[model.Appointment](s.pool.QueryRow(ctx, `SELECT doc FROM appointments WHERE id = $1`, id))
}

// SaveAppointment writes a whole appointment, replacing one with the
// same id.
func (s *Store) SaveAppointment(ctx context.Context, a *model.Appointment) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO appointments (id, user_id, doctor_id, date, time, status, doc)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO UPDATE
		 SET user_id=EXCLUDED.user_id, doctor_id=EXCLUDED.doctor_id, date=EXCLUDED.date,
		     time=EXCLUDED.time, status=EXCLUDED.status, doc=EXCLUDED.doc, updated_at=NOW()`,
		a.ID, a.UserID, a.DoctorID, a.Date, a.Time, a.Status, a,
	)
	return err
}

// AppointmentsFor returns every appointment where uid is the patient or
// the doctor, oldest first.
func (s *Store) AppointmentsFor(ctx context.Context, uid string) ([]model.Appointment, error) {
	return many[model.Appointment](s.pool.Query(ctx,
		`SELECT doc FROM appointments
		 WHERE user_id = $1 OR doctor_id = $1
		 ORDER BY date, time`, uid,
	))
}

// DoctorAppointmentsOn returns the doctor's Scheduled appointments on date.
func (s *Store) DoctorAppointmentsOn(ctx context.Context, doctorID, date string) ([]model.Appointment, error) {
	return many[model.Appointment](s.pool.Query(ctx,
		`SELECT doc FROM appointments
		 WHERE doctor_id = $1 AND date = $2 AND status = $3
		 ORDER BY time`, doctorID, date, model.StatusScheduled,
	))
}
