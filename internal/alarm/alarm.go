// Package alarm keeps one-shot timed alarms for medicine doses and
// appointments until they are due, then hands them to a notifier.
package alarm

import (
	"context"
	"fmt"
	"time"
	"unicode/utf16"
)

type Kind string

const (
	KindDose        Kind = "dose"
	KindAppointment Kind = "appointment"
)

// Alarm carries everything needed to render its notification without
// another store read.
type Alarm struct {
	ID     string    `json:"id"`
	Kind   Kind      `json:"kind"`
	UserID string    `json:"userId"`
	Email  string    `json:"email,omitempty"`
	Key    int32     `json:"key"`
	FireAt time.Time `json:"fireAt"`

	ReminderID   string `json:"reminderId,omitempty"`
	MedicineName string `json:"medicineName,omitempty"`
	Label        string `json:"label,omitempty"`
	Index        int    `json:"index,omitempty"`

	AppointmentID string `json:"appointmentId,omitempty"`
	DoctorName    string `json:"doctorName,omitempty"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
}

// Queue stores pending alarms. Schedule replaces any alarm with the
// same ID. Due removes and returns alarms firing at or before now, so
// an alarm is handed out once.
type Queue interface {
	Schedule(ctx context.Context, a Alarm) error
	Cancel(ctx context.Context, id string) error
	Due(ctx context.Context, now time.Time, limit int) ([]Alarm, error)
	// Lookup returns the pending alarm with id, if any.
	Lookup(ctx context.Context, id string) (Alarm, bool, error)
}

// Hash is the 32-bit string hash used by JVM clients
// (s[0]*31^(n-1) + ... + s[n-1] over UTF-16 units, wrapping).
func Hash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}

// Key is the alarm key for dose index of the record identified by id.
// Appointments use index 0.
func Key(id string, index int) int32 {
	return Hash(id) + int32(index)
}

// ID names an alarm uniquely per user.
func ID(kind Kind, userID string, key int32) string {
	return fmt.Sprintf("%s:%s:%d", kind, userID, key)
}

func DoseID(userID, reminderID string, index int) string {
	return ID(KindDose, userID, Key(reminderID, index))
}

func AppointmentID(userID, appointmentID string) string {
	return ID(KindAppointment, userID, Key(appointmentID, 0))
}

// NewDose builds the alarm for dose index of reminderID.
func NewDose(userID, email, reminderID, medicine, label string, index int, at time.Time) Alarm {
	key := Key(reminderID, index)
	return Alarm{
		ID:           ID(KindDose, userID, key),
		Kind:         KindDose,
		UserID:       userID,
		Email:        email,
		Key:          key,
		FireAt:       at,
		ReminderID:   reminderID,
		MedicineName: medicine,
		Label:        label,
		Index:        index,
	}
}

// NewAppointment builds the reminder alarm for an appointment.
func NewAppointment(userID, email, appointmentID, doctor, date, clock string, at time.Time) Alarm {
	key := Key(appointmentID, 0)
	return Alarm{
		ID:            ID(KindAppointment, userID, key),
		Kind:          KindAppointment,
		UserID:        userID,
		Email:         email,
		Key:           key,
		FireAt:        at,
		AppointmentID: appointmentID,
		DoctorName:    doctor,
		Date:          date,
		Time:          clock,
	}
}
