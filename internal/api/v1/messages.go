package api

import "vitalrite-api/internal/model"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	// Role is "User" or "Doctor"; empty means "User".
	Role string `json:"role"`
}

type RegisterResponse struct {
	UserID       string `json:"userId"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	UserID       string `json:"userId"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
	Name         string `json:"name"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type Empty struct{}

type ProfileResponse struct {
	Role   string        `json:"role"`
	User   *model.User   `json:"user,omitempty"`
	Doctor *model.Doctor `json:"doctor,omitempty"`
}

// UpdateProfileRequest replaces the caller's profile. Only the document
// matching the caller's role is read; uid is taken from the token.
type UpdateProfileRequest struct {
	User   *model.User   `json:"user,omitempty"`
	Doctor *model.Doctor `json:"doctor,omitempty"`
}

type AvailabilityRequest struct {
	DoctorID string `json:"doctorId"`
}

type SearchDoctorsRequest struct {
	Prefix string `json:"prefix"`
}

type SearchDoctorsResponse struct {
	Doctors []model.Doctor `json:"doctors"`
}

type SlotsRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	// AppointmentID frees that appointment's own slot when rescheduling.
	AppointmentID string `json:"appointmentId,omitempty"`
}

type SlotsResponse struct {
	Slots []string `json:"slots"`
}

type BookRequest struct {
	AppointmentID string `json:"appointmentId,omitempty"`
	DoctorID      string `json:"doctorId"`
	PatientName   string `json:"patientName"`
	Age           string `json:"age"`
	Gender        string `json:"gender"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

type AppointmentRequest struct {
	ID string `json:"id"`
}

type ListAppointmentsRequest struct {
	// History includes cancelled, completed and past appointments.
	History bool `json:"history"`
}

type AppointmentsResponse struct {
	Appointments []model.Appointment `json:"appointments"`
}

type PrescribeRequest struct {
	AppointmentID string           `json:"appointmentId"`
	MainCause     string           `json:"mainCause"`
	Weight        string           `json:"weight"`
	Medicines     []model.Medicine `json:"medicines"`
}

type PrescriptionsResponse struct {
	Active []model.Prescription `json:"active"`
	Past   []model.Prescription `json:"past"`
}

type RemindersResponse struct {
	Date      string           `json:"date"`
	Reminders []model.Reminder `json:"reminders"`
}

type DoseRequest struct {
	ReminderID string `json:"reminderId"`
	Index      int    `json:"index"`
}
