package model

import "time"

// Roles carried in access tokens and returned by Login.
const (
	RoleUser   = "User"
	RoleDoctor = "Doctor"
)

// Appointment statuses. Only Scheduled appointments hold a slot.
const (
	StatusScheduled = "Scheduled"
	StatusCancelled = "Cancelled"
	StatusCompleted = "Completed"
)

// DateLayout and ClockLayout are the string formats every stored date
// and clock time uses.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Account is the login record. It lives next to, not inside, the
// User/Doctor documents.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}

// User is a patient together with the meal/sleep anchors reminders are
// resolved against.
type User struct {
	UID                   string   `json:"uid" firestore:"uid"`
	Name                  string   `json:"name" firestore:"name"`
	Age                   string   `json:"age" firestore:"age"`
	Gender                string   `json:"gender" firestore:"gender"`
	Email                 string   `json:"email" firestore:"email"`
	BreakfastTime         string   `json:"breakfastTime" firestore:"breakfastTime"`
	LunchTime             string   `json:"lunchTime" firestore:"lunchTime"`
	DinnerTime            string   `json:"dinnerTime" firestore:"dinnerTime"`
	SleepTime             string   `json:"sleepTime" firestore:"sleepTime"`
	BloodGroup            string   `json:"bloodGroup" firestore:"bloodGroup"`
	MedicalCondition      string   `json:"medicalCondition" firestore:"medicalCondition"`
	Operation             string   `json:"operation" firestore:"operation"`
	Allergy               string   `json:"allergy" firestore:"allergy"`
	EmergencyContact      string   `json:"emergencyContact" firestore:"emergencyContact"`
	Address               string   `json:"address" firestore:"address"`
	ActivePrescriptions   []string `json:"activePrescriptions" firestore:"activePrescriptions"`
	LastReminderResetDate string   `json:"lastReminderResetDate" firestore:"lastReminderResetDate"`
}

type Doctor struct {
	UID             string `json:"uid" firestore:"uid"`
	Name            string `json:"name" firestore:"name"`
	NameLowercase   string `json:"nameLowercase" firestore:"nameLowercase"`
	Age             string `json:"age" firestore:"age"`
	Gender          string `json:"gender" firestore:"gender"`
	Email           string `json:"email" firestore:"email"`
	Degree          string `json:"degree" firestore:"degree"`
	Specialization  string `json:"specialization" firestore:"specialization"`
	Experience      string `json:"experience" firestore:"experience"`
	ClinicName      string `json:"clinicName" firestore:"clinicName"`
	ClinicAddress   string `json:"clinicAddress" firestore:"clinicAddress"`
	ClinicPhone     string `json:"clinicPhone" firestore:"clinicPhone"`
	HospitalName    string `json:"hospitalName" firestore:"hospitalName"`
	HospitalAddress string `json:"hospitalAddress" firestore:"hospitalAddress"`
	HospitalPhone   string `json:"hospitalPhone" firestore:"hospitalPhone"`
}

type DoctorAvailability struct {
	DoctorID               string   `json:"doctorId" firestore:"doctorId"`
	OpenTiming             string   `json:"openTiming" firestore:"openTiming"`
	CloseTiming            string   `json:"closeTiming" firestore:"closeTiming"`
	MaxAppointmentsPerHour int      `json:"maxAppointmentsPerHour" firestore:"maxAppointmentsPerHour"`
	Holidays               []string `json:"holidays" firestore:"holidays"`
}

// IsHoliday reports whether date (yyyy-MM-dd) is one of the doctor's
// days off.
func (a *DoctorAvailability) IsHoliday(date string) bool {
	for _, h := range a.Holidays {
		if h == date {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID          string `json:"id" firestore:"id"`
	UserID      string `json:"userId" firestore:"userId"`
	DoctorID    string `json:"doctorId" firestore:"doctorId"`
	PatientName string `json:"patientName" firestore:"patientName"`
	DoctorName  string `json:"doctorName" firestore:"doctorName"`
	Date        string `json:"date" firestore:"date"`
	Time        string `json:"time" firestore:"time"`
	Age         string `json:"age" firestore:"age"`
	Gender      string `json:"gender" firestore:"gender"`
	Status      string `json:"status" firestore:"status"`
}

// StartsAt is the appointment instant in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+ClockLayout, a.Date+" "+a.Time, loc)
}

type Prescription struct {
	ID         string     `json:"id" firestore:"id"`
	UserID     string     `json:"userId" firestore:"userId"`
	Name       string     `json:"name" firestore:"name"`
	DoctorName string     `json:"doctorName" firestore:"doctorName"`
	Date       string     `json:"date" firestore:"date"`
	MainCause  string     `json:"mainCause" firestore:"mainCause"`
	Medicines  []Medicine `json:"medicines" firestore:"medicines"`
	Weight     string     `json:"weight" firestore:"weight"`
	Age        string     `json:"age" firestore:"age"`
	ExpiryDate string     `json:"expiryDate" firestore:"expiryDate"`
	Active     bool       `json:"active" firestore:"active"`
}

// Medicine.Time is stored either as a single label or as a list of
// labels; read it through Times.
type Medicine struct {
	Name      string `json:"name" firestore:"name"`
	Diagnosis string `json:"diagnosis" firestore:"diagnosis"`
	Time      any    `json:"time" firestore:"time"`
	NoOfDays  string `json:"noOfDays" firestore:"noOfDays"`
}

func (m Medicine) Times() []string {
	switch v := m.Time.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Reminder is one medicine's doses for a single day. Times, Taken and
// SnoozeTimes are parallel: index i in each describes the same dose.
type Reminder struct {
	ID           string    `json:"id" firestore:"id"`
	MedicineName string    `json:"medicineName" firestore:"medicineName"`
	Times        []string  `json:"times" firestore:"times"`
	Taken        []bool    `json:"taken" firestore:"taken"`
	SnoozeTimes  []*string `json:"snoozeTimes" firestore:"snoozeTimes"`
	Date         string    `json:"date" firestore:"date"`
}

// NewReminder builds a fresh reminder with every dose untaken and no
// snooze.
func NewReminder(id, medicine string, times []string, date string) Reminder {
	return Reminder{
		ID:           id,
		MedicineName: medicine,
		Times:        times,
		Taken:        make([]bool, len(times)),
		SnoozeTimes:  make([]*string, len(times)),
		Date:         date,
	}
}

// IsTaken reports taken[i], treating a short list as not taken.
func (r *Reminder) IsTaken(i int) bool {
	return i >= 0 && i < len(r.Taken) && r.Taken[i]
}

// Snooze returns the override at i, if any.
func (r *Reminder) Snooze(i int) *string {
	if i < 0 || i >= len(r.SnoozeTimes) {
		return nil
	}
	return r.SnoozeTimes[i]
}

// Pad grows Taken and SnoozeTimes so index i is addressable.
func (r *Reminder) Pad(i int) {
	for len(r.Taken) <= i {
		r.Taken = append(r.Taken, false)
	}
	for len(r.SnoozeTimes) <= i {
		r.SnoozeTimes = append(r.SnoozeTimes, nil)
	}
}
