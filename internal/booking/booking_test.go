package booking_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"vitalrite-api/internal/alarm"
	"vitalrite-api/internal/booking"
	"vitalrite-api/internal/clock"
	"vitalrite-api/internal/memstore"
	"vitalrite-api/internal/model"
	"vitalrite-api/internal/store"
)

var now = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T, av *model.DoctorAvailability) (*booking.Service, *memstore.Store, *alarm.MemQueue) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	q := alarm.NewMemQueue()
	st.SaveUser(ctx, &model.User{UID: "u1", Name: "Ada", Email: "ada@example.com"})
	st.SaveUser(ctx, &model.User{UID: "u2", Name: "Grace"})
	st.SaveDoctor(ctx, &model.Doctor{UID: "d1", Name: "Okafor", Specialization: "GP"})
	if av != nil {
		st.SaveAvailability(ctx, av)
	}
	return booking.New(st, q, clock.NewFixed(now), time.UTC), st, q
}

func req(uid, date, clock string) booking.BookRequest {
	return booking.BookRequest{
		UserID: uid, DoctorID: "d1", PatientName: "Ada", Age: "36", Gender: "F",
		Date: date, Time: clock,
	}
}

func TestSlotsDefaultsAndHoliday(t *testing.T) {
	svc, _, _ := setup(t, nil)
	ctx := context.Background()

	slots, err := svc.Slots(ctx, "d1", "2026-10-20", "")
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(slots) != 8 || slots[0] != "09:00" || slots[7] != "16:00" {
		t.Errorf("default slots = %v", slots)
	}

	if _, err := svc.Slots(ctx, "d1", "20/10/2026", ""); !errors.Is(err, booking.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}

	svc, _, _ = setup(t, &model.DoctorAvailability{
		DoctorID: "d1", OpenTiming: "09:00", CloseTiming: "12:00",
		MaxAppointmentsPerHour: 2, Holidays: []string{"2026-10-21"},
	})
	slots, _ = svc.Slots(ctx, "d1", "2026-10-21", "")
	if len(slots) != 0 {
		t.Errorf("holiday slots = %v", slots)
	}
	slots, _ = svc.Slots(ctx, "d1", "2026-10-22", "")
	if len(slots) != 6 {
		t.Errorf("slots = %v", slots)
	}
}

func TestBook(t *testing.T) {
	svc, _, q := setup(t, &model.DoctorAvailability{
		DoctorID: "d1", OpenTiming: "09:00", CloseTiming: "17:00", MaxAppointmentsPerHour: 2,
	})
	ctx := context.Background()

	a, err := svc.Book(ctx, req("u1", "2026-10-20", "09:30"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if a.ID == "" || a.Status != model.StatusScheduled || a.DoctorName != "Okafor" {
		t.Errorf("got %+v", a)
	}

	al, ok := q.Get(alarm.AppointmentID("u1", a.ID))
	if !ok {
		t.Fatal("no appointment reminder queued")
	}
	if want := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC); !al.FireAt.Equal(want) {
		t.Errorf("reminder at %v, want %v", al.FireAt, want)
	}
	if al.Email != "ada@example.com" || al.DoctorName != "Okafor" {
		t.Errorf("payload %+v", al)
	}

	slots, _ := svc.Slots(ctx, "d1", "2026-10-20", "")
	for _, s := range slots {
		if s == "09:30" {
			t.Error("booked slot still offered")
		}
	}
}

func TestBookValidation(t *testing.T) {
	svc, _, _ := setup(t, &model.DoctorAvailability{
		DoctorID: "d1", OpenTiming: "09:00", CloseTiming: "17:00",
		MaxAppointmentsPerHour: 2, Holidays: []string{"2026-10-21"},
	})
	ctx := context.Background()

	missing := req("u1", "2026-10-20", "09:00")
	missing.Age = ""

	tests := []struct {
		name string
		req  booking.BookRequest
		want error
	}{
		{"missing age", missing, booking.ErrMissingFields},
		{"bad date", req("u1", "tomorrow", "09:00"), booking.ErrInvalidDate},
		{"today", req("u1", "2026-10-18", "15:00"), booking.ErrPastDate},
		{"past", req("u1", "2026-10-01", "09:00"), booking.ErrPastDate},
		{"holiday", req("u1", "2026-10-21", "09:00"), booking.ErrHoliday},
		{"outside hours", req("u1", "2026-10-20", "18:00"), booking.ErrSlotUnavailable},
		{"off grid", req("u1", "2026-10-20", "09:10"), booking.ErrSlotUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Book(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	unknown := req("u1", "2026-10-20", "09:00")
	unknown.DoctorID = "nobody"
	if _, err := svc.Book(ctx, unknown); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown doctor: %v", err)
	}
}

func TestBookHourCapacity(t *testing.T) {
	svc, _, _ := setup(t, &model.DoctorAvailability{
		DoctorID: "d1", OpenTiming: "09:00", CloseTiming: "17:00", MaxAppointmentsPerHour: 4,
	})
	ctx := context.Background()

	for _, slot := range []string{"09:00", "09:30"} {
		if _, err := svc.Book(ctx, req("u1", "2026-10-20", slot)); err != nil {
			t.Fatalf("book %s: %v", slot, err)
		}
	}
	if _, err := svc.Book(ctx, req("u2", "2026-10-20", "09:00")); !errors.Is(err, booking.ErrSlotUnavailable) {
		t.Errorf("double booking: %v", err)
	}
	if _, err := svc.Book(ctx, req("u2", "2026-10-20", "09:15")); err != nil {
		t.Errorf("09:15 with capacity 4: %v", err)
	}
}

func TestReschedule(t *testing.T) {
	svc, _, q := setup(t, &model.DoctorAvailability{
		DoctorID: "d1", OpenTiming: "09:00", CloseTiming: "12:00", MaxAppointmentsPerHour: 1,
	})
	ctx := context.Background()

	a, err := svc.Book(ctx, req("u1", "2026-10-20", "09:00"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	move := req("u1", "2026-10-22", "10:00")
	move.ID = a.ID
	moved, err := svc.Book(ctx, move)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.ID != a.ID || moved.Date != "2026-10-22" {
		t.Errorf("got %+v", moved)
	}
	if q.Len() != 1 {
		t.Errorf("queued %d reminders", q.Len())
	}

	// its own slot does not block a same-slot reschedule
	same := req("u1", "2026-10-22", "10:00")
	same.ID = a.ID
	if _, err := svc.Book(ctx, same); err != nil {
		t.Errorf("same slot: %v", err)
	}

	steal := req("u2", "2026-10-23", "09:00")
	steal.ID = a.ID
	if _, err := svc.Book(ctx, steal); !errors.Is(err, booking.ErrNotOwner) {
		t.Errorf("foreign reschedule: %v", err)
	}

	slots, _ := svc.Slots(ctx, "d1", "2026-10-20", "")
	if len(slots) != 3 {
		t.Errorf("old day should be free again, got %v", slots)
	}
}

func TestRescheduleOnlyScheduled(t *testing.T) {
	svc, st, _ := setup(t, nil)
	ctx := context.Background()

	for _, status := range []string{model.StatusCancelled, model.StatusCompleted} {
		a, err := svc.Book(ctx, req("u1", "2026-10-20", "09:00"))
		if err != nil {
			t.Fatalf("book: %v", err)
		}
		a.Status = status
		st.SaveAppointment(ctx, a)

		move := req("u1", "2026-10-21", "10:00")
		move.ID = a.ID
		if _, err := svc.Book(ctx, move); !errors.Is(err, booking.ErrNotScheduled) {
			t.Errorf("%s: reschedule err = %v", status, err)
		}
		got, _ := st.Appointment(ctx, a.ID)
		if got.Status != status || got.Date != "2026-10-20" {
			t.Errorf("%s: appointment changed to %+v", status, got)
		}
	}
}

func TestCancel(t *testing.T) {
	svc, _, q := setup(t, nil)
	ctx := context.Background()

	a, err := svc.Book(ctx, req("u1", "2026-10-20", "09:00"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.Cancel(ctx, "u2", a.ID); !errors.Is(err, booking.ErrNotOwner) {
		t.Errorf("stranger cancel: %v", err)
	}
	got, err := svc.Cancel(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Errorf("status = %s", got.Status)
	}
	if q.Len() != 0 {
		t.Error("reminder not cancelled")
	}

	up, _ := svc.Upcoming(ctx, "u1")
	if len(up) != 0 {
		t.Errorf("cancelled appointment listed: %+v", up)
	}
	if _, err := svc.Book(ctx, req("u2", "2026-10-20", "09:00")); err != nil {
		t.Errorf("slot should be free after cancel: %v", err)
	}
}

func TestUpcomingForDoctor(t *testing.T) {
	svc, _, _ := setup(t, nil)
	ctx := context.Background()
	svc.Book(ctx, req("u1", "2026-10-20", "09:00"))
	svc.Book(ctx, req("u2", "2026-10-19", "11:00"))

	up, err := svc.Upcoming(ctx, "d1")
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(up) != 2 || up[0].Date != "2026-10-19" {
		t.Errorf("got %+v", up)
	}
}

func TestReminderSkippedWhenTooClose(t *testing.T) {
	svc, _, q := setup(t, nil)
	// tomorrow 09:00 is less than 24h away from now (10:00 today)
	if _, err := svc.Book(context.Background(), req("u1", "2026-10-19", "09:00")); err != nil {
		t.Fatalf("book: %v", err)
	}
	if q.Len() != 0 {
		t.Error("reminder scheduled in the past")
	}
}

func TestConcurrentBooking(t *testing.T) {
	svc, _, _ := setup(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Book(ctx, req("u1", "2026-10-20", "10:00")); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ok != 1 {
		t.Errorf("expected exactly 1 booking, got %d", ok)
	}
}

func TestSetAvailabilityValidation(t *testing.T) {
	svc, _, _ := setup(t, nil)
	ctx := context.Background()

	bad := []*model.DoctorAvailability{
		{DoctorID: "d1", OpenTiming: "17:00", CloseTiming: "09:00"},
		{DoctorID: "d1", OpenTiming: "nine", CloseTiming: "17:00"},
		{DoctorID: "d1", OpenTiming: "09:00", CloseTiming: "17:00", MaxAppointmentsPerHour: -1},
		{DoctorID: "d1", OpenTiming: "09:00", CloseTiming: "17:00", Holidays: []string{"Christmas"}},
	}
	for _, a := range bad {
		if err := svc.SetAvailability(ctx, a); !errors.Is(err, booking.ErrInvalidAvailability) {
			t.Errorf("%+v: %v", a, err)
		}
	}

	good := &model.DoctorAvailability{DoctorID: "d1", OpenTiming: "8:30", CloseTiming: "12:00", MaxAppointmentsPerHour: 3}
	if err := svc.SetAvailability(ctx, good); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ := svc.Availability(ctx, "d1")
	if got.OpenTiming != "08:30" || got.MaxAppointmentsPerHour != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestSearchDoctors(t *testing.T) {
	svc, st, _ := setup(t, nil)
	ctx := context.Background()
	st.SaveDoctor(ctx, &model.Doctor{UID: "d2", Name: "Okonkwo"})
	st.SaveDoctor(ctx, &model.Doctor{UID: "d3", Name: "Adeyemi"})

	tests := []struct {
		query string
		want  []string
	}{
		{" oK", []string{"Okafor", "Okonkwo"}},
		{"OKO", []string{"Okonkwo"}},
		{"okaf", []string{"Okafor"}},
		{"zz", nil},
	}
	for _, tt := range tests {
		got, err := svc.SearchDoctors(ctx, tt.query)
		if err != nil {
			t.Fatalf("search %q: %v", tt.query, err)
		}
		var names []string
		for _, d := range got {
			names = append(names, d.Name)
		}
		if strings.Join(names, ",") != strings.Join(tt.want, ",") {
			t.Errorf("search %q = %v, want %v", tt.query, names, tt.want)
		}
	}
}
