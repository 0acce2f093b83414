package handler_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"vitalrite-api/internal/alarm"
	api "vitalrite-api/internal/api/v1"
	"vitalrite-api/internal/booking"
	"vitalrite-api/internal/clock"
	"vitalrite-api/internal/handler"
	"vitalrite-api/internal/memstore"
	"vitalrite-api/internal/middleware"
	"vitalrite-api/internal/model"
	"vitalrite-api/internal/prescription"
	"vitalrite-api/internal/reminder"
	"vitalrite-api/internal/schedule"
)

const secret = "test-secret"

var now = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type env struct {
	cc *grpc.ClientConn
	st *memstore.Store
	q  *alarm.MemQueue
}

func setupWithLimit(t *testing.T, rl *middleware.RateLimiter) *env {
	t.Helper()
	st := memstore.New()
	q := alarm.NewMemQueue()
	clk := clock.NewFixed(now)
	rem := reminder.New(st, q, clk, time.UTC)
	h := handler.New(handler.Deps{
		Accounts:      st,
		Profiles:      st,
		Watcher:       st,
		Reminders:     rem,
		Booking:       booking.New(st, q, clk, time.UTC),
		Prescriptions: prescription.New(st, rem, q, clk, time.UTC),
		Secret:        secret,
	})

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(middleware.RateLimit(rl), middleware.Auth(secret)),
		grpc.ChainStreamInterceptor(middleware.StreamAuth(secret)),
	)
	api.RegisterCareServer(srv, h)

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { cc.Close() })
	return &env{cc: cc, st: st, q: q}
}

func setup(t *testing.T) *env {
	rl := middleware.NewRateLimiter(100, 100)
	t.Cleanup(rl.Close)
	return setupWithLimit(t, rl)
}

func call[Req, Resp any](e *env, ctx context.Context, method string, in *Req) (*Resp, error) {
	return api.Invoke[Req, Resp](ctx, e.cc, method, in)
}

func authed(tok string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
}

func code(err error) codes.Code { return status.Code(err) }

type account struct {
	id, token, refresh string
}

func register(t *testing.T, e *env, name, role string) account {
	t.Helper()
	email := fmt.Sprintf("test-%s@test.com", uuid.New().String()[:8])
	rr, err := call[api.RegisterRequest, api.RegisterResponse](e, context.Background(), "Register", &api.RegisterRequest{
		Email: email, Password: "testpass123", Name: name, Role: role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return account{id: rr.UserID, token: rr.Token, refresh: rr.RefreshToken}
}

// ----- auth tests -----

func TestRegisterAndLogin(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	_, err := call[api.RegisterRequest, api.RegisterResponse](e, ctx, "Register", &api.RegisterRequest{
		Email: "Doc@Example.com", Password: "testpass123", Name: "Okafor", Role: model.RoleDoctor,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	lr, err := call[api.LoginRequest, api.LoginResponse](e, ctx, "Login", &api.LoginRequest{
		Email: "doc@example.com", Password: "testpass123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if lr.Role != model.RoleDoctor || lr.Name != "Okafor" || lr.Token == "" || lr.RefreshToken == "" {
		t.Errorf("got %+v", lr)
	}

	_, err = call[api.LoginRequest, api.LoginResponse](e, ctx, "Login", &api.LoginRequest{
		Email: "doc@example.com", Password: "wrongpass123",
	})
	if code(err) != codes.Unauthenticated {
		t.Errorf("wrong password: %v", err)
	}
	_, err = call[api.LoginRequest, api.LoginResponse](e, ctx, "Login", &api.LoginRequest{
		Email: "nobody@example.com", Password: "testpass123",
	})
	if code(err) != codes.Unauthenticated {
		t.Errorf("unknown user: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name string
		req  *api.RegisterRequest
	}{
		{"empty email", &api.RegisterRequest{Email: "", Password: "testpass123", Name: "X"}},
		{"bad email", &api.RegisterRequest{Email: "not-an-email", Password: "testpass123", Name: "X"}},
		{"empty password", &api.RegisterRequest{Email: "a@b.com", Password: "", Name: "X"}},
		{"short password", &api.RegisterRequest{Email: "a@b.com", Password: "short", Name: "X"}},
		{"empty name", &api.RegisterRequest{Email: "a@b.com", Password: "testpass123", Name: ""}},
		{"bad role", &api.RegisterRequest{Email: "a@b.com", Password: "testpass123", Name: "X", Role: "Admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call[api.RegisterRequest, api.RegisterResponse](e, context.Background(), "Register", tt.req)
			if code(err) != codes.InvalidArgument {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	e := setup(t)
	req := &api.RegisterRequest{Email: "dup@test.com", Password: "testpass123", Name: "First"}
	if _, err := call[api.RegisterRequest, api.RegisterResponse](e, context.Background(), "Register", req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := call[api.RegisterRequest, api.RegisterResponse](e, context.Background(), "Register", req)
	if code(err) != codes.AlreadyExists {
		t.Errorf("expected AlreadyExists, got %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a := register(t, e, "Ada", "")

	rr, err := call[api.RefreshRequest, api.RefreshResponse](e, ctx, "Refresh", &api.RefreshRequest{RefreshToken: a.refresh})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rr.RefreshToken == a.refresh || rr.Token == "" {
		t.Errorf("token not rotated: %+v", rr)
	}

	// replaying the old token burns the whole family
	_, err = call[api.RefreshRequest, api.RefreshResponse](e, ctx, "Refresh", &api.RefreshRequest{RefreshToken: a.refresh})
	if code(err) != codes.Unauthenticated {
		t.Errorf("reuse: %v", err)
	}
	_, err = call[api.RefreshRequest, api.RefreshResponse](e, ctx, "Refresh", &api.RefreshRequest{RefreshToken: rr.RefreshToken})
	if code(err) != codes.Unauthenticated {
		t.Errorf("descendant after reuse: %v", err)
	}
}

func TestLogoutRevokesRefresh(t *testing.T) {
	e := setup(t)
	a := register(t, e, "Ada", "")
	if _, err := call[api.Empty, api.Empty](e, authed(a.token), "Logout", &api.Empty{}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err := call[api.RefreshRequest, api.RefreshResponse](e, context.Background(), "Refresh", &api.RefreshRequest{RefreshToken: a.refresh})
	if code(err) != codes.Unauthenticated {
		t.Errorf("refresh after logout: %v", err)
	}
}

func TestAuthRequired(t *testing.T) {
	e := setup(t)
	_, err := call[api.Empty, api.ProfileResponse](e, context.Background(), "GetProfile", &api.Empty{})
	if code(err) != codes.Unauthenticated {
		t.Errorf("no token: %v", err)
	}
	_, err = call[api.Empty, api.ProfileResponse](e, authed("garbage"), "GetProfile", &api.Empty{})
	if code(err) != codes.Unauthenticated {
		t.Errorf("bad token: %v", err)
	}
}

func TestRoleGates(t *testing.T) {
	e := setup(t)
	patient := register(t, e, "Ada", model.RoleUser)
	doctor := register(t, e, "Okafor", model.RoleDoctor)

	_, err := call[model.DoctorAvailability, model.DoctorAvailability](e, authed(patient.token), "SetAvailability",
		&model.DoctorAvailability{OpenTiming: "09:00", CloseTiming: "12:00"})
	if code(err) != codes.PermissionDenied {
		t.Errorf("patient SetAvailability: %v", err)
	}
	_, err = call[api.Empty, api.RemindersResponse](e, authed(doctor.token), "ListReminders", &api.Empty{})
	if code(err) != codes.PermissionDenied {
		t.Errorf("doctor ListReminders: %v", err)
	}
}

func TestRateLimit(t *testing.T) {
	rl := middleware.NewRateLimiter(0.001, 2)
	t.Cleanup(rl.Close)
	e := setupWithLimit(t, rl)

	req := &api.LoginRequest{Email: "x@test.com", Password: "testpass123"}
	for i := 0; i < 2; i++ {
		_, err := call[api.LoginRequest, api.LoginResponse](e, context.Background(), "Login", req)
		if code(err) != codes.Unauthenticated {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	_, err := call[api.LoginRequest, api.LoginResponse](e, context.Background(), "Login", req)
	if code(err) != codes.ResourceExhausted {
		t.Errorf("expected ResourceExhausted, got %v", err)
	}
}

// ----- care flow -----

func TestBookPrescribeRemind(t *testing.T) {
	e := setup(t)
	doctor := register(t, e, "Okafor", model.RoleDoctor)
	patient := register(t, e, "Ada", model.RoleUser)
	dctx, pctx := authed(doctor.token), authed(patient.token)

	_, err := call[model.DoctorAvailability, model.DoctorAvailability](e, dctx, "SetAvailability", &model.DoctorAvailability{
		OpenTiming: "09:00", CloseTiming: "12:00", MaxAppointmentsPerHour: 2, Holidays: []string{"2026-10-21"},
	})
	if err != nil {
		t.Fatalf("set availability: %v", err)
	}

	prof, err := call[api.UpdateProfileRequest, api.ProfileResponse](e, pctx, "UpdateProfile", &api.UpdateProfileRequest{
		User: &model.User{Name: "Ada", BreakfastTime: "08:00", LunchTime: "13:00", DinnerTime: "20:00", SleepTime: "22:30"},
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if prof.User.UID != patient.id {
		t.Errorf("profile uid = %s", prof.User.UID)
	}

	found, err := call[api.SearchDoctorsRequest, api.SearchDoctorsResponse](e, pctx, "SearchDoctors", &api.SearchDoctorsRequest{Prefix: "oka"})
	if err != nil || len(found.Doctors) != 1 || found.Doctors[0].UID != doctor.id {
		t.Fatalf("search: %+v, %v", found, err)
	}

	slots, err := call[api.SlotsRequest, api.SlotsResponse](e, pctx, "AvailableSlots", &api.SlotsRequest{DoctorID: doctor.id, Date: "2026-10-20"})
	if err != nil || len(slots.Slots) != 6 {
		t.Fatalf("slots: %+v, %v", slots, err)
	}
	holiday, _ := call[api.SlotsRequest, api.SlotsResponse](e, pctx, "AvailableSlots", &api.SlotsRequest{DoctorID: doctor.id, Date: "2026-10-21"})
	if len(holiday.Slots) != 0 {
		t.Errorf("holiday slots = %v", holiday.Slots)
	}

	book := &api.BookRequest{DoctorID: doctor.id, PatientName: "Ada", Age: "36", Gender: "F", Date: "2026-10-21", Time: "09:00"}
	_, err = call[api.BookRequest, model.Appointment](e, pctx, "BookAppointment", book)
	if code(err) != codes.FailedPrecondition {
		t.Errorf("holiday booking: %v", err)
	}
	book.Date = "2026-10-18"
	_, err = call[api.BookRequest, model.Appointment](e, pctx, "BookAppointment", book)
	if code(err) != codes.InvalidArgument {
		t.Errorf("same-day booking: %v", err)
	}
	book.Date = "2026-10-20"
	appt, err := call[api.BookRequest, model.Appointment](e, pctx, "BookAppointment", book)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appt.DoctorName != "Okafor" || appt.Status != model.StatusScheduled {
		t.Errorf("appointment = %+v", appt)
	}

	list, err := call[api.ListAppointmentsRequest, api.AppointmentsResponse](e, dctx, "ListAppointments", &api.ListAppointmentsRequest{})
	if err != nil || len(list.Appointments) != 1 {
		t.Fatalf("doctor appointments: %+v, %v", list, err)
	}

	rx, err := call[api.PrescribeRequest, model.Prescription](e, dctx, "Prescribe", &api.PrescribeRequest{
		AppointmentID: appt.ID, MainCause: "Fever", Weight: "62",
		Medicines: []model.Medicine{{Name: "Paracetamol", Time: []string{schedule.AfterBreakfast, schedule.AfterDinner}, NoOfDays: "5"}},
	})
	if err != nil {
		t.Fatalf("prescribe: %v", err)
	}
	if rx.ExpiryDate != "2026-10-25" || rx.UserID != patient.id {
		t.Errorf("prescription = %+v", rx)
	}

	rems, err := call[api.Empty, api.RemindersResponse](e, pctx, "ListReminders", &api.Empty{})
	if err != nil {
		t.Fatalf("reminders: %v", err)
	}
	if rems.Date != "2026-10-18" || len(rems.Reminders) != 1 || rems.Reminders[0].MedicineName != "Paracetamol" {
		t.Fatalf("reminders = %+v", rems)
	}
	r := rems.Reminders[0]
	if _, ok := e.q.Get(alarm.DoseID(patient.id, r.ID, 1)); !ok {
		t.Error("dinner alarm missing")
	}

	taken, err := call[api.DoseRequest, model.Reminder](e, pctx, "TakeDose", &api.DoseRequest{ReminderID: r.ID, Index: 1})
	if err != nil || !taken.Taken[1] {
		t.Fatalf("take: %+v, %v", taken, err)
	}
	if _, ok := e.q.Get(alarm.DoseID(patient.id, r.ID, 1)); ok {
		t.Error("taken dose still queued")
	}
	_, err = call[api.DoseRequest, model.Reminder](e, pctx, "TakeDose", &api.DoseRequest{ReminderID: r.ID, Index: 7})
	if code(err) != codes.InvalidArgument {
		t.Errorf("bad index: %v", err)
	}

	past, err := call[api.ListAppointmentsRequest, api.AppointmentsResponse](e, pctx, "ListAppointments", &api.ListAppointmentsRequest{History: true})
	if err != nil || len(past.Appointments) != 1 || past.Appointments[0].Status != model.StatusCompleted {
		t.Errorf("history: %+v, %v", past, err)
	}

	mine, err := call[api.Empty, api.PrescriptionsResponse](e, pctx, "ListPrescriptions", &api.Empty{})
	if err != nil || len(mine.Active) != 1 || len(mine.Past) != 0 {
		t.Errorf("prescriptions: %+v, %v", mine, err)
	}
}

func TestCancelOwnership(t *testing.T) {
	e := setup(t)
	doctor := register(t, e, "Okafor", model.RoleDoctor)
	patient := register(t, e, "Ada", model.RoleUser)
	other := register(t, e, "Grace", model.RoleUser)

	appt, err := call[api.BookRequest, model.Appointment](e, authed(patient.token), "BookAppointment", &api.BookRequest{
		DoctorID: doctor.id, PatientName: "Ada", Age: "36", Date: "2026-10-20", Time: "09:00",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	_, err = call[api.AppointmentRequest, model.Appointment](e, authed(other.token), "CancelAppointment", &api.AppointmentRequest{ID: appt.ID})
	if code(err) != codes.PermissionDenied {
		t.Errorf("stranger cancel: %v", err)
	}
	_, err = call[api.AppointmentRequest, model.Appointment](e, authed(other.token), "CancelAppointment", &api.AppointmentRequest{ID: "missing"})
	if code(err) != codes.NotFound {
		t.Errorf("missing appointment: %v", err)
	}
	got, err := call[api.AppointmentRequest, model.Appointment](e, authed(doctor.token), "CancelAppointment", &api.AppointmentRequest{ID: appt.ID})
	if err != nil || got.Status != model.StatusCancelled {
		t.Errorf("doctor cancel: %+v, %v", got, err)
	}
}

func TestWatchAppointments(t *testing.T) {
	e := setup(t)
	doctor := register(t, e, "Okafor", model.RoleDoctor)
	patient := register(t, e, "Ada", model.RoleUser)

	ctx, cancel := context.WithTimeout(authed(doctor.token), 5*time.Second)
	defer cancel()
	stream, err := api.Watch[api.AppointmentsResponse](ctx, e.cc, "WatchAppointments")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	first, err := stream.Recv()
	if err != nil || len(first.Appointments) != 0 {
		t.Fatalf("initial snapshot: %+v, %v", first, err)
	}

	_, err = call[api.BookRequest, model.Appointment](e, authed(patient.token), "BookAppointment", &api.BookRequest{
		DoctorID: doctor.id, PatientName: "Ada", Age: "36", Date: "2026-10-20", Time: "10:00",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	next, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if len(next.Appointments) != 1 || next.Appointments[0].Time != "10:00" {
		t.Errorf("snapshot = %+v", next)
	}
}
