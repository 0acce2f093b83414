package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "vitalrite-api/internal/api/v1"
	"vitalrite-api/internal/booking"
	"vitalrite-api/internal/model"
)

func (h *Handler) SetAvailability(ctx context.Context, req *model.DoctorAvailability) (*model.DoctorAvailability, error) {
	// a doctor only edits their own hours
	req.DoctorID = uid(ctx)
	if err := h.book.SetAvailability(ctx, req); err != nil {
		return nil, toStatus("set availability", err)
	}
	return req, nil
}

func (h *Handler) GetAvailability(ctx context.Context, req *api.AvailabilityRequest) (*model.DoctorAvailability, error) {
	id := req.DoctorID
	if id == "" {
		id = uid(ctx)
	}
	av, err := h.book.Availability(ctx, id)
	if err != nil {
		return nil, toStatus("get availability", err)
	}
	return av, nil
}

func (h *Handler) SearchDoctors(ctx context.Context, req *api.SearchDoctorsRequest) (*api.SearchDoctorsResponse, error) {
	docs, err := h.book.SearchDoctors(ctx, req.Prefix)
	if err != nil {
		return nil, toStatus("search doctors", err)
	}
	if docs == nil {
		docs = []model.Doctor{}
	}
	return &api.SearchDoctorsResponse{Doctors: docs}, nil
}

func (h *Handler) AvailableSlots(ctx context.Context, req *api.SlotsRequest) (*api.SlotsResponse, error) {
	if req.DoctorID == "" || req.Date == "" {
		return nil, status.Error(codes.InvalidArgument, "doctorId and date required")
	}
	slots, err := h.book.Slots(ctx, req.DoctorID, req.Date, req.AppointmentID)
	if err != nil {
		return nil, toStatus("slots", err)
	}
	if slots == nil {
		slots = []string{}
	}
	return &api.SlotsResponse{Slots: slots}, nil
}

func (h *Handler) BookAppointment(ctx context.Context, req *api.BookRequest) (*model.Appointment, error) {
	a, err := h.book.Book(ctx, booking.BookRequest{
		ID:          req.AppointmentID,
		UserID:      uid(ctx),
		DoctorID:    req.DoctorID,
		PatientName: req.PatientName,
		Age:         req.Age,
		Gender:      req.Gender,
		Date:        req.Date,
		Time:        req.Time,
	})
	if err != nil {
		return nil, toStatus("book", err)
	}
	return a, nil
}

func (h *Handler) CancelAppointment(ctx context.Context, req *api.AppointmentRequest) (*model.Appointment, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	a, err := h.book.Cancel(ctx, uid(ctx), req.ID)
	if err != nil {
		return nil, toStatus("cancel", err)
	}
	return a, nil
}

func (h *Handler) ListAppointments(ctx context.Context, req *api.ListAppointmentsRequest) (*api.AppointmentsResponse, error) {
	list := h.book.Upcoming
	if req.History {
		list = h.book.History
	}
	appts, err := list(ctx, uid(ctx))
	if err != nil {
		return nil, toStatus("list appointments", err)
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	return &api.AppointmentsResponse{Appointments: appts}, nil
}
