package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "vitalrite-api/internal/api/v1"
	"vitalrite-api/internal/model"
	"vitalrite-api/internal/prescription"
)

func (h *Handler) Prescribe(ctx context.Context, req *api.PrescribeRequest) (*model.Prescription, error) {
	p, err := h.rx.Prescribe(ctx, prescription.Request{
		DoctorID:      uid(ctx),
		AppointmentID: req.AppointmentID,
		MainCause:     req.MainCause,
		Weight:        req.Weight,
		Medicines:     req.Medicines,
	})
	if err != nil {
		return nil, toStatus("prescribe", err)
	}
	return p, nil
}

func (h *Handler) ListPrescriptions(ctx context.Context, _ *api.Empty) (*api.PrescriptionsResponse, error) {
	active, past, err := h.rx.List(ctx, uid(ctx))
	if err != nil {
		return nil, toStatus("list prescriptions", err)
	}
	return &api.PrescriptionsResponse{Active: active, Past: past}, nil
}

// ListReminders runs the daily reset when the day has rolled over and
// returns today's reminders with their alarms in place.
func (h *Handler) ListReminders(ctx context.Context, _ *api.Empty) (*api.RemindersResponse, error) {
	rems, err := h.rem.Sync(ctx, uid(ctx))
	if err != nil {
		return nil, toStatus("sync reminders", err)
	}
	return h.reminders(rems), nil
}

func (h *Handler) reminders(rems []model.Reminder) *api.RemindersResponse {
	if rems == nil {
		rems = []model.Reminder{}
	}
	return &api.RemindersResponse{Date: h.rem.Today(), Reminders: rems}
}

func (h *Handler) TakeDose(ctx context.Context, req *api.DoseRequest) (*model.Reminder, error) {
	if req.ReminderID == "" {
		return nil, status.Error(codes.InvalidArgument, "reminderId required")
	}
	r, err := h.rem.TakeDose(ctx, uid(ctx), req.ReminderID, req.Index)
	if err != nil {
		return nil, toStatus("take dose", err)
	}
	return r, nil
}

func (h *Handler) SnoozeDose(ctx context.Context, req *api.DoseRequest) (*model.Reminder, error) {
	if req.ReminderID == "" {
		return nil, status.Error(codes.InvalidArgument, "reminderId required")
	}
	r, err := h.rem.SnoozeDose(ctx, uid(ctx), req.ReminderID, req.Index)
	if err != nil {
		return nil, toStatus("snooze dose", err)
	}
	return r, nil
}
