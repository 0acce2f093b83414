package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "vitalrite-api/internal/api/v1"
	"vitalrite-api/internal/middleware"
	"vitalrite-api/internal/model"
	"vitalrite-api/internal/schedule"
)

func (h *Handler) GetProfile(ctx context.Context, _ *api.Empty) (*api.ProfileResponse, error) {
	id, role := uid(ctx), middleware.Role(ctx)
	resp := &api.ProfileResponse{Role: role}
	var err error
	if role == model.RoleDoctor {
		resp.Doctor, err = h.profiles.Doctor(ctx, id)
	} else {
		resp.User, err = h.profiles.User(ctx, id)
	}
	if err != nil {
		return nil, toStatus("get profile", err)
	}
	return resp, nil
}

// UpdateProfile replaces the caller's profile. For a patient the
// prescription links and reset marker are kept from the stored copy,
// and dose alarms are re-queued against the new meal and sleep times.
func (h *Handler) UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.ProfileResponse, error) {
	id, role := uid(ctx), middleware.Role(ctx)

	if role == model.RoleDoctor {
		if req.Doctor == nil || req.Doctor.Name == "" {
			return nil, status.Error(codes.InvalidArgument, "doctor profile with a name required")
		}
		d := *req.Doctor
		d.UID = id
		if err := h.profiles.SaveDoctor(ctx, &d); err != nil {
			return nil, toStatus("save doctor", err)
		}
		return &api.ProfileResponse{Role: role, Doctor: &d}, nil
	}

	if req.User == nil || req.User.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "user profile with a name required")
	}
	u := *req.User
	for _, t := range []string{u.BreakfastTime, u.LunchTime, u.DinnerTime, u.SleepTime} {
		if t == "" {
			continue
		}
		if _, ok := schedule.ParseClock(t); !ok {
			return nil, status.Errorf(codes.InvalidArgument, "time %q must be HH:mm", t)
		}
	}

	prev, err := h.profiles.User(ctx, id)
	if err != nil {
		return nil, toStatus("load user", err)
	}
	u.UID = id
	u.ActivePrescriptions = prev.ActivePrescriptions
	u.LastReminderResetDate = prev.LastReminderResetDate
	if err := h.profiles.SaveUser(ctx, &u); err != nil {
		return nil, toStatus("save user", err)
	}
	if _, err := h.rem.Restore(ctx, id); err != nil {
		return nil, toStatus("reschedule doses", err)
	}
	return &api.ProfileResponse{Role: role, User: &u}, nil
}
