package handler

import (
	"context"

	"google.golang.org/grpc"

	api "vitalrite-api/internal/api/v1"
	"vitalrite-api/internal/model"
)

// WatchReminders sends today's reminders, then a fresh copy every time
// they change, until the client goes away.
func (h *Handler) WatchReminders(_ *api.Empty, stream grpc.ServerStreamingServer[api.RemindersResponse]) error {
	ctx := stream.Context()
	id := uid(ctx)
	changes, err := h.watch.WatchReminders(ctx, id)
	if err != nil {
		return toStatus("watch reminders", err)
	}
	rems, err := h.rem.Sync(ctx, id)
	if err != nil {
		return toStatus("sync reminders", err)
	}
	if err := stream.Send(h.reminders(rems)); err != nil {
		return err
	}
	return follow(ctx, changes, func() error {
		rems, err := h.rem.List(ctx, id)
		if err != nil {
			return toStatus("list reminders", err)
		}
		return stream.Send(h.reminders(rems))
	})
}

// WatchAppointments streams the caller's upcoming appointments, as
// patient or doctor.
func (h *Handler) WatchAppointments(_ *api.Empty, stream grpc.ServerStreamingServer[api.AppointmentsResponse]) error {
	ctx := stream.Context()
	id := uid(ctx)
	changes, err := h.watch.WatchAppointments(ctx, id)
	if err != nil {
		return toStatus("watch appointments", err)
	}
	push := func() error {
		appts, err := h.book.Upcoming(ctx, id)
		if err != nil {
			return toStatus("list appointments", err)
		}
		if appts == nil {
			appts = []model.Appointment{}
		}
		return stream.Send(&api.AppointmentsResponse{Appointments: appts})
	}
	if err := push(); err != nil {
		return err
	}
	return follow(ctx, changes, push)
}

// follow calls push once per change signal. It returns nil when the
// stream or the subscription ends.
func follow(ctx context.Context, changes <-chan struct{}, push func() error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := push(); err != nil {
				return err
			}
		}
	}
}
