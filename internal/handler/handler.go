// Package handler implements the CareService gRPC server on top of the
// reminder, booking and prescription services.
package handler

import (
	"context"
	"errors"
	"log"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "vitalrite-api/internal/api/v1"
	"vitalrite-api/internal/booking"
	"vitalrite-api/internal/middleware"
	"vitalrite-api/internal/model"
	"vitalrite-api/internal/prescription"
	"vitalrite-api/internal/reminder"
	"vitalrite-api/internal/store"
)

// Accounts holds logins and refresh tokens.
type Accounts interface {
	CreateAccount(ctx context.Context, a *model.Account) error
	AccountByEmail(ctx context.Context, email string) (*model.Account, error)
	AccountByID(ctx context.Context, id string) (*model.Account, error)
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// Profiles holds the patient and doctor documents.
type Profiles interface {
	User(ctx context.Context, uid string) (*model.User, error)
	SaveUser(ctx context.Context, u *model.User) error
	Doctor(ctx context.Context, uid string) (*model.Doctor, error)
	SaveDoctor(ctx context.Context, d *model.Doctor) error
}

// Watcher signals changes to a user's reminders or appointments until
// ctx ends.
type Watcher interface {
	WatchReminders(ctx context.Context, uid string) (<-chan struct{}, error)
	WatchAppointments(ctx context.Context, uid string) (<-chan struct{}, error)
}

type Handler struct {
	api.UnimplementedCareServer
	accounts Accounts
	profiles Profiles
	watch    Watcher
	rem      *reminder.Service
	book     *booking.Service
	rx       *prescription.Service
	secret   string
}

type Deps struct {
	Accounts      Accounts
	Profiles      Profiles
	Watcher       Watcher
	Reminders     *reminder.Service
	Booking       *booking.Service
	Prescriptions *prescription.Service
	Secret        string
}

func New(d Deps) *Handler {
	return &Handler{
		accounts: d.Accounts,
		profiles: d.Profiles,
		watch:    d.Watcher,
		rem:      d.Reminders,
		book:     d.Booking,
		rx:       d.Prescriptions,
		secret:   d.Secret,
	}
}

func uid(ctx context.Context) string { return middleware.UserID(ctx) }

// toStatus maps service errors onto gRPC codes. Anything unrecognised
// is logged and reported as Internal.
func toStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codes.Internal
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, store.ErrConflict):
		code = codes.AlreadyExists
	case errors.Is(err, booking.ErrMissingFields),
		errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, booking.ErrPastDate),
		errors.Is(err, booking.ErrInvalidAvailability),
		errors.Is(err, prescription.ErrMissingFields),
		errors.Is(err, prescription.ErrUnknownLabel),
		errors.Is(err, reminder.ErrDoseIndex):
		code = codes.InvalidArgument
	case errors.Is(err, booking.ErrHoliday),
		errors.Is(err, booking.ErrSlotUnavailable),
		errors.Is(err, booking.ErrNotScheduled),
		errors.Is(err, prescription.ErrCancelled):
		code = codes.FailedPrecondition
	case errors.Is(err, booking.ErrNotOwner),
		errors.Is(err, prescription.ErrNotDoctor):
		code = codes.PermissionDenied
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	if code == codes.Internal {
		log.Printf("handler: %s: %v", op, err)
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}
