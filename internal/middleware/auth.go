package middleware

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	api "vitalrite-api/internal/api/v1"
	"vitalrite-api/internal/auth"
	"vitalrite-api/internal/model"
)

type ctxKey string

const (
	UserIDKey ctxKey = "uid"
	RoleKey   ctxKey = "role"
)

// skip auth for these
var open = map[string]bool{
	api.FullMethod("Register"):     true,
	api.FullMethod("Login"):        true,
	api.FullMethod("Refresh"):      true,
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
	"/grpc.health.v1.Health/List":  true,
}

// callers must hold the Doctor role
var doctorOnly = map[string]bool{
	api.FullMethod("SetAvailability"): true,
	api.FullMethod("Prescribe"):       true,
}

// patients only; a doctor has no reminders or bookings of their own
var userOnly = map[string]bool{
	api.FullMethod("BookAppointment"):   true,
	api.FullMethod("ListPrescriptions"): true,
	api.FullMethod("ListReminders"):     true,
	api.FullMethod("TakeDose"):          true,
	api.FullMethod("SnoozeDose"):        true,
	api.FullMethod("WatchReminders"):    true,
}

// UserID is the authenticated caller. It is empty on open methods.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

func Role(ctx context.Context) string {
	v, _ := ctx.Value(RoleKey).(string)
	return v
}

// WithIdentity returns ctx carrying uid and role, as the interceptors
// leave it.
func WithIdentity(ctx context.Context, uid, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, uid)
	return context.WithValue(ctx, RoleKey, role)
}

func authorize(ctx context.Context, method, secret string) (context.Context, error) {
	if open[method] {
		return ctx, nil
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}

	// token from Authorization: Bearer <jwt>
	raw := ""
	if vals := md.Get("authorization"); len(vals) > 0 {
		raw = strings.TrimPrefix(vals[0], "Bearer ")
	}
	if raw == "" {
		return nil, status.Error(codes.Unauthenticated, "no token")
	}

	claims, err := auth.ParseToken(raw, secret)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "bad token")
	}
	if doctorOnly[method] && claims.Role != model.RoleDoctor {
		return nil, status.Error(codes.PermissionDenied, "doctors only")
	}
	if userOnly[method] && claims.Role != model.RoleUser {
		return nil, status.Error(codes.PermissionDenied, "patients only")
	}
	return WithIdentity(ctx, claims.UserID, claims.Role), nil
}

func Auth(secret string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		ctx, err := authorize(ctx, info.FullMethod, secret)
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

// identityStream swaps the context seen by a streaming handler.
type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context { return s.ctx }

func StreamAuth(secret string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, next grpc.StreamHandler) error {
		ctx, err := authorize(ss.Context(), info.FullMethod, secret)
		if err != nil {
			return err
		}
		return next(srv, &identityStream{ServerStream: ss, ctx: ctx})
	}
}
