package middleware_test

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	api "vitalrite-api/internal/api/v1"
	"vitalrite-api/internal/auth"
	"vitalrite-api/internal/middleware"
	"vitalrite-api/internal/model"
)

const secret = "test-secret"

func bearer(t *testing.T, uid, role string) context.Context {
	t.Helper()
	tok, err := auth.MakeToken(uid, role, secret)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tok))
}

func TestAuth(t *testing.T) {
	patient := bearer(t, "u1", model.RoleUser)
	doctor := bearer(t, "d1", model.RoleDoctor)
	anon := metadata.NewIncomingContext(context.Background(), metadata.MD{})
	garbage := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer nope"))

	tests := []struct {
		name    string
		ctx     context.Context
		method  string
		want    codes.Code
		wantUID string
	}{
		{"open method", context.Background(), "Login", codes.OK, ""},
		{"no metadata", context.Background(), "GetProfile", codes.Unauthenticated, ""},
		{"no token", anon, "GetProfile", codes.Unauthenticated, ""},
		{"bad token", garbage, "GetProfile", codes.Unauthenticated, ""},
		{"patient profile", patient, "GetProfile", codes.OK, "u1"},
		{"patient prescribes", patient, "Prescribe", codes.PermissionDenied, ""},
		{"doctor prescribes", doctor, "Prescribe", codes.OK, "d1"},
		{"doctor takes dose", doctor, "TakeDose", codes.PermissionDenied, ""},
		{"doctor lists appointments", doctor, "ListAppointments", codes.OK, "d1"},
	}

	interceptor := middleware.Auth(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			info := &grpc.UnaryServerInfo{FullMethod: api.FullMethod(tt.method)}
			_, err := interceptor(tt.ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
				seen = middleware.UserID(ctx)
				return nil, nil
			})
			if got := status.Code(err); got != tt.want {
				t.Fatalf("code = %v, want %v", got, tt.want)
			}
			if seen != tt.wantUID {
				t.Errorf("uid = %q, want %q", seen, tt.wantUID)
			}
		})
	}
}

func TestRateLimitPerHost(t *testing.T) {
	rl := middleware.NewRateLimiter(0.001, 2)
	defer rl.Close()
	interceptor := middleware.RateLimit(rl)
	ok := func(context.Context, any) (any, error) { return nil, nil }

	from := func(port int) context.Context {
		addr := &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: port}
		return peer.NewContext(context.Background(), &peer.Peer{Addr: addr})
	}
	login := &grpc.UnaryServerInfo{FullMethod: api.FullMethod("Login")}

	// new connections from one host share a bucket
	for i, want := range []codes.Code{codes.OK, codes.OK, codes.ResourceExhausted} {
		_, err := interceptor(from(40000+i), nil, login, ok)
		if got := status.Code(err); got != want {
			t.Errorf("call %d: %v, want %v", i, got, want)
		}
	}

	profile := &grpc.UnaryServerInfo{FullMethod: api.FullMethod("GetProfile")}
	if _, err := interceptor(from(1), nil, profile, ok); err != nil {
		t.Errorf("unlimited method throttled: %v", err)
	}
}
