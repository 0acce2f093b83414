package handler

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "vitalrite-api/internal/api/v1"
	"vitalrite-api/internal/auth"
	"vitalrite-api/internal/model"
	"vitalrite-api/internal/store"
)

func (h *Handler) issue(ctx context.Context, uid, role string) (access, refresh string, err error) {
	access, err = auth.MakeToken(uid, role, h.secret)
	if err != nil {
		return "", "", err
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return "", "", err
	}
	if _, err := h.accounts.CreateRefreshToken(ctx, uid, hash, time.Now().Add(auth.RefreshTTL)); err != nil {
		return "", "", err
	}
	return access, raw, nil
}

func (h *Handler) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "all fields required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid email")
	}
	if len(req.Password) < 8 {
		return nil, status.Error(codes.InvalidArgument, "password too short")
	}
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleDoctor {
		return nil, status.Error(codes.InvalidArgument, "role must be User or Doctor")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}

	a := &model.Account{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := h.accounts.CreateAccount(ctx, a); err != nil {
		// unique violation = dup email, but don't reveal that
		if errors.Is(err, store.ErrConflict) {
			return nil, status.Error(codes.AlreadyExists, "registration failed")
		}
		return nil, toStatus("register", err)
	}

	if role == model.RoleDoctor {
		err = h.profiles.SaveDoctor(ctx, &model.Doctor{UID: a.ID, Name: req.Name, Email: a.Email})
	} else {
		err = h.profiles.SaveUser(ctx, &model.User{UID: a.ID, Name: req.Name, Email: a.Email})
	}
	if err != nil {
		return nil, toStatus("register profile", err)
	}

	tok, refresh, err := h.issue(ctx, a.ID, role)
	if err != nil {
		return nil, toStatus("register tokens", err)
	}
	return &api.RegisterResponse{UserID: a.ID, Token: tok, RefreshToken: refresh}, nil
}

func (h *Handler) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password required")
	}

	a, err := h.accounts.AccountByEmail(ctx, email)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	if !auth.CheckPassword(a.PasswordHash, req.Password) {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}

	tok, refresh, err := h.issue(ctx, a.ID, a.Role)
	if err != nil {
		return nil, toStatus("login tokens", err)
	}
	return &api.LoginResponse{
		UserID:       a.ID,
		Token:        tok,
		RefreshToken: refresh,
		Role:         a.Role,
		Name:         h.displayName(ctx, a),
	}, nil
}

func (h *Handler) displayName(ctx context.Context, a *model.Account) string {
	if a.Role == model.RoleDoctor {
		if d, err := h.profiles.Doctor(ctx, a.ID); err == nil {
			return d.Name
		}
		return ""
	}
	if u, err := h.profiles.User(ctx, a.ID); err == nil {
		return u.Name
	}
	return ""
}

// Refresh swaps a refresh token for a new pair. Presenting a token that
// was already rotated revokes every token of its owner.
func (h *Handler) Refresh(ctx context.Context, req *api.RefreshRequest) (*api.RefreshResponse, error) {
	if req.RefreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh token required")
	}
	old, err := h.accounts.GetRefreshTokenByHash(ctx, auth.HashRefreshToken(req.RefreshToken))
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
	}
	if old.Revoked {
		if err := h.accounts.RevokeAllRefreshTokens(ctx, old.UserID); err != nil {
			return nil, toStatus("refresh revoke", err)
		}
		return nil, status.Error(codes.Unauthenticated, "refresh token reused")
	}
	if time.Now().After(old.ExpiresAt) {
		return nil, status.Error(codes.Unauthenticated, "refresh token expired")
	}

	a, err := h.accounts.AccountByID(ctx, old.UserID)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	err = h.accounts.RotateRefreshToken(ctx, old.ID, uuid.New().String(), a.ID, hash, time.Now().Add(auth.RefreshTTL))
	if errors.Is(err, store.ErrNotFound) {
		// lost a race with another rotation of the same token
		return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
	}
	if err != nil {
		return nil, toStatus("refresh rotate", err)
	}
	tok, err := auth.MakeToken(a.ID, a.Role, h.secret)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &api.RefreshResponse{Token: tok, RefreshToken: raw}, nil
}

func (h *Handler) Logout(ctx context.Context, _ *api.Empty) (*api.Empty, error) {
	if err := h.accounts.RevokeAllRefreshTokens(ctx, uid(ctx)); err != nil {
		return nil, toStatus("logout", err)
	}
	return &api.Empty{}, nil
}
