package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/server/reqctx"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
)

// AuthHandler handles authentication requests.
type AuthHandler struct {
	svc *Services
	cfg *Config
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *Services, cfg *Config) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg}
}

// Login handles user login and returns a JWT token.
func (h *AuthHandler) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := h.svc.User.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrUserNotFound) {
			return nil, dto.NewAPIError(http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Invalid credentials")
		}
		return nil, dto.InternalWithError("Failed to authenticate", err)
	}
	return h.authResponse(ctx, user)
}

// Register creates an account. The first account becomes an admin.
func (h *AuthHandler) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	user, err := h.svc.User.Create(req.Email, req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, storeError(err, "user")
	}
	slog.InfoContext(ctx, "User registered", "user", user.ID, "role", user.Role)
	return h.authResponse(ctx, user)
}

// Logout revokes the session of the calling token.
func (h *AuthHandler) Logout(ctx context.Context, user *identity.User, req *dto.EmptyRequest) (*dto.OkResponse, error) {
	sid := reqctx.SessionID(ctx)
	if sid.IsZero() {
		return nil, dto.Unauthorized()
	}
	if err := h.svc.Session.Revoke(sid); err != nil {
		return nil, storeError(err, "session")
	}
	return &dto.OkResponse{Ok: true}, nil
}

// Me returns the calling user.
func (h *AuthHandler) Me(ctx context.Context, user *identity.User, req *dto.EmptyRequest) (*dto.UserResponse, error) {
	return userToResponse(user), nil
}

// ListSessions lists the active sessions of the calling user, newest first.
func (h *AuthHandler) ListSessions(ctx context.Context, user *identity.User, req *dto.EmptyRequest) (*dto.ListResponse[dto.SessionResponse], error) {
	current := reqctx.SessionID(ctx)
	out := &dto.ListResponse[dto.SessionResponse]{Items: []dto.SessionResponse{}}
	for s := range h.svc.Session.ActiveByUser(user.ID) {
		out.Items = append(out.Items, sessionToResponse(s, current))
	}
	slices.SortFunc(out.Items, func(a, b dto.SessionResponse) int {
		return int(b.Created - a.Created)
	})
	return out, nil
}

// RevokeSession revokes one session of the calling user.
func (h *AuthHandler) RevokeSession(ctx context.Context, user *identity.User, req *dto.RevokeSessionRequest) (*dto.OkResponse, error) {
	s, err := h.svc.Session.Get(req.SessionID)
	if err != nil || s.UserID != user.ID {
		return nil, dto.NotFound("session")
	}
	if err := h.svc.Session.Revoke(s.ID); err != nil {
		return nil, storeError(err, "session")
	}
	return &dto.OkResponse{Ok: true}, nil
}

// RevokeAllSessions revokes every session of the calling user but the
// current one.
func (h *AuthHandler) RevokeAllSessions(ctx context.Context, user *identity.User, req *dto.EmptyRequest) (*dto.RevokeAllSessionsResponse, error) {
	current := reqctx.SessionID(ctx)
	n := 0
	for s := range h.svc.Session.ActiveByUser(user.ID) {
		if s.ID == current {
			continue
		}
		if err := h.svc.Session.Revoke(s.ID); err != nil {
			return nil, storeError(err, "session")
		}
		n++
	}
	return &dto.RevokeAllSessionsResponse{RevokedCount: n}, nil
}

func (h *AuthHandler) authResponse(ctx context.Context, user *identity.User) (*dto.AuthResponse, error) {
	token, err := h.GenerateTokenWithSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: token, User: userToResponse(user)}, nil
}

// GenerateTokenWithSession records a new session for user and returns a
// signed token carrying its ID.
func (h *AuthHandler) GenerateTokenWithSession(ctx context.Context, user *identity.User) (string, error) {
	sessionID := ksid.NewID()
	now := time.Now()
	expires := now.Add(h.cfg.Quotas.TokenLifetime())
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"sid":   sessionID.String(),
		"email": user.Email,
		"exp":   expires.Unix(),
		"iat":   now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.cfg.JWTSecret)
	if err != nil {
		return "", dto.InternalWithError("Failed to generate token", err)
	}
	ip := reqctx.ClientIP(ctx)
	_, err = h.svc.Session.CreateWithID(sessionID, user.ID, hashToken(token), reqctx.UserAgent(ctx), ip,
		h.svc.GeoIP.CountryCode(ip), storage.ToTime(expires), h.cfg.Quotas.MaxSessionsPerUser)
	if err != nil {
		return "", storeError(err, "session")
	}
	return token, nil
}

// ValidateToken parses a bearer token and returns its user and session.
// Revoked or expired sessions are rejected.
func (h *AuthHandler) ValidateToken(tokenString string) (*identity.User, ksid.ID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.cfg.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, 0, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, 0, errInvalidToken
	}
	userID, err := claimID(claims, "sub")
	if err != nil {
		return nil, 0, err
	}
	sessionID, err := claimID(claims, "sid")
	if err != nil {
		return nil, 0, err
	}
	if valid, err := h.svc.Session.IsValid(sessionID); err != nil || !valid {
		return nil, 0, errSessionRevoked
	}
	user, err := h.svc.User.Get(userID)
	if err != nil {
		return nil, 0, errInvalidToken
	}
	if s, err := h.svc.Session.Get(sessionID); err == nil && storage.Now()-s.LastUsed >= touchInterval {
		if err := h.svc.Session.Touch(sessionID); err != nil {
			slog.Warn("Failed to touch session", "session", sessionID, "err", err)
		}
	}
	return user, sessionID, nil
}

// touchInterval bounds how often LastUsed is rewritten, in seconds.
const touchInterval = 60

var (
	errInvalidToken   = errors.New("invalid token")
	errSessionRevoked = errors.New("session revoked or expired")
)

func claimID(claims jwt.MapClaims, name string) (ksid.ID, error) {
	s, ok := claims[name].(string)
	if !ok {
		return 0, errInvalidToken
	}
	id, err := ksid.Parse(s)
	if err != nil {
		return 0, errInvalidToken
	}
	return id, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
