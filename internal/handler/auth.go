package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/mailseat/internal/security/middleware"
	"github.com/yourorg/mailseat/internal/security/ratelimit"
	"github.com/yourorg/mailseat/internal/service"
)

// Failed or not, each login attempt against an email counts toward this
// window before the credentials are even checked.
const (
	loginMaxAttempts = 5
	loginWindow      = 15 * time.Minute
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	limiter     *ratelimit.Limiter
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler. The limiter throttles login
// attempts per target email; pass the server's shared limiter.
func NewAuthHandler(authService *service.AuthService, limiter *ratelimit.Limiter, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		limiter:     limiter,
		logger:      logger,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	DomainID int64  `json:"domainId"`
	Role     string `json:"role,omitempty"`
}

// AuthLoginRequest represents login request
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode register request",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
		return
	}

	if req.Email == "" || req.Password == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email, username, and password are required")
		return
	}

	result, err := h.authService.Register(req.Email, req.Username, req.Password, req.DomainID, req.Role)
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "registration_failed", err.Error())
		return
	}

	h.logger.Info("operator registered",
		slog.String("account_id", result.AccountID),
		slog.String("email", result.Email),
	)

	writeJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req AuthLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode login request",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	if !h.limiter.AllowStrict(strings.ToLower(req.Email), loginMaxAttempts, loginWindow) {
		h.logger.Warn("login attempts throttled", slog.String("email", req.Email))
		writeError(w, http.StatusTooManyRequests, "too_many_attempts", "too many login attempts, try again later")
		return
	}

	result, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		// Generic error to prevent account enumeration
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ChangePasswordRequest represents change password request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
		return
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "oldPassword and newPassword are required")
		return
	}

	if err := h.authService.ChangePassword(claims.AccountID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, "change_password_failed", err.Error())
		return
	}

	h.logger.Info("operator changed password",
		slog.String("account_id", claims.AccountID),
	)

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}
