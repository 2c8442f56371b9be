package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/yourorg/mailseat/internal/domain"
	"github.com/yourorg/mailseat/internal/registry"
	"github.com/yourorg/mailseat/internal/security"
	"github.com/yourorg/mailseat/internal/security/audit"
	"github.com/yourorg/mailseat/internal/security/middleware"
	"github.com/yourorg/mailseat/internal/service"
)

// UsersHandler handles the domain-scoped user collection endpoints
type UsersHandler struct {
	directory *service.DirectoryService
	registry  *registry.Registry
	logger    *slog.Logger
	authz     *security.AuthorizationService
	audit     *audit.Logger
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(
	directory *service.DirectoryService,
	reg *registry.Registry,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *UsersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsersHandler{
		directory: directory,
		registry:  reg,
		logger:    logger,
		authz:     security.NewAuthorizationService(logger),
		audit:     auditLog,
	}
}

// CreateUserRequest represents a request to add a user to a domain
type CreateUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
}

// UserResponse represents a directory user in responses
type UserResponse struct {
	ID          int64     `json:"id"`
	DomainID    int64     `json:"domainId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Address     string    `json:"address,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// userResponse builds the response form, resolving the mail address when
// the domain is still known to the registry.
func userResponse(reg *registry.Registry, u *domain.EmailUser) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		DomainID:    u.DomainID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
	}
	if d, err := reg.Get(u.DomainID); err == nil {
		resp.Address = u.Address(d.Name)
	}
	return resp
}

// List handles GET /api/domains/{id}/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	domainID, ok := pathID(w, r)
	if !ok {
		return
	}
	role := security.Role(claims.Role)
	if err := h.authz.ValidatePermission(role, security.PermReadUsers); err != nil {
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}
	if err := h.authz.ValidateDomainScope(role, claims.DomainID, domainID); err != nil {
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	users, err := h.directory.ListUsers(r.Context(), domainID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(h.registry, u))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": out})
}

// Create handles POST /api/domains/{id}/users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	domainID, ok := pathID(w, r)
	if !ok {
		return
	}
	role := security.Role(claims.Role)
	if err := h.authz.ValidatePermission(role, security.PermManageUsers); err != nil {
		h.audit.LogDenied(r.Context(), domainID, claims.AccountID, "manage_users permission missing")
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}
	if err := h.authz.ValidateDomainScope(role, claims.DomainID, domainID); err != nil {
		h.audit.LogDenied(r.Context(), domainID, claims.AccountID, "domain scope mismatch")
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
		return
	}

	user, err := h.directory.CreateUser(r.Context(), domainID, req.Username, req.DisplayName)
	if err != nil {
		h.audit.LogUserCreate(r.Context(), domainID, claims.AccountID, "", "denied", err.Error())
		writeDomainError(w, err)
		return
	}

	h.audit.LogUserCreate(r.Context(), domainID, claims.AccountID, strconv.FormatInt(user.ID, 10), "success", "")
	writeJSON(w, http.StatusCreated, userResponse(h.registry, user))
}
