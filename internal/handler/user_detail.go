package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/mailseat/internal/domain"
	"github.com/yourorg/mailseat/internal/registry"
	"github.com/yourorg/mailseat/internal/security"
	"github.com/yourorg/mailseat/internal/security/audit"
	"github.com/yourorg/mailseat/internal/security/middleware"
	"github.com/yourorg/mailseat/internal/service"
)

// UserDetailHandler handles single-user endpoints addressed by user id
type UserDetailHandler struct {
	directory *service.DirectoryService
	registry  *registry.Registry
	logger    *slog.Logger
	authz     *security.AuthorizationService
	audit     *audit.Logger
}

// NewUserDetailHandler creates a new user detail handler
func NewUserDetailHandler(
	directory *service.DirectoryService,
	reg *registry.Registry,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *UserDetailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserDetailHandler{
		directory: directory,
		registry:  reg,
		logger:    logger,
		authz:     security.NewAuthorizationService(logger),
		audit:     auditLog,
	}
}

// UpdateUserRequest represents a partial user update
type UpdateUserRequest struct {
	DisplayName *string `json:"displayName"`
	Active      *bool   `json:"active"`
}

// RenameUserRequest represents a rename request
type RenameUserRequest struct {
	Username string `json:"username"`
}

// resolve loads the user and enforces read scope. Returns nil after
// writing the response when access is denied or the user is missing.
func (h *UserDetailHandler) resolve(w http.ResponseWriter, r *http.Request, perm security.Permission) *domain.EmailUser {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return nil
	}

	id, ok := pathID(w, r)
	if !ok {
		return nil
	}

	user, err := h.directory.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil
	}

	role := security.Role(claims.Role)
	if err := h.authz.ValidatePermission(role, perm); err != nil {
		h.audit.LogDenied(r.Context(), user.DomainID, claims.AccountID, string(perm)+" permission missing")
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return nil
	}
	if err := h.authz.ValidateDomainScope(role, claims.DomainID, user.DomainID); err != nil {
		h.audit.LogDenied(r.Context(), user.DomainID, claims.AccountID, "domain scope mismatch")
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return nil
	}

	return user
}

// Get handles GET /api/users/{id}
func (h *UserDetailHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := h.resolve(w, r, security.PermReadUsers)
	if user == nil {
		return
	}
	writeJSON(w, http.StatusOK, userResponse(h.registry, user))
}

// Update handles PATCH /api/users/{id}
func (h *UserDetailHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := h.resolve(w, r, security.PermManageUsers)
	if user == nil {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
		return
	}
	if req.DisplayName == nil && req.Active == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "nothing to update")
		return
	}

	updated, err := h.directory.UpdateUser(r.Context(), user.ID, domain.UserUpdate{
		DisplayName: req.DisplayName,
		Active:      req.Active,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse(h.registry, updated))
}

// Rename handles POST /api/users/{id}/rename
func (h *UserDetailHandler) Rename(w http.ResponseWriter, r *http.Request) {
	user := h.resolve(w, r, security.PermManageUsers)
	if user == nil {
		return
	}

	claims := middleware.GetClaimsFromContext(r.Context())

	var req RenameUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
		return
	}

	renamed, err := h.directory.RenameUser(r.Context(), user.ID, req.Username)
	if err != nil {
		h.audit.LogUserRename(r.Context(), user.DomainID, claims.AccountID, strconv.FormatInt(user.ID, 10), "denied", err.Error())
		writeDomainError(w, err)
		return
	}

	h.audit.LogUserRename(r.Context(), user.DomainID, claims.AccountID, strconv.FormatInt(user.ID, 10), "success", "")
	writeJSON(w, http.StatusOK, userResponse(h.registry, renamed))
}

// Delete handles DELETE /api/users/{id}
func (h *UserDetailHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := h.resolve(w, r, security.PermManageUsers)
	if user == nil {
		return
	}

	claims := middleware.GetClaimsFromContext(r.Context())

	if !h.directory.DeleteUser(r.Context(), user.ID) {
		// Raced with another delete
		writeError(w, http.StatusNotFound, "user_not_found", "user not found")
		return
	}

	h.audit.LogUserDelete(r.Context(), user.DomainID, claims.AccountID, strconv.FormatInt(user.ID, 10), "success", "")
	w.WriteHeader(http.StatusNoContent)
}
