package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/yourorg/mailseat/internal/domain"
	"github.com/yourorg/mailseat/internal/registry"
	"github.com/yourorg/mailseat/internal/security"
	"github.com/yourorg/mailseat/internal/security/middleware"
)

// DomainsHandler handles mail domain management endpoints
type DomainsHandler struct {
	registry  *registry.Registry
	occupancy registry.Occupancy
	logger    *slog.Logger
	authz     *security.AuthorizationService
}

// NewDomainsHandler creates a new domains handler
func NewDomainsHandler(reg *registry.Registry, occupancy registry.Occupancy, logger *slog.Logger) *DomainsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DomainsHandler{
		registry:  reg,
		occupancy: occupancy,
		logger:    logger,
		authz:     security.NewAuthorizationService(logger),
	}
}

// CreateDomainRequest represents a request to register a mail domain
type CreateDomainRequest struct {
	Name     string `json:"name"`
	MaxUsers int    `json:"maxUsers"`
}

// UpdateDomainRequest represents a seat limit change
type UpdateDomainRequest struct {
	MaxUsers *int `json:"maxUsers"`
}

// DomainResponse represents a mail domain in responses
type DomainResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Verified  bool      `json:"verified"`
	MaxUsers  int       `json:"maxUsers"`
	UserCount int       `json:"userCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *DomainsHandler) domainResponse(d *domain.Domain) DomainResponse {
	return DomainResponse{
		ID:        d.ID,
		Name:      d.Name,
		Verified:  d.Verified,
		MaxUsers:  d.MaxUsers,
		UserCount: h.occupancy.UserCount(d.ID),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// List handles GET /api/domains
// Platform admins see every domain, everyone else sees their own.
func (h *DomainsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	if security.Role(claims.Role) == security.RoleAdmin {
		domains, err := h.registry.List()
		if err != nil {
			h.logger.Error("failed to list domains", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal", "failed to list domains")
			return
		}
		out := make([]DomainResponse, 0, len(domains))
		for _, d := range domains {
			out = append(out, h.domainResponse(d))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"domains": out})
		return
	}

	d, err := h.registry.Get(claims.DomainID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"domains": []DomainResponse{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"domains": []DomainResponse{h.domainResponse(d)}})
}

// Create handles POST /api/domains
func (h *DomainsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), security.PermManageDomain); err != nil {
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	var req CreateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if req.MaxUsers < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "maxUsers must not be negative")
		return
	}

	d, err := h.registry.CreateDomain(req.Name, req.MaxUsers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("domain registered",
		slog.Int64("domain_id", d.ID),
		slog.String("name", d.Name),
		slog.Int("max_users", d.MaxUsers),
	)

	writeJSON(w, http.StatusCreated, h.domainResponse(d))
}

// Get handles GET /api/domains/{id}
func (h *DomainsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.authz.ValidateDomainScope(security.Role(claims.Role), claims.DomainID, id); err != nil {
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	d, err := h.registry.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.domainResponse(d))
}

// Update handles PATCH /api/domains/{id}
func (h *DomainsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), security.PermManageDomain); err != nil {
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
		return
	}
	if req.MaxUsers == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "maxUsers is required")
		return
	}
	if *req.MaxUsers < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "maxUsers must not be negative")
		return
	}

	d, err := h.registry.SetMaxUsers(id, *req.MaxUsers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("domain seat limit changed",
		slog.Int64("domain_id", d.ID),
		slog.Int("max_users", d.MaxUsers),
	)

	writeJSON(w, http.StatusOK, h.domainResponse(d))
}

// Verify handles POST /api/domains/{id}/verify
func (h *DomainsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), security.PermManageDomain); err != nil {
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	d, err := h.registry.Verify(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("domain verified", slog.Int64("domain_id", d.ID), slog.String("name", d.Name))
	writeJSON(w, http.StatusOK, h.domainResponse(d))
}

// Delete handles DELETE /api/domains/{id}
func (h *DomainsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), security.PermManageDomain); err != nil {
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.registry.Delete(id); err != nil {
		if errors.Is(err, domain.ErrDomainNotFound) {
			writeDomainError(w, err)
			return
		}
		// Occupied domains cannot be removed
		writeError(w, http.StatusConflict, "domain_occupied", err.Error())
		return
	}

	h.logger.Info("domain deleted", slog.Int64("domain_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} path segment as an int64
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid id")
		return 0, false
	}
	return id, true
}
