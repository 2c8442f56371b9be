package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/mailseat/internal/security"
	"github.com/yourorg/mailseat/internal/security/middleware"
	"github.com/yourorg/mailseat/internal/worker"
)

// SnapshotHandler triggers an immediate directory snapshot
type SnapshotHandler struct {
	worker *worker.SnapshotWorker
	logger *slog.Logger
	authz  *security.AuthorizationService
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(w *worker.SnapshotWorker, logger *slog.Logger) *SnapshotHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotHandler{
		worker: w,
		logger: logger,
		authz:  security.NewAuthorizationService(logger),
	}
}

// ServeHTTP handles POST /api/admin/snapshot
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), security.PermTriggerSnapshot); err != nil {
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	if err := h.worker.SnapshotNow(r.Context(), "manual"); err != nil {
		h.logger.Error("manual snapshot failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "snapshot_failed", "snapshot failed")
		return
	}

	h.logger.Info("manual snapshot taken", slog.String("account_id", claims.AccountID))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "snapshot taken"})
}
