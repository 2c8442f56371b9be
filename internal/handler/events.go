package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourorg/mailseat/internal/events"
	"github.com/yourorg/mailseat/internal/security"
	"github.com/yourorg/mailseat/internal/security/auth"
)

// EventsHandler streams directory change events over WebSocket
type EventsHandler struct {
	broker         *events.Broker
	tokenManager   *auth.TokenManager
	logger         *slog.Logger
	allowedOrigins []string
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(broker *events.Broker, tm *auth.TokenManager, logger *slog.Logger, allowedOrigins []string) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		broker:         broker,
		tokenManager:   tm,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *EventsHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/events?token=...&domain={id}
// Browsers cannot set an Authorization header on WebSocket requests, so
// the token travels as a query parameter.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokenManager.ValidateToken(token)
	if err != nil {
		h.logger.Warn("websocket token rejected", slog.String("error", err.Error()))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Non-admins are pinned to their own domain regardless of the filter
	filterDomain := claims.DomainID
	if security.Role(claims.Role) == security.RoleAdmin {
		filterDomain = 0
		if v := r.URL.Query().Get("domain"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				http.Error(w, "invalid domain filter", http.StatusBadRequest)
				return
			}
			filterDomain = id
		}
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	sub, cancel := h.broker.Subscribe()
	defer cancel()

	h.logger.Debug("event stream opened",
		slog.String("account_id", claims.AccountID),
		slog.Int64("domain_filter", filterDomain),
	)

	// Heartbeat ping to keep connection alive
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if filterDomain != 0 && ev.DomainID != filterDomain {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("websocket closed", slog.String("account_id", claims.AccountID))
				}
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
