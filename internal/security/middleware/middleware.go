package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourorg/mailseat/internal/security/audit"
	"github.com/yourorg/mailseat/internal/security/auth"
	"github.com/yourorg/mailseat/internal/security/ratelimit"
)

type DomainContextKey struct{}
type ClaimsContextKey struct{}

// isPublicPath lists the endpoints reachable without a token: probes,
// metrics, the plan catalog, and the auth endpoints themselves.
func isPublicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics", "/api/plans",
		"/api/auth/login", "/api/auth/register":
		return true
	}
	return strings.HasPrefix(path, "/ws/")
}

func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, DomainContextKey{}, claims.DomainID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware limits requests per caller account. It must sit inside
// JWTMiddleware in the chain: it reads the claims JWT stores in the context,
// and without them every request passes unlimited.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			accountID := ""
			if c := r.Context().Value(ClaimsContextKey{}); c != nil {
				accountID = c.(*auth.Claims).AccountID
			}

			if !limiter.Allow(accountID) {
				log.Warn("rate limit exceeded", slog.String("account_id", accountID))
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			domainID := int64(0)
			accountID := ""
			if d := r.Context().Value(DomainContextKey{}); d != nil {
				domainID = d.(int64)
			}
			if c := r.Context().Value(ClaimsContextKey{}); c != nil {
				accountID = c.(*auth.Claims).AccountID
			}

			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/users") {
				auditLog.LogAction(r.Context(), domainID, accountID, "create", "user", "", "initiated", "")
			}
			if r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/users/") {
				auditLog.LogAction(r.Context(), domainID, accountID, "delete", "user", r.PathValue("id"), "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetDomainFromContext(ctx context.Context) int64 {
	if d := ctx.Value(DomainContextKey{}); d != nil {
		return d.(int64)
	}
	return 0
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
