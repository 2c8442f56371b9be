package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/mailseat/internal/security/audit"
	"github.com/yourorg/mailseat/internal/security/auth"
	"github.com/yourorg/mailseat/internal/security/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bearerToken(t *testing.T, tm *auth.TokenManager, accountID string, domainID int64) string {
	t.Helper()
	token, err := tm.GenerateToken(accountID, accountID+"@example.com", domainID, "member", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return "Bearer " + token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitAppliesToAuthenticatedRequests(t *testing.T) {
	log := discardLogger()
	tm := auth.NewTokenManager("test-secret", "mailseat")
	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()

	chain := JWTMiddleware(tm, log)(RateLimitMiddleware(limiter, log)(okHandler()))
	header := bearerToken(t, tm, "acct-1", 1)

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/domains", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK {
		t.Fatalf("first request: got %d, want %d", codes[0], http.StatusOK)
	}
	for i, code := range codes[1:] {
		if code != http.StatusTooManyRequests {
			t.Errorf("request %d: got %d, want %d", i+2, code, http.StatusTooManyRequests)
		}
	}
}

func TestRateLimitIsPerAccount(t *testing.T) {
	log := discardLogger()
	tm := auth.NewTokenManager("test-secret", "mailseat")
	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()

	chain := JWTMiddleware(tm, log)(RateLimitMiddleware(limiter, log)(okHandler()))

	send := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/domains", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		return rec.Code
	}

	first := bearerToken(t, tm, "acct-1", 1)
	send(first)
	if code := send(first); code != http.StatusTooManyRequests {
		t.Fatalf("exhausted account: got %d, want %d", code, http.StatusTooManyRequests)
	}
	if code := send(bearerToken(t, tm, "acct-2", 1)); code != http.StatusOK {
		t.Fatalf("fresh account: got %d, want %d", code, http.StatusOK)
	}
}

func TestRateLimitSkipsPublicPaths(t *testing.T) {
	log := discardLogger()
	tm := auth.NewTokenManager("test-secret", "mailseat")
	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()

	chain := JWTMiddleware(tm, log)(RateLimitMiddleware(limiter, log)(okHandler()))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("probe request %d: got %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

func TestAuditRecordsCallerDomain(t *testing.T) {
	var buf bytes.Buffer
	auditLog := audit.NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	tm := auth.NewTokenManager("test-secret", "mailseat")

	chain := JWTMiddleware(tm, discardLogger())(AuditMiddleware(auditLog)(okHandler()))

	req := httptest.NewRequest(http.MethodPost, "/api/domains/7/users", strings.NewReader(`{"username":"alice"}`))
	req.Header.Set("Authorization", bearerToken(t, tm, "acct-1", 7))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, `"domain_id":7`) {
		t.Errorf("audit record missing caller domain: %s", out)
	}
	if !strings.Contains(out, `"account_id":"acct-1"`) {
		t.Errorf("audit record missing caller account: %s", out)
	}
}
