package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourorg/mailseat/internal/domain"
)

func TestWriteDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{"domain not found", domain.ErrDomainNotFound, http.StatusNotFound, "domain_not_found"},
		{"username conflict", domain.ErrUsernameConflict, http.StatusConflict, "username_conflict"},
		{"domain full", domain.ErrDomainFull, http.StatusConflict, "domain_full"},
		{"unverified", domain.ErrDomainUnverified, http.StatusUnprocessableEntity, "domain_unverified"},
		{"invalid username", domain.ErrInvalidUsername, http.StatusBadRequest, "invalid_username"},
		{"wrapped invalid username", errors.Join(domain.ErrInvalidUsername, errors.New("too long")), http.StatusBadRequest, "invalid_username"},
		{"domain exists", domain.ErrDomainExists, http.StatusConflict, "domain_exists"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tc.err)

			if rec.Code != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, rec.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Code != tc.code {
				t.Errorf("expected code %q, got %q", tc.code, resp.Code)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got int64
	var ok bool
	mux.HandleFunc("GET /api/domains/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, ok = pathID(w, r)
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/domains/42", nil))
	if !ok || got != 42 {
		t.Errorf("expected 42, got %d ok=%v", got, ok)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/domains/zero", nil))
	if ok {
		t.Errorf("expected non-numeric id to be rejected")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected bad request, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/domains/-3", nil))
	if ok {
		t.Errorf("expected negative id to be rejected")
	}
}
