package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yourorg/mailseat/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// writeDomainError maps directory errors onto HTTP statuses. Capacity
// refusals are conflicts, unverified domains are unprocessable, bad
// usernames are plain bad requests.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "user not found")
	case errors.Is(err, domain.ErrDomainNotFound):
		writeError(w, http.StatusNotFound, "domain_not_found", "domain not found")
	case errors.Is(err, domain.ErrUsernameConflict):
		writeError(w, http.StatusConflict, "username_conflict", "username already taken in this domain")
	case errors.Is(err, domain.ErrDomainFull):
		writeError(w, http.StatusConflict, "domain_full", "domain has no free seats")
	case errors.Is(err, domain.ErrDomainUnverified):
		writeError(w, http.StatusUnprocessableEntity, "domain_unverified", "domain is not verified")
	case errors.Is(err, domain.ErrInvalidUsername):
		writeError(w, http.StatusBadRequest, "invalid_username", err.Error())
	case errors.Is(err, domain.ErrDomainExists):
		writeError(w, http.StatusConflict, "domain_exists", "domain already registered")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
