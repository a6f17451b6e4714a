package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/restakelabs/risk-oracle/internal/domain"
)

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error body {"error": message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteDomainError maps a core error kind to its HTTP status so drivers can
// tell "retry later" (503) from "do not retry" (4xx).
func WriteDomainError(w http.ResponseWriter, err error) {
	WriteError(w, StatusFor(err), err.Error())
}

// StatusFor maps the error taxonomy to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotOptedIn):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoSafeTarget):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOracleUnset):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
