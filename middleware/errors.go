package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/coursegate"
)

type errorBody struct {
	Detail string `json:"detail"`
}

// StatusFor maps an Engine error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, coursegate.ErrUnauthenticated),
		errors.Is(err, coursegate.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, coursegate.ErrForbidden),
		errors.Is(err, coursegate.ErrAccountDisabled):
		return http.StatusForbidden
	case errors.Is(err, coursegate.ErrStoreUnavailable),
		errors.Is(err, coursegate.ErrAuditUnavailable),
		errors.Is(err, coursegate.ErrResolverFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes a JSON error response for err. 401 responses carry a
// challenge for both accepted credential kinds.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	detail := http.StatusText(status)
	switch status {
	case http.StatusUnauthorized:
		w.Header().Add("WWW-Authenticate", "Cookie")
		w.Header().Add("WWW-Authenticate", "Bearer")
		detail = "Not authenticated"
		if errors.Is(err, coursegate.ErrInvalidCredentials) {
			detail = "Invalid credentials"
		}
	case http.StatusForbidden:
		detail = "Forbidden"
		if errors.Is(err, coursegate.ErrAccountDisabled) {
			detail = "Account disabled"
		}
	case http.StatusServiceUnavailable:
		detail = "Authentication temporarily unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Detail: detail})
}
