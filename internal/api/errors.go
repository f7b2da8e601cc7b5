package api

import (
	"errors"
	"net/http"

	"github.com/coursepulse/classifier-api/internal/service"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrTaskNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return "Invalid review text"

	case errors.Is(err, service.ErrTaskNotFound):
		return "Classification task not found"

	case errors.Is(err, service.ErrUnavailable):
		return "Classification service temporarily unavailable"

	default:
		return "An unexpected error occurred"
	}
}
