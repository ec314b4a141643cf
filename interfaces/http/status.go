package http

import (
	"errors"
	"net/http"

	"prism-connector/usecase"
)

// statusFor maps the usecase error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrCredential):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usecase.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, usecase.ErrConfig):
		return http.StatusServiceUnavailable
	case errors.Is(err, usecase.ErrAccountResolution),
		errors.Is(err, usecase.ErrContainer),
		errors.Is(err, usecase.ErrNotReady):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
