package analyzer

import (
	"errors"
	"net/http"
)

// Domain errors for analysis operations.
var (
	ErrNotFound     = errors.New("analysis not found")
	ErrNoRecords    = errors.New("no records in window")
	ErrInvalidInput = errors.New("invalid analysis input")
)

// MapHTTPStatus maps analysis domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoRecords), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
