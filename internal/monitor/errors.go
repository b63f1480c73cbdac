package monitor

import (
	"errors"
	"net/http"
)

// Domain errors for cycle operations.
var (
	ErrCycleNotFound = errors.New("cycle not found")
	ErrInvalidInput  = errors.New("invalid cycle input")
	ErrNoPayers      = errors.New("no payers configured")
)

// MapHTTPStatus maps monitor domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrCycleNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoPayers):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
