package tracker

import (
	"errors"
	"net/http"
)

// Domain errors for workflow operations.
var (
	ErrNotFound          = errors.New("resubmission item not found")
	ErrInvalidInput      = errors.New("invalid tracker input")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrDuplicate         = errors.New("resubmission item already exists")
)

// MapHTTPStatus maps tracker domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
