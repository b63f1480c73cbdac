package sheets

import (
	"errors"
	"net/http"
)

// Domain errors for sheet operations.
var (
	ErrNotFound     = errors.New("sheet not found")
	ErrDuplicate    = errors.New("sheet fingerprint already seen for payer")
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	ErrInvalidInput = errors.New("invalid sheet input")
	ErrNotPending   = errors.New("sheet is not pending")
)

// MapHTTPStatus maps sheet domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotPending):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
