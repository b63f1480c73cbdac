package notify

import (
	"errors"
	"net/http"
)

// Domain errors for notification operations.
var (
	ErrNotFound     = errors.New("notification not found")
	ErrInvalidInput = errors.New("invalid notification input")
	ErrNoRoute      = errors.New("no routing configuration for branch")

	// Adapter error taxonomy. Rejected is permanent for the notification;
	// timeout is retryable until the attempt budget runs out.
	ErrChannelRejected = errors.New("channel rejected payload")
	ErrChannelTimeout  = errors.New("channel delivery timed out")
)

// MapHTTPStatus maps notification domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoRoute):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
