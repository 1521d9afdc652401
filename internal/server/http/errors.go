package httpserver

import (
	"errors"
	"net/http"

	"github.com/brandon-schabel/Promptliano-sub009/internal/flow"
	"github.com/brandon-schabel/Promptliano-sub009/internal/items"
)

// statusOf maps service errors to HTTP statuses. Races callers should back
// off from get 409/429; caller mistakes get 4xx; everything else is a 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, flow.ErrNotFound), errors.Is(err, items.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrDuplicateName),
		errors.Is(err, flow.ErrAlreadyQueued),
		errors.Is(err, flow.ErrAlreadyClaimed),
		errors.Is(err, flow.ErrQueueNotEmpty),
		errors.Is(err, flow.ErrOrderMismatch):
		return http.StatusConflict
	case errors.Is(err, flow.ErrCapacityExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, flow.ErrQueueInactive),
		errors.Is(err, flow.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}
