package handlers

import (
	"errors"
	"net/http"

	"chronos-exchange/internal/services"
)

// statusForError maps service sentinel errors to HTTP statuses. Amount and
// funds problems are the caller's to fix (400), missing or unavailable
// markets are reported as such (404/409).
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInvalidOutcome):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrMarketNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrMarketClosed),
		errors.Is(err, services.ErrMarketNotClosed),
		errors.Is(err, services.ErrAlreadyResolved):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
