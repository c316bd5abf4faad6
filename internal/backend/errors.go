package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSignedIn is returned when no stored credentials exist.
	ErrNotSignedIn = errors.New("backend: not signed in")

	// ErrInsufficientPoints is returned when a redemption costs more than
	// the user's balance.
	ErrInsufficientPoints = errors.New("backend: not enough points")

	// ErrRedemptionPending is returned when a real-tree redemption is
	// already awaiting fulfilment.
	ErrRedemptionPending = errors.New("backend: a redemption is already pending")
)

// APIError is a non-2xx response from the backend
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
}
