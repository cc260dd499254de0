package services

import "errors"

// Domain errors surfaced to controllers. Validation errors map to 4xx and
// are never retried; anything else is treated as a backend failure.
var (
	ErrInvalidToken           = errors.New("invalid table token")
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionAlreadyClosed   = errors.New("session already closed")
	ErrEmptyOrder             = errors.New("order must contain at least one item")
	ErrInvalidOrderLine       = errors.New("invalid order line")
	ErrSessionClosedForOrders = errors.New("session no longer accepts orders")
	ErrIllegalTransition      = errors.New("illegal status transition")
	ErrMissingStaffIdentity   = errors.New("staff identity is required")
	ErrOrderNotFound          = errors.New("order not found")
	ErrTableNotFound          = errors.New("table not found")
	ErrLocationUnavailable    = errors.New("location unavailable")
)
