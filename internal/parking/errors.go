package parking

import "errors"

// Sentinel errors shared across the aggregate and the HTTP layer.
// Every failed precondition aborts the operation with no state change.
var (
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrSlotNotOccupied   = errors.New("slot not occupied")
	ErrSlotNotFound      = errors.New("slot not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrHoldExpired       = errors.New("reservation hold expired")
)
