package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrTimingViolation       = errors.New("timing violation")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInsufficientPayment   = errors.New("insufficient payment")
	ErrCapExceeded           = errors.New("per-customer cap exceeded")
	ErrStateDisabled         = errors.New("sale or buyback disabled")
	ErrPreconditionFailed    = errors.New("precondition failed")
	ErrTransferFailed        = errors.New("transfer failed")
	ErrNoParticipation       = errors.New("no participation")
	ErrOverflow              = errors.New("arithmetic overflow")
)
