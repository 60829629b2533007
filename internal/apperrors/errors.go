package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInsufficientBalance indicates a spend larger than the customer's current coin balance.
var ErrInsufficientBalance = errors.New("insufficient coin balance")

// ErrNegativeBalance indicates the customer carries unresolved debt from a
// reversal or expiry; redemption stays frozen until a credit clears it.
var ErrNegativeBalance = errors.New("coin balance is negative")

// ErrLockTimeout indicates the per-customer wallet lock could not be acquired
// in time. Callers should retry with the same idempotency key.
var ErrLockTimeout = errors.New("timed out waiting for wallet lock")

// Code maps an error to its stable, user-facing error code. Infrastructure
// errors have no code and return the empty string.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return "INSUFFICIENT_BALANCE"
	case errors.Is(err, ErrNegativeBalance):
		return "NEGATIVE_BALANCE"
	case errors.Is(err, ErrLockTimeout):
		return "LOCK_TIMEOUT"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrDuplicate):
		return "DUPLICATE"
	default:
		return ""
	}
}
