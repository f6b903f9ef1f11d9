package types

import (
	"github.com/pkg/errors"
)

// ErrValidation is matched by every validation error (errors.Is)
var ErrValidation = errors.New("Validation failed")

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}

func (e *validationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation errors
var (
	ErrNonPositiveAmount = error(&validationError{msg: "Amount must be greater than zero"})
	ErrMalformedAmount   = error(&validationError{msg: "Malformed amount"})
	ErrInvalidAccount    = error(&validationError{msg: "Invalid account details"})
)

// Business rule and lookup errors
var (
	ErrInsufficientFunds = errors.New("Insufficient funds")

	// ErrAuthenticationFailed is the only error returned to callers for
	// both unknown account and wrong password
	ErrAuthenticationFailed = errors.New("Invalid account number or password")

	ErrDuplicateAccountNo = errors.New("Account number already exists")
	ErrAccountNotFound    = errors.New("Account not found")
)

// ErrStoreUnavailable is matched by any store I/O or timeout failure (errors.Is)
var ErrStoreUnavailable = errors.New("Store unavailable")

type storeUnavailableError struct {
	cause error
}

func (e *storeUnavailableError) Error() string {
	return ErrStoreUnavailable.Error() + ": " + e.cause.Error()
}

func (e *storeUnavailableError) Cause() error {
	return e.cause
}

func (e *storeUnavailableError) Unwrap() error {
	return e.cause
}

func (e *storeUnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// StoreUnavailable marks the err as a store failure. Errors that are
// already marked are returned as is
func StoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return &storeUnavailableError{cause: err}
}
