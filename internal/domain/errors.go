package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("player not found")
	ErrStoreUnavailable = errors.New("leaderboard store unavailable")
	ErrPlayerExists     = errors.New("player already exists")
	ErrUnknownEdition   = errors.New("unknown edition")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInternalError    = errors.New("internal server error")
)

// ValidationError reports a missing or malformed request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return e.Field + " is required"
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an operation on a player id that does not exist
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("player %q not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error was caused by bad input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsStoreUnavailable checks if the store could not be reached
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// StoreUnavailable wraps a collaborator failure so callers can classify it
func StoreUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
