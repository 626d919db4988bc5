package services

import (
	"errors"

	"storefront/internal/validators"
)

var (
	ErrInvalidEvent   = errors.New("invalid event")
	ErrEntityNotFound = errors.New("entity not found")
	ErrInvalidPeriod  = errors.New("invalid period")
	ErrBatchTooLarge  = errors.New("batch too large")
)

// EventValidationError carries the field errors of a rejected payload.
type EventValidationError struct {
	Errors validators.ValidationErrors
}

func (e *EventValidationError) Error() string {
	return ErrInvalidEvent.Error() + ": " + e.Errors.Error()
}

func (e *EventValidationError) Unwrap() error {
	return ErrInvalidEvent
}
