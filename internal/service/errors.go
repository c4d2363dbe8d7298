package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Domain errors. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
	ErrConflict              = errors.New("conflict")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrPaymentExceedsBalance = errors.New("payment exceeds pending balance")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrUnauthorized          = errors.New("unauthorized")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func notFoundError(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// mapNotFound converts gorm's not-found into ErrNotFound for the named entity.
func mapNotFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(entity)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}
