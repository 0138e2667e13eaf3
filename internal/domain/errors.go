package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrAvailabilityConflict = errors.New("not available for selected dates")
	ErrTransientIO          = errors.New("temporarily unavailable, please retry")
	ErrPayment              = errors.New("payment failed")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidTransition    = errors.New("invalid state transition")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) Error() string { return fmt.Sprintf("%s: %s", f.Field, f.Message) }

// ValidationErrors reports field-level input problems. It matches ErrValidation.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, f := range v {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

func (v ValidationErrors) Is(target error) bool { return target == ErrValidation }

func Invalid(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

// Transient marks a store or provider failure as retryable while keeping the cause.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrTransientIO, err))
}
