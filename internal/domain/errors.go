package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint would be violated.
	ErrAlreadyExists = errors.New("already exists")

	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrAddressNotFound  = fmt.Errorf("address %w", ErrNotFound)

	ErrDuplicatePhone = fmt.Errorf("customer with this phone number %w", ErrAlreadyExists)
	ErrDuplicateEmail = fmt.Errorf("customer with this email %w", ErrAlreadyExists)
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any store access when input is malformed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
