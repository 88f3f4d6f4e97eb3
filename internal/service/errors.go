// Package service implements the rental marketplace operations: renter
// registration and sessions, the inventory and request lifecycle, and
// customer identity submissions.  Every operation returns one of the
// sentinel errors below (possibly wrapped) or an internal error.
package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// ValidationError names the offending input field.  It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// conflict wraps ErrConflict with a client-facing reason.
func conflict(msg string) error { return fmt.Errorf("%w: %s", ErrConflict, msg) }
