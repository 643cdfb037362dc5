// Package services holds the errors shared by the domain services.
package services

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
	ErrAlreadySigned = errors.New("already signed")
	ErrRoleInUse     = errors.New("role already in use")
	ErrForbidden     = errors.New("forbidden")
	ErrEditNotStaged = errors.New("edit is not staged")
)

// ValidationError carries per-field messages
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Violations collects field errors before returning them
type Violations map[string]string

// Add records a message for field unless one is already set
func (v Violations) Add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

// Err returns nil when empty, a *ValidationError otherwise
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}
