package domain

import (
	"errors"
	"strings"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrUserExists: the auth subject or email is already registered.
	ErrUserExists = errors.New("user already registered")

	// ErrUnauthorized: the caller is authenticated but does not own the
	// resource (another doctor's appointment, another pharmacy's stock).
	ErrUnauthorized = errors.New("not authorized to act on this resource")

	// ErrForbidden: the caller's role may not use the operation at all.
	ErrForbidden = errors.New("forbidden: insufficient permissions")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Problems collects validation messages; Err is nil when none were added.
type Problems []string

func (p *Problems) Add(cond bool, msg string) {
	if cond {
		*p = append(*p, msg)
	}
}

func (p Problems) Err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Fields: p}
}
