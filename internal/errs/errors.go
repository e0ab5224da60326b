// FILE: internal/errs/errors.go
package errs

import (
	"errors"
	"fmt"
)

// StoreErrorKind classifies backend rejections from the row store.
type StoreErrorKind string

const (
	StoreNotFound   StoreErrorKind = "NOT_FOUND"
	StoreForeignKey StoreErrorKind = "FOREIGN_KEY_VIOLATION"
	StoreInternal   StoreErrorKind = "INTERNAL"
)

// StoreError wraps a failure reported by the backing row store.
type StoreError struct {
	Op    string
	Kind  StoreErrorKind
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed (%s): %v", e.Op, e.Kind, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

func NewStoreError(op string, kind StoreErrorKind, cause error) *StoreError {
	return &StoreError{Op: op, Kind: kind, Cause: cause}
}

// AuthError covers identity provider failures. InvalidRefresh marks the
// distinguished "invalid refresh token" case that forces a re-authentication.
type AuthError struct {
	Message        string
	InvalidRefresh bool
	Cause          error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth: %s: %v", e.Message, e.Cause)
	}
	return "auth: " + e.Message
}

func (e *AuthError) Unwrap() error { return e.Cause }

// IsInvalidRefresh reports whether err is an AuthError caused by an invalid
// or expired refresh credential.
func IsInvalidRefresh(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.InvalidRefresh
}

// GenerationError covers generator provider failures and unparsable output.
type GenerationError struct {
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation: %s: %v", e.Message, e.Cause)
	}
	return "generation: " + e.Message
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// ValidationError rejects malformed input before any network round-trip.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
