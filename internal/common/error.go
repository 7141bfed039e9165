// Package common holds error values shared by the client and the server.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is returned when the remote store cannot be reached.
	ErrNetwork = errors.New("network error")
	// ErrNotFound is returned when a blob, journal or entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorage is returned when a journal cannot be persisted or loaded.
	ErrStorage = errors.New("storage error")
	// ErrConflict is returned when an import targets a journal that already exists.
	ErrConflict = errors.New("journal with this id already exists")
	// ErrInvalidKey is returned for malformed or mismatched keys.
	ErrInvalidKey = errors.New("invalid key")
	// ErrRejected is returned when the remote store refuses a write.
	ErrRejected = errors.New("remote store rejected request")
	// ErrAccessDenied is returned when a private key does not match its address.
	ErrAccessDenied = errors.New("access denied")
	// ErrTooLarge is returned when a blob exceeds the configured limit.
	ErrTooLarge = errors.New("blob too large")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
