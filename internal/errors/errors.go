// Package errors defines the failure taxonomy shared by the settings resolver,
// the auth handlers and the secret reader.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks malformed or missing settings. Fatal at configure time.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuthentication marks a rejected credential or an unusable credential set.
	ErrAuthentication = errors.New("authentication error")
	// ErrValidation marks credentials that were rejected locally, before any call was made.
	ErrValidation = errors.New("validation error")
	// ErrUnsupportedOperation marks a login method without a registered handler.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrRead marks a failed secret read. Reads may be retried by the caller.
	ErrRead = errors.New("secret read error")
	// ErrNotReady is returned when a read is attempted before the provider is ready.
	ErrNotReady = errors.New("provider is not ready")
)

// ConfigurationError reports a setting that could not be decoded or failed validation.
type ConfigurationError struct {
	Key     string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid configuration")
	if e.Key != "" {
		fmt.Fprintf(&b, " for '%s'", e.Key)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// AuthenticationError reports that the backend rejected the configured credentials.
type AuthenticationError struct {
	Method  string
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("authentication via %s failed", e.Method)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// ValidationError lists the credential fields that are missing. Err combines one
// error per field and can be split with multierr.Errors.
type ValidationError struct {
	Method  string
	Missing []string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s login requires %s to be set", e.Method, strings.Join(e.Missing, " and "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is matches both ErrValidation and ErrAuthentication: a missing credential is an
// authentication failure that was caught before calling the backend.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == ErrAuthentication
}

// UnsupportedOperationError is returned when no handler is registered for a login method.
type UnsupportedOperationError struct {
	Method string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("'%s' does not have an auth handler defined", e.Method)
}

func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupportedOperation }

// ReadError reports a failed secret read. A non-200 response sets Status,
// ContentType and Body. A call-level failure sets Err instead.
type ReadError struct {
	Path        string
	Status      int
	ContentType string
	Body        string
	Err         error
}

func (e *ReadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("vault path '%s' was not found. response details: { code: [%d], mimeType: [%s], response: [%s] }",
			e.Path, e.Status, e.ContentType, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("exception thrown reading from '%s': %v", e.Path, e.Err)
	}
	return fmt.Sprintf("exception thrown reading from '%s'", e.Path)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrRead }
