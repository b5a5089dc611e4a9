package vimeo

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrUnsupportedMethod = errors.New("unsupported method")
	ErrNoToken           = errors.New("no access token")
)

// ConfigurationError reports credential material that is missing or unusable.
// Callers must fix their inputs.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "vimeo: " + e.Reason
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnsupportedMethodError reports a verb outside the allowed set or one the
// backing transport does not provide. It indicates a programming error.
type UnsupportedMethodError struct {
	Method string

	// missing is set when the verb is allowed but absent from the transport.
	missing bool
}

func (e *UnsupportedMethodError) Error() string {
	if e.missing {
		return fmt.Sprintf("%q could not be found in the backing transport", e.Method)
	}
	return fmt.Sprintf("%q is not an HTTP method", e.Method)
}

// Is matches ErrUnsupportedMethod.
func (e *UnsupportedMethodError) Is(target error) bool {
	return target == ErrUnsupportedMethod
}
