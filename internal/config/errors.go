package config

import (
	"errors"
	"fmt"
)

// Standard errors returned by the config package.
var (
	// ErrNotFound indicates an explicitly requested file does not exist.
	ErrNotFound = errors.New("config file not found")

	// ErrInvalidValue indicates a value of the wrong type.
	ErrInvalidValue = errors.New("invalid config value")
)

// ValidationError reports a setting outside its allowed range.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}
