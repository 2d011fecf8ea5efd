package app

import (
	"errors"
	"fmt"
)

// Context errors.
var (
	// ErrClosed indicates the context was already closed.
	ErrClosed = errors.New("context closed")

	// ErrEditorNotVisible indicates an editor that is not shown.
	ErrEditorNotVisible = errors.New("editor not visible")

	// ErrInitialization indicates a startup failure.
	ErrInitialization = errors.New("initialization failed")
)

// InitError reports which component failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}

// Is matches ErrInitialization.
func (e *InitError) Is(target error) bool {
	return target == ErrInitialization
}
