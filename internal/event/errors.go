package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for event emitters.
var (
	// ErrListenerPanic is matched by PanicError through errors.Is.
	ErrListenerPanic = errors.New("listener panicked")
)

// PanicError wraps a panic raised by a listener.
type PanicError struct {
	// Event is the name of the emitter whose listener panicked.
	Event string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panic on event %s: %v", e.Event, e.Value)
}

// Is allows errors.Is to match PanicError with ErrListenerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrListenerPanic
}
