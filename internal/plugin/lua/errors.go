package lua

import (
	"errors"
	"fmt"
)

// Errors for script operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a call runs past its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNotFunction is returned when a called global is not a function.
	ErrNotFunction = errors.New("not a lua function")

	// ErrBadResult is returned when a script returns a malformed value.
	ErrBadResult = errors.New("malformed script result")
)

// ScriptError reports a failure inside a provider script.
type ScriptError struct {
	Script string
	Func   string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Script, e.Func, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
