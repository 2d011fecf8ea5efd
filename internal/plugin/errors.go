package plugin

import "errors"

// Extension errors.
var (
	// ErrNotFound is returned when an extension cannot be located.
	ErrNotFound = errors.New("extension not found")

	// ErrNoEntryPoint is returned when an extension has no script to run.
	ErrNoEntryPoint = errors.New("extension has no entry point (init.lua or extension.lua)")

	// ErrAlreadyLoaded is returned when loading an extension twice.
	ErrAlreadyLoaded = errors.New("extension is already loaded")

	// ErrNotLoaded is returned when activating an extension that is not loaded.
	ErrNotLoaded = errors.New("extension is not loaded")

	// ErrDisabled is returned when loading an extension the configuration disables.
	ErrDisabled = errors.New("extension is disabled")

	// ErrDependencyNotFound is returned when a required extension is missing.
	ErrDependencyNotFound = errors.New("extension dependency not found")

	// ErrCyclicDependency is returned when extensions depend on each other.
	ErrCyclicDependency = errors.New("cyclic extension dependency")
)
