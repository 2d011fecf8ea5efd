package plugin

// State is the lifecycle state of an extension.
type State int

// Extension states.
const (
	StateUnloaded State = iota
	StateLoaded
	StateActivating
	StateActive
	StateDeactivating
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateDeactivating:
		return "deactivating"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsUsable reports whether the extension is loaded or active.
func (s State) IsUsable() bool {
	return s == StateLoaded || s == StateActive
}
