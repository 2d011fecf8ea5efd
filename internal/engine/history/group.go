package history

import (
	"time"
)

// GroupScope closes a group with defer:
//
//	defer h.GroupScope("reindent").End()
type GroupScope struct {
	history *History
	active  bool
}

// GroupScope starts a group and returns its scope.
func (h *History) GroupScope(name string) *GroupScope {
	h.BeginGroup(name)
	return &GroupScope{history: h, active: true}
}

// End ends the group. Only the first call has an effect.
func (g *GroupScope) End() {
	if g.active {
		g.history.EndGroup()
		g.active = false
	}
}

// Cancel reverts the group's commits. Only the first call has an effect.
func (g *GroupScope) Cancel() error {
	if !g.active {
		return nil
	}
	g.active = false
	return g.history.CancelGroup()
}

// BeginGroup starts collecting commits into one undo entry. Nested calls
// are ignored.
func (h *History) BeginGroup(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.grouping {
		return
	}
	h.grouping = true
	h.group = &entry{label: name, timestamp: time.Now()}
}

// EndGroup pushes the group's commits as one undo entry. An empty group
// leaves the stacks alone.
func (h *History) EndGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.grouping {
		return
	}
	g := h.group
	h.grouping = false
	h.group = nil
	if len(g.steps) > 0 {
		h.pushLocked(g)
	}
}

// CancelGroup ends the group and reverts its commits. The reverting
// commits are not recorded.
func (h *History) CancelGroup() error {
	h.mu.Lock()
	if !h.grouping {
		h.mu.Unlock()
		return nil
	}
	g := h.group
	h.grouping = false
	h.group = nil
	version := h.version
	h.mu.Unlock()

	if len(g.steps) == 0 {
		return nil
	}
	inverse, err := h.revert(g, version)
	if err != nil && len(inverse.steps) > 0 {
		h.Clear()
	}
	return err
}

// IsGrouping reports whether a group is open.
func (h *History) IsGrouping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grouping
}

// Transaction runs fn inside a group. If fn fails, the commits it made are
// reverted and its error is returned.
func (h *History) Transaction(name string, fn func() error) error {
	scope := h.GroupScope(name)
	if err := fn(); err != nil {
		if cerr := scope.Cancel(); cerr != nil {
			h.logger.Warn("reverting %q: %v", name, cerr)
		}
		return err
	}
	scope.End()
	return nil
}

// Checkpoint is a depth of the undo stack that can be returned to.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint marks the current undo depth.
func (h *History) CreateCheckpoint() Checkpoint {
	return Checkpoint{undoDepth: h.UndoCount()}
}

// UndoToCheckpoint undoes entries until the undo stack is back at cp.
func (h *History) UndoToCheckpoint(cp Checkpoint) error {
	for h.UndoCount() > cp.undoDepth {
		if err := h.Undo(); err != nil {
			return err
		}
	}
	return nil
}

// RedoToCheckpoint redoes entries until the undo stack reaches cp or the
// redo stack runs out.
func (h *History) RedoToCheckpoint(cp Checkpoint) error {
	for h.UndoCount() < cp.undoDepth && h.CanRedo() {
		if err := h.Redo(); err != nil {
			return err
		}
	}
	return nil
}
