package cursor

// Set manages the ordered selections of one editor.
// The first selection is the primary selection. Order is preserved as given
// and selections are never merged, so callers keep control over which one
// is primary. A Set always holds at least one selection.
type Set struct {
	selections []Selection
}

// NewSet creates a set from selections. An empty input yields a single
// cursor at the document start.
func NewSet(selections ...Selection) *Set {
	s := &Set{}
	s.Replace(selections)
	return s
}

// Primary returns the primary (first) selection.
func (s *Set) Primary() Selection {
	return s.selections[0]
}

// All returns a copy of all selections.
// The returned slice is safe to modify without affecting the Set.
func (s *Set) All() []Selection {
	out := make([]Selection, len(s.selections))
	copy(out, s.selections)
	return out
}

// Len returns the number of selections.
func (s *Set) Len() int {
	return len(s.selections)
}

// Replace swaps in a new list of selections.
func (s *Set) Replace(selections []Selection) {
	if len(selections) == 0 {
		s.selections = []Selection{{}}
		return
	}
	s.selections = make([]Selection, len(selections))
	copy(s.selections, selections)
}

// Remap moves every selection through the changes, then passes each end
// through clamp (typically Document.ValidatePosition). It reports whether
// any selection changed.
func (s *Set) Remap(changes []Change, clamp func(Position) Position) bool {
	changed := false
	for i, sel := range s.selections {
		next := RemapSelection(sel, changes)
		if clamp != nil {
			next = Selection{Anchor: clamp(next.Anchor), Active: clamp(next.Active)}
		}
		if next != sel {
			changed = true
		}
		s.selections[i] = next
	}
	return changed
}

// Clamp passes every selection end through clamp without remapping.
func (s *Set) Clamp(clamp func(Position) Position) bool {
	return s.Remap(nil, clamp)
}

// Equal reports whether both sets hold the same selections in the same order.
func (s *Set) Equal(other []Selection) bool {
	if len(other) != len(s.selections) {
		return false
	}
	for i := range other {
		if other[i] != s.selections[i] {
			return false
		}
	}
	return true
}
