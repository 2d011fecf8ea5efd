package workspace

import (
	"slices"
	"sync"

	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/engine/buffer"
	"github.com/dshills/exthost/internal/uri"
)

// Edit is a batch of edit operations across several documents. It is built
// by a provider or command and consumed exactly once by Apply.
type Edit struct {
	mu       sync.Mutex
	entries  map[uri.URI][]engine.Edit
	consumed bool
}

// Entry is one resource of an Edit with its operations in insertion order.
type Entry struct {
	URI   uri.URI
	Edits []engine.Edit
}

// NewEdit returns an empty batch.
func NewEdit() *Edit {
	return &Edit{entries: make(map[uri.URI][]engine.Edit)}
}

// Replace adds replacing r in u with text.
func (e *Edit) Replace(u uri.URI, r engine.Range, text string) {
	e.add(u, buffer.NewReplace(r, text))
}

// Insert adds inserting text at p in u.
func (e *Edit) Insert(u uri.URI, p engine.Position, text string) {
	e.add(u, buffer.NewInsert(p, text))
}

// Delete adds deleting r in u.
func (e *Edit) Delete(u uri.URI, r engine.Range) {
	e.add(u, buffer.NewDelete(r))
}

// Set replaces all operations for u. An empty list removes u.
func (e *Edit) Set(u uri.URI, edits []engine.Edit) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(edits) == 0 {
		delete(e.entries, u)
		return
	}
	e.entries[u] = slices.Clone(edits)
}

func (e *Edit) add(u uri.URI, edit engine.Edit) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries[u] = append(e.entries[u], edit)
}

// Get returns the operations for u.
func (e *Edit) Get(u uri.URI) []engine.Edit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.entries[u])
}

// Has reports whether u has operations.
func (e *Edit) Has(u uri.URI) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.entries[u]
	return ok
}

// Entries returns every resource with its operations, ordered by URI.
func (e *Edit) Entries() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Entry, 0, len(e.entries))
	for u, edits := range e.entries {
		out = append(out, Entry{URI: u, Edits: slices.Clone(edits)})
	}
	slices.SortFunc(out, func(a, b Entry) int { return uri.Compare(a.URI, b.URI) })
	return out
}

// Size returns the total number of operations across all resources.
func (e *Edit) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, edits := range e.entries {
		n += len(edits)
	}
	return n
}

// consume marks the batch as used. It reports false if it already was.
func (e *Edit) consume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.consumed {
		return false
	}
	e.consumed = true
	return true
}
