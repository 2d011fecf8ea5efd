package diagnostics

import (
	"errors"
	"slices"
	"sync"

	"github.com/dshills/exthost/internal/async"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/uri"
)

// ErrDisposed is returned by updates to a disposed collection.
var ErrDisposed = errors.New("diagnostic collection disposed")

// Entry pairs a resource with its diagnostics for SetAll.
type Entry struct {
	URI         uri.URI
	Diagnostics []Diagnostic
}

// ChangeEvent lists the resources whose diagnostics changed.
type ChangeEvent struct {
	Collection string
	URIs       []uri.URI
}

// Collection holds the diagnostics one producer reports, keyed by
// resource. Updates are idempotent: setting the diagnostics a resource
// already has does not fire OnDidChange.
type Collection struct {
	name string

	mu       sync.RWMutex
	entries  map[uri.URI][]Diagnostic
	disposed bool

	changed  *event.Emitter[ChangeEvent]
	onRemove func(*Collection)
}

func newCollection(name string, onRemove func(*Collection), opts ...event.Option) *Collection {
	return &Collection{
		name:     name,
		entries:  make(map[uri.URI][]Diagnostic),
		changed:  event.NewEmitter[ChangeEvent]("diagnostics."+name, opts...),
		onRemove: onRemove,
	}
}

// NewCollection creates a standalone collection.
func NewCollection(name string) *Collection {
	return newCollection(name, nil)
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// OnDidChange fires after diagnostics of some resources changed.
func (c *Collection) OnDidChange() event.Event[ChangeEvent] {
	return c.changed.Event()
}

// Set replaces the diagnostics of u. An empty list removes u.
func (c *Collection) Set(u uri.URI, diags []Diagnostic) *async.Future[bool] {
	return c.SetAll([]Entry{{URI: u, Diagnostics: diags}})
}

// SetAll replaces the diagnostics of several resources. Entries for the
// same URI are merged in order; an entry with nil diagnostics discards the
// ones accumulated before it for that URI.
func (c *Collection) SetAll(entries []Entry) *async.Future[bool] {
	merged := make(map[uri.URI][]Diagnostic)
	var order []uri.URI
	for _, e := range entries {
		if _, seen := merged[e.URI]; !seen {
			order = append(order, e.URI)
		}
		if e.Diagnostics == nil {
			merged[e.URI] = []Diagnostic{}
			continue
		}
		merged[e.URI] = append(merged[e.URI], e.Diagnostics...)
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return async.Rejected[bool](ErrDisposed)
	}
	var changed []uri.URI
	for _, u := range order {
		next := merged[u]
		if equalAll(c.entries[u], next) {
			continue
		}
		if len(next) == 0 {
			delete(c.entries, u)
		} else {
			c.entries[u] = slices.Clone(next)
		}
		changed = append(changed, u)
	}
	c.mu.Unlock()

	c.notify(changed)
	return async.Resolved(true)
}

// Delete removes the diagnostics of u.
func (c *Collection) Delete(u uri.URI) *async.Future[bool] {
	return c.Set(u, nil)
}

// Clear removes all diagnostics.
func (c *Collection) Clear() *async.Future[bool] {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return async.Rejected[bool](ErrDisposed)
	}
	changed := c.urisLocked()
	clear(c.entries)
	c.mu.Unlock()

	c.notify(changed)
	return async.Resolved(true)
}

// Get returns a copy of the diagnostics of u.
func (c *Collection) Get(u uri.URI) []Diagnostic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entries[u])
}

// Has reports whether u has diagnostics.
func (c *Collection) Has(u uri.URI) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[u]
	return ok
}

// URIs returns the resources with diagnostics, sorted.
func (c *Collection) URIs() []uri.URI {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.urisLocked()
}

func (c *Collection) urisLocked() []uri.URI {
	out := make([]uri.URI, 0, len(c.entries))
	for u := range c.entries {
		out = append(out, u)
	}
	slices.SortFunc(out, uri.Compare)
	return out
}

// ForEach calls fn for every resource in URI order until fn returns false.
func (c *Collection) ForEach(fn func(u uri.URI, diags []Diagnostic) bool) {
	for _, u := range c.URIs() {
		diags := c.Get(u)
		if len(diags) == 0 {
			continue
		}
		if !fn(u, diags) {
			return
		}
	}
}

// Summary counts the diagnostics per severity.
func (c *Collection) Summary() Summary {
	var s Summary
	c.ForEach(func(_ uri.URI, diags []Diagnostic) bool {
		s.add(diags)
		return true
	})
	return s
}

// Dispose clears the collection and detaches it from its manager.
func (c *Collection) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	changed := c.urisLocked()
	clear(c.entries)
	c.disposed = true
	c.mu.Unlock()

	c.notify(changed)
	c.changed.Dispose()
	if c.onRemove != nil {
		c.onRemove(c)
	}
}

func (c *Collection) notify(changed []uri.URI) {
	if len(changed) == 0 {
		return
	}
	slices.SortFunc(changed, uri.Compare)
	c.changed.Fire(ChangeEvent{Collection: c.name, URIs: changed})
}

// Summary provides diagnostic counts.
type Summary struct {
	Files    int
	Errors   int
	Warnings int
	Infos    int
	Hints    int
}

func (s *Summary) add(diags []Diagnostic) {
	s.Files++
	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		case SeverityInformation:
			s.Infos++
		case SeverityHint:
			s.Hints++
		}
	}
}
