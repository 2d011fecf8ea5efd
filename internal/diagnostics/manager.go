package diagnostics

import (
	"slices"
	"strconv"
	"sync"

	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/uri"
)

// Manager owns the collections of all producers and aggregates their
// diagnostics per resource.
type Manager struct {
	mu          sync.RWMutex
	collections []*Collection
	subs        map[*Collection]event.Disposable
	counter     int

	changed *event.Emitter[ChangeEvent]
	logger  *logging.Logger
}

// NewManager creates an empty manager.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop
	}
	m := &Manager{
		subs:   make(map[*Collection]event.Disposable),
		logger: logger,
	}
	m.changed = event.NewEmitter[ChangeEvent]("diagnostics", m.errorHandler())
	return m
}

func (m *Manager) errorHandler() event.Option {
	return event.WithErrorHandler(func(err error) {
		m.logger.Error("diagnostics listener failed: %v", err)
	})
}

// CreateCollection creates a collection owned by the manager. An empty
// name gets a generated one. Changes of the collection are forwarded to
// the manager's OnDidChange.
func (m *Manager) CreateCollection(name string) *Collection {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		m.counter++
		name = "_generated_diagnostic_collection_name_#" + strconv.Itoa(m.counter)
	}
	c := newCollection(name, m.remove, m.errorHandler())
	m.collections = append(m.collections, c)
	m.subs[c] = c.OnDidChange()(m.changed.Fire)
	return c
}

func (m *Manager) remove(c *Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = slices.DeleteFunc(m.collections, func(x *Collection) bool { return x == c })
	if sub, ok := m.subs[c]; ok {
		sub.Dispose()
		delete(m.subs, c)
	}
}

// OnDidChange fires after diagnostics of any collection changed.
func (m *Manager) OnDidChange() event.Event[ChangeEvent] {
	return m.changed.Event()
}

// Collections returns the live collections in creation order.
func (m *Manager) Collections() []*Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.collections)
}

// Get returns the diagnostics of u from every collection, sorted by
// position.
func (m *Manager) Get(u uri.URI) []Diagnostic {
	var all []Diagnostic
	for _, c := range m.Collections() {
		all = append(all, c.Get(u)...)
	}
	Sort(all)
	return all
}

// All returns every resource's merged diagnostics.
func (m *Manager) All() map[uri.URI][]Diagnostic {
	out := make(map[uri.URI][]Diagnostic)
	for _, c := range m.Collections() {
		c.ForEach(func(u uri.URI, diags []Diagnostic) bool {
			out[u] = append(out[u], diags...)
			return true
		})
	}
	for _, diags := range out {
		Sort(diags)
	}
	return out
}

// Summary counts diagnostics across all collections.
func (m *Manager) Summary() Summary {
	var s Summary
	for _, diags := range m.All() {
		s.add(diags)
	}
	return s
}

// Dispose disposes every collection.
func (m *Manager) Dispose() {
	for _, c := range m.Collections() {
		c.Dispose()
	}
	m.changed.Dispose()
}
