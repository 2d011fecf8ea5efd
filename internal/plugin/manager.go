package plugin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dshills/exthost/internal/config"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/languages"
	"github.com/dshills/exthost/internal/logging"
	plua "github.com/dshills/exthost/internal/plugin/lua"
	"github.com/dshills/exthost/internal/workspace"
)

// Extension is a loaded extension.
type Extension struct {
	manifest *Manifest
	script   *plua.Script

	mu    sync.Mutex
	state State
	err   error
	subs  []event.Disposable
}

// Name returns the extension name.
func (e *Extension) Name() string { return e.manifest.Name }

// Manifest returns the extension manifest.
func (e *Extension) Manifest() *Manifest { return e.manifest }

// Script returns the extension's script.
func (e *Extension) Script() *plua.Script { return e.script }

// State returns the lifecycle state.
func (e *Extension) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the error that put the extension in StateError.
func (e *Extension) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Extension) setState(s State, err error) {
	e.mu.Lock()
	e.state, e.err = s, err
	e.mu.Unlock()
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Paths are searched for extensions in order.
	Paths []string

	// Disabled names extensions that are never loaded.
	Disabled []string

	// AutoActivate activates extensions as they load.
	AutoActivate bool

	// StateOptions configure each extension's interpreter.
	StateOptions []plua.StateOption
}

// ConfigFrom builds a manager configuration from the [extensions] section,
// resolving relative paths against base.
func ConfigFrom(cfg config.ExtensionsConfig, base string) ManagerConfig {
	paths := cfg.SearchPaths(base)
	if len(paths) == 0 {
		paths = DefaultPaths()
	}
	return ManagerConfig{
		Paths:        paths,
		Disabled:     cfg.Disabled,
		AutoActivate: cfg.AutoActivate,
	}
}

// EventType is the kind of a ManagerEvent.
type EventType int

// Manager events.
const (
	EventLoaded EventType = iota
	EventUnloaded
	EventActivated
	EventDeactivated
	EventReloaded
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventLoaded:
		return "loaded"
	case EventUnloaded:
		return "unloaded"
	case EventActivated:
		return "activated"
	case EventDeactivated:
		return "deactivated"
	case EventReloaded:
		return "reloaded"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// ManagerEvent reports a lifecycle change.
type ManagerEvent struct {
	Type      EventType
	Extension string
	Err       error
}

// Manager loads extensions and binds their contributions to a language
// registry.
type Manager struct {
	mu         sync.RWMutex
	loader     *Loader
	extensions map[string]*Extension
	loadOrder  []string

	registry  *languages.Registry
	languages *workspace.Languages
	config    ManagerConfig
	logger    *logging.Logger
	changes   *event.Emitter[ManagerEvent]
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLanguages sets the mapping that receives language contributions.
// Without it they are ignored.
func WithLanguages(l *workspace.Languages) ManagerOption {
	return func(m *Manager) { m.languages = l }
}

// WithLogger sets the manager's logger.
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager registering providers with reg.
func NewManager(reg *languages.Registry, cfg ManagerConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		loader:     NewLoader(WithPaths(cfg.Paths...)),
		extensions: make(map[string]*Extension),
		registry:   reg,
		config:     cfg,
		logger:     logging.New("extensions"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.changes = event.NewEmitter[ManagerEvent]("extensions", event.WithErrorHandler(func(err error) {
		m.logger.Error("extension listener: %v", err)
	}))
	return m
}

// OnDidChange fires after every lifecycle change.
func (m *Manager) OnDidChange() event.Event[ManagerEvent] {
	return m.changes.Event()
}

// Loader returns the manager's loader.
func (m *Manager) Loader() *Loader {
	return m.loader
}

// Discover scans the search paths.
func (m *Manager) Discover() ([]*Info, error) {
	return m.loader.Discover()
}

// Load loads name and, first, its dependencies. With AutoActivate the
// extensions are activated as they load; an activation failure leaves the
// extension loaded in StateError and is reported through OnDidChange.
func (m *Manager) Load(ctx context.Context, name string) (*Extension, error) {
	return m.load(ctx, name, nil)
}

func (m *Manager) load(ctx context.Context, name string, chain []string) (*Extension, error) {
	if slices.Contains(chain, name) {
		return nil, fmt.Errorf("%w: %v -> %s", ErrCyclicDependency, chain, name)
	}
	if slices.Contains(m.config.Disabled, name) {
		return nil, fmt.Errorf("%q: %w", name, ErrDisabled)
	}
	m.mu.RLock()
	_, exists := m.extensions[name]
	m.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%q: %w", name, ErrAlreadyLoaded)
	}

	info, err := m.loader.Find(name)
	if err != nil {
		return nil, err
	}

	chain = append(chain, name)
	for _, dep := range info.Manifest.Dependencies {
		if _, ok := m.Get(dep); ok {
			continue
		}
		if _, err := m.load(ctx, dep, chain); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%q requires %q: %w", name, dep, ErrDependencyNotFound)
			}
			return nil, fmt.Errorf("%q requires %q: %w", name, dep, err)
		}
	}

	script, err := plua.LoadAs(name, info.Manifest.MainPath(), m.config.StateOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load extension %q: %w", name, err)
	}
	ext := &Extension{manifest: info.Manifest, script: script, state: StateLoaded}

	m.mu.Lock()
	if _, exists := m.extensions[name]; exists {
		m.mu.Unlock()
		script.Close()
		return nil, fmt.Errorf("%q: %w", name, ErrAlreadyLoaded)
	}
	m.extensions[name] = ext
	m.loadOrder = append(m.loadOrder, name)
	m.mu.Unlock()

	m.logger.Debug("loaded %s", info.Manifest)
	m.changes.Fire(ManagerEvent{Type: EventLoaded, Extension: name})

	if m.config.AutoActivate {
		_ = m.activate(ctx, ext)
	}
	return ext, nil
}

// LoadAll discovers and loads every extension that is not disabled.
// Failures are joined; the other extensions still load.
func (m *Manager) LoadAll(ctx context.Context) error {
	infos, err := m.loader.Discover()
	if err != nil {
		return err
	}

	var errs []error
	for _, info := range infos {
		if info.Error != nil {
			errs = append(errs, fmt.Errorf("%s: %w", info.Name, info.Error))
			continue
		}
		if slices.Contains(m.config.Disabled, info.Name) {
			m.logger.Debug("skipping disabled extension %s", info.Name)
			continue
		}
		if _, ok := m.Get(info.Name); ok {
			// Loaded as a dependency.
			continue
		}
		if _, err := m.Load(ctx, info.Name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to load %d extensions: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Activate activates a loaded extension.
func (m *Manager) Activate(ctx context.Context, name string) error {
	ext, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrNotLoaded)
	}
	return m.activate(ctx, ext)
}

func (m *Manager) activate(ctx context.Context, ext *Extension) error {
	ext.mu.Lock()
	if ext.state == StateActive {
		ext.mu.Unlock()
		return nil
	}
	ext.state = StateActivating
	ext.mu.Unlock()

	subs := m.bind(ext)
	if err := ext.script.CallHook(ctx, plua.FuncActivate); err != nil {
		event.From(subs...).Dispose()
		ext.setState(StateError, err)
		m.logger.Warn("activating %s: %v", ext.Name(), err)
		m.changes.Fire(ManagerEvent{Type: EventError, Extension: ext.Name(), Err: err})
		return err
	}

	ext.mu.Lock()
	ext.state, ext.err, ext.subs = StateActive, nil, subs
	ext.mu.Unlock()
	m.changes.Fire(ManagerEvent{Type: EventActivated, Extension: ext.Name()})
	return nil
}

// bind registers the extension's contributions.
func (m *Manager) bind(ext *Extension) []event.Disposable {
	if m.languages != nil {
		for _, lang := range ext.manifest.Contributes.Languages {
			m.languages.Register(lang.ID, lang.Extensions...)
		}
	}
	var subs []event.Disposable
	for _, p := range ext.manifest.ProviderContributions() {
		selector := languages.ForLanguages(p.Languages...)
		if len(p.Languages) == 0 {
			selector = languages.ForLanguages("*")
		}
		subs = append(subs, ext.script.Register(m.registry, selector, p.Kinds...))
	}
	return subs
}

// Deactivate unbinds an active extension and calls its deactivate hook.
// The providers are removed even if the hook fails.
func (m *Manager) Deactivate(ctx context.Context, name string) error {
	ext, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrNotLoaded)
	}
	return m.deactivate(ctx, ext)
}

func (m *Manager) deactivate(ctx context.Context, ext *Extension) error {
	ext.mu.Lock()
	if ext.state != StateActive {
		ext.mu.Unlock()
		return nil
	}
	ext.state = StateDeactivating
	subs := ext.subs
	ext.subs = nil
	ext.mu.Unlock()

	event.From(subs...).Dispose()
	if err := ext.script.CallHook(ctx, plua.FuncDeactivate); err != nil {
		ext.setState(StateError, err)
		m.changes.Fire(ManagerEvent{Type: EventError, Extension: ext.Name(), Err: err})
		return err
	}
	ext.setState(StateLoaded, nil)
	m.changes.Fire(ManagerEvent{Type: EventDeactivated, Extension: ext.Name()})
	return nil
}

// Unload deactivates name and closes its interpreter.
func (m *Manager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	ext, ok := m.extensions[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%q: %w", name, ErrNotLoaded)
	}
	delete(m.extensions, name)
	m.loadOrder = slices.DeleteFunc(m.loadOrder, func(n string) bool { return n == name })
	m.mu.Unlock()

	err := m.deactivate(ctx, ext)
	ext.script.Close()
	ext.setState(StateUnloaded, nil)
	m.changes.Fire(ManagerEvent{Type: EventUnloaded, Extension: name})
	return err
}

// UnloadAll unloads every extension in reverse load order.
func (m *Manager) UnloadAll(ctx context.Context) error {
	m.mu.RLock()
	names := slices.Clone(m.loadOrder)
	m.mu.RUnlock()
	slices.Reverse(names)

	var errs []error
	for _, name := range names {
		if err := m.Unload(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Reload unloads name, rescans the search paths and loads it again,
// restoring its activation.
func (m *Manager) Reload(ctx context.Context, name string) error {
	ext, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrNotLoaded)
	}
	wasActive := ext.State() == StateActive

	if err := m.Unload(ctx, name); err != nil {
		return fmt.Errorf("reload unload failed: %w", err)
	}
	if _, err := m.loader.Discover(); err != nil {
		return fmt.Errorf("reload refresh failed: %w", err)
	}
	ext, err := m.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("reload load failed: %w", err)
	}
	if wasActive && !m.config.AutoActivate {
		if err := m.activate(ctx, ext); err != nil {
			return err
		}
	}
	m.changes.Fire(ManagerEvent{Type: EventReloaded, Extension: name})
	return nil
}

// Get returns a loaded extension.
func (m *Manager) Get(name string) (*Extension, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ext, ok := m.extensions[name]
	return ext, ok
}

// List returns the loaded extensions in load order.
func (m *Manager) List() []*Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Extension, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		out = append(out, m.extensions[name])
	}
	return out
}

// Count returns the number of loaded extensions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.extensions)
}

// Errors returns the errors of extensions in StateError.
func (m *Manager) Errors() map[string]error {
	errs := make(map[string]error)
	for _, ext := range m.List() {
		if ext.State() == StateError {
			errs[ext.Name()] = ext.Err()
		}
	}
	return errs
}

// Dispose unloads every extension and releases the event emitter.
func (m *Manager) Dispose() {
	if err := m.UnloadAll(context.Background()); err != nil {
		m.logger.Warn("unloading extensions: %v", err)
	}
	m.changes.Dispose()
}
