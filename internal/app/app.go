// Package app holds the host-wide state that extensions see as ambient:
// the open documents, the visible and active editors, the language
// provider registry and the diagnostics. A Context is created once at
// startup from the configuration and torn down with Close.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dshills/exthost/internal/config"
	"github.com/dshills/exthost/internal/diagnostics"
	"github.com/dshills/exthost/internal/editor"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/engine/buffer"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/languages"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/workspace"
)

// Context is the extension host state. It is safe for concurrent use.
type Context struct {
	cfg    *config.Config
	logger *logging.Logger
	policy workspace.Policy

	store       *workspace.Store
	registry    *languages.Registry
	diagnostics *diagnostics.Manager

	mu      sync.RWMutex
	visible []*editor.TextEditor
	active  *editor.TextEditor

	activeChanged  *event.Emitter[ActiveEditorEvent]
	visibleChanged *event.Emitter[VisibleEditorsEvent]

	subs   event.Bag
	closed atomic.Bool
}

// Option configures a Context.
type Option func(*options)

type options struct {
	cfg     *config.Config
	storage workspace.Storage
	logger  *logging.Logger
}

// WithConfig sets the configuration. The default is config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithStorage sets the file system documents are read from and saved to.
func WithStorage(s workspace.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithLogger sets the root logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New validates the configuration and builds the host state.
func New(opts ...Option) (*Context, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	if o.logger == nil {
		o.logger = logging.New("app")
	}

	if err := o.cfg.Validate(); err != nil {
		return nil, &InitError{Component: "config", Err: err}
	}
	policy, err := workspace.ParsePolicy(o.cfg.Workspace.EditPolicy)
	if err != nil {
		return nil, &InitError{Component: "workspace", Err: err}
	}

	c := &Context{
		cfg:    o.cfg,
		logger: o.logger,
		policy: policy,
	}

	c.store = workspace.NewStore(storeOptions(o.cfg, o.storage, o.logger)...)
	c.registry = languages.NewRegistry(
		languages.WithTimeout(o.cfg.Providers.Timeout.Duration),
		languages.WithLogger(o.logger.WithComponent("languages")),
	)
	c.diagnostics = diagnostics.NewManager(o.logger.WithComponent("diagnostics"))

	onError := event.WithErrorHandler(func(err error) {
		c.logger.Error("window listener failed: %v", err)
	})
	c.activeChanged = event.NewEmitter[ActiveEditorEvent]("window.activeEditor", onError)
	c.visibleChanged = event.NewEmitter[VisibleEditorsEvent]("window.visibleEditors", onError)

	c.subs.Add(c.store.OnDidClose()(c.onDocumentClosed))

	c.logger.Debug("context ready: policy=%s timeout=%s", policy, o.cfg.Providers.Timeout.Duration)
	return c, nil
}

func storeOptions(cfg *config.Config, storage workspace.Storage, logger *logging.Logger) []workspace.Option {
	langs := workspace.NewLanguages()
	opts := []workspace.Option{
		workspace.WithLanguages(langs),
		workspace.WithMaxFileSize(cfg.Workspace.MaxFileSize),
		workspace.WithLogger(logger.WithComponent("workspace")),
	}
	if storage != nil {
		opts = append(opts, workspace.WithStorage(storage))
	}
	for id, lang := range cfg.Languages {
		if len(lang.Extensions) > 0 {
			langs.Register(id, lang.Extensions...)
		}
		if re := cfg.WordPattern(id); re != nil {
			opts = append(opts, workspace.WithWordPattern(id, re))
		}
	}
	if eol, ok := buffer.ParseEOL(cfg.Editor.EOL); ok {
		opts = append(opts, workspace.WithEOL(eol))
	}
	return opts
}

// Config returns the configuration the context was built from.
func (c *Context) Config() *config.Config { return c.cfg }

// Logger returns the root logger.
func (c *Context) Logger() *logging.Logger { return c.logger }

// Store returns the document store.
func (c *Context) Store() *workspace.Store { return c.store }

// Languages returns the provider registry.
func (c *Context) Languages() *languages.Registry { return c.registry }

// Diagnostics returns the diagnostics manager.
func (c *Context) Diagnostics() *diagnostics.Manager { return c.diagnostics }

// Policy returns the configured cross-document edit policy.
func (c *Context) Policy() workspace.Policy { return c.policy }

// ApplyEdit applies a workspace edit with the configured policy.
func (c *Context) ApplyEdit(ctx context.Context, edit *workspace.Edit) (*workspace.ApplyResult, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return workspace.Apply(ctx, c.store, edit,
		workspace.WithPolicy(c.policy),
		workspace.WithApplyLogger(c.logger.WithComponent("apply")),
	)
}

// RestoreBackup reopens the documents saved by the last Close when a
// backup file is configured.
func (c *Context) RestoreBackup(ctx context.Context) ([]*engine.Document, error) {
	path := c.cfg.Workspace.Backup
	if path == "" {
		return nil, nil
	}
	docs, err := c.store.RestoreFile(ctx, path)
	if len(docs) > 0 {
		c.logger.Info("restored %d documents from %s", len(docs), path)
	}
	return docs, err
}

// Close writes the hot-exit backup if configured, then disposes every
// editor, document and diagnostic collection. Later calls return ErrClosed.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	var errs []error
	if path := c.cfg.Workspace.Backup; path != "" {
		n, err := c.store.SaveBackup(path)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.logger.Info("backed up %d documents to %s", n, path)
		}
	}

	c.subs.Dispose()
	c.mu.Lock()
	visible := c.visible
	c.visible, c.active = nil, nil
	c.mu.Unlock()
	for _, e := range visible {
		e.Dispose()
	}

	c.store.Dispose()
	c.diagnostics.Dispose()
	c.activeChanged.Dispose()
	c.visibleChanged.Dispose()
	return errors.Join(errs...)
}
