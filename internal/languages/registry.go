package languages

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/uri"
)

// Capability names a kind of provider.
type Capability string

const (
	CapCompletion        Capability = "completion"
	CapHover             Capability = "hover"
	CapDefinition        Capability = "definition"
	CapReferences        Capability = "references"
	CapDocumentHighlight Capability = "documentHighlight"
	CapDocumentSymbol    Capability = "documentSymbol"
	CapWorkspaceSymbol   Capability = "workspaceSymbol"
	CapCodeAction        Capability = "codeAction"
	CapCodeLens          Capability = "codeLens"
	CapFormatting        Capability = "formatting"
	CapRangeFormatting   Capability = "rangeFormatting"
	CapOnTypeFormatting  Capability = "onTypeFormatting"
	CapSignatureHelp     Capability = "signatureHelp"
	CapRename            Capability = "rename"
	CapDiagnostics       Capability = "diagnostics"
)

// ErrProviderPanic wraps a panic recovered from a provider.
var ErrProviderPanic = errors.New("provider panicked")

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 5 * time.Second

// Registration is the handle of a registered provider.
type Registration struct {
	id      string
	dispose func()
	once    sync.Once
}

// ID returns the registration's unique identifier.
func (r *Registration) ID() string { return r.id }

// Dispose unregisters the provider.
func (r *Registration) Dispose() {
	r.once.Do(r.dispose)
}

type registration struct {
	id       string
	seq      uint64
	selector Selector
	provider any
	triggers []string
}

// Registry holds providers per capability and merges their results.
// Providers run concurrently; a provider that fails, panics or exceeds
// the timeout contributes nothing and is logged.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[Capability][]*registration
	seq     uint64

	timeout time.Duration
	logger  *logging.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout sets the per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithLogger sets the registry's logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[Capability][]*registration),
		timeout: DefaultTimeout,
		logger:  logging.Nop,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) register(capability Capability, selector Selector, provider any, triggers ...string) *Registration {
	r.mu.Lock()
	r.seq++
	reg := &registration{
		id:       uuid.NewString(),
		seq:      r.seq,
		selector: slices.Clone(selector),
		provider: provider,
		triggers: triggers,
	}
	r.entries[capability] = append(r.entries[capability], reg)
	r.mu.Unlock()

	r.logger.Debug("registered %s provider %s", capability, reg.id)
	return &Registration{id: reg.id, dispose: func() { r.unregister(capability, reg.id) }}
}

func (r *Registry) unregister(capability Capability, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[capability] = slices.DeleteFunc(r.entries[capability], func(reg *registration) bool {
		return reg.id == id
	})
}

// matching returns the providers whose selector matches doc, best score
// first and, among equal scores, the most recently registered first.
func (r *Registry) matching(capability Capability, doc *engine.Document) []*registration {
	return r.matchingURI(capability, doc.URI(), doc.LanguageID())
}

func (r *Registry) matchingURI(capability Capability, u uri.URI, languageID string) []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		reg   *registration
		score int
	}
	var found []scored
	for _, reg := range r.entries[capability] {
		if s := reg.selector.Score(u, languageID); s > 0 {
			found = append(found, scored{reg, s})
		}
	}
	slices.SortStableFunc(found, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(b.reg.seq, a.reg.seq)
	})

	out := make([]*registration, len(found))
	for i, f := range found {
		out[i] = f.reg
	}
	return out
}

// Has reports whether any provider of capability matches doc.
func (r *Registry) Has(capability Capability, doc *engine.Document) bool {
	return len(r.matching(capability, doc)) > 0
}

// Count returns the number of providers registered for capability.
func (r *Registry) Count(capability Capability) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[capability])
}

// call runs fn with the registry timeout and turns a panic into an error.
func call[P, R any](ctx context.Context, r *Registry, reg *registration, fn func(context.Context, P) (R, error)) (res R, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrProviderPanic, v, debug.Stack())
		}
	}()
	return fn(ctx, reg.provider.(P))
}

// report logs a provider failure. A provider cancelled because the caller
// gave up is only logged at debug level; one stopped by the registry
// timeout has failed.
func (r *Registry) report(ctx context.Context, capability Capability, reg *registration, err error) {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		r.logger.Debug("%s provider %s cancelled: %v", capability, reg.id, err)
		return
	}
	logger := r.logger.WithField("provider", reg.id)
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("%s provider timed out after %s: %v", capability, r.timeout, err)
		return
	}
	logger.Warn("%s provider failed: %v", capability, err)
}

// collect calls every provider concurrently and returns their results in
// registration order. Failed providers are skipped.
func collect[P, R any](ctx context.Context, r *Registry, capability Capability, regs []*registration, fn func(context.Context, P) (R, error)) []R {
	results := make([]R, len(regs))
	ok := make([]bool, len(regs))

	var g errgroup.Group
	for i, reg := range regs {
		g.Go(func() error {
			res, err := call(ctx, r, reg, fn)
			if err != nil {
				r.report(ctx, capability, reg, err)
				return nil
			}
			results[i], ok[i] = res, true
			return nil
		})
	}
	_ = g.Wait()

	out := results[:0]
	for i, res := range results {
		if ok[i] {
			out = append(out, res)
		}
	}
	return out
}

// first calls providers in order until one returns a usable result.
func first[P, R any](ctx context.Context, r *Registry, capability Capability, regs []*registration, fn func(context.Context, P) (R, error), usable func(R) bool) (R, bool) {
	for _, reg := range regs {
		if ctx.Err() != nil {
			break
		}
		res, err := call(ctx, r, reg, fn)
		if err != nil {
			r.report(ctx, capability, reg, err)
			continue
		}
		if usable(res) {
			return res, true
		}
	}
	var zero R
	return zero, false
}

func flatten[T any](groups [][]T) []T {
	var out []T
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
