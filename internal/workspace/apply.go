package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/uri"
)

// Policy controls what happens when some resources of a batch fail.
type Policy uint8

const (
	// PolicyAtomic validates every resource before committing any. One
	// failure aborts the whole batch.
	PolicyAtomic Policy = iota

	// PolicyBestEffort commits each resource independently.
	PolicyBestEffort
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyAtomic:
		return "atomic"
	case PolicyBestEffort:
		return "best-effort"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// ParsePolicy parses "atomic" or "best-effort".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "atomic":
		return PolicyAtomic, nil
	case "best-effort", "besteffort", "best_effort":
		return PolicyBestEffort, nil
	default:
		return PolicyAtomic, fmt.Errorf("unknown edit policy %q", s)
	}
}

// ApplyOption configures Apply.
type ApplyOption func(*applyConfig)

type applyConfig struct {
	policy Policy
	logger *logging.Logger
}

// WithPolicy selects the cross-document policy. The default is
// PolicyAtomic.
func WithPolicy(p Policy) ApplyOption {
	return func(c *applyConfig) {
		c.policy = p
	}
}

// WithApplyLogger sets the logger used to report failed resources.
func WithApplyLogger(l *logging.Logger) ApplyOption {
	return func(c *applyConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ResourceResult is the outcome for one resource of a batch.
type ResourceResult struct {
	URI     uri.URI
	Applied bool
	Err     error

	// Event is the change emitted by the commit, nil if nothing changed.
	Event *engine.ChangeEvent
}

// ApplyResult reports the outcome of Apply.
type ApplyResult struct {
	// Applied is true when every resource was committed.
	Applied bool
	Policy  Policy

	// Resources holds one result per resource, ordered by URI.
	Resources []ResourceResult

	// Failed lists the resources whose own operations or loading failed.
	// Under PolicyAtomic these are the resources that caused the abort.
	Failed []uri.URI
}

// Err joins the errors of the failed resources. It is nil when Applied.
func (r *ApplyResult) Err() error {
	var errs []error
	for _, res := range r.Resources {
		if res.Err != nil && !errors.Is(res.Err, ErrBatchAborted) {
			errs = append(errs, &ResourceError{Op: "apply", URI: res.URI, Err: res.Err})
		}
	}
	return errors.Join(errs...)
}

// Result returns the result for u.
func (r *ApplyResult) Result(u uri.URI) (ResourceResult, bool) {
	for _, res := range r.Resources {
		if res.URI == u {
			return res, true
		}
	}
	return ResourceResult{}, false
}

// Apply opens or locates each resource of edit through store and commits
// one transaction per document according to the selected policy.
//
// Documents a batch opens stay open when they are committed. When a
// resource is not committed, a document opened only for it is closed again,
// so listeners see a matching OnDidClose for every OnDidOpen.
//
// Validation failures are reported in the result, not as an error. The
// error is non-nil only when the batch could not be attempted: it was
// already consumed or ctx was done before any work started.
func Apply(ctx context.Context, store *Store, edit *Edit, opts ...ApplyOption) (*ApplyResult, error) {
	cfg := applyConfig{policy: PolicyAtomic, logger: logging.Nop}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !edit.consume() {
		return nil, ErrEditConsumed
	}

	entries := edit.Entries()
	result := &ApplyResult{
		Policy:    cfg.policy,
		Resources: make([]ResourceResult, len(entries)),
	}
	for i, e := range entries {
		result.Resources[i].URI = e.URI
	}

	switch cfg.policy {
	case PolicyBestEffort:
		applyBestEffort(ctx, store, entries, result)
	default:
		applyAtomic(ctx, store, entries, result)
	}

	for _, res := range result.Resources {
		if res.Err != nil && !errors.Is(res.Err, ErrBatchAborted) {
			result.Failed = append(result.Failed, res.URI)
			cfg.logger.Warn("workspace edit failed for %s: %v", res.URI, res.Err)
		}
	}
	result.Applied = allApplied(result)
	return result, nil
}

// applyAtomic prepares every transaction first. Prepared transactions hold
// their document's commit slot, so no other edit can interleave between
// validation and commit.
func applyAtomic(ctx context.Context, store *Store, entries []Entry, result *ApplyResult) {
	txs := make([]*engine.Transaction, len(entries))
	opened := make([]bool, len(entries))
	failed := false

	for i, e := range entries {
		_, wasOpen := store.Get(e.URI)
		doc, err := store.Open(ctx, e.URI)
		opened[i] = err == nil && !wasOpen
		if err != nil {
			result.Resources[i].Err = err
			failed = true
			continue
		}
		tx := doc.Begin().Add(e.Edits...)
		if err := tx.Prepare(); err != nil {
			result.Resources[i].Err = err
			failed = true
			continue
		}
		txs[i] = tx
	}

	if !failed {
		if err := ctx.Err(); err != nil {
			for i := range entries {
				result.Resources[i].Err = err
			}
			failed = true
		}
	}

	if failed {
		for i, tx := range txs {
			if tx != nil {
				tx.Abort()
				if result.Resources[i].Err == nil {
					result.Resources[i].Err = ErrBatchAborted
				}
			}
			if opened[i] {
				_ = store.Close(entries[i].URI)
			}
		}
		return
	}

	for i, tx := range txs {
		result.Resources[i].Event = tx.Apply()
		result.Resources[i].Applied = true
	}
}

func applyBestEffort(ctx context.Context, store *Store, entries []Entry, result *ApplyResult) {
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			result.Resources[i].Err = err
			continue
		}
		_, wasOpen := store.Get(e.URI)
		doc, err := store.Open(ctx, e.URI)
		if err != nil {
			result.Resources[i].Err = err
			continue
		}
		ev, err := doc.Begin().Add(e.Edits...).Commit()
		if err != nil {
			result.Resources[i].Err = err
			if !wasOpen {
				_ = store.Close(e.URI)
			}
			continue
		}
		result.Resources[i].Event = ev
		result.Resources[i].Applied = true
	}
}

func allApplied(r *ApplyResult) bool {
	for _, res := range r.Resources {
		if !res.Applied {
			return false
		}
	}
	return true
}
