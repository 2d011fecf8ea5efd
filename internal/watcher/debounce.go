package watcher

import (
	"sync"
	"time"

	"github.com/dshills/exthost/internal/uri"
)

// DefaultDebounce is the coalescing window used when none is configured.
const DefaultDebounce = 100 * time.Millisecond

// debouncer coalesces rapid events for one URI into a single event that is
// delivered after the URI has been quiet for the delay.
type debouncer struct {
	delay time.Duration
	fire  func(FileEvent)

	mu      sync.Mutex
	pending map[uri.URI]*pendingEvent
	closed  bool
}

type pendingEvent struct {
	kind  Kind
	drop  bool
	timer *time.Timer
}

func newDebouncer(delay time.Duration, fire func(FileEvent)) *debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &debouncer{
		delay:   delay,
		fire:    fire,
		pending: make(map[uri.URI]*pendingEvent),
	}
}

// push records an event, merging it with a pending one for the same URI.
func (d *debouncer) push(ev FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if p, ok := d.pending[ev.URI]; ok {
		p.kind, p.drop = merge(p.kind, p.drop, ev.Kind)
		p.timer.Reset(d.delay)
		return
	}

	u := ev.URI
	p := &pendingEvent{kind: ev.Kind}
	p.timer = time.AfterFunc(d.delay, func() { d.flushOne(u) })
	d.pending[u] = p
}

// merge folds next into a pending kind. A file created and deleted inside
// one window produces nothing; deleted then created is a change.
func merge(prev Kind, dropped bool, next Kind) (Kind, bool) {
	if dropped {
		if next == Deleted {
			return prev, true
		}
		return Created, false
	}
	switch {
	case prev == Created && next == Deleted:
		return prev, true
	case prev == Created:
		return Created, false
	case prev == Deleted && next == Created:
		return Changed, false
	default:
		return next, false
	}
}

func (d *debouncer) flushOne(u uri.URI) {
	d.mu.Lock()
	p, ok := d.pending[u]
	if !ok || d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.pending, u)
	d.mu.Unlock()

	if !p.drop {
		d.fire(FileEvent{Kind: p.kind, URI: u})
	}
}

// Flush delivers every pending event immediately.
func (d *debouncer) Flush() {
	d.mu.Lock()
	uris := make([]uri.URI, 0, len(d.pending))
	for u, p := range d.pending {
		p.timer.Stop()
		uris = append(uris, u)
	}
	d.mu.Unlock()

	for _, u := range uris {
		d.flushOne(u)
	}
}

// Pending returns the number of URIs waiting for their window to close.
func (d *debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// close stops all timers and discards pending events.
func (d *debouncer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for u, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, u)
	}
}
