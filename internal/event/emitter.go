package event

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Listener receives an event payload.
type Listener[T any] func(T)

// Event is the subscribe half of an Emitter, handed to consumers so they can
// listen without being able to fire.
type Event[T any] func(listener Listener[T]) Disposable

// ErrorHandler receives listener failures.
type ErrorHandler func(err error)

// Option configures an Emitter.
type Option func(*options)

type options struct {
	onError ErrorHandler
}

// WithErrorHandler sets the function receiving recovered listener panics.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.onError = h
	}
}

// Emitter delivers typed events to listeners synchronously, in subscription
// order, on the caller's goroutine. A panicking listener is isolated: the
// panic is recovered, reported to the error handler, and the remaining
// listeners still run.
type Emitter[T any] struct {
	name string
	opts options

	mu        sync.RWMutex
	listeners []*entry[T]
	nextID    uint64
	disposed  bool

	fired atomic.Uint64
}

type entry[T any] struct {
	id uint64
	fn Listener[T]
}

// NewEmitter creates an emitter. The name is used in error reports.
func NewEmitter[T any](name string, opts ...Option) *Emitter[T] {
	e := &Emitter[T]{name: name}
	for _, opt := range opts {
		opt(&e.opts)
	}
	return e
}

// Event returns the subscribe function for this emitter.
func (e *Emitter[T]) Event() Event[T] {
	return e.Subscribe
}

// Subscribe registers a listener. Disposing the returned value removes it.
// Subscribing to a disposed emitter returns Nop.
func (e *Emitter[T]) Subscribe(listener Listener[T]) Disposable {
	if listener == nil {
		return Nop
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return Nop
	}
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, &entry[T]{id: id, fn: listener})

	return DisposeFunc(func() { e.remove(id) })
}

func (e *Emitter[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Fire delivers v to every listener registered at the time of the call.
// Listeners added or removed during delivery take effect on the next Fire.
func (e *Emitter[T]) Fire(v T) {
	e.mu.RLock()
	if e.disposed || len(e.listeners) == 0 {
		e.mu.RUnlock()
		return
	}
	snapshot := make([]*entry[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.RUnlock()

	e.fired.Add(1)
	for _, l := range snapshot {
		e.deliver(l.fn, v)
	}
}

// deliver runs one listener with panic recovery.
func (e *Emitter[T]) deliver(fn Listener[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			if e.opts.onError != nil {
				e.opts.onError(&PanicError{Event: e.name, Value: r, Stack: string(debug.Stack())})
			}
		}
	}()
	fn(v)
}

// Len returns the number of registered listeners.
func (e *Emitter[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

// Fired returns how many times Fire delivered to at least one listener.
func (e *Emitter[T]) Fired() uint64 {
	return e.fired.Load()
}

// Dispose removes all listeners. Later Fire calls do nothing.
func (e *Emitter[T]) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	e.listeners = nil
}

// Once subscribes a listener that is removed after its first delivery.
func Once[T any](ev Event[T], listener Listener[T]) Disposable {
	var (
		once sync.Once
		sub  Disposable
		mu   sync.Mutex
	)
	mu.Lock()
	sub = ev(func(v T) {
		once.Do(func() {
			listener(v)
			mu.Lock()
			s := sub
			mu.Unlock()
			if s != nil {
				s.Dispose()
			}
		})
	})
	mu.Unlock()
	return sub
}
