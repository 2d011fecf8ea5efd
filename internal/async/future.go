// Package async provides the deferred result and cancellation types shared
// by every provider and command boundary.
package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotThenable is returned by Adapt for values it cannot wrap.
var ErrNotThenable = errors.New("value is not awaitable")

// Future is a result that is resolved exactly once, either with a value or
// with an error. The zero value is not usable; use NewFuture, Resolved,
// Rejected or Go.
type Future[T any] struct {
	done chan struct{}
	once sync.Once

	value T
	err   error
}

// NewFuture returns an unresolved future and the functions that settle it.
// Only the first call to either function has effect.
func NewFuture[T any]() (*Future[T], func(T), func(error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.resolve, f.reject
}

// Resolved returns a future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f, resolve, _ := NewFuture[T]()
	resolve(v)
	return f
}

// Rejected returns a future already settled with err.
func Rejected[T any](err error) *Future[T] {
	f, _, reject := NewFuture[T]()
	reject(err)
	return f
}

// Go runs fn in a new goroutine and settles the returned future with its
// result. A panic in fn rejects the future.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f, resolve, reject := NewFuture[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				reject(fmt.Errorf("async: panic: %v", r))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	}()
	return f
}

func (f *Future[T]) resolve(v T) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

func (f *Future[T]) reject(err error) {
	if err == nil {
		err = errors.New("async: rejected with nil error")
	}
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has a result.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the settled value. It must only be called after Done is
// closed; before that it returns the zero value and a nil error.
func (f *Future[T]) Result() (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		var zero T
		return zero, nil
	}
}

// Then returns a future settled with fn applied to f's value. Errors pass
// through unchanged.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	next, resolve, reject := NewFuture[U]()
	go func() {
		<-f.done
		if f.err != nil {
			reject(f.err)
			return
		}
		u, err := fn(f.value)
		if err != nil {
			reject(err)
			return
		}
		resolve(u)
	}()
	return next
}

// Thenable is implemented by foreign deferred results that report their
// outcome through callbacks.
type Thenable[T any] interface {
	Then(onResolved func(T), onRejected func(error))
}

// Adapt wraps a value of unknown shape into a Future. Accepted shapes are:
// a T, a *Future[T], a Thenable[T], a <-chan T or chan T, a func() T and a
// func() (T, error). Anything else yields a rejected future carrying
// ErrNotThenable.
func Adapt[T any](v any) *Future[T] {
	switch x := v.(type) {
	case nil:
		var zero T
		return Resolved(zero)
	case *Future[T]:
		return x
	case T:
		return Resolved(x)
	case Thenable[T]:
		f, resolve, reject := NewFuture[T]()
		x.Then(resolve, reject)
		return f
	case <-chan T:
		return fromChan(x)
	case chan T:
		return fromChan(x)
	case func() T:
		return Go(context.Background(), func(context.Context) (T, error) { return x(), nil })
	case func() (T, error):
		return Go(context.Background(), func(context.Context) (T, error) { return x() })
	default:
		return Rejected[T](fmt.Errorf("%w: %T", ErrNotThenable, v))
	}
}

func fromChan[T any](ch <-chan T) *Future[T] {
	f, resolve, reject := NewFuture[T]()
	go func() {
		v, ok := <-ch
		if !ok {
			reject(errors.New("async: channel closed without a value"))
			return
		}
		resolve(v)
	}()
	return f
}
