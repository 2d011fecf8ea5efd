package event

import "sync"

// Disposable releases a subscription or resource. Dispose must be safe to
// call more than once.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable. The function runs at most once.
func DisposeFunc(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}

type funcDisposable struct {
	once sync.Once
	fn   func()
}

func (d *funcDisposable) Dispose() {
	d.once.Do(func() {
		if d.fn != nil {
			d.fn()
		}
	})
}

// From combines several disposables into one that disposes all of them in
// order.
func From(items ...Disposable) Disposable {
	return DisposeFunc(func() {
		for _, d := range items {
			if d != nil {
				d.Dispose()
			}
		}
	})
}

// Nop is a Disposable that does nothing.
var Nop Disposable = DisposeFunc(nil)

// Bag collects disposables owned by one component and disposes them
// together.
type Bag struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add registers a disposable. If the bag is already disposed the item is
// disposed immediately.
func (b *Bag) Add(d Disposable) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		d.Dispose()
		return
	}
	b.items = append(b.items, d)
	b.mu.Unlock()
}

// Dispose disposes every collected item in reverse order of addition.
func (b *Bag) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	items := b.items
	b.items = nil
	b.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}
