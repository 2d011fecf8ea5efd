// Package event provides typed, synchronous event emitters and disposable
// subscriptions.
//
// Components own an Emitter[T] and expose only its Event() so consumers can
// listen without firing:
//
//	changes := event.NewEmitter[ChangeEvent]("document.change")
//	sub := changes.Subscribe(func(e ChangeEvent) { ... })
//	defer sub.Dispose()
//	changes.Fire(ChangeEvent{...})
//
// # Delivery
//
// Fire runs listeners in subscription order on the caller's goroutine and
// returns after the last one. Mutations that fire events therefore finish
// their notification before the mutating call returns.
//
// # Failure Isolation
//
// A listener panic is recovered and reported as a *PanicError to the
// emitter's ErrorHandler. Remaining listeners still receive the event.
//
// # Disposables
//
// Every subscription returns a Disposable. From combines several, and Bag
// collects the subscriptions a component owns so they can be released
// together on shutdown.
package event
