package event

import (
	"errors"
	"testing"
)

func TestEmitterDeliversInOrder(t *testing.T) {
	e := NewEmitter[int]("test")
	var got []string

	e.Subscribe(func(v int) { got = append(got, "a") })
	e.Subscribe(func(v int) { got = append(got, "b") })

	e.Fire(1)

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
	if e.Fired() != 1 {
		t.Errorf("expected 1 fire, got %d", e.Fired())
	}
}

func TestEmitterDispose(t *testing.T) {
	e := NewEmitter[string]("test")
	count := 0
	sub := e.Subscribe(func(string) { count++ })

	e.Fire("x")
	sub.Dispose()
	sub.Dispose()
	e.Fire("y")

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
	if e.Len() != 0 {
		t.Errorf("expected 0 listeners, got %d", e.Len())
	}
}

func TestEmitterPanicIsolation(t *testing.T) {
	var reported error
	e := NewEmitter[int]("doc.change", WithErrorHandler(func(err error) { reported = err }))
	after := false

	e.Subscribe(func(int) { panic("boom") })
	e.Subscribe(func(int) { after = true })

	e.Fire(1)

	if !after {
		t.Error("listener after a panicking one must still run")
	}
	if !errors.Is(reported, ErrListenerPanic) {
		t.Fatalf("expected ErrListenerPanic, got %v", reported)
	}
	var pe *PanicError
	if !errors.As(reported, &pe) || pe.Event != "doc.change" || pe.Value != "boom" {
		t.Errorf("unexpected panic error %+v", pe)
	}
}

func TestEmitterSubscribeDuringFire(t *testing.T) {
	e := NewEmitter[int]("test")
	late := 0
	e.Subscribe(func(int) {
		e.Subscribe(func(int) { late++ })
	})

	e.Fire(1)
	if late != 0 {
		t.Errorf("listener added during fire must not see that fire, got %d", late)
	}
	e.Fire(2)
	if late != 1 {
		t.Errorf("expected 1 late delivery, got %d", late)
	}
}

func TestEmitterDisposedIgnoresSubscribers(t *testing.T) {
	e := NewEmitter[int]("test")
	e.Dispose()

	called := false
	sub := e.Subscribe(func(int) { called = true })
	e.Fire(1)

	if called {
		t.Error("disposed emitter must not deliver")
	}
	sub.Dispose()
}

func TestOnce(t *testing.T) {
	e := NewEmitter[int]("test")
	var got []int

	Once(e.Event(), func(v int) { got = append(got, v) })
	e.Fire(1)
	e.Fire(2)

	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected [1], got %v", got)
	}
	if e.Len() != 0 {
		t.Errorf("once listener should be removed, got %d listeners", e.Len())
	}
}

func TestFromAndBag(t *testing.T) {
	var order []int
	d := From(
		DisposeFunc(func() { order = append(order, 1) }),
		nil,
		DisposeFunc(func() { order = append(order, 2) }),
	)
	d.Dispose()
	d.Dispose()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected [1 2], got %v", order)
	}

	order = nil
	var bag Bag
	bag.Add(DisposeFunc(func() { order = append(order, 1) }))
	bag.Add(DisposeFunc(func() { order = append(order, 2) }))
	bag.Dispose()
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("expected reverse order [2 1], got %v", order)
	}

	bag.Add(DisposeFunc(func() { order = append(order, 3) }))
	if len(order) != 3 {
		t.Error("adding to a disposed bag disposes immediately")
	}
}
