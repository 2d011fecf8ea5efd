package lua

import (
	"context"
	"errors"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/exthost/internal/logging"
)

func TestStateDoString(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`x = 1 + 1`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if v := state.L.GetGlobal("x"); v != glua.LNumber(2) {
		t.Errorf("expected x = 2, got %v", v)
	}
	if err := state.DoString(`this is not lua`); err == nil {
		t.Error("expected a syntax error")
	}
}

func TestStateCall(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`function add(a, b) return a + b end`); err != nil {
		t.Fatal(err)
	}
	if !state.HasFunc("add") || state.HasFunc("missing") {
		t.Error("HasFunc reported the wrong globals")
	}

	var got glua.LValue
	err := state.Call(context.Background(), "add",
		func(L *glua.LState) []glua.LValue { return []glua.LValue{glua.LNumber(2), glua.LNumber(3)} },
		func(L *glua.LState, ret glua.LValue) error { got = ret; return nil })
	if err != nil {
		t.Fatal(err)
	}
	if got != glua.LNumber(5) {
		t.Errorf("expected 5, got %v", got)
	}
	if top := state.L.GetTop(); top != 0 {
		t.Errorf("call must leave the stack empty, top = %d", top)
	}

	if err := state.Call(context.Background(), "missing", nil, nil); !errors.Is(err, ErrNotFunction) {
		t.Errorf("expected ErrNotFunction, got %v", err)
	}
	if err := state.DoString(`function boom() error("kaput") end`); err != nil {
		t.Fatal(err)
	}
	if err := state.Call(context.Background(), "boom", nil, nil); err == nil {
		t.Error("expected the runtime error to surface")
	}
}

func TestStateTimeout(t *testing.T) {
	state := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer state.Close()

	if err := state.DoString(`function spin() while true do end end`); err != nil {
		t.Fatal(err)
	}
	err := state.Call(context.Background(), "spin", nil, nil)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("expected ErrExecutionTimeout, got %v", err)
	}

	// The state stays usable after a timeout.
	if err := state.DoString(`y = 1`); err != nil {
		t.Errorf("state unusable after timeout: %v", err)
	}
}

func TestStateCallerCancel(t *testing.T) {
	state := NewState(WithExecutionTimeout(0))
	defer state.Close()
	if err := state.DoString(`function spin() while true do end end`); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := state.Call(ctx, "spin", nil, nil); err == nil {
		t.Error("expected cancellation to stop the script")
	}
}

func TestStateClosed(t *testing.T) {
	state := NewState()
	state.Close()
	state.Close()

	if err := state.DoString(`x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("expected ErrStateClosed, got %v", err)
	}
	if err := state.Call(context.Background(), "f", nil, nil); !errors.Is(err, ErrStateClosed) {
		t.Errorf("expected ErrStateClosed, got %v", err)
	}
	if state.HasFunc("print") {
		t.Error("closed states have no functions")
	}
}

func TestSandbox(t *testing.T) {
	logger, rec := logging.NewRecorder(logging.LevelDebug)
	state := NewState(WithStateLogger(logger))
	defer state.Close()

	for _, name := range unsafeGlobals {
		if v := state.L.GetGlobal(name); v != glua.LNil {
			t.Errorf("%s must be removed, got %s", name, v.Type())
		}
	}
	for _, name := range []string{"io", "os", "debug", "package"} {
		if v := state.L.GetGlobal(name); v != glua.LNil {
			t.Errorf("library %s must not be opened", name)
		}
	}
	for _, name := range []string{"string", "table", "math", "pairs"} {
		if v := state.L.GetGlobal(name); v == glua.LNil {
			t.Errorf("%s must be available", name)
		}
	}

	if err := state.DoString(`print("hello", 42)`); err != nil {
		t.Fatal(err)
	}
	if !rec.Contains(logging.LevelDebug, "hello\t42") {
		t.Errorf("print must go to the log, got %v", rec.Records())
	}
}

func TestReadOnly(t *testing.T) {
	state := NewState()
	defer state.Close()

	inner := state.L.NewTable()
	inner.RawSetString("a", glua.LNumber(1))
	state.L.SetGlobal("ro", readOnly(state.L, inner, "ro"))

	if err := state.DoString(`assert(ro.a == 1)`); err != nil {
		t.Errorf("reads must pass through: %v", err)
	}
	if err := state.DoString(`ro.b = 2`); err == nil {
		t.Error("writes must fail")
	}
	if err := state.DoString(`setmetatable(ro, {})`); err == nil {
		t.Error("the metatable must be protected")
	}
}
