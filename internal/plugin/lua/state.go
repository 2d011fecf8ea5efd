package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/exthost/internal/logging"
)

// DefaultExecutionTimeout bounds a single call into a script.
const DefaultExecutionTimeout = 2 * time.Second

// State is a sandboxed Lua interpreter.
//
// gopher-lua's LState is not goroutine-safe; State serializes every call
// on a mutex, so providers backed by the same script never run in parallel.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	timeout time.Duration
	logger  *logging.Logger
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the deadline applied to each call. Zero
// disables it; the caller's context still applies.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// WithStateLogger sets the logger that receives script print output.
func WithStateLogger(l *logging.Logger) StateOption {
	return func(s *State) {
		s.logger = l
	}
}

// NewState creates a sandboxed Lua state with the base, table, string and
// math libraries.
func NewState(opts ...StateOption) *State {
	s := &State{timeout: DefaultExecutionTimeout, logger: logging.Nop}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	installSandbox(L, func(msg string) { s.logger.Debug("%s", msg) })

	s.L = L
	return s
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	return s.do(context.Background(), func() error { return s.L.DoFile(path) })
}

// DoString executes a Lua chunk.
func (s *State) DoString(code string) error {
	return s.do(context.Background(), func() error { return s.L.DoString(code) })
}

// HasFunc reports whether the global name is a function.
func (s *State) HasFunc(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// Call calls the global function fn. args builds the arguments on the
// locked state; decode reads the first return value before the lock is
// released. Tables handed to Lua must be built inside args.
func (s *State) Call(ctx context.Context, fn string, args func(L *lua.LState) []lua.LValue, decode func(L *lua.LState, ret lua.LValue) error) error {
	return s.do(ctx, func() error {
		f := s.L.GetGlobal(fn)
		if f.Type() != lua.LTFunction {
			return fmt.Errorf("%w: %q is %s", ErrNotFunction, fn, f.Type())
		}
		var in []lua.LValue
		if args != nil {
			in = args(s.L)
		}
		if err := s.L.CallByParam(lua.P{Fn: f, NRet: 1, Protect: true}, in...); err != nil {
			return err
		}
		ret := s.L.Get(-1)
		s.L.Pop(1)
		if decode == nil {
			return nil
		}
		return decode(s.L, ret)
	})
}

// do runs fn under the lock with the call deadline installed as the state's
// context. Panics raised by the interpreter come back as errors.
func (s *State) do(ctx context.Context, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	err = fn()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	}
	return err
}

// Close releases the interpreter. Later calls return ErrStateClosed.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}
