// Package lua provides the sandboxed Lua runtime that hosts mod scripts.
package lua

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds one chunk or call. Mod code is cooperative
// and single-threaded; the deadline is the only defense against a runaway
// loop.
const DefaultExecutionTimeout = 10 * time.Second

// State wraps gopher-lua for mod execution.
//
// gopher-lua's LState is not goroutine-safe. The mutex here guards against
// concurrent access from Go code; Lua execution itself is single-threaded,
// which matches the loader's synchronous, cooperative model.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	sandbox *Sandbox
	timeout time.Duration
	closed  bool
}

// Option configures a State at construction.
type Option func(*State)

// WithExecutionTimeout sets the per-execution deadline. Zero disables it.
func WithExecutionTimeout(d time.Duration) Option {
	return func(s *State) {
		s.timeout = d
	}
}

// NewState creates a sandboxed Lua state with only the safe standard
// libraries opened. Capability grants through the sandbox open more.
func NewState(opts ...Option) (*State, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	s := &State{L: L, timeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(s)
	}

	// Open the safe subset. io, os, and debug stay closed until a matching
	// capability is granted.
	safeLibs := []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range safeLibs {
		if err := openLib(L, lib.fn, lib.name); err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua library %q: %w", lib.name, err)
		}
	}

	s.sandbox = NewSandbox(L)
	s.sandbox.Install()

	return s, nil
}

// openLib invokes a library opener the way lua's own init does, passing the
// library name and discarding the module left for the caller.
func openLib(L *lua.LState, fn lua.LGFunction, name string) error {
	return L.CallByParam(lua.P{
		Fn:      L.NewFunction(fn),
		NRet:    0,
		Protect: true,
	}, lua.LString(name))
}

// Sandbox returns the sandbox for capability management.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// DoFile executes a Lua file. Panics from the runtime are recovered into
// errors.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.execute(func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes Lua source text.
func (s *State) DoString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.execute(func() error {
		return s.L.DoString(code)
	})
}

// Call invokes a global Lua function by name. It returns an empty slice,
// not nil, when the function produced no results.
func (s *State) Call(fn string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fnVal := s.L.GetGlobal(fn)
	if fnVal == lua.LNil {
		return nil, fmt.Errorf("%w: %q not found", ErrNotAFunction, fn)
	}
	if fnVal.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotAFunction, fn, fnVal.Type())
	}

	stackTop := s.L.GetTop()
	s.L.Push(fnVal)
	for _, arg := range args {
		s.L.Push(arg)
	}

	callErr := s.execute(func() error {
		return s.L.PCall(len(args), lua.MultRet, nil)
	})
	if callErr != nil {
		return nil, callErr
	}

	nRet := s.L.GetTop() - stackTop
	if nRet <= 0 {
		return []lua.LValue{}, nil
	}
	results := make([]lua.LValue, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = s.L.Get(stackTop + i + 1)
	}
	s.L.Pop(nRet)

	return results, nil
}

// HasFunction reports whether the named global is a function.
func (s *State) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// RegisterModule exposes a table of Go functions as a global.
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	mod := s.L.SetFuncs(s.L.NewTable(), funcs)
	s.L.SetGlobal(name, mod)
}

// LuaState returns the underlying gopher-lua state. Direct access bypasses
// the mutex; callers own the synchronization.
func (s *State) LuaState() *lua.LState {
	return s.L
}

// IsClosed reports whether the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Further use returns ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

// execute runs fn with panic recovery and the best-effort execution
// deadline. gopher-lua checks the context between instructions, so a
// runaway loop errors out instead of hanging the load pass.
func (s *State) execute(fn func() error) error {
	if s.timeout <= 0 {
		return withRecovery(fn)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	return withRecovery(fn)
}

func withRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
