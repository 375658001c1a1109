// Package engine hosts plugin code in per-plugin Lua execution contexts.
//
// Every load produces a brand-new gopher-lua state, so reloading a plugin
// never observes globals, upvalues, or loaded chunks from a previous
// incarnation. Unloading closes the state outright.
package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
)

// Module is the opaque handle to a loaded plugin execution context.
//
// gopher-lua states are not goroutine-safe: all calls into a Module must be
// serialized by the caller. The lifecycle manager guarantees this with its
// per-plugin locking.
type Module struct {
	mu sync.Mutex

	id   string
	name string
	L    *lua.LState

	closed bool
}

// Load executes the entry file at entryPath inside a fresh execution context.
//
// While the entry file runs, the plugin directory is appended to the Lua
// package path so the plugin can require sibling files by simple name. The
// addition is removed before Load returns, success or failure, so it cannot
// leak into host-driven calls made later against the same state.
func Load(name, dir, entryPath string) (*Module, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// Selectively opened: io, os, and debug stay out. The package
	// library comes first so require works for sibling files.
	lua.OpenPackage(L)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	lua.OpenCoroutine(L)

	m := &Module{
		id:   uuid.NewString(),
		name: name,
		L:    L,
	}

	if err := m.runEntry(dir, entryPath); err != nil {
		L.Close()
		return nil, err
	}
	return m, nil
}

// runEntry executes the entry file with the plugin directory temporarily
// added to package.path.
func (m *Module) runEntry(dir, entryPath string) (err error) {
	pkg, ok := m.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return fmt.Errorf("package library unavailable")
	}

	oldPath := m.L.GetField(pkg, "path")
	searchers := []string{
		dir + "/?.lua",
		dir + "/?/init.lua",
	}
	extended := strings.Join(searchers, ";")
	if s, ok := oldPath.(lua.LString); ok && s != "" {
		extended = extended + ";" + string(s)
	}
	m.L.SetField(pkg, "path", lua.LString(extended))
	defer m.L.SetField(pkg, "path", oldPath)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return m.L.DoFile(entryPath)
}

// ID returns the unique identity of this execution context. Two loads of
// the same plugin name always yield different IDs.
func (m *Module) ID() string {
	return m.id
}

// Name returns the plugin name this context was loaded for.
func (m *Module) Name() string {
	return m.name
}

// State returns the underlying Lua state, or nil after Close.
// Callers must serialize access alongside all other Module methods.
func (m *Module) State() *lua.LState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	return m.L
}

// HasGlobalFunction reports whether the plugin defines the named global
// as a function.
func (m *Module) HasGlobalFunction(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	return m.L.GetGlobal(name).Type() == lua.LTFunction
}

// Call invokes a global function defined by the plugin.
// Returns the call's results, or an empty slice for none.
func (m *Module) Call(fn string, args ...lua.LValue) ([]lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	fnVal := m.L.GetGlobal(fn)
	if fnVal.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %s", ErrNotAFunction, fn)
	}

	top := m.L.GetTop()
	m.L.Push(fnVal)
	for _, arg := range args {
		m.L.Push(arg)
	}

	var callErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("lua panic: %v", r)
			}
		}()
		callErr = m.L.PCall(len(args), lua.MultRet, nil)
	}()
	if callErr != nil {
		return nil, callErr
	}

	nret := m.L.GetTop() - top
	if nret <= 0 {
		return []lua.LValue{}, nil
	}
	results := make([]lua.LValue, nret)
	for i := range results {
		results[i] = m.L.Get(top + i + 1)
	}
	m.L.Pop(nret)
	return results, nil
}

// IsClosed reports whether the context has been evicted.
func (m *Module) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close evicts the execution context. Safe to call more than once.
func (m *Module) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.L.Close()
	m.closed = true
}
