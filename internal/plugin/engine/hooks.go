package engine

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Hook globals recognized in plugin entry files.
const (
	setupHook    = "setup"
	teardownHook = "teardown"
)

// resumeHookScript drives a coroutine returned by a hook to completion,
// propagating any error raised inside it.
const resumeHookScript = `
while coroutine.status(__hook_thread) ~= "dead" do
	local ok, err = coroutine.resume(__hook_thread)
	if not ok then
		error(err, 0)
	end
end
`

// CallSetup invokes the plugin's optional setup hook.
//
// Both declared forms are honored: setup(host) and setup(host, config_dir).
// A hook that returns a coroutine is resumed until it finishes, so plugins
// can stage long-running setup cooperatively. A missing hook is not an
// error; module-only plugins are valid.
func (m *Module) CallSetup(host lua.LValue, configDir string) error {
	return m.callHook(setupHook, host, lua.LString(configDir))
}

// CallTeardown invokes the plugin's optional teardown hook.
func (m *Module) CallTeardown(host lua.LValue) error {
	return m.callHook(teardownHook, host)
}

// callHook calls the named hook if the plugin defines it, trimming the
// argument list to the hook's declared parameter count.
func (m *Module) callHook(name string, args ...lua.LValue) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	fn, ok := m.L.GetGlobal(name).(*lua.LFunction)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if fn.Proto != nil && int(fn.Proto.NumParameters) < len(args) {
		args = args[:fn.Proto.NumParameters]
	}

	results, err := m.Call(name, args...)
	if err != nil {
		return fmt.Errorf("hook %s: %w", name, err)
	}

	if len(results) > 0 && results[0].Type() == lua.LTThread {
		if err := m.awaitThread(results[0]); err != nil {
			return fmt.Errorf("hook %s: %w", name, err)
		}
	}
	return nil
}

// awaitThread resumes a hook-returned coroutine to completion.
func (m *Module) awaitThread(th lua.LValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.L.SetGlobal("__hook_thread", th)
	defer m.L.SetGlobal("__hook_thread", lua.LNil)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("lua panic: %v", r)
			}
		}()
		err = m.L.DoString(resumeHookScript)
	}()
	return err
}
