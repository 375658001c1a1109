package host

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dsaub/modulish-bot/internal/plugin/engine"
)

// Binding is the per-plugin view of the Hub. It builds the `host` table
// handed to the plugin's hooks and collects every capability the plugin
// registers so the lifecycle manager can detach them on unload.
type Binding struct {
	mu     sync.Mutex
	hub    *Hub
	plugin string
	caps   []Capability
	byName map[string]bool
}

// NewBinding creates a binding for the named plugin.
func NewBinding(hub *Hub, plugin string) *Binding {
	return &Binding{
		hub:    hub,
		plugin: plugin,
		byName: make(map[string]bool),
	}
}

// Capabilities returns the capabilities the plugin registered, in
// registration order.
func (b *Binding) Capabilities() []Capability {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Capability{}, b.caps...)
}

// track records a capability once per name.
func (b *Binding) track(c Capability) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.byName[c.Name()] {
		return
	}
	b.byName[c.Name()] = true
	b.caps = append(b.caps, c)
}

// Table builds the host table exposed to the plugin inside its own
// execution context:
//
//	host.register_command(group, name, fn)
//	host.log(msg)
//	host.name()
//	host.prefix()
func (b *Binding) Table(L *lua.LState) *lua.LTable {
	t := L.NewTable()

	L.SetField(t, "register_command", L.NewFunction(b.luaRegisterCommand))
	L.SetField(t, "log", L.NewFunction(b.luaLog))
	L.SetField(t, "name", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(b.hub.Name()))
		return 1
	}))
	L.SetField(t, "prefix", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(b.hub.Prefix()))
		return 1
	}))

	return t
}

// luaRegisterCommand implements host.register_command(group, name, fn).
func (b *Binding) luaRegisterCommand(L *lua.LState) int {
	group := L.CheckString(1)
	name := L.CheckString(2)
	fn := L.CheckFunction(3)

	c, err := b.hub.RegisterGroup(b.plugin, group)
	if err != nil {
		L.RaiseError("register_command: %v", err)
		return 0
	}
	b.track(c)

	handler := func(args []string) (string, error) {
		largs := make([]lua.LValue, len(args))
		for i, a := range args {
			largs[i] = lua.LString(a)
		}
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs...); err != nil {
			return "", fmt.Errorf("command %s: %w", name, err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		if s, ok := engine.ToGo(ret).(string); ok {
			return s, nil
		}
		return "", nil
	}

	if err := b.hub.AddCommand(group, name, handler); err != nil {
		L.RaiseError("register_command: %v", err)
		return 0
	}
	return 0
}

// luaLog implements host.log(msg).
func (b *Binding) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	b.hub.Logger().Info(msg, "plugin", b.plugin)
	return 0
}
