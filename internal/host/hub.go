// Package host exposes the host-side surface plugins program against:
// named command groups, dispatch, and the handle passed to lifecycle hooks.
package host

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Hub errors.
var (
	// ErrGroupExists is returned when a command group name is already owned.
	ErrGroupExists = errors.New("command group already registered")

	// ErrUnknownCommand is returned when dispatch finds no matching command.
	ErrUnknownCommand = errors.New("unknown command")
)

// Capability is a host-visible resource a plugin registered. The lifecycle
// manager collects capabilities per plugin and detaches them on unload
// without knowing their concrete type.
type Capability interface {
	// Name identifies the capability for logs and status output.
	Name() string

	// Detach removes the capability from the host.
	Detach() error
}

// CommandFunc handles one dispatched command invocation.
type CommandFunc func(args []string) (string, error)

// Hub owns the host's command groups. All methods are safe for
// concurrent use.
type Hub struct {
	mu sync.RWMutex

	name   string
	prefix string
	logger *slog.Logger

	// group name -> owner plugin
	owners map[string]string
	// group name -> command name -> handler
	groups map[string]map[string]CommandFunc
}

// NewHub creates a Hub for the named host.
func NewHub(name, prefix string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:   name,
		prefix: prefix,
		logger: logger,
		owners: make(map[string]string),
		groups: make(map[string]map[string]CommandFunc),
	}
}

// Name returns the host's display name.
func (h *Hub) Name() string { return h.name }

// Prefix returns the host's command prefix.
func (h *Hub) Prefix() string { return h.prefix }

// Logger returns the hub's logger.
func (h *Hub) Logger() *slog.Logger { return h.logger }

// RegisterGroup claims a command group for the owner plugin and returns a
// capability that removes the whole group when detached.
func (h *Hub) RegisterGroup(owner, group string) (Capability, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.owners[group]; ok {
		if existing != owner {
			return nil, fmt.Errorf("%w: %s (owned by %s)", ErrGroupExists, group, existing)
		}
		return &groupCapability{hub: h, owner: owner, group: group}, nil
	}

	h.owners[group] = owner
	h.groups[group] = make(map[string]CommandFunc)
	return &groupCapability{hub: h, owner: owner, group: group}, nil
}

// AddCommand registers a command handler inside an owned group.
func (h *Hub) AddCommand(group, name string, fn CommandFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cmds, ok := h.groups[group]
	if !ok {
		return fmt.Errorf("command group %q is not registered", group)
	}
	cmds[name] = fn
	return nil
}

// Dispatch invokes the named command, searching all groups.
func (h *Hub) Dispatch(name string, args []string) (string, error) {
	h.mu.RLock()
	var fn CommandFunc
	for _, cmds := range h.groups {
		if f, ok := cmds[name]; ok {
			fn = f
			break
		}
	}
	h.mu.RUnlock()

	if fn == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return fn(args)
}

// Commands returns all dispatchable command names, sorted.
func (h *Hub) Commands() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var names []string
	for _, cmds := range h.groups {
		for name := range cmds {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// GroupOwner returns the plugin owning the named group.
func (h *Hub) GroupOwner(group string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	owner, ok := h.owners[group]
	return owner, ok
}

// removeGroup drops a group and its commands. Removing a group that is
// already gone is not an error.
func (h *Hub) removeGroup(owner, group string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	existing, ok := h.owners[group]
	if !ok {
		return nil
	}
	if existing != owner {
		return fmt.Errorf("command group %q is owned by %s, not %s", group, existing, owner)
	}
	delete(h.owners, group)
	delete(h.groups, group)
	return nil
}

// groupCapability detaches a plugin-owned command group.
type groupCapability struct {
	hub   *Hub
	owner string
	group string
}

func (c *groupCapability) Name() string {
	return "command-group:" + c.group
}

func (c *groupCapability) Detach() error {
	return c.hub.removeGroup(c.owner, c.group)
}
