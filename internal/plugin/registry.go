package plugin

import (
	"sync"

	"github.com/dsaub/modulish-bot/internal/host"
	"github.com/dsaub/modulish-bot/internal/plugin/engine"
)

// Entry is the registry record for a loaded plugin. An entry exists only
// while the plugin's module is loaded and its setup hook has been attempted.
type Entry struct {
	// Manifest is the metadata the plugin was loaded with.
	Manifest *Manifest

	// Module is the opaque handle to the plugin's execution context.
	// Invalidated on unload; never retained across a reload boundary.
	Module *engine.Module

	// ConfigDir is the plugin's persistent data directory. Created on
	// load, never removed on unload.
	ConfigDir string

	// binding collects the capabilities the plugin registered with the
	// host, detached on unload.
	binding *host.Binding
}

// Registry maps plugin names to their loaded state. It is owned by the
// Manager; nothing else mutates it. A name present in the registry implies
// its module is currently loaded.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Get returns the entry for a name.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Has reports whether a name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// add registers an entry. Returns false when the name is already present;
// the registry never holds two entries for one name.
func (r *Registry) add(name string, e *Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return false
	}
	r.entries[name] = e
	r.order = append(r.order, name)
	return true
}

// remove drops an entry.
func (r *Registry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Names returns registered names in load order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...)
}

// Len returns the number of loaded plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
