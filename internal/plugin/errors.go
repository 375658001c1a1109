package plugin

import "errors"

// Plugin lifecycle errors.
var (
	// ErrManifestUnreadable is returned when a plugin.toml is missing or malformed.
	ErrManifestUnreadable = errors.New("plugin manifest is missing or unreadable")

	// ErrManifestMissingEntry is returned when a manifest lacks the main entry path.
	ErrManifestMissingEntry = errors.New("plugin manifest has no main entry")

	// ErrModuleLoad is returned when the plugin's entry file fails to load.
	ErrModuleLoad = errors.New("plugin module failed to load")

	// ErrAlreadyLoaded is returned when attempting to load an already loaded plugin.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")

	// ErrNotLoaded is returned when attempting to unload a plugin that is not loaded.
	ErrNotLoaded = errors.New("plugin is not loaded")

	// ErrPluginDisabled is returned when an explicit load targets a disabled plugin.
	ErrPluginDisabled = errors.New("plugin is disabled")

	// ErrPluginNotFound is returned when a plugin directory cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")
)
