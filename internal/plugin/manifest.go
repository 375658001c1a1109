package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ManifestFile is the manifest file name expected in every plugin directory.
const ManifestFile = "plugin.toml"

// Manifest describes a plugin's metadata as declared in its plugin.toml.
type Manifest struct {
	// Name is the plugin's display name. Falls back to the directory
	// base name when the manifest does not declare one.
	Name string

	// Main is the relative path to the plugin's entry file.
	Main string

	// Enabled is the declared intent of the plugin author. Defaults to true.
	Enabled bool

	// Raw holds the full decoded manifest, including plugin-private keys,
	// passed through opaquely for the plugin's own use.
	Raw map[string]any

	// dir is the absolute path to the plugin directory.
	dir string
}

// pluginSection mirrors the [plugin] table of a manifest.
type pluginSection struct {
	Name    string `toml:"name"`
	Main    string `toml:"main"`
	Enabled *bool  `toml:"enabled"`
}

// LoadManifest reads and validates a plugin manifest from a directory.
// The returned manifest always carries an absolute directory path.
func LoadManifest(dir string) (*Manifest, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnreadable, err)
	}

	data, err := os.ReadFile(filepath.Join(absDir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnreadable, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnreadable, err)
	}

	var doc struct {
		Plugin pluginSection `toml:"plugin"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnreadable, err)
	}

	m := &Manifest{
		Name:    doc.Plugin.Name,
		Main:    doc.Plugin.Main,
		Enabled: true,
		Raw:     raw,
		dir:     absDir,
	}
	if doc.Plugin.Enabled != nil {
		m.Enabled = *doc.Plugin.Enabled
	}
	if m.Name == "" {
		m.Name = filepath.Base(absDir)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// validate checks the required fields and that the entry path stays
// inside the plugin directory.
func (m *Manifest) validate() error {
	if m.Main == "" {
		return fmt.Errorf("%w: %s", ErrManifestMissingEntry, m.Name)
	}
	rel := filepath.Clean(m.Main)
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: main %q escapes the plugin directory", ErrManifestMissingEntry, m.Main)
	}
	return nil
}

// Dir returns the absolute path to the plugin directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// MainPath returns the full path to the plugin's entry file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.dir, filepath.Clean(m.Main))
}

// String returns a short display form of the manifest.
func (m *Manifest) String() string {
	state := "enabled"
	if !m.Enabled {
		state = "disabled"
	}
	return fmt.Sprintf("%s (%s)", m.Name, state)
}
