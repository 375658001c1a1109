// Package config reads the host's config.toml.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is where the host looks for its configuration.
const DefaultPath = "config.toml"

// Config is the host configuration.
type Config struct {
	Bot     BotConfig     `toml:"bot"`
	Paths   PathsConfig   `toml:"paths"`
	Install InstallConfig `toml:"install"`
}

// BotConfig names the host and its command prefix.
type BotConfig struct {
	Name   string `toml:"name"`
	Prefix string `toml:"prefix"`
}

// PathsConfig locates the plugins root and the per-plugin data root.
type PathsConfig struct {
	Plugins string `toml:"plugins"`
	Config  string `toml:"config"`
}

// InstallConfig tunes remote installs.
type InstallConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Load reads and validates the configuration file at path. A missing file
// is an error; the host cannot start without one.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills in optional settings.
func (c *Config) applyDefaults() {
	if c.Bot.Name == "" {
		c.Bot.Name = "modulish"
	}
	if c.Bot.Prefix == "" {
		c.Bot.Prefix = "!"
	}
	if c.Paths.Plugins == "" {
		c.Paths.Plugins = "plugins"
	}
	if c.Paths.Config == "" {
		c.Paths.Config = "config"
	}
	if c.Install.TimeoutSeconds <= 0 {
		c.Install.TimeoutSeconds = 30
	}
}

// FetchTimeout returns the configured install timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Install.TimeoutSeconds) * time.Second
}
