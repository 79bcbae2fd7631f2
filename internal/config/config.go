// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// Output formats understood by the CLI.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config represents the klaxon CLI configuration.
type Config struct {
	Output OutputConfig `toml:"output"`
	Client ClientConfig `toml:"client"`
}

// OutputConfig holds default output options.
type OutputConfig struct {
	Format string `toml:"format"` // text, json, yaml
}

// ClientConfig holds how the CLI reaches klaxond.
type ClientConfig struct {
	Bus     string   `toml:"bus"`
	BusName string   `toml:"bus_name"`
	Timeout Duration `toml:"timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Format: FormatText,
		},
		Client: ClientConfig{
			Bus:     BusSession,
			BusName: DefaultBusName,
			Timeout: Duration(5 * time.Second),
		},
	}
}

// ConfigPath returns the path to the CLI config file.
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "klaxon", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the CLI configuration.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("invalid output format %q, must be text, json or yaml", c.Output.Format)
	}
	if c.Client.Bus != BusSession && c.Client.Bus != BusSystem {
		return fmt.Errorf("invalid bus %q", c.Client.Bus)
	}
	if c.Client.BusName == "" {
		return errors.New("bus_name must not be empty")
	}
	return nil
}
