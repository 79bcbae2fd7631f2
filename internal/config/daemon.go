package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/klaxon/internal/model"
)

// BuiltinSiren selects the synthesised two-tone siren instead of a file.
const BuiltinSiren = model.BuiltinSirenAsset

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "100ms", "1s", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '100ms', '1s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for klaxond.
// Loaded from ~/.config/klaxon/klaxond.toml
type DaemonConfig struct {
	Audio    AudioConfig    `toml:"audio"`
	Channels ChannelsConfig `toml:"channels"`
	DBus     DBusConfig     `toml:"dbus"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Log      LogConfig      `toml:"log"`
	Reload   ReloadConfig   `toml:"reload"`
}

// AudioConfig contains alert playback settings.
type AudioConfig struct {
	Asset      string   `toml:"asset"`       // File path or "builtin:siren"
	Volume     int      `toml:"volume"`      // 0-100
	Latency    Duration `toml:"latency"`     // Speaker buffer length
	WatchAsset bool     `toml:"watch_asset"` // Drop the decode cache when the file changes
}

// ChannelsConfig contains the two notification channels registered at startup.
type ChannelsConfig struct {
	Emergency ChannelConfig `toml:"emergency"`
	Default   ChannelConfig `toml:"default"`
}

// ChannelConfig overrides the presentation of a notification channel.
type ChannelConfig struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Importance  string `toml:"importance"` // "low", "default", "high"
}

// DBusConfig contains method bridge settings.
type DBusConfig struct {
	Bus     string `toml:"bus"`      // "session" or "system"
	BusName string `toml:"bus_name"` // Well-known name to claim
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// ReloadConfig contains config hot-reload settings.
type ReloadConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

// Bus names.
const (
	BusSession = "session"
	BusSystem  = "system"
)

// DefaultBusName is the well-known name klaxond claims.
const DefaultBusName = "io.github.jmylchreest.Klaxon"

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	emergency := model.EmergencyChannel("")
	def := model.DefaultChannel()

	return &DaemonConfig{
		Audio: AudioConfig{
			Asset:      BuiltinSiren,
			Volume:     100,
			Latency:    Duration(100 * time.Millisecond),
			WatchAsset: true,
		},
		Channels: ChannelsConfig{
			Emergency: ChannelConfig{
				Name:        emergency.Name,
				Description: emergency.Description,
				Importance:  model.ImportanceNames[emergency.Importance],
			},
			Default: ChannelConfig{
				Name:        def.Name,
				Description: def.Description,
				Importance:  model.ImportanceNames[def.Importance],
			},
		},
		DBus: DBusConfig{
			Bus:     BusSession,
			BusName: DefaultBusName,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9466",
		},
		Log: LogConfig{
			Level: "info",
		},
		Reload: ReloadConfig{
			Enabled:  true,
			Interval: Duration(time.Second),
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "klaxon", "klaxond.toml")
}

// LoadDaemonConfig loads the daemon configuration from the default path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig() (*DaemonConfig, error) {
	return LoadDaemonConfigFrom(DaemonConfigPath())
}

// LoadDaemonConfigFrom loads the daemon configuration from path.
func LoadDaemonConfigFrom(path string) (*DaemonConfig, error) {
	if path == "" {
		path = DaemonConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig saves the daemon configuration to path, or the default
// path when empty.
func SaveDaemonConfig(config *DaemonConfig, path string) error {
	if path == "" {
		var err error
		path, err = xdg.ConfigFile(filepath.Join("klaxon", "klaxond.toml"))
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if strings.TrimSpace(c.Audio.Asset) == "" {
		return fmt.Errorf("audio asset must not be empty")
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	if lat := c.Audio.Latency.Duration(); lat < 10*time.Millisecond || lat > time.Second {
		return fmt.Errorf("latency must be between 10ms and 1s, got %s", lat)
	}

	for name, ch := range map[string]ChannelConfig{
		model.EmergencyChannelID: c.Channels.Emergency,
		model.DefaultChannelID:   c.Channels.Default,
	} {
		if strings.TrimSpace(ch.Name) == "" {
			return fmt.Errorf("channel %s: name must not be empty", name)
		}
		if _, err := ParseImportance(ch.Importance); err != nil {
			return fmt.Errorf("channel %s: %w", name, err)
		}
	}

	if c.DBus.Bus != BusSession && c.DBus.Bus != BusSystem {
		return fmt.Errorf("invalid bus %q, must be %q or %q", c.DBus.Bus, BusSession, BusSystem)
	}
	if c.DBus.BusName == "" {
		return fmt.Errorf("bus_name must not be empty")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics listen address must be set when metrics are enabled")
	}

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}

	if c.Reload.Enabled && c.Reload.Interval.Duration() < 100*time.Millisecond {
		return fmt.Errorf("reload interval must be at least 100ms, got %s", c.Reload.Interval.Duration())
	}

	return nil
}

// ParseImportance converts an importance name to its level.
func ParseImportance(name string) (int, error) {
	for level, n := range model.ImportanceNames {
		if strings.EqualFold(name, n) {
			return level, nil
		}
	}
	return 0, fmt.Errorf("invalid importance %q, must be one of: %v", name, importanceNames())
}

func importanceNames() []string {
	names := make([]string, 0, len(model.ImportanceNames))
	for _, n := range model.ImportanceNames {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// ParseLogLevel converts a level name to a slog.Level.
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// SlogLevel returns the configured log level, defaulting to info.
func (c *DaemonConfig) SlogLevel() slog.Level {
	level, err := ParseLogLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// AssetPath returns the alert asset with ~ expanded and the path cleaned.
// The builtin siren is returned unchanged.
func (c *DaemonConfig) AssetPath() string {
	if c.Audio.Asset == BuiltinSiren {
		return BuiltinSiren
	}
	return filepath.Clean(expandPath(c.Audio.Asset))
}

// EmergencyChannel returns the emergency channel descriptor. Its sound is the
// configured alert asset.
func (c *DaemonConfig) EmergencyChannel() model.ChannelDescriptor {
	ch := model.EmergencyChannel(c.AssetPath())
	applyChannelConfig(&ch, c.Channels.Emergency)
	return ch
}

// DefaultChannel returns the default channel descriptor.
func (c *DaemonConfig) DefaultChannel() model.ChannelDescriptor {
	ch := model.DefaultChannel()
	applyChannelConfig(&ch, c.Channels.Default)
	return ch
}

func applyChannelConfig(ch *model.ChannelDescriptor, cc ChannelConfig) {
	if cc.Name != "" {
		ch.Name = cc.Name
	}
	if cc.Description != "" {
		ch.Description = cc.Description
	}
	if level, err := ParseImportance(cc.Importance); err == nil {
		ch.Importance = level
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
