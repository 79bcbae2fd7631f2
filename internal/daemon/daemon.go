package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/klaxon/internal/audio"
	"github.com/jmylchreest/klaxon/internal/bridge"
	"github.com/jmylchreest/klaxon/internal/channel"
	"github.com/jmylchreest/klaxon/internal/config"
	"github.com/jmylchreest/klaxon/internal/dbus"
	"github.com/jmylchreest/klaxon/internal/metrics"
	"github.com/jmylchreest/klaxon/internal/model"
)

// Options configures a Daemon.
type Options struct {
	// ConfigPath is the daemon config file watched for hot reload.
	ConfigPath string

	// Backend overrides the beep player, mainly for tests.
	Backend audio.Backend

	// LogLevel, when set, is adjusted on config reload.
	LogLevel *slog.LevelVar

	Logger *slog.Logger
}

// Daemon wires the controller, channel registry, bridge and D-Bus server.
type Daemon struct {
	mu     sync.RWMutex
	cfg    *config.DaemonConfig
	logger *slog.Logger
	level  *slog.LevelVar

	player     *audio.Player
	controller *audio.Controller
	registry   *channel.Registry
	bridge     *bridge.Bridge
	server     *dbus.Server
	metrics    *metrics.Metrics

	metricsServer *metrics.Server
	assetWatcher  *audio.Watcher
	configWatcher *ConfigWatcher
	watchedAsset  string
	conn          *godbus.Conn
}

// New builds a daemon from cfg. Nothing is started until Start.
func New(cfg *config.DaemonConfig, opts Options) *Daemon {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Daemon{
		cfg:     cfg,
		logger:  logger,
		level:   opts.LogLevel,
		metrics: metrics.New(),
	}

	backend := opts.Backend
	if backend == nil {
		d.player = audio.NewPlayer(logger.With("component", "player"))
		d.player.SetLatency(cfg.Audio.Latency.Duration())
		d.player.SetVolume(volumeFraction(cfg.Audio.Volume))
		backend = d.player
	}

	d.controller = audio.NewController(backend, cfg.AssetPath(), logger.With("component", "controller"))
	d.registry = channel.NewRegistry(logger.With("component", "channels"))

	d.bridge = bridge.New(d.controller, logger.With("component", "bridge"))
	d.bridge.SetObserver(d.metrics.RecordBridgeCall)

	d.server = dbus.NewServer(d.bridge, d.controller, d.registry, logger.With("component", "dbus"))
	d.server.SetBusName(cfg.DBus.BusName)

	d.controller.SetOnChange(d.handleSessionEvent)

	d.configWatcher = NewConfigWatcher(opts.ConfigPath, logger.With("component", "config"))
	d.configWatcher.SetPollInterval(cfg.Reload.Interval.Duration())
	d.configWatcher.SetReloadCallback(d.ApplyConfig)
	d.configWatcher.SetErrorCallback(d.metrics.RecordConfigReload)

	return d
}

func volumeFraction(volume int) float64 {
	return float64(volume) / 100
}

// handleSessionEvent fans controller events out to metrics and D-Bus signals.
func (d *Daemon) handleSessionEvent(e model.SessionEvent) {
	d.metrics.RecordSessionEvent(e)
	d.server.HandleSessionEvent(e)
}

// RegisterChannels registers the emergency and default channels from the
// current config. Failures are logged and returned but are not fatal.
func (d *Daemon) RegisterChannels(ctx context.Context) error {
	err := channel.RegisterDefaults(ctx, d.registry, d.Config(), d.logger)
	d.metrics.SetChannelsRegistered(d.registry.Count())
	return err
}

// Start registers channels and starts the D-Bus server, metrics endpoint and
// watchers. A nil conn skips the D-Bus server.
func (d *Daemon) Start(ctx context.Context, conn *godbus.Conn) error {
	if err := d.RegisterChannels(ctx); err != nil {
		d.logger.Warn("channel registration incomplete", "error", err)
	}

	cfg := d.Config()

	if conn != nil {
		if err := d.server.Start(conn); err != nil {
			return fmt.Errorf("failed to start D-Bus server: %w", err)
		}
		d.conn = conn
	}

	if cfg.Metrics.Enabled {
		d.metricsServer = metrics.NewServer(cfg.Metrics.Listen, d.metrics, d.logger.With("component", "metrics"))
		if err := d.metricsServer.Start(); err != nil {
			d.logger.Warn("failed to start metrics server", "listen", cfg.Metrics.Listen, "error", err)
			d.metricsServer = nil
		}
	}

	if cfg.Audio.WatchAsset && d.player != nil {
		if err := d.startAssetWatcher(cfg.AssetPath()); err != nil {
			d.logger.Warn("failed to watch alert asset", "error", err)
		}
	}

	if cfg.Reload.Enabled {
		if err := d.configWatcher.Start(ctx, cfg); err != nil {
			d.logger.Warn("failed to start config watcher", "error", err)
		}
	}

	d.logger.Info("daemon started", "asset", cfg.AssetPath(), "channels", d.registry.Count())
	return nil
}

func (d *Daemon) startAssetWatcher(asset string) error {
	w, err := audio.NewWatcher(d.player, d.logger.With("component", "asset-watcher"))
	if err != nil {
		return err
	}
	w.SetOnChange(func(string) { d.metrics.RecordAssetInvalidation() })
	w.Start()

	d.mu.Lock()
	d.assetWatcher = w
	d.mu.Unlock()

	return d.watchAsset(asset)
}

// watchAsset moves the asset watch to asset. The builtin siren is not watched.
func (d *Daemon) watchAsset(asset string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.assetWatcher == nil || asset == d.watchedAsset {
		return nil
	}
	if d.watchedAsset != "" {
		d.assetWatcher.Unwatch(d.watchedAsset)
		d.watchedAsset = ""
	}
	if asset == config.BuiltinSiren {
		return nil
	}
	if err := d.assetWatcher.Watch(asset); err != nil {
		return err
	}
	d.watchedAsset = asset
	return nil
}

// ApplyConfig applies a reloaded config. The asset and volume take effect on
// the next session; a playing session is not interrupted.
func (d *Daemon) ApplyConfig(cfg *config.DaemonConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	d.controller.SetAsset(cfg.AssetPath())
	if d.player != nil {
		d.player.SetVolume(volumeFraction(cfg.Audio.Volume))
	}
	if d.level != nil {
		d.level.Set(cfg.SlogLevel())
	}
	if err := d.watchAsset(cfg.AssetPath()); err != nil {
		d.logger.Warn("failed to watch alert asset", "error", err)
	}

	err := d.RegisterChannels(context.Background())
	if err != nil {
		d.logger.Warn("channel re-registration incomplete", "error", err)
	}
	d.metrics.RecordConfigReload(err)

	d.logger.Info("config applied", "asset", cfg.AssetPath(), "volume", cfg.Audio.Volume)
}

// Reload reloads the config file immediately.
func (d *Daemon) Reload() error {
	return d.configWatcher.Reload()
}

// Shutdown stops playback first, then the D-Bus server, watchers and metrics
// endpoint. It returns every non-fatal error joined.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.controller.Teardown()

	var errs []error
	if d.conn != nil {
		if err := d.server.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	d.configWatcher.Stop()

	d.mu.Lock()
	w := d.assetWatcher
	d.assetWatcher = nil
	d.mu.Unlock()
	if w != nil {
		if err := w.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("asset watcher: %w", err))
		}
	}

	if d.metricsServer != nil {
		if err := d.metricsServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}

	if d.player != nil {
		d.player.Close()
	}

	d.logger.Info("daemon stopped")
	return errors.Join(errs...)
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.DaemonConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Controller returns the playback controller.
func (d *Daemon) Controller() *audio.Controller { return d.controller }

// Registry returns the channel registry.
func (d *Daemon) Registry() *channel.Registry { return d.registry }

// Bridge returns the command bridge.
func (d *Daemon) Bridge() *bridge.Bridge { return d.bridge }

// Server returns the D-Bus server.
func (d *Daemon) Server() *dbus.Server { return d.server }

// Metrics returns the daemon metrics.
func (d *Daemon) Metrics() *metrics.Metrics { return d.metrics }
