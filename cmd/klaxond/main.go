// Package main is the entry point for the klaxond emergency audio daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/klaxon/internal/config"
	"github.com/jmylchreest/klaxon/internal/daemon"
	"github.com/jmylchreest/klaxon/internal/dbus"
)

var (
	// Build-time variables
	version = "dev"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to the daemon config file (default: $XDG_CONFIG_HOME/klaxon/klaxond.toml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	noBus := flag.Bool("no-dbus", false, "Do not claim a D-Bus name (metrics and channel registration only)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("klaxond version", version)
		os.Exit(0)
	}

	// Level is adjusted on config reload
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *debug, *noBus, level, logger); err != nil {
		logger.Error("klaxond failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, debug, noBus bool, level *slog.LevelVar, logger *slog.Logger) error {
	if configPath == "" {
		configPath = config.DaemonConfigPath()
	}

	cfg, err := config.LoadDaemonConfigFrom(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level.Set(cfg.SlogLevel())
	if debug {
		level.Set(slog.LevelDebug)
	}

	logger.Info("starting klaxond", "version", version, "config", configPath)

	d := daemon.New(cfg, daemon.Options{
		ConfigPath: configPath,
		LogLevel:   level,
		Logger:     logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var conn *godbus.Conn
	if !noBus {
		conn, err = dbus.Connect(cfg.DBus.Bus)
		if err != nil {
			return err
		}
		defer conn.Close()
	}

	if err := d.Start(ctx, conn); err != nil {
		return err
	}

	// Playback stops before the bus connection is closed
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := d.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	logger.Info("klaxond ready", "bus", cfg.DBus.Bus, "name", cfg.DBus.BusName)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			logger.Info("received SIGHUP, reloading config")
			if err := d.Reload(); err != nil {
				logger.Warn("reload failed", "error", err)
			}
			continue
		}
		logger.Info("received signal, shutting down", "signal", sig)
		return nil
	}
	return nil
}
