// Package main provides the CLI entrypoint for klaxon.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/klaxon/internal/adapter/output"
	"github.com/jmylchreest/klaxon/internal/config"
	"github.com/jmylchreest/klaxon/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		bus        string
		busName    string
		output     string
		template   string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "klaxon",
	Short: "Control the klaxond emergency alert daemon",
	Long: `klaxon controls the klaxond emergency alert daemon over D-Bus.

It starts and stops the looping emergency tone, reports the current
playback session and lists the notification channels the daemon registered.

Running klaxon without a subcommand launches the interactive panel.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Flags override the config file
		if globalOpts.bus != "" {
			cfg.Client.Bus = globalOpts.bus
		}
		if globalOpts.busName != "" {
			cfg.Client.BusName = globalOpts.busName
		}
		if globalOpts.output != "" {
			cfg.Output.Format = globalOpts.output
		}
		return nil
	},
	// Default to TUI when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// exitError carries a specific exit status for an error already reported.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string { return e.err.Error() }

func (e exitError) Unwrap() error { return e.err }

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/klaxon/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.bus, "bus", "",
		"Message bus to use (session, system)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.busName, "bus-name", "",
		"Well-known name of the daemon (default: "+config.DefaultBusName+")")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.output, "output", "o", "",
		"Output format (text, json, yaml, waybar, ids)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.template, "template", "",
		"Go template for text output")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// newClient connects to the daemon named in the config.
func newClient() (*dbus.Client, error) {
	client, err := dbus.NewClient(cfg.Client.Bus, cfg.Client.BusName)
	if err != nil {
		return nil, err
	}
	logger.Debug("connected to daemon", "bus", cfg.Client.Bus, "name", cfg.Client.BusName)
	return client, nil
}

// callContext bounds a single daemon call by the configured timeout.
func callContext() (context.Context, context.CancelFunc) {
	timeout := cfg.Client.Timeout.Duration()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// formatter returns the formatter selected by --output and --template.
func formatter() output.Formatter {
	return output.NewFormatter(output.FormatType(cfg.Output.Format), output.FormatterOptions{
		Template: globalOpts.template,
	})
}
