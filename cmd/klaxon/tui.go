package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/klaxon/internal/dbus"
	"github.com/jmylchreest/klaxon/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive alarm panel",
	Long: `Launch the interactive terminal panel for the emergency tone.

The panel shows whether the tone is sounding, the active session and how
long ago it started. It follows the daemon's playback signals and polls
as a fallback.

Key bindings:
  space/enter  Toggle the tone
  p            Start the tone
  s/esc        Stop the tone
  c            Show registered channels
  r            Refresh
  ?            Show help
  q            Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signals are optional; the panel falls back to polling
	signals, err := dbus.NewMonitor(client.Conn(), logger).Watch(ctx)
	if err != nil {
		logger.Warn("failed to subscribe to playback signals", "error", err)
		signals = nil
	}

	return tui.Run(tui.RunOptions{
		Client:  client,
		Signals: signals,
		Timeout: cfg.Client.Timeout.Duration(),
	})
}
