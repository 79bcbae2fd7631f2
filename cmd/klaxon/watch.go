package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/klaxon/internal/dbus"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print playback signals as they happen",
	Long: `Subscribe to the daemon's PlaybackStarted and PlaybackStopped signals and
print one line per signal until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signals, err := dbus.NewMonitor(client.Conn(), logger).Watch(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for sig := range signals {
		fmt.Fprintf(out, "%s %s %s\n", time.Now().Format(time.RFC3339), sig.Name, sig.SessionID)
	}
	return nil
}
