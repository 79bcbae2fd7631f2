package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var playOpts struct {
	quiet bool
}

var playCmd = &cobra.Command{
	Use:     "play",
	Aliases: []string{"start", "sound"},
	Short:   "Start the emergency tone",
	Long: `Start the looping emergency tone.

Calling play while the tone is already sounding does nothing; the running
session keeps playing.`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

var stopCmd = &cobra.Command{
	Use:     "stop",
	Aliases: []string{"silence"},
	Short:   "Stop the emergency tone",
	Long:    `Stop the emergency tone and release the playback session. Stopping when nothing is playing is a no-op.`,
	Args:    cobra.NoArgs,
	RunE:    runStop,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(stopCmd)

	for _, cmd := range []*cobra.Command{playCmd, stopCmd} {
		cmd.Flags().BoolVarP(&playOpts.quiet, "quiet", "q", false, "Suppress output")
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := callContext()
	defer cancel()

	if err := client.Play(ctx); err != nil {
		return err
	}
	if !playOpts.quiet {
		fmt.Fprintln(cmd.OutOrStdout(), "Emergency tone started")
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := callContext()
	defer cancel()

	if err := client.Stop(ctx); err != nil {
		return err
	}
	if !playOpts.quiet {
		fmt.Fprintln(cmd.OutOrStdout(), "Emergency tone stopped")
	}
	return nil
}
