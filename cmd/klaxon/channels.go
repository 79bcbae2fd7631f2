package main

import (
	"github.com/spf13/cobra"
)

var channelsCmd = &cobra.Command{
	Use:     "channels",
	Aliases: []string{"ch"},
	Short:   "List the daemon's notification channels",
	Long:    `List the notification channels klaxond registered at startup, sorted by ID.`,
	Args:    cobra.NoArgs,
	RunE:    runChannels,
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}

func runChannels(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := callContext()
	defer cancel()

	channels, err := client.Channels(ctx)
	if err != nil {
		return err
	}
	return formatter().FormatChannels(cmd.OutOrStdout(), channels)
}
