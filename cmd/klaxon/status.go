package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/klaxon/internal/adapter/output"
	"github.com/jmylchreest/klaxon/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current playback session",
	Long: `Show whether the emergency tone is sounding.

Use -o waybar for a Waybar custom module:

  "custom/klaxon": {
    "exec": "klaxon status -o waybar",
    "interval": 2,
    "return-type": "json",
    "on-click": "klaxon stop"
  }

With -o waybar an unreachable daemon prints an "error" class instead of
failing, so the bar keeps rendering.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	f := formatter()
	info, err := fetchStatus()
	if err != nil {
		if wf, ok := f.(*output.WaybarFormatter); ok {
			logger.Debug("daemon unreachable", "error", err)
			return outputWaybarError(cmd, wf)
		}
		return err
	}
	return f.FormatStatus(cmd.OutOrStdout(), info)
}

func fetchStatus() (model.SessionInfo, error) {
	client, err := newClient()
	if err != nil {
		return model.SessionInfo{}, err
	}
	defer client.Close()

	ctx, cancel := callContext()
	defer cancel()
	return client.Status(ctx)
}

func outputWaybarError(cmd *cobra.Command, f *output.WaybarFormatter) error {
	status := f.WaybarFromSession(model.InactiveSession())
	status.Alt = "error"
	status.Class = "error"
	status.Tooltip = "klaxond unreachable"
	return encodeWaybar(cmd, status)
}

func encodeWaybar(cmd *cobra.Command, status output.WaybarStatus) error {
	return json.NewEncoder(cmd.OutOrStdout()).Encode(status)
}
