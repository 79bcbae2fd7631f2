package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/klaxon/internal/bridge"
)

var callCmd = &cobra.Command{
	Use:   "call <method>",
	Short: "Invoke a bridge method by name",
	Long: `Invoke a method on the daemon's command bridge by name.

The bridge answers playEmergencySound and stopEmergencySound. Any other
name is reported as not implemented and exits with status 2.`,
	Example: `  klaxon call playEmergencySound
  klaxon call stopEmergencySound`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return bridge.Methods(), cobra.ShellCompDirectiveNoFileComp
	},
}

// exitNotImplemented is the exit status for an unknown bridge method.
const exitNotImplemented = 2

func init() {
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := callContext()
	defer cancel()

	method := args[0]
	err = client.Invoke(ctx, method)
	switch {
	case err == nil:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", method, bridge.StatusSuccess)
		return nil
	case errors.Is(err, bridge.ErrNotImplemented):
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", method, bridge.StatusNotImplemented)
		return exitError{code: exitNotImplemented, err: err}
	default:
		return err
	}
}
