// Package main wires together the modality scout binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modalityscout",
		Short: "Collects delivery/pickup availability per postal code.",
		Long: `modalityscout enumerates postal codes, queries the retailer's
modality-options endpoint for each, and appends the delivery/pickup
availability and fulfilling brands to a resumable CSV ledger. Rerunning the
command skips every postal code already present in the ledger.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus SCOUT_* env vars)")
	cmd.AddCommand(newRunCmd())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "modalityscout: %v\n", err)
		os.Exit(1)
	}
}
