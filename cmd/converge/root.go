// Package cmd implements the converge command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

// Converge is the root command.
var Converge = &cobra.Command{
	Use:           "converge",
	Short:         "Declarative infrastructure provisioning with closed-loop autoscaling",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	flags := Converge.PersistentFlags()
	flags.String("state", "", "State file (default ~/.converge/state.db)")
	flags.String("project", "", "Project name, overriding the project block")
	flags.BoolP("verbose", "v", false, "Verbose logging")
	flags.Bool("mock", false, "Provision against an in-memory provider and state")
}
