package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/converge/converge/plan"
	"github.com/spf13/cobra"
)

var planCommand = &cobra.Command{
	Use:   "plan [dir]",
	Short: "Show the changes required to match the configuration",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ws := loadWorkspace(cmd, args)
		defer ws.close()

		ctx := signalContext(context.Background())

		observed, err := ws.store.List(ctx, ws.project)
		if err != nil {
			fatal(err)
		}

		p, err := plan.Build(ws.project, ws.decoded.Graph, observed, ws.kinds)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(planExitCode(err))
		}

		printPlan(os.Stdout, p)
	},
}

func init() {
	Converge.AddCommand(planCommand)
}
