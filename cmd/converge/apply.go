package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/converge/converge/plan"
	"github.com/spf13/cobra"
)

var applyCommand = &cobra.Command{
	Use:   "apply [dir]",
	Short: "Create or update resources to match the configuration",
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
		if p.Pending() == 0 {
			fmt.Println("No changes. Infrastructure matches the configuration.")
			return
		}

		result, err := ws.reconciler().Apply(ctx, ws.project, p)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		if result != nil {
			printResult(os.Stdout, result.Resources())
			if !result.OK() {
				os.Exit(1)
			}
		}
		if err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	Converge.AddCommand(applyCommand)
}
