package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/converge/converge/plan"
	"github.com/spf13/cobra"
)

var destroyForce bool

var destroyCommand = &cobra.Command{
	Use:   "destroy [dir]",
	Short: "Destroy every resource recorded for the project",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ws := loadWorkspace(cmd, args)
		defer ws.close()

		ctx := signalContext(context.Background())

		observed, err := ws.store.List(ctx, ws.project)
		if err != nil {
			fatal(err)
		}

		p := plan.BuildDestroy(ws.project, observed, destroyForce)
		if p.Pending() == 0 {
			fmt.Println("No resources to destroy.")
			return
		}
		printPlan(os.Stdout, p)

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
	destroyCommand.Flags().BoolVar(&destroyForce, "force", false, "Delete contained data from resources that hold it")
	Converge.AddCommand(destroyCommand)
}
