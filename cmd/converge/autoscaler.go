package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/converge/converge/autoscale"
	"github.com/converge/converge/reconciler"
	"github.com/spf13/cobra"
)

var autoscalerInterval time.Duration

var autoscalerCommand = &cobra.Command{
	Use:   "autoscaler [dir]",
	Short: "Run the autoscale control loop for the project's metric alarms",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ws := loadWorkspace(cmd, args)
		defer ws.close()

		if len(ws.decoded.Alarms) == 0 {
			fmt.Fprintln(os.Stderr, "No metric alarms declared")
			os.Exit(1)
		}

		policies := make(map[string]*autoscale.Policy, len(ws.decoded.Policies))
		for _, p := range ws.decoded.Policies {
			policies[p.Name] = p
		}

		controller := &autoscale.Controller{
			Source: ws.metrics,
			Resizer: &reconciler.FleetResizer{
				Reconciler: ws.reconciler(),
				Project:    ws.project,
			},
			Alarms:   ws.decoded.Alarms,
			Policies: policies,
			Interval: autoscalerInterval,
			Logger:   ws.logger,
		}

		if err := controller.Run(signalContext(context.Background())); err != nil {
			fatal(err)
		}
	},
}

func init() {
	autoscalerCommand.Flags().DurationVar(&autoscalerInterval, "interval", autoscale.DefaultInterval, "Metric evaluation interval")
	Converge.AddCommand(autoscalerCommand)
}
