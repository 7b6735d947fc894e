package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/converge/converge/plan"
	"github.com/converge/converge/reconciler"
	"github.com/converge/converge/resource/graph"
	"github.com/pkg/errors"
)

// planExitCode maps a plan build error to a process exit status. Dependency
// cycles exit with 2 so scripts can tell configuration errors apart from
// transient failures.
func planExitCode(err error) int {
	if err == nil {
		return 0
	}
	if _, ok := errors.Cause(err).(*graph.CycleError); ok {
		return 2
	}
	return 1
}

// printPlan writes the pending changes in apply order followed by a count
// summary.
func printPlan(w io.Writer, p *plan.Plan) {
	counts := map[plan.Action]int{}
	for _, c := range p.Changes {
		counts[c.Action]++
		if c.Action == plan.NoOp {
			continue
		}
		suffix := ""
		if c.Rolling {
			suffix = " (rolling)"
		}
		fmt.Fprintf(w, "  %s %s%s\n", c.Action.Symbol(), c.Name, suffix)
	}
	if p.Pending() == 0 {
		fmt.Fprintln(w, "No changes. Infrastructure matches the configuration.")
		return
	}
	fmt.Fprintf(
		w, "\nPlan: %d to create, %d to update, %d to replace, %d to destroy.\n",
		counts[plan.Create], counts[plan.Update], counts[plan.Replace], counts[plan.Destroy],
	)
}

// printResult writes per-resource outcomes sorted by name followed by a count
// summary.
func printResult(w io.Writer, resources []*reconciler.ResourceResult) {
	sort.Slice(resources, func(i, j int) bool {
		return resources[i].Name < resources[j].Name
	})
	var applied, failed, blocked int
	for _, rr := range resources {
		switch rr.Outcome {
		case reconciler.OutcomeApplied:
			applied++
		case reconciler.OutcomeFailed:
			failed++
		case reconciler.OutcomeBlocked:
			blocked++
		}
		switch rr.Outcome {
		case reconciler.OutcomeFailed:
			fmt.Fprintf(w, "  %s: %s (%v)\n", rr.Name, rr.Outcome, rr.Err)
		case reconciler.OutcomeBlocked:
			fmt.Fprintf(w, "  %s: %s on %s\n", rr.Name, rr.Outcome, rr.BlockedOn)
		default:
			fmt.Fprintf(w, "  %s: %s\n", rr.Name, rr.Outcome)
		}
	}
	fmt.Fprintf(w, "\nApply complete. Resources: %d applied, %d failed, %d blocked.\n", applied, failed, blocked)
}
