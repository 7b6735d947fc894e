package cmd

import (
	"strings"
	"testing"

	"github.com/converge/converge/plan"
	"github.com/converge/converge/reconciler"
	"github.com/converge/converge/resource/graph"
	"github.com/pkg/errors"
)

func TestPlanExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "NoError", err: nil, want: 0},
		{name: "Cycle", err: &graph.CycleError{Names: []string{"network.a", "subnet.b"}}, want: 2},
		{name: "WrappedCycle", err: errors.Wrap(&graph.CycleError{Names: []string{"network.a"}}, "build plan"), want: 2},
		{name: "Other", err: errors.New("scan: disk full"), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := planExitCode(tt.err); got != tt.want {
				t.Errorf("planExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPrintPlan(t *testing.T) {
	p := &plan.Plan{
		Project: "webapp",
		Changes: []*plan.Change{
			{Name: "network.main", Kind: "network", Action: plan.Create},
			{Name: "subnet.a", Kind: "subnet", Action: plan.NoOp},
			{Name: "fleet.web", Kind: "fleet", Action: plan.Update, Rolling: true},
			{Name: "storage_bucket.old", Kind: "storage_bucket", Action: plan.Destroy},
		},
	}

	var buf strings.Builder
	printPlan(&buf, p)
	out := buf.String()

	for _, want := range []string{
		"+ network.main",
		"~ fleet.web (rolling)",
		"- storage_bucket.old",
		"Plan: 1 to create, 1 to update, 0 to replace, 1 to destroy.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "subnet.a") {
		t.Errorf("plan output contains unchanged resource:\n%s", out)
	}
}

func TestPrintPlan_noChanges(t *testing.T) {
	var buf strings.Builder
	printPlan(&buf, &plan.Plan{
		Project: "webapp",
		Changes: []*plan.Change{{Name: "network.main", Action: plan.NoOp}},
	})
	if want := "No changes."; !strings.Contains(buf.String(), want) {
		t.Errorf("plan output missing %q:\n%s", want, buf.String())
	}
}

func TestPrintResult(t *testing.T) {
	resources := []*reconciler.ResourceResult{
		{Name: "network.main", Kind: "network", Action: plan.Create, Outcome: reconciler.OutcomeApplied},
		{Name: "subnet.a", Kind: "subnet", Action: plan.Create, Outcome: reconciler.OutcomeBlocked, BlockedOn: "fleet.web"},
		{Name: "fleet.web", Kind: "fleet", Action: plan.Update, Outcome: reconciler.OutcomeFailed, Err: errors.New("quota exceeded")},
	}

	var buf strings.Builder
	printResult(&buf, resources)
	out := buf.String()

	for _, want := range []string{
		"network.main: applied",
		"subnet.a: blocked on fleet.web",
		"fleet.web: failed (quota exceeded)",
		"Resources: 1 applied, 1 failed, 1 blocked.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("result output missing %q:\n%s", want, out)
		}
	}
}
