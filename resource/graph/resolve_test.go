package graph_test

import (
	"testing"

	"github.com/converge/converge/resource"
	"github.com/converge/converge/resource/graph"
	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty/cty"
)

func TestGraph_Resolve(t *testing.T) {
	g := graph.New()
	g.AddResource(&resource.Resource{Kind: "network", Name: "net"})
	g.AddResource(&resource.Resource{Kind: "subnet", Name: "sub"})
	g.AddResource(&resource.Resource{Kind: "fleet", Name: "app"})
	g.AddResource(&resource.Resource{Kind: "storage_bucket", Name: "logs"})

	// net -> sub through a declared expression.
	g.AddDependency("sub", graph.Dependency{
		Field: cty.GetAttrPath("network"),
		Expression: graph.Expression{
			graph.ExprReference{Path: cty.GetAttrPath("net").GetAttr("id")},
		},
	})
	// sub -> app through recorded deps, as read back from state.
	g.Resources["app"].Deps = []string{"sub"}

	order, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}

	got := make([]string, len(order))
	for i, res := range order {
		got[i] = res.Name
	}
	want := []string{"logs", "net", "sub", "app"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Resolve() order (-got +want)\n%s", diff)
	}
}

func TestGraph_Resolve_deterministic(t *testing.T) {
	// Diamond: base -> {left, right} -> top. The order between left and
	// right is not constrained by dependencies; it must still come out the
	// same on every resolution.
	build := func() *graph.Graph {
		g := graph.New()
		g.AddResource(&resource.Resource{Kind: "network", Name: "base"})
		g.AddResource(&resource.Resource{Kind: "subnet", Name: "left", Deps: []string{"base"}})
		g.AddResource(&resource.Resource{Kind: "subnet", Name: "right", Deps: []string{"base"}})
		g.AddResource(&resource.Resource{Kind: "fleet", Name: "top", Deps: []string{"left", "right"}})
		return g
	}

	want := []string{"base", "left", "right", "top"}
	for i := 0; i < 50; i++ {
		order, err := build().Resolve()
		if err != nil {
			t.Fatalf("Resolve() err = %v", err)
		}
		got := make([]string, len(order))
		for j, res := range order {
			got[j] = res.Name
		}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Fatalf("Resolve() not deterministic on run %d (-got +want)\n%s", i, diff)
		}
	}
}

func TestGraph_Resolve_cycle(t *testing.T) {
	g := graph.New()
	g.AddResource(&resource.Resource{Kind: "network", Name: "a"})
	g.AddResource(&resource.Resource{Kind: "network", Name: "b"})
	g.AddDependency("a", graph.Dependency{
		Field: cty.GetAttrPath("cidr_block"),
		Expression: graph.Expression{
			graph.ExprReference{Path: cty.GetAttrPath("b").GetAttr("id")},
		},
	})
	g.AddDependency("b", graph.Dependency{
		Field: cty.GetAttrPath("cidr_block"),
		Expression: graph.Expression{
			graph.ExprReference{Path: cty.GetAttrPath("a").GetAttr("id")},
		},
	})

	order, err := g.Resolve()
	if order != nil {
		t.Errorf("Resolve() returned a partial order for a cyclic graph: %v", order)
	}
	cerr, ok := err.(*graph.CycleError)
	if !ok {
		t.Fatalf("Resolve() err = %v, want *graph.CycleError", err)
	}
	want := []string{"network.a", "network.b"}
	if diff := cmp.Diff(cerr.Names, want); diff != "" {
		t.Errorf("CycleError names (-got +want)\n%s", diff)
	}
}

func TestGraph_Resolve_selfReference(t *testing.T) {
	g := graph.New()
	g.AddResource(&resource.Resource{Kind: "network", Name: "a", Deps: []string{"a"}})

	_, err := g.Resolve()
	cerr, ok := err.(*graph.CycleError)
	if !ok {
		t.Fatalf("Resolve() err = %v, want *graph.CycleError", err)
	}
	want := []string{"network.a"}
	if diff := cmp.Diff(cerr.Names, want); diff != "" {
		t.Errorf("CycleError names (-got +want)\n%s", diff)
	}
}

func TestGraph_Resolve_danglingDep(t *testing.T) {
	// Deps recorded in state may name resources that are no longer
	// declared. They do not constrain the order.
	g := graph.New()
	g.AddResource(&resource.Resource{Kind: "network", Name: "a", Deps: []string{"removed"}})

	order, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}
	if len(order) != 1 || order[0].Name != "a" {
		t.Errorf("Resolve() = %v, want [a]", order)
	}
}

func TestGraph_Resolve_empty(t *testing.T) {
	order, err := graph.New().Resolve()
	if err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}
	if len(order) != 0 {
		t.Errorf("Resolve() = %v, want empty", order)
	}
}
