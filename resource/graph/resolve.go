package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/converge/converge/resource"
	"github.com/pkg/errors"
	gograph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// A CycleError is returned when the declared dependencies contain a cycle.
// The graph cannot be ordered; the declared config must be corrected.
type CycleError struct {
	// Names contains the addresses of the resources forming the cycle,
	// lexicographically sorted.
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle between %s", strings.Join(e.Names, ", "))
}

type node struct {
	id int64
}

func (n node) ID() int64 { return n.id }

// Resolve produces the order in which the resources in the graph can be
// applied: every resource appears after all resources it depends on.
//
// The order is stable: resolving the same graph repeatedly yields an
// identical order, with ties broken lexicographically by resource name.
// Returns a *CycleError if any resource transitively depends on itself; no
// partial order is returned.
func (g *Graph) Resolve() ([]*resource.Resource, error) {
	names := make([]string, 0, len(g.Resources))
	for name := range g.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	dg := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(names))
	byID := make(map[int64]*resource.Resource, len(names))
	for i, name := range names {
		id := int64(i + 1)
		ids[name] = id
		byID[id] = g.Resources[name]
		dg.AddNode(node{id: id})
	}

	for _, name := range names {
		for _, parent := range g.Parents(name) {
			if parent == name {
				return nil, &CycleError{Names: []string{g.Resources[name].Addr()}}
			}
			dg.SetEdge(dg.NewEdge(node{id: ids[parent]}, node{id: ids[name]}))
		}
	}

	sorted, err := topo.SortStabilized(dg, func(nodes []gograph.Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	})
	if err != nil {
		unord, ok := err.(topo.Unorderable)
		if !ok {
			return nil, errors.Wrap(err, "sort graph")
		}
		cycle := unord[0]
		cycleNames := make([]string, len(cycle))
		for i, n := range cycle {
			cycleNames[i] = byID[n.ID()].Addr()
		}
		sort.Strings(cycleNames)
		return nil, &CycleError{Names: cycleNames}
	}

	out := make([]*resource.Resource, len(sorted))
	for i, n := range sorted {
		out[i] = byID[n.ID()]
	}
	return out, nil
}
