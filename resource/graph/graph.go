// Package graph holds the dependency graph for a set of declared resources
// and computes the order in which they can be safely applied.
package graph

import (
	"fmt"

	"github.com/converge/converge/resource"
)

// A Graph contains the resources declared in config and the dependencies
// between them.
type Graph struct {
	Resources    map[string]*resource.Resource
	Dependencies map[string][]Dependency
}

// New creates a new empty graph.
func New() *Graph {
	return &Graph{
		Resources:    make(map[string]*resource.Resource),
		Dependencies: make(map[string][]Dependency),
	}
}

// AddResource adds a resource to the graph.
//
// Panics if the resource has no kind or no name. These must be checked by the
// calling code before adding the resource; failing to do so indicates a bug
// in the calling code.
func (g *Graph) AddResource(res *resource.Resource) {
	if res.Name == "" {
		panic("Resource has no name")
	}
	if res.Kind == "" {
		panic("Resource has no kind")
	}
	g.Resources[res.Name] = res
}

// AddDependency records a dependency for a single field of a resource.
//
// Panics if the dependent resource does not exist, or if the dependency's
// expression references a resource that does not exist. Both indicate a bug
// in the calling code: the decoder validates references before adding them.
func (g *Graph) AddDependency(name string, dep Dependency) {
	if _, ok := g.Resources[name]; !ok {
		panic(fmt.Sprintf("Resource %q does not exist", name))
	}
	for _, parent := range dep.Parents() {
		if _, ok := g.Resources[parent]; !ok {
			panic(fmt.Sprintf("Cannot add reference to non-existing resource %q", parent))
		}
	}
	g.Dependencies[name] = append(g.Dependencies[name], dep)
}

// Parents returns the names of all resources the named resource depends on,
// from both declared expressions and the resource's recorded Deps. Parents
// not present in the graph are skipped; they impose no ordering.
func (g *Graph) Parents(name string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		if _, ok := g.Resources[p]; !ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, dep := range g.Dependencies[name] {
		for _, p := range dep.Parents() {
			add(p)
		}
	}
	if res, ok := g.Resources[name]; ok {
		for _, p := range res.Deps {
			add(p)
		}
	}
	return out
}
