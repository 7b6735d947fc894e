package plan

import (
	"sort"

	"github.com/converge/converge/resource"
	"github.com/converge/converge/resource/graph"
	"github.com/converge/converge/state"
	"github.com/pkg/errors"
)

// Build computes the plan that drives the observed records to match the
// desired graph.
//
// Desired resources are diffed in topological order so a change to a parent
// is known when its dependents are diffed. Records with no matching desired
// resource become destroy changes, ordered so dependents are destroyed
// before their dependencies.
//
// Returns a *graph.CycleError when the declared dependencies contain a
// cycle.
func Build(project string, g *graph.Graph, observed map[string]*state.Record, reg *resource.Registry) (*Plan, error) {
	order, err := g.Resolve()
	if err != nil {
		return nil, err
	}

	p := &Plan{Project: project}

	changed := make(map[string]bool)
	for _, res := range order {
		schema, ok := reg.Kind(res.Kind)
		if !ok {
			return nil, errors.Errorf("%s: kind not registered", res.Addr())
		}
		parentChanged := false
		for _, parent := range g.Parents(res.Name) {
			if changed[parent] {
				parentChanged = true
				break
			}
		}
		c := Diff(res, observed[res.Name], schema, parentChanged)
		c.WaitFor = g.Parents(res.Name)
		c.Dependencies = g.Dependencies[res.Name]
		if c.Action != NoOp {
			changed[res.Name] = true
		}
		p.Changes = append(p.Changes, c)
	}

	// Records no longer present in the desired set are destroyed.
	var removed []*state.Record
	for name, rec := range observed {
		if _, ok := g.Resources[name]; ok {
			continue
		}
		removed = append(removed, rec)
	}
	p.Changes = append(p.Changes, destroyChanges(removed, false)...)

	return p, nil
}

// BuildDestroy computes a plan that destroys every record in observed,
// dependents before their dependencies. When force is set, every destroy
// removes contained child data first.
func BuildDestroy(project string, observed map[string]*state.Record, force bool) *Plan {
	recs := make([]*state.Record, 0, len(observed))
	for _, rec := range observed {
		recs = append(recs, rec)
	}
	return &Plan{
		Project: project,
		Changes: destroyChanges(recs, force),
	}
}

// destroyChanges builds destroy changes for the given records, ordered so a
// record's destroy never precedes the destroy of a record that depends on
// it. Ties are broken lexicographically by name so repeated builds of the
// same plan are identical.
func destroyChanges(recs []*state.Record, force bool) []*Change {
	byName := make(map[string]*state.Record, len(recs))
	for _, rec := range recs {
		byName[rec.Name] = rec
	}

	dependents := make(map[string][]string)
	for _, rec := range recs {
		for _, dep := range rec.Deps {
			if _, ok := byName[dep]; !ok {
				continue
			}
			dependents[dep] = append(dependents[dep], rec.Name)
		}
	}

	names := make([]string, 0, len(recs))
	for _, rec := range recs {
		names = append(names, rec.Name)
	}
	sort.Strings(names)

	var out []*Change
	emitted := make(map[string]bool, len(names))
	for len(out) < len(names) {
		progress := false
		for _, name := range names {
			if emitted[name] {
				continue
			}
			ready := true
			for _, dep := range dependents[name] {
				if !emitted[dep] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			rec := byName[name]
			waitFor := append([]string(nil), dependents[name]...)
			sort.Strings(waitFor)
			out = append(out, &Change{
				Name:    name,
				Kind:    rec.Kind,
				Action:  Destroy,
				Record:  rec,
				WaitFor: waitFor,
				Force:   force || resource.BoolAttr(rec.Input, "force_destroy"),
			})
			emitted[name] = true
			progress = true
		}
		if !progress {
			// Recorded deps always form a DAG; a stall here means the
			// state was edited by hand. Emit the rest in name order
			// rather than spinning.
			for _, name := range names {
				if emitted[name] {
					continue
				}
				rec := byName[name]
				out = append(out, &Change{
					Name:   name,
					Kind:   rec.Kind,
					Action: Destroy,
					Record: rec,
					Force:  force || resource.BoolAttr(rec.Input, "force_destroy"),
				})
				emitted[name] = true
			}
		}
	}
	return out
}
