// Package plan computes the ordered sequence of actions that drives observed
// state to match desired state.
//
// The differ is pure; it performs no provider calls. A built plan is owned by
// a single apply run and discarded afterwards.
package plan

import (
	"github.com/converge/converge/resource"
	"github.com/converge/converge/resource/graph"
	"github.com/converge/converge/state"
)

// Action is the operation a change performs on one resource.
type Action int

// Actions a plan can contain.
const (
	NoOp Action = iota
	Create
	Update
	Replace
	Destroy
)

func (a Action) String() string {
	switch a {
	case NoOp:
		return "no-op"
	case Create:
		return "create"
	case Update:
		return "update"
	case Replace:
		return "replace"
	case Destroy:
		return "destroy"
	}
	return "invalid"
}

// Symbol returns the plan output marker for the action.
func (a Action) Symbol() string {
	switch a {
	case Create:
		return "+"
	case Update:
		return "~"
	case Replace:
		return "-/+"
	case Destroy:
		return "-"
	}
	return " "
}

// A Change is a single per-resource action within a plan.
type Change struct {
	// Name is the logical name of the resource.
	Name string

	// Kind is the resource kind.
	Kind string

	// Action to perform.
	Action Action

	// Resource is the desired resource. Nil for Destroy.
	Resource *resource.Resource

	// Record is the observed state. Nil for Create.
	Record *state.Record

	// Rolling is set on fleet updates where a launch specification
	// attribute changed; the fleet's members are replaced in rolling
	// batches after the update.
	Rolling bool

	// Changed lists the attribute names that differ, sorted.
	Changed []string

	// WaitFor lists the names of changes that must complete before this
	// change may start. For create and update these are the resource's
	// dependencies; for destroy they are its dependents.
	WaitFor []string

	// Dependencies carries the expressions to re-evaluate against parent
	// outputs before invoking the provider.
	Dependencies []graph.Dependency

	// Force marks destroys that should remove contained child data first.
	Force bool
}

// A Plan is an ordered sequence of changes. Changes appear in an order that
// satisfies every dependency: a change never precedes a change it waits for.
type Plan struct {
	// Project the plan was built for.
	Project string

	// Changes in apply order.
	Changes []*Change
}

// Change returns the change for the named resource, or nil if the plan does
// not contain one.
func (p *Plan) Change(name string) *Change {
	for _, c := range p.Changes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Pending returns the number of changes that perform an action.
func (p *Plan) Pending() int {
	n := 0
	for _, c := range p.Changes {
		if c.Action != NoOp {
			n++
		}
	}
	return n
}
