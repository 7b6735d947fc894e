// Package resource defines the model for declared infrastructure resources
// and the schemas that describe each resource kind.
package resource

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// A Resource is a single desired resource, declared by the user.
type Resource struct {
	// Kind is the resource kind, matching a schema in the registry.
	Kind string

	// Name is the logical name. It is unique within a project.
	Name string

	// Input contains the desired attribute values as an object value.
	// Attributes that reference other resources hold unknown values until
	// the reconciler resolves them against the parents' outputs.
	Input cty.Value

	// Output contains provider issued attribute values, including the
	// physical id. Only set once the resource has been materialized.
	Output cty.Value

	// Deps contains the logical names of resources whose attributes are
	// referenced by this resource's input.
	Deps []string

	// ForceDestroy instructs the provider to remove contained child data
	// (such as objects in a storage bucket) before destroying the
	// resource. Without it, destroying a non-empty container fails.
	ForceDestroy bool
}

// Addr returns the address of the resource, used to identify the resource in
// plans, logs and error messages.
func (r *Resource) Addr() string { return r.Kind + "." + r.Name }

// ID returns the physical identifier assigned by the provider. Returns an
// empty string if the resource has not been materialized.
func (r *Resource) ID() string {
	if r.Output == cty.NilVal || r.Output.IsNull() {
		return ""
	}
	if !r.Output.Type().IsObjectType() || !r.Output.Type().HasAttribute("id") {
		return ""
	}
	v := r.Output.GetAttr("id")
	if !v.IsKnown() || v.IsNull() {
		return ""
	}
	return v.AsString()
}

func (r *Resource) String() string { return fmt.Sprintf("%q", r.Addr()) }
