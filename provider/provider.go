// Package provider defines the capability set the reconciler requires from a
// provisioning platform.
//
// An Adapter implements create/read/update/delete for one resource kind. The
// core never assumes a specific transport; it only requires these four
// operations and the error taxonomy in this package.
package provider

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// A CreateRequest asks the adapter to materialize a new resource.
type CreateRequest struct {
	// Kind and Name identify the resource in logs and errors.
	Kind string
	Name string

	// Input contains the desired attribute values. All values are known;
	// references were resolved before the call.
	Input cty.Value
}

// An UpdateRequest asks the adapter to mutate a materialized resource in
// place.
type UpdateRequest struct {
	Kind string
	Name string

	// ID is the physical identifier issued at create.
	ID string

	// Input contains the desired attribute values.
	Input cty.Value

	// Previous contains the attribute values from the last applied
	// snapshot.
	Previous cty.Value
}

// A DeleteRequest asks the adapter to destroy a materialized resource.
type DeleteRequest struct {
	Kind string
	Name string
	ID   string

	// Force instructs the adapter to first remove any contained child data
	// (such as objects in a storage bucket). Without it, deleting a
	// non-empty container fails with a NotEmptyError.
	Force bool

	// Output contains the last known provider attributes, for adapters
	// that need more than the id to delete.
	Output cty.Value
}

// An Adapter performs provisioning operations for a single resource kind.
//
// Create and Update return the provider issued attributes as an object value
// that includes the physical id. Adapters must be safe for concurrent use;
// the reconciler provisions independent resources in parallel.
type Adapter interface {
	Create(ctx context.Context, req *CreateRequest) (cty.Value, error)
	Read(ctx context.Context, kind, id string) (cty.Value, error)
	Update(ctx context.Context, req *UpdateRequest) (cty.Value, error)
	Delete(ctx context.Context, req *DeleteRequest) error
}
