// Package state persists observed state records for provisioned resources.
//
// A record is written after every successful provider call, keyed by the
// resource's logical name. Writes are scoped to a single record; there are no
// cross-resource transactions.
package state

import (
	"github.com/zclconf/go-cty/cty"
)

// Status describes the provider-reported status of a resource.
type Status string

// Statuses a record can be in.
const (
	// StatusCreated is set once a create or update has succeeded and the
	// provider has issued outputs for the resource.
	StatusCreated Status = "created"

	// StatusTainted is set when a create succeeded but a follow-up step
	// (such as a rolling replacement) failed. A tainted resource is
	// replaced on the next apply.
	StatusTainted Status = "tainted"
)

// A Record is the last known observed state for a single resource.
type Record struct {
	// Name is the logical name of the resource.
	Name string

	// Kind is the resource kind.
	Kind string

	// ID is the physical identifier issued by the provider.
	ID string

	// Input is a snapshot of the attribute values that were applied. All
	// values are known; references were resolved before the provider call.
	Input cty.Value

	// Output contains provider issued attributes.
	Output cty.Value

	// Deps contains the logical names of resources this resource depended
	// on when it was applied. Used to order destroys of resources that
	// have been removed from config.
	Deps []string

	// Status is the provider-reported status.
	Status Status

	// LaunchHash identifies the revision of a fleet's launch specification
	// that its members were launched from. Empty for non-fleet kinds.
	LaunchHash string
}
