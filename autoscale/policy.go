package autoscale

import (
	"time"
)

// A Policy adjusts one fleet's desired capacity when its alarm fires.
type Policy struct {
	// Name identifies the policy in config and logs.
	Name string

	// Fleet is the logical name of the fleet the policy adjusts.
	Fleet string

	// Adjustment is the capacity delta applied on dispatch. Negative
	// values scale in.
	Adjustment int

	// Cooldown is the window after a dispatch during which further
	// dispatches in the same direction on the fleet are suppressed.
	Cooldown time.Duration
}

// Direction returns which way the policy scales, from the sign of its
// adjustment.
func (p *Policy) Direction() Direction {
	if p.Adjustment < 0 {
		return ScaleIn
	}
	return ScaleOut
}

// A Direction is the sign of a capacity adjustment.
type Direction int

// Directions a policy can scale in.
const (
	ScaleOut Direction = iota
	ScaleIn
)

func (d Direction) String() string {
	if d == ScaleIn {
		return "in"
	}
	return "out"
}

// A Dispatch records the outcome of firing a policy.
type Dispatch struct {
	// Policy and Fleet name what was dispatched.
	Policy string
	Fleet  string

	// Suppressed is set when the dispatch fell inside the policy's
	// cooldown window and was recorded but not applied.
	Suppressed bool

	// Desired is the fleet's desired capacity after the dispatch.
	Desired int

	// Clamped is set when the adjustment was bounded by the fleet's min
	// or max. Clamping is silent by design, not an error.
	Clamped bool
}
