package resource

import "github.com/pkg/errors"

// DefaultMinHealthyPercent is the healthy fraction a rolling replacement
// preserves when a fleet does not declare min_healthy_percent.
const DefaultMinHealthyPercent = 90

// A Fleet is a typed view of a fleet resource's capacity attributes.
type Fleet struct {
	Name              string
	ID                string
	Min               int
	Max               int
	Desired           int
	LaunchTemplate    string
	TargetGroup       string
	MinHealthyPercent int
}

// AsFleet extracts the fleet attributes from a fleet resource.
//
// Returns an error when the resource is not a fleet or its bounds are
// inconsistent (min ≤ desired ≤ max must hold).
func AsFleet(r *Resource) (*Fleet, error) {
	if r.Kind != "fleet" {
		return nil, errors.Errorf("%s is not a fleet", r.Addr())
	}
	f := &Fleet{
		Name:              r.Name,
		ID:                r.ID(),
		Min:               IntAttr(r.Input, "min"),
		Max:               IntAttr(r.Input, "max"),
		Desired:           IntAttr(r.Input, "desired"),
		LaunchTemplate:    StringAttr(r.Input, "launch_template"),
		TargetGroup:       StringAttr(r.Input, "target_group"),
		MinHealthyPercent: DefaultMinHealthyPercent,
	}
	if HasAttr(r.Input, "min_healthy_percent") {
		f.MinHealthyPercent = IntAttr(r.Input, "min_healthy_percent")
	}
	if err := f.CheckBounds(); err != nil {
		return nil, errors.Wrap(err, r.Addr())
	}
	return f, nil
}

// CheckBounds verifies min ≤ desired ≤ max.
func (f *Fleet) CheckBounds() error {
	if f.Min > f.Max {
		return errors.Errorf("fleet bounds inverted: min %d > max %d", f.Min, f.Max)
	}
	if f.Desired < f.Min || f.Desired > f.Max {
		return errors.Errorf("desired capacity %d outside bounds [%d, %d]", f.Desired, f.Min, f.Max)
	}
	return nil
}

// Clamp bounds a requested capacity to [min, max]. Clamping is silent; it is
// the designed behavior that keeps a fleet within its declared size.
func (f *Fleet) Clamp(desired int) int {
	if desired < f.Min {
		return f.Min
	}
	if desired > f.Max {
		return f.Max
	}
	return desired
}
