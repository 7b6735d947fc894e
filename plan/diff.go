package plan

import (
	"sort"

	"github.com/converge/converge/resource"
	"github.com/converge/converge/state"
	"github.com/zclconf/go-cty/cty"
)

// Diff computes the action required to drive a single resource from its
// observed state to its desired state.
//
// A nil observed record yields Create. When any changed attribute is
// classified immutable for the kind, the result is Replace; a changed
// rolling attribute (a fleet's launch specification) yields Update with
// Rolling set. Otherwise changed mutable attributes yield Update and no
// changes yield NoOp. A tainted record yields a rolling Update even with
// unchanged inputs, so members that never converged get replaced.
//
// Unknown desired values hold unresolved references. They compare equal to
// the observed snapshot unless parentChanged is set, in which case the
// referenced parent produced new outputs and the value must be re-applied.
func Diff(desired *resource.Resource, observed *state.Record, schema resource.Schema, parentChanged bool) *Change {
	c := &Change{
		Name:     desired.Name,
		Kind:     desired.Kind,
		Resource: desired,
		Record:   observed,
	}

	if observed == nil {
		c.Action = Create
		return c
	}
	if observed.Kind != desired.Kind {
		// The name was reused for a different kind.
		c.Action = Replace
		return c
	}

	replace := false
	rolling := false
	for name, attr := range schema.Attributes {
		if attr.Computed {
			continue
		}
		if !attrChanged(desired.Input, observed.Input, name, parentChanged) {
			continue
		}
		c.Changed = append(c.Changed, name)
		switch attr.Strategy {
		case resource.UpdateReplace:
			replace = true
		case resource.UpdateRolling:
			rolling = true
		}
	}
	sort.Strings(c.Changed)

	// A tainted record means a previous rollout failed after the record was
	// written; the members never converged and must be replaced even when
	// the inputs are unchanged.
	tainted := observed.Status == state.StatusTainted

	switch {
	case replace:
		c.Action = Replace
	case len(c.Changed) > 0 || tainted:
		c.Action = Update
		c.Rolling = rolling || tainted
	default:
		c.Action = NoOp
	}
	return c
}

// attrChanged compares one attribute between the desired input and the
// observed snapshot.
func attrChanged(desired, observed cty.Value, name string, parentChanged bool) bool {
	dv := attrOrNull(desired, name)
	ov := attrOrNull(observed, name)
	if dv != cty.NilVal && !dv.IsWhollyKnown() {
		// Unresolved reference: the value only changes if the parent it
		// resolves from changed.
		return parentChanged
	}
	if dv == cty.NilVal && ov == cty.NilVal {
		return false
	}
	if dv == cty.NilVal {
		return !ov.IsNull()
	}
	if ov == cty.NilVal {
		return !dv.IsNull()
	}
	return !dv.RawEquals(ov)
}

func attrOrNull(obj cty.Value, name string) cty.Value {
	if obj == cty.NilVal || obj.IsNull() || !obj.Type().IsObjectType() {
		return cty.NilVal
	}
	if !obj.Type().HasAttribute(name) {
		return cty.NilVal
	}
	return obj.GetAttr(name)
}
