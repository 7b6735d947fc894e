package reconciler

import (
	"context"

	"github.com/converge/converge/provider"
	"github.com/converge/converge/resource"
	"github.com/converge/converge/resource/hash"
	"github.com/converge/converge/state"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"
)

// launchHash computes the hash identifying the revision of a fleet's launch
// specification: the attributes whose changes roll the fleet's members.
// Returns an empty string for kinds without rolling attributes.
func (r *Reconciler) launchHash(res *resource.Resource) string {
	if r.Registry == nil {
		return ""
	}
	schema, ok := r.Registry.Kind(res.Kind)
	if !ok {
		return ""
	}
	attrs := make(map[string]cty.Value)
	for name, attr := range schema.Attributes {
		if attr.Strategy != resource.UpdateRolling {
			continue
		}
		if !resource.HasAttr(res.Input, name) {
			continue
		}
		attrs[name] = res.Input.GetAttr(name)
	}
	if len(attrs) == 0 {
		return ""
	}
	return hash.Compute(res.Kind, cty.ObjectVal(attrs))
}

// A FleetResizer applies autoscale capacity adjustments through the
// reconciler, sharing the per-fleet lock with plan applies so capacity
// updates never interleave.
type FleetResizer struct {
	Reconciler *Reconciler
	Project    string
}

// AdjustCapacity adds adjustment to the fleet's desired capacity, clamped to
// the fleet's declared bounds, and applies the new capacity through the
// fleet's provider adapter.
func (f *FleetResizer) AdjustCapacity(ctx context.Context, fleet string, adjustment int) (int, bool, error) {
	r := f.Reconciler
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("fleet", fleet))

	mu := r.fleetLock(f.Project, fleet)
	mu.Lock()
	defer mu.Unlock()

	rec, err := r.State.Get(ctx, f.Project, fleet)
	if err != nil {
		return 0, false, errors.Wrapf(err, "fleet %s not in state", fleet)
	}

	res := &resource.Resource{
		Kind:   rec.Kind,
		Name:   rec.Name,
		Input:  rec.Input,
		Output: rec.Output,
		Deps:   rec.Deps,
	}
	view, err := resource.AsFleet(res)
	if err != nil {
		return 0, false, err
	}

	want := view.Desired + adjustment
	desired := view.Clamp(want)
	clamped := desired != want
	if desired == view.Desired {
		logger.Debug("Capacity unchanged", zap.Int("desired", desired))
		return desired, clamped, nil
	}

	adapter, err := r.Providers.Adapter(rec.Kind)
	if err != nil {
		return 0, false, err
	}

	algo := r.Backoff
	if algo == nil {
		algo = defaultBackoff
	}

	input := setAttr(rec.Input, "desired", cty.NumberIntVal(int64(desired)))
	var out cty.Value
	err = provider.Retry(ctx, algo(), logger, func() error {
		v, err := adapter.Update(ctx, &provider.UpdateRequest{
			Kind:     rec.Kind,
			Name:     rec.Name,
			ID:       rec.ID,
			Input:    input,
			Previous: rec.Input,
		})
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return 0, false, errors.Wrapf(err, "resize fleet.%s", fleet)
	}

	rec.Input = input
	rec.Output = out
	rec.Status = state.StatusCreated
	if err := r.State.Put(ctx, f.Project, rec); err != nil {
		return 0, false, errors.Wrap(err, "store record")
	}

	logger.Info("Fleet resized", zap.Int("desired", desired), zap.Bool("clamped", clamped))
	return desired, clamped, nil
}

// setAttr returns a copy of an object value with one attribute replaced.
func setAttr(obj cty.Value, name string, val cty.Value) cty.Value {
	attrs := make(map[string]cty.Value)
	for it := obj.ElementIterator(); it.Next(); {
		k, v := it.Element()
		attrs[k.AsString()] = v
	}
	attrs[name] = val
	return cty.ObjectVal(attrs)
}
