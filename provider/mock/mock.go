// Package mock provides an in-memory provider adapter for tests and for the
// --mock flag on the CLI.
//
// The adapter serves every resource kind. Failures can be scripted per
// action and resource, storage buckets can be seeded with objects to
// exercise force-destroy semantics, and fleet members can be seeded for
// rollout tests. All calls are recorded.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/converge/converge/provider"
	"github.com/converge/converge/rollout"
	"github.com/zclconf/go-cty/cty"
)

// Provider is an in-memory provider adapter.
type Provider struct {
	mu  sync.Mutex
	seq int

	objects map[string]cty.Value      // output by physical id
	buckets map[string][]string       // contained object keys by bucket id
	members map[string][]rollout.Member
	healthy map[string]bool

	failures map[string]error
	calls    []string
	metrics  map[string]float64

	// UnhealthyLaunches makes every launched fleet member fail its
	// health check.
	UnhealthyLaunches bool
}

// New creates an empty mock provider.
func New() *Provider {
	return &Provider{
		objects: make(map[string]cty.Value),
		buckets: make(map[string][]string),
		members: make(map[string][]rollout.Member),
		healthy: make(map[string]bool),

		failures: make(map[string]error),
	}
}

// FailOn scripts an error for an action on one resource. The action is one
// of create, read, update or delete; the address is kind.name.
func (p *Provider) FailOn(action, addr string, err error) {
	p.mu.Lock()
	p.failures[action+" "+addr] = err
	p.mu.Unlock()
}

// Calls returns the recorded calls, in order, as "<action> <kind>.<name>"
// strings.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

// SetMetric scripts the value returned by Observe for a metric.
func (p *Provider) SetMetric(metric string, value float64) {
	p.mu.Lock()
	if p.metrics == nil {
		p.metrics = make(map[string]float64)
	}
	p.metrics[metric] = value
	p.mu.Unlock()
}

// Observe returns the scripted value for a metric. Unscripted metrics read
// zero.
func (p *Provider) Observe(ctx context.Context, metric string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics[metric], nil
}

// SeedBucketObjects adds objects to a bucket so a destroy without force
// fails.
func (p *Provider) SeedBucketObjects(bucketID string, keys ...string) {
	p.mu.Lock()
	p.buckets[bucketID] = append(p.buckets[bucketID], keys...)
	p.mu.Unlock()
}

// BucketObjects returns the object keys currently in a bucket.
func (p *Provider) BucketObjects(bucketID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.buckets[bucketID]...)
}

// SeedMembers populates a fleet with n members launched from the given
// launch hash.
func (p *Provider) SeedMembers(fleetID string, n int, launchHash string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		p.seq++
		m := rollout.Member{ID: fmt.Sprintf("i-%d", p.seq), LaunchHash: launchHash}
		p.members[fleetID] = append(p.members[fleetID], m)
		p.healthy[m.ID] = true
	}
}

func (p *Provider) record(action, kind, name string) error {
	p.calls = append(p.calls, fmt.Sprintf("%s %s.%s", action, kind, name))
	if err, ok := p.failures[fmt.Sprintf("%s %s.%s", action, kind, name)]; ok {
		return err
	}
	return nil
}

// Output returns the stored output for a physical id.
func (p *Provider) Output(id string) (cty.Value, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.objects[id]
	return v, ok
}

// Create materializes a resource and returns its output: the input
// attributes plus a generated physical id and, for kinds with computed
// attributes, generated values for those.
func (p *Provider) Create(ctx context.Context, req *provider.CreateRequest) (cty.Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("create", req.Kind, req.Name); err != nil {
		return cty.NilVal, err
	}

	p.seq++
	id := fmt.Sprintf("%s-%d", req.Kind, p.seq)
	if req.Kind == "storage_bucket" {
		// Buckets are addressed by name.
		if v := req.Input.GetAttr("bucket"); v.IsKnown() && !v.IsNull() {
			id = v.AsString()
		}
	}

	attrs := map[string]cty.Value{"id": cty.StringVal(id)}
	for it := req.Input.ElementIterator(); it.Next(); {
		k, v := it.Element()
		attrs[k.AsString()] = v
	}
	if req.Kind == "load_balancer" {
		attrs["dns_name"] = cty.StringVal(id + ".lb.mock.internal")
	}
	out := cty.ObjectVal(attrs)
	p.objects[id] = out
	return out, nil
}

// Read returns the output for a materialized resource.
func (p *Provider) Read(ctx context.Context, kind, id string) (cty.Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf("read %s %s", kind, id))
	out, ok := p.objects[id]
	if !ok {
		return cty.NilVal, &provider.NotFoundError{Kind: kind, ID: id}
	}
	return out, nil
}

// Update mutates a materialized resource in place.
func (p *Provider) Update(ctx context.Context, req *provider.UpdateRequest) (cty.Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("update", req.Kind, req.Name); err != nil {
		return cty.NilVal, err
	}
	if _, ok := p.objects[req.ID]; !ok {
		return cty.NilVal, &provider.NotFoundError{Kind: req.Kind, ID: req.ID}
	}

	attrs := map[string]cty.Value{"id": cty.StringVal(req.ID)}
	for it := req.Input.ElementIterator(); it.Next(); {
		k, v := it.Element()
		attrs[k.AsString()] = v
	}
	out := cty.ObjectVal(attrs)
	p.objects[req.ID] = out
	return out, nil
}

// Delete destroys a materialized resource. Deleting a bucket that holds
// objects fails with a NotEmptyError unless the request sets Force, in which
// case the contained objects are removed first.
func (p *Provider) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("delete", req.Kind, req.Name); err != nil {
		return err
	}
	if _, ok := p.objects[req.ID]; !ok {
		return &provider.NotFoundError{Kind: req.Kind, ID: req.ID}
	}
	if contents := p.buckets[req.ID]; len(contents) > 0 {
		if !req.Force {
			return &provider.NotEmptyError{Kind: req.Kind, ID: req.ID}
		}
		p.calls = append(p.calls, fmt.Sprintf("empty %s.%s", req.Kind, req.Name))
		delete(p.buckets, req.ID)
	}
	delete(p.objects, req.ID)
	return nil
}

// ListMembers returns a fleet's members.
func (p *Provider) ListMembers(ctx context.Context, fleetID string) ([]rollout.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]rollout.Member, len(p.members[fleetID]))
	copy(out, p.members[fleetID])
	return out, nil
}

// DrainMember records the drain.
func (p *Provider) DrainMember(ctx context.Context, fleetID, memberID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf("drain %s", memberID))
	return nil
}

// TerminateMember removes a member from the fleet.
func (p *Provider) TerminateMember(ctx context.Context, fleetID, memberID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf("terminate %s", memberID))
	mm := p.members[fleetID]
	for i, m := range mm {
		if m.ID == memberID {
			p.members[fleetID] = append(mm[:i], mm[i+1:]...)
			break
		}
	}
	delete(p.healthy, memberID)
	return nil
}

// LaunchMember adds a member launched from the given launch hash.
func (p *Provider) LaunchMember(ctx context.Context, fleetID, launchHash string) (rollout.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	m := rollout.Member{ID: fmt.Sprintf("i-%d", p.seq), LaunchHash: launchHash}
	p.members[fleetID] = append(p.members[fleetID], m)
	p.healthy[m.ID] = !p.UnhealthyLaunches
	p.calls = append(p.calls, fmt.Sprintf("launch %s", m.ID))
	return m, nil
}

// Healthy reports a member's health.
func (p *Provider) Healthy(ctx context.Context, memberID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy[memberID], nil
}

// Registry returns a provider registry serving all builtin kinds from this
// mock.
func (p *Provider) Registry() *provider.Registry {
	r := &provider.Registry{}
	for _, kind := range []string{
		"network", "subnet", "security_group", "storage_bucket",
		"launch_template", "fleet", "load_balancer", "target_group",
		"listener",
	} {
		r.Register(kind, p)
	}
	return r
}
