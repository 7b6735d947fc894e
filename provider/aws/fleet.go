package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/converge/converge/provider"
	"github.com/converge/converge/resource"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/zclconf/go-cty/cty"
)

// Instance tags identifying fleet membership.
const (
	tagFleet          = "converge:fleet"
	tagLaunchHash     = "converge:launch-hash"
	tagLaunchTemplate = "converge:launch-template"
)

// A fleetSpec is the launch specification shared by a fleet's members.
type fleetSpec struct {
	LaunchTemplate string
	Subnet         string
	TargetGroup    string
}

func specFromInput(input cty.Value) *fleetSpec {
	return &fleetSpec{
		LaunchTemplate: resource.StringAttr(input, "launch_template"),
		Subnet:         resource.StringAttr(input, "subnet"),
		TargetGroup:    resource.StringAttr(input, "target_group"),
	}
}

// fleetAdapter provisions fleets as sets of tagged EC2 instances launched
// from a launch template. There is no platform object for the fleet itself;
// membership lives in instance tags.
type fleetAdapter struct {
	p *Provider
}

func (a *fleetAdapter) Create(ctx context.Context, req *provider.CreateRequest) (cty.Value, error) {
	id := "cfl-" + ksuid.New().String()
	spec := specFromInput(req.Input)
	a.p.setFleet(id, spec)

	desired := resource.IntAttr(req.Input, "desired")
	if desired > 0 {
		// Initial members are tagged with the launch template as their
		// revision. A later change to the launch specification rolls
		// them.
		if _, err := a.p.runMembers(ctx, id, spec, desired, spec.LaunchTemplate); err != nil {
			return cty.NilVal, errors.Wrapf(err, "launch %d members", desired)
		}
	}

	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(id),
	}), nil
}

func (a *fleetAdapter) Read(ctx context.Context, kind, id string) (cty.Value, error) {
	members, err := a.p.ListMembers(ctx, id)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{
		"id":      cty.StringVal(id),
		"desired": cty.NumberIntVal(int64(len(members))),
	}), nil
}

// Update refreshes the fleet's launch specification and scales the member
// count to the desired capacity. Launch specification changes do not replace
// members here; the rollout coordinator does that in bounded batches.
func (a *fleetAdapter) Update(ctx context.Context, req *provider.UpdateRequest) (cty.Value, error) {
	spec := specFromInput(req.Input)
	a.p.setFleet(req.ID, spec)

	desired := resource.IntAttr(req.Input, "desired")
	if err := a.p.scaleTo(ctx, req.ID, spec, desired); err != nil {
		return cty.NilVal, errors.Wrapf(err, "scale to %d", desired)
	}

	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(req.ID),
	}), nil
}

func (a *fleetAdapter) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	members, err := a.p.ListMembers(ctx, req.ID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := a.p.DrainMember(ctx, req.ID, m.ID); err != nil {
			return errors.Wrapf(err, "drain %s", m.ID)
		}
		if err := a.p.TerminateMember(ctx, req.ID, m.ID); err != nil {
			return errors.Wrapf(err, "terminate %s", m.ID)
		}
	}
	a.p.dropFleet(req.ID)
	return nil
}

func (p *Provider) setFleet(id string, spec *fleetSpec) {
	p.mu.Lock()
	p.fleets[id] = spec
	p.mu.Unlock()
}

func (p *Provider) dropFleet(id string) {
	p.mu.Lock()
	delete(p.fleets, id)
	p.mu.Unlock()
}

// fleetSpec returns the cached launch specification for a fleet,
// repopulating the cache from a member's tags when the process did not
// create the fleet. The target group cannot be recovered from tags; health
// checks fall back to instance status until the next fleet update.
func (p *Provider) fleetSpec(ctx context.Context, fleetID string) (*fleetSpec, error) {
	p.mu.Lock()
	spec, ok := p.fleets[fleetID]
	p.mu.Unlock()
	if ok {
		return spec, nil
	}

	instances, err := p.fleetInstances(ctx, fleetID)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, &provider.NotFoundError{Kind: "fleet", ID: fleetID}
	}
	inst := instances[0]
	spec = &fleetSpec{Subnet: aws.StringValue(inst.SubnetId)}
	for _, tag := range inst.Tags {
		if aws.StringValue(tag.Key) == tagLaunchTemplate {
			spec.LaunchTemplate = aws.StringValue(tag.Value)
		}
	}
	p.setFleet(fleetID, spec)
	return spec, nil
}

// runMembers launches n instances into the fleet and registers them in the
// fleet's target group. Returns the new member ids.
func (p *Provider) runMembers(ctx context.Context, fleetID string, spec *fleetSpec, n int, launchHash string) ([]string, error) {
	input := &ec2.RunInstancesInput{
		MinCount: aws.Int64(int64(n)),
		MaxCount: aws.Int64(int64(n)),
		SubnetId: aws.String(spec.Subnet),
		LaunchTemplate: &ec2.LaunchTemplateSpecification{
			LaunchTemplateId: aws.String(spec.LaunchTemplate),
		},
		TagSpecifications: []ec2.TagSpecification{{
			ResourceType: ec2.ResourceTypeInstance,
			Tags: []ec2.Tag{
				{Key: aws.String(tagFleet), Value: aws.String(fleetID)},
				{Key: aws.String(tagLaunchHash), Value: aws.String(launchHash)},
				{Key: aws.String(tagLaunchTemplate), Value: aws.String(spec.LaunchTemplate)},
			},
		}},
	}
	resp, err := p.ec2.RunInstancesRequest(input).Send(ctx)
	if err != nil {
		return nil, classify("fleet", fleetID, err)
	}

	ids := make([]string, len(resp.Instances))
	for i, inst := range resp.Instances {
		ids[i] = aws.StringValue(inst.InstanceId)
	}

	if spec.TargetGroup != "" {
		targets := make([]elbv2.TargetDescription, len(ids))
		for i, id := range ids {
			targets[i] = elbv2.TargetDescription{Id: aws.String(id)}
		}
		reg := &elbv2.RegisterTargetsInput{
			TargetGroupArn: aws.String(spec.TargetGroup),
			Targets:        targets,
		}
		if _, err := p.elb.RegisterTargetsRequest(reg).Send(ctx); err != nil {
			return nil, classify("fleet", fleetID, err)
		}
		p.mu.Lock()
		for _, id := range ids {
			p.memberGroups[id] = spec.TargetGroup
		}
		p.mu.Unlock()
	}
	return ids, nil
}

// scaleTo launches or terminates members until the fleet holds desired
// members.
func (p *Provider) scaleTo(ctx context.Context, fleetID string, spec *fleetSpec, desired int) error {
	members, err := p.ListMembers(ctx, fleetID)
	if err != nil {
		return err
	}
	switch {
	case len(members) < desired:
		_, err := p.runMembers(ctx, fleetID, spec, desired-len(members), spec.LaunchTemplate)
		return err
	case len(members) > desired:
		for _, m := range members[desired:] {
			if err := p.DrainMember(ctx, fleetID, m.ID); err != nil {
				return errors.Wrapf(err, "drain %s", m.ID)
			}
			if err := p.TerminateMember(ctx, fleetID, m.ID); err != nil {
				return errors.Wrapf(err, "terminate %s", m.ID)
			}
		}
	}
	return nil
}

// fleetInstances returns the fleet's pending and running instances.
func (p *Provider) fleetInstances(ctx context.Context, fleetID string) ([]ec2.Instance, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []ec2.Filter{
			{Name: aws.String("tag:" + tagFleet), Values: []string{fleetID}},
			{Name: aws.String("instance-state-name"), Values: []string{"pending", "running"}},
		},
	}
	resp, err := p.ec2.DescribeInstancesRequest(input).Send(ctx)
	if err != nil {
		return nil, classify("fleet", fleetID, err)
	}
	var out []ec2.Instance
	for _, res := range resp.Reservations {
		out = append(out, res.Instances...)
	}
	return out, nil
}
