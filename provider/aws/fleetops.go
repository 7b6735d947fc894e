package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/converge/converge/rollout"
	"github.com/pkg/errors"
)

// ListMembers returns the fleet's current members with the launch revision
// they were launched from.
func (p *Provider) ListMembers(ctx context.Context, fleetID string) ([]rollout.Member, error) {
	instances, err := p.fleetInstances(ctx, fleetID)
	if err != nil {
		return nil, err
	}
	members := make([]rollout.Member, 0, len(instances))
	for _, inst := range instances {
		m := rollout.Member{ID: aws.StringValue(inst.InstanceId)}
		for _, tag := range inst.Tags {
			if aws.StringValue(tag.Key) == tagLaunchHash {
				m.LaunchHash = aws.StringValue(tag.Value)
			}
		}
		members = append(members, m)
	}
	return members, nil
}

// DrainMember deregisters a member from the fleet's target group. Fleets
// without a target group have nothing to drain.
func (p *Provider) DrainMember(ctx context.Context, fleetID, memberID string) error {
	group := p.memberGroup(memberID)
	if group == "" {
		spec, err := p.fleetSpec(ctx, fleetID)
		if err != nil {
			return err
		}
		group = spec.TargetGroup
	}
	if group == "" {
		return nil
	}

	input := &elbv2.DeregisterTargetsInput{
		TargetGroupArn: aws.String(group),
		Targets:        []elbv2.TargetDescription{{Id: aws.String(memberID)}},
	}
	if _, err := p.elb.DeregisterTargetsRequest(input).Send(ctx); err != nil {
		return classify("fleet", memberID, err)
	}
	p.mu.Lock()
	delete(p.memberGroups, memberID)
	p.mu.Unlock()
	return nil
}

// TerminateMember terminates a member instance.
func (p *Provider) TerminateMember(ctx context.Context, fleetID, memberID string) error {
	input := &ec2.TerminateInstancesInput{InstanceIds: []string{memberID}}
	_, err := p.ec2.TerminateInstancesRequest(input).Send(ctx)
	return classify("fleet", memberID, err)
}

// LaunchMember launches one member from the fleet's current launch
// specification, tagged with the given launch revision.
func (p *Provider) LaunchMember(ctx context.Context, fleetID, launchHash string) (rollout.Member, error) {
	spec, err := p.fleetSpec(ctx, fleetID)
	if err != nil {
		return rollout.Member{}, err
	}
	ids, err := p.runMembers(ctx, fleetID, spec, 1, launchHash)
	if err != nil {
		return rollout.Member{}, err
	}
	if len(ids) == 0 {
		return rollout.Member{}, errors.Errorf("no instance launched for fleet %s", fleetID)
	}
	return rollout.Member{ID: ids[0], LaunchHash: launchHash}, nil
}

// Healthy reports a member's health: target health when the member is
// registered in a target group, instance status otherwise.
func (p *Provider) Healthy(ctx context.Context, memberID string) (bool, error) {
	if group := p.memberGroup(memberID); group != "" {
		input := &elbv2.DescribeTargetHealthInput{
			TargetGroupArn: aws.String(group),
			Targets:        []elbv2.TargetDescription{{Id: aws.String(memberID)}},
		}
		resp, err := p.elb.DescribeTargetHealthRequest(input).Send(ctx)
		if err != nil {
			return false, classify("fleet", memberID, err)
		}
		for _, desc := range resp.TargetHealthDescriptions {
			if desc.TargetHealth != nil && desc.TargetHealth.State == elbv2.TargetHealthStateEnumHealthy {
				return true, nil
			}
		}
		return false, nil
	}

	input := &ec2.DescribeInstanceStatusInput{
		InstanceIds:         []string{memberID},
		IncludeAllInstances: aws.Bool(true),
	}
	resp, err := p.ec2.DescribeInstanceStatusRequest(input).Send(ctx)
	if err != nil {
		return false, classify("fleet", memberID, err)
	}
	for _, status := range resp.InstanceStatuses {
		running := status.InstanceState != nil && status.InstanceState.Name == ec2.InstanceStateNameRunning
		ok := status.InstanceStatus != nil && status.InstanceStatus.Status == ec2.SummaryStatusOk
		if running && ok {
			return true, nil
		}
	}
	return false, nil
}

func (p *Provider) memberGroup(memberID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.memberGroups[memberID]
}
