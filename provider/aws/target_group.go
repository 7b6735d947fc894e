package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/converge/converge/provider"
	"github.com/converge/converge/resource"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

type targetGroupAdapter struct {
	p *Provider
}

func (a *targetGroupAdapter) Create(ctx context.Context, req *provider.CreateRequest) (cty.Value, error) {
	input := &elbv2.CreateTargetGroupInput{
		Name:     aws.String(req.Name),
		VpcId:    aws.String(resource.StringAttr(req.Input, "network")),
		Port:     aws.Int64(int64(resource.IntAttr(req.Input, "port"))),
		Protocol: elbv2.ProtocolEnum(resource.StringAttr(req.Input, "protocol")),
	}
	if resource.HasAttr(req.Input, "health_check") {
		hc := req.Input.GetAttr("health_check")
		input.HealthCheckPath = aws.String(resource.StringAttr(hc, "path"))
		input.HealthCheckIntervalSeconds = aws.Int64(int64(resource.IntAttr(hc, "interval_seconds")))
		input.HealthCheckTimeoutSeconds = aws.Int64(int64(resource.IntAttr(hc, "timeout_seconds")))
		input.HealthyThresholdCount = aws.Int64(int64(resource.IntAttr(hc, "healthy_threshold")))
	}
	resp, err := a.p.elb.CreateTargetGroupRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(req.Kind, req.Name, err)
	}
	if len(resp.TargetGroups) == 0 {
		return cty.NilVal, errors.Errorf("no target group created for %s", req.Name)
	}
	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(aws.StringValue(resp.TargetGroups[0].TargetGroupArn)),
	}), nil
}

func (a *targetGroupAdapter) Read(ctx context.Context, kind, id string) (cty.Value, error) {
	input := &elbv2.DescribeTargetGroupsInput{TargetGroupArns: []string{id}}
	resp, err := a.p.elb.DescribeTargetGroupsRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(kind, id, err)
	}
	if len(resp.TargetGroups) == 0 {
		return cty.NilVal, &provider.NotFoundError{Kind: kind, ID: id}
	}
	return cty.ObjectVal(map[string]cty.Value{
		"id": cty.StringVal(id),
	}), nil
}

// Update modifies the health check settings. Port, protocol and network
// replace.
func (a *targetGroupAdapter) Update(ctx context.Context, req *provider.UpdateRequest) (cty.Value, error) {
	input := &elbv2.ModifyTargetGroupInput{TargetGroupArn: aws.String(req.ID)}
	if resource.HasAttr(req.Input, "health_check") {
		hc := req.Input.GetAttr("health_check")
		input.HealthCheckPath = aws.String(resource.StringAttr(hc, "path"))
		input.HealthCheckIntervalSeconds = aws.Int64(int64(resource.IntAttr(hc, "interval_seconds")))
		input.HealthCheckTimeoutSeconds = aws.Int64(int64(resource.IntAttr(hc, "timeout_seconds")))
		input.HealthyThresholdCount = aws.Int64(int64(resource.IntAttr(hc, "healthy_threshold")))
	}
	if _, err := a.p.elb.ModifyTargetGroupRequest(input).Send(ctx); err != nil {
		return cty.NilVal, classify(req.Kind, req.ID, err)
	}
	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(req.ID),
	}), nil
}

func (a *targetGroupAdapter) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	input := &elbv2.DeleteTargetGroupInput{TargetGroupArn: aws.String(req.ID)}
	_, err := a.p.elb.DeleteTargetGroupRequest(input).Send(ctx)
	return classify(req.Kind, req.ID, err)
}
