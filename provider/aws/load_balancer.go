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

type loadBalancerAdapter struct {
	p *Provider
}

func (a *loadBalancerAdapter) Create(ctx context.Context, req *provider.CreateRequest) (cty.Value, error) {
	input := &elbv2.CreateLoadBalancerInput{
		Name:    aws.String(req.Name),
		Subnets: resource.StringsAttr(req.Input, "subnets"),
	}
	if sg := resource.StringAttr(req.Input, "security_group"); sg != "" {
		input.SecurityGroups = []string{sg}
	}
	resp, err := a.p.elb.CreateLoadBalancerRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(req.Kind, req.Name, err)
	}
	if len(resp.LoadBalancers) == 0 {
		return cty.NilVal, errors.Errorf("no load balancer created for %s", req.Name)
	}
	lb := resp.LoadBalancers[0]
	return output(req.Input, map[string]cty.Value{
		"id":       cty.StringVal(aws.StringValue(lb.LoadBalancerArn)),
		"dns_name": cty.StringVal(aws.StringValue(lb.DNSName)),
	}), nil
}

func (a *loadBalancerAdapter) Read(ctx context.Context, kind, id string) (cty.Value, error) {
	input := &elbv2.DescribeLoadBalancersInput{LoadBalancerArns: []string{id}}
	resp, err := a.p.elb.DescribeLoadBalancersRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(kind, id, err)
	}
	if len(resp.LoadBalancers) == 0 {
		return cty.NilVal, &provider.NotFoundError{Kind: kind, ID: id}
	}
	lb := resp.LoadBalancers[0]
	return cty.ObjectVal(map[string]cty.Value{
		"id":       cty.StringVal(id),
		"dns_name": cty.StringVal(aws.StringValue(lb.DNSName)),
	}), nil
}

func (a *loadBalancerAdapter) Update(ctx context.Context, req *provider.UpdateRequest) (cty.Value, error) {
	return cty.NilVal, errors.Errorf("load_balancer %s cannot be updated in place", req.Name)
}

func (a *loadBalancerAdapter) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	input := &elbv2.DeleteLoadBalancerInput{LoadBalancerArn: aws.String(req.ID)}
	_, err := a.p.elb.DeleteLoadBalancerRequest(input).Send(ctx)
	return classify(req.Kind, req.ID, err)
}
