package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/converge/converge/provider"
	"github.com/converge/converge/resource"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// networkAdapter provisions networks as VPCs.
type networkAdapter struct {
	p *Provider
}

func (a *networkAdapter) Create(ctx context.Context, req *provider.CreateRequest) (cty.Value, error) {
	input := &ec2.CreateVpcInput{
		CidrBlock: aws.String(resource.StringAttr(req.Input, "cidr_block")),
	}
	resp, err := a.p.ec2.CreateVpcRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(req.Kind, req.Name, err)
	}
	id := aws.StringValue(resp.Vpc.VpcId)
	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(id),
	}), nil
}

func (a *networkAdapter) Read(ctx context.Context, kind, id string) (cty.Value, error) {
	input := &ec2.DescribeVpcsInput{VpcIds: []string{id}}
	resp, err := a.p.ec2.DescribeVpcsRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(kind, id, err)
	}
	if len(resp.Vpcs) == 0 {
		return cty.NilVal, &provider.NotFoundError{Kind: kind, ID: id}
	}
	vpc := resp.Vpcs[0]
	return cty.ObjectVal(map[string]cty.Value{
		"id":         cty.StringVal(id),
		"cidr_block": cty.StringVal(aws.StringValue(vpc.CidrBlock)),
	}), nil
}

func (a *networkAdapter) Update(ctx context.Context, req *provider.UpdateRequest) (cty.Value, error) {
	// Every network attribute replaces. In place updates never reach the
	// adapter.
	return cty.NilVal, errors.Errorf("network %s cannot be updated in place", req.Name)
}

func (a *networkAdapter) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	input := &ec2.DeleteVpcInput{VpcId: aws.String(req.ID)}
	_, err := a.p.ec2.DeleteVpcRequest(input).Send(ctx)
	return classify(req.Kind, req.ID, err)
}
