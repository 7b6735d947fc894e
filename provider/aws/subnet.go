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

type subnetAdapter struct {
	p *Provider
}

func (a *subnetAdapter) Create(ctx context.Context, req *provider.CreateRequest) (cty.Value, error) {
	input := &ec2.CreateSubnetInput{
		VpcId:     aws.String(resource.StringAttr(req.Input, "network")),
		CidrBlock: aws.String(resource.StringAttr(req.Input, "cidr_block")),
	}
	resp, err := a.p.ec2.CreateSubnetRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(req.Kind, req.Name, err)
	}
	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(aws.StringValue(resp.Subnet.SubnetId)),
	}), nil
}

func (a *subnetAdapter) Read(ctx context.Context, kind, id string) (cty.Value, error) {
	input := &ec2.DescribeSubnetsInput{SubnetIds: []string{id}}
	resp, err := a.p.ec2.DescribeSubnetsRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(kind, id, err)
	}
	if len(resp.Subnets) == 0 {
		return cty.NilVal, &provider.NotFoundError{Kind: kind, ID: id}
	}
	sn := resp.Subnets[0]
	return cty.ObjectVal(map[string]cty.Value{
		"id":         cty.StringVal(id),
		"network":    cty.StringVal(aws.StringValue(sn.VpcId)),
		"cidr_block": cty.StringVal(aws.StringValue(sn.CidrBlock)),
	}), nil
}

func (a *subnetAdapter) Update(ctx context.Context, req *provider.UpdateRequest) (cty.Value, error) {
	return cty.NilVal, errors.Errorf("subnet %s cannot be updated in place", req.Name)
}

func (a *subnetAdapter) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	input := &ec2.DeleteSubnetInput{SubnetId: aws.String(req.ID)}
	_, err := a.p.ec2.DeleteSubnetRequest(input).Send(ctx)
	return classify(req.Kind, req.ID, err)
}
