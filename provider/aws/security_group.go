package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/converge/converge/provider"
	"github.com/converge/converge/resource"
	"github.com/zclconf/go-cty/cty"
)

type securityGroupAdapter struct {
	p *Provider
}

func (a *securityGroupAdapter) Create(ctx context.Context, req *provider.CreateRequest) (cty.Value, error) {
	input := &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(req.Name),
		Description: aws.String("Managed by converge"),
		VpcId:       aws.String(resource.StringAttr(req.Input, "network")),
	}
	resp, err := a.p.ec2.CreateSecurityGroupRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(req.Kind, req.Name, err)
	}
	id := aws.StringValue(resp.GroupId)

	perms := ingressPermissions(req.Input.GetAttr("ingress"))
	if len(perms) > 0 {
		auth := &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(id),
			IpPermissions: perms,
		}
		if _, err := a.p.ec2.AuthorizeSecurityGroupIngressRequest(auth).Send(ctx); err != nil {
			return cty.NilVal, classify(req.Kind, id, err)
		}
	}

	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(id),
	}), nil
}

func (a *securityGroupAdapter) Read(ctx context.Context, kind, id string) (cty.Value, error) {
	input := &ec2.DescribeSecurityGroupsInput{GroupIds: []string{id}}
	resp, err := a.p.ec2.DescribeSecurityGroupsRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(kind, id, err)
	}
	if len(resp.SecurityGroups) == 0 {
		return cty.NilVal, &provider.NotFoundError{Kind: kind, ID: id}
	}
	sg := resp.SecurityGroups[0]
	return cty.ObjectVal(map[string]cty.Value{
		"id":      cty.StringVal(id),
		"network": cty.StringVal(aws.StringValue(sg.VpcId)),
	}), nil
}

// Update reconciles the ingress rule set: previous rules are revoked and the
// desired rules authorized.
func (a *securityGroupAdapter) Update(ctx context.Context, req *provider.UpdateRequest) (cty.Value, error) {
	if prev := ingressPermissions(req.Previous.GetAttr("ingress")); len(prev) > 0 {
		revoke := &ec2.RevokeSecurityGroupIngressInput{
			GroupId:       aws.String(req.ID),
			IpPermissions: prev,
		}
		if _, err := a.p.ec2.RevokeSecurityGroupIngressRequest(revoke).Send(ctx); err != nil {
			if err := classify(req.Kind, req.ID, err); !provider.IsNotFound(err) {
				return cty.NilVal, err
			}
		}
	}

	if perms := ingressPermissions(req.Input.GetAttr("ingress")); len(perms) > 0 {
		auth := &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(req.ID),
			IpPermissions: perms,
		}
		if _, err := a.p.ec2.AuthorizeSecurityGroupIngressRequest(auth).Send(ctx); err != nil {
			return cty.NilVal, classify(req.Kind, req.ID, err)
		}
	}

	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(req.ID),
	}), nil
}

func (a *securityGroupAdapter) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	input := &ec2.DeleteSecurityGroupInput{GroupId: aws.String(req.ID)}
	_, err := a.p.ec2.DeleteSecurityGroupRequest(input).Send(ctx)
	return classify(req.Kind, req.ID, err)
}

// ingressPermissions converts a list of ingress rule objects to EC2 ip
// permissions.
func ingressPermissions(rules cty.Value) []ec2.IpPermission {
	if rules == cty.NilVal || rules.IsNull() || !rules.IsKnown() {
		return nil
	}
	var perms []ec2.IpPermission
	for it := rules.ElementIterator(); it.Next(); {
		_, rule := it.Element()
		var ranges []ec2.IpRange
		for _, src := range resource.StringsAttr(rule, "sources") {
			ranges = append(ranges, ec2.IpRange{CidrIp: aws.String(src)})
		}
		perms = append(perms, ec2.IpPermission{
			IpProtocol: aws.String(resource.StringAttr(rule, "protocol")),
			FromPort:   aws.Int64(int64(resource.IntAttr(rule, "from_port"))),
			ToPort:     aws.Int64(int64(resource.IntAttr(rule, "to_port"))),
			IpRanges:   ranges,
		})
	}
	return perms
}
