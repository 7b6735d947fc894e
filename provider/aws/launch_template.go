package aws

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/converge/converge/provider"
	"github.com/converge/converge/resource"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

type launchTemplateAdapter struct {
	p *Provider
}

func (a *launchTemplateAdapter) Create(ctx context.Context, req *provider.CreateRequest) (cty.Value, error) {
	data := &ec2.RequestLaunchTemplateData{
		ImageId:      aws.String(resource.StringAttr(req.Input, "image")),
		InstanceType: ec2.InstanceType(resource.StringAttr(req.Input, "instance_type")),
	}
	if sg := resource.StringAttr(req.Input, "security_group"); sg != "" {
		data.SecurityGroupIds = []string{sg}
	}
	if ud := resource.StringAttr(req.Input, "user_data"); ud != "" {
		data.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(ud)))
	}

	input := &ec2.CreateLaunchTemplateInput{
		LaunchTemplateName: aws.String(req.Name),
		LaunchTemplateData: data,
	}
	resp, err := a.p.ec2.CreateLaunchTemplateRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(req.Kind, req.Name, err)
	}
	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(aws.StringValue(resp.LaunchTemplate.LaunchTemplateId)),
	}), nil
}

func (a *launchTemplateAdapter) Read(ctx context.Context, kind, id string) (cty.Value, error) {
	input := &ec2.DescribeLaunchTemplatesInput{LaunchTemplateIds: []string{id}}
	resp, err := a.p.ec2.DescribeLaunchTemplatesRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(kind, id, err)
	}
	if len(resp.LaunchTemplates) == 0 {
		return cty.NilVal, &provider.NotFoundError{Kind: kind, ID: id}
	}
	return cty.ObjectVal(map[string]cty.Value{
		"id": cty.StringVal(id),
	}), nil
}

func (a *launchTemplateAdapter) Update(ctx context.Context, req *provider.UpdateRequest) (cty.Value, error) {
	return cty.NilVal, errors.Errorf("launch_template %s cannot be updated in place", req.Name)
}

func (a *launchTemplateAdapter) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	input := &ec2.DeleteLaunchTemplateInput{LaunchTemplateId: aws.String(req.ID)}
	_, err := a.p.ec2.DeleteLaunchTemplateRequest(input).Send(ctx)
	return classify(req.Kind, req.ID, err)
}
