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

type listenerAdapter struct {
	p *Provider
}

func (a *listenerAdapter) Create(ctx context.Context, req *provider.CreateRequest) (cty.Value, error) {
	input := &elbv2.CreateListenerInput{
		LoadBalancerArn: aws.String(resource.StringAttr(req.Input, "load_balancer")),
		Port:            aws.Int64(int64(resource.IntAttr(req.Input, "port"))),
		Protocol:        elbv2.ProtocolEnum(resource.StringAttr(req.Input, "protocol")),
		DefaultActions: []elbv2.Action{{
			Type:           elbv2.ActionTypeEnumForward,
			TargetGroupArn: aws.String(resource.StringAttr(req.Input, "target_group")),
		}},
	}
	resp, err := a.p.elb.CreateListenerRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(req.Kind, req.Name, err)
	}
	if len(resp.Listeners) == 0 {
		return cty.NilVal, errors.Errorf("no listener created for %s", req.Name)
	}
	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(aws.StringValue(resp.Listeners[0].ListenerArn)),
	}), nil
}

func (a *listenerAdapter) Read(ctx context.Context, kind, id string) (cty.Value, error) {
	input := &elbv2.DescribeListenersInput{ListenerArns: []string{id}}
	resp, err := a.p.elb.DescribeListenersRequest(input).Send(ctx)
	if err != nil {
		return cty.NilVal, classify(kind, id, err)
	}
	if len(resp.Listeners) == 0 {
		return cty.NilVal, &provider.NotFoundError{Kind: kind, ID: id}
	}
	return cty.ObjectVal(map[string]cty.Value{
		"id": cty.StringVal(id),
	}), nil
}

// Update retargets the listener's forward action.
func (a *listenerAdapter) Update(ctx context.Context, req *provider.UpdateRequest) (cty.Value, error) {
	input := &elbv2.ModifyListenerInput{
		ListenerArn: aws.String(req.ID),
		DefaultActions: []elbv2.Action{{
			Type:           elbv2.ActionTypeEnumForward,
			TargetGroupArn: aws.String(resource.StringAttr(req.Input, "target_group")),
		}},
	}
	if _, err := a.p.elb.ModifyListenerRequest(input).Send(ctx); err != nil {
		return cty.NilVal, classify(req.Kind, req.ID, err)
	}
	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(req.ID),
	}), nil
}

func (a *listenerAdapter) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	input := &elbv2.DeleteListenerInput{ListenerArn: aws.String(req.ID)}
	_, err := a.p.elb.DeleteListenerRequest(input).Send(ctx)
	return classify(req.Kind, req.ID, err)
}
