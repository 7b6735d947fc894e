// Package aws provisions the builtin resource kinds on AWS.
//
// Networks map to VPCs, fleets to tagged EC2 instances launched from launch
// templates, storage buckets to S3 and the load balancing kinds to ELBv2.
// Metric observations for the autoscale controller come from CloudWatch.
package aws

import (
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws/awserr"
	"github.com/aws/aws-sdk-go-v2/aws/endpoints"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/ec2iface"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2iface "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/elasticloadbalancingv2iface"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/s3iface"
	"github.com/converge/converge/provider"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// Provider holds the AWS service clients shared by all adapters, and the
// member-level fleet operations used by rollouts and the autoscaler.
type Provider struct {
	ec2        ec2iface.ClientAPI
	elb        elbv2iface.ClientAPI
	s3         s3iface.ClientAPI
	cloudwatch cloudwatchiface.ClientAPI

	mu sync.Mutex

	// fleets caches the launch specification per fleet id so member
	// launches do not need a state lookup. Repopulated from member tags
	// when an entry is missing.
	fleets map[string]*fleetSpec

	// memberGroups maps a member id to the target group it was
	// registered in, for health checks and drains.
	memberGroups map[string]string
}

// New creates a provider from the default AWS configuration chain.
func New() (*Provider, error) {
	cfg, err := external.LoadDefaultAWSConfig()
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion()
	}
	return &Provider{
		ec2:          ec2.New(cfg),
		elb:          elbv2.New(cfg),
		s3:           s3.New(cfg),
		cloudwatch:   cloudwatch.New(cfg),
		fleets:       make(map[string]*fleetSpec),
		memberGroups: make(map[string]string),
	}, nil
}

// defaultRegion determines the default region to use based on:
//
//   - From AWS_DEFAULT_REGION environment variable.
//   - From region in ~/.aws/credentials.
//   - If neither is set, us-east-1 is used.
func defaultRegion() string {
	const fallback = endpoints.UsEast1RegionID
	var cfgs external.Configs
	cfgs, err := cfgs.AppendFromLoaders(external.DefaultConfigLoaders)
	if err != nil {
		return fallback
	}
	cfg, err := cfgs.ResolveAWSConfig([]external.AWSConfigResolver{
		external.ResolveRegion,
	})
	if err != nil {
		return fallback
	}
	if cfg.Region == "" {
		// No AWS config available
		return fallback
	}
	return cfg.Region
}

// classify maps an AWS error onto the provider error taxonomy. Throttling
// and server errors become retryable UnavailableErrors; everything else is
// permanent.
func classify(kind, id string, err error) error {
	if err == nil {
		return nil
	}
	if aerr, ok := err.(awserr.RequestFailure); ok {
		switch {
		case aerr.StatusCode() == http.StatusNotFound:
			return &provider.NotFoundError{Kind: kind, ID: id}
		case aerr.StatusCode() == http.StatusTooManyRequests, aerr.StatusCode() >= 500:
			return &provider.UnavailableError{Err: err}
		}
	}
	if aerr, ok := err.(awserr.Error); ok {
		switch {
		case notFoundCode(aerr.Code()):
			return &provider.NotFoundError{Kind: kind, ID: id}
		case notEmptyCode(aerr.Code()):
			return &provider.NotEmptyError{Kind: kind, ID: id}
		case throttleCode(aerr.Code()):
			return &provider.UnavailableError{Err: err}
		}
	}
	return err
}

func notFoundCode(code string) bool {
	switch code {
	case s3.ErrCodeNoSuchBucket, "NotFound", "LoadBalancerNotFound", "TargetGroupNotFound", "ListenerNotFound":
		return true
	}
	return strings.HasSuffix(code, ".NotFound") || strings.HasSuffix(code, "NotFoundException")
}

func notEmptyCode(code string) bool {
	switch code {
	case "BucketNotEmpty", "DependencyViolation", "ResourceInUse":
		return true
	}
	return false
}

func throttleCode(code string) bool {
	switch code {
	case "Throttling", "ThrottlingException", "RequestThrottled", "RequestLimitExceeded", "ServiceUnavailable":
		return true
	}
	return false
}

// output merges the request input with the provider issued attributes.
func output(input cty.Value, extra map[string]cty.Value) cty.Value {
	attrs := make(map[string]cty.Value)
	if input != cty.NilVal && !input.IsNull() {
		for it := input.ElementIterator(); it.Next(); {
			k, v := it.Element()
			attrs[k.AsString()] = v
		}
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return cty.ObjectVal(attrs)
}
