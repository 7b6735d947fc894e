package aws

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws/awserr"
	"github.com/converge/converge/provider"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{
			name:  "NotFoundStatus",
			err:   awserr.NewRequestFailure(awserr.New("NotFound", "not found", nil), 404, "req-1"),
			check: provider.IsNotFound,
		},
		{
			name:  "NotFoundCode",
			err:   awserr.New("InvalidVpcID.NotFound", "vpc does not exist", nil),
			check: provider.IsNotFound,
		},
		{
			name:  "NoSuchBucket",
			err:   awserr.New("NoSuchBucket", "bucket does not exist", nil),
			check: provider.IsNotFound,
		},
		{
			name:  "BucketNotEmpty",
			err:   awserr.New("BucketNotEmpty", "bucket is not empty", nil),
			check: provider.IsNotEmpty,
		},
		{
			name:  "DependencyViolation",
			err:   awserr.New("DependencyViolation", "resource has a dependent object", nil),
			check: provider.IsNotEmpty,
		},
		{
			name:  "Throttled",
			err:   awserr.New("Throttling", "rate exceeded", nil),
			check: provider.IsUnavailable,
		},
		{
			name:  "TooManyRequests",
			err:   awserr.NewRequestFailure(awserr.New("SlowDown", "slow down", nil), 429, "req-2"),
			check: provider.IsUnavailable,
		},
		{
			name:  "ServerError",
			err:   awserr.NewRequestFailure(awserr.New("InternalError", "internal error", nil), 500, "req-3"),
			check: provider.IsUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("network", "vpc-123", tt.err)
			if !tt.check(got) {
				t.Errorf("classify() = %v, misclassified", got)
			}
		})
	}
}

func TestClassify_permanent(t *testing.T) {
	err := awserr.NewRequestFailure(awserr.New("ValidationError", "invalid parameter", nil), 400, "req-4")
	got := classify("network", "vpc-123", err)
	if provider.IsNotFound(got) || provider.IsNotEmpty(got) || provider.IsUnavailable(got) {
		t.Errorf("classify() = %v, want error passed through", got)
	}
}

func TestClassify_nil(t *testing.T) {
	if got := classify("network", "vpc-123", nil); got != nil {
		t.Errorf("classify(nil) = %v", got)
	}
}
