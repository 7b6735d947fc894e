package resource_test

import (
	"strings"
	"testing"

	"github.com/converge/converge/resource"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"
)

func TestSchema_Validate(t *testing.T) {
	reg := resource.Builtin()
	tests := []struct {
		name  string
		kind  string
		input cty.Value
		want  []string // substrings of individual failures, empty for valid
	}{
		{
			name: "Valid",
			kind: "network",
			input: cty.ObjectVal(map[string]cty.Value{
				"cidr_block": cty.StringVal("10.0.0.0/16"),
			}),
		},
		{
			name: "InvalidCIDR",
			kind: "network",
			input: cty.ObjectVal(map[string]cty.Value{
				"cidr_block": cty.StringVal("10.0.0.0"),
			}),
			want: []string{"cidr_block: must be a valid CIDR block"},
		},
		{
			name:  "MissingRequired",
			kind:  "subnet",
			input: cty.EmptyObjectVal,
			want: []string{
				"network: required attribute not set",
				"cidr_block: required attribute not set",
			},
		},
		{
			name: "UnknownSatisfiesRequired",
			kind: "subnet",
			input: cty.ObjectVal(map[string]cty.Value{
				"network":    cty.UnknownVal(cty.String),
				"cidr_block": cty.StringVal("10.0.1.0/24"),
			}),
		},
		{
			name: "BucketNameTooShort",
			kind: "storage_bucket",
			input: cty.ObjectVal(map[string]cty.Value{
				"bucket": cty.StringVal("ab"),
			}),
			want: []string{"bucket: must be 3 or more"},
		},
		{
			name: "PortOutOfRange",
			kind: "target_group",
			input: cty.ObjectVal(map[string]cty.Value{
				"network":  cty.StringVal("vpc-1"),
				"port":     cty.NumberIntVal(70000),
				"protocol": cty.StringVal("HTTP"),
			}),
			want: []string{"port: must be 65535 or less"},
		},
		{
			name: "UnsupportedProtocol",
			kind: "target_group",
			input: cty.ObjectVal(map[string]cty.Value{
				"network":  cty.StringVal("vpc-1"),
				"port":     cty.NumberIntVal(80),
				"protocol": cty.StringVal("UDP"),
			}),
			want: []string{"protocol: must be one of: [HTTP HTTPS TCP]"},
		},
		{
			name: "EmptyIngressSources",
			kind: "security_group",
			input: cty.ObjectVal(map[string]cty.Value{
				"network": cty.StringVal("vpc-1"),
				"ingress": cty.ListVal([]cty.Value{
					cty.ObjectVal(map[string]cty.Value{
						"protocol":  cty.StringVal("tcp"),
						"from_port": cty.NumberIntVal(80),
						"to_port":   cty.NumberIntVal(80),
						"sources":   cty.ListValEmpty(cty.String),
					}),
				}),
			}),
			want: []string{"ingress[0].sources: must have at least 1 entries"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, ok := reg.Kind(tt.kind)
			if !ok {
				t.Fatalf("kind %q not registered", tt.kind)
			}
			err := schema.Validate(tt.input)
			if len(tt.want) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want %v", tt.want)
			}
			errs := multierr.Errors(err)
			for _, want := range tt.want {
				found := false
				for _, e := range errs {
					if strings.Contains(e.Error(), want) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Validate() = %v, missing failure %q", err, want)
				}
			}
		})
	}
}

func TestSchema_Inputs(t *testing.T) {
	reg := resource.Builtin()
	schema, _ := reg.Kind("fleet")
	got := schema.Inputs()
	want := []string{
		"desired", "launch_template", "max", "min",
		"min_healthy_percent", "subnet", "target_group",
	}
	if len(got) != len(want) {
		t.Fatalf("Inputs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Inputs() = %v, want %v", got, want)
		}
	}
}
