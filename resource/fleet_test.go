package resource_test

import (
	"testing"

	"github.com/converge/converge/resource"
	"github.com/zclconf/go-cty/cty"
)

func fleetResource(min, max, desired int64) *resource.Resource {
	return &resource.Resource{
		Kind: "fleet",
		Name: "web",
		Input: cty.ObjectVal(map[string]cty.Value{
			"launch_template": cty.StringVal("lt-1"),
			"subnet":          cty.StringVal("subnet-1"),
			"min":             cty.NumberIntVal(min),
			"max":             cty.NumberIntVal(max),
			"desired":         cty.NumberIntVal(desired),
		}),
	}
}

func TestAsFleet(t *testing.T) {
	f, err := resource.AsFleet(fleetResource(1, 4, 2))
	if err != nil {
		t.Fatalf("AsFleet() err = %v", err)
	}
	if f.Min != 1 || f.Max != 4 || f.Desired != 2 {
		t.Errorf("bounds = [%d, %d] desired %d, want [1, 4] desired 2", f.Min, f.Max, f.Desired)
	}
	if f.MinHealthyPercent != resource.DefaultMinHealthyPercent {
		t.Errorf("MinHealthyPercent = %d, want default %d", f.MinHealthyPercent, resource.DefaultMinHealthyPercent)
	}
}

func TestAsFleet_invalid(t *testing.T) {
	tests := []struct {
		name string
		res  *resource.Resource
	}{
		{name: "DesiredAboveMax", res: fleetResource(1, 4, 9)},
		{name: "DesiredBelowMin", res: fleetResource(2, 4, 1)},
		{name: "InvertedBounds", res: fleetResource(5, 2, 3)},
		{name: "NotAFleet", res: &resource.Resource{Kind: "network", Name: "main"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := resource.AsFleet(tt.res); err == nil {
				t.Error("AsFleet() err = nil")
			}
		})
	}
}

func TestFleet_Clamp(t *testing.T) {
	f := &resource.Fleet{Min: 1, Max: 4, Desired: 2}
	tests := []struct {
		in, want int
	}{
		{in: 0, want: 1},
		{in: 1, want: 1},
		{in: 3, want: 3},
		{in: 4, want: 4},
		{in: 12, want: 4},
	}
	for _, tt := range tests {
		if got := f.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
