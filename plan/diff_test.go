package plan

import (
	"testing"

	"github.com/converge/converge/resource"
	"github.com/converge/converge/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/zclconf/go-cty/cty"
)

func TestDiff(t *testing.T) {
	reg := resource.Builtin()
	networkSchema, _ := reg.Kind("network")
	subnetSchema, _ := reg.Kind("subnet")
	fleetSchema, _ := reg.Kind("fleet")

	tests := []struct {
		name          string
		desired       *resource.Resource
		observed      *state.Record
		schema        resource.Schema
		parentChanged bool
		wantAction    Action
		wantRolling   bool
		wantChanged   []string
	}{
		{
			name: "Create",
			desired: &resource.Resource{
				Kind: "network", Name: "main",
				Input: cty.ObjectVal(map[string]cty.Value{
					"cidr_block": cty.StringVal("10.0.0.0/16"),
				}),
			},
			observed:   nil,
			schema:     networkSchema,
			wantAction: Create,
		},
		{
			name: "NoChanges",
			desired: &resource.Resource{
				Kind: "network", Name: "main",
				Input: cty.ObjectVal(map[string]cty.Value{
					"cidr_block": cty.StringVal("10.0.0.0/16"),
				}),
			},
			observed: &state.Record{
				Name: "main", Kind: "network", ID: "vpc-1",
				Input: cty.ObjectVal(map[string]cty.Value{
					"cidr_block": cty.StringVal("10.0.0.0/16"),
				}),
			},
			schema:     networkSchema,
			wantAction: NoOp,
		},
		{
			name: "ImmutableChanged",
			desired: &resource.Resource{
				Kind: "network", Name: "main",
				Input: cty.ObjectVal(map[string]cty.Value{
					"cidr_block": cty.StringVal("10.1.0.0/16"),
				}),
			},
			observed: &state.Record{
				Name: "main", Kind: "network", ID: "vpc-1",
				Input: cty.ObjectVal(map[string]cty.Value{
					"cidr_block": cty.StringVal("10.0.0.0/16"),
				}),
			},
			schema:      networkSchema,
			wantAction:  Replace,
			wantChanged: []string{"cidr_block"},
		},
		{
			name: "MutableChanged",
			desired: &resource.Resource{
				Kind: "fleet", Name: "web",
				Input: cty.ObjectVal(map[string]cty.Value{
					"launch_template": cty.StringVal("lt"),
					"subnet":          cty.StringVal("subnet-1"),
					"min":             cty.NumberIntVal(1),
					"max":             cty.NumberIntVal(4),
					"desired":         cty.NumberIntVal(3),
				}),
			},
			observed: &state.Record{
				Name: "web", Kind: "fleet", ID: "fleet-1",
				Input: cty.ObjectVal(map[string]cty.Value{
					"launch_template": cty.StringVal("lt"),
					"subnet":          cty.StringVal("subnet-1"),
					"min":             cty.NumberIntVal(1),
					"max":             cty.NumberIntVal(4),
					"desired":         cty.NumberIntVal(2),
				}),
			},
			schema:      fleetSchema,
			wantAction:  Update,
			wantChanged: []string{"desired"},
		},
		{
			name: "LaunchSpecChanged",
			desired: &resource.Resource{
				Kind: "fleet", Name: "web",
				Input: cty.ObjectVal(map[string]cty.Value{
					"launch_template": cty.StringVal("lt-v2"),
					"subnet":          cty.StringVal("subnet-1"),
					"min":             cty.NumberIntVal(1),
					"max":             cty.NumberIntVal(4),
					"desired":         cty.NumberIntVal(2),
				}),
			},
			observed: &state.Record{
				Name: "web", Kind: "fleet", ID: "fleet-1",
				Input: cty.ObjectVal(map[string]cty.Value{
					"launch_template": cty.StringVal("lt-v1"),
					"subnet":          cty.StringVal("subnet-1"),
					"min":             cty.NumberIntVal(1),
					"max":             cty.NumberIntVal(4),
					"desired":         cty.NumberIntVal(2),
				}),
			},
			schema:      fleetSchema,
			wantAction:  Update,
			wantRolling: true,
			wantChanged: []string{"launch_template"},
		},
		{
			name: "TaintedUnchangedInputs",
			desired: &resource.Resource{
				Kind: "fleet", Name: "web",
				Input: cty.ObjectVal(map[string]cty.Value{
					"launch_template": cty.StringVal("lt"),
					"subnet":          cty.StringVal("subnet-1"),
					"min":             cty.NumberIntVal(1),
					"max":             cty.NumberIntVal(4),
					"desired":         cty.NumberIntVal(2),
				}),
			},
			observed: &state.Record{
				Name: "web", Kind: "fleet", ID: "fleet-1",
				Status: state.StatusTainted,
				Input: cty.ObjectVal(map[string]cty.Value{
					"launch_template": cty.StringVal("lt"),
					"subnet":          cty.StringVal("subnet-1"),
					"min":             cty.NumberIntVal(1),
					"max":             cty.NumberIntVal(4),
					"desired":         cty.NumberIntVal(2),
				}),
			},
			schema:      fleetSchema,
			wantAction:  Update,
			wantRolling: true,
		},
		{
			name: "UnknownRefParentUnchanged",
			desired: &resource.Resource{
				Kind: "subnet", Name: "a",
				Input: cty.ObjectVal(map[string]cty.Value{
					"network":    cty.UnknownVal(cty.String),
					"cidr_block": cty.StringVal("10.0.1.0/24"),
				}),
			},
			observed: &state.Record{
				Name: "a", Kind: "subnet", ID: "subnet-1",
				Input: cty.ObjectVal(map[string]cty.Value{
					"network":    cty.StringVal("vpc-1"),
					"cidr_block": cty.StringVal("10.0.1.0/24"),
				}),
			},
			schema:     subnetSchema,
			wantAction: NoOp,
		},
		{
			name: "UnknownRefParentChanged",
			desired: &resource.Resource{
				Kind: "subnet", Name: "a",
				Input: cty.ObjectVal(map[string]cty.Value{
					"network":    cty.UnknownVal(cty.String),
					"cidr_block": cty.StringVal("10.0.1.0/24"),
				}),
			},
			observed: &state.Record{
				Name: "a", Kind: "subnet", ID: "subnet-1",
				Input: cty.ObjectVal(map[string]cty.Value{
					"network":    cty.StringVal("vpc-1"),
					"cidr_block": cty.StringVal("10.0.1.0/24"),
				}),
			},
			schema:        subnetSchema,
			parentChanged: true,
			wantAction:    Replace,
			wantChanged:   []string{"network"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.desired, tt.observed, tt.schema, tt.parentChanged)
			if got.Action != tt.wantAction {
				t.Errorf("Action = %v, want %v", got.Action, tt.wantAction)
			}
			if got.Rolling != tt.wantRolling {
				t.Errorf("Rolling = %v, want %v", got.Rolling, tt.wantRolling)
			}
			if diff := cmp.Diff(tt.wantChanged, got.Changed, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Changed does not match (-want +got)\n%s", diff)
			}
		})
	}
}
