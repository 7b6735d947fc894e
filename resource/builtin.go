package resource

import "github.com/zclconf/go-cty/cty"

// Attribute types for nested blocks.
var (
	ingressRuleType = cty.Object(map[string]cty.Type{
		"protocol":  cty.String,
		"from_port": cty.Number,
		"to_port":   cty.Number,
		"sources":   cty.List(cty.String),
	})

	healthCheckType = cty.Object(map[string]cty.Type{
		"path":              cty.String,
		"interval_seconds":  cty.Number,
		"timeout_seconds":   cty.Number,
		"healthy_threshold": cty.Number,
	})
)

// Builtin returns a registry containing the schemas for all builtin resource
// kinds.
//
// Attribute strategies follow the platform's update capabilities: address
// blocks and names cannot be changed in place, fleet capacity can, and a
// fleet's launch specification rolls its members.
func Builtin() *Registry {
	r := &Registry{}

	r.Register("network", Schema{Attributes: map[string]Attribute{
		"cidr_block": {Type: cty.String, Required: true, Strategy: UpdateReplace, Validation: "cidr"},
		"id":         {Type: cty.String, Computed: true},
	}})

	r.Register("subnet", Schema{Attributes: map[string]Attribute{
		"network":    {Type: cty.String, Required: true, Strategy: UpdateReplace},
		"cidr_block": {Type: cty.String, Required: true, Strategy: UpdateReplace, Validation: "cidr"},
		"id":         {Type: cty.String, Computed: true},
	}})

	// Ingress sources must be declared explicitly. There is no
	// unrestricted default.
	r.Register("security_group", Schema{Attributes: map[string]Attribute{
		"network": {Type: cty.String, Required: true, Strategy: UpdateReplace},
		"ingress": {
			Type:     cty.List(ingressRuleType),
			Required: true,
			MinItems: 1,
			Nested: map[string]Attribute{
				"sources": {Required: true, MinItems: 1},
			},
		},
		"id": {Type: cty.String, Computed: true},
	}})

	r.Register("storage_bucket", Schema{Attributes: map[string]Attribute{
		"bucket":        {Type: cty.String, Required: true, Strategy: UpdateReplace, Validation: "min=3"},
		"force_destroy": {Type: cty.Bool},
		"id":            {Type: cty.String, Computed: true},
	}})

	r.Register("launch_template", Schema{Attributes: map[string]Attribute{
		"image":          {Type: cty.String, Required: true, Strategy: UpdateReplace},
		"instance_type":  {Type: cty.String, Required: true, Strategy: UpdateReplace},
		"security_group": {Type: cty.String, Strategy: UpdateReplace},
		"user_data":      {Type: cty.String, Strategy: UpdateReplace},
		"id":             {Type: cty.String, Computed: true},
	}})

	r.Register("fleet", Schema{Attributes: map[string]Attribute{
		"launch_template":     {Type: cty.String, Required: true, Strategy: UpdateRolling},
		"subnet":              {Type: cty.String, Required: true, Strategy: UpdateReplace},
		"min":                 {Type: cty.Number, Required: true, Validation: "gte=0"},
		"max":                 {Type: cty.Number, Required: true, Validation: "gte=1"},
		"desired":             {Type: cty.Number, Required: true, Validation: "gte=0"},
		"target_group":        {Type: cty.String},
		"min_healthy_percent": {Type: cty.Number, Validation: "gte=0,lte=100"},
		"id":                  {Type: cty.String, Computed: true},
	}})

	r.Register("load_balancer", Schema{Attributes: map[string]Attribute{
		"subnets":        {Type: cty.List(cty.String), Required: true, Strategy: UpdateReplace, MinItems: 1},
		"security_group": {Type: cty.String, Strategy: UpdateReplace},
		"id":             {Type: cty.String, Computed: true},
		"dns_name":       {Type: cty.String, Computed: true},
	}})

	r.Register("target_group", Schema{Attributes: map[string]Attribute{
		"network":      {Type: cty.String, Required: true, Strategy: UpdateReplace},
		"port":         {Type: cty.Number, Required: true, Strategy: UpdateReplace, Validation: "gte=1,lte=65535"},
		"protocol":     {Type: cty.String, Required: true, Strategy: UpdateReplace, Validation: "oneof=HTTP HTTPS TCP"},
		"health_check": {Type: healthCheckType},
		"id":           {Type: cty.String, Computed: true},
	}})

	r.Register("listener", Schema{Attributes: map[string]Attribute{
		"load_balancer": {Type: cty.String, Required: true, Strategy: UpdateReplace},
		"target_group":  {Type: cty.String, Required: true},
		"port":          {Type: cty.Number, Required: true, Strategy: UpdateReplace, Validation: "gte=1,lte=65535"},
		"protocol":      {Type: cty.String, Required: true, Strategy: UpdateReplace, Validation: "oneof=HTTP HTTPS"},
		"id":            {Type: cty.String, Computed: true},
	}})

	return r
}
