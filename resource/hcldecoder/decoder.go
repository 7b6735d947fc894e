package hcldecoder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/converge/converge/autoscale"
	"github.com/converge/converge/config"
	"github.com/converge/converge/resource"
	"github.com/converge/converge/resource/graph"
	"github.com/converge/converge/suggest"
	"github.com/hashicorp/hcl2/gohcl"
	"github.com/hashicorp/hcl2/hcl"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"
)

var rootSchema, _ = gohcl.ImpliedBodySchema(config.Root{})

// A Result holds everything decoded from a project's configuration.
type Result struct {
	// Project is the declared project.
	Project *config.Project

	// Graph contains the declared resources and the dependencies derived
	// from their attribute expressions.
	Graph *graph.Graph

	// Policies and Alarms are the declared autoscaling rules.
	Policies []*autoscale.Policy
	Alarms   []*autoscale.Alarm
}

// a decoder maintains the state of a single decode job.
type decoder struct {
	registry *resource.Registry
	graph    *graph.Graph
	names    map[string]*hcl.Range
	kinds    map[string]string
	refs     []pendingRef
	deps     map[string][]graph.Dependency
}

// pendingRef is a reference found in an expression, checked once all
// resources are decoded so forward references work.
type pendingRef struct {
	kind string
	name string
	attr string
	rng  hcl.Range
}

// DecodeBody decodes a merged configuration body against the registered kind
// schemas.
//
// Attribute expressions that reference other resources are added to the graph
// as dependencies; the referencing attribute is decoded as an unknown value.
// Static expressions are evaluated and converted to the attribute's declared
// type. Decoded inputs are validated against the schema's rules, and fleet
// capacity bounds are checked when they are statically known.
func DecodeBody(body hcl.Body, reg *resource.Registry) (*Result, hcl.Diagnostics) {
	cont, diags := body.Content(rootSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	dec := &decoder{
		registry: reg,
		graph:    graph.New(),
		names:    make(map[string]*hcl.Range),
		kinds:    make(map[string]string),
		deps:     make(map[string][]graph.Dependency),
	}
	res := &Result{Graph: dec.graph}

	var projectRange *hcl.Range
	var policies, alarms []*hcl.Block
	for _, b := range cont.Blocks {
		b := b
		switch b.Type {
		case "project":
			if req := requireLabels(b, "project name"); req.HasErrors() {
				diags = append(diags, req...)
				continue
			}
			if projectRange != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Duplicate project",
					Detail:   fmt.Sprintf("Another project was defined in %s on line %d.", projectRange.Filename, projectRange.Start.Line),
					Subject:  b.DefRange.Ptr(),
				})
				continue
			}
			projectRange = b.DefRange.Ptr()
			res.Project = &config.Project{Name: b.Labels[0]}
		case "resource":
			if req := requireLabels(b, "resource name"); req.HasErrors() {
				diags = append(diags, req...)
				continue
			}
			diags = append(diags, dec.decodeResource(b)...)
		case "scaling_policy":
			policies = append(policies, b)
		case "metric_alarm":
			alarms = append(alarms, b)
		}
	}

	diags = append(diags, dec.checkReferences()...)
	dec.wireDependencies()

	policyNames := make(map[string]*hcl.Range)
	for _, b := range policies {
		p, morediags := dec.decodePolicy(b, policyNames)
		diags = append(diags, morediags...)
		if p != nil {
			res.Policies = append(res.Policies, p)
		}
	}
	for _, b := range alarms {
		a, morediags := dec.decodeAlarm(b, policyNames)
		diags = append(diags, morediags...)
		if a != nil {
			res.Alarms = append(res.Alarms, a)
		}
	}

	if res.Project == nil {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "No project",
			Detail:   "A project block is required.",
			Subject:  body.MissingItemRange().Ptr(),
		})
	}

	return res, diags
}

func (d *decoder) decodeResource(block *hcl.Block) hcl.Diagnostics {
	name := block.Labels[0]

	if ex, ok := d.names[name]; ok {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Duplicate resource",
			Detail:   fmt.Sprintf("Another resource %q was defined in %s on line %d.", name, ex.Filename, ex.Start.Line),
			Subject:  block.DefRange.Ptr(),
		}}
	}
	d.names[name] = block.DefRange.Ptr()

	// Decode resource body. Will return errors for syntax errors.
	var spec config.Resource
	diags := gohcl.DecodeBody(block.Body, nil, &spec)
	if diags.HasErrors() {
		return diags
	}

	schema, ok := d.registry.Kind(spec.Kind)
	if !ok {
		detail := fmt.Sprintf("Resources of kind %q cannot be provisioned.", spec.Kind)
		if s := suggest.String(spec.Kind, d.registry.Kinds()); s != "" {
			detail += fmt.Sprintf(" Did you mean %q?", s)
		}
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Resource kind not supported",
			Detail:   detail,
			Subject:  block.DefRange.Ptr(),
		}}
	}
	d.kinds[name] = spec.Kind

	cont, remain, moreDiags := spec.Config.PartialContent(inputSchema(schema))
	diags = append(diags, moreDiags...)

	// Anything not consumed by the schema is unsupported.
	leftover, _ := remain.JustAttributes()
	for _, attr := range sortAttrs(leftover) {
		detail := fmt.Sprintf("An attribute named %q is not expected in a %s block.", attr.Name, spec.Kind)
		if s := suggest.String(attr.Name, schema.Inputs()); s != "" {
			detail += fmt.Sprintf(" Did you mean %q?", s)
		}
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported attribute",
			Detail:   detail,
			Subject:  attr.NameRange.Ptr(),
			Context:  attr.Range.Ptr(),
		})
	}

	attrs := make(map[string]cty.Value)
	var deps []graph.Dependency
	for attrName, attr := range cont.Attributes {
		v, dep, moreDiags := d.decodeExpr(attr, schema.Attributes[attrName].Type)
		diags = append(diags, moreDiags...)
		if moreDiags.HasErrors() {
			continue
		}
		if dep != nil {
			dep.Field = cty.GetAttrPath(attrName)
			deps = append(deps, *dep)
		}
		attrs[attrName] = v
	}

	if diags.HasErrors() {
		// An error occurred in decoding attributes. Do not add the resource
		// to the graph.
		return diags
	}

	input := cty.EmptyObjectVal
	if len(attrs) > 0 {
		input = cty.ObjectVal(attrs)
	}

	res := &resource.Resource{
		Kind:         spec.Kind,
		Name:         name,
		Input:        input,
		ForceDestroy: resource.BoolAttr(input, "force_destroy"),
		Deps:         parentNames(deps),
	}

	if err := schema.Validate(input); err != nil {
		for _, verr := range multierr.Errors(err) {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid value",
				Detail:   fmt.Sprintf("%s: %v.", res.Addr(), verr),
				Subject:  block.DefRange.Ptr(),
			})
		}
		return diags
	}

	if spec.Kind == "fleet" && boundsKnown(input) {
		if _, err := resource.AsFleet(res); err != nil {
			return append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid fleet capacity",
				Detail:   fmt.Sprintf("%v.", err),
				Subject:  block.DefRange.Ptr(),
			})
		}
	}

	d.graph.AddResource(res)
	if len(deps) > 0 {
		// Wired after all resource blocks are decoded; references may
		// point at resources declared later in the configuration.
		d.deps[name] = deps
	}

	return diags
}

// wireDependencies adds the decoded dependencies to the graph. Dependencies
// on resources that failed reference checking are dropped; the diagnostics
// already fail the decode.
func (d *decoder) wireDependencies() {
	for name, deps := range d.deps {
		for _, dep := range deps {
			valid := true
			for _, parent := range dep.Parents() {
				if _, ok := d.graph.Resources[parent]; !ok {
					valid = false
					break
				}
			}
			if valid {
				d.graph.AddDependency(name, dep)
			}
		}
	}
}

// checkReferences verifies that every reference names an existing resource of
// the referenced kind, and an attribute its schema declares.
func (d *decoder) checkReferences() hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, ref := range d.refs {
		kind, ok := d.kinds[ref.name]
		if !ok {
			detail := fmt.Sprintf("No resource named %q is defined.", ref.name)
			if s := suggest.String(ref.name, d.resourceNames()); s != "" {
				detail += fmt.Sprintf(" Did you mean %q?", s)
			}
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Referenced resource not found",
				Detail:   detail,
				Subject:  ref.rng.Ptr(),
			})
			continue
		}
		if kind != ref.kind {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid reference",
				Detail:   fmt.Sprintf("Resource %q has kind %q, not %q.", ref.name, kind, ref.kind),
				Subject:  ref.rng.Ptr(),
			})
			continue
		}
		schema, _ := d.registry.Kind(kind)
		if _, ok := schema.Attributes[ref.attr]; !ok {
			detail := fmt.Sprintf("%s.%s does not have an attribute %q.", kind, ref.name, ref.attr)
			if s := suggest.String(ref.attr, attrNames(schema)); s != "" {
				detail += fmt.Sprintf(" Did you mean %q?", s)
			}
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Referenced value not found",
				Detail:   detail,
				Subject:  ref.rng.Ptr(),
			})
		}
	}
	return diags
}

func (d *decoder) decodePolicy(block *hcl.Block, names map[string]*hcl.Range) (*autoscale.Policy, hcl.Diagnostics) {
	if req := requireLabels(block, "policy name"); req.HasErrors() {
		return nil, req
	}
	name := block.Labels[0]
	if ex, ok := names[name]; ok {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Duplicate scaling policy",
			Detail:   fmt.Sprintf("Another policy %q was defined in %s on line %d.", name, ex.Filename, ex.Start.Line),
			Subject:  block.DefRange.Ptr(),
		}}
	}

	var spec config.ScalingPolicy
	diags := gohcl.DecodeBody(block.Body, nil, &spec)
	if diags.HasErrors() {
		return nil, diags
	}
	spec.Name = name

	if kind, ok := d.kinds[spec.Fleet]; !ok || kind != "fleet" {
		detail := fmt.Sprintf("No fleet named %q is defined.", spec.Fleet)
		if ok {
			detail = fmt.Sprintf("Resource %q has kind %q, not \"fleet\".", spec.Fleet, kind)
		}
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown fleet",
			Detail:   detail,
			Subject:  block.DefRange.Ptr(),
		}}
	}

	cooldown, err := spec.CooldownDuration()
	if err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid cooldown",
			Detail:   fmt.Sprintf("%v.", err),
			Subject:  block.DefRange.Ptr(),
		}}
	}

	names[name] = block.DefRange.Ptr()
	return &autoscale.Policy{
		Name:       name,
		Fleet:      spec.Fleet,
		Adjustment: spec.Adjustment,
		Cooldown:   cooldown,
	}, nil
}

func (d *decoder) decodeAlarm(block *hcl.Block, policies map[string]*hcl.Range) (*autoscale.Alarm, hcl.Diagnostics) {
	if req := requireLabels(block, "alarm name"); req.HasErrors() {
		return nil, req
	}
	name := block.Labels[0]

	var spec config.MetricAlarm
	diags := gohcl.DecodeBody(block.Body, nil, &spec)
	if diags.HasErrors() {
		return nil, diags
	}
	spec.Name = name

	cmp := autoscale.Comparison(spec.Comparison)
	switch cmp {
	case autoscale.GreaterThan, autoscale.GreaterOrEqual, autoscale.LessThan, autoscale.LessOrEqual:
	default:
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid comparison",
			Detail:   fmt.Sprintf("Comparison must be one of gt, ge, lt or le, not %q.", spec.Comparison),
			Subject:  block.DefRange.Ptr(),
		}}
	}

	if _, ok := policies[spec.Policy]; !ok {
		detail := fmt.Sprintf("No scaling policy named %q is defined.", spec.Policy)
		if s := suggest.String(spec.Policy, rangeKeys(policies)); s != "" {
			detail += fmt.Sprintf(" Did you mean %q?", s)
		}
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown scaling policy",
			Detail:   detail,
			Subject:  block.DefRange.Ptr(),
		}}
	}

	periods := spec.EvaluationPeriods
	if periods < 1 {
		periods = 1
	}
	return &autoscale.Alarm{
		Name:              name,
		Metric:            spec.Metric,
		Comparison:        cmp,
		Threshold:         spec.Threshold,
		EvaluationPeriods: periods,
		Policy:            spec.Policy,
	}, nil
}

// inputSchema derives the body schema for a resource block from its kind
// schema. The kind attribute is consumed before the body reaches here.
func inputSchema(s resource.Schema) *hcl.BodySchema {
	schema := &hcl.BodySchema{}
	for _, name := range s.Inputs() {
		schema.Attributes = append(schema.Attributes, hcl.AttributeSchema{
			Name:     name,
			Required: s.Attributes[name].Required,
		})
	}
	return schema
}

func (d *decoder) resourceNames() []string {
	names := make([]string, 0, len(d.kinds))
	for name := range d.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func attrNames(s resource.Schema) []string {
	names := make([]string, 0, len(s.Attributes))
	for name := range s.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parentNames(deps []graph.Dependency) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, dep := range deps {
		for _, parent := range dep.Parents() {
			if _, ok := seen[parent]; ok {
				continue
			}
			seen[parent] = struct{}{}
			names = append(names, parent)
		}
	}
	sort.Strings(names)
	return names
}

func boundsKnown(input cty.Value) bool {
	for _, attr := range []string{"min", "max", "desired"} {
		if !resource.HasAttr(input, attr) {
			return false
		}
	}
	return true
}

func sortAttrs(attrs hcl.Attributes) []*hcl.Attribute {
	out := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func rangeKeys(m map[string]*hcl.Range) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func requireLabels(block *hcl.Block, names ...string) hcl.Diagnostics {
	for i, name := range names {
		title := strings.ToUpper(name[:1]) + name[1:]
		label := block.Labels[i]
		if label == "" {
			return hcl.Diagnostics{
				&hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  fmt.Sprintf("%s not set", title),
					Detail:   fmt.Sprintf("A %s cannot be blank.", name),
					Subject:  block.LabelRanges[i].Ptr(),
					Context:  block.DefRange.Ptr(),
				},
			}
		}
	}
	return nil
}
