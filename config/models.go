package config

import (
	"time"

	"github.com/hashicorp/hcl2/hcl"
	"github.com/pkg/errors"
)

// A Root is the root structure of a project's configuration, including all
// resources and scaling declarations that are part of the project.
type Root struct {
	Projects  []Project       `hcl:"project,block"`
	Resources []Resource      `hcl:"resource,block"`
	Policies  []ScalingPolicy `hcl:"scaling_policy,block"`
	Alarms    []MetricAlarm   `hcl:"metric_alarm,block"`
}

// A Project names the infrastructure project. Exactly one project block must
// be present across the project's config files; the block marks the project
// root directory.
type Project struct {
	// Name is the name of the project. State records are scoped by it.
	Name string `hcl:"name,label"`
}

// Resource is a user specified resource specification.
type Resource struct {
	// Name is a unique logical name for the resource.
	Name string `hcl:"name,label"`

	// Kind specifies what kind of resource this is.
	//
	// The kind defines how the Config is decoded.
	Kind string `hcl:"kind"`

	// Config is a configuration body for the resource.
	//
	// The contents depend on the resource kind.
	Config hcl.Body `hcl:",remain"`
}

// A ScalingPolicy declares a capacity adjustment for a fleet, dispatched when
// a bound alarm fires.
type ScalingPolicy struct {
	// Name is a unique name for the policy, referenced by alarms.
	Name string `hcl:"name,label"`

	// Fleet is the logical name of the fleet resource to adjust.
	Fleet string `hcl:"fleet"`

	// Adjustment is the capacity delta. Negative values scale in.
	Adjustment int `hcl:"adjustment"`

	// Cooldown is the suppression window after a dispatch, as a duration
	// string such as "2m".
	Cooldown string `hcl:"cooldown,optional"`
}

// CooldownDuration parses the policy's cooldown. A blank cooldown is zero.
func (p ScalingPolicy) CooldownDuration() (time.Duration, error) {
	if p.Cooldown == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Cooldown)
	if err != nil {
		return 0, errors.Wrapf(err, "policy %s: parse cooldown", p.Name)
	}
	if d < 0 {
		return 0, errors.Errorf("policy %s: cooldown must not be negative", p.Name)
	}
	return d, nil
}

// A MetricAlarm declares a threshold watch on a metric, bound to a scaling
// policy.
type MetricAlarm struct {
	// Name is a unique name for the alarm.
	Name string `hcl:"name,label"`

	// Metric is the metric name sampled from the metric source.
	Metric string `hcl:"metric"`

	// Comparison is the breach operator: gt, ge, lt or le.
	Comparison string `hcl:"comparison"`

	// Threshold is the value the metric is compared against.
	Threshold float64 `hcl:"threshold"`

	// EvaluationPeriods is the number of consecutive samples the condition
	// must hold before the alarm transitions. Defaults to 1.
	EvaluationPeriods int `hcl:"evaluation_periods,optional"`

	// Policy names the scaling policy dispatched when the alarm fires.
	Policy string `hcl:"policy"`
}
