// Package autoscale evaluates metric alarms and dispatches scaling policies
// against managed fleets.
//
// Alarms debounce transient spikes: a transition only happens after the
// comparison holds for a full run of evaluation periods. Dispatches respect
// per-policy cooldown windows and clamp the fleet's desired capacity to its
// declared bounds.
package autoscale

import (
	"fmt"
	"time"
)

// Comparison is the operator an alarm applies between a sample and its
// threshold.
type Comparison string

// Supported comparison operators.
const (
	GreaterThan    Comparison = "gt"
	GreaterOrEqual Comparison = "ge"
	LessThan       Comparison = "lt"
	LessOrEqual    Comparison = "le"
)

// Compare applies the operator.
func (c Comparison) Compare(value, threshold float64) bool {
	switch c {
	case GreaterThan:
		return value > threshold
	case GreaterOrEqual:
		return value >= threshold
	case LessThan:
		return value < threshold
	case LessOrEqual:
		return value <= threshold
	}
	return false
}

// A Sample is one metric observation.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// Transition is the state change produced by evaluating one sample.
type Transition int

// Transitions an evaluation can produce.
const (
	None Transition = iota
	ToAlarm
	ToOK
)

func (t Transition) String() string {
	switch t {
	case None:
		return "none"
	case ToAlarm:
		return "to-alarm"
	case ToOK:
		return "to-ok"
	}
	return "invalid"
}

// An Alarm watches one metric and fires a scaling policy when the metric
// breaches its threshold for a full run of evaluation periods.
//
// The zero evaluation state is OK. Not safe for concurrent use; the
// controller serializes evaluations.
type Alarm struct {
	// Name identifies the alarm in config and logs.
	Name string

	// Metric is the metric name sampled from the metric source.
	Metric string

	// Comparison and Threshold define the breach condition.
	Comparison Comparison
	Threshold  float64

	// EvaluationPeriods is the number of consecutive samples the
	// condition must hold before the alarm transitions.
	EvaluationPeriods int

	// Policy names the scaling policy dispatched on OK to ALARM.
	Policy string

	alarming bool
	breaches int
	clears   int
}

// Alarming returns true while the alarm is in the ALARM state.
func (a *Alarm) Alarming() bool { return a.alarming }

// Evaluate feeds one sample into the alarm and returns the resulting
// transition.
//
// A breaching sample increments the consecutive-breach counter and resets
// the clear counter; a clear sample does the reverse. OK transitions to
// ALARM only once the breach counter reaches EvaluationPeriods, and the
// reverse transition follows the same debounce rule on the complement
// condition.
func (a *Alarm) Evaluate(s Sample) Transition {
	periods := a.EvaluationPeriods
	if periods < 1 {
		periods = 1
	}

	if a.Comparison.Compare(s.Value, a.Threshold) {
		a.breaches++
		a.clears = 0
		if !a.alarming && a.breaches >= periods {
			a.alarming = true
			return ToAlarm
		}
		return None
	}

	a.clears++
	a.breaches = 0
	if a.alarming && a.clears >= periods {
		a.alarming = false
		return ToOK
	}
	return None
}

func (a *Alarm) String() string {
	return fmt.Sprintf("%s (%s %s %g for %d periods)", a.Name, a.Metric, a.Comparison, a.Threshold, a.EvaluationPeriods)
}
