package autoscale

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultInterval is the default metric evaluation interval.
var DefaultInterval = time.Minute

// A MetricSource produces metric observations. The controller is agnostic to
// how samples are collected.
type MetricSource interface {
	// Observe returns the current value for a metric.
	Observe(ctx context.Context, metric string) (float64, error)
}

// A FleetResizer applies capacity adjustments to a fleet.
//
// Implementations must serialize adjustments with any concurrent
// desired-capacity change from a plan apply: fleet capacity is a single
// mutable counter requiring exclusive access per update. The returned
// desired is the capacity after clamping to the fleet's bounds.
type FleetResizer interface {
	AdjustCapacity(ctx context.Context, fleet string, adjustment int) (desired int, clamped bool, err error)
}

// A Controller runs the closed autoscaling loop: it observes metrics,
// evaluates alarms and dispatches scaling policies.
type Controller struct {
	Source  MetricSource
	Resizer FleetResizer

	// Alarms and Policies are the evaluated alarm set and the policies
	// they dispatch, keyed by the alarm's Policy field.
	Alarms   []*Alarm
	Policies map[string]*Policy

	// Interval between evaluation rounds. If not set, DefaultInterval is
	// used.
	Interval time.Duration

	// Logger logs evaluations and dispatches. If not set, logs are
	// discarded.
	Logger *zap.Logger

	// now is the time source, replaceable in tests.
	now func() time.Time

	// mu guards alarm state and the cooldown windows.
	mu sync.Mutex

	// cooldowns tracks the last dispatch per fleet and direction. Keying
	// by direction means two policies scaling a fleet the same way share
	// one cooldown window.
	cooldowns map[cooldownKey]time.Time
}

type cooldownKey struct {
	fleet     string
	direction Direction
}

// Run evaluates all alarms on a recurring timer until the context is
// cancelled. Returns nil on cancellation.
func (c *Controller) Run(ctx context.Context) error {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := c.Interval
	if interval == 0 {
		interval = DefaultInterval
	}

	logger.Info("Autoscale controller started",
		zap.Int("alarms", len(c.Alarms)),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Autoscale controller stopped")
			return nil
		case <-ticker.C:
			c.evaluateAll(ctx, logger)
		}
	}
}

func (c *Controller) evaluateAll(ctx context.Context, logger *zap.Logger) {
	for _, alarm := range c.Alarms {
		value, err := c.Source.Observe(ctx, alarm.Metric)
		if err != nil {
			logger.Error("Observe metric",
				zap.String("alarm", alarm.Name),
				zap.String("metric", alarm.Metric),
				zap.Error(err),
			)
			continue
		}
		sample := Sample{Timestamp: c.clock()(), Value: value}

		c.mu.Lock()
		tr := alarm.Evaluate(sample)
		c.mu.Unlock()

		logger.Debug("Evaluated alarm",
			zap.String("alarm", alarm.Name),
			zap.Float64("value", value),
			zap.String("transition", tr.String()),
		)

		if tr != ToAlarm {
			continue
		}
		d, err := c.Dispatch(ctx, alarm.Policy)
		if err != nil {
			logger.Error("Dispatch policy",
				zap.String("alarm", alarm.Name),
				zap.String("policy", alarm.Policy),
				zap.Error(err),
			)
			continue
		}
		switch {
		case d.Suppressed:
			logger.Info("Dispatch suppressed by cooldown",
				zap.String("policy", d.Policy),
				zap.String("fleet", d.Fleet),
			)
		default:
			logger.Info("Dispatched scaling policy",
				zap.String("policy", d.Policy),
				zap.String("fleet", d.Fleet),
				zap.Int("desired", d.Desired),
				zap.Bool("clamped", d.Clamped),
			)
		}
	}
}

// Dispatch fires the named policy.
//
// Cooldown windows are held per fleet and scaling direction, so at most one
// policy scaling a fleet in a given direction fires per window. A dispatch
// inside the window is recorded as suppressed and not applied. Otherwise the
// fleet's desired capacity is adjusted, clamped to its bounds, and the
// window starts. The window is reserved before the resize is applied so
// concurrent dispatches cannot double-fire; a failed resize releases it,
// leaving the policy eligible to fire again.
func (c *Controller) Dispatch(ctx context.Context, name string) (Dispatch, error) {
	c.mu.Lock()
	policy, ok := c.Policies[name]
	if !ok {
		c.mu.Unlock()
		return Dispatch{}, errors.Errorf("policy %q not configured", name)
	}
	d := Dispatch{Policy: policy.Name, Fleet: policy.Fleet}
	key := cooldownKey{fleet: policy.Fleet, direction: policy.Direction()}
	now := c.clock()()
	if last, ok := c.cooldowns[key]; ok && now.Sub(last) < policy.Cooldown {
		d.Suppressed = true
		c.mu.Unlock()
		return d, nil
	}
	if c.cooldowns == nil {
		c.cooldowns = make(map[cooldownKey]time.Time)
	}
	c.cooldowns[key] = now
	c.mu.Unlock()

	desired, clamped, err := c.Resizer.AdjustCapacity(ctx, policy.Fleet, policy.Adjustment)
	if err != nil {
		c.mu.Lock()
		if c.cooldowns[key].Equal(now) {
			delete(c.cooldowns, key)
		}
		c.mu.Unlock()
		return d, errors.Wrapf(err, "adjust capacity of fleet %s", policy.Fleet)
	}
	d.Desired = desired
	d.Clamped = clamped
	return d, nil
}

func (c *Controller) clock() func() time.Time {
	if c.now != nil {
		return c.now
	}
	return time.Now
}
