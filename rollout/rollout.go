// Package rollout replaces a fleet's members in bounded batches when the
// fleet's launch specification changes.
//
// A rollout drains and terminates a batch of members running the old
// specification, launches replacements from the new one, and waits for each
// replacement to report healthy through the load balancer's health check
// before starting the next batch. The batch size is bounded so the fleet
// never drops below its minimum healthy fraction.
package rollout

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// A Member is one compute instance in a fleet.
type Member struct {
	// ID is the physical identifier of the member.
	ID string

	// LaunchHash identifies the launch specification revision the member
	// was launched from.
	LaunchHash string
}

// FleetOps are the member-level operations a rollout needs from the
// provisioning platform.
type FleetOps interface {
	// ListMembers returns the fleet's current members.
	ListMembers(ctx context.Context, fleetID string) ([]Member, error)

	// DrainMember deregisters a member from the fleet's target group and
	// waits for connection drain to complete.
	DrainMember(ctx context.Context, fleetID, memberID string) error

	// TerminateMember terminates a member.
	TerminateMember(ctx context.Context, fleetID, memberID string) error

	// LaunchMember launches a new member from the fleet's current launch
	// specification, tagged with the given launch hash.
	LaunchMember(ctx context.Context, fleetID, launchHash string) (Member, error)
}

// A HealthChecker reports whether a member is receiving traffic healthily.
type HealthChecker interface {
	Healthy(ctx context.Context, memberID string) (bool, error)
}

// Terminal states a rollout can end in.
const (
	Done      = "done"
	Failed    = "failed"
	Cancelled = "cancelled"
)

// A Request describes one rollout.
type Request struct {
	// Project and Fleet name the fleet in logs and errors.
	Project string
	Fleet   string

	// FleetID is the fleet's physical identifier.
	FleetID string

	// Desired is the fleet's desired capacity.
	Desired int

	// MinHealthyPercent is the fraction of desired capacity that must
	// remain healthy throughout the rollout.
	MinHealthyPercent int

	// LaunchHash identifies the new launch specification revision.
	// Members tagged with a different hash are replaced.
	LaunchHash string
}

// A Report summarizes a finished rollout.
type Report struct {
	// ID uniquely identifies the rollout run.
	ID string

	// State is the terminal state: Done, Failed or Cancelled.
	State string

	// Replaced contains the ids of the replacement members launched.
	Replaced []string

	// Unhealthy contains the ids of replacements that never reported
	// healthy within their timeout.
	Unhealthy []string
}

// Default tuning values, used when the corresponding Coordinator field is
// zero.
const (
	DefaultPollInterval     = 5 * time.Second
	DefaultHealthyThreshold = 2
	DefaultHealthTimeout    = 5 * time.Minute
	DefaultMaxAttempts      = 3
)

// A Coordinator replaces fleet members in rolling batches.
//
// The zero value with Fleet and Health set is ready to use. A coordinator is
// Idle except while Run executes; Run must not be invoked concurrently for
// the same fleet.
type Coordinator struct {
	Fleet  FleetOps
	Health HealthChecker

	// PollInterval is the interval between health check polls.
	PollInterval time.Duration

	// HealthyThreshold is the number of consecutive healthy polls a
	// replacement must report before it counts as healthy.
	HealthyThreshold int

	// HealthTimeout bounds the total wait for one replacement to become
	// healthy.
	HealthTimeout time.Duration

	// MaxAttempts bounds how many times a replacement is relaunched after
	// failing its health check before the rollout fails.
	MaxAttempts int

	// Logger logs rollout progress. If not set, logs are discarded.
	Logger *zap.Logger
}

// Run replaces every member whose launch hash differs from the request's.
//
// Returns the report of the finished rollout. The error is non-nil when the
// rollout ended in a state other than Done; the report is returned in either
// case. Cancelling the context stops the rollout at the next safe point
// (fail-stop, no rollback).
func (c *Coordinator) Run(ctx context.Context, req Request) (*Report, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	report := &Report{
		ID:    ksuid.New().String(),
		State: Done,
	}
	logger = logger.With(
		zap.String("rollout", report.ID),
		zap.String("fleet", req.Fleet),
	)

	logger.Info("Rollout started", zap.String("launch_hash", req.LaunchHash))

	for {
		members, err := c.Fleet.ListMembers(ctx, req.FleetID)
		if err != nil {
			report.State = Failed
			return report, errors.Wrap(err, "list members")
		}

		var old []Member
		for _, m := range members {
			if m.LaunchHash != req.LaunchHash {
				old = append(old, m)
			}
		}
		if len(old) == 0 {
			logger.Info("Rollout done", zap.Int("replaced", len(report.Replaced)))
			return report, nil
		}

		batch, err := batchSize(len(members), req.Desired, req.MinHealthyPercent)
		if err != nil {
			report.State = Failed
			return report, err
		}
		if batch > len(old) {
			batch = len(old)
		}

		logger.Info("Replacing batch", zap.Int("size", batch), zap.Int("remaining", len(old)))

		if err := c.replaceBatch(ctx, req, old[:batch], report, logger); err != nil {
			if ctx.Err() != nil {
				report.State = Cancelled
			} else {
				report.State = Failed
			}
			return report, err
		}
	}
}

// batchSize returns the largest batch that keeps the healthy member count at
// or above the minimum healthy fraction of desired capacity.
func batchSize(healthy, desired, minHealthyPercent int) (int, error) {
	floor := (desired*minHealthyPercent + 99) / 100
	n := healthy - floor
	if n < 1 {
		return 0, errors.Errorf(
			"minimum healthy percentage %d%% leaves no headroom to replace members (healthy %d, floor %d)",
			minHealthyPercent, healthy, floor,
		)
	}
	return n, nil
}

// replaceBatch drains, terminates and replaces one batch of members.
func (c *Coordinator) replaceBatch(ctx context.Context, req Request, batch []Member, report *Report, logger *zap.Logger) error {
	for _, m := range batch {
		logger.Debug("Draining member", zap.String("member", m.ID))
		if err := c.Fleet.DrainMember(ctx, req.FleetID, m.ID); err != nil {
			return errors.Wrapf(err, "drain member %s", m.ID)
		}
		if err := c.Fleet.TerminateMember(ctx, req.FleetID, m.ID); err != nil {
			return errors.Wrapf(err, "terminate member %s", m.ID)
		}
	}

	maxAttempts := c.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for range batch {
		var launched Member
		ok := false
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			m, err := c.Fleet.LaunchMember(ctx, req.FleetID, req.LaunchHash)
			if err != nil {
				return errors.Wrap(err, "launch replacement")
			}
			launched = m
			logger.Debug("Launched replacement", zap.String("member", m.ID), zap.Int("attempt", attempt))

			healthy, err := c.awaitHealthy(ctx, m.ID)
			if err != nil {
				return errors.Wrapf(err, "health check member %s", m.ID)
			}
			if healthy {
				ok = true
				break
			}

			logger.Info("Replacement unhealthy", zap.String("member", m.ID), zap.Int("attempt", attempt))
			report.Unhealthy = append(report.Unhealthy, m.ID)
			if err := c.Fleet.TerminateMember(ctx, req.FleetID, m.ID); err != nil {
				return errors.Wrapf(err, "terminate unhealthy member %s", m.ID)
			}
		}
		if !ok {
			return errors.Errorf(
				"replacement for fleet %s did not become healthy after %d attempts",
				req.Fleet, maxAttempts,
			)
		}
		report.Replaced = append(report.Replaced, launched.ID)
	}
	return nil
}

// awaitHealthy polls the health check until the member reports healthy for
// the configured number of consecutive polls. Returns false when the timeout
// elapses first.
func (c *Coordinator) awaitHealthy(ctx context.Context, memberID string) (bool, error) {
	interval := c.PollInterval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	threshold := c.HealthyThreshold
	if threshold == 0 {
		threshold = DefaultHealthyThreshold
	}
	timeout := c.HealthTimeout
	if timeout == 0 {
		timeout = DefaultHealthTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consecutive := 0
	for {
		select {
		case <-ctx.Done():
			if errors.Cause(ctx.Err()) == context.DeadlineExceeded {
				return false, nil
			}
			return false, ctx.Err()
		case <-ticker.C:
			healthy, err := c.Health.Healthy(ctx, memberID)
			if err != nil {
				return false, err
			}
			if !healthy {
				consecutive = 0
				continue
			}
			consecutive++
			if consecutive >= threshold {
				return true, nil
			}
		}
	}
}
