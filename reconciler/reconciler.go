// Package reconciler executes a plan against provider adapters, driving
// observed state to match desired state.
//
// Independent branches of the dependency graph are provisioned concurrently;
// a change never starts before every change it waits for has completed. When
// a provider call fails, the failed resource and everything depending on it
// is reported rather than aborting the run: unrelated branches still
// complete, and a retried run only re-attempts the blocked subgraph.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/converge/converge/plan"
	"github.com/converge/converge/provider"
	"github.com/converge/converge/reconciler/internal/task"
	"github.com/converge/converge/resource"
	"github.com/converge/converge/resource/graph"
	"github.com/converge/converge/rollout"
	"github.com/converge/converge/state"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the default maximum concurrency to use.
//
// In practice, the reconciler is likely bound by network i/o.
var DefaultConcurrency = 10

// stateWriteTimeout bounds the fresh context used for state writes, so a
// cancelled apply still records work the provider completed.
const stateWriteTimeout = 5 * time.Second

func defaultBackoff() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// A StateStore persists observed state records.
type StateStore interface {
	Put(ctx context.Context, project string, r *state.Record) error
	Get(ctx context.Context, project, name string) (*state.Record, error)
	Delete(ctx context.Context, project, name string) error
	List(ctx context.Context, project string) (map[string]*state.Record, error)
}

// Providers resolves resource kinds to their adapters.
type Providers interface {
	Adapter(kind string) (provider.Adapter, error)
}

// A RolloutRunner replaces a fleet's members after its launch specification
// changed.
type RolloutRunner interface {
	Run(ctx context.Context, req rollout.Request) (*rollout.Report, error)
}

// A Reconciler applies plans.
type Reconciler struct {
	State     StateStore
	Providers Providers

	// Registry provides kind schemas, used to derive fleet launch
	// specification hashes.
	Registry *resource.Registry

	// Rollouts performs rolling member replacement for fleets. If not
	// set, launch specification changes update the fleet record only.
	Rollouts RolloutRunner

	// Concurrency sets the maximum allowed concurrency to use.
	// If not set, DefaultConcurrency is used.
	Concurrency uint

	// Logger logs reconciliation updates. If not set, logs are discarded.
	Logger *zap.Logger

	// Backoff algorithm used for provider retries. If not set,
	// exponential backoff is used.
	Backoff func() backoff.BackOff

	mu       sync.Mutex
	fleetmus map[string]*sync.Mutex
}

// fleetLock returns the mutex serializing capacity changes for one fleet.
// Plan applies and autoscale dispatches share it: fleet capacity is a single
// mutable counter requiring exclusive access per update.
func (r *Reconciler) fleetLock(project, fleet string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fleetmus == nil {
		r.fleetmus = make(map[string]*sync.Mutex)
	}
	key := project + "/" + fleet
	mu, ok := r.fleetmus[key]
	if !ok {
		mu = &sync.Mutex{}
		r.fleetmus[key] = mu
	}
	return mu
}

// Apply executes the plan and returns the per-resource outcomes.
//
// The returned error is non-nil only when the run itself could not proceed
// (such as a cancelled context). Per-resource provider failures are recorded
// in the result; check Result.OK.
func (r *Reconciler) Apply(ctx context.Context, project string, p *plan.Plan) (*Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	algo := r.Backoff
	if algo == nil {
		algo = defaultBackoff
	}
	c := r.Concurrency
	if c == 0 {
		c = uint(DefaultConcurrency)
	}

	id := ksuid.New().String()
	logger = logger.With(zap.String("id", id))
	logger.Info("Apply", zap.String("project", project), zap.Int("pending", p.Pending()))

	changes := make(map[string]*plan.Change, len(p.Changes))
	for _, ch := range p.Changes {
		changes[ch.Name] = ch
	}

	run := &run{
		Reconciler: r,
		Project:    project,
		Changes:    changes,
		Logger:     logger,
		Backoff:    algo,
		Sem:        semaphore.NewWeighted(int64(c)),
		tasks:      task.NewGroup(),
		result:     newResult(id),
		outputs:    make(map[string]cty.Value),
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, ch := range p.Changes {
		ch := ch
		g.Go(func() error {
			return run.process(ctx, ch)
		})
	}
	if err := g.Wait(); err != nil {
		return run.result, err
	}

	applied, failed, blocked := run.result.Counts()
	logger.Info("Done",
		zap.Int("applied", applied),
		zap.Int("failed", failed),
		zap.Int("blocked", blocked),
	)
	return run.result, nil
}

type run struct {
	*Reconciler
	Project string
	Changes map[string]*plan.Change
	Logger  *zap.Logger
	Backoff func() backoff.BackOff
	Sem     *semaphore.Weighted

	tasks  *task.Group
	result *Result

	omu     sync.Mutex
	outputs map[string]cty.Value // provider outputs keyed by resource name
}

func (e *run) setOutput(name string, v cty.Value) {
	e.omu.Lock()
	e.outputs[name] = v
	e.omu.Unlock()
}

func (e *run) output(name string) (cty.Value, bool) {
	e.omu.Lock()
	defer e.omu.Unlock()
	v, ok := e.outputs[name]
	return v, ok
}

func (e *run) process(ctx context.Context, c *plan.Change) error {
	logger := e.Logger.With(zap.String("kind", c.Kind), zap.String("name", c.Name))

	return e.tasks.Do(c.Name, func() error {
		// Wait for dependencies before acquiring a semaphore, as
		// otherwise we can needlessly block on low concurrency limits
		// and end up in a deadlock with concurrency=1.
		if err := e.wait(ctx, c); err != nil {
			return err
		}

		if name := e.blockedOn(c); name != "" {
			logger.Info("Blocked", zap.String("on", name))
			e.result.set(&ResourceResult{
				Name: c.Name, Kind: c.Kind, Action: c.Action,
				Outcome: OutcomeBlocked, BlockedOn: name,
			})
			return nil
		}

		if c.Action == plan.NoOp {
			if c.Record != nil {
				e.setOutput(c.Name, c.Record.Output)
			}
			e.result.set(&ResourceResult{
				Name: c.Name, Kind: c.Kind, Action: c.Action,
				Outcome: OutcomeNoOp,
			})
			return nil
		}

		if err := e.Sem.Acquire(ctx, 1); err != nil {
			return errors.Wrap(err, "acquire semaphore")
		}
		defer e.Sem.Release(1)

		logger.Info("Processing", zap.String("action", c.Action.String()))

		err := e.execute(ctx, c, logger)
		if err != nil {
			logger.Error("Failed", zap.String("action", c.Action.String()), zap.Error(err))
			e.result.set(&ResourceResult{
				Name: c.Name, Kind: c.Kind, Action: c.Action,
				Outcome: OutcomeFailed,
				Err:     errors.Wrapf(err, "%s %s.%s", c.Action, c.Kind, c.Name),
			})
			return nil
		}

		e.result.set(&ResourceResult{
			Name: c.Name, Kind: c.Kind, Action: c.Action,
			Outcome: OutcomeApplied,
		})
		return nil
	})
}

// wait blocks until every change this change waits for has completed.
func (e *run) wait(ctx context.Context, c *plan.Change) error {
	if len(c.WaitFor) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range c.WaitFor {
		dep, ok := e.Changes[name]
		if !ok {
			continue
		}
		g.Go(func() error {
			return e.process(ctx, dep)
		})
	}
	return g.Wait()
}

// blockedOn returns the name of a failed or blocked dependency, or an empty
// string when all dependencies completed.
func (e *run) blockedOn(c *plan.Change) string {
	for _, name := range c.WaitFor {
		rr := e.result.Resource(name)
		if rr == nil {
			continue
		}
		if rr.Outcome == OutcomeFailed || rr.Outcome == OutcomeBlocked {
			return name
		}
	}
	return ""
}

func (e *run) execute(ctx context.Context, c *plan.Change, logger *zap.Logger) error {
	adapter, err := e.Providers.Adapter(c.Kind)
	if err != nil {
		return err
	}

	switch c.Action {
	case plan.Create:
		return e.create(ctx, c, adapter, logger)
	case plan.Update:
		return e.update(ctx, c, adapter, logger)
	case plan.Replace:
		if err := e.destroy(ctx, c, adapter, logger); err != nil {
			return errors.Wrap(err, "destroy for replacement")
		}
		return e.create(ctx, c, adapter, logger)
	case plan.Destroy:
		return e.destroy(ctx, c, adapter, logger)
	}
	return errors.Errorf("invalid action %v", c.Action)
}

func (e *run) create(ctx context.Context, c *plan.Change, adapter provider.Adapter, logger *zap.Logger) error {
	res := c.Resource
	if err := e.resolveInput(res, c.Dependencies); err != nil {
		return err
	}

	var out cty.Value
	err := provider.Retry(ctx, e.Backoff(), logger, func() error {
		v, err := adapter.Create(ctx, &provider.CreateRequest{
			Kind:  res.Kind,
			Name:  res.Name,
			Input: res.Input,
		})
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return err
	}
	res.Output = out
	e.setOutput(res.Name, out)

	return e.store(c, res, logger)
}

func (e *run) update(ctx context.Context, c *plan.Change, adapter provider.Adapter, logger *zap.Logger) error {
	res := c.Resource
	if err := e.resolveInput(res, c.Dependencies); err != nil {
		return err
	}

	if res.Kind == "fleet" {
		// Capacity is shared with the autoscale controller.
		mu := e.fleetLock(e.Project, res.Name)
		mu.Lock()
		defer mu.Unlock()
	}

	var out cty.Value
	err := provider.Retry(ctx, e.Backoff(), logger, func() error {
		v, err := adapter.Update(ctx, &provider.UpdateRequest{
			Kind:     res.Kind,
			Name:     res.Name,
			ID:       c.Record.ID,
			Input:    res.Input,
			Previous: c.Record.Input,
		})
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return err
	}
	res.Output = out
	e.setOutput(res.Name, out)

	if err := e.store(c, res, logger); err != nil {
		return err
	}

	if c.Rolling && e.Rollouts != nil {
		if err := e.roll(ctx, c, res, logger); err != nil {
			return err
		}
	}
	return nil
}

// roll replaces the fleet's members after its launch specification changed.
func (e *run) roll(ctx context.Context, c *plan.Change, res *resource.Resource, logger *zap.Logger) error {
	fleet, err := resource.AsFleet(res)
	if err != nil {
		return err
	}
	logger.Info("Launch specification changed, rolling members")

	report, err := e.Rollouts.Run(ctx, rollout.Request{
		Project:           e.Project,
		Fleet:             res.Name,
		FleetID:           res.ID(),
		Desired:           fleet.Desired,
		MinHealthyPercent: fleet.MinHealthyPercent,
		LaunchHash:        e.launchHash(res),
	})
	if err != nil {
		// Fail-stop: mark the fleet so the next apply replaces the
		// members that never converged.
		e.taint(c, res, logger)
		return errors.Wrap(err, "rollout")
	}
	logger.Info("Rollout done",
		zap.String("rollout", report.ID),
		zap.Int("replaced", len(report.Replaced)),
	)
	return nil
}

func (e *run) taint(c *plan.Change, res *resource.Resource, logger *zap.Logger) {
	rec := e.record(c, res)
	rec.Status = state.StatusTainted

	pctx, cancel := context.WithTimeout(context.Background(), stateWriteTimeout)
	defer cancel()
	if err := e.State.Put(pctx, e.Project, rec); err != nil {
		logger.Error("Store tainted record", zap.Error(err))
	}
}

func (e *run) destroy(ctx context.Context, c *plan.Change, adapter provider.Adapter, logger *zap.Logger) error {
	rec := c.Record

	err := provider.Retry(ctx, e.Backoff(), logger, func() error {
		err := adapter.Delete(ctx, &provider.DeleteRequest{
			Kind:   rec.Kind,
			Name:   rec.Name,
			ID:     rec.ID,
			Force:  c.Force || (c.Resource != nil && c.Resource.ForceDestroy),
			Output: rec.Output,
		})
		if provider.IsNotFound(err) {
			// Already gone.
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	// Use new context so a cancelled context still removes the record.
	pctx, cancel := context.WithTimeout(context.Background(), stateWriteTimeout)
	defer cancel()
	if err := e.State.Delete(pctx, e.Project, rec.Name); err != nil {
		return errors.Wrap(err, "delete record")
	}
	return nil
}

// store writes the record for a successfully applied resource. A new context
// is used so a cancelled apply still stores completed work.
func (e *run) store(c *plan.Change, res *resource.Resource, logger *zap.Logger) error {
	rec := e.record(c, res)

	pctx, cancel := context.WithTimeout(context.Background(), stateWriteTimeout)
	defer cancel()

	logger.Debug("Storing record", zap.String("id", rec.ID))
	if err := e.State.Put(pctx, e.Project, rec); err != nil {
		return errors.Wrap(err, "store record")
	}
	return nil
}

func (e *run) record(c *plan.Change, res *resource.Resource) *state.Record {
	return &state.Record{
		Name:       res.Name,
		Kind:       res.Kind,
		ID:         res.ID(),
		Input:      res.Input,
		Output:     res.Output,
		Deps:       res.Deps,
		Status:     state.StatusCreated,
		LaunchHash: e.launchHash(res),
	}
}

// resolveInput evaluates the resource's reference expressions against the
// outputs of its parents, replacing unknown values with fresh ones.
func (e *run) resolveInput(res *resource.Resource, deps []graph.Dependency) error {
	if len(deps) == 0 {
		return nil
	}

	vars := make(map[string]cty.Value)
	for _, dep := range deps {
		for _, parent := range dep.Parents() {
			out, ok := e.output(parent)
			if !ok {
				return errors.Errorf("output for %q not available", parent)
			}
			vars[parent] = out
		}
	}

	for _, dep := range deps {
		processed := false
		cfg, err := cty.Transform(res.Input, func(path cty.Path, val cty.Value) (cty.Value, error) {
			if !path.Equals(dep.Field) {
				return val, nil
			}
			v, err := dep.Expression.Value(vars)
			if err != nil {
				return cty.NilVal, errors.Wrap(err, "eval expression")
			}
			processed = true
			return v, nil
		})
		if err != nil {
			return errors.Wrap(err, "transform input with dependencies")
		}
		if !processed {
			return errors.Errorf("dependency field not found in input")
		}
		res.Input = cfg
	}
	return nil
}
