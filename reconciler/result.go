package reconciler

import (
	"sort"
	"sync"

	"github.com/converge/converge/plan"
)

// Outcome is the per-resource result of applying a change.
type Outcome int

// Outcomes a change can end in.
const (
	// OutcomeNoOp: the resource already matched its desired state.
	OutcomeNoOp Outcome = iota

	// OutcomeApplied: the provider call succeeded and state was updated.
	OutcomeApplied

	// OutcomeFailed: the provider call failed. The resource's previous
	// state is untouched.
	OutcomeFailed

	// OutcomeBlocked: a resource this change depends on failed or was
	// itself blocked. The change was not attempted; a fresh apply run
	// re-attempts exactly the blocked subgraph.
	OutcomeBlocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoOp:
		return "no-op"
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	case OutcomeBlocked:
		return "blocked"
	}
	return "invalid"
}

// A ResourceResult is the outcome for a single resource.
type ResourceResult struct {
	// Name and Kind identify the resource.
	Name string
	Kind string

	// Action the plan contained for the resource.
	Action plan.Action

	// Outcome of executing the action.
	Outcome Outcome

	// Err is set when the outcome is OutcomeFailed.
	Err error

	// BlockedOn names the failed dependency when the outcome is
	// OutcomeBlocked.
	BlockedOn string
}

// A Result reports the per-resource outcomes of one apply run.
type Result struct {
	// RunID uniquely identifies the apply run in logs.
	RunID string

	mu        sync.Mutex
	resources map[string]*ResourceResult
}

func newResult(runID string) *Result {
	return &Result{
		RunID:     runID,
		resources: make(map[string]*ResourceResult),
	}
}

func (r *Result) set(rr *ResourceResult) {
	r.mu.Lock()
	r.resources[rr.Name] = rr
	r.mu.Unlock()
}

// Resource returns the result for a single resource, or nil if the run did
// not include it.
func (r *Result) Resource(name string) *ResourceResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resources[name]
}

// Resources returns all per-resource results, sorted by name.
func (r *Result) Resources() []*ResourceResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ResourceResult, 0, len(r.resources))
	for _, rr := range r.resources {
		out = append(out, rr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// OK returns true if no resource failed or was blocked.
func (r *Result) OK() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rr := range r.resources {
		if rr.Outcome == OutcomeFailed || rr.Outcome == OutcomeBlocked {
			return false
		}
	}
	return true
}

// Counts returns the number of applied, failed and blocked resources.
func (r *Result) Counts() (applied, failed, blocked int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rr := range r.resources {
		switch rr.Outcome {
		case OutcomeApplied:
			applied++
		case OutcomeFailed:
			failed++
		case OutcomeBlocked:
			blocked++
		}
	}
	return applied, failed, blocked
}
