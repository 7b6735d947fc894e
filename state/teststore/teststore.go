// Package teststore provides a state store wrapper that records all store
// interactions, for asserting on state writes in tests.
package teststore

import (
	"context"
	"fmt"
	"sync"

	"github.com/converge/converge/state"
	"github.com/google/go-cmp/cmp"
)

type store interface {
	Put(ctx context.Context, project string, r *state.Record) error
	Get(ctx context.Context, project, name string) (*state.Record, error)
	Delete(ctx context.Context, project, name string) error
	List(ctx context.Context, project string) (map[string]*state.Record, error)
}

// A Recorder acts as a wrapper to a store. It records all transactions with
// the store for test or debugging purposes.
type Recorder struct {
	Store store

	mu     sync.Mutex
	Events Events
}

// Events is a collection of recorded events.
type Events []Event

// An Event is a single recorded store interaction.
type Event struct {
	Method  string // Called method: put, get, delete or list.
	Project string // Project that was passed in.
	Name    string // Logical resource name, empty for list.
	Err     error  // Error that was returned from the call.
}

func (e Event) String() string {
	s := fmt.Sprintf("%s %s/%s", e.Method, e.Project, e.Name)
	if e.Err != nil {
		s += fmt.Sprintf(" (%v)", e.Err)
	}
	return s
}

// Diff returns a diff of events against other events. Returns an empty
// string if the events are equal.
func (ee Events) Diff(other Events) string {
	opts := []cmp.Option{
		cmp.Comparer(func(a, b error) bool {
			if a == nil || b == nil {
				return a == b
			}
			return a.Error() == b.Error()
		}),
	}
	return cmp.Diff(ee, other, opts...)
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.Events = append(r.Events, e)
	r.mu.Unlock()
}

// Put stores a record and records the event.
func (r *Recorder) Put(ctx context.Context, project string, rec *state.Record) error {
	err := r.Store.Put(ctx, project, rec)
	r.record(Event{Method: "put", Project: project, Name: rec.Name, Err: err})
	return err
}

// Get returns a single record and records the event.
func (r *Recorder) Get(ctx context.Context, project, name string) (*state.Record, error) {
	rec, err := r.Store.Get(ctx, project, name)
	r.record(Event{Method: "get", Project: project, Name: name, Err: err})
	return rec, err
}

// Delete deletes a record and records the event.
func (r *Recorder) Delete(ctx context.Context, project, name string) error {
	err := r.Store.Delete(ctx, project, name)
	r.record(Event{Method: "delete", Project: project, Name: name, Err: err})
	return err
}

// List lists all records for a project and records the event.
func (r *Recorder) List(ctx context.Context, project string) (map[string]*state.Record, error) {
	recs, err := r.Store.List(ctx, project)
	r.record(Event{Method: "list", Project: project, Err: err})
	return recs, err
}
