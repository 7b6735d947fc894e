// Package task provides a keyed run-once task group, used by the reconciler
// so every change in a plan executes exactly once no matter how many
// dependents wait on it.
package task

import "sync"

// Group memoizes keyed task results. The first call for a key runs the
// function; every later call for the same key waits for that run to finish
// and shares its error. Calls for different keys never block each other.
type Group struct {
	mu      sync.Mutex
	results map[string]*result
}

type result struct {
	done chan struct{}
	err  error
}

// NewGroup creates a new task group.
func NewGroup() *Group {
	return &Group{results: make(map[string]*result)}
}

// Do invokes fn if this is the first call for the key. Otherwise it blocks
// until the first call completes and returns its error without invoking fn.
func (g *Group) Do(key string, fn func() error) error {
	g.mu.Lock()
	if r, ok := g.results[key]; ok {
		g.mu.Unlock()
		<-r.done
		return r.err
	}
	r := &result{done: make(chan struct{})}
	g.results[key] = r
	g.mu.Unlock()

	r.err = fn()
	close(r.done)
	return r.err
}
