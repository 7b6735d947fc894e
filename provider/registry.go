package provider

import (
	"sort"

	"github.com/pkg/errors"
)

// A Registry maps resource kinds to their adapters.
type Registry struct {
	adapters map[string]Adapter
}

// Register adds an adapter for a kind.
//
// If another adapter with the same kind is already registered, it is
// overwritten. Not safe for concurrent access.
func (r *Registry) Register(kind string, adapter Adapter) {
	if kind == "" {
		panic("Kind must not be empty")
	}
	if r.adapters == nil {
		r.adapters = make(map[string]Adapter)
	}
	r.adapters[kind] = adapter
}

// Adapter returns the adapter for a kind. Returns an error naming the kind
// when no adapter is registered for it.
func (r *Registry) Adapter(kind string) (Adapter, error) {
	a, ok := r.adapters[kind]
	if !ok {
		return nil, errors.Errorf("no provider adapter registered for kind %q", kind)
	}
	return a, nil
}

// Kinds returns the registered kind names, lexicographically sorted.
func (r *Registry) Kinds() []string {
	kk := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		kk = append(kk, k)
	}
	sort.Strings(kk)
	return kk
}
