package resource

import "sort"

// A Registry maintains the schemas for registered resource kinds.
type Registry struct {
	kinds map[string]Schema
}

// Register adds a new resource kind.
//
// If another schema with the same kind is already registered, it is
// overwritten. Not safe for concurrent access.
func (r *Registry) Register(kind string, schema Schema) {
	if kind == "" {
		panic("Kind must not be empty")
	}
	if r.kinds == nil {
		r.kinds = make(map[string]Schema)
	}
	r.kinds[kind] = schema
}

// Kind returns the schema for a registered kind.
func (r *Registry) Kind(kind string) (Schema, bool) {
	s, ok := r.kinds[kind]
	return s, ok
}

// Kinds returns the registered kind names, lexicographically sorted.
func (r *Registry) Kinds() []string {
	kk := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kk = append(kk, k)
	}
	sort.Strings(kk)
	return kk
}
