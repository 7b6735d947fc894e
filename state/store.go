package state

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// The KVBackend is used for persisting key-value data.
type KVBackend interface {
	// Put creates or updates a key.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the given key. Returns ErrNotFound if the given key does
	// not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete deletes a key. Returns ErrNotFound if the given key does not
	// exist.
	Delete(ctx context.Context, key string) error

	// Scan returns a key-value map of all keys matching the given prefix.
	// The prefix ends at a key segment boundary (a trailing slash).
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}

// Store persists observed state records in a key-value backend.
//
// Keys are structured as <project>/<name>. Every write replaces the full
// record for one resource; concurrent writers to different records never
// contend.
type Store struct {
	Backend KVBackend
}

// Put stores a record for a project.
func (s *Store) Put(ctx context.Context, project string, r *Record) error {
	data, err := marshalRecord(r)
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}
	if err := s.Backend.Put(ctx, key(project, r.Name), data); err != nil {
		return errors.Wrap(err, "store")
	}
	return nil
}

// Get returns the record for a single resource. Returns ErrNotFound if no
// record exists.
func (s *Store) Get(ctx context.Context, project, name string) (*Record, error) {
	k := key(project, name)
	data, err := s.Backend.Get(ctx, k)
	if err != nil {
		return nil, err
	}
	return unmarshalRecord(k, data)
}

// Delete deletes the record for a single resource.
func (s *Store) Delete(ctx context.Context, project, name string) error {
	if err := s.Backend.Delete(ctx, key(project, name)); err != nil {
		return errors.Wrap(err, "delete")
	}
	return nil
}

// List returns all records for a project, keyed by logical name.
func (s *Store) List(ctx context.Context, project string) (map[string]*Record, error) {
	// The trailing slash scopes the scan to this project's keys; without it
	// a project name that prefixes another would match both.
	values, err := s.Backend.Scan(ctx, project+"/")
	if err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	out := make(map[string]*Record, len(values))
	for k, v := range values {
		rec, err := unmarshalRecord(k, v)
		if err != nil {
			return nil, err
		}
		out[rec.Name] = rec
	}
	return out, nil
}

func key(project, name string) string {
	return fmt.Sprintf("%s/%s", project, name)
}
