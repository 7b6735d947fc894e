// Package kvbackend provides key-value backends for the state store.
package kvbackend

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/converge/converge/state"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Bolt persists key-value pairs in a bolt database file.
//
// Keys are split on their last slash: the leading segments name the bucket
// and the trailing segment is the key within it. A project's records thus
// share one bucket, and Scan reads exactly that bucket.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens the database at its default location,
// ~/.converge/state.db, creating the directory if needed.
func NewBolt() (*Bolt, error) {
	u, err := user.Current()
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	return NewBoltWithFile(filepath.Join(u.HomeDir, ".converge", "state.db"))
}

// NewBoltWithFile creates and opens a database at the given path. If the file
// or directory do not exist, they are created.
func NewBoltWithFile(file string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return nil, errors.Wrapf(err, "ensure dir exists: %s", filepath.Dir(file))
	}
	db, err := bolt.Open(file, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open bolt db")
	}
	return &Bolt{db: db}, nil
}

// Close closes the database file and releases the file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Put creates or updates a value.
func (b *Bolt) Put(ctx context.Context, key string, value []byte) error {
	bucket, k, err := splitKey(key)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		buc, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return errors.Wrap(err, "ensure bucket exists")
		}
		return buc.Put(k, value)
	})
}

// Get returns a single value. Returns ErrNotFound when neither the bucket
// nor the key exist.
func (b *Bolt) Get(ctx context.Context, key string) ([]byte, error) {
	bucket, k, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	var out []byte
	err = b.db.View(func(tx *bolt.Tx) error {
		buc := tx.Bucket(bucket)
		if buc == nil {
			return state.ErrNotFound
		}
		v := buc.Get(k)
		if len(v) == 0 {
			return state.ErrNotFound
		}
		// The slice is only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete deletes a key. Returns ErrNotFound when the key does not exist.
func (b *Bolt) Delete(ctx context.Context, key string) error {
	bucket, k, err := splitKey(key)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		buc := tx.Bucket(bucket)
		if buc == nil || len(buc.Get(k)) == 0 {
			return state.ErrNotFound
		}
		return errors.Wrap(buc.Delete(k), "delete key")
	})
}

// Scan returns all pairs under the given namespace prefix. The prefix names
// a bucket and may carry a trailing slash, as produced by callers appending
// "/" to scope the scan to exact key segments.
func (b *Bolt) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	bucket := strings.TrimSuffix(prefix, "/")
	if bucket == "" {
		return nil, errors.New("scan prefix is empty")
	}
	out := make(map[string][]byte)
	err := b.db.View(func(tx *bolt.Tx) error {
		buc := tx.Bucket([]byte(bucket))
		if buc == nil {
			return nil
		}
		return buc.ForEach(func(k, v []byte) error {
			out[bucket+"/"+string(k)] = append([]byte(nil), v...)
			return nil
		})
	})
	return out, err
}

// splitKey splits a key on its last slash into a bucket and the key within
// it. Keys must contain a slash and must not start or end with one.
func splitKey(key string) (bucket, k []byte, err error) {
	i := strings.LastIndex(key, "/")
	if i <= 0 || i == len(key)-1 {
		return nil, nil, errors.Errorf("key %q must have the form <namespace>/<name>", key)
	}
	return []byte(key[:i]), []byte(key[i+1:]), nil
}
