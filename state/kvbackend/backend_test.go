package kvbackend

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"reflect"
	"testing"

	"github.com/converge/converge/state"
	"github.com/pkg/errors"
)

func TestBackend_io(t *testing.T) {
	tests := []struct {
		name   string
		create func(t *testing.T) (store state.KVBackend, done func())
	}{
		{
			"Memory",
			func(*testing.T) (state.KVBackend, func()) {
				return &Memory{}, func() {}
			},
		},
		{
			"Bolt",
			func(t *testing.T) (state.KVBackend, func()) {
				tmp, err := ioutil.TempFile("", "bolt-test")
				if err != nil {
					t.Fatal(err)
				}
				if err = tmp.Close(); err != nil {
					t.Fatal(err)
				}
				bolt, err := NewBoltWithFile(tmp.Name())
				if err != nil {
					t.Fatal(err)
				}
				return bolt, func() {
					if err := bolt.Close(); err != nil {
						t.Errorf("close db: %v", err)
					}
					if err := os.Remove(tmp.Name()); err != nil {
						t.Errorf("remove db file: %v", err)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be, done := tt.create(t)
			defer done()

			ctx := context.Background()

			// Get non-existing
			_, err := be.Get(ctx, "proj/net")
			if errors.Cause(err) != state.ErrNotFound {
				t.Errorf("Get non-existing key; want error = %v, got = %v", state.ErrNotFound, err)
			}

			// Create
			err = be.Put(ctx, "proj/net", []byte("a"))
			if err != nil {
				t.Fatalf("Create error = %v", err)
			}
			assertValue(t, be, "proj/net", []byte("a"))

			// Update
			err = be.Put(ctx, "proj/net", []byte("b"))
			if err != nil {
				t.Fatalf("Update error = %v", err)
			}
			assertValue(t, be, "proj/net", []byte("b"))

			// Create another
			err = be.Put(ctx, "proj/fleet", []byte("c"))
			if err != nil {
				t.Fatalf("Create another error = %v", err)
			}

			// A project whose name shares a prefix must not leak into the
			// scan.
			err = be.Put(ctx, "projother/net", []byte("d"))
			if err != nil {
				t.Fatalf("Create in other project error = %v", err)
			}

			// Scan non-existing
			assertScan(t, be, "nonexisting/", nil)

			// Scan existing
			assertScan(t, be, "proj/", map[string][]byte{
				"proj/net":   []byte("b"),
				"proj/fleet": []byte("c"),
			})

			// Delete non-existing key
			err = be.Delete(ctx, "proj/nonexisting")
			if err == nil {
				t.Error("Delete() nonexisting returned nil error")
			}

			err = be.Delete(ctx, "proj/net")
			if err != nil {
				t.Errorf("Delete() error = %v", err)
			}

			_, err = be.Get(ctx, "proj/net")
			if errors.Cause(err) != state.ErrNotFound {
				t.Errorf("Get deleted key; want error = %v, got = %v", state.ErrNotFound, err)
			}
		})
	}
}

func assertValue(t *testing.T, be state.KVBackend, key string, want []byte) {
	t.Helper()
	got, err := be.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get %s = %s, want %s", key, got, want)
	}
}

func assertScan(t *testing.T, be state.KVBackend, prefix string, want map[string][]byte) {
	t.Helper()
	got, err := be.Scan(context.Background(), prefix)
	if err != nil {
		t.Fatalf("Scan error = %v", err)
	}
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan %s = %v, want %v", prefix, got, want)
	}
}
