// Package artifact locates and caches versioned data files from the remote
// object store. A logical table (dataset, country, status) maps to a folder
// of immutable versioned files; resolution selects the newest version and
// downloads it to the local scratch cache.
package artifact

import (
	"context"
	"io"
)

// ObjectStore is the remote store contract the resolver depends on. The
// production implementation is S3; tests use an in-memory fake.
type ObjectStore interface {
	// List returns all object names under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Get opens the named object for reading.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
}
