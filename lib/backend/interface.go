package backend

import (
	"context"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory creates the backend used by a document store.
type Factory func() (IBackend, error)

// IBackend is a hierarchical key-value store addressed by slash-separated paths.
// A path names either a value or a directory. All failures are returned to the
// caller; implementations never swallow errors.
type IBackend interface {
	// Read returns the value stored at path. A missing path is not an error:
	// loaded is false and err is nil.
	Read(ctx context.Context, path string) (value []byte, loaded bool, err error)
	// Write stores value at path, creating missing parent directories.
	Write(ctx context.Context, path string, value []byte) (err error)
	// Delete removes path and, for directories, everything below it.
	// Deleting a missing path succeeds.
	Delete(ctx context.Context, path string) (err error)
	// Mkdir creates the directory at path including parents. Existing directories are fine.
	Mkdir(ctx context.Context, path string) (err error)
	// List returns the sorted names of the direct children of path.
	// A missing path yields an empty list.
	List(ctx context.Context, path string) (names []string, err error)
	// Close releases resources held by the backend.
	Close() (err error)
}
