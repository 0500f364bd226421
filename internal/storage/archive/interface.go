package archive

import "context"

// Storage is the flat object store under the report archive. Paths are
// slash separated and relative to the backend root (a directory or a bucket
// prefix). Read returns core.ErrNotFound for a missing path.
type Storage interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	// List returns the paths under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete is a no-op for a missing path.
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}
