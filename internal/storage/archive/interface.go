// internal/storage/archive/interface.go
package archive

import (
	"context"

	"github.com/newthinker/folio/internal/core"
)

// ErrNotFound is returned by Read when nothing is stored at a path.
var ErrNotFound = &core.Error{Code: "ARCHIVE_NOT_FOUND", Message: "archived object not found"}

// Storage is a flat object store for archived report documents. Paths use
// forward slashes regardless of backend.
type Storage interface {
	// Write stores data at the given path, replacing any previous object
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix in lexical order
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}
