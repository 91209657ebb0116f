package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

// WalkFunc is called for every regular file found by a Source, and for
// every entry below the root that could not be read (file.Err set).
// Returning an error stops the walk and the error is returned from Walk.
type WalkFunc func(file domain.SourceFile) error

// Source enumerates the files under a root and opens them for reading.
// Implementations exist for the local filesystem and S3 buckets.
type Source interface {
	// Type returns the source type identifier (e.g. "filesystem", "s3").
	Type() string

	// Walk visits every regular file under root in the backend's natural order.
	// Directories are never passed to fn. The order is not guaranteed to be stable.
	Walk(ctx context.Context, root string, fn WalkFunc) error

	// Open returns a reader for the file at path.
	// Returns domain.ErrNotFound if the path does not exist.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
