// Package filesystem provides a Source over the local filesystem.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.Source = (*Source)(nil)

// Source walks a local directory tree.
type Source struct {
	skipHidden bool
}

// Option configures a Source.
type Option func(*Source)

// SkipHidden leaves dot files and dot directories out of walks.
func SkipHidden() Option {
	return func(s *Source) {
		s.skipHidden = true
	}
}

// New creates a filesystem source.
func New(opts ...Option) *Source {
	s := &Source{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Type returns "filesystem".
func (s *Source) Type() string {
	return "filesystem"
}

// Walk visits every regular file under root in lexical order.
// Hidden entries are skipped only with SkipHidden. An entry that cannot be
// read is passed to fn with Err set and, for a directory, not descended.
func (s *Source) Walk(ctx context.Context, root string, fn driven.WalkFunc) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: source root %s", domain.ErrNotFound, root)
		}
		return fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: source root %s is not a directory", domain.ErrInvalidInput, root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			if fnErr := fn(domain.SourceFile{Path: path, Name: filepath.Base(path), Err: err}); fnErr != nil {
				return fnErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != root && s.skipHidden && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		file := domain.SourceFile{Path: path, Name: d.Name()}
		if fi, err := d.Info(); err == nil {
			file.Size = fi.Size()
		}
		return fn(file)
	})
}

// Open opens the file at path.
func (s *Source) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// isHidden reports whether a base name is a dot file. "." and ".." are not hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
