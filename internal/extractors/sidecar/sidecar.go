// Package sidecar reads the .info files stored next to source documents.
// The first line of a sidecar is the document's source URL.
package sidecar

import (
	"bufio"
	"context"
	"strings"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/logger"
)

// Ensure Reader implements the interface.
var _ driven.SidecarReader = (*Reader)(nil)

// Reader reads sidecars through a Source.
type Reader struct {
	source driven.Source
}

// New creates a sidecar reader over source.
func New(source driven.Source) *Reader {
	return &Reader{source: source}
}

// ReadSidecar returns the trimmed first line of path's .info file.
// A missing or unreadable sidecar yields an empty string.
func (r *Reader) ReadSidecar(ctx context.Context, path string) string {
	rc, err := r.source.Open(ctx, domain.SidecarPath(path))
	if err != nil {
		return ""
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			logger.Warn("read sidecar for %s: %v", path, err)
		}
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
}
