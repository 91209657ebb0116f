package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

// Extractor converts one file format into raw passages.
// Each extractor handles one or more formats (e.g. PDF, JSON-lines).
type Extractor interface {
	// Formats returns the formats this extractor handles.
	Formats() []domain.Format

	// Extensions returns the lowercased file extensions mapped to those formats.
	Extensions() []string

	// Priority returns the selection priority (higher = preferred).
	Priority() int

	// Extract reads the file and returns its passages.
	// A failure converting the whole file is returned as an error wrapping
	// domain.ErrExtraction. Failures of individual records are reported in
	// ExtractResult.RecordErrors and do not stop extraction.
	Extract(ctx context.Context, file domain.SourceFile, r io.Reader) (*ExtractResult, error)
}

// ExtractResult contains the output of extraction.
type ExtractResult struct {
	// Passages are the records that were extracted successfully.
	Passages []domain.RawPassage

	// RecordErrors holds one *domain.ParseError per skipped record.
	RecordErrors []error
}

// SidecarReader opens a file's .info sidecar.
// Extractors for whole-file formats use it to fill RawPassage.SourceURL.
type SidecarReader interface {
	// ReadSidecar returns the first line of the sidecar of path,
	// or an empty string when there is none.
	ReadSidecar(ctx context.Context, path string) string
}

// ExtractorRegistry selects the appropriate extractor for a file.
type ExtractorRegistry interface {
	// Register adds an extractor to the registry.
	Register(extractor Extractor)

	// Detect returns the format for a path based on its extension.
	Detect(path string) domain.Format

	// Get returns the highest priority extractor for a format.
	// Returns domain.ErrUnsupportedFormat if none is registered.
	Get(format domain.Format) (Extractor, error)

	// Formats returns all formats that can be extracted.
	Formats() []domain.Format
}
