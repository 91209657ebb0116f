package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures.
// Failures scoped to one file or record are absorbed by the pipeline;
// failures touching the store or the embedding pass end the run.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates no extractor is registered for a format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// Per-document errors.

	// ErrExtraction indicates format conversion failed for a whole file.
	ErrExtraction = errors.New("extraction failed")

	// ErrParse indicates one malformed record within a file.
	ErrParse = errors.New("parse failed")

	// ErrDetection indicates language detection could not decide.
	ErrDetection = errors.New("language detection failed")

	// ErrEnrichment indicates an enrichment stage failed for one record.
	ErrEnrichment = errors.New("enrichment failed")

	// Fatal errors.

	// ErrStoreWrite indicates a batch could not be written to the store.
	ErrStoreWrite = errors.New("store write failed")

	// ErrEmbeddingRefresh indicates the embedding refresh pass failed.
	ErrEmbeddingRefresh = errors.New("embedding refresh failed")

	// Optional collaborators.

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrQuestionGeneratorUnavailable indicates no question generator is configured.
	ErrQuestionGeneratorUnavailable = errors.New("question generator unavailable")

	// ErrProviderRejected indicates an AI provider refused the request
	// outright (bad credentials, exhausted quota). Retrying will not help.
	ErrProviderRejected = errors.New("provider rejected request")
)

// ParseError reports a malformed record at a given line of a file.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

// Unwrap lets errors.Is match both ErrParse and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}
