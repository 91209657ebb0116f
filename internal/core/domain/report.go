package domain

import (
	"errors"
	"time"
)

// EnrichmentResult is the outcome of one enrichment stage on one record.
type EnrichmentResult struct {
	// Stage is the enricher name.
	Stage string

	// Err is nil on success. The record is left as it was before the stage otherwise.
	Err error
}

// OK reports whether the stage succeeded.
func (r EnrichmentResult) OK() bool {
	return r.Err == nil
}

// IngestReport summarises an ingestion run.
type IngestReport struct {
	Index string

	// FilesProcessed counts files that produced at least an extraction attempt.
	FilesProcessed int

	// FilesSkipped counts files with an unrecognised extension.
	FilesSkipped int

	// FilesFailed counts files whose conversion failed.
	FilesFailed int

	// FileErrors holds the conversion error of each failed file.
	FileErrors []error

	Passages     int
	RecordErrors int
	Chunks       int

	// Written is the number of records written to the primary index.
	Written int

	// Flushes is the number of batch writes to the primary index.
	Flushes int

	EnrichmentFailures int

	// Questions is the number of question records written.
	Questions int

	// EmbeddingsRefreshed is the number of vectors recomputed.
	EmbeddingsRefreshed int

	Duration time.Duration
}

// Err joins the per-file failures. It is nil when every file converted.
func (r *IngestReport) Err() error {
	return errors.Join(r.FileErrors...)
}
