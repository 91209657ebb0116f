package driving

import (
	"context"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

// Ingestor runs the ingestion pipeline and its maintenance operations.
type Ingestor interface {
	// Run ingests every file under opts.SourceRoot into opts.Index.
	Run(ctx context.Context, opts RunOptions) (*domain.IngestReport, error)

	// ClearIndex removes every record of an index.
	ClearIndex(ctx context.Context, index string) error

	// RefreshEmbeddings recomputes the vectors of every record of an index.
	// Returns the number of records updated.
	RefreshEmbeddings(ctx context.Context, index string) (int, error)

	// Count returns the number of records in an index.
	Count(ctx context.Context, index string) (int, error)

	// Status returns the progress of the run writing to index.
	Status(ctx context.Context, index string) (*IngestStatus, error)

	// Document returns one record of an index.
	// Returns domain.ErrNotFound if the index holds no record with that ID.
	Document(ctx context.Context, index, id string) (*domain.Record, error)

	// Indexes returns the names of every non-empty index.
	Indexes(ctx context.Context) ([]string, error)
}

// IngestStatus represents the current state of an ingestion run.
type IngestStatus struct {
	// Index identifies the run.
	Index string

	// Running indicates if ingestion is currently in progress.
	Running bool

	// FilesProcessed is the count of files extracted so far.
	FilesProcessed int

	// FilesSkipped is the count of files with an unrecognised format.
	FilesSkipped int

	// Written is the number of records written so far.
	Written int
}

// RunOptions configures a single ingestion run.
type RunOptions struct {
	// SourceRoot is the directory (or bucket prefix) to walk.
	SourceRoot string

	// Index is the destination index.
	Index string

	// ClearIndexFirst removes prior records before anything is written.
	ClearIndexFirst bool

	// GenerateQuestions runs the question sweep after ingestion.
	GenerateQuestions bool

	// RefreshEmbeddings recomputes vectors once ingestion is complete.
	RefreshEmbeddings bool
}
