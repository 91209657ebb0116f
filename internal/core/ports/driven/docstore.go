package driven

import (
	"context"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

// DocumentStore persists records into named indexes.
// Backed by SQLite, PostgreSQL with pgvector, or memory.
type DocumentStore interface {
	// WriteDocuments upserts records into index by ID.
	WriteDocuments(ctx context.Context, index string, records []domain.Record) error

	// DeleteDocuments removes every record of index. Deleting an empty index succeeds.
	DeleteDocuments(ctx context.Context, index string) error

	// ListDocuments returns up to limit records of index with ID greater than afterID,
	// ordered by ID. An empty afterID starts from the beginning.
	ListDocuments(ctx context.Context, index, afterID string, limit int) ([]domain.Record, error)

	// GetDocument retrieves a record by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, index, id string) (*domain.Record, error)

	// UpdateEmbeddings sets the embedding of existing records.
	UpdateEmbeddings(ctx context.Context, index string, updates []domain.EmbeddingUpdate) error

	// Count returns the number of records in index.
	Count(ctx context.Context, index string) (int, error)

	// Indexes returns the names of all non-empty indexes.
	Indexes(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}
