package driven

import (
	"context"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

// Chunker splits a raw passage into bounded records.
type Chunker interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Chunk returns the ordered records for a passage of file.
	// A passage without words returns no records.
	Chunk(ctx context.Context, file domain.SourceFile, passage domain.RawPassage) ([]domain.Record, error)
}

// Enricher adds derived fields to a record.
// Enrichers only add to a record; they never remove a field once set.
type Enricher interface {
	// Name returns the stage name for logging and configuration.
	Name() string

	// Enrich modifies rec in place.
	Enrich(ctx context.Context, rec *domain.Record) error
}

// EnrichmentPipeline runs enrichers in order.
type EnrichmentPipeline interface {
	// Apply runs every stage on rec and returns one result per stage.
	// A failing stage leaves rec as it was before that stage.
	Apply(ctx context.Context, rec *domain.Record) []domain.EnrichmentResult

	// Len returns the number of stages.
	Len() int
}

// LanguageDetector identifies the language of a text.
type LanguageDetector interface {
	// Detect returns an ISO 639-1 code such as "en".
	// Returns an error wrapping domain.ErrDetection when the result is unreliable.
	Detect(text string) (string, error)
}
