// Package postprocessors provides the chunking and enrichment stages that
// run on extracted passages.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.EnrichmentPipeline = (*Pipeline)(nil)

// Pipeline chains enrichers and runs them in order.
// It implements the EnrichmentPipeline interface.
type Pipeline struct {
	enrichers []driven.Enricher
}

// NewPipeline creates a new enrichment pipeline with the given stages.
// Stages are executed in the order provided.
func NewPipeline(enrichers ...driven.Enricher) *Pipeline {
	return &Pipeline{
		enrichers: enrichers,
	}
}

// Apply runs the record through all stages in order and returns one result per stage.
// A stage that fails, or panics, leaves the record exactly as it was before that
// stage; later stages still run.
func (p *Pipeline) Apply(ctx context.Context, rec *domain.Record) []domain.EnrichmentResult {
	results := make([]domain.EnrichmentResult, 0, len(p.enrichers))

	for _, enricher := range p.enrichers {
		snapshot := rec.Clone()
		err := runStage(ctx, enricher, rec)
		if err != nil {
			*rec = snapshot
			err = fmt.Errorf("%w: %s: %w", domain.ErrEnrichment, enricher.Name(), err)
		}
		results = append(results, domain.EnrichmentResult{Stage: enricher.Name(), Err: err})
	}

	return results
}

func runStage(ctx context.Context, enricher driven.Enricher, rec *domain.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return enricher.Enrich(ctx, rec)
}

// Add appends a stage to the pipeline.
func (p *Pipeline) Add(enricher driven.Enricher) {
	p.enrichers = append(p.enrichers, enricher)
}

// Len returns the number of stages in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.enrichers)
}

// Names returns the stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.enrichers))
	for i, e := range p.enrichers {
		names[i] = e.Name()
	}
	return names
}
