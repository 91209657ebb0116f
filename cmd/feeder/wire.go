package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/feeder/internal/adapters/driven/ai"
	"github.com/custodia-labs/feeder/internal/adapters/driven/langdetect/whatlang"
	"github.com/custodia-labs/feeder/internal/adapters/driven/source/filesystem"
	"github.com/custodia-labs/feeder/internal/adapters/driven/source/s3"
	"github.com/custodia-labs/feeder/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/feeder/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/feeder/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/feeder/internal/adapters/driving/cli"
	"github.com/custodia-labs/feeder/internal/config"
	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/core/ports/driving"
	"github.com/custodia-labs/feeder/internal/core/services"
	"github.com/custodia-labs/feeder/internal/extractors"
	"github.com/custodia-labs/feeder/internal/extractors/sidecar"
	"github.com/custodia-labs/feeder/internal/logger"
	"github.com/custodia-labs/feeder/internal/postprocessors"
	"github.com/custodia-labs/feeder/internal/postprocessors/chunker"
	"github.com/custodia-labs/feeder/internal/postprocessors/langtag"
)

// wiring assembles an IngestService for each command invocation.
type wiring struct {
	prompts driven.PromptStore
}

// build implements cli.IngestorFactory.
func (w *wiring) build(ctx context.Context, plan cli.Plan) (driving.Ingestor, func() error, error) {
	store, err := openStore(ctx, plan.Settings.Store)
	if err != nil {
		return nil, nil, err
	}
	closers := []func() error{store.Close}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	source, err := openSource(ctx, plan)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	registry := extractors.NewRegistry()
	extractors.RegisterSelected(registry, sidecar.New(source), domain.DefaultCategory, plan.Profile.Allows)

	enrichment, err := buildEnrichment(plan.Profile)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	embedder, err := openEmbedder(ctx, plan)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if embedder != nil {
		closers = append(closers, embedder.Close)
	}

	generator, err := ai.CreateQuestionGenerator(&plan.Settings.LLM, w.prompts)
	if err != nil {
		logger.Warn("question generator unavailable: %v", err)
		generator = nil
	}
	if generator != nil {
		closers = append(closers, generator.Close)
	}

	svc := services.NewIngestService(
		plan.Settings.Pipeline,
		source,
		registry,
		chunker.New(chunker.WithMaxWords(plan.Profile.MaxWords)),
		enrichment,
		store,
		embedder,
		generator,
	)
	return svc, closeAll, nil
}

// openEmbedder builds the embedding service. Dense plans ping the provider
// and fail before anything is ingested; other plans only warn, so clear and
// count keep working while the provider is down.
func openEmbedder(ctx context.Context, plan cli.Plan) (driven.EmbeddingService, error) {
	if plan.Dense {
		return ai.CreateAndValidateEmbeddingService(ctx, &plan.Settings.Embedding)
	}
	embedder, err := ai.CreateEmbeddingService(ctx, &plan.Settings.Embedding)
	if err != nil {
		// The refresh reports ErrEmbeddingUnavailable if it is requested.
		logger.Warn("embedding service unavailable: %v", err)
		return nil, nil
	}
	return embedder, nil
}

// openStore opens the configured document store backend.
func openStore(ctx context.Context, s config.StoreSettings) (driven.DocumentStore, error) {
	switch s.Backend {
	case config.BackendMemory:
		return memory.NewDocumentStore(), nil
	case config.BackendSQLite, "":
		store, err := sqlite.NewStore(s.SQLiteDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.BackendPostgres:
		store, err := postgres.NewStore(ctx, s.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidInput, s.Backend)
	}
}

// openSource picks the S3 source for s3:// roots and the filesystem otherwise.
func openSource(ctx context.Context, plan cli.Plan) (driven.Source, error) {
	if !strings.HasPrefix(plan.Source, s3.Scheme) {
		var opts []filesystem.Option
		if plan.SkipHidden {
			opts = append(opts, filesystem.SkipHidden())
		}
		return filesystem.New(opts...), nil
	}
	cfg := plan.Settings.S3
	src, err := s3.New(ctx, s3.Config{
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		Endpoint:        cfg.Endpoint,
		UsePathStyle:    cfg.UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("open s3 source: %w", err)
	}
	return src, nil
}

// buildEnrichment builds the per-record stages the profile asks for.
func buildEnrichment(profile config.Profile) (driven.EnrichmentPipeline, error) {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, whatlang.New(whatlang.DefaultMinConfidence, whatlang.RequireReliable()))

	var stages []string
	if profile.LanguageTag {
		stages = append(stages, langtag.Name)
	}
	pipeline, err := registry.BuildPipeline(stages, nil)
	if err != nil {
		return nil, fmt.Errorf("build enrichment: %w", err)
	}
	return pipeline, nil
}
